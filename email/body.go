package email

// Body is one node of a message's MIME structure. Offsets and lengths
// address the raw stream the part was parsed from; content is never copied.
// Children of multipart and message parts live in Parts, in wire order.
type Body struct {
	Type    ContentType
	XType   string // literal type word when Type is TypeOther
	Subtype string

	Encoding    ContentEncoding
	Disposition ContentDisposition
	Parameter   ParameterList

	Description string
	Language    string
	ID          string // Content-ID
	DFilename   string // filename advertised by the part's own headers
	FormName    string // name from a form-data disposition

	HdrOffset int64 // offset of the part's header block
	Offset    int64 // offset where the content starts
	Length    int64 // length of the content in bytes

	Parts       []*Body
	Envelope    *Envelope // envelope of an encapsulated message/rfc822
	Email       *Email    // the encapsulated message itself
	MimeHeaders *Envelope // rfc822 fields found among the part's own headers
	Content     *Content  // analyser tally, when one has run

	// Send-side state.
	Filename     string // file holding content to attach
	Charset      string // source charset when the file is not converted
	NoConv       bool   // don't transcode the file's text
	ForceCharset bool   // keep the declared charset exactly as given
	UseDisp      bool   // name comes from the disposition, not our own
}

// IsMultipart reports whether the part contains children delimited by a
// boundary.
func (b *Body) IsMultipart() bool {
	return b.Type == TypeMultipart
}

// IsMessage reports whether the part encapsulates a complete message.
func (b *Body) IsMessage() bool {
	return IsMessageType(b.Type, b.Subtype)
}

// Count returns the number of parts in the tree rooted at b, including b
// itself. Without recurse, children are ignored and the count is 1.
func (b *Body) Count(recurse bool) int {
	if b == nil {
		return 0
	}
	n := 1
	if recurse {
		for _, p := range b.Parts {
			n += p.Count(true)
		}
	}
	return n
}

// FindParent locates the node whose Parts slice contains target, searching
// the tree rooted at b by pointer identity.
func (b *Body) FindParent(target *Body) (*Body, bool) {
	if b == nil || target == nil {
		return nil, false
	}
	for _, p := range b.Parts {
		if p == target {
			return b, true
		}
	}
	for _, p := range b.Parts {
		if parent, ok := p.FindParent(target); ok {
			return parent, true
		}
	}
	return nil, false
}

// FindPrevious locates target's previous sibling. A part that leads its
// parent's children has none.
func (b *Body) FindPrevious(target *Body) (*Body, bool) {
	if b == nil || target == nil {
		return nil, false
	}
	for i, p := range b.Parts {
		if p == target {
			if i > 0 {
				return b.Parts[i-1], true
			}
			return nil, false
		}
	}
	for _, p := range b.Parts {
		if prev, ok := p.FindPrevious(target); ok {
			return prev, true
		}
	}
	return nil, false
}

// Walk visits b and every descendant in parse order.
func (b *Body) Walk(fn func(*Body)) {
	if b == nil {
		return
	}
	fn(b)
	for _, p := range b.Parts {
		p.Walk(fn)
	}
}
