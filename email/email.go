package email

// Email carries the per-message state the header parser fills in alongside
// the Envelope: flags recovered from Status headers, timestamps, and the
// top-level body.
type Email struct {
	Read    bool
	Old     bool
	Replied bool
	Flagged bool
	Deleted bool
	Expired bool
	Mime    bool // a MIME-Version header was present

	DateSent int64 // Date header, epoch seconds; 0 when missing or bad
	Received int64 // last Received header's date, epoch seconds

	Zhours    int  // hours east of UTC in the Date header
	Zminutes  int  // minutes part of the zone offset
	Zoccident bool // true when the zone is west of UTC

	Lines  int   // Lines header
	Offset int64 // offset of the message within its stream

	Body *Body
	Env  *Envelope
}

// NewEmail returns an Email with no body attached.
func NewEmail() *Email {
	return &Email{}
}
