package content

import (
	"io"
	"strings"

	"github.com/neomutt/neomutt-sub017/charset"
	"github.com/neomutt/neomutt-sub017/consts"
	"github.com/neomutt/neomutt-sub017/email"
)

// candidate is one target charset competing for a text part. A nil encoder
// with score -1 marks the utf-8 identity candidate; a real encoder with
// score -1 has been poisoned by input it cannot hold.
type candidate struct {
	name  string
	enc   *charset.Encoder
	score int64
	state State
	info  email.Content
}

// ConvertTo streams r, assumed to be in fromcode, through a UTF-8 bridge
// and fans every chunk out to each candidate in the colon-separated tocodes
// list. Candidates that cannot represent the text are eliminated; the
// winner is the first candidate with the lowest inexact-conversion score,
// with utf-8 winning outright when reached. It returns the winning name as
// written in the list and the tally of the converted output.
func ConvertTo(r io.Reader, fromcode, tocodes string) (string, *email.Content, error) {
	dec, err := charset.NewDecoder(fromcode)
	if err != nil {
		return "", nil, err
	}

	var cands []*candidate
	for _, name := range splitColons(tocodes) {
		c := &candidate{name: name}
		if strings.EqualFold(name, "utf-8") {
			c.score = -1
		} else if enc, eerr := charset.NewEncoder(name); eerr == nil {
			c.enc = enc
		}
		cands = append(cands, c)
	}

	buf := make([]byte, 256)
	for {
		n, rerr := r.Read(buf)
		if rerr != nil && rerr != io.EOF {
			return "", nil, rerr
		}
		atEOF := rerr == io.EOF

		u := dec.Decode(buf[:n], atEOF)
		if dec.Substitutions() > 0 {
			return "", nil, consts.ErrBadCharset
		}

		for _, c := range cands {
			switch {
			case c.enc == nil && c.score == -1:
				c.state.Update(&c.info, u)
			case c.enc != nil && c.score != -1:
				out := c.enc.Encode(u, atEOF)
				if c.enc.Substitutions() > 0 {
					c.score = -1
					continue
				}
				c.state.Update(&c.info, out)
			}
		}
		if atEOF {
			break
		}
	}

	best := -1
	for i, c := range cands {
		if c.enc == nil && c.score == -1 {
			best = i
			break
		}
		if c.enc == nil || c.score == -1 {
			continue
		}
		if best < 0 || c.score < cands[best].score {
			best = i
			if c.score == 0 {
				break
			}
		}
	}
	if best < 0 {
		return "", nil, consts.ErrBadCharset
	}

	chosen := cands[best]
	info := chosen.info
	chosen.state.Finish(&info)
	return chosen.name, &info, nil
}

// ConvertFromTo tries each source charset from the colon-separated
// fromcodes list in turn until the stream converts cleanly to one of the
// tocodes candidates.
func ConvertFromTo(rs io.ReadSeeker, fromcodes, tocodes string) (string, string, *email.Content, error) {
	var lastErr error
	for _, fc := range splitColons(fromcodes) {
		if _, err := rs.Seek(0, io.SeekStart); err != nil {
			return "", "", nil, err
		}
		tc, info, err := ConvertTo(rs, fc, tocodes)
		if err == nil {
			return fc, tc, info, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = consts.ErrBadCharset
	}
	return "", "", nil, lastErr
}

func splitColons(list string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(list); i++ {
		if i == len(list) || list[i] == ':' {
			if i > start {
				out = append(out, list[start:i])
			}
			start = i + 1
		}
	}
	return out
}
