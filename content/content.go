// Package content analyses body bytes on the send path. A streaming tally
// records what a part contains (8-bit data, control characters, line
// lengths, "From " lines); the conversion fan-out picks a charset that can
// carry the text; the encoder selection turns the tally into the cheapest
// safe transfer encoding.
package content

import (
	"io"

	"github.com/neomutt/neomutt-sub017/email"
)

// State carries the analyser's position between chunks of one stream. The
// zero value starts a fresh stream.
type State struct {
	from       bool
	whitespace int
	dot        bool
	linelen    int
	wasCR      bool
}

// Update feeds one chunk of bytes into the tally. Chunk boundaries do not
// affect the result.
func (s *State) Update(info *email.Content, buf []byte) {
	from := s.from
	whitespace := s.whitespace
	dot := s.dot
	linelen := s.linelen
	wasCR := s.wasCR

	for _, ch := range buf {
		if wasCR {
			wasCR = false
			if ch != '\n' {
				info.Binary = true
			} else {
				if whitespace > 0 {
					info.Space = true
				}
				if dot {
					info.Dot = true
				}
				if int64(linelen) > info.Linemax {
					info.Linemax = int64(linelen)
				}
				whitespace = 0
				dot = false
				linelen = 0
				continue
			}
		}

		switch {
		case ch == '\n':
			info.Crlf++
			if whitespace > 0 {
				info.Space = true
			}
			if dot {
				info.Dot = true
			}
			if int64(linelen) > info.Linemax {
				info.Linemax = int64(linelen)
			}
			whitespace = 0
			linelen = 0
			dot = false

		case ch == '\r':
			info.Crlf++
			info.Cr = true
			wasCR = true
			continue

		case ch&0x80 != 0:
			linelen++
			info.Hibin++

		case ch == '\t' || ch == '\f':
			linelen++
			info.Ascii++
			whitespace++

		case ch == 0:
			linelen++
			info.Nulbin++
			info.Lobin++

		case ch < 32 || ch == 127:
			linelen++
			info.Lobin++

		default:
			linelen++
			if linelen == 1 {
				from = ch == 'F' || ch == 'f'
				dot = ch == '.'
			} else if from {
				if linelen == 2 && ch != 'r' {
					from = false
				} else if linelen == 3 && ch != 'o' {
					from = false
				} else if linelen == 4 {
					if ch == 'm' {
						info.From = true
					}
					from = false
				}
			}
			if ch == ' ' {
				whitespace++
			}
			info.Ascii++
		}

		if linelen > 1 {
			dot = false
		}
		if ch != ' ' && ch != '\t' {
			whitespace = 0
		}
	}

	s.from = from
	s.whitespace = whitespace
	s.dot = dot
	s.linelen = linelen
	s.wasCR = wasCR
}

// Finish finalises the tally at end of stream: a dangling CR marks the
// content binary, and an unterminated last line still counts toward the
// longest line.
func (s *State) Finish(info *email.Content) {
	if s.wasCR {
		info.Binary = true
	}
	if int64(s.linelen) > info.Linemax {
		info.Linemax = int64(s.linelen)
	}
}

// GetInfo tallies an entire stream.
func GetInfo(r io.Reader) (*email.Content, error) {
	info := &email.Content{}
	var st State
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		st.Update(info, buf[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	st.Finish(info)
	return info, nil
}
