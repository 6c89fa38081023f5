package email

// Content tallies what the byte-level analyser saw in a body part. The
// counters and flags drive the choice of transfer encoding and charset
// labelling on the send path.
type Content struct {
	Hibin   int64 // 8-bit characters
	Lobin   int64 // unprintable 7-bit characters
	Nulbin  int64 // NUL characters
	Crlf    int64 // '\r' and '\n' characters
	Ascii   int64 // printable ascii characters
	Linemax int64 // length of the longest line

	Space  bool // whitespace at the end of a line
	Binary bool // long lines, or CR outside a CRLF pair
	From   bool // has a line beginning with "From "
	Dot    bool // has a line consisting of a single dot
	Cr     bool // has CR, even inside CRLF
}
