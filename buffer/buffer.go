// Package buffer provides a growable byte buffer with an explicit cursor,
// used throughout the parsing layers to walk command lines and accumulate
// decoded text.
package buffer

import (
	"fmt"
	"unicode/utf8"

	"github.com/neomutt/neomutt-sub017/consts"
)

// Buffer is a dynamically sized byte string with a cursor. Writes append at
// the cursor; parsing code advances the cursor through previously stored
// text. The zero value is ready to use.
type Buffer struct {
	data []byte
	dptr int
}

// New returns an empty Buffer with the default starting capacity.
func New() *Buffer {
	return &Buffer{data: make([]byte, 0, consts.BufferStartSize)}
}

// NewString returns a Buffer initialized with s. The cursor is at the start,
// ready for parsing.
func NewString(s string) *Buffer {
	b := &Buffer{data: make([]byte, 0, max(len(s), consts.BufferStartSize))}
	b.data = append(b.data, s...)
	return b
}

// Reset empties the buffer and rewinds the cursor. Capacity is kept.
func (b *Buffer) Reset() {
	b.data = b.data[:0]
	b.dptr = 0
}

// Len reports the number of bytes stored.
func (b *Buffer) Len() int { return len(b.data) }

// IsEmpty reports whether the buffer holds no bytes.
func (b *Buffer) IsEmpty() bool { return len(b.data) == 0 }

// String returns the entire contents.
func (b *Buffer) String() string { return string(b.data) }

// Bytes returns the underlying byte slice. The slice is only valid until the
// next mutating call.
func (b *Buffer) Bytes() []byte { return b.data }

// Cursor reports the current cursor offset.
func (b *Buffer) Cursor() int { return b.dptr }

// Rest returns the contents from the cursor to the end.
func (b *Buffer) Rest() string { return string(b.data[min(b.dptr, len(b.data)):]) }

// Seek moves the cursor to offset off, clamped to the stored contents.
func (b *Buffer) Seek(off int) {
	if off < 0 {
		off = 0
	}
	if off > len(b.data) {
		off = len(b.data)
	}
	b.dptr = off
}

// SeekEnd moves the cursor past the last stored byte, so that subsequent
// appends extend the existing contents.
func (b *Buffer) SeekEnd() { b.dptr = len(b.data) }

// Advance moves the cursor forward n bytes, clamped to the end.
func (b *Buffer) Advance(n int) { b.Seek(b.dptr + n) }

// EOS reports whether the cursor has consumed all stored bytes.
func (b *Buffer) EOS() bool { return b.dptr >= len(b.data) }

// Peek returns the byte at the cursor without consuming it, or 0 at the end.
func (b *Buffer) Peek() byte {
	if b.dptr >= len(b.data) {
		return 0
	}
	return b.data[b.dptr]
}

// PeekAt returns the byte n positions past the cursor, or 0 past the end.
func (b *Buffer) PeekAt(n int) byte {
	if b.dptr+n >= len(b.data) || b.dptr+n < 0 {
		return 0
	}
	return b.data[b.dptr+n]
}

// Next consumes and returns the byte at the cursor, or 0 at the end.
func (b *Buffer) Next() byte {
	if b.dptr >= len(b.data) {
		return 0
	}
	c := b.data[b.dptr]
	b.dptr++
	return c
}

// At returns the byte at offset i, or 0 when out of range. Negative
// offsets address from the end, so At(-1) is the last byte.
func (b *Buffer) At(i int) byte {
	if i < 0 {
		i += len(b.data)
	}
	if i < 0 || i >= len(b.data) {
		return 0
	}
	return b.data[i]
}

// AddString appends s at the cursor, truncating anything beyond it, and
// leaves the cursor after the new text.
func (b *Buffer) AddString(s string) int {
	b.data = append(b.data[:b.dptr], s...)
	b.dptr = len(b.data)
	return len(s)
}

// AddBytes appends p at the cursor, truncating anything beyond it.
func (b *Buffer) AddBytes(p []byte) int {
	b.data = append(b.data[:b.dptr], p...)
	b.dptr = len(b.data)
	return len(p)
}

// AddByte appends a single byte at the cursor.
func (b *Buffer) AddByte(c byte) {
	b.data = append(b.data[:b.dptr], c)
	b.dptr = len(b.data)
}

// AddRune appends the UTF-8 encoding of r at the cursor.
func (b *Buffer) AddRune(r rune) int {
	b.data = utf8.AppendRune(b.data[:b.dptr], r)
	n := len(b.data) - b.dptr
	b.dptr = len(b.data)
	return n
}

// Printf formats into the buffer, replacing its contents.
func (b *Buffer) Printf(format string, args ...any) int {
	b.Reset()
	return b.AddPrintf(format, args...)
}

// AddPrintf formats and appends at the cursor.
func (b *Buffer) AddPrintf(format string, args ...any) int {
	return b.AddString(fmt.Sprintf(format, args...))
}

// SetString replaces the contents with s and leaves the cursor at the end.
func (b *Buffer) SetString(s string) {
	b.data = append(b.data[:0], s...)
	b.dptr = len(b.data)
}

// Insert splices s into the contents at offset off. Offsets past the end
// append. It returns the number of bytes inserted, or -1 for a negative
// offset.
func (b *Buffer) Insert(off int, s string) int {
	if off < 0 {
		return -1
	}
	if off >= len(b.data) {
		return b.AddString(s)
	}
	b.data = append(b.data, make([]byte, len(s))...)
	copy(b.data[off+len(s):], b.data[off:])
	copy(b.data[off:], s)
	if b.dptr >= off {
		b.dptr += len(s)
	}
	return len(s)
}

// Truncate drops all bytes at and after offset n, pulling the cursor back if
// it pointed beyond the new end.
func (b *Buffer) Truncate(n int) {
	if n < 0 || n >= len(b.data) {
		return
	}
	b.data = b.data[:n]
	if b.dptr > n {
		b.dptr = n
	}
}

// Copy replaces the contents with those of src.
func (b *Buffer) Copy(src *Buffer) {
	b.data = append(b.data[:0], src.data...)
	b.dptr = len(b.data)
}
