package understory

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"slices"
	"unicode/utf16"
)

// Buffer is a mutable text store indexed two ways at once: by UTF-16
// code unit, the unit editors and protocol layers count in, and by raw
// byte offset, the unit tree-sitter's scanner counts in.
//
// The canonical representation is a single byte arena holding UTF-16
// code units, little-endian, two bytes per unit. Because the width is
// fixed, translating a code-unit index to a byte offset is a shift, not
// a rescan: char index i lives at byte offset 2*i, and ByteLen is
// always exactly 2*Len.
//
// Mutating methods that take an index validate it against the current
// length and return ErrOutOfRange on violation. A Buffer is not safe
// for concurrent use; Parse borrows it read-only for the duration of a
// round.
type Buffer struct {
	data []byte // UTF-16LE code units, always an even number of bytes
}

// NewBuffer returns an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// NewBufferString returns a buffer initialized with the UTF-16 encoding
// of s.
func NewBufferString(s string) *Buffer {
	b := &Buffer{}
	b.AppendString(s)
	return b
}

// Len returns the number of UTF-16 code units in the buffer.
func (b *Buffer) Len() int {
	return len(b.data) / 2
}

// ByteLen returns the size of the underlying store in bytes. It is
// always 2*Len.
func (b *Buffer) ByteLen() int {
	return len(b.data)
}

// CharAt returns the code unit at char index i.
func (b *Buffer) CharAt(i int) (uint16, error) {
	if i < 0 || i >= b.Len() {
		return 0, fmt.Errorf("char_at %d of %d: %w", i, b.Len(), ErrOutOfRange)
	}
	return binary.LittleEndian.Uint16(b.data[2*i:]), nil
}

// AppendChar appends a single code unit.
func (b *Buffer) AppendChar(c uint16) *Buffer {
	b.data = binary.LittleEndian.AppendUint16(b.data, c)
	return b
}

// AppendString appends the UTF-16 encoding of s.
func (b *Buffer) AppendString(s string) *Buffer {
	b.data = appendUTF16(b.data, s)
	return b
}

// AppendRange appends n code units of s starting at code-unit index
// from. The range must describe a valid sub-range of s measured in
// UTF-16 code units, not bytes or runes.
func (b *Buffer) AppendRange(s string, from, n int) (*Buffer, error) {
	units := utf16.Encode([]rune(s))
	if from < 0 || n < 0 || from+n > len(units) {
		return nil, fmt.Errorf("append range [%d, %d) of %d: %w", from, from+n, len(units), ErrOutOfRange)
	}
	for _, u := range units[from : from+n] {
		b.data = binary.LittleEndian.AppendUint16(b.data, u)
	}
	return b, nil
}

// InsertChar inserts code unit c at char index i, shifting subsequent
// content right. i may equal Len, which appends. Returns the receiver
// so calls can be chained.
func (b *Buffer) InsertChar(c uint16, i int) (*Buffer, error) {
	if i < 0 || i > b.Len() {
		return nil, fmt.Errorf("insert at %d of %d: %w", i, b.Len(), ErrOutOfRange)
	}
	var enc [2]byte
	binary.LittleEndian.PutUint16(enc[:], c)
	b.data = slices.Insert(b.data, 2*i, enc[0], enc[1])
	return b, nil
}

// InsertString inserts the UTF-16 encoding of s at char index i.
// Returns the receiver so calls can be chained.
func (b *Buffer) InsertString(s string, i int) (*Buffer, error) {
	if i < 0 || i > b.Len() {
		return nil, fmt.Errorf("insert at %d of %d: %w", i, b.Len(), ErrOutOfRange)
	}
	b.data = slices.Insert(b.data, 2*i, appendUTF16(nil, s)...)
	return b, nil
}

// DeleteChars removes the code units in the char range [start, end).
func (b *Buffer) DeleteChars(start, end int) error {
	if start < 0 || start > end || end > b.Len() {
		return fmt.Errorf("delete chars [%d, %d) of %d: %w", start, end, b.Len(), ErrOutOfRange)
	}
	b.data = slices.Delete(b.data, 2*start, 2*end)
	return nil
}

// DeleteBytes removes the byte range [start, end) from the underlying
// store. Offsets must be even: an odd offset would split a code unit,
// so it is rejected with ErrUnalignedOffset instead of corrupting the
// buffer.
func (b *Buffer) DeleteBytes(start, end int) error {
	if start < 0 || start > end || end > b.ByteLen() {
		return fmt.Errorf("delete bytes [%d, %d) of %d: %w", start, end, b.ByteLen(), ErrOutOfRange)
	}
	if start%2 != 0 || end%2 != 0 {
		return fmt.Errorf("delete bytes [%d, %d): %w", start, end, ErrUnalignedOffset)
	}
	b.data = slices.Delete(b.data, start, end)
	return nil
}

// Bytes returns the buffer content re-encoded as UTF-8, the narrow
// encoding tree-sitter's scanner consumes. The slice is freshly
// allocated on each call; mutating it does not affect the buffer.
func (b *Buffer) Bytes() []byte {
	return []byte(b.String())
}

// String returns the buffer content as a Go string. Unpaired
// surrogates decode to U+FFFD, matching the replacement behavior of
// the utf16 package.
func (b *Buffer) String() string {
	return string(utf16.Decode(b.units()))
}

// Equal reports whether two buffers hold identical byte sequences.
func (b *Buffer) Equal(other *Buffer) bool {
	if other == nil {
		return false
	}
	return bytes.Equal(b.data, other.data)
}

// units decodes the arena into a code-unit slice. Used only on the
// conversion paths; index math never round-trips through this.
func (b *Buffer) units() []uint16 {
	units := make([]uint16, b.Len())
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b.data[2*i:])
	}
	return units
}

func appendUTF16(dst []byte, s string) []byte {
	for _, u := range utf16.Encode([]rune(s)) {
		dst = binary.LittleEndian.AppendUint16(dst, u)
	}
	return dst
}
