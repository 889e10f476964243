package encio

import (
	"io"
	"math/big"
)

// Buffer accumulates an encoded stream. The zero value is ready to use.
type Buffer struct {
	buff []byte
}

// Write implements io.Writer
func (b *Buffer) Write(buff []byte) (int, error) {
	b.buff = append(b.buff, buff...)
	return len(buff), nil
}

// WriteByte implements io.ByteWriter
func (b *Buffer) WriteByte(by byte) error {
	b.buff = append(b.buff, by)
	return nil
}

// WriteInt writes n in the small integer format.
func (b *Buffer) WriteInt(n int) {
	b.buff = AppendInt(b.buff, int64(n))
}

// WriteBytes writes a length-prefixed byte string.
func (b *Buffer) WriteBytes(buff []byte) {
	b.buff = AppendInt(b.buff, int64(len(buff)))
	b.buff = append(b.buff, buff...)
}

// WriteString is WriteBytes for strings.
func (b *Buffer) WriteString(s string) {
	b.buff = AppendInt(b.buff, int64(len(s)))
	b.buff = append(b.buff, s...)
}

// WriteBig writes n in the arbitrary-precision format.
func (b *Buffer) WriteBig(n *big.Int) {
	b.buff = AppendBig(b.buff, n)
}

// WriteFloat writes f as length-prefixed decimal text.
func (b *Buffer) WriteFloat(f float64) {
	b.WriteString(FormatFloat(f))
}

// Bytes returns the written bytes. The slice is valid until the next write or Reset.
func (b *Buffer) Bytes() []byte {
	return b.buff
}

// Len returns the number of written bytes.
func (b *Buffer) Len() int {
	return len(b.buff)
}

// Reset empties the buffer, keeping its capacity.
func (b *Buffer) Reset() {
	b.buff = b.buff[:0]
}

// WriteTo implements io.WriterTo
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	if err := Write(b.buff, w); err != nil {
		return 0, err
	}
	return int64(len(b.buff)), nil
}
