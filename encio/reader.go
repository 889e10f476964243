package encio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/big"
)

// NewReader returns a Reader reading from r.
// The Reader never reads past the end of the value being decoded, so r can hold several values back to back.
// Readers that don't implement io.ByteReader are read one byte at a time for control bytes.
func NewReader(r io.Reader) *Reader {
	reader := &Reader{r: r}
	if br, ok := r.(io.ByteReader); ok {
		reader.br = br
	}
	return reader
}

// NewBytesReader returns a Reader over buff.
func NewBytesReader(buff []byte) *Reader {
	return NewReader(bytes.NewReader(buff))
}

// Reader is a cursor over an encoded stream.
// It tracks the position for error messages and converts early ends into ErrTruncated.
type Reader struct {
	r    io.Reader
	br   io.ByteReader
	pos  int64
	buff [8]byte
}

// Pos returns the number of bytes consumed so far.
func (r *Reader) Pos() int64 {
	return r.pos
}

// Read implements io.Reader, reading from the underlying stream.
func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	r.pos += int64(n)
	return n, err
}

// ReadByte implements io.ByteReader. io.EOF is reported as ErrTruncated.
func (r *Reader) ReadByte() (byte, error) {
	b, err := r.readByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, r.truncated("want 1 byte")
		}
		return 0, err
	}
	return b, nil
}

// ReadHeader reads the two version bytes.
// A stream that ends before the first byte returns ErrEmptyInput, one that ends between them ErrTruncated.
func (r *Reader) ReadHeader() (major, minor byte, err error) {
	major, err = r.readByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, 0, NewError(ErrEmptyInput, "", 0)
		}
		return 0, 0, err
	}

	minor, err = r.ReadByte()
	return major, minor, err
}

func (r *Reader) readByte() (byte, error) {
	if r.br != nil {
		b, err := r.br.ReadByte()
		if err == nil {
			r.pos++
		}
		return b, err
	}

	n, err := r.r.Read(r.buff[:1])
	for n == 0 && err == nil {
		n, err = r.r.Read(r.buff[:1])
	}
	if n == 1 {
		r.pos++
		return r.buff[0], nil
	}
	if errors.Is(err, io.EOF) {
		return 0, io.EOF
	}
	return 0, NewIOError(err, r.r, "", 1)
}

// ReadN reads exactly n bytes.
// Large lengths are read incrementally, so corrupt lengths can't force huge allocations.
func (r *Reader) ReadN(n int) ([]byte, error) {
	if n < 0 {
		return nil, Errorf(ErrMalformed, "negative length %v at offset %v", n, r.pos)
	}

	if n <= 4096 {
		buff := make([]byte, n)
		if err := Read(buff, r.r); err != nil {
			return nil, r.wrap(err)
		}
		r.pos += int64(n)
		return buff, nil
	}

	if n > TooBig {
		return nil, Errorf(ErrMalformed, "length %v at offset %v exceeds %v", n, r.pos, TooBig)
	}

	var buff bytes.Buffer
	got, err := io.CopyN(&buff, r.r, int64(n))
	r.pos += got
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, r.truncated(fmt.Sprintf("want %v bytes but only got %v", n, got))
		}
		return nil, NewIOError(err, r.r, "", 0)
	}
	return buff.Bytes(), nil
}

// ReadInt reads an integer written by AppendInt.
func (r *Reader) ReadInt() (int, error) {
	c, err := r.ReadByte()
	if err != nil {
		return 0, err
	}

	r.buff[0] = c
	size := int(int8(c))
	if size < 0 {
		size = -size
	}
	if size == 0 || size > 4 {
		n, _ := DecodeInt(r.buff[:1])
		return n, nil
	}

	if err := Read(r.buff[1:size+1], r.r); err != nil {
		return 0, r.wrap(err)
	}
	r.pos += int64(size)

	n, _ := DecodeInt(r.buff[:size+1])
	return n, nil
}

// ReadBytes reads a length-prefixed byte string.
func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadInt()
	if err != nil {
		return nil, err
	}
	return r.ReadN(n)
}

// ReadBig reads an integer written by AppendBig.
func (r *Reader) ReadBig() (*big.Int, error) {
	sign, err := r.ReadByte()
	if err != nil {
		return nil, err
	}

	words, err := r.ReadInt()
	if err != nil {
		return nil, err
	}
	if words < 0 {
		return nil, Errorf(ErrMalformed, "negative bignum length %v at offset %v", words, r.pos)
	}

	le, err := r.ReadN(words * 2)
	if err != nil {
		return nil, err
	}
	return DecodeBig(sign, le)
}

// ReadFloat reads a length-prefixed float text written by FormatFloat.
func (r *Reader) ReadFloat() (float64, error) {
	text, err := r.ReadBytes()
	if err != nil {
		return 0, err
	}
	return ParseFloat(text)
}

func (r *Reader) truncated(message string) error {
	return Error{
		Err:     ErrTruncated,
		Message: fmt.Sprintf("%v at offset %v", message, r.pos),
		Caller:  GetCaller(1),
	}
}

func (r *Reader) wrap(err error) error {
	if errors.Is(err, ErrTruncated) {
		return r.truncated(err.Error())
	}
	return err
}
