package encio_test

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"testing/iotest"

	"github.com/maxatome/go-testdeep/td"
	"github.com/zeebo/blake3"

	"github.com/stewi1014/marshal/encio"
)

func TestReadHeader(t *testing.T) {
	r := encio.NewBytesReader(nil)
	_, _, err := r.ReadHeader()
	td.CmpErrorIs(t, err, encio.ErrEmptyInput)
	td.CmpErrorIs(t, err, io.EOF)

	r = encio.NewBytesReader([]byte{4})
	_, _, err = r.ReadHeader()
	td.CmpErrorIs(t, err, encio.ErrTruncated)

	r = encio.NewBytesReader([]byte{4, 8})
	major, minor, err := r.ReadHeader()
	td.CmpNoError(t, err)
	td.Cmp(t, major, byte(4))
	td.Cmp(t, minor, byte(8))
}

// Readers without ReadByte must not be read past the requested bytes.
func TestReaderNoOverread(t *testing.T) {
	var b encio.Buffer
	b.WriteString("abc")
	b.WriteInt(300)
	b.WriteByte('z')

	src := bytes.NewBuffer(b.Bytes())
	r := encio.NewReader(iotest.OneByteReader(struct{ io.Reader }{src}))

	s, err := r.ReadBytes()
	td.CmpNoError(t, err)
	td.Cmp(t, s, []byte("abc"))

	n, err := r.ReadInt()
	td.CmpNoError(t, err)
	td.Cmp(t, n, 300)

	td.Cmp(t, src.Len(), 1)
}

func TestReaderRead(t *testing.T) {
	r := encio.NewBytesReader([]byte{4, 8, 'a', 'b', 'c'})
	_, _, err := r.ReadHeader()
	td.Require(t).CmpNoError(err)

	rest, err := io.ReadAll(r)
	td.CmpNoError(t, err)
	td.Cmp(t, string(rest), "abc")
	td.Cmp(t, r.Pos(), int64(5))
}

func TestReadN(t *testing.T) {
	_, err := encio.NewBytesReader([]byte("ab")).ReadN(3)
	td.CmpErrorIs(t, err, encio.ErrTruncated)
	td.CmpTrue(t, errors.Is(err, io.ErrUnexpectedEOF))

	_, err = encio.NewBytesReader(nil).ReadN(-1)
	td.CmpErrorIs(t, err, encio.ErrMalformed)

	big := bytes.Repeat([]byte{1}, 10000)
	got, err := encio.NewBytesReader(big).ReadN(len(big))
	td.CmpNoError(t, err)
	td.Cmp(t, got, big)

	r := encio.NewBytesReader(big[:5000])
	_, err = r.ReadN(len(big))
	td.CmpErrorIs(t, err, encio.ErrTruncated)
	td.Cmp(t, r.Pos(), int64(5000))
}

func TestReadErrors(t *testing.T) {
	fail := errors.New("disk on fire")
	r := encio.NewReader(iotest.ErrReader(fail))

	_, err := r.ReadByte()
	td.CmpErrorIs(t, err, fail)
	td.Cmp(t, err, td.Isa(encio.IOError{}))
}

func TestChecksum(t *testing.T) {
	payload := []byte("\x04\b[\x00")

	var out bytes.Buffer
	cw := encio.NewChecksumWriter(&out, blake3.New())
	td.CmpNoError(t, encio.Write(payload, cw))
	td.Cmp(t, out.Bytes(), payload)

	cr := encio.NewChecksumReader(bytes.NewReader(out.Bytes()), blake3.New())
	r := encio.NewReader(cr)
	_, _, err := r.ReadHeader()
	td.CmpNoError(t, err)
	_, err = r.ReadN(2)
	td.CmpNoError(t, err)

	td.CmpNoError(t, cr.Verify(cw.Sum()))
	td.CmpErrorIs(t, cr.Verify([]byte("nope")), encio.ErrMalformed)

	// nil falls back to CRC-32
	td.CmpLen(t, encio.NewChecksumWriter(io.Discard, nil).Sum(), 4)
}
