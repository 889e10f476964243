package encio

import (
	"bytes"
	"encoding/hex"
	"hash"
	"hash/crc32"
	"io"
)

// NewChecksumWriter returns a new ChecksumWriter using the given hasher, and writing to w.
// A nil hasher uses CRC-32.
func NewChecksumWriter(w io.Writer, hasher hash.Hash) *ChecksumWriter {
	if hasher == nil {
		hasher = crc32.New(crc32.IEEETable)
	}

	return &ChecksumWriter{
		w:      w,
		hasher: hasher,
	}
}

// ChecksumWriter hashes every byte successfully written through it.
// The stream itself is passed through unchanged.
type ChecksumWriter struct {
	w      io.Writer
	hasher hash.Hash
}

// Write implements io.Writer.
func (c *ChecksumWriter) Write(buff []byte) (int, error) {
	n, err := c.w.Write(buff)
	if n > 0 {
		c.hasher.Write(buff[:n])
	}
	return n, err
}

// Sum returns the digest of all bytes written so far.
func (c *ChecksumWriter) Sum() []byte {
	return c.hasher.Sum(nil)
}

// NewChecksumReader returns a ChecksumReader using the given hasher, and reading from r.
// A nil hasher uses CRC-32.
func NewChecksumReader(r io.Reader, hasher hash.Hash) *ChecksumReader {
	if hasher == nil {
		hasher = crc32.New(crc32.IEEETable)
	}

	return &ChecksumReader{
		r:      r,
		hasher: hasher,
	}
}

// ChecksumReader hashes every byte read through it.
type ChecksumReader struct {
	r      io.Reader
	hasher hash.Hash
	one    [1]byte
}

// Read implements io.Reader.
func (c *ChecksumReader) Read(buff []byte) (int, error) {
	n, err := c.r.Read(buff)
	if n > 0 {
		c.hasher.Write(buff[:n])
	}
	return n, err
}

// ReadByte implements io.ByteReader, so decoders reading through a ChecksumReader
// don't fall back to single byte Read calls on the underlying reader.
func (c *ChecksumReader) ReadByte() (byte, error) {
	var err error
	if br, ok := c.r.(io.ByteReader); ok {
		c.one[0], err = br.ReadByte()
	} else {
		_, err = io.ReadFull(c.r, c.one[:])
	}
	if err != nil {
		return 0, err
	}
	c.hasher.Write(c.one[:])
	return c.one[0], nil
}

// Sum returns the digest of all bytes read so far.
func (c *ChecksumReader) Sum() []byte {
	return c.hasher.Sum(nil)
}

// Verify compares the digest of all bytes read so far with want,
// returning ErrMalformed if they differ.
func (c *ChecksumReader) Verify(want []byte) error {
	got := c.Sum()
	if !bytes.Equal(got, want) {
		return NewError(
			ErrMalformed,
			"checksums do not match: want "+hex.EncodeToString(want)+", got "+hex.EncodeToString(got),
			0,
		)
	}
	return nil
}
