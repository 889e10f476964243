package marshal

import (
	"bufio"
	"io"
	"sync"

	"github.com/stewi1014/marshal/encio"
	"github.com/stewi1014/marshal/encodable"
	"github.com/stewi1014/marshal/types"
)

// NewDecoder returns a new Decoder reading from r.
// If r doesn't implement io.ByteReader, it is buffered, and the Decoder may read past the last value.
func NewDecoder(r io.Reader, config *Config) *Decoder {
	if _, ok := r.(io.ByteReader); !ok {
		r = bufio.NewReader(r)
	}

	return &Decoder{
		r:   encio.NewReader(r),
		dec: encodable.NewDecoder(config.codec()),
	}
}

// Decoder reads values from a stream, one after another.
// It is safe for concurrent use.
type Decoder struct {
	r     *encio.Reader
	mutex sync.Mutex
	dec   *encodable.Decoder
}

// Decode reads the next value.
// It returns an error wrapping encio.ErrEmptyInput, and io.EOF, once the stream is exhausted.
func (d *Decoder) Decode() (types.Value, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	return d.dec.Decode(d.r)
}
