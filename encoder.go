package marshal

import (
	"io"
	"sync"

	"github.com/stewi1014/marshal/encodable"
	"github.com/stewi1014/marshal/types"
)

// NewEncoder returns a new Encoder writing to w.
func NewEncoder(w io.Writer, config *Config) *Encoder {
	return &Encoder{
		w:   w,
		enc: encodable.NewEncoder(config.codec()),
	}
}

// Encoder writes values to a stream, one after another.
// Each value is self-contained; links never span values.
// It is safe for concurrent use.
type Encoder struct {
	w     io.Writer
	mutex sync.Mutex
	enc   *encodable.Encoder
}

// Encode writes v.
func (e *Encoder) Encode(v types.Value) error {
	return e.EncodeDepth(v, -1)
}

// EncodeDepth writes v, failing with encio.ErrDepthExceeded if v nests deeper than limit.
func (e *Encoder) EncodeDepth(v types.Value, limit int) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	return e.enc.Encode(e.w, v, limit)
}
