package encodable

import (
	"fmt"
	"io"
	"sync"

	"github.com/stewi1014/marshal/types"
)

// NewPool returns a Pool of Encoders and Decoders sharing config.
func NewPool(config *Config) *Pool {
	return &Pool{
		config: config.copyAndFill(),
	}
}

// Pool is a thread safe Encoder and Decoder.
// It keeps a cache of Encoders and Decoders, only allowing a single call at a time on any one of them.
// If all cached instances are busy, it creates a new one; it never blocks.
type Pool struct {
	config *Config

	// mutex is only held while modifying the caches, and released before any other action.
	mutex    sync.Mutex
	encoders []*Encoder
	decoders []*Decoder
}

// Config returns the configuration shared by the pool.
func (p *Pool) Config() *Config {
	return p.config
}

// String implements fmt.Stringer
func (p *Pool) String() string {
	return fmt.Sprintf("Pool(%v)", p.config)
}

// Encode implements ValueEncoder
func (p *Pool) Encode(w io.Writer, v types.Value, limit int) error {
	enc := p.getEncoder()
	defer p.putEncoder(enc)

	return enc.Encode(w, v, limit)
}

// Append appends the encoding of v to buff.
func (p *Pool) Append(buff []byte, v types.Value, limit int) ([]byte, error) {
	enc := p.getEncoder()
	defer p.putEncoder(enc)

	return enc.Append(buff, v, limit)
}

// Decode implements ValueDecoder
func (p *Pool) Decode(r io.Reader) (types.Value, error) {
	dec := p.getDecoder()
	defer p.putDecoder(dec)

	return dec.Decode(r)
}

// DecodeBytes reads one value from buff.
func (p *Pool) DecodeBytes(buff []byte) (types.Value, error) {
	dec := p.getDecoder()
	defer p.putDecoder(dec)

	return dec.DecodeBytes(buff)
}

// getEncoder returns an Encoder, releasing ownership to the caller.
func (p *Pool) getEncoder() *Encoder {
	p.mutex.Lock()
	l := len(p.encoders)
	if l > 0 {
		enc := p.encoders[l-1]
		p.encoders = p.encoders[:l-1]
		p.mutex.Unlock()
		return enc
	}
	p.mutex.Unlock()
	return NewEncoder(p.config)
}

// ownership of enc is passed to putEncoder, no more calls can be made.
func (p *Pool) putEncoder(enc *Encoder) {
	p.mutex.Lock()
	p.encoders = append(p.encoders, enc)
	p.mutex.Unlock()
}

func (p *Pool) getDecoder() *Decoder {
	p.mutex.Lock()
	l := len(p.decoders)
	if l > 0 {
		dec := p.decoders[l-1]
		p.decoders = p.decoders[:l-1]
		p.mutex.Unlock()
		return dec
	}
	p.mutex.Unlock()
	return NewDecoder(p.config)
}

func (p *Pool) putDecoder(dec *Decoder) {
	p.mutex.Lock()
	p.decoders = append(p.decoders, dec)
	p.mutex.Unlock()
}
