// Package encodable implements the binary object-graph format, version 4.8.
//
// Encoder and Decoder hold the per-stream state: the link tables for shared references and symbols,
// and a depth limit. Neither is safe for concurrent use; Pool hands them out to concurrent callers.
//
// Values are represented by the types package. Go scalars (bool, ints, floats, string, []byte, *big.Int)
// encode directly. Anything else needs a class, either from embedding a types.Header, from
// types.Instance, or from a binding in the Namespace.
package encodable

// Some notes on the stream layout to keep in mind while working on this package.
//
// Wrapped values are written in the order ivar, extended modules, user class, payload, and the ivar fields follow the payload.
// Objects take link indexes in the order their tags are read; the decoder registers a value before reading its children
// so that cycles resolve. Opaque custom values are the exception, and register after their payload.
//
// Symbols are indexed in their own table, before any fields they carry are read.

import (
	"io"

	"github.com/stewi1014/marshal/types"
)

// ValueEncoder writes values to streams.
type ValueEncoder interface {
	Encode(w io.Writer, v types.Value, limit int) error
}

// ValueDecoder reads values from streams.
type ValueDecoder interface {
	Decode(r io.Reader) (types.Value, error)
}

var (
	_ ValueEncoder = (*Encoder)(nil)
	_ ValueDecoder = (*Decoder)(nil)
	_ ValueEncoder = (*Pool)(nil)
	_ ValueDecoder = (*Pool)(nil)
)
