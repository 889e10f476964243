// Package marshal reads and writes object graphs in the version 4.8 binary marshal format.
//
// Values are built from Go scalars and the types package: nil, bool, integers and *big.Int,
// floats, strings and []byte, types.Symbol, and the reference types *types.String, *types.Array,
// *types.Hash, *types.Regexp, *types.Object, *types.Struct, *types.Class and *types.Module.
// Shared references and cycles are preserved.
//
// Classes, modules and custom encode hooks live in a types.Namespace. The package level functions use
// DefaultNamespace; Encoders and Decoders can be given their own with Config.
//
// encodable implements the format, and can be used directly for finer control over buffering.
//
// encio provides the numeric codec and the error types.
package marshal

import (
	"io"
	"sync"

	"github.com/stewi1014/marshal/encodable"
	"github.com/stewi1014/marshal/types"
)

var (
	poolOnce sync.Once
	pool     *encodable.Pool
)

// defaultPool returns the pool used by the package level functions.
// It is created on first use, so changes to DefaultNamespace made before then are seen.
func defaultPool() *encodable.Pool {
	poolOnce.Do(func() {
		pool = encodable.NewPool((*Config)(nil).codec())
	})
	return pool
}

// Dump returns the encoding of v.
func Dump(v types.Value) ([]byte, error) {
	return DumpDepth(v, -1)
}

// DumpDepth returns the encoding of v, failing with encio.ErrDepthExceeded
// if v nests deeper than limit. A negative limit is unbounded.
func DumpDepth(v types.Value, limit int) ([]byte, error) {
	return defaultPool().Append(nil, v, limit)
}

// DumpTo writes the encoding of v to w.
// Nothing is written if encoding fails.
func DumpTo(w io.Writer, v types.Value, limit int) error {
	return defaultPool().Encode(w, v, limit)
}

// Load decodes the value encoded in buff.
// Trailing bytes after the value are ignored.
func Load(buff []byte) (types.Value, error) {
	return defaultPool().DecodeBytes(buff)
}

// LoadFrom decodes one value from r.
// If r implements io.ByteReader, nothing past the end of the value is read.
func LoadFrom(r io.Reader) (types.Value, error) {
	return defaultPool().Decode(r)
}
