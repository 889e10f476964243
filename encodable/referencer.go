package encodable

import (
	"reflect"

	"github.com/stewi1014/marshal/encio"
	"github.com/stewi1014/marshal/types"
)

// encodeLinks assigns link indexes while encoding.
//
// Every object written to the stream takes the next index, in the order the decoder will register them,
// including values without identity (floats, large integers, Go strings) which can never be linked to.
// Symbols are indexed separately.
type encodeLinks struct {
	objects map[interface{}]int
	count   int
	symbols map[types.Symbol]int
}

func (l *encodeLinks) reset() {
	if l.objects == nil {
		l.objects = make(map[interface{}]int)
		l.symbols = make(map[types.Symbol]int)
	}
	clear(l.objects)
	clear(l.symbols)
	l.count = 0
}

// identity returns the key v is linked by, or false if v has no identity.
func identity(v types.Value) (interface{}, bool) {
	if v == nil {
		return nil, false
	}
	if reflect.TypeOf(v).Kind() == reflect.Ptr {
		return v, true
	}
	return nil, false
}

// Has returns the index of a previously added value.
func (l *encodeLinks) Has(v types.Value) (int, bool) {
	key, ok := identity(v)
	if !ok {
		return 0, false
	}
	i, ok := l.objects[key]
	return i, ok
}

// Add gives v the next index.
func (l *encodeLinks) Add(v types.Value) {
	if key, ok := identity(v); ok {
		l.objects[key] = l.count
	}
	l.count++
}

// Skip takes an index for a value that can't be linked to.
func (l *encodeLinks) Skip() {
	l.count++
}

// Symbol returns the index of sym if it has been written, and adds it otherwise.
func (l *encodeLinks) Symbol(sym types.Symbol) (int, bool) {
	if i, ok := l.symbols[sym]; ok {
		return i, true
	}
	l.symbols[sym] = len(l.symbols)
	return 0, false
}

// decodeLinks holds decoded values for back-references.
type decodeLinks struct {
	objects []types.Value
	symbols []types.Symbol
}

func (l *decodeLinks) reset() {
	clear(l.objects)
	l.objects = l.objects[:0]
	l.symbols = l.symbols[:0]
}

// Add registers v, returning its index.
func (l *decodeLinks) Add(v types.Value) int {
	l.objects = append(l.objects, v)
	return len(l.objects) - 1
}

// Set replaces the value at index i.
func (l *decodeLinks) Set(i int, v types.Value) {
	l.objects[i] = v
}

// Get returns the object at index i.
func (l *decodeLinks) Get(i int) (types.Value, error) {
	if i < 0 || i >= len(l.objects) {
		return nil, encio.Errorf(
			encio.ErrBadBackRef,
			"object %v is referenced but we only have %v objects",
			i, len(l.objects),
		)
	}
	return l.objects[i], nil
}

// AddSymbol registers sym.
func (l *decodeLinks) AddSymbol(sym types.Symbol) {
	l.symbols = append(l.symbols, sym)
}

// GetSymbol returns the symbol at index i.
func (l *decodeLinks) GetSymbol(i int) (types.Symbol, error) {
	if i < 0 || i >= len(l.symbols) {
		return "", encio.Errorf(
			encio.ErrBadBackRef,
			"symbol %v is referenced but we only have %v symbols",
			i, len(l.symbols),
		)
	}
	return l.symbols[i], nil
}
