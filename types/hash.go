package types

import (
	"math"
	"math/big"
	"reflect"
)

// Hash is an insertion-ordered mapping.
//
// Keys are compared by value for strings, symbols and numbers, and by identity for everything else.
// Setting CompareByIdentity before adding entries makes String keys compare by identity too.
type Hash struct {
	Header

	// Default is returned by Fetch for missing keys when HasDefault is set.
	Default    Value
	HasDefault bool

	// DefaultFunc computes defaults for missing keys. Hashes with a DefaultFunc cannot be encoded.
	DefaultFunc func(h *Hash, key Value) Value

	CompareByIdentity bool

	// Keywords marks a hash holding keyword arguments.
	Keywords bool

	keys   []Value
	vals   []Value
	hashed []interface{}
	index  map[interface{}]int
}

// NewHash returns an empty Hash.
func NewHash() *Hash {
	return &Hash{}
}

type strKey string
type bigKey string
type bytesKey string

func (h *Hash) key(k Value) interface{} {
	switch k := k.(type) {
	case nil, bool, Symbol:
		return k
	case int:
		return int64(k)
	case int8:
		return int64(k)
	case int16:
		return int64(k)
	case int32:
		return int64(k)
	case int64:
		return k
	case uint:
		return uintKey(uint64(k))
	case uint8:
		return int64(k)
	case uint16:
		return int64(k)
	case uint32:
		return int64(k)
	case uint64:
		return uintKey(k)
	case uintptr:
		return uintKey(uint64(k))
	case float32:
		return floatKey(float64(k))
	case float64:
		return floatKey(k)
	case *big.Int:
		if k.IsInt64() {
			return k.Int64()
		}
		return bigKey(k.String())
	case string:
		return strKey(k)
	case []byte:
		return bytesKey(k)
	case *String:
		if h.CompareByIdentity {
			return k
		}
		return strKey(k.Bytes)
	}

	if reflect.TypeOf(k).Comparable() {
		return k
	}
	// Uncomparable host values fall back to their address, when they have one.
	rv := reflect.ValueOf(k)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Func:
		return rv.Pointer()
	}
	return reflect.TypeOf(k)
}

func uintKey(n uint64) interface{} {
	if n <= math.MaxInt64 {
		return int64(n)
	}
	return bigKey(new(big.Int).SetUint64(n).String())
}

func floatKey(f float64) interface{} {
	if math.IsNaN(f) {
		// NaN never equals itself; give each occurrence its own slot.
		return new(float64)
	}
	return f
}

// Set adds or replaces the value for k.
func (h *Hash) Set(k, v Value) {
	key := h.key(k)
	if h.index == nil {
		h.index = make(map[interface{}]int)
	}
	if i, ok := h.index[key]; ok {
		h.vals[i] = v
		return
	}
	h.index[key] = len(h.keys)
	h.hashed = append(h.hashed, key)
	h.keys = append(h.keys, k)
	h.vals = append(h.vals, v)
}

// Get returns the value stored for k.
func (h *Hash) Get(k Value) (Value, bool) {
	i, ok := h.index[h.key(k)]
	if !ok {
		return nil, false
	}
	return h.vals[i], true
}

// Fetch returns the value stored for k, or the default if there isn't one.
func (h *Hash) Fetch(k Value) Value {
	if v, ok := h.Get(k); ok {
		return v
	}
	if h.DefaultFunc != nil {
		return h.DefaultFunc(h, k)
	}
	return h.Default
}

// Delete removes k, returning false if it wasn't present.
func (h *Hash) Delete(k Value) bool {
	key := h.key(k)
	i, ok := h.index[key]
	if !ok {
		return false
	}

	delete(h.index, key)
	h.keys = append(h.keys[:i], h.keys[i+1:]...)
	h.vals = append(h.vals[:i], h.vals[i+1:]...)
	h.hashed = append(h.hashed[:i], h.hashed[i+1:]...)
	for j := i; j < len(h.hashed); j++ {
		h.index[h.hashed[j]] = j
	}
	return true
}

// Len returns the number of entries.
func (h *Hash) Len() int {
	return len(h.keys)
}

// Keys returns the keys in insertion order.
func (h *Hash) Keys() []Value {
	return append([]Value(nil), h.keys...)
}

// Range calls f for each entry in insertion order, stopping if f returns false.
func (h *Hash) Range(f func(k, v Value) bool) {
	for i := range h.keys {
		if !f(h.keys[i], h.vals[i]) {
			return
		}
	}
}

// Rehash rebuilds the key index, after CompareByIdentity changes.
// When keys become equal, the later entry wins and keeps the earlier position.
func (h *Hash) Rehash() {
	keys, vals := h.keys, h.vals
	h.keys, h.vals, h.hashed, h.index = nil, nil, nil, nil
	for i := range keys {
		h.Set(keys[i], vals[i])
	}
}
