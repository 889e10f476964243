package types

import (
	"bytes"
	"math"
	"math/big"
	"reflect"
)

// Equal reports whether a and b are structurally equal object graphs.
// Integers are equal across Go kinds and *big.Int, Go strings equal UTF-8 Strings with the same bytes,
// NaN equals NaN, and classes and modules are equal when they have the same name.
// Cycles are followed once.
func Equal(a, b Value) bool {
	e := equaler{seen: make(map[[2]interface{}]bool)}
	return e.equal(a, b)
}

type equaler struct {
	seen map[[2]interface{}]bool
}

func (e *equaler) visit(a, b interface{}) bool {
	key := [2]interface{}{a, b}
	if e.seen[key] {
		return true
	}
	e.seen[key] = true
	return false
}

func (e *equaler) equal(a, b Value) bool {
	if x, ok := toBig(a); ok {
		y, ok := toBig(b)
		return ok && x.Cmp(y) == 0
	}

	if x, ok := toFloat(a); ok {
		y, ok := toFloat(b)
		if !ok {
			return false
		}
		if math.IsNaN(x) || math.IsNaN(y) {
			return math.IsNaN(x) && math.IsNaN(y)
		}
		return x == y && math.Signbit(x) == math.Signbit(y)
	}

	if x, ok := toString(a); ok {
		y, ok := toString(b)
		if !ok || x == y {
			return ok
		}
		if e.visit(x, y) {
			return true
		}
		return bytes.Equal(x.Bytes, y.Bytes) &&
			x.Encoding.Canonical() == y.Encoding.Canonical() &&
			e.header(&x.Header, &y.Header)
	}

	switch x := a.(type) {
	case nil, bool, Symbol:
		return a == b

	case *Array:
		y, ok := b.(*Array)
		if !ok || x == y {
			return ok
		}
		if e.visit(x, y) {
			return true
		}
		if len(x.Elems) != len(y.Elems) || !e.header(&x.Header, &y.Header) {
			return false
		}
		for i := range x.Elems {
			if !e.equal(x.Elems[i], y.Elems[i]) {
				return false
			}
		}
		return true

	case *Hash:
		y, ok := b.(*Hash)
		if !ok || x == y {
			return ok
		}
		if e.visit(x, y) {
			return true
		}
		if x.Len() != y.Len() ||
			x.HasDefault != y.HasDefault ||
			x.CompareByIdentity != y.CompareByIdentity ||
			x.Keywords != y.Keywords ||
			(x.DefaultFunc == nil) != (y.DefaultFunc == nil) ||
			!e.equal(x.Default, y.Default) ||
			!e.header(&x.Header, &y.Header) {
			return false
		}
		for i := range x.keys {
			if !e.equal(x.keys[i], y.keys[i]) || !e.equal(x.vals[i], y.vals[i]) {
				return false
			}
		}
		return true

	case *Regexp:
		y, ok := b.(*Regexp)
		if !ok || x == y {
			return ok
		}
		return bytes.Equal(x.Source, y.Source) &&
			x.Options == y.Options &&
			x.SourceEncoding() == y.SourceEncoding() &&
			e.header(&x.Header, &y.Header)

	case *Object:
		y, ok := b.(*Object)
		if !ok || x == y {
			return ok
		}
		if e.visit(x, y) {
			return true
		}
		return e.header(&x.Header, &y.Header)

	case *Struct:
		y, ok := b.(*Struct)
		if !ok || x == y {
			return ok
		}
		if e.visit(x, y) {
			return true
		}
		if len(x.Values) != len(y.Values) || !e.header(&x.Header, &y.Header) {
			return false
		}
		for i := range x.Values {
			if !e.equal(x.Values[i], y.Values[i]) {
				return false
			}
		}
		return true

	case *Class:
		y, ok := b.(*Class)
		return ok && (x == y || (x.name != "" && x.name == y.name))

	case *Module:
		y, ok := b.(*Module)
		return ok && (x == y || (x.name != "" && x.name == y.name))

	case *Extended:
		y, ok := b.(*Extended)
		if !ok || x == y {
			return ok
		}
		return e.modules(x.Modules, y.Modules) && e.equal(x.Value, y.Value)

	case *UserData:
		y, ok := b.(*UserData)
		if !ok || x == y {
			return ok
		}
		if e.visit(x, y) {
			return true
		}
		return e.equal(x.Class, y.Class) &&
			(x.Opaque == nil) == (y.Opaque == nil) &&
			(x.Opaque == nil || e.equal(x.Opaque, y.Opaque)) &&
			e.equal(x.Data, y.Data)
	}

	return reflect.DeepEqual(a, b)
}

func (e *equaler) header(x, y *Header) bool {
	if className(x.Class) != className(y.Class) || x.Singleton != y.Singleton {
		return false
	}
	if !e.modules(x.Extended, y.Extended) {
		return false
	}

	if x.NumFields() != y.NumFields() {
		return false
	}
	for _, f := range x.list {
		v, ok := y.Field(f.Name)
		if !ok || !e.equal(f.Value, v) {
			return false
		}
	}
	return true
}

func (e *equaler) modules(x, y []*Module) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if !e.equal(x[i], y[i]) {
			return false
		}
	}
	return true
}

// className is "" for the built-in class of a kind.
func className(c *Class) string {
	if c == nil || c.builtin {
		return ""
	}
	return c.name
}

func toBig(v Value) (*big.Int, bool) {
	switch v := v.(type) {
	case int:
		return big.NewInt(int64(v)), true
	case int8:
		return big.NewInt(int64(v)), true
	case int16:
		return big.NewInt(int64(v)), true
	case int32:
		return big.NewInt(int64(v)), true
	case int64:
		return big.NewInt(v), true
	case uint:
		return new(big.Int).SetUint64(uint64(v)), true
	case uint8:
		return big.NewInt(int64(v)), true
	case uint16:
		return big.NewInt(int64(v)), true
	case uint32:
		return big.NewInt(int64(v)), true
	case uint64:
		return new(big.Int).SetUint64(v), true
	case uintptr:
		return new(big.Int).SetUint64(uint64(v)), true
	case *big.Int:
		return v, v != nil
	}
	return nil, false
}

func toFloat(v Value) (float64, bool) {
	switch v := v.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func toString(v Value) (*String, bool) {
	switch v := v.(type) {
	case string:
		return NewString(v), true
	case []byte:
		return NewBinary(v), true
	case *String:
		return v, v != nil
	}
	return nil, false
}
