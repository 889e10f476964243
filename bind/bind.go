// Package bind makes Go structs instances of classes, by reflection.
//
// A bound struct is encoded with a StructuredHook whose substitute is a Hash from member symbols to field values.
// Decoding is loose: members the struct doesn't have are ignored, and fields the stream doesn't mention keep their zero value.
//
// Exported fields are members, named by their Go name with the first letter lowercased.
// The `marshal` struct tag renames a field, or skips it with "-".
package bind

import (
	"fmt"
	"math/big"
	"reflect"
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/stewi1014/marshal/encio"
	"github.com/stewi1014/marshal/types"
)

// StructTag is the struct tag key read for member names.
const StructTag = "marshal"

// Struct binds the struct type sample points to to class c in ns.
// Values of sample's type encode as instances of c, and c allocates new ones on decode.
func Struct(ns *types.Namespace, c *types.Class, sample interface{}) error {
	ty := reflect.TypeOf(sample)
	if ty == nil || ty.Kind() != reflect.Ptr || ty.Elem().Kind() != reflect.Struct {
		return encio.Errorf(encio.ErrWrongKind, "%T is not a pointer to a struct", sample)
	}
	if c.Kind() != types.KindObject {
		return encio.Errorf(encio.ErrWrongKind, "%v instances can't be structs", c)
	}

	b := &binding{
		ty:      ty.Elem(),
		members: members(ty.Elem()),
		ns:      ns,
	}

	if err := ns.Bind(sample, c); err != nil {
		return err
	}
	err := ns.SetHook(c, types.StructuredHook{
		Dump: b.dump,
		Load: b.load,
	})
	if err != nil {
		return err
	}

	c.New = func(*types.Class) types.Value {
		return reflect.New(b.ty).Interface()
	}
	return nil
}

type member struct {
	name  types.Symbol
	index int
}

// members lists the fields of ty to encode, in declaration order.
func members(ty reflect.Type) []member {
	list := make([]member, 0, ty.NumField())
	for i := 0; i < ty.NumField(); i++ {
		field := ty.Field(i)
		if field.PkgPath != "" {
			// unexported
			continue
		}

		name := lowerFirst(field.Name)
		if tag, ok := field.Tag.Lookup(StructTag); ok {
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}
		list = append(list, member{name: types.Symbol(name), index: i})
	}
	return list
}

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[n:]
}

type binding struct {
	ty      reflect.Type
	members []member
	ns      *types.Namespace
}

func (b *binding) dump(v types.Value) (types.Value, error) {
	rv := reflect.ValueOf(v)
	if rv.Type() != reflect.PtrTo(b.ty) || rv.IsNil() {
		return nil, encio.Errorf(encio.ErrWrongKind, "%T is not a *%v", v, b.ty)
	}
	rv = rv.Elem()

	h := types.NewHash()
	for _, m := range b.members {
		fv, err := b.toValue(rv.Field(m.index))
		if err != nil {
			return nil, encio.Errorf(encio.ErrNotSerializable, "%v.%v: %v", b.ty, m.name, err)
		}
		h.Set(m.name, fv)
	}
	return h, nil
}

func (b *binding) load(v, data types.Value) error {
	h, ok := data.(*types.Hash)
	if !ok {
		return encio.Errorf(encio.ErrWrongKind, "%v wants a hash, got %T", b.ty, data)
	}
	rv := reflect.ValueOf(v).Elem()

	for _, m := range b.members {
		fv, ok := h.Get(m.name)
		if !ok {
			if fv, ok = h.Get(string(m.name)); !ok {
				continue
			}
		}
		if err := b.assign(rv.Field(m.index), fv); err != nil {
			return encio.Errorf(encio.ErrWrongKind, "%v.%v: %v", b.ty, m.name, err)
		}
	}
	return nil
}

// toValue returns the encodable form of rv.
// Pointers and interfaces are passed through for the encoder to deal with.
func (b *binding) toValue(rv reflect.Value) (types.Value, error) {
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return rv.Interface(), nil
	case reflect.Slice:
		if rv.IsNil() {
			return nil, nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return append([]byte(nil), rv.Bytes()...), nil
		}
		fallthrough
	case reflect.Array:
		arr := types.NewArray(make([]types.Value, rv.Len())...)
		for i := range arr.Elems {
			ev, err := b.toValue(rv.Index(i))
			if err != nil {
				return nil, err
			}
			arr.Elems[i] = ev
		}
		return arr, nil
	case reflect.Map:
		if rv.IsNil() {
			return nil, nil
		}
		return b.mapValue(rv)
	case reflect.Struct:
		ptr := reflect.New(rv.Type())
		ptr.Elem().Set(rv)
		if _, ok := b.ns.ClassOf(ptr.Interface()); !ok {
			return nil, fmt.Errorf("struct %v isn't bound to a class", rv.Type())
		}
		return ptr.Interface(), nil
	}
	return nil, fmt.Errorf("can't encode %v", rv.Type())
}

// mapValue returns a Hash holding the entries of rv, ordered by key.
func (b *binding) mapValue(rv reflect.Value) (types.Value, error) {
	keys := rv.MapKeys()
	sortValues(keys)

	h := types.NewHash()
	for _, k := range keys {
		kv, err := b.toValue(k)
		if err != nil {
			return nil, err
		}
		ev, err := b.toValue(rv.MapIndex(k))
		if err != nil {
			return nil, err
		}
		h.Set(kv, ev)
	}
	return h, nil
}

// assign sets dst from the decoded value v.
func (b *binding) assign(dst reflect.Value, v types.Value) error {
	if v == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	src := reflect.ValueOf(v)
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}

	switch dst.Kind() {
	case reflect.Bool:
		if x, ok := v.(bool); ok {
			dst.SetBool(x)
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n, ok := integer(v); ok {
			if dst.OverflowInt(n) {
				return fmt.Errorf("%v overflows %v", n, dst.Type())
			}
			dst.SetInt(n)
			return nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if n, ok := integer(v); ok {
			if n < 0 || dst.OverflowUint(uint64(n)) {
				return fmt.Errorf("%v overflows %v", n, dst.Type())
			}
			dst.SetUint(uint64(n))
			return nil
		}
	case reflect.Float32, reflect.Float64:
		switch x := v.(type) {
		case float64:
			dst.SetFloat(x)
			return nil
		case float32:
			dst.SetFloat(float64(x))
			return nil
		}
		if n, ok := integer(v); ok {
			dst.SetFloat(float64(n))
			return nil
		}
	case reflect.String:
		switch x := v.(type) {
		case *types.String:
			dst.SetString(string(x.Bytes))
			return nil
		case types.Symbol:
			dst.SetString(string(x))
			return nil
		}
	case reflect.Slice:
		if s, ok := v.(*types.String); ok && dst.Type().Elem().Kind() == reflect.Uint8 {
			dst.SetBytes(append([]byte(nil), s.Bytes...))
			return nil
		}
		if arr, ok := v.(*types.Array); ok {
			dst.Set(reflect.MakeSlice(dst.Type(), len(arr.Elems), len(arr.Elems)))
			return b.elems(dst, arr.Elems)
		}
	case reflect.Array:
		if arr, ok := v.(*types.Array); ok {
			if len(arr.Elems) != dst.Len() {
				return fmt.Errorf("%v elements don't fit %v", len(arr.Elems), dst.Type())
			}
			return b.elems(dst, arr.Elems)
		}
	case reflect.Map:
		if h, ok := v.(*types.Hash); ok {
			return b.assignMap(dst, h)
		}
	case reflect.Struct:
		if src.Type() == reflect.PtrTo(dst.Type()) && !src.IsNil() {
			dst.Set(src.Elem())
			return nil
		}
	case reflect.Ptr:
		if dst.Type().Elem().Kind() != reflect.Struct {
			ptr := reflect.New(dst.Type().Elem())
			if err := b.assign(ptr.Elem(), v); err != nil {
				return err
			}
			dst.Set(ptr)
			return nil
		}
	}

	return fmt.Errorf("can't load %T into %v", v, dst.Type())
}

func (b *binding) elems(dst reflect.Value, elems []types.Value) error {
	for i, e := range elems {
		if err := b.assign(dst.Index(i), e); err != nil {
			return fmt.Errorf("index %v: %w", i, err)
		}
	}
	return nil
}

func (b *binding) assignMap(dst reflect.Value, h *types.Hash) error {
	m := reflect.MakeMapWithSize(dst.Type(), h.Len())
	key := reflect.New(dst.Type().Key()).Elem()
	val := reflect.New(dst.Type().Elem()).Elem()

	var err error
	h.Range(func(k, v types.Value) bool {
		key.Set(reflect.Zero(key.Type()))
		val.Set(reflect.Zero(val.Type()))
		if err = b.assign(key, k); err != nil {
			return false
		}
		if err = b.assign(val, v); err != nil {
			err = fmt.Errorf("key %v: %w", key, err)
			return false
		}
		m.SetMapIndex(key, val)
		return true
	})
	if err != nil {
		return err
	}

	dst.Set(m)
	return nil
}

// integer returns v as an int64 if it is an integer that fits.
func integer(v types.Value) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int64:
		return x, true
	case int32:
		return int64(x), true
	case uint64:
		return int64(x), x <= 1<<63-1
	case *big.Int:
		return x.Int64(), x.IsInt64()
	}
	return 0, false
}

type byText struct {
	vals []reflect.Value
	text []string
}

func (a byText) Len() int           { return len(a.vals) }
func (a byText) Less(i, j int) bool { return a.text[i] < a.text[j] }
func (a byText) Swap(i, j int) {
	a.vals[i], a.vals[j] = a.vals[j], a.vals[i]
	a.text[i], a.text[j] = a.text[j], a.text[i]
}

// sortValues orders map keys by their formatted text, so encoding a map is deterministic.
func sortValues(vals []reflect.Value) {
	text := make([]string, len(vals))
	for i, v := range vals {
		text[i] = fmt.Sprint(v.Interface())
	}
	sort.Sort(byText{vals: vals, text: text})
}
