// Package plain converts value graphs to trees of maps, slices and scalars, and back.
//
// Trees are what text formats (YAML, JSON, CBOR) encode natively.
// Reference values reached more than once carry an "$id" key on their first appearance
// and are replaced by {"$ref": id} afterwards, so cycles terminate.
package plain

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/stewi1014/marshal/types"
)

// Keys with special meaning in trees.
const (
	KeyID       = "$id"
	KeyRef      = "$ref"
	KeyClass    = "$class"
	KeyStruct   = "$struct"
	KeyModule   = "$module"
	KeyValue    = "$value"
	KeyExtended = "$extended"
	KeyDefault  = "$default"
	KeyIdentity = "$identity"
	KeyRegexp   = "$regexp"
	KeyOptions  = "$options"
	KeyOpaque   = "$opaque"
	KeyData     = "$data"
	KeyIsClass  = "$is_class"
)

// SymbolPrefix marks strings that are symbols.
const SymbolPrefix = ":"

// ToPlain returns a tree describing v.
// Values ToPlain doesn't know are rendered with fmt.
func ToPlain(v types.Value) interface{} {
	c := &converter{
		counts: make(map[types.Value]int),
		ids:    make(map[types.Value]int),
	}
	c.count(v)
	return c.plain(v)
}

type converter struct {
	counts map[types.Value]int
	ids    map[types.Value]int
}

func isRef(v types.Value) bool {
	if v == nil {
		return false
	}
	switch v.(type) {
	case *types.Class, *types.Module:
		return false
	}
	return reflect.TypeOf(v).Kind() == reflect.Ptr
}

func (c *converter) count(v types.Value) {
	if !isRef(v) {
		return
	}
	c.counts[v]++
	if c.counts[v] > 1 {
		return
	}
	children(v, c.count)
}

// children calls f with every value directly reachable from v.
func children(v types.Value, f func(types.Value)) {
	if h := types.HeaderOf(v); h != nil {
		for _, name := range h.FieldNames() {
			fv, _ := h.Field(name)
			f(fv)
		}
	}

	switch v := v.(type) {
	case *types.Array:
		for _, e := range v.Elems {
			f(e)
		}
	case *types.Hash:
		v.Range(func(k, val types.Value) bool {
			f(k)
			f(val)
			return true
		})
		if v.HasDefault {
			f(v.Default)
		}
	case *types.Struct:
		for _, e := range v.Values {
			f(e)
		}
	case *types.Extended:
		f(v.Value)
	case *types.UserData:
		if v.Opaque != nil {
			f(v.Opaque)
		} else {
			f(v.Data)
		}
	}
}

func (c *converter) plain(v types.Value) interface{} {
	if !isRef(v) || c.counts[v] < 2 {
		return c.render(v)
	}

	if id, ok := c.ids[v]; ok {
		return map[string]interface{}{KeyRef: id}
	}
	id := len(c.ids)
	c.ids[v] = id

	out := c.render(v)
	if m, ok := out.(map[string]interface{}); ok {
		m[KeyID] = id
		return m
	}
	return map[string]interface{}{KeyID: id, KeyValue: out}
}

func (c *converter) render(v types.Value) interface{} {
	switch v := v.(type) {
	case nil, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return v
	case float32:
		return float(float64(v))
	case float64:
		return float(v)
	case *big.Int:
		return v.String()
	case types.Symbol:
		return SymbolPrefix + string(v)
	case string:
		return v
	case []byte:
		return text(v, types.Binary)
	case *types.String:
		return c.headed(&v.Header, text(v.Bytes, v.Encoding))
	case *types.Array:
		list := make([]interface{}, len(v.Elems))
		for i, e := range v.Elems {
			list[i] = c.plain(e)
		}
		return c.headed(&v.Header, list)
	case *types.Hash:
		m := make(map[string]interface{}, v.Len())
		v.Range(func(k, val types.Value) bool {
			m[c.key(k)] = c.plain(val)
			return true
		})
		if v.HasDefault {
			m[KeyDefault] = c.plain(v.Default)
		}
		if v.CompareByIdentity {
			m[KeyIdentity] = true
		}
		return c.headed(&v.Header, m)
	case *types.Regexp:
		return c.headed(&v.Header, map[string]interface{}{
			KeyRegexp:  string(v.Source),
			KeyOptions: options(v.Options),
		})
	case *types.Object:
		m := c.fields(&v.Header, map[string]interface{}{})
		m[KeyClass] = "Object"
		if v.Class != nil {
			m[KeyClass] = v.Class.Name()
		}
		return m
	case *types.Struct:
		if v.Class == nil {
			break
		}
		m := c.fields(&v.Header, map[string]interface{}{})
		m[KeyStruct] = v.Class.Name()
		for i, member := range v.Class.Members {
			if i < len(v.Values) {
				m[string(member)] = c.plain(v.Values[i])
			}
		}
		return m
	case *types.Class:
		return map[string]interface{}{KeyModule: v.Name(), KeyIsClass: true}
	case *types.Module:
		return map[string]interface{}{KeyModule: v.Name()}
	case *types.Extended:
		return map[string]interface{}{
			KeyExtended: moduleNames(v.Modules),
			KeyValue:    c.plain(v.Value),
		}
	case *types.UserData:
		m := map[string]interface{}{KeyClass: v.Class.Name()}
		if v.Opaque != nil {
			m[KeyOpaque] = c.plain(v.Opaque)
		} else {
			m[KeyData] = c.plain(v.Data)
		}
		return m
	}

	if h := types.HeaderOf(v); h != nil && h.Class != nil {
		m := c.fields(h, map[string]interface{}{})
		m[KeyClass] = h.Class.Name()
		return m
	}
	return fmt.Sprint(v)
}

// headed returns base, wrapped in a map when h holds anything worth showing.
// Map bases gain the keys directly.
func (c *converter) headed(h *types.Header, base interface{}) interface{} {
	derived := h.Class != nil && !h.Class.IsBuiltin()
	if !derived && len(h.Extended) == 0 && h.NumFields() == 0 {
		return base
	}

	m, ok := base.(map[string]interface{})
	if !ok {
		m = map[string]interface{}{KeyValue: base}
	}
	if derived {
		m[KeyClass] = h.Class.Name()
	}
	return c.fields(h, m)
}

func (c *converter) fields(h *types.Header, m map[string]interface{}) map[string]interface{} {
	if len(h.Extended) > 0 {
		m[KeyExtended] = moduleNames(h.Extended)
	}
	for _, name := range h.FieldNames() {
		v, _ := h.Field(name)
		m[string(name)] = c.plain(v)
	}
	return m
}

// key renders a hash key as a map key.
func (c *converter) key(k types.Value) string {
	switch p := c.plain(k).(type) {
	case string:
		return p
	case nil:
		return "nil"
	case map[string]interface{}, []interface{}:
		return fmt.Sprintf("%v", p)
	default:
		return fmt.Sprint(p)
	}
}

func float(f float64) interface{} {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return f
}

func text(buff []byte, enc types.Encoding) interface{} {
	if enc.Canonical() == types.Binary && !types.IsASCII(buff) || !utf8.Valid(buff) {
		return append([]byte(nil), buff...)
	}
	return string(buff)
}

func options(o byte) string {
	var sb strings.Builder
	if o&types.RegexpIgnoreCase != 0 {
		sb.WriteByte('i')
	}
	if o&types.RegexpExtended != 0 {
		sb.WriteByte('x')
	}
	if o&types.RegexpMultiline != 0 {
		sb.WriteByte('m')
	}
	return sb.String()
}

func moduleNames(mods []*types.Module) []interface{} {
	names := make([]interface{}, len(mods))
	for i, m := range mods {
		names[i] = m.Name()
	}
	return names
}

// FromPlain builds a value graph from a tree, as produced by a YAML or JSON decoder.
//
// Maps become Hashes with their keys sorted; strings starting with SymbolPrefix become Symbols.
// Maps with a KeyClass or KeyStruct key become instances of the class named, resolved in ns.
// References (KeyRef) are not supported.
func FromPlain(v interface{}, ns *types.Namespace) (types.Value, error) {
	switch v := v.(type) {
	case nil, bool, int, int64, uint64, float64:
		return v, nil
	case float32:
		return float64(v), nil
	case string:
		if len(v) > len(SymbolPrefix) && strings.HasPrefix(v, SymbolPrefix) {
			return types.Symbol(v[len(SymbolPrefix):]), nil
		}
		return types.NewString(v), nil
	case []byte:
		return types.NewBinary(v), nil
	case time.Time:
		return types.NewString(v.Format(time.RFC3339Nano)), nil
	case []interface{}:
		arr := types.NewArray(make([]types.Value, len(v))...)
		for i, e := range v {
			ev, err := FromPlain(e, ns)
			if err != nil {
				return nil, errors.Wrapf(err, "index %v", i)
			}
			arr.Elems[i] = ev
		}
		return arr, nil
	case map[string]interface{}:
		return fromMap(v, ns)
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(v))
		for k, e := range v {
			m[fmt.Sprint(k)] = e
		}
		return fromMap(m, ns)
	default:
		return nil, errors.Errorf("can't convert %T", v)
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func fromMap(m map[string]interface{}, ns *types.Namespace) (types.Value, error) {
	if _, ok := m[KeyRef]; ok {
		return nil, errors.New("references are not supported")
	}

	if name, ok := m[KeyStruct]; ok {
		return fromStruct(fmt.Sprint(name), m, ns)
	}
	if name, ok := m[KeyClass]; ok {
		return fromObject(fmt.Sprint(name), m, ns)
	}

	h := types.NewHash()
	for _, k := range sortedKeys(m) {
		if k == KeyID {
			continue
		}
		val, err := FromPlain(m[k], ns)
		if err != nil {
			return nil, errors.Wrapf(err, "key %q", k)
		}
		key, err := FromPlain(parseKey(k), ns)
		if err != nil {
			return nil, err
		}
		h.Set(key, val)
	}
	return h, nil
}

// parseKey turns integer-looking keys back into integers.
func parseKey(k string) interface{} {
	if n, err := strconv.ParseInt(k, 10, 64); err == nil {
		return n
	}
	return k
}

func resolve(name string, ns *types.Namespace) (*types.Class, error) {
	if ns == nil {
		return nil, errors.Errorf("no namespace to resolve %v", name)
	}
	c, err := ns.ResolveClass(name)
	return c, errors.Wrap(err, "resolving class")
}

func fromObject(name string, m map[string]interface{}, ns *types.Namespace) (types.Value, error) {
	c, err := resolve(name, ns)
	if err != nil {
		return nil, err
	}

	v := c.Allocate()
	fr, ok := v.(types.FieldReflector)
	if !ok {
		return nil, errors.Errorf("%v instances can't hold fields", name)
	}
	for _, k := range sortedKeys(m) {
		if k == KeyClass || k == KeyID {
			continue
		}
		if !strings.HasPrefix(k, "@") {
			return nil, errors.Errorf("%v: field name %q doesn't start with @", name, k)
		}
		fv, err := FromPlain(m[k], ns)
		if err != nil {
			return nil, errors.Wrapf(err, "field %v", k)
		}
		fr.SetField(types.Symbol(k), fv)
	}
	return v, nil
}

func fromStruct(name string, m map[string]interface{}, ns *types.Namespace) (types.Value, error) {
	c, err := resolve(name, ns)
	if err != nil {
		return nil, err
	}
	if c.Kind() != types.KindStruct {
		return nil, errors.Errorf("%v is not a struct", name)
	}

	s := types.NewStruct(c)
	for _, k := range sortedKeys(m) {
		if k == KeyStruct || k == KeyID {
			continue
		}
		mv, err := FromPlain(m[k], ns)
		if err != nil {
			return nil, errors.Wrapf(err, "member %v", k)
		}
		if strings.HasPrefix(k, "@") {
			s.SetField(types.Symbol(k), mv)
			continue
		}
		if !s.Set(types.Symbol(k), mv) {
			return nil, errors.Errorf("%v has no member %v", name, k)
		}
	}
	return s, nil
}
