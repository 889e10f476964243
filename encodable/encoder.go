package encodable

import (
	"io"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"unicode/utf8"

	"github.com/stewi1014/marshal/encio"
	"github.com/stewi1014/marshal/types"
)

// NewEncoder returns a new Encoder using config.
// A nil config uses the defaults.
func NewEncoder(config *Config) *Encoder {
	config = config.copyAndFill()
	return &Encoder{
		state: encodeState{
			config:    config,
			ns:        config.Namespace,
			encodings: make(map[types.Encoding]*types.String),
		},
	}
}

// Encoder writes values to streams.
// It is not safe for concurrent use; see Pool.
type Encoder struct {
	state encodeState
}

// Encode writes the version header followed by v to w.
//
// limit bounds the nesting depth; a negative limit is unbounded.
// The stream is built in memory, and nothing is written to w if encoding fails.
func (e *Encoder) Encode(w io.Writer, v types.Value, limit int) error {
	s := &e.state
	if err := s.run(v, limit); err != nil {
		return err
	}
	return encio.Write(s.buff.Bytes(), w)
}

// Append appends the encoding of v to buff.
func (e *Encoder) Append(buff []byte, v types.Value, limit int) ([]byte, error) {
	s := &e.state
	if err := s.run(v, limit); err != nil {
		return buff, err
	}
	return append(buff, s.buff.Bytes()...), nil
}

func (e *Encoder) String() string {
	return "Encoder(" + e.state.config.String() + ")"
}

type encodeState struct {
	config    *Config
	ns        *types.Namespace
	buff      encio.Buffer
	links     encodeLinks
	encodings map[types.Encoding]*types.String
}

func (s *encodeState) run(v types.Value, limit int) error {
	s.buff.Reset()
	s.links.reset()
	clear(s.encodings)

	s.buff.WriteByte(MajorVersion)
	s.buff.WriteByte(MinorVersion)
	return s.encode(v, limit)
}

// smallInt returns v as an int64 if it is an integer that fits.
func smallInt(v types.Value) (n int64, isInt, fits bool) {
	switch v := v.(type) {
	case int:
		return int64(v), true, true
	case int8:
		return int64(v), true, true
	case int16:
		return int64(v), true, true
	case int32:
		return int64(v), true, true
	case int64:
		return v, true, true
	case uint:
		return int64(v), true, uint64(v) <= math.MaxInt64
	case uint8:
		return int64(v), true, true
	case uint16:
		return int64(v), true, true
	case uint32:
		return int64(v), true, true
	case uint64:
		return int64(v), true, v <= math.MaxInt64
	case uintptr:
		return int64(v), true, uint64(v) <= math.MaxInt64
	case *big.Int:
		if v == nil {
			return 0, false, false
		}
		if v.IsInt64() {
			return v.Int64(), true, true
		}
		return 0, true, false
	}
	return 0, false, false
}

func bigOf(v types.Value, n int64, fits bool) *big.Int {
	switch v := v.(type) {
	case *big.Int:
		return v
	case uint:
		return new(big.Int).SetUint64(uint64(v))
	case uint64:
		return new(big.Int).SetUint64(v)
	case uintptr:
		return new(big.Int).SetUint64(uint64(v))
	}
	return big.NewInt(n)
}

func isNilPointer(v types.Value) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}

func (s *encodeState) encode(v types.Value, limit int) error {
	switch v := v.(type) {
	case nil:
		return s.buff.WriteByte(tagNil)
	case bool:
		if v {
			return s.buff.WriteByte(tagTrue)
		}
		return s.buff.WriteByte(tagFalse)
	case *types.Extended:
		if v == nil {
			return s.buff.WriteByte(tagNil)
		}
		start := s.buff.Len()
		if err := s.extendedModules(v.Modules); err != nil {
			return err
		}
		end := s.buff.Len()
		if err := s.encode(v.Value, limit); err != nil {
			return err
		}
		// the ivar envelope goes outside the module list.
		if buff := s.buff.Bytes(); end > start && len(buff) > end && buff[end] == tagIvar {
			copy(buff[start+1:end+1], buff[start:end])
			buff[start] = tagIvar
		}
		return nil
	}

	n, isInt, fits := smallInt(v)
	if isInt && fits && encio.IsFixnum(n) {
		s.buff.WriteByte(tagFixnum)
		s.buff.WriteInt(int(n))
		return nil
	}

	if isNilPointer(v) {
		return s.buff.WriteByte(tagNil)
	}

	if limit == 0 {
		return encio.Errorf(encio.ErrDepthExceeded, "exceed depth limit at %T", v)
	}
	if limit > 0 {
		limit--
	}

	if isInt {
		b := bigOf(v, n, fits)
		if i, ok := s.links.Has(v); ok {
			return s.link(i)
		}
		s.links.Add(v)
		s.buff.WriteByte(tagBignum)
		s.buff.WriteBig(b)
		return nil
	}

	switch v := v.(type) {
	case types.Symbol:
		return s.symbol(v)
	case float64:
		s.links.Skip()
		s.buff.WriteByte(tagFloat)
		s.buff.WriteFloat(v)
		return nil
	case float32:
		// shortest text for the float32, so 0.1 stays 0.1.
		f, _ := strconv.ParseFloat(strconv.FormatFloat(float64(v), 'g', -1, 32), 64)
		s.links.Skip()
		s.buff.WriteByte(tagFloat)
		s.buff.WriteFloat(f)
		return nil
	case string:
		s.links.Skip()
		return s.str(nil, []byte(v), types.UTF8, limit)
	case []byte:
		s.links.Skip()
		return s.str(nil, v, types.Binary, limit)
	}

	if i, ok := s.links.Has(v); ok {
		return s.link(i)
	}

	if h := types.HeaderOf(v); h != nil && h.Singleton {
		return encio.NewError(encio.ErrNotSerializable, "singleton can't be dumped", 0)
	}

	if ud, ok := v.(*types.UserData); ok {
		if ud.Class == nil {
			return encio.NewError(encio.ErrNotSerializable, "user data without a class", 0)
		}
		if ud.Opaque != nil {
			return s.opaque(ud, ud.Class, ud.Opaque, limit)
		}
		return s.structured(ud, ud.Class, func() (types.Value, error) { return ud.Data, nil }, limit)
	}

	c, ok := s.ns.ClassOf(v)
	if !ok {
		return encio.Errorf(encio.ErrNotSerializable, "no _dump_data is defined for %T", v)
	}
	if c.IsSingleton() {
		return encio.NewError(encio.ErrNotSerializable, "singleton can't be dumped", 0)
	}

	hook := hookOf(s.ns, c)
	if hook != nil && restricted(s.config, s.ns) {
		return encio.Errorf(encio.ErrSecurity, "dump hook for %v", c)
	}

	switch hook := hook.(type) {
	case types.OpaqueHook:
		data, err := s.dumpOpaque(c, hook, v, limit)
		if err != nil {
			return err
		}
		return s.opaque(v, c, data, limit)
	case types.StructuredHook:
		return s.structured(v, c, func() (types.Value, error) { return s.dumpStructured(c, hook, v) }, limit)
	}

	switch v := v.(type) {
	case *types.String:
		s.links.Add(v)
		return s.str(&v.Header, v.Bytes, v.Encoding.Canonical(), limit)
	case *types.Regexp:
		return s.regexp(v, limit)
	case *types.Array:
		return s.array(v, limit)
	case *types.Hash:
		return s.hash(v, limit)
	case *types.Struct:
		return s.structure(v, limit)
	case *types.Class:
		name, err := s.ns.Referable(v)
		if err != nil {
			return err
		}
		s.links.Add(v)
		s.buff.WriteByte(tagClass)
		s.buff.WriteString(name)
		return nil
	case *types.Module:
		name, err := s.ns.Referable(v)
		if err != nil {
			return err
		}
		s.links.Add(v)
		s.buff.WriteByte(tagModule)
		s.buff.WriteString(name)
		return nil
	}

	if fr, ok := v.(types.FieldReflector); ok {
		return s.object(v, c, fr, limit)
	}
	return encio.Errorf(encio.ErrNotSerializable, "instance of %v (%T) needs a dump hook", c, v)
}

// checkLength fails for lengths and counts the small integer format can't hold.
func checkLength(what string, n int64) error {
	if n > encio.IntMax {
		return encio.Errorf(encio.ErrNotSerializable, "%v of length %v is too long", what, n)
	}
	return nil
}

func (s *encodeState) link(i int) error {
	s.buff.WriteByte(tagLink)
	s.buff.WriteInt(i)
	return nil
}

// symbol writes sym, or a link to it if it has been written.
func (s *encodeState) symbol(sym types.Symbol) error {
	if i, ok := s.links.Symbol(sym); ok {
		s.buff.WriteByte(tagSymlink)
		s.buff.WriteInt(i)
		return nil
	}

	b := []byte(sym)
	if err := checkLength("symbol", int64(len(b))); err != nil {
		return err
	}
	if types.IsASCII(b) || !utf8.Valid(b) {
		s.buff.WriteByte(tagSymbol)
		s.buff.WriteBytes(b)
		return nil
	}

	s.buff.WriteByte(tagIvar)
	s.buff.WriteByte(tagSymbol)
	s.buff.WriteBytes(b)
	s.buff.WriteInt(1)
	if err := s.symbol(fieldEncodingShort); err != nil {
		return err
	}
	return s.buff.WriteByte(tagTrue)
}

// fields returns the fields in h, less the reserved names.
func fields(h *types.Header, reserved ...types.Symbol) []types.Field {
	if h == nil || h.NumFields() == 0 {
		return nil
	}

	names := h.FieldNames()
	list := make([]types.Field, 0, len(names))
outer:
	for _, name := range names {
		for _, r := range reserved {
			if name == r {
				continue outer
			}
		}
		v, _ := h.Field(name)
		list = append(list, types.Field{Name: name, Value: v})
	}
	return list
}

// ivars writes the field count and fields following a value wrapped in an ivar tag.
func (s *encodeState) ivars(enc types.Encoding, keywords bool, list []types.Field, limit int) error {
	n := len(list)
	if enc != types.Binary {
		n++
	}
	if keywords {
		n++
	}
	s.buff.WriteInt(n)

	switch enc {
	case types.Binary:
	case types.UTF8:
		s.symbol(fieldEncodingShort)
		s.buff.WriteByte(tagTrue)
	case types.USASCII:
		s.symbol(fieldEncodingShort)
		s.buff.WriteByte(tagFalse)
	default:
		s.symbol(fieldEncoding)
		name, ok := s.encodings[enc]
		if !ok {
			name = types.NewBinary([]byte(enc))
			s.encodings[enc] = name
		}
		if err := s.encode(name, -1); err != nil {
			return err
		}
	}

	if keywords {
		s.symbol(fieldKeywords)
		s.buff.WriteByte(tagTrue)
	}

	for _, f := range list {
		if err := s.symbol(f.Name); err != nil {
			return err
		}
		if err := s.encode(f.Value, limit); err != nil {
			return err
		}
	}
	return nil
}

func (s *encodeState) extendedModules(mods []*types.Module) error {
	for _, m := range mods {
		name, err := s.ns.Referable(m)
		if err != nil {
			return err
		}
		s.buff.WriteByte(tagExtended)
		if err := s.symbol(types.Symbol(name)); err != nil {
			return err
		}
	}
	return nil
}

func (s *encodeState) extended(h *types.Header) error {
	if h == nil {
		return nil
	}
	return s.extendedModules(h.Extended)
}

// userClass writes the user class envelope for subclasses of builtin.
func (s *encodeState) userClass(c, builtin *types.Class) error {
	if c == nil || c == builtin {
		return nil
	}
	if !c.Inherits(builtin) {
		return encio.Errorf(encio.ErrWrongKind, "%v is not a subclass of %v", c, builtin)
	}

	name, err := s.ns.Referable(c)
	if err != nil {
		return err
	}
	s.buff.WriteByte(tagUserClass)
	return s.symbol(types.Symbol(name))
}

func (s *encodeState) str(h *types.Header, b []byte, enc types.Encoding, limit int) error {
	if err := checkLength("string", int64(len(b))); err != nil {
		return err
	}
	list := fields(h, fieldEncodingShort, fieldEncoding)
	ivar := len(list) > 0 || enc != types.Binary
	if ivar {
		s.buff.WriteByte(tagIvar)
	}

	if h != nil {
		if err := s.extended(h); err != nil {
			return err
		}
		if err := s.userClass(h.Class, s.ns.StringClass); err != nil {
			return err
		}
	}

	s.buff.WriteByte(tagString)
	s.buff.WriteBytes(b)

	if ivar {
		return s.ivars(enc, false, list, limit)
	}
	return nil
}

func (s *encodeState) regexp(v *types.Regexp, limit int) error {
	if err := checkLength("regexp", int64(len(v.Source))); err != nil {
		return err
	}
	s.links.Add(v)

	enc := v.SourceEncoding()
	list := fields(&v.Header, fieldEncodingShort, fieldEncoding)
	ivar := len(list) > 0 || enc != types.Binary
	if ivar {
		s.buff.WriteByte(tagIvar)
	}
	if err := s.extended(&v.Header); err != nil {
		return err
	}
	if err := s.userClass(v.Class, s.ns.Regexp); err != nil {
		return err
	}

	s.buff.WriteByte(tagRegexp)
	s.buff.WriteBytes(v.Source)
	s.buff.WriteByte(v.Options)

	if ivar {
		return s.ivars(enc, false, list, limit)
	}
	return nil
}

func (s *encodeState) array(v *types.Array, limit int) error {
	if err := checkLength("array", int64(len(v.Elems))); err != nil {
		return err
	}
	s.links.Add(v)

	list := fields(&v.Header)
	if len(list) > 0 {
		s.buff.WriteByte(tagIvar)
	}
	if err := s.extended(&v.Header); err != nil {
		return err
	}
	if err := s.userClass(v.Class, s.ns.Array); err != nil {
		return err
	}

	s.buff.WriteByte(tagArray)
	s.buff.WriteInt(len(v.Elems))
	for _, elem := range v.Elems {
		if err := s.encode(elem, limit); err != nil {
			return err
		}
	}

	if len(list) > 0 {
		return s.ivars(types.Binary, false, list, limit)
	}
	return nil
}

func (s *encodeState) hash(v *types.Hash, limit int) error {
	if v.DefaultFunc != nil {
		return encio.NewError(encio.ErrNotSerializable, "can't dump hash with default proc", 0)
	}
	if err := checkLength("hash", int64(v.Len())); err != nil {
		return err
	}
	s.links.Add(v)

	list := fields(&v.Header, fieldKeywords)
	ivar := len(list) > 0 || v.Keywords
	if ivar {
		s.buff.WriteByte(tagIvar)
	}
	if err := s.extended(&v.Header); err != nil {
		return err
	}
	if err := s.userClass(v.Class, s.ns.Hash); err != nil {
		return err
	}
	if v.CompareByIdentity {
		s.buff.WriteByte(tagUserClass)
		s.symbol(types.Symbol(s.ns.Hash.Name()))
	}

	if v.HasDefault {
		s.buff.WriteByte(tagHashDef)
	} else {
		s.buff.WriteByte(tagHash)
	}

	s.buff.WriteInt(v.Len())
	var err error
	v.Range(func(key, val types.Value) bool {
		if err = s.encode(key, limit); err != nil {
			return false
		}
		err = s.encode(val, limit)
		return err == nil
	})
	if err != nil {
		return err
	}

	if v.HasDefault {
		if err := s.encode(v.Default, limit); err != nil {
			return err
		}
	}

	if ivar {
		return s.ivars(types.Binary, v.Keywords, list, limit)
	}
	return nil
}

func (s *encodeState) structure(v *types.Struct, limit int) error {
	c := v.Class
	if c == nil || c.Kind() != types.KindStruct || c == s.ns.Struct {
		return encio.Errorf(encio.ErrWrongKind, "struct value without a struct template class (%v)", c)
	}
	if len(v.Values) != len(c.Members) {
		return encio.Errorf(encio.ErrWrongKind, "struct %v has %v members but %v values", c, len(c.Members), len(v.Values))
	}
	name, err := s.ns.Referable(c)
	if err != nil {
		return err
	}
	s.links.Add(v)

	list := fields(&v.Header)
	if len(list) > 0 {
		s.buff.WriteByte(tagIvar)
	}
	if err := s.extended(&v.Header); err != nil {
		return err
	}

	s.buff.WriteByte(tagStruct)
	s.symbol(types.Symbol(name))
	s.buff.WriteInt(len(c.Members))
	for i, member := range c.Members {
		if err := s.symbol(member); err != nil {
			return err
		}
		if err := s.encode(v.Values[i], limit); err != nil {
			return err
		}
	}

	if len(list) > 0 {
		return s.ivars(types.Binary, false, list, limit)
	}
	return nil
}

func (s *encodeState) object(v types.Value, c *types.Class, fr types.FieldReflector, limit int) error {
	if c.Kind() != types.KindObject {
		return encio.Errorf(encio.ErrWrongKind, "%T can't be an instance of %v", v, c)
	}
	name, err := s.ns.Referable(c)
	if err != nil {
		return err
	}
	s.links.Add(v)

	if err := s.extended(types.HeaderOf(v)); err != nil {
		return err
	}

	s.buff.WriteByte(tagObject)
	s.symbol(types.Symbol(name))

	names := fr.FieldNames()
	s.buff.WriteInt(len(names))
	for _, field := range names {
		val, _ := fr.Field(field)
		if err := s.symbol(field); err != nil {
			return err
		}
		if err := s.encode(val, limit); err != nil {
			return err
		}
	}
	return nil
}

// opaque writes v as its class name and the byte string its hook produced.
// v is registered after the payload, as the decoder can only register the loaded value.
func (s *encodeState) opaque(v types.Value, c *types.Class, data *types.String, limit int) error {
	name, err := s.ns.Referable(c)
	if err != nil {
		return err
	}

	if err := checkLength("opaque data", int64(len(data.Bytes))); err != nil {
		return err
	}

	enc := data.Encoding.Canonical()
	list := fields(&data.Header, fieldEncodingShort, fieldEncoding)
	ivar := len(list) > 0 || enc != types.Binary
	if ivar {
		s.buff.WriteByte(tagIvar)
	}
	if err := s.extended(types.HeaderOf(v)); err != nil {
		return err
	}

	s.buff.WriteByte(tagUserDef)
	s.symbol(types.Symbol(name))
	s.buff.WriteBytes(data.Bytes)

	if ivar {
		if err := s.ivars(enc, false, list, limit); err != nil {
			return err
		}
	}
	s.links.Add(v)
	return nil
}

// structured writes v as its class name and the value its hook produced.
// v is registered first, so the produced value may refer back to it.
func (s *encodeState) structured(v types.Value, c *types.Class, dump func() (types.Value, error), limit int) error {
	name, err := s.ns.Referable(c)
	if err != nil {
		return err
	}
	s.links.Add(v)

	data, err := dump()
	if err != nil {
		return err
	}

	if err := s.extended(types.HeaderOf(v)); err != nil {
		return err
	}
	s.buff.WriteByte(tagUsrMarshal)
	s.symbol(types.Symbol(name))
	return s.encode(data, limit)
}
