package encodable

import (
	"fmt"
	"io"

	"github.com/stewi1014/marshal/encio"
	"github.com/stewi1014/marshal/types"
)

// NewDecoder returns a new Decoder using config.
// A nil config uses the defaults.
func NewDecoder(config *Config) *Decoder {
	config = config.copyAndFill()
	return &Decoder{
		state: decodeState{
			config:   config,
			ns:       config.Namespace,
			resolver: config.Resolver,
		},
	}
}

// Decoder reads values from streams.
// It is not safe for concurrent use; see Pool.
type Decoder struct {
	state decodeState
}

// Decode reads one value from r.
//
// It reads no further than the end of the value if r implements io.ByteReader,
// so several values can be read from the same stream.
func (d *Decoder) Decode(r io.Reader) (types.Value, error) {
	er, ok := r.(*encio.Reader)
	if !ok {
		er = encio.NewReader(r)
	}
	return d.decode(er)
}

// DecodeBytes reads one value from buff.
func (d *Decoder) DecodeBytes(buff []byte) (types.Value, error) {
	return d.decode(encio.NewBytesReader(buff))
}

func (d *Decoder) decode(r *encio.Reader) (types.Value, error) {
	s := &d.state
	s.r = r
	s.links.reset()
	s.nesting = 0
	s.identity = false
	defer func() { s.r = nil }()

	major, minor, err := r.ReadHeader()
	if err != nil {
		return nil, err
	}
	if major != MajorVersion || minor > MinorVersion {
		return nil, encio.Errorf(
			encio.ErrVersionMismatch,
			"incompatible marshal file format (can't be read), format version %v.%v required; %v.%v given",
			MajorVersion, MinorVersion, major, minor,
		)
	}
	if minor < MinorVersion {
		s.config.Logger.Warn("incompatible marshal file format (can be read)",
			"required", fmt.Sprintf("%v.%v", MajorVersion, MinorVersion),
			"given", fmt.Sprintf("%v.%v", major, minor),
		)
	}

	return s.read()
}

func (d *Decoder) String() string {
	return "Decoder(" + d.state.config.String() + ")"
}

type decodeState struct {
	config   *Config
	ns       *types.Namespace
	resolver Resolver
	r        *encio.Reader
	links    decodeLinks
	nesting  int

	// identity is set when the next hash read is wrapped in the compare by identity marker.
	identity bool
}

// read reads a complete value, passing it through Config.Proc.
func (s *decodeState) read() (types.Value, error) {
	v, err := s.partial(nil)
	if err != nil {
		return nil, err
	}
	if s.config.Proc == nil {
		return v, nil
	}
	return s.config.Proc(v)
}

// count reads a length or field count.
func (s *decodeState) count() (int, error) {
	n, err := s.r.ReadInt()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, encio.Errorf(encio.ErrMalformed, "negative count %v at offset %v", n, s.r.Pos())
	}
	return n, nil
}

// partial reads a value.
// If ivar is not nil, the value is wrapped in an ivar tag; values that consume the fields themselves clear it.
func (s *decodeState) partial(ivar *bool) (types.Value, error) {
	s.nesting++
	defer func() { s.nesting-- }()
	if s.nesting > maxNesting {
		return nil, encio.Errorf(encio.ErrMalformed, "nesting deeper than %v", maxNesting)
	}

	tag, err := s.r.ReadByte()
	if err != nil {
		return nil, err
	}

	identity := s.identity
	s.identity = false

	switch tag {
	case tagNil:
		return nil, nil
	case tagTrue:
		return true, nil
	case tagFalse:
		return false, nil

	case tagFixnum:
		n, err := s.r.ReadInt()
		if err != nil {
			return nil, err
		}
		return n, nil

	case tagBignum:
		b, err := s.r.ReadBig()
		if err != nil {
			return nil, err
		}
		v := encio.Normalize(b)
		s.links.Add(v)
		return v, nil

	case tagFloat:
		f, err := s.r.ReadFloat()
		if err != nil {
			return nil, err
		}
		s.links.Add(f)
		return f, nil

	case tagSymbol:
		return s.symbolBody(ivar)

	case tagSymlink:
		i, err := s.r.ReadInt()
		if err != nil {
			return nil, err
		}
		return s.links.GetSymbol(i)

	case tagLink:
		i, err := s.r.ReadInt()
		if err != nil {
			return nil, err
		}
		return s.links.Get(i)

	case tagIvar:
		inner := true
		s.identity = identity
		v, err := s.partial(&inner)
		if err != nil {
			return nil, err
		}
		if inner {
			if err := s.ivars(v); err != nil {
				return nil, err
			}
		}
		return v, nil

	case tagExtended:
		s.identity = identity
		return s.extended(ivar)

	case tagUserClass:
		s.identity = identity
		return s.userClass(ivar)

	case tagString:
		b, err := s.r.ReadBytes()
		if err != nil {
			return nil, err
		}
		v := &types.String{Bytes: b, Encoding: types.Binary}
		s.links.Add(v)
		return v, nil

	case tagRegexp:
		src, err := s.r.ReadBytes()
		if err != nil {
			return nil, err
		}
		opts, err := s.r.ReadByte()
		if err != nil {
			return nil, err
		}
		v := &types.Regexp{Source: src, Options: opts, Encoding: types.Binary}
		s.links.Add(v)
		return v, nil

	case tagArray:
		return s.array()

	case tagHash, tagHashDef:
		return s.hash(tag == tagHashDef, identity)

	case tagObject:
		return s.object()

	case tagStruct:
		return s.structure()

	case tagUserDef:
		return s.userDef(ivar)

	case tagUsrMarshal:
		return s.usrMarshal()

	case tagClass:
		name, err := s.r.ReadBytes()
		if err != nil {
			return nil, err
		}
		c, err := s.resolveClass(string(name), types.KindObject, s.ns.Object)
		if err != nil {
			return nil, err
		}
		s.links.Add(c)
		return c, nil

	case tagModule:
		name, err := s.r.ReadBytes()
		if err != nil {
			return nil, err
		}
		m, err := s.resolveModule(string(name))
		if err != nil {
			return nil, err
		}
		s.links.Add(m)
		return m, nil

	case tagModuleOld:
		name, err := s.r.ReadBytes()
		if err != nil {
			return nil, err
		}
		v, err := s.lookup(string(name))
		if err != nil {
			return nil, err
		}
		if v == nil {
			if v, err = s.define(string(name), types.KindModule, nil, nil); err != nil {
				return nil, err
			}
		}
		switch v.(type) {
		case *types.Class, *types.Module:
		default:
			return nil, encio.Errorf(encio.ErrWrongKind, "%s does not refer to class/module", name)
		}
		s.links.Add(v)
		return v, nil
	}

	return nil, encio.Errorf(encio.ErrUnknownTag, "tag %#x at offset %v", tag, s.r.Pos()-1)
}

// symbolBody reads the bytes of a symbol, and its fields if it is wrapped in an ivar tag.
func (s *decodeState) symbolBody(ivar *bool) (types.Value, error) {
	b, err := s.r.ReadBytes()
	if err != nil {
		return nil, err
	}
	sym := types.Symbol(b)
	s.links.AddSymbol(sym)

	if ivar != nil && *ivar {
		*ivar = false
		n, err := s.count()
		if err != nil {
			return nil, err
		}
		// only the encoding is carried; the bytes are kept as they are.
		for i := 0; i < n; i++ {
			if _, err := s.symbol(); err != nil {
				return nil, err
			}
			if _, err := s.read(); err != nil {
				return nil, err
			}
		}
	}
	return sym, nil
}

// symbol reads a symbol in a name position.
func (s *decodeState) symbol() (types.Symbol, error) {
	tag, err := s.r.ReadByte()
	if err != nil {
		return "", err
	}

	ivar := false
	if tag == tagIvar {
		ivar = true
		if tag, err = s.r.ReadByte(); err != nil {
			return "", err
		}
		if tag != tagSymbol {
			return "", encio.Errorf(encio.ErrMalformed, "dump format error for symbol(%#x)", tag)
		}
	}

	switch tag {
	case tagSymbol:
		v, err := s.symbolBody(&ivar)
		if err != nil {
			return "", err
		}
		return v.(types.Symbol), nil
	case tagSymlink:
		i, err := s.r.ReadInt()
		if err != nil {
			return "", err
		}
		return s.links.GetSymbol(i)
	}
	return "", encio.Errorf(encio.ErrMalformed, "dump format error for symbol(%#x)", tag)
}

func (s *decodeState) name() (string, error) {
	sym, err := s.symbol()
	return string(sym), err
}

func (s *decodeState) ivars(v types.Value) error {
	n, err := s.count()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		name, err := s.symbol()
		if err != nil {
			return err
		}
		val, err := s.read()
		if err != nil {
			return err
		}
		if err := s.setField(v, name, val); err != nil {
			return err
		}
	}
	return nil
}

func (s *decodeState) setField(v types.Value, name types.Symbol, val types.Value) error {
	switch name {
	case fieldEncodingShort, fieldEncoding:
		var enc types.Encoding
		switch val := val.(type) {
		case bool:
			enc = types.USASCII
			if val {
				enc = types.UTF8
			}
		case *types.String:
			enc = types.Encoding(val.Bytes)
		default:
			return encio.Errorf(encio.ErrMalformed, "encoding field holds %T", val)
		}

		switch v := v.(type) {
		case *types.String:
			v.Encoding = enc
			return nil
		case *types.Regexp:
			v.Encoding = enc
			return nil
		}

	case fieldKeywords:
		if h, ok := v.(*types.Hash); ok {
			h.Keywords = val == true
			return nil
		}
	}

	if fr, ok := v.(types.FieldReflector); ok {
		fr.SetField(name, val)
		return nil
	}
	return encio.Errorf(encio.ErrWrongKind, "%T can't hold field %v", v, name)
}

func (s *decodeState) extended(ivar *bool) (types.Value, error) {
	name, err := s.name()
	if err != nil {
		return nil, err
	}
	m, err := s.resolveModule(name)
	if err != nil {
		return nil, err
	}

	v, err := s.partial(ivar)
	if err != nil {
		return nil, err
	}

	if h := types.HeaderOf(v); h != nil {
		h.Extended = append([]*types.Module{m}, h.Extended...)
		return v, nil
	}
	if e, ok := v.(*types.Extended); ok {
		e.Modules = append([]*types.Module{m}, e.Modules...)
		return e, nil
	}
	return &types.Extended{Modules: []*types.Module{m}, Value: v}, nil
}

func (s *decodeState) builtinFor(v types.Value) *types.Class {
	switch v.(type) {
	case *types.String:
		return s.ns.StringClass
	case *types.Regexp:
		return s.ns.Regexp
	case *types.Array:
		return s.ns.Array
	case *types.Hash:
		return s.ns.Hash
	}
	return nil
}

func (s *decodeState) userClass(ivar *bool) (types.Value, error) {
	name, err := s.name()
	if err != nil {
		return nil, err
	}
	cv, err := s.lookup(name)
	if err != nil {
		return nil, err
	}

	if cv == types.Value(s.ns.Hash) {
		s.identity = true
	}
	v, err := s.partial(ivar)
	if err != nil {
		return nil, err
	}

	builtin := s.builtinFor(v)
	h := types.HeaderOf(v)
	if builtin == nil || h == nil {
		return nil, encio.Errorf(encio.ErrWrongKind, "dump format error (user class %v on %T)", name, v)
	}

	if cv == nil {
		if cv, err = s.define(name, types.KindObject, builtin, nil); err != nil {
			return nil, err
		}
	}
	c, ok := cv.(*types.Class)
	if !ok {
		return nil, encio.Errorf(encio.ErrWrongKind, "%v does not refer to class", name)
	}

	if hash, ok := v.(*types.Hash); ok && c == s.ns.Hash {
		if !hash.CompareByIdentity {
			hash.CompareByIdentity = true
			hash.Rehash()
		}
		return v, nil
	}

	cur := h.Class
	if cur == nil {
		cur = builtin
	}
	if !c.Inherits(cur) {
		return nil, encio.Errorf(encio.ErrWrongKind, "dump format error (user class %v is not a %v)", c, cur)
	}
	if c != builtin {
		h.Class = c
	}
	return v, nil
}

func (s *decodeState) array() (types.Value, error) {
	n, err := s.count()
	if err != nil {
		return nil, err
	}

	v := &types.Array{Elems: make([]types.Value, 0, min(n, 1024))}
	s.links.Add(v)
	for i := 0; i < n; i++ {
		elem, err := s.read()
		if err != nil {
			return nil, err
		}
		v.Elems = append(v.Elems, elem)
	}
	return v, nil
}

func (s *decodeState) hash(hasDefault, identity bool) (types.Value, error) {
	n, err := s.count()
	if err != nil {
		return nil, err
	}

	v := types.NewHash()
	v.CompareByIdentity = identity
	s.links.Add(v)
	for i := 0; i < n; i++ {
		key, err := s.read()
		if err != nil {
			return nil, err
		}
		val, err := s.read()
		if err != nil {
			return nil, err
		}
		v.Set(key, val)
	}

	if hasDefault {
		if v.Default, err = s.read(); err != nil {
			return nil, err
		}
		v.HasDefault = true
	}
	return v, nil
}

func (s *decodeState) object() (types.Value, error) {
	name, err := s.name()
	if err != nil {
		return nil, err
	}
	c, err := s.resolveClass(name, types.KindObject, s.ns.Object)
	if err != nil {
		return nil, err
	}
	if c.Kind() != types.KindObject {
		return nil, encio.Errorf(encio.ErrWrongKind, "dump format error (%v is not an object class)", c)
	}

	v := c.Allocate()
	fr, ok := v.(types.FieldReflector)
	if !ok {
		return nil, encio.Errorf(encio.ErrWrongKind, "instance of %v (%T) can't hold fields", c, v)
	}
	s.links.Add(v)

	n, err := s.count()
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		field, err := s.symbol()
		if err != nil {
			return nil, err
		}
		val, err := s.read()
		if err != nil {
			return nil, err
		}
		fr.SetField(field, val)
	}
	return v, nil
}

func (s *decodeState) structure() (types.Value, error) {
	name, err := s.name()
	if err != nil {
		return nil, err
	}
	cv, err := s.lookup(name)
	if err != nil {
		return nil, err
	}

	var c *types.Class
	if cv != nil {
		var ok bool
		if c, ok = cv.(*types.Class); !ok || c.Kind() != types.KindStruct {
			return nil, encio.Errorf(encio.ErrWrongKind, "class %v not a struct", name)
		}
	}

	n, err := s.count()
	if err != nil {
		return nil, err
	}
	if c != nil && n != len(c.Members) {
		return nil, encio.Errorf(encio.ErrWrongKind, "struct %v not compatible (struct size differs)", name)
	}

	var v *types.Struct
	if c != nil {
		var ok bool
		if v, ok = c.Allocate().(*types.Struct); !ok {
			return nil, encio.Errorf(encio.ErrWrongKind, "instance of %v is not a struct", c)
		}
	} else {
		v = &types.Struct{Values: make([]types.Value, 0, min(n, 1024))}
	}
	s.links.Add(v)

	members := make([]types.Symbol, 0, min(n, 1024))
	for i := 0; i < n; i++ {
		member, err := s.symbol()
		if err != nil {
			return nil, err
		}
		if c != nil && member != c.Members[i] {
			return nil, encio.Errorf(
				encio.ErrWrongKind,
				"struct %v not compatible (:%v for :%v)",
				name, member, c.Members[i],
			)
		}
		val, err := s.read()
		if err != nil {
			return nil, err
		}
		if c != nil {
			v.Values[i] = val
		} else {
			v.Values = append(v.Values, val)
		}
		members = append(members, member)
	}

	if c == nil {
		cv, err := s.define(name, types.KindStruct, nil, members)
		if err != nil {
			return nil, err
		}
		if v.Class, _ = cv.(*types.Class); v.Class == nil {
			return nil, encio.Errorf(encio.ErrWrongKind, "class %v not a struct", name)
		}
	}
	return v, nil
}

func (s *decodeState) userDef(ivar *bool) (types.Value, error) {
	name, err := s.name()
	if err != nil {
		return nil, err
	}
	c, err := s.resolveClass(name, types.KindObject, s.ns.Object)
	if err != nil {
		return nil, err
	}

	b, err := s.r.ReadBytes()
	if err != nil {
		return nil, err
	}
	data := &types.String{Bytes: b, Encoding: types.Binary}
	if ivar != nil && *ivar {
		*ivar = false
		if err := s.ivars(data); err != nil {
			return nil, err
		}
	}

	var v types.Value
	hook, ok := hookOf(s.ns, c).(types.OpaqueHook)
	switch {
	case !ok || hook.Load == nil:
		if !s.config.Lenient {
			return nil, encio.Errorf(encio.ErrMissingLoadHook, "class %v needs to have method `_load'", c)
		}
		v = &types.UserData{Class: c, Opaque: data}
	default:
		allowed, err := s.dispatch(c)
		if err != nil {
			return nil, err
		}
		if allowed {
			if v, err = s.loadOpaque(c, hook, data); err != nil {
				return nil, err
			}
		} else {
			v = &types.UserData{Class: c, Opaque: data}
		}
	}

	s.links.Add(v)
	return v, nil
}

func (s *decodeState) usrMarshal() (types.Value, error) {
	name, err := s.name()
	if err != nil {
		return nil, err
	}
	c, err := s.resolveClass(name, types.KindObject, s.ns.Object)
	if err != nil {
		return nil, err
	}

	hook, ok := hookOf(s.ns, c).(types.StructuredHook)
	if ok && hook.Load != nil {
		allowed, err := s.dispatch(c)
		if err != nil {
			return nil, err
		}
		if allowed {
			v := c.Allocate()
			s.links.Add(v)
			data, err := s.read()
			if err != nil {
				return nil, err
			}
			if err := s.loadStructured(c, hook, v, data); err != nil {
				return nil, err
			}
			return v, nil
		}
	} else if !s.config.Lenient {
		return nil, encio.Errorf(encio.ErrMissingLoadHook, "instance of %v needs to have method `marshal_load'", c)
	}

	v := &types.UserData{Class: c}
	s.links.Add(v)
	if v.Data, err = s.read(); err != nil {
		return nil, err
	}
	return v, nil
}
