package encodable_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/maxatome/go-testdeep/td"

	"github.com/stewi1014/marshal/encio"
	"github.com/stewi1014/marshal/encodable"
	"github.com/stewi1014/marshal/types"
)

func TestDecodeErrors(t *testing.T) {
	testCases := []struct {
		desc   string
		stream string
		err    error
	}{
		{desc: "empty", stream: "", err: encio.ErrEmptyInput},
		{desc: "header only major", stream: "\x04", err: encio.ErrTruncated},
		{desc: "header only", stream: header, err: encio.ErrTruncated},
		{desc: "newer minor", stream: "\x04\x09i\x06", err: encio.ErrVersionMismatch},
		{desc: "other major", stream: "\x03\x08i\x06", err: encio.ErrVersionMismatch},
		{desc: "truncated array", stream: header + "[\a", err: encio.ErrTruncated},
		{desc: "truncated string", stream: header + "\"\nab", err: encio.ErrTruncated},
		{desc: "truncated fixnum", stream: header + "i\x02\x01", err: encio.ErrTruncated},
		{desc: "unknown tag", stream: header + "X", err: encio.ErrUnknownTag},
		{desc: "bad link", stream: header + "@\x00", err: encio.ErrBadBackRef},
		{desc: "link past table", stream: header + "[\x06@\x06", err: encio.ErrBadBackRef},
		{desc: "bad symbol link", stream: header + ";\x00", err: encio.ErrBadBackRef},
		{desc: "negative count", stream: header + "[\xfa", err: encio.ErrMalformed},
		{desc: "negative length", stream: header + "\"\xfa", err: encio.ErrMalformed},
		{desc: "bad bignum sign", stream: header + "l*\x06\x01\x00", err: encio.ErrMalformed},
		{desc: "bad float", stream: header + "f\x06x", err: encio.ErrMalformed},
		{desc: "field name not a symbol", stream: header + "o:\vObject\x06i\x06i\x06", err: encio.ErrMalformed},
		{desc: "unresolved class", stream: header + "o:\bFoo\x00", err: encio.ErrUnresolvedName},
		{desc: "unresolved nested class", stream: header + "c\x10Object::Foo", err: encio.ErrUnresolvedName},
		{desc: "unresolved module", stream: header + "e:\bFoo[\x00", err: encio.ErrUnresolvedName},
		{desc: "class is a module", stream: header + "c\nMeths", err: encio.ErrWrongKind},
		{desc: "module is a class", stream: header + "m\vObject", err: encio.ErrWrongKind},
		{desc: "object of array class", stream: header + "o:\x0EUserArray\x00", err: encio.ErrWrongKind},
		{desc: "user class on object", stream: header + "C:\x0EUserArrayo:\vObject\x00", err: encio.ErrWrongKind},
		{desc: "user class of other kind", stream: header + "C:\x0EUserArray\"\x00", err: encio.ErrWrongKind},
		{desc: "struct not a struct", stream: header + "S:\x0EUserArray\x00", err: encio.ErrWrongKind},
		{desc: "struct size differs", stream: header + "S:\x13Struct::Useful\x06:\x06ai\x06", err: encio.ErrWrongKind},
		{
			desc:   "struct member differs",
			stream: header + "S:\x13Struct::Useful\a:\x06ai\x06:\x06ci\a",
			err:    encio.ErrWrongKind,
		},
		{desc: "opaque without hook", stream: header + "u:\x0FUserString\x00", err: encio.ErrMissingLoadHook},
		{desc: "structured without hook", stream: header + "U:\x0FUserString0", err: encio.ErrMissingLoadHook},
		{desc: "field on integer", stream: header + "Ii\x06\x06:\t@fooi\x06", err: encio.ErrWrongKind},
		{desc: "nesting", stream: header + strings.Repeat("[\x06", 1<<15) + "0", err: encio.ErrMalformed},
	}

	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			config := &encodable.Config{Namespace: testNamespace(t)}
			cmpErrorIs(t, loadErr(config, tC.stream), tC.err)
		})
	}
}

func TestDecodeOlderMinor(t *testing.T) {
	var logs bytes.Buffer
	config := &encodable.Config{
		Logger: slog.New(slog.NewTextHandler(&logs, nil)),
	}

	td.Cmp(t, load(t, config, "\x04\x07i\x06"), 1)
	td.Cmp(t, logs.String(), td.Contains("can be read"))
}

func TestDecodeStream(t *testing.T) {
	var stream []byte
	enc := encodable.NewEncoder(nil)
	for _, v := range []types.Value{1, "two", types.NewArray(3)} {
		var err error
		stream, err = enc.Append(stream, v, -1)
		td.Require(t).CmpNoError(err)
	}

	r := bytes.NewReader(stream)
	dec := encodable.NewDecoder(nil)

	v, err := dec.Decode(r)
	td.CmpNoError(t, err)
	td.Cmp(t, v, 1)

	v, err = dec.Decode(r)
	td.CmpNoError(t, err)
	td.CmpTrue(t, types.Equal(v, "two"))

	v, err = dec.Decode(r)
	td.CmpNoError(t, err)
	td.CmpTrue(t, types.Equal(v, types.NewArray(3)))

	_, err = dec.Decode(r)
	cmpErrorIs(t, err, encio.ErrEmptyInput)
}

func TestDecodeSharedReader(t *testing.T) {
	stream, err := encodable.NewEncoder(nil).Append(nil, 1, -1)
	td.Require(t).CmpNoError(err)
	stream, err = encodable.NewEncoder(nil).Append(stream, "two", -1)
	td.Require(t).CmpNoError(err)

	r := encio.NewBytesReader(stream)
	dec := encodable.NewDecoder(nil)

	v, err := dec.Decode(r)
	td.CmpNoError(t, err)
	td.Cmp(t, v, 1)
	td.Cmp(t, r.Pos(), int64(3))

	v, err = dec.Decode(r)
	td.CmpNoError(t, err)
	td.CmpTrue(t, types.Equal(v, "two"))
	td.Cmp(t, r.Pos(), int64(len(stream)))
}

func TestDecodeOneByteReader(t *testing.T) {
	ns := testNamespace(t)
	config := &encodable.Config{Namespace: ns}
	s := types.NewString("shared")
	v := types.NewArray(s, s, types.NewStruct(class(t, ns, "Struct::Useful"), 1.5, &rational{Num: 1, Den: 3}))

	stream := dump(t, config, v, -1)
	got, err := encodable.NewDecoder(config).Decode(iotest.OneByteReader(bytes.NewReader(stream)))
	td.Require(t).CmpNoError(err)
	td.CmpTrue(t, types.Equal(got, v))

	arr := got.(*types.Array)
	td.CmpShallow(t, arr.Elems[0], arr.Elems[1])
}

func TestDecodeReadError(t *testing.T) {
	_, err := encodable.NewDecoder(nil).Decode(iotest.ErrReader(iotest.ErrTimeout))
	cmpErrorIs(t, err, iotest.ErrTimeout)
}

func TestDecodeCycles(t *testing.T) {
	ns := testNamespace(t)
	config := &encodable.Config{Namespace: ns}

	h := types.NewHash()
	o := types.NewObject(ns.Object)
	o.SetField("@self", o)
	o.SetField("@hash", h)
	h.Set(types.Symbol("owner"), o)
	h.Set(types.Symbol("me"), h)

	got := load(t, config, string(dump(t, config, o, -1))).(*types.Object)
	self, _ := got.Field("@self")
	td.CmpShallow(t, self, got)

	gotHash, _ := got.Field("@hash")
	owner, ok := gotHash.(*types.Hash).Get(types.Symbol("owner"))
	td.CmpTrue(t, ok)
	td.CmpShallow(t, owner, got)

	me, _ := gotHash.(*types.Hash).Get(types.Symbol("me"))
	td.CmpShallow(t, me, gotHash)
}

func TestDecodeIdentityHash(t *testing.T) {
	a, b := types.NewString("a"), types.NewString("a")
	h := &types.Hash{CompareByIdentity: true}
	h.Set(a, 1)
	h.Set(b, 2)

	got := load(t, nil, string(dump(t, nil, h, -1))).(*types.Hash)
	td.CmpTrue(t, got.CompareByIdentity)
	td.Cmp(t, got.Len(), 2)

	_, ok := got.Get("a")
	td.CmpFalse(t, ok)
	for _, k := range got.Keys() {
		v, ok := got.Get(k)
		td.CmpTrue(t, ok)
		td.CmpNotNil(t, v)
	}
}

func TestDecodeLenient(t *testing.T) {
	ns := types.NewNamespace()
	config := &encodable.Config{Namespace: ns, Lenient: true}

	stream := header + "[\ne:\rA::Mixin" +
		"o:\rA::Thing\x06:\a@xi\x06" +
		"S:\rA::Point\a:\x06xi\x06:\x06yi\a" +
		"C:\fA::List[\x00" +
		"u:\rA::Bytes\babc" +
		"U:\fA::Data[\x06i\x06"

	v := load(t, config, stream)
	arr := v.(*types.Array)
	td.Require(t).Cmp(len(arr.Elems), 5)

	thing := arr.Elems[0].(*types.Object)
	td.Cmp(t, thing.Class.Name(), "A::Thing")
	td.Cmp(t, thing.Extended[0].Name(), "A::Mixin")
	x, _ := thing.Field("@x")
	td.Cmp(t, x, 1)

	point := arr.Elems[1].(*types.Struct)
	td.Cmp(t, point.Class.Members, []types.Symbol{"x", "y"})
	td.Cmp(t, point.Values, []types.Value{1, 2})

	list := arr.Elems[2].(*types.Array)
	td.Cmp(t, list.Class.Name(), "A::List")
	td.CmpTrue(t, list.Class.Inherits(ns.Array))

	raw := arr.Elems[3].(*types.UserData)
	td.Cmp(t, raw.Class.Name(), "A::Bytes")
	td.Cmp(t, raw.Opaque.Bytes, []byte("abc"))

	data := arr.Elems[4].(*types.UserData)
	td.Cmp(t, data.Class.Name(), "A::Data")
	td.CmpTrue(t, types.Equal(data.Data, types.NewArray(1)))

	// the names are now known, so the value encodes back to the same stream.
	td.Cmp(t, string(dump(t, config, v, -1)), stream)

	_, err := ns.ResolveModule("A")
	td.CmpNoError(t, err)
}

func TestDecodeRestricted(t *testing.T) {
	ns := testNamespace(t)
	stream := string(dump(t, &encodable.Config{Namespace: ns}, types.NewArray(&rational{Num: 1, Den: 2}, &userDefined{Data: []byte("x")}), -1))

	err := loadErr(&encodable.Config{Namespace: ns, Restricted: true}, stream)
	cmpErrorIs(t, err, encio.ErrSecurity)

	v := load(t, &encodable.Config{Namespace: ns, Restricted: true, Lenient: true}, stream)
	arr := v.(*types.Array)
	td.Cmp(t, arr.Elems[0], td.Isa((*types.UserData)(nil)))
	td.Cmp(t, arr.Elems[1], td.Isa((*types.UserData)(nil)))
	td.Cmp(t, arr.Elems[1].(*types.UserData).Opaque.Bytes, []byte("x"))

	// plain data is unaffected.
	td.Cmp(t, load(t, &encodable.Config{Namespace: ns, Restricted: true}, header+"i\x06"), 1)
}

func TestEncodeRestricted(t *testing.T) {
	ns := testNamespace(t)
	value := types.NewArray(&rational{Num: 1, Den: 2}, &userDefined{Data: []byte("x")})
	stream := string(dump(t, &encodable.Config{Namespace: ns}, value, -1))

	buff := new(bytes.Buffer)
	err := encodable.NewEncoder(&encodable.Config{Namespace: ns, Restricted: true}).Encode(buff, value, -1)
	cmpErrorIs(t, err, encio.ErrSecurity)
	td.Cmp(t, buff.Len(), 0)

	// raw payloads don't need hooks, so they still encode.
	raw := load(t, &encodable.Config{Namespace: ns, Restricted: true, Lenient: true}, stream)
	td.Cmp(t, string(dump(t, &encodable.Config{Namespace: ns, Restricted: true}, raw, -1)), stream)

	ns.Restrict()
	_, err = encodable.NewEncoder(&encodable.Config{Namespace: ns}).Append(nil, value, -1)
	cmpErrorIs(t, err, encio.ErrSecurity)
	cmpErrorIs(t, loadErr(&encodable.Config{Namespace: ns}, stream), encio.ErrSecurity)
}

func TestDecodeProc(t *testing.T) {
	var seen []types.Value
	config := &encodable.Config{
		Proc: func(v types.Value) (types.Value, error) {
			seen = append(seen, v)
			if s, ok := v.(*types.String); ok {
				return s.String(), nil
			}
			return v, nil
		},
	}

	v := load(t, config, header+"[\aI\"\x06a\x06:\x06ET@\x06")
	arr := v.(*types.Array)
	td.Cmp(t, arr.Elems, []types.Value{"a", "a"})

	// the encoding flag, both elements and the array.
	td.Cmp(t, len(seen), 4)
	td.Cmp(t, seen[0], true)
}

func TestDecodeProcError(t *testing.T) {
	config := &encodable.Config{
		Proc: func(v types.Value) (types.Value, error) {
			if v == 2 {
				return nil, encio.ErrSecurity
			}
			return v, nil
		},
	}
	cmpErrorIs(t, loadErr(config, header+"[\ai\x06i\a"), encio.ErrSecurity)
}

func TestDecoderReuse(t *testing.T) {
	dec := encodable.NewDecoder(nil)

	_, err := dec.DecodeBytes([]byte(header + "[\x06@\x09"))
	cmpErrorIs(t, err, encio.ErrBadBackRef)

	v, err := dec.DecodeBytes([]byte(header + "[\a\"\x06a@\x06"))
	td.CmpNoError(t, err)
	arr := v.(*types.Array)
	td.CmpShallow(t, arr.Elems[0], arr.Elems[1])
}
