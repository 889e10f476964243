package types_test

import (
	"math/big"
	"testing"

	"github.com/maxatome/go-testdeep/td"

	"github.com/stewi1014/marshal/encio"
	"github.com/stewi1014/marshal/types"
)

func TestResolve(t *testing.T) {
	ns := types.NewNamespace()

	outer, err := ns.DefineModule("Outer")
	td.Require(t).CmpNoError(err)
	inner, err := ns.DefineClass("Outer::Inner", nil)
	td.Require(t).CmpNoError(err)

	td.Cmp(t, inner.Name(), "Outer::Inner")
	td.Cmp(t, inner.Super, ns.Object)

	got, err := ns.Resolve("Outer")
	td.CmpNoError(t, err)
	td.Cmp(t, got, td.Shallow(outer))

	got, err = ns.Resolve("Outer::Inner")
	td.CmpNoError(t, err)
	td.Cmp(t, got, td.Shallow(inner))

	got, err = ns.Resolve("String")
	td.CmpNoError(t, err)
	td.Cmp(t, got, td.Shallow(ns.StringClass))
	td.Cmp(t, ns.StringClass.Name(), "String")
	td.Cmp(t, ns.String(), td.HasPrefix("Namespace("))

	_, err = ns.Resolve("Missing::Inner")
	td.CmpErrorIs(t, err, encio.ErrUnresolvedName)
	td.Cmp(t, err.Error(), td.Contains("(Missing)"))

	_, err = ns.Resolve("Outer::Missing")
	td.CmpErrorIs(t, err, encio.ErrUnresolvedName)
	td.Cmp(t, err.Error(), td.Contains("(Outer::Missing)"))

	_, err = ns.Resolve("")
	td.CmpErrorIs(t, err, encio.ErrUnresolvedName)

	td.CmpNoError(t, ns.SetConst("Answer", 42))
	_, err = ns.Resolve("Answer::Inner")
	td.CmpErrorIs(t, err, encio.ErrWrongKind)

	_, err = ns.ResolveClass("Outer")
	td.CmpErrorIs(t, err, encio.ErrWrongKind)
	_, err = ns.ResolveModule("Outer::Inner")
	td.CmpErrorIs(t, err, encio.ErrWrongKind)
}

func TestDefine(t *testing.T) {
	ns := types.NewNamespace()

	a, err := ns.DefineClass("A", nil)
	td.Require(t).CmpNoError(err)

	again, err := ns.DefineClass("A", nil)
	td.CmpNoError(t, err)
	td.Cmp(t, again, td.Shallow(a))

	_, err = ns.DefineClass("A", ns.Array)
	td.CmpErrorIs(t, err, encio.ErrWrongKind)

	_, err = ns.DefineModule("A")
	td.CmpErrorIs(t, err, encio.ErrWrongKind)

	_, err = ns.DefineClass("Nowhere::B", nil)
	td.CmpErrorIs(t, err, encio.ErrUnresolvedName)

	ua, err := ns.DefineClass("UserArray", ns.Array)
	td.CmpNoError(t, err)
	td.Cmp(t, ua.Kind(), types.KindArray)
	td.CmpTrue(t, ua.Inherits(ns.Array))
	td.CmpFalse(t, ns.Array.Inherits(ua))
	td.Cmp(t, ua.Allocate(), td.Isa((*types.Array)(nil)))
}

func TestDefineStruct(t *testing.T) {
	ns := types.NewNamespace()

	useful, err := ns.DefineStruct("Struct::Useful", "a", "b")
	td.Require(t).CmpNoError(err)

	td.Cmp(t, useful.Name(), "Struct::Useful")
	td.Cmp(t, useful.Members, []types.Symbol{"a", "b"})
	td.Cmp(t, useful.Kind(), types.KindStruct)

	_, err = ns.DefineStruct("Struct::Useful", "a", "b")
	td.CmpNoError(t, err)

	_, err = ns.DefineStruct("Struct::Useful", "a")
	td.CmpErrorIs(t, err, encio.ErrWrongKind)

	s := useful.Allocate().(*types.Struct)
	td.Cmp(t, s.Values, []types.Value{nil, nil})
	td.CmpTrue(t, s.Set("b", 2))
	td.CmpFalse(t, s.Set("c", 3))
	v, ok := s.Get("b")
	td.CmpTrue(t, ok)
	td.Cmp(t, v, 2)

	sub, err := ns.DefineClass("Sub", useful)
	td.CmpNoError(t, err)
	td.Cmp(t, sub.Members, useful.Members)
}

func TestDefineMissing(t *testing.T) {
	ns := types.NewNamespace()

	v, err := ns.DefineMissing("A::B::C", types.KindObject, nil, nil)
	td.Require(t).CmpNoError(err)
	c := v.(*types.Class)
	td.Cmp(t, c.Name(), "A::B::C")

	m, err := ns.ResolveModule("A::B")
	td.CmpNoError(t, err)
	td.Cmp(t, m.Name(), "A::B")

	v, err = ns.DefineMissing("Point", types.KindStruct, nil, []types.Symbol{"x", "y"})
	td.Require(t).CmpNoError(err)
	td.Cmp(t, v.(*types.Class).Members, []types.Symbol{"x", "y"})

	v, err = ns.DefineMissing("Mixin", types.KindModule, nil, nil)
	td.Require(t).CmpNoError(err)
	td.Cmp(t, v, td.Isa((*types.Module)(nil)))

	// existing names are returned as is
	v, err = ns.DefineMissing("String", types.KindModule, nil, nil)
	td.CmpNoError(t, err)
	td.Cmp(t, v, td.Shallow(ns.StringClass))
}

func TestSetConstNames(t *testing.T) {
	ns := types.NewNamespace()

	anon := types.NewClass(ns.Object)
	td.CmpTrue(t, anon.IsAnonymous())
	td.Cmp(t, anon.String(), td.HasPrefix("#<Class:"))

	_, err := ns.Referable(anon)
	td.CmpErrorIs(t, err, encio.ErrNotSerializable)

	td.CmpNoError(t, ns.SetConst("Named", anon))
	td.Cmp(t, anon.Name(), "Named")

	name, err := ns.Referable(anon)
	td.CmpNoError(t, err)
	td.Cmp(t, name, "Named")

	// rebinding the name leaves the old class unreferable
	td.CmpNoError(t, ns.SetConst("Named", types.NewClass(ns.Object)))
	_, err = ns.Referable(anon)
	td.CmpErrorIs(t, err, encio.ErrNotSerializable)

	_, err = ns.Referable(types.NewSingletonClass(ns.Object))
	td.CmpErrorIs(t, err, encio.ErrNotSerializable)

	_, err = ns.Referable(types.NewModule())
	td.CmpErrorIs(t, err, encio.ErrNotSerializable)
}

type point struct{ X, Y int }

type tagged struct{ class *types.Class }

func (t tagged) InstanceClass() *types.Class { return t.class }

func TestHooks(t *testing.T) {
	ns := types.NewNamespace()

	base, _ := ns.DefineClass("Base", nil)
	derived, _ := ns.DefineClass("Derived", base)

	td.CmpNil(t, ns.Hook(derived))

	hook := types.StructuredHook{
		Dump: func(v types.Value) (types.Value, error) { return nil, nil },
		Load: func(v, data types.Value) error { return nil },
	}
	td.CmpNoError(t, ns.SetHook(base, hook))
	td.Cmp(t, ns.Hook(derived), td.Isa(types.StructuredHook{}))

	td.CmpNoError(t, ns.SetHook(base, nil))
	td.CmpNil(t, ns.Hook(derived))

	td.CmpErrorIs(t, ns.SetHook(nil, hook), encio.ErrNilPointer)

	td.CmpNoError(t, ns.Bind(point{}, base))
	c, ok := ns.ClassOf(point{1, 2})
	td.CmpTrue(t, ok)
	td.Cmp(t, c, td.Shallow(base))
	td.CmpErrorIs(t, ns.Bind(point{}, derived), encio.ErrWrongKind)

	c, ok = ns.ClassOf(tagged{derived})
	td.CmpTrue(t, ok)
	td.Cmp(t, c, td.Shallow(derived))

	_, ok = ns.ClassOf(make(chan int))
	td.CmpFalse(t, ok)

	ns.Restrict()
	td.CmpTrue(t, ns.Restricted())
	td.CmpErrorIs(t, ns.SetHook(derived, hook), encio.ErrSecurity)
	td.CmpErrorIs(t, ns.Bind(&point{}, derived), encio.ErrSecurity)
}

func TestClassOf(t *testing.T) {
	ns := types.NewNamespace()
	ua, _ := ns.DefineClass("UserArray", ns.Array)

	for _, tC := range []struct {
		v    types.Value
		want *types.Class
	}{
		{nil, ns.NilClass},
		{true, ns.TrueClass},
		{false, ns.FalseClass},
		{int8(1), ns.Integer},
		{new(big.Int), ns.Integer},
		{1.5, ns.Float},
		{"s", ns.StringClass},
		{types.Symbol("s"), ns.Symbol},
		{types.NewArray(), ns.Array},
		{&types.Array{Header: types.Header{Class: ua}}, ua},
		{types.NewHash(), ns.Hash},
		{ua, ns.ClassClass},
		{ns.Kernel, ns.ModuleClass},
		{&types.Extended{Value: types.NewArray()}, ns.Array},
	} {
		c, ok := ns.ClassOf(tC.v)
		td.CmpTrue(t, ok, "%T", tC.v)
		td.Cmp(t, c, td.Shallow(tC.want), "%T", tC.v)
	}
}
