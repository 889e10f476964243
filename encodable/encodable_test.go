package encodable_test

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/maxatome/go-testdeep/td"

	"github.com/stewi1014/marshal/encodable"
	"github.com/stewi1014/marshal/types"
)

const header = "\x04\x08"

type userMarshal struct {
	Data types.Symbol
}

type rational struct {
	Num, Den int
}

type userDefined struct {
	Data []byte
}

// testNamespace returns a Namespace holding the classes used in the tests.
func testNamespace(t *testing.T) *types.Namespace {
	t.Helper()
	require := td.Require(t)
	ns := types.NewNamespace()

	_, err := ns.DefineStruct("Struct::Useful", "a", "b")
	require.CmpNoError(err)
	_, err = ns.DefineStruct("Struct::Thick")
	require.CmpNoError(err)
	_, err = ns.DefineClass("UserArray", ns.Array)
	require.CmpNoError(err)
	_, err = ns.DefineClass("UserHash", ns.Hash)
	require.CmpNoError(err)
	_, err = ns.DefineClass("UserString", ns.StringClass)
	require.CmpNoError(err)
	_, err = ns.DefineModule("Meths")
	require.CmpNoError(err)
	_, err = ns.DefineModule("MoreMeths")
	require.CmpNoError(err)

	um, err := ns.DefineClass("UserMarshal", ns.Object)
	require.CmpNoError(err)
	um.New = func(*types.Class) types.Value { return &userMarshal{} }
	require.CmpNoError(ns.Bind(&userMarshal{}, um))
	require.CmpNoError(ns.SetHook(um, types.StructuredHook{
		Dump: func(v types.Value) (types.Value, error) {
			return v.(*userMarshal).Data, nil
		},
		Load: func(v, data types.Value) error {
			sym, ok := data.(types.Symbol)
			if !ok {
				return fmt.Errorf("want symbol, got %T", data)
			}
			v.(*userMarshal).Data = sym
			return nil
		},
	}))

	rat, err := ns.DefineClass("Rational", ns.Object)
	require.CmpNoError(err)
	rat.New = func(*types.Class) types.Value { return &rational{} }
	require.CmpNoError(ns.Bind(&rational{}, rat))
	require.CmpNoError(ns.SetHook(rat, types.StructuredHook{
		Dump: func(v types.Value) (types.Value, error) {
			r := v.(*rational)
			return types.NewArray(r.Num, r.Den), nil
		},
		Load: func(v, data types.Value) error {
			arr, ok := data.(*types.Array)
			if !ok || len(arr.Elems) != 2 {
				return fmt.Errorf("want pair, got %v", data)
			}
			r := v.(*rational)
			r.Num, _ = arr.Elems[0].(int)
			r.Den, _ = arr.Elems[1].(int)
			return nil
		},
	}))

	ud, err := ns.DefineClass("UserDefined", ns.Object)
	require.CmpNoError(err)
	require.CmpNoError(ns.Bind(&userDefined{}, ud))
	require.CmpNoError(ns.SetHook(ud, types.OpaqueHook{
		Dump: func(v types.Value, depth int) (*types.String, error) {
			return types.NewBinary(v.(*userDefined).Data), nil
		},
		Load: func(c *types.Class, data *types.String) (types.Value, error) {
			return &userDefined{Data: data.Bytes}, nil
		},
	}))
	_, err = ns.DefineClass("UserDefined::Nested", ns.Object)
	require.CmpNoError(err)

	return ns
}

func class(t *testing.T, ns *types.Namespace, path string) *types.Class {
	t.Helper()
	c, err := ns.ResolveClass(path)
	td.Require(t).CmpNoError(err)
	return c
}

func module(t *testing.T, ns *types.Namespace, path string) *types.Module {
	t.Helper()
	m, err := ns.ResolveModule(path)
	td.Require(t).CmpNoError(err)
	return m
}

func dump(t *testing.T, config *encodable.Config, v types.Value, limit int) []byte {
	t.Helper()
	buff := new(bytes.Buffer)
	err := encodable.NewEncoder(config).Encode(buff, v, limit)
	td.Require(t).CmpNoError(err)
	return buff.Bytes()
}

func load(t *testing.T, config *encodable.Config, stream string) types.Value {
	t.Helper()
	v, err := encodable.NewDecoder(config).Decode(bytes.NewReader([]byte(stream)))
	td.Require(t).CmpNoError(err)
	return v
}

func loadErr(config *encodable.Config, stream string) error {
	_, err := encodable.NewDecoder(config).Decode(bytes.NewReader([]byte(stream)))
	return err
}

func cmpErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Errorf("got error %v, want %v", err, target)
	}
}
