package encodable_test

import (
	"errors"
	"fmt"
	"testing"

	pkgerrors "github.com/pkg/errors"

	"github.com/maxatome/go-testdeep/td"

	"github.com/stewi1014/marshal/encio"
	"github.com/stewi1014/marshal/encodable"
	"github.com/stewi1014/marshal/types"
)

var errBoom = errors.New("boom")

func TestHookErrors(t *testing.T) {
	ns := testNamespace(t)
	c, err := ns.DefineClass("Failing", ns.Object)
	td.Require(t).CmpNoError(err)
	td.Require(t).CmpNoError(ns.SetHook(c, types.OpaqueHook{
		Dump: func(v types.Value, depth int) (*types.String, error) {
			return nil, errBoom
		},
		Load: func(c *types.Class, data *types.String) (types.Value, error) {
			return nil, errBoom
		},
	}))
	config := &encodable.Config{Namespace: ns}

	t.Run("dump", func(t *testing.T) {
		err := encodable.NewEncoder(config).Encode(new(discard), types.NewArray(types.NewObject(c)), -1)
		cmpErrorIs(t, err, encio.ErrHook)
		cmpErrorIs(t, err, errBoom)

		var hookErr *encodable.HookError
		td.Require(t).True(errors.As(err, &hookErr))
		td.Cmp(t, hookErr.Method, "Dump")
		td.CmpShallow(t, hookErr.Class, c)
		td.Cmp(t, pkgerrors.Cause(hookErr.Err), errBoom)
		td.Cmp(t, err.Error(), td.Contains("Dump hook for Failing: boom"))
		td.Cmp(t, fmt.Sprintf("%+v", err), td.Contains("TestHookErrors"))
	})

	t.Run("load", func(t *testing.T) {
		err := loadErr(config, header+"u:\fFailing\x00")
		cmpErrorIs(t, err, encio.ErrHook)
		cmpErrorIs(t, err, errBoom)

		var hookErr *encodable.HookError
		td.Require(t).True(errors.As(err, &hookErr))
		td.Cmp(t, hookErr.Method, "Load")
	})
}

func TestHookNilData(t *testing.T) {
	ns := testNamespace(t)
	c, err := ns.DefineClass("Empty", ns.Object)
	td.Require(t).CmpNoError(err)
	td.Require(t).CmpNoError(ns.SetHook(c, types.OpaqueHook{
		Dump: func(v types.Value, depth int) (*types.String, error) { return nil, nil },
	}))

	err = encodable.NewEncoder(&encodable.Config{Namespace: ns}).Encode(new(discard), types.NewObject(c), -1)
	cmpErrorIs(t, err, encio.ErrHook)
}

func TestHookDumpOnly(t *testing.T) {
	ns := testNamespace(t)
	c, err := ns.DefineClass("WriteOnly", ns.Object)
	td.Require(t).CmpNoError(err)
	td.Require(t).CmpNoError(ns.SetHook(c, types.StructuredHook{
		Dump: func(v types.Value) (types.Value, error) { return 1, nil },
	}))

	config := &encodable.Config{Namespace: ns}
	stream := string(dump(t, config, types.NewObject(c), -1))
	td.Cmp(t, stream, header+"U:\x0EWriteOnlyi\x06")

	cmpErrorIs(t, loadErr(config, stream), encio.ErrMissingLoadHook)
}

func TestHookDepth(t *testing.T) {
	ns := testNamespace(t)
	c, err := ns.DefineClass("Deep", ns.Object)
	td.Require(t).CmpNoError(err)

	var depths []int
	td.Require(t).CmpNoError(ns.SetHook(c, types.OpaqueHook{
		Dump: func(v types.Value, depth int) (*types.String, error) {
			depths = append(depths, depth)
			return types.NewBinary(nil), nil
		},
	}))

	enc := encodable.NewEncoder(&encodable.Config{Namespace: ns})
	td.CmpNoError(t, enc.Encode(new(discard), types.NewArray(types.NewObject(c)), 5))
	td.CmpNoError(t, enc.Encode(new(discard), types.NewObject(c), -1))
	td.Cmp(t, depths, []int{3, -1})
}

func TestHookInheritedBySubclass(t *testing.T) {
	ns := testNamespace(t)
	_, err := ns.DefineClass("SubRational", class(t, ns, "Rational"))
	td.Require(t).CmpNoError(err)

	config := &encodable.Config{Namespace: ns}
	v := load(t, config, header+"U:\x10SubRational[\ai\ai\b")
	td.Cmp(t, v, &rational{Num: 2, Den: 3})
}

type point struct {
	types.Header
}

func (p *point) InstanceClass() *types.Class {
	return p.Class
}

func TestInstanceWithFields(t *testing.T) {
	ns := testNamespace(t)
	c, err := ns.DefineClass("Point", ns.Object)
	td.Require(t).CmpNoError(err)
	c.New = func(c *types.Class) types.Value {
		return &point{Header: types.Header{Class: c}}
	}

	p := &point{Header: types.Header{Class: c}}
	p.SetField("@x", 1)
	p.SetField("@y", 2)

	config := &encodable.Config{Namespace: ns}
	stream := string(dump(t, config, p, -1))
	td.Cmp(t, stream, header+"o:\nPoint\a:\a@xi\x06:\a@yi\a")

	got := load(t, config, stream)
	td.Cmp(t, got, td.Isa((*point)(nil)))
	x, _ := got.(*point).Field("@x")
	td.Cmp(t, x, 1)
}
