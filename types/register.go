package types

import (
	"fmt"
	"math/big"
	"reflect"
	"strings"
	"sync"

	"github.com/stewi1014/marshal/encio"
)

// NewNamespace returns a Namespace holding the built-in classes and modules.
func NewNamespace() *Namespace {
	ns := &Namespace{
		hooks: make(map[*Class]Hook),
		bound: make(map[reflect.Type]*Class),
	}

	ns.BasicObject = ns.builtin("BasicObject", nil, KindObject)
	ns.Object = ns.builtin("Object", ns.BasicObject, KindObject)
	ns.ModuleClass = ns.builtin("Module", ns.Object, KindModule)
	ns.ClassClass = ns.builtin("Class", ns.ModuleClass, KindClass)
	ns.StringClass = ns.builtin("String", ns.Object, KindString)
	ns.Symbol = ns.builtin("Symbol", ns.Object, KindSymbol)
	ns.Array = ns.builtin("Array", ns.Object, KindArray)
	ns.Hash = ns.builtin("Hash", ns.Object, KindHash)
	ns.Regexp = ns.builtin("Regexp", ns.Object, KindRegexp)
	ns.Struct = ns.builtin("Struct", ns.Object, KindStruct)
	ns.Integer = ns.builtin("Integer", ns.Object, KindInteger)
	ns.Float = ns.builtin("Float", ns.Object, KindFloat)
	ns.NilClass = ns.builtin("NilClass", ns.Object, KindNil)
	ns.TrueClass = ns.builtin("TrueClass", ns.Object, KindTrue)
	ns.FalseClass = ns.builtin("FalseClass", ns.Object, KindFalse)

	ns.Kernel = &Module{name: "Kernel", consts: make(map[string]Value)}
	ns.Comparable = &Module{name: "Comparable", consts: make(map[string]Value)}
	ns.Enumerable = &Module{name: "Enumerable", consts: make(map[string]Value)}

	for _, c := range []*Class{
		ns.BasicObject, ns.Object, ns.ModuleClass, ns.ClassClass,
		ns.StringClass, ns.Symbol, ns.Array, ns.Hash, ns.Regexp, ns.Struct,
		ns.Integer, ns.Float, ns.NilClass, ns.TrueClass, ns.FalseClass,
	} {
		ns.Object.consts[c.name] = c
	}
	for _, m := range []*Module{ns.Kernel, ns.Comparable, ns.Enumerable} {
		ns.Object.consts[m.name] = m
	}

	return ns
}

// Namespace maps qualified names to classes, modules and constants, and holds the custom encode hooks for classes.
// It is safe for concurrent use.
type Namespace struct {
	BasicObject *Class
	Object      *Class
	ModuleClass *Class
	ClassClass  *Class
	StringClass *Class
	Symbol      *Class
	Array       *Class
	Hash        *Class
	Regexp      *Class
	Struct      *Class
	Integer     *Class
	Float       *Class
	NilClass    *Class
	TrueClass   *Class
	FalseClass  *Class

	Kernel     *Module
	Comparable *Module
	Enumerable *Module

	mu         sync.RWMutex
	hooks      map[*Class]Hook
	bound      map[reflect.Type]*Class
	restricted bool
}

func (ns *Namespace) builtin(name string, super *Class, kind Kind) *Class {
	c := NewClass(super)
	c.name = name
	c.kind = kind
	c.builtin = true
	return c
}

func moduleOf(v Value) *Module {
	switch v := v.(type) {
	case *Module:
		return v
	case *Class:
		return &v.Module
	}
	return nil
}

// Resolve returns the value bound to a "::"-separated qualified name.
// Each segment is looked up in the module named by the preceding segments, starting at Object.
//
// If a segment isn't bound, ErrUnresolvedName is returned naming the shortest missing prefix.
// If a preceding segment is bound to something other than a class or module, ErrWrongKind is returned.
func (ns *Namespace) Resolve(path string) (Value, error) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return ns.resolve(path)
}

func (ns *Namespace) resolve(path string) (Value, error) {
	segs := strings.Split(path, "::")

	var cur Value = ns.Object
	for i, seg := range segs {
		mod := moduleOf(cur)
		if mod == nil {
			return nil, encio.Errorf(encio.ErrWrongKind, "%v does not refer to class/module", strings.Join(segs[:i], "::"))
		}

		v, ok := mod.consts[seg]
		if !ok || seg == "" {
			return nil, encio.Errorf(encio.ErrUnresolvedName, "%v", strings.Join(segs[:i+1], "::"))
		}
		cur = v
	}
	return cur, nil
}

// ResolveClass is Resolve for names that must refer to a class.
func (ns *Namespace) ResolveClass(path string) (*Class, error) {
	v, err := ns.Resolve(path)
	if err != nil {
		return nil, err
	}
	c, ok := v.(*Class)
	if !ok {
		return nil, encio.Errorf(encio.ErrWrongKind, "%v does not refer to class", path)
	}
	return c, nil
}

// ResolveModule is Resolve for names that must refer to a module that isn't a class.
func (ns *Namespace) ResolveModule(path string) (*Module, error) {
	v, err := ns.Resolve(path)
	if err != nil {
		return nil, err
	}
	m, ok := v.(*Module)
	if !ok {
		return nil, encio.Errorf(encio.ErrWrongKind, "%v does not refer to module", path)
	}
	return m, nil
}

// parent resolves the enclosing module of path, returning it and the last segment.
func (ns *Namespace) parent(path string) (*Module, string, error) {
	i := strings.LastIndex(path, "::")
	if i < 0 {
		if path == "" {
			return nil, "", encio.NewError(encio.ErrUnresolvedName, "empty name", 1)
		}
		return &ns.Object.Module, path, nil
	}

	v, err := ns.resolve(path[:i])
	if err != nil {
		return nil, "", err
	}
	mod := moduleOf(v)
	if mod == nil {
		return nil, "", encio.Errorf(encio.ErrWrongKind, "%v is not a class/module", path[:i])
	}
	if path[i+2:] == "" {
		return nil, "", encio.Errorf(encio.ErrUnresolvedName, "%v", path)
	}
	return mod, path[i+2:], nil
}

// DefineModule defines, or returns the existing, module bound to path.
// The enclosing module must already exist.
func (ns *Namespace) DefineModule(path string) (*Module, error) {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	parent, name, err := ns.parent(path)
	if err != nil {
		return nil, err
	}

	if existing, ok := parent.consts[name]; ok {
		m, ok := existing.(*Module)
		if !ok {
			return nil, encio.Errorf(encio.ErrWrongKind, "%v is not a module", path)
		}
		return m, nil
	}

	m := &Module{name: parent.qualify(name), consts: make(map[string]Value)}
	parent.consts[name] = m
	return m, nil
}

// DefineClass defines, or returns the existing, class bound to path.
// super defaults to Object; an existing class with a different superclass returns ErrWrongKind.
func (ns *Namespace) DefineClass(path string, super *Class) (*Class, error) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	return ns.defineClass(path, super)
}

func (ns *Namespace) defineClass(path string, super *Class) (*Class, error) {
	if super == nil {
		super = ns.Object
	}

	parent, name, err := ns.parent(path)
	if err != nil {
		return nil, err
	}

	if existing, ok := parent.consts[name]; ok {
		c, ok := existing.(*Class)
		if !ok {
			return nil, encio.Errorf(encio.ErrWrongKind, "%v is not a class", path)
		}
		if c.Super != super {
			return nil, encio.Errorf(encio.ErrWrongKind, "superclass mismatch for class %v", path)
		}
		return c, nil
	}

	c := NewClass(super)
	c.name = parent.qualify(name)
	parent.consts[name] = c
	return c, nil
}

// DefineStruct defines a struct template class with the given members.
// An existing class bound to path must have the same members.
func (ns *Namespace) DefineStruct(path string, members ...Symbol) (*Class, error) {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	c, err := ns.defineClass(path, ns.Struct)
	if err != nil {
		return nil, err
	}

	if c.Members != nil && !sameMembers(c.Members, members) {
		return nil, encio.Errorf(encio.ErrWrongKind, "struct %v already has members %v", path, c.Members)
	}
	c.Members = append([]Symbol{}, members...)
	return c, nil
}

func sameMembers(a, b []Symbol) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// SetConst binds v to path, replacing any existing binding.
// Anonymous classes and modules take the name they are first bound to.
func (ns *Namespace) SetConst(path string, v Value) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	parent, name, err := ns.parent(path)
	if err != nil {
		return err
	}

	if m := moduleOf(v); m != nil && m.name == "" {
		m.name = parent.qualify(name)
	}
	parent.consts[name] = v
	return nil
}

// DefineMissing binds path to a new class or module, creating missing enclosing modules.
// kind selects a module (KindModule), a struct template (KindStruct, with members),
// or a class inheriting from super (anything else).
// It is used by lenient decoding to stand in for names the namespace doesn't know.
func (ns *Namespace) DefineMissing(path string, kind Kind, super *Class, members []Symbol) (Value, error) {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	segs := strings.Split(path, "::")
	for i := 1; i < len(segs); i++ {
		prefix := strings.Join(segs[:i], "::")
		if _, err := ns.resolve(prefix); err == nil {
			continue
		}
		parent, name, err := ns.parent(prefix)
		if err != nil {
			return nil, err
		}
		parent.consts[name] = &Module{name: parent.qualify(name), consts: make(map[string]Value)}
	}

	if v, err := ns.resolve(path); err == nil {
		return v, nil
	}

	switch kind {
	case KindModule:
		parent, name, err := ns.parent(path)
		if err != nil {
			return nil, err
		}
		m := &Module{name: parent.qualify(name), consts: make(map[string]Value)}
		parent.consts[name] = m
		return m, nil
	case KindStruct:
		c, err := ns.defineClass(path, ns.Struct)
		if err != nil {
			return nil, err
		}
		c.Members = append([]Symbol{}, members...)
		return c, nil
	default:
		return ns.defineClass(path, super)
	}
}

// SetHook registers the custom encoding for instances of c and its subclasses.
// A nil hook removes it.
func (ns *Namespace) SetHook(c *Class, hook Hook) error {
	if c == nil {
		return encio.NewError(encio.ErrNilPointer, "SetHook given nil class", 0)
	}

	ns.mu.Lock()
	defer ns.mu.Unlock()

	if ns.restricted {
		return encio.Errorf(encio.ErrSecurity, "cannot register hook for %v", c)
	}

	if hook == nil {
		delete(ns.hooks, c)
		return nil
	}
	ns.hooks[c] = hook
	return nil
}

// Hook returns the custom encoding for instances of c, searching superclasses.
// It returns nil if there isn't one.
func (ns *Namespace) Hook(c *Class) Hook {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	for s := c; s != nil; s = s.Super {
		if hook, ok := ns.hooks[s]; ok {
			return hook
		}
	}
	return nil
}

// Bind makes values with the same Go type as sample instances of c.
func (ns *Namespace) Bind(sample Value, c *Class) error {
	if sample == nil || c == nil {
		return encio.NewError(encio.ErrNilPointer, "Bind given nil", 0)
	}

	ns.mu.Lock()
	defer ns.mu.Unlock()

	if ns.restricted {
		return encio.Errorf(encio.ErrSecurity, "cannot bind %T to %v", sample, c)
	}

	ty := reflect.TypeOf(sample)
	if existing, ok := ns.bound[ty]; ok && existing != c {
		return encio.Errorf(encio.ErrWrongKind, "%v is already bound to %v", ty, existing)
	}
	ns.bound[ty] = c
	return nil
}

// Restrict puts the namespace in restricted-trust mode.
// Afterwards no hooks can be registered or bindings added.
func (ns *Namespace) Restrict() {
	ns.mu.Lock()
	ns.restricted = true
	ns.mu.Unlock()
}

// Restricted reports whether Restrict has been called.
func (ns *Namespace) Restricted() bool {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return ns.restricted
}

// ClassOf returns the class of v.
// It returns false for Go values the namespace has no class for.
func (ns *Namespace) ClassOf(v Value) (*Class, bool) {
	switch v := v.(type) {
	case nil:
		return ns.NilClass, true
	case bool:
		if v {
			return ns.TrueClass, true
		}
		return ns.FalseClass, true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, uintptr, *big.Int:
		return ns.Integer, true
	case float32, float64:
		return ns.Float, true
	case string, []byte:
		return ns.StringClass, true
	case Symbol:
		return ns.Symbol, true
	case *String:
		return ns.orDefault(v.Class, ns.StringClass), true
	case *Array:
		return ns.orDefault(v.Class, ns.Array), true
	case *Hash:
		return ns.orDefault(v.Class, ns.Hash), true
	case *Regexp:
		return ns.orDefault(v.Class, ns.Regexp), true
	case *Object:
		return ns.orDefault(v.Class, ns.Object), true
	case *Struct:
		return ns.orDefault(v.Class, ns.Struct), true
	case *Class:
		return ns.ClassClass, true
	case *Module:
		return ns.ModuleClass, true
	case *Extended:
		return ns.ClassOf(v.Value)
	case *UserData:
		return v.Class, v.Class != nil
	case Instance:
		c := v.InstanceClass()
		return c, c != nil
	}

	ns.mu.RLock()
	c, ok := ns.bound[reflect.TypeOf(v)]
	ns.mu.RUnlock()
	return c, ok
}

func (ns *Namespace) orDefault(c, def *Class) *Class {
	if c == nil {
		return def
	}
	return c
}

// Referable returns an error if m can't be written by name: it is anonymous,
// or its name no longer resolves to it.
func (ns *Namespace) Referable(m Value) (string, error) {
	var name string
	switch m := m.(type) {
	case *Class:
		if m.singleton {
			return "", encio.NewError(encio.ErrNotSerializable, "singleton class can't be dumped", 0)
		}
		if m.name == "" {
			return "", encio.Errorf(encio.ErrNotSerializable, "can't dump anonymous class %v", m)
		}
		name = m.name
	case *Module:
		if m.name == "" {
			return "", encio.Errorf(encio.ErrNotSerializable, "can't dump anonymous module %v", m)
		}
		name = m.name
	default:
		return "", encio.Errorf(encio.ErrWrongKind, "%T is not a class/module", m)
	}

	got, err := ns.Resolve(name)
	if err != nil || got != m {
		return "", encio.Errorf(encio.ErrNotSerializable, "%v can't be referred to", name)
	}
	return name, nil
}

func (ns *Namespace) String() string {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return fmt.Sprintf("Namespace(%v constants, %v hooks)", len(ns.Object.consts), len(ns.hooks))
}
