package types

import (
	"fmt"
)

// Module is a named container of constants, and a mixin.
// Modules are created by a Namespace; anonymous modules from NewModule can't be encoded.
type Module struct {
	name   string
	consts map[string]Value
}

// NewModule returns an anonymous module.
func NewModule() *Module {
	return &Module{consts: make(map[string]Value)}
}

// Name returns the fully qualified name of the module, or "" if it is anonymous.
func (m *Module) Name() string {
	return m.name
}

// IsAnonymous reports whether the module has no name.
func (m *Module) IsAnonymous() bool {
	return m.name == ""
}

func (m *Module) String() string {
	if m.name == "" {
		return fmt.Sprintf("#<Module:%p>", m)
	}
	return m.name
}

func (m *Module) qualify(name string) string {
	if m.name == "" || m.name == "Object" {
		return name
	}
	return m.name + "::" + name
}

// Class is a Module that can have instances.
type Class struct {
	Module

	// Super is the parent class; nil only for the root class.
	Super *Class

	// Members are the ordered member names of a struct template.
	Members []Symbol

	// New allocates an instance without running any initialization.
	// It is inherited by subclasses; nil uses the built-in representation for the class's kind.
	New func(c *Class) Value

	kind      Kind
	builtin   bool
	singleton bool
}

// NewClass returns an anonymous class inheriting from super.
func NewClass(super *Class) *Class {
	c := &Class{
		Module: Module{consts: make(map[string]Value)},
		Super:  super,
	}
	if super != nil {
		c.kind = super.kind
		c.Members = super.Members
	}
	return c
}

// NewSingletonClass returns the per-instance class of a value with its own behaviour.
// Singleton classes can't be encoded.
func NewSingletonClass(of *Class) *Class {
	c := NewClass(of)
	c.singleton = true
	return c
}

func (c *Class) String() string {
	if c.name == "" {
		return fmt.Sprintf("#<Class:%p>", c)
	}
	return c.name
}

// Kind returns the built-in representation used by instances of c.
func (c *Class) Kind() Kind {
	return c.kind
}

// IsBuiltin reports whether c is one of the classes every Namespace starts with.
func (c *Class) IsBuiltin() bool {
	return c.builtin
}

// IsSingleton reports whether c is a per-instance class.
func (c *Class) IsSingleton() bool {
	return c.singleton
}

// Inherits reports whether c is other or one of its descendants.
func (c *Class) Inherits(other *Class) bool {
	for s := c; s != nil; s = s.Super {
		if s == other {
			return true
		}
	}
	return false
}

// Allocate returns a new, uninitialized instance of c.
func (c *Class) Allocate() Value {
	for s := c; s != nil; s = s.Super {
		if s.New != nil {
			return s.New(c)
		}
	}

	h := Header{Class: c}
	switch c.kind {
	case KindString:
		return &String{Header: h}
	case KindArray:
		return &Array{Header: h}
	case KindHash:
		return &Hash{Header: h}
	case KindRegexp:
		return &Regexp{Header: h}
	case KindStruct:
		return &Struct{Header: h, Values: make([]Value, len(c.Members))}
	default:
		return &Object{Header: h}
	}
}
