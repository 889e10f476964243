package marshal

import (
	"github.com/stewi1014/marshal/bind"
	"github.com/stewi1014/marshal/types"
)

// DefaultNamespace is the Namespace used when Config.Namespace is nil, and by the package level functions.
var DefaultNamespace = types.NewNamespace()

// DefineClass binds path to a new class inheriting from super, or returns the existing class.
// It is a shortcut for DefaultNamespace.DefineClass()
func DefineClass(path string, super *types.Class) (*types.Class, error) {
	return DefaultNamespace.DefineClass(path, super)
}

// DefineModule is a shortcut for DefaultNamespace.DefineModule()
func DefineModule(path string) (*types.Module, error) {
	return DefaultNamespace.DefineModule(path)
}

// DefineStruct is a shortcut for DefaultNamespace.DefineStruct()
func DefineStruct(path string, members ...types.Symbol) (*types.Class, error) {
	return DefaultNamespace.DefineStruct(path, members...)
}

// SetHook registers a custom encoding for c.
// It is a shortcut for DefaultNamespace.SetHook()
func SetHook(c *types.Class, hook types.Hook) error {
	return DefaultNamespace.SetHook(c, hook)
}

// Bind makes values of sample's Go type instances of c.
// It is a shortcut for DefaultNamespace.Bind()
func Bind(sample types.Value, c *types.Class) error {
	return DefaultNamespace.Bind(sample, c)
}

// BindStruct defines the class path, inheriting from Object, and binds the struct type sample points to to it,
// so its exported fields encode as members. See package bind.
func BindStruct(path string, sample interface{}) (*types.Class, error) {
	c, err := DefaultNamespace.DefineClass(path, DefaultNamespace.Object)
	if err != nil {
		return nil, err
	}
	return c, bind.Struct(DefaultNamespace, c, sample)
}
