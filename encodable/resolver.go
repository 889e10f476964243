package encodable

import (
	"errors"

	"github.com/stewi1014/marshal/encio"
	"github.com/stewi1014/marshal/types"
)

// Resolver maps qualified class and module names read from a stream to values.
// *types.Namespace is the usual implementation.
type Resolver interface {
	// Resolve returns the value bound to path.
	// It returns an error wrapping encio.ErrUnresolvedName if the name isn't bound,
	// or encio.ErrWrongKind if an enclosing name isn't a class or module.
	Resolve(path string) (types.Value, error)
}

// Definer is implemented by Resolvers that can stand in for unknown names.
// It is only used when Config.Lenient is set.
type Definer interface {
	DefineMissing(path string, kind types.Kind, super *types.Class, members []types.Symbol) (types.Value, error)
}

// lookup resolves path, returning nil with no error if the name is unbound and can be defined later.
func (s *decodeState) lookup(path string) (types.Value, error) {
	v, err := s.resolver.Resolve(path)
	if err == nil {
		return v, nil
	}

	if s.config.Lenient && errors.Is(err, encio.ErrUnresolvedName) {
		if _, ok := s.resolver.(Definer); ok {
			return nil, nil
		}
	}
	return nil, err
}

// define stands in for an unbound name.
func (s *decodeState) define(path string, kind types.Kind, super *types.Class, members []types.Symbol) (types.Value, error) {
	v, err := s.resolver.(Definer).DefineMissing(path, kind, super, members)
	if err != nil {
		return nil, err
	}
	s.config.Logger.Debug("defined missing name", "name", path, "kind", kind.String())
	return v, nil
}

// resolveClass resolves path to a class, defining it as a subclass of super if needed.
func (s *decodeState) resolveClass(path string, kind types.Kind, super *types.Class) (*types.Class, error) {
	v, err := s.lookup(path)
	if err != nil {
		return nil, err
	}
	if v == nil {
		if v, err = s.define(path, kind, super, nil); err != nil {
			return nil, err
		}
	}

	c, ok := v.(*types.Class)
	if !ok {
		return nil, encio.Errorf(encio.ErrWrongKind, "%v does not refer to class", path)
	}
	return c, nil
}

// resolveModule resolves path to a module that isn't a class, defining it if needed.
func (s *decodeState) resolveModule(path string) (*types.Module, error) {
	v, err := s.lookup(path)
	if err != nil {
		return nil, err
	}
	if v == nil {
		if v, err = s.define(path, types.KindModule, nil, nil); err != nil {
			return nil, err
		}
	}

	m, ok := v.(*types.Module)
	if !ok {
		return nil, encio.Errorf(encio.ErrWrongKind, "%v does not refer to module", path)
	}
	return m, nil
}
