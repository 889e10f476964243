package encodable

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/stewi1014/marshal/encio"
	"github.com/stewi1014/marshal/types"
)

// HookError is returned when a custom encode hook fails.
// It matches encio.ErrHook with errors.Is, and unwraps to the hook's own error.
// Printing it with %+v includes the stack where the failure was seen.
type HookError struct {
	Class  *types.Class
	Method string
	Err    error
}

func newHookError(c *types.Class, method string, err error) *HookError {
	return &HookError{
		Class:  c,
		Method: method,
		Err:    errors.WithStack(err),
	}
}

// Error implements error
func (e *HookError) Error() string {
	return fmt.Sprintf("%v: %v hook for %v: %v", encio.ErrHook, e.Method, e.Class, errors.Cause(e.Err))
}

// Format implements fmt.Formatter
func (e *HookError) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		fmt.Fprintf(s, "%v: %v hook for %v: %+v", encio.ErrHook, e.Method, e.Class, e.Err)
		return
	}
	fmt.Fprint(s, e.Error())
}

// Unwrap implements errors's Unwrap()
func (e *HookError) Unwrap() error {
	return e.Err
}

// Is matches encio.ErrHook
func (e *HookError) Is(target error) bool {
	return target == encio.ErrHook
}

// hookOf returns the hook registered for c, in a single form.
func hookOf(ns *types.Namespace, c *types.Class) types.Hook {
	switch h := ns.Hook(c).(type) {
	case *types.OpaqueHook:
		if h == nil {
			return nil
		}
		return *h
	case *types.StructuredHook:
		if h == nil {
			return nil
		}
		return *h
	default:
		return h
	}
}

// restricted reports whether hooks are denied, by config or by a restricted namespace.
func restricted(config *Config, ns *types.Namespace) bool {
	return config.Restricted || ns.Restricted()
}

// dispatch reports whether load hooks may be called, and the error to return if they can't.
func (s *decodeState) dispatch(c *types.Class) (bool, error) {
	if !restricted(s.config, s.ns) {
		return true, nil
	}
	if s.config.Lenient {
		s.config.Logger.Debug("load hook denied, keeping raw payload", "class", c.String())
		return false, nil
	}
	return false, encio.Errorf(encio.ErrSecurity, "load hook for %v", c)
}

func (s *decodeState) loadOpaque(c *types.Class, hook types.OpaqueHook, data *types.String) (types.Value, error) {
	if hook.Load == nil {
		return nil, encio.Errorf(encio.ErrMissingLoadHook, "class %v needs an opaque Load hook", c)
	}
	s.config.Logger.Debug("calling opaque load hook", "class", c.String(), "bytes", len(data.Bytes))

	v, err := hook.Load(c, data)
	if err != nil {
		return nil, newHookError(c, "Load", err)
	}
	return v, nil
}

func (s *decodeState) loadStructured(c *types.Class, hook types.StructuredHook, v, data types.Value) error {
	if hook.Load == nil {
		return encio.Errorf(encio.ErrMissingLoadHook, "instance of %v needs a structured Load hook", c)
	}
	s.config.Logger.Debug("calling structured load hook", "class", c.String())

	if err := hook.Load(v, data); err != nil {
		return newHookError(c, "Load", err)
	}
	return nil
}

func (s *encodeState) dumpOpaque(c *types.Class, hook types.OpaqueHook, v types.Value, limit int) (*types.String, error) {
	if hook.Dump == nil {
		return nil, encio.Errorf(encio.ErrNotSerializable, "class %v has no opaque Dump hook", c)
	}

	data, err := hook.Dump(v, limit)
	if err != nil {
		return nil, newHookError(c, "Dump", err)
	}
	if data == nil {
		return nil, newHookError(c, "Dump", errors.New("returned nil data"))
	}
	return data, nil
}

func (s *encodeState) dumpStructured(c *types.Class, hook types.StructuredHook, v types.Value) (types.Value, error) {
	if hook.Dump == nil {
		return nil, encio.Errorf(encio.ErrNotSerializable, "class %v has no structured Dump hook", c)
	}

	data, err := hook.Dump(v)
	if err != nil {
		return nil, newHookError(c, "Dump", err)
	}
	return data, nil
}
