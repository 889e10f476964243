package types

// Hook is a class-level custom encoding. It is one of OpaqueHook or StructuredHook.
type Hook interface {
	isHook()
}

// OpaqueHook encodes instances as a byte string in a format of the class's own choosing.
type OpaqueHook struct {
	// Dump returns the bytes for v. depth is the remaining depth limit, negative when unbounded.
	// The returned String's encoding and fields are written alongside the bytes.
	Dump func(v Value, depth int) (*String, error)

	// Load builds a new instance of c from data.
	Load func(c *Class, data *String) (Value, error)
}

// StructuredHook encodes instances as a substitute value, which is encoded normally.
type StructuredHook struct {
	// Dump returns the substitute for v.
	Dump func(v Value) (Value, error)

	// Load restores v from the decoded substitute. v was created by Class.Allocate.
	Load func(v Value, data Value) error
}

func (OpaqueHook) isHook()     {}
func (StructuredHook) isHook() {}

// Instance is implemented by host values that know their class.
type Instance interface {
	InstanceClass() *Class
}
