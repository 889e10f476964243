package types

// FieldReflector is implemented by values carrying named fields (instance variables).
// Names conventionally start with '@'; names without it are internal attributes, and are encoded all the same.
// The names E and encoding on strings, regexps and symbols, and K on hashes, are reserved for the wire format.
type FieldReflector interface {
	// FieldNames returns the names of set fields, in the order they were first set.
	FieldNames() []Symbol
	// Field returns the value of the named field.
	Field(name Symbol) (Value, bool)
	// SetField sets the named field, appending it if it is new.
	SetField(name Symbol, v Value)
}

// Field is a single named value.
type Field struct {
	Name  Symbol
	Value Value
}

// Fields is an insertion-ordered set of fields, implementing FieldReflector.
// The zero value is empty and ready to use.
type Fields struct {
	list []Field
}

// FieldNames implements FieldReflector.
func (f *Fields) FieldNames() []Symbol {
	names := make([]Symbol, len(f.list))
	for i := range f.list {
		names[i] = f.list[i].Name
	}
	return names
}

// Field implements FieldReflector.
func (f *Fields) Field(name Symbol) (Value, bool) {
	for i := range f.list {
		if f.list[i].Name == name {
			return f.list[i].Value, true
		}
	}
	return nil, false
}

// SetField implements FieldReflector.
func (f *Fields) SetField(name Symbol, v Value) {
	for i := range f.list {
		if f.list[i].Name == name {
			f.list[i].Value = v
			return
		}
	}
	f.list = append(f.list, Field{Name: name, Value: v})
}

// DeleteField removes the named field, returning false if it wasn't set.
func (f *Fields) DeleteField(name Symbol) bool {
	for i := range f.list {
		if f.list[i].Name == name {
			f.list = append(f.list[:i], f.list[i+1:]...)
			return true
		}
	}
	return false
}

// NumFields returns the number of set fields.
func (f *Fields) NumFields() int {
	return len(f.list)
}

// Header is the state shared by all built-in reference values.
type Header struct {
	// Class is the value's class. nil means the built-in class for the value's kind.
	// Setting it to a class derived from the built-in marks the value as an instance of that class.
	Class *Class

	// Extended lists modules mixed into this value alone, most recently added first.
	Extended []*Module

	// Singleton marks values with per-instance behaviour. They cannot be encoded.
	Singleton bool

	Fields
}

func (h *Header) header() *Header { return h }

type headed interface {
	header() *Header
}

// HeaderOf returns the Header of v, or nil if v doesn't have one.
// Types outside this package gain a Header by embedding it.
func HeaderOf(v Value) *Header {
	if h, ok := v.(headed); ok {
		return h.header()
	}
	return nil
}
