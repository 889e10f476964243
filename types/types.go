// Package types is the host value model for marshal streams.
//
// Immediate values map onto plain Go values: nil, bool, the integer kinds, the float kinds and Symbol.
// Go strings and byte slices are accepted on encode as anonymous UTF-8 and binary strings.
// Reference values with identity are pointers to the types in this package;
// two pointers to the same String, Array, Hash, etc. are encoded once and linked thereafter.
//
// Class and module names are resolved through a Namespace, which also holds the custom encode hooks.
package types

import "strconv"

// Value is any value that can appear in an object graph.
type Value = interface{}

// Symbol is an interned name. Symbols are encoded once per stream and linked thereafter.
type Symbol string

// Kind is the built-in representation a class's instances use.
type Kind uint8

// Kinds
const (
	KindObject Kind = iota
	KindString
	KindArray
	KindHash
	KindRegexp
	KindStruct
	KindModule
	KindClass
	KindSymbol
	KindInteger
	KindFloat
	KindNil
	KindTrue
	KindFalse
)

var kindNames = [...]string{
	KindObject:  "Object",
	KindString:  "String",
	KindArray:   "Array",
	KindHash:    "Hash",
	KindRegexp:  "Regexp",
	KindStruct:  "Struct",
	KindModule:  "Module",
	KindClass:   "Class",
	KindSymbol:  "Symbol",
	KindInteger: "Integer",
	KindFloat:   "Float",
	KindNil:     "NilClass",
	KindTrue:    "TrueClass",
	KindFalse:   "FalseClass",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Encoding names a character encoding.
// Binary strings carry no encoding on the wire; UTF8 and USASCII have short forms,
// and anything else is written by name.
type Encoding string

// Encodings with special wire forms.
const (
	Binary  Encoding = "ASCII-8BIT"
	UTF8    Encoding = "UTF-8"
	USASCII Encoding = "US-ASCII"
)

// Canonical returns e, with the zero value replaced by Binary.
func (e Encoding) Canonical() Encoding {
	if e == "" {
		return Binary
	}
	return e
}

// IsASCII reports whether buff only holds 7 bit bytes.
func IsASCII(buff []byte) bool {
	for _, b := range buff {
		if b >= 0x80 {
			return false
		}
	}
	return true
}
