package types

import (
	"regexp"
	"strings"

	"github.com/stewi1014/marshal/encio"
)

// String is a byte string with an encoding.
type String struct {
	Header
	Bytes    []byte
	Encoding Encoding
}

// NewString returns a UTF-8 String holding s.
func NewString(s string) *String {
	return &String{Bytes: []byte(s), Encoding: UTF8}
}

// NewBinary returns a binary String holding buff.
func NewBinary(buff []byte) *String {
	return &String{Bytes: buff, Encoding: Binary}
}

func (s *String) String() string {
	return string(s.Bytes)
}

// Array is an ordered sequence of values.
type Array struct {
	Header
	Elems []Value
}

// NewArray returns an Array holding elems.
func NewArray(elems ...Value) *Array {
	return &Array{Elems: elems}
}

// Regexp option bits, as written in the options byte.
const (
	RegexpIgnoreCase = 1 << iota
	RegexpExtended
	RegexpMultiline
	_
	RegexpFixedEncoding
	RegexpNoEncoding
)

// Regexp is a pattern source with option bits.
type Regexp struct {
	Header
	Source  []byte
	Options byte

	// Encoding of Source. The zero value is US-ASCII for 7 bit sources and UTF-8 otherwise.
	Encoding Encoding
}

// NewRegexp returns a Regexp for source with the given options.
func NewRegexp(source string, options byte) *Regexp {
	return &Regexp{Source: []byte(source), Options: options}
}

// SourceEncoding returns the encoding of the pattern source.
func (r *Regexp) SourceEncoding() Encoding {
	if r.Encoding != "" {
		return r.Encoding
	}
	if IsASCII(r.Source) {
		return USASCII
	}
	return UTF8
}

// Compile translates the pattern to a Go regexp.
// Case folding and multiline (dot matches newline) map onto the (?i) and (?s) flags,
// ^ and $ always match at line boundaries. Extended (free spacing) patterns are not supported by Go and return ErrWrongKind.
func (r *Regexp) Compile() (*regexp.Regexp, error) {
	if r.Options&RegexpExtended != 0 {
		return nil, encio.Errorf(encio.ErrWrongKind, "extended regexp /%s/x has no Go equivalent", r.Source)
	}

	flags := "m"
	if r.Options&RegexpIgnoreCase != 0 {
		flags += "i"
	}
	if r.Options&RegexpMultiline != 0 {
		flags += "s"
	}

	src := strings.ReplaceAll(string(r.Source), `\Z`, `(?:\n?\z)`)

	re, err := regexp.Compile("(?" + flags + ")" + src)
	if err != nil {
		return nil, encio.Errorf(encio.ErrWrongKind, "%v", err)
	}
	return re, nil
}

// Object is a generic instance with named fields.
type Object struct {
	Header
}

// NewObject returns an instance of class c with no fields.
func NewObject(c *Class) *Object {
	return &Object{Header: Header{Class: c}}
}

// Struct is an instance of a record template; Values are positional, following Class.Members.
type Struct struct {
	Header
	Values []Value
}

// NewStruct returns an instance of the struct class c holding values.
// Missing trailing values are nil.
func NewStruct(c *Class, values ...Value) *Struct {
	s := &Struct{
		Header: Header{Class: c},
		Values: make([]Value, len(c.Members)),
	}
	copy(s.Values, values)
	return s
}

// Get returns the value of the named member.
func (s *Struct) Get(member Symbol) (Value, bool) {
	if s.Class == nil {
		return nil, false
	}
	for i, m := range s.Class.Members {
		if m == member && i < len(s.Values) {
			return s.Values[i], true
		}
	}
	return nil, false
}

// Set sets the value of the named member, returning false if the template doesn't have it.
func (s *Struct) Set(member Symbol, v Value) bool {
	if s.Class == nil {
		return false
	}
	for i, m := range s.Class.Members {
		if m == member {
			for len(s.Values) <= i {
				s.Values = append(s.Values, nil)
			}
			s.Values[i] = v
			return true
		}
	}
	return false
}

// Extended is a value with modules mixed in, for values that don't embed a Header.
type Extended struct {
	Modules []*Module
	Value   Value
}

// UserData holds the payload of a custom-encoded value whose class has no load hook.
// It is only produced by lenient decoding, and is re-encoded unchanged.
type UserData struct {
	Class *Class

	// Opaque is set for values encoded with an OpaqueHook, Data for those encoded with a StructuredHook.
	Opaque *String
	Data   Value
}
