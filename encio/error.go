package encio

import (
	"errors"
	"fmt"
	"io"
	"runtime"
)

// Error handling in marshal is designed to provide an easy way to distinguish io errors from bad data and unencodable values,
// and to reuse a small set of common error kinds for as many errors as possible, with extra information wrapped as applicable.
// Panics are only used when there is a clear misuse of the library; programmer error.
// To this end, all error cases are grouped into two error wrappers; IOError and Error, the idea being that
// IOError errors indicate a bad io.Reader/io.Writer, and the caller should stop using it, and
// Error errors indicate the value or stream given to an encode or decode call cannot be processed.
//
// Errors can be checked with
//
//	if errors.Is(err, encio.ErrTruncated) {
//		// stream ended mid-value
//	} else if errors.Is(err, encio.ErrUnresolvedName) {
//		// a class named by the stream is missing
//	}
//
// These errors will be wrapped by IOError or Error.
var (
	// ErrEmptyInput is returned when a stream ends before the first byte of the header.
	// It wraps io.EOF so that sequential decodes from one stream can stop cleanly.
	ErrEmptyInput = fmt.Errorf("empty input: %w", io.EOF)

	// ErrTruncated is returned when fewer bytes are available than a tag's payload declares.
	ErrTruncated = fmt.Errorf("marshal data too short: %w", io.ErrUnexpectedEOF)

	// ErrVersionMismatch is returned when the stream header is outside the supported format range.
	ErrVersionMismatch = errors.New("incompatible marshal format")

	// ErrUnknownTag is returned for tag bytes that do not identify any value kind.
	ErrUnknownTag = errors.New("dump format error")

	// ErrMalformed is returned when a payload is impossible to decode, such as a negative length or unparsable float text.
	ErrMalformed = errors.New("malformed")

	// ErrUnresolvedName is returned when a qualified name does not exist in the namespace.
	ErrUnresolvedName = errors.New("undefined class/module")

	// ErrWrongKind is returned when a name exists but is bound to the wrong sort of value,
	// or when decoded data does not fit the class it names.
	ErrWrongKind = errors.New("wrong kind")

	// ErrMissingLoadHook is returned when a class named by a custom node has no matching load hook.
	ErrMissingLoadHook = errors.New("missing load hook")

	// ErrBadBackRef is returned when a back-reference indexes past the end of its table.
	ErrBadBackRef = errors.New("bad back-reference")

	// ErrNotSerializable is returned when a value has no admissible encoding.
	ErrNotSerializable = errors.New("not serializable")

	// ErrDepthExceeded is returned when the encode depth limit is reached.
	ErrDepthExceeded = errors.New("exceed depth limit")

	// ErrSecurity is returned when restricted-trust mode denies hook registration or dispatch.
	ErrSecurity = errors.New("denied by security policy")

	// ErrHook is matched by errors returned from user hooks.
	ErrHook = errors.New("hook failed")

	// ErrNilPointer is returned if a pointer that should not be nil is nil.
	ErrNilPointer = errors.New("nil pointer")
)

// NewIOError returns an IOError wrapping err with the given message.
// err is typically the error returned from the io.Reader/io.Writer, or another error describing why the reader isn't operating correctly.
// message has extra information about the error; if empty, it is filled with the calling function's name.
func NewIOError(err error, rw interface{}, message string, depth int) error {
	if err == nil {
		return NewError(errors.New("unknown error"), "trying to create new IOError", 0)
	}
	if message == "" {
		message = "in " + GetCaller(depth+1)
	}
	if rw != nil {
		message = fmt.Sprintf("%T: %v", rw, message)
	}

	return IOError{
		Err:     err,
		Message: message,
	}
}

// IOError is returned when io errors occur.
type IOError struct {
	Err     error
	Message string
}

// Error implements error
func (e IOError) Error() string {
	if e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// Unwrap implements errors's Unwrap()
func (e IOError) Unwrap() error {
	return e.Err
}

// NewError returns an Error wrapping err with message and the name of the calling function.
// depth is the number of extra stack frames to skip when naming the caller.
func NewError(err error, message string, depth int) error {
	return Error{
		Err:     err,
		Message: message,
		Caller:  GetCaller(depth + 1),
	}
}

// Errorf is NewError with a formatted message.
func Errorf(err error, format string, args ...interface{}) error {
	return Error{
		Err:     err,
		Message: fmt.Sprintf(format, args...),
		Caller:  GetCaller(1),
	}
}

// Error is returned when a value or stream cannot be encoded or decoded.
type Error struct {
	Err     error
	Message string
	Caller  string
}

// Error implements error
func (e Error) Error() (str string) {
	if e.Caller != "" {
		str = e.Caller + ": "
	}

	str += e.Err.Error()

	if e.Message != "" {
		str += " (" + e.Message + ")"
	}

	return str
}

// Unwrap implements errors's Unwrap()
func (e Error) Unwrap() error {
	return e.Err
}

// GetCaller returns the name of the calling function, skipping skip functions.
// i.e. 0 writes the calling function, 1 the function calling that etc...
func GetCaller(skip int) string {
	pcs := make([]uintptr, 1)
	n := runtime.Callers(2+skip, pcs)
	if n != 1 {
		return "Unknown Function"
	}

	frames := runtime.CallersFrames(pcs)
	frame, _ := frames.Next()
	return frame.Function
}
