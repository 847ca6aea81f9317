package path

import (
	"errors"
	"fmt"
)

var (
	// ErrPathNotFound indicates a definite (or required) segment found no match.
	ErrPathNotFound = errors.New("path: not found")

	// ErrMapping indicates a candidate could not be converted to the requested shape.
	ErrMapping = errors.New("path: mapping failed")

	// ErrMisuse indicates a programming error such as an unsupported option combination.
	ErrMisuse = errors.New("path: misuse")

	// ErrFunction indicates a path function could not be applied.
	ErrFunction = errors.New("path: function failed")

	// ErrInvalidModification indicates an update targeted an incompatible location.
	ErrInvalidModification = errors.New("path: invalid modification")
)

// Error carries the evaluated path alongside one of the sentinel errors above.
type Error struct {
	Kind error  // one of the package sentinels
	Path string // evaluated path where the condition was detected
	Msg  string
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%v: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%v: %s (path %s)", e.Kind, e.Msg, e.Path)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func notFound(evalPath, format string, args ...any) error {
	return &Error{Kind: ErrPathNotFound, Path: evalPath, Msg: fmt.Sprintf(format, args...)}
}

func misuse(format string, args ...any) error {
	return &Error{Kind: ErrMisuse, Msg: fmt.Sprintf(format, args...)}
}

func functionError(name, format string, args ...any) error {
	return &Error{Kind: ErrFunction, Msg: name + ": " + fmt.Sprintf(format, args...)}
}

func invalidModification(format string, args ...any) error {
	return &Error{Kind: ErrInvalidModification, Msg: fmt.Sprintf(format, args...)}
}
