package jsonpath

import "errors"

var (
	// ErrSyntax indicates a path expression syntax error during compilation.
	ErrSyntax = errors.New("jsonpath: syntax error")

	// ErrNotSupported indicates a path feature the compiler does not implement.
	ErrNotSupported = errors.New("jsonpath: feature not supported")
)
