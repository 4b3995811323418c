package jsondoc

import (
	"errors"
	"fmt"
)

// ErrNotObject is returned when a document root must be an object but is not.
var ErrNotObject = errors.New("document root is not a JSON object")

// ErrTooDeep is returned for documents nested deeper than MaxNestingDepth.
var ErrTooDeep = errors.New("document is nested too deeply")

// ParseError describes malformed JSON text.
type ParseError struct {
	// Offset is the byte offset where decoding stopped.
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid JSON at offset %d: %v", e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError reports whether err is (or wraps) a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
