package document

import (
	"errors"
	"fmt"
)

// ErrFormat matches every FormatError via errors.Is.
var ErrFormat = errors.New("malformed configuration document")

// FormatError reports a document that is not a tree of scalars, lists and
// maps, or that cannot be decoded into the requested type.
type FormatError struct {
	Source string
	Line   int
	Err    error
}

func (e *FormatError) Error() string {
	switch {
	case e.Source != "" && e.Line > 0:
		return fmt.Sprintf("%s: %s:%d: %v", ErrFormat, e.Source, e.Line, e.Err)
	case e.Source != "":
		return fmt.Sprintf("%s: %s: %v", ErrFormat, e.Source, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("%s: line %d: %v", ErrFormat, e.Line, e.Err)
	default:
		return fmt.Sprintf("%s: %v", ErrFormat, e.Err)
	}
}

func (e *FormatError) Unwrap() error { return e.Err }

func (e *FormatError) Is(target error) bool { return target == ErrFormat }
