package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/eugenenazirov/service-starter/internal/document"
)

var (
	// ErrConfigNotFound matches every NotFoundError.
	ErrConfigNotFound = errors.New("configuration file not found")
	// ErrConfigFormat matches every FormatError.
	ErrConfigFormat = document.ErrFormat
	// ErrConfigInvalid matches every ValidationError.
	ErrConfigInvalid = errors.New("invalid configuration")
)

// FormatError reports a configuration file that is not a tree of scalars,
// lists and maps, or whose values do not fit the typed schema.
type FormatError = document.FormatError

// NotFoundError reports a mandatory configuration file that does not exist.
type NotFoundError struct {
	Path string
	Env  Environment
	Err  error
}

func (e *NotFoundError) Error() string {
	if e.Env != "" {
		return fmt.Sprintf("%s: %s (environment %q)", ErrConfigNotFound, e.Path, e.Env)
	}
	return fmt.Sprintf("%s: %s", ErrConfigNotFound, e.Path)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

func (e *NotFoundError) Is(target error) bool { return target == ErrConfigNotFound }

// ValidationError lists every problem found in the effective configuration.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrConfigInvalid, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrConfigInvalid }
