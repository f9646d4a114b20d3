package spec

import (
	"errors"
	"fmt"
	"strings"
)

// Errors returned by parsing and validation.
var (
	// ErrUnknownFormat indicates the document format could not be determined.
	ErrUnknownFormat = errors.New("unknown spec format")

	// ErrInvalidSpec indicates the specification failed validation.
	ErrInvalidSpec = errors.New("invalid spec")
)

// ParseError represents an error while parsing a specification document.
type ParseError struct {
	// Source is the file path or "<reader>".
	Source string
	// Syntax is the document syntax.
	Syntax Syntax
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s spec %s: %v", e.Syntax, e.Source, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Problem is one validation failure.
type Problem struct {
	// Path locates the offending element, e.g. "signals[2].update".
	Path string
	// Message describes the failure.
	Message string
}

func (p Problem) String() string {
	return p.Path + ": " + p.Message
}

// ValidationError lists every problem found in a specification.
type ValidationError struct {
	Problems []Problem
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.String()
	}
	return "invalid spec: " + strings.Join(parts, "; ")
}

// Is matches ErrInvalidSpec.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidSpec
}
