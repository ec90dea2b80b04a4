package errors

import (
	stderrors "errors"
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryCompile   Category = "compile"
	CategoryRuntime   Category = "runtime"
	CategoryComponent Category = "component"
	CategoryConfig    Category = "config"
	CategoryCLI       Category = "cli"
)

// Location represents a position in a file.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// GalliaError is a structured error with source context, suggestions, and
// documentation.
type GalliaError struct {
	// Code is a unique error identifier (e.g., "G001").
	Code string

	// Category is the error type (compile, runtime, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is the file position where the error occurred, if known.
	Location *Location

	// Source is the offending expression or attribute text.
	Source string

	// Offset is the byte offset into Source; -1 when unknown.
	Offset int

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *GalliaError) Error() string {
	msg := e.Message
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *GalliaError) Unwrap() error {
	return e.Wrapped
}

// WithLocation adds a file position to the error.
func (e *GalliaError) WithLocation(file string, line, column int) *GalliaError {
	e.Location = &Location{File: file, Line: line, Column: column}
	return e
}

// WithSource records the offending source text and the offset into it.
func (e *GalliaError) WithSource(src string, offset int) *GalliaError {
	e.Source = src
	e.Offset = offset
	return e
}

// Withf appends formatted context, such as the failing path, to the
// message.
func (e *GalliaError) Withf(format string, args ...any) *GalliaError {
	e.Message += ": " + fmt.Sprintf(format, args...)
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *GalliaError) WithSuggestion(s string) *GalliaError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *GalliaError) WithDetail(d string) *GalliaError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *GalliaError) Wrap(err error) *GalliaError {
	e.Wrapped = err
	return e
}

// New creates a GalliaError from a registered error code.
func New(code string) *GalliaError {
	template, ok := registry[code]
	if !ok {
		return &GalliaError{
			Code:    code,
			Message: "Unknown error",
			Offset:  -1,
		}
	}
	return &GalliaError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
		Offset:   -1,
	}
}

// Newf creates a new GalliaError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *GalliaError {
	return &GalliaError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
		Offset:   -1,
	}
}

// FromError wraps a standard error in a GalliaError. Errors that already
// are (or wrap) a GalliaError are returned as that error.
func FromError(err error, code string) *GalliaError {
	if err == nil {
		return nil
	}
	var ge *GalliaError
	if stderrors.As(err, &ge) {
		return ge
	}
	return New(code).Wrap(err)
}

// HasCode reports whether err is, or wraps, a GalliaError with code.
func HasCode(err error, code string) bool {
	for err != nil {
		var ge *GalliaError
		if !stderrors.As(err, &ge) {
			return false
		}
		if ge.Code == code {
			return true
		}
		err = ge.Wrapped
	}
	return false
}
