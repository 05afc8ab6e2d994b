package errors

import (
	"bufio"
	"fmt"
	"os"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig Category = "config"
	CategoryCLI    Category = "cli"
	CategoryRoute  Category = "route"
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

// LinkError is a structured error with a location and a suggestion.
type LinkError struct {
	// Code is a unique error identifier (e.g., "E101").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is the file position where the error occurred.
	Location *Location

	// Context contains the lines surrounding Location.
	Context []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Example shows the correct form.
	Example string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *LinkError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *LinkError) Unwrap() error {
	return e.Wrapped
}

// WithLocation adds a file position and the surrounding lines.
func (e *LinkError) WithLocation(file string, line, column int) *LinkError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = readContextLines(file, line, 5)
	return e
}

// WithOffset adds the file position of a byte offset, as reported by
// encoding/json syntax errors.
func (e *LinkError) WithOffset(file string, data []byte, offset int64) *LinkError {
	line, col := 1, 1
	for i := int64(0); i < offset && i < int64(len(data)); i++ {
		if data[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return e.WithLocation(file, line, col)
}

// WithSuggestion adds a fix suggestion to the error.
func (e *LinkError) WithSuggestion(s string) *LinkError {
	e.Suggestion = s
	return e
}

// WithExample adds an example of the correct form.
func (e *LinkError) WithExample(ex string) *LinkError {
	e.Example = ex
	return e
}

// WithDetail replaces the detailed explanation.
func (e *LinkError) WithDetail(d string) *LinkError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *LinkError) Wrap(err error) *LinkError {
	e.Wrapped = err
	return e
}

// readContextLines reads contextSize lines centered on targetLine.
func readContextLines(filename string, targetLine, contextSize int) []string {
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := targetLine - contextSize/2
	endLine := targetLine + contextSize/2

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}
	return lines
}

// New creates a LinkError from a registered error code.
func New(code string) *LinkError {
	template, ok := registry[code]
	if !ok {
		return &LinkError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &LinkError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// Newf creates a LinkError with a formatted message and no code.
func Newf(category Category, format string, args ...any) *LinkError {
	return &LinkError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps err in a LinkError with the given code. A LinkError is
// returned unchanged.
func FromError(err error, code string) *LinkError {
	if err == nil {
		return nil
	}
	if le, ok := err.(*LinkError); ok {
		return le
	}
	return New(code).Wrap(err)
}
