package errors

import (
	"fmt"
	"time"
)

// ErrorType classifies failures in the analysis pipeline
type ErrorType string

const (
	// Scanning and parsing errors
	ErrorTypeScan  ErrorType = "scan"
	ErrorTypeParse ErrorType = "parse"

	// Symbol index errors
	ErrorTypeIndex ErrorType = "index"

	// File errors
	ErrorTypeFileNotFound ErrorType = "file_not_found"
	ErrorTypePermission   ErrorType = "permission"

	// Configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// ScanError represents a failure while discovering source files
type ScanError struct {
	Type       ErrorType
	Root       string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewScanError creates a new scan error with context
func NewScanError(op, root string, err error) *ScanError {
	return &ScanError{
		Type:       ErrorTypeScan,
		Root:       root,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ScanError) Error() string {
	return fmt.Sprintf("%s %s failed for %s: %v", e.Type, e.Operation, e.Root, e.Underlying)
}

// Unwrap returns the underlying error for errors.Is/As
func (e *ScanError) Unwrap() error {
	return e.Underlying
}

// ParseError represents a source parsing error
type ParseError struct {
	Type       ErrorType
	FilePath   string
	Line       int
	Column     int
	Underlying error
	Timestamp  time.Time
}

// NewParseError creates a new parse error
func NewParseError(path string, line, column int, err error) *ParseError {
	return &ParseError{
		Type:       ErrorTypeParse,
		FilePath:   path,
		Line:       line,
		Column:     column,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s:%d:%d: %v", e.FilePath, e.Line, e.Column, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ParseError) Unwrap() error {
	return e.Underlying
}

// IndexError represents a symbol index query or build failure.
// Only a failing initial candidate enumeration is fatal to a run;
// per-declaration index failures degrade to "not found".
type IndexError struct {
	Type       ErrorType
	Query      string
	Fatal      bool
	Underlying error
	Timestamp  time.Time
}

// NewIndexError creates a new index error
func NewIndexError(query string, err error) *IndexError {
	return &IndexError{
		Type:       ErrorTypeIndex,
		Query:      query,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// WithFatal marks the error as fatal to the whole analysis run
func (e *IndexError) WithFatal(fatal bool) *IndexError {
	e.Fatal = fatal
	return e
}

// Error implements the error interface
func (e *IndexError) Error() string {
	return fmt.Sprintf("index query %q failed: %v", e.Query, e.Underlying)
}

// Unwrap returns the underlying error
func (e *IndexError) Unwrap() error {
	return e.Underlying
}

// IsFatal checks if the error must abort the run
func (e *IndexError) IsFatal() bool {
	return e.Fatal
}

// FileError represents a file-related error
type FileError struct {
	Type       ErrorType
	Path       string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewFileError creates a new file error
func NewFileError(op, path string, err error) *FileError {
	errorType := ErrorTypeFileNotFound
	if isPermissionError(err) {
		errorType = ErrorTypePermission
	}

	return &FileError{
		Type:       errorType,
		Path:       path,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// isPermissionError checks if the error is a permission error
func isPermissionError(err error) bool {
	errStr := err.Error()
	return errStr == "permission denied" || errStr == "access denied"
}

// Error implements the error interface
func (e *FileError) Error() string {
	return fmt.Sprintf("file %s failed for %s: %v", e.Operation, e.Path, e.Underlying)
}

// Unwrap returns the underlying error
func (e *FileError) Unwrap() error {
	return e.Underlying
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError creates a new config error
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %s): %v", e.Field, e.Value, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// MultiError represents multiple errors
type MultiError struct {
	Errors []error
}

// NewMultiError creates a new multi-error, dropping nil entries
func NewMultiError(errs []error) *MultiError {
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

// Error implements the error interface
func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
}

// Unwrap returns all errors
func (e *MultiError) Unwrap() []error {
	return e.Errors
}
