// Package errors provides custom error types for the atlas system.
// These errors enable programmatic error checking so callers (CLI, HTTP API)
// can tell a bad gene selection apart from a broken dataset.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is, As and Unwrap re-export the standard library helpers so callers only
// need one errors import.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)

// Common sentinel errors for the atlas system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownGene indicates the gene symbol is absent from the dataset gene index
	ErrUnknownGene = errors.New("unknown gene")

	// ErrEmptyGroup indicates a referenced cell group has no cells
	ErrEmptyGroup = errors.New("empty group")

	// ErrInsufficientData indicates group statistics are degenerate
	ErrInsufficientData = errors.New("insufficient data")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// UnknownGeneError is returned when a gene symbol is not in the dataset gene index.
type UnknownGeneError struct {
	Gene        string
	Suggestions []string
}

// Error implements the error interface
func (e *UnknownGeneError) Error() string {
	if len(e.Suggestions) > 0 {
		return fmt.Sprintf("gene %q not found (did you mean %s?)", e.Gene, strings.Join(e.Suggestions, ", "))
	}
	return fmt.Sprintf("gene %q not found", e.Gene)
}

// Is implements errors.Is support
func (e *UnknownGeneError) Is(target error) bool {
	return target == ErrUnknownGene || target == ErrNotFound
}

// NewUnknownGeneError creates a new UnknownGeneError
func NewUnknownGeneError(gene string, suggestions ...string) *UnknownGeneError {
	return &UnknownGeneError{Gene: gene, Suggestions: suggestions}
}

// EmptyGroupError is returned when a target or reference group has zero cells.
type EmptyGroupError struct {
	Group string
}

// Error implements the error interface
func (e *EmptyGroupError) Error() string {
	return fmt.Sprintf("group %s has no cells", e.Group)
}

// Is implements errors.Is support
func (e *EmptyGroupError) Is(target error) bool {
	return target == ErrEmptyGroup
}

// NewEmptyGroupError creates a new EmptyGroupError
func NewEmptyGroupError(group string) *EmptyGroupError {
	return &EmptyGroupError{Group: group}
}

// InsufficientDataError describes expression values that make a statistic
// ill-defined. The comparator does not return it to callers; it becomes the
// reason attached to an indeterminate verdict.
type InsufficientDataError struct {
	Group  string
	Reason string
}

// Error implements the error interface
func (e *InsufficientDataError) Error() string {
	if e.Group != "" {
		return fmt.Sprintf("insufficient data for group %s: %s", e.Group, e.Reason)
	}
	return fmt.Sprintf("insufficient data: %s", e.Reason)
}

// Is implements errors.Is support
func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// NewInsufficientDataError creates a new InsufficientDataError
func NewInsufficientDataError(group, reason string) *InsufficientDataError {
	return &InsufficientDataError{Group: group, Reason: reason}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "csv", "tsv", "mtx", "yaml"
	File    string
	Line    int
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("parse error in %s at %s:%d: %s", e.Format, e.File, e.Line, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// NewParseErrorAt creates a ParseError pinned to a line.
func NewParseErrorAt(format, file string, line int, message string) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Line:    line,
		Message: message,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "open", "close"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// ResourceError represents an error during resource operations
type ResourceError struct {
	Operation string // "load", "create", "build"
	Resource  string // "dataset", "config", "atlas"
	ID        string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ResourceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// NewResourceError creates a new ResourceError
func NewResourceError(operation, resource, id string, err error) *ResourceError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ResourceError{
		Operation: operation,
		Resource:  resource,
		ID:        id,
		Message:   message,
		Err:       err,
	}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsUnknownGene checks if an error is an unknown gene error
func IsUnknownGene(err error) bool {
	return errors.Is(err, ErrUnknownGene)
}

// IsEmptyGroup checks if an error is an empty group error
func IsEmptyGroup(err error) bool {
	return errors.Is(err, ErrEmptyGroup)
}

// IsInsufficientData checks if an error reports degenerate statistics
func IsInsufficientData(err error) bool {
	return errors.Is(err, ErrInsufficientData)
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapResource wraps an error as a ResourceError
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}
