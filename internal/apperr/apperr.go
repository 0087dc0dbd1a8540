// Package apperr defines the stable error taxonomy surfaced by every tool
// response. Codes are part of the external contract: callers match on
// Code, never on Message text.
package apperr

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error identifier.
type Code string

const (
	// Input errors.
	ValidationError Code = "ValidationError"
	NamespaceInvalid Code = "NamespaceInvalid"
	SlugInvalid      Code = "SlugInvalid"
	SlugDuplicate    Code = "SlugDuplicate"
	UnknownAction    Code = "UnknownAction"
	UnknownTool      Code = "UnknownTool"

	// State errors.
	NotFound             Code = "NotFound"
	HasChildren          Code = "HasChildren"
	IncompleteSiblingSet Code = "IncompleteSiblingSet"
	DifferentParents     Code = "DifferentParents"
	CycleDetected        Code = "CycleDetected"
	HierarchyViolation   Code = "HierarchyViolation"
	CrossNamespaceRef    Code = "CrossNamespaceReference"

	// Readiness errors.
	ValidationFailed      Code = "ValidationFailed"
	DependencyNotSatisfied Code = "DependencyNotSatisfied"

	// Resource errors.
	NamespaceUnknown Code = "NamespaceUnknown"
	Timeout          Code = "Timeout"
	Cancelled        Code = "Cancelled"
	Conflict         Code = "Conflict"

	// Internal errors.
	StoreError     Code = "StoreError"
	EmbeddingError Code = "EmbeddingError"
	IOError        Code = "IOError"
)

// Error is the structured error carried across every layer boundary and
// surfaced verbatim in the tool response envelope.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates an Error with no details.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error carrying an underlying cause (used for StoreError/
// IOError/EmbeddingError, which retain the originating error for logging).
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// WithDetails attaches structured context (e.g. the cycle edge, the missing
// dependency ids) and returns the same Error for chaining.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// CodeOf extracts the Code from err if it is (or wraps) an *Error, or
// returns StoreError for opaque errors so callers never leak a bare
// message without a stable code.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return StoreError
}

// Retryable reports whether the error category is retried by the store
// adapter per the propagation rules (StoreError/IOError only).
func Retryable(err error) bool {
	switch CodeOf(err) {
	case StoreError, IOError:
		return true
	default:
		return false
	}
}
