package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeGeneration ErrorType = "generation"
	ErrorTypeParse      ErrorType = "parse"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is. Two domain errors match when both type and message
// match, so a sentinel matches itself and any copy made with Wrap but not
// other errors of the same type. Use the Is*Error helpers to test categories.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Message == t.Message
}

// Wrap returns a copy of e carrying err as its cause
func (e *DomainError) Wrap(err error) *DomainError {
	return NewDomainError(e.Type, e.Message, err)
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// Domain error variables. These are shared values: match them with errors.Is
// and attach causes with Wrap.
var (
	// Validation Errors
	ErrEmptyPrompt = NewDomainError(ErrorTypeValidation, "prompt cannot be empty", nil)

	// Generation Errors
	ErrEmptyResponse = NewDomainError(ErrorTypeGeneration, "model returned no content", nil)

	// Parse Errors
	ErrMalformedOutput = NewDomainError(ErrorTypeParse, "model output is not valid JSON", nil)
)

// Error type checking helper functions

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}

// IsGenerationError checks if an error came from a remote model attempt
func IsGenerationError(err error) bool {
	return GetErrorType(err) == ErrorTypeGeneration
}

// IsParseError checks if an error is a structured-output parse error
func IsParseError(err error) bool {
	return GetErrorType(err) == ErrorTypeParse
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// WrapGeneration wraps a failure from a remote model call
func WrapGeneration(message string, err error) error {
	return NewDomainError(ErrorTypeGeneration, message, err)
}
