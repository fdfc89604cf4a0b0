package providers

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Provider is a source of model handles for one generative-language backend
type Provider interface {
	// Name returns the provider name (e.g., "gemini")
	Name() string

	// Model constructs a handle bound to a single model identifier.
	// Constructing a handle never contacts the remote service.
	Model(name string) Model
}

// Model is a handle to a single remote model
type Model interface {
	// Name returns the model identifier the handle is bound to
	Name() string

	// GenerateContent sends a prompt to the model and returns its reply
	GenerateContent(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}

// GenerateRequest represents a single-turn generation request
type GenerateRequest struct {
	// Prompt is the user text sent to the model
	Prompt string `json:"prompt"`
}

// GenerateResponse represents a generation result
type GenerateResponse struct {
	// Text is the concatenated text of the first candidate
	Text string `json:"text"`

	// FinishReason reported by the backend (e.g. "STOP", "MAX_TOKENS")
	FinishReason string `json:"finish_reason,omitempty"`
}

// ProviderConfig holds common configuration for providers
type ProviderConfig struct {
	// APIKey for authentication
	APIKey string

	// BaseURL for the API (optional override)
	BaseURL string

	// Timeout for requests
	Timeout time.Duration
}

// ProviderError represents an error from a provider
type ProviderError struct {
	// Provider that generated the error
	Provider string

	// Model the request was sent to
	Model string

	// Code is the error code (backend status string or a local code)
	Code string

	// Message is the error message
	Message string

	// StatusCode is the HTTP status code (0 when no response was received)
	StatusCode int

	// Retryable indicates if another model may succeed where this one failed
	Retryable bool

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg = http.StatusText(e.StatusCode) + ": " + msg
	}
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap implements error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a new provider error
func NewProviderError(provider, model, code, message string, statusCode int, retryable bool, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Model:      model,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  retryable,
		Cause:      cause,
	}
}

// IsRetryable checks if an error is a retryable provider error
func IsRetryable(err error) bool {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Retryable
	}
	return false
}

// StatusCode returns the HTTP status of a provider error, or 0
func StatusCode(err error) int {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.StatusCode
	}
	return 0
}

// IsRetryableStatus reports whether a status code indicates a condition that
// a different model may not share: rate limiting, overload or an unknown model.
func IsRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusNotFound,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
