package llm

import (
	"errors"
	"fmt"
)

// APIError represents an error returned by an LLM provider's API.
type APIError struct {
	// Provider is the name of the LLM provider (e.g., "openai", "anthropic").
	Provider string
	// StatusCode is the HTTP status code, or 0 for network-level failures.
	StatusCode int
	// Message is the error message from the API.
	Message string
	// Type is the provider-specific error type.
	Type string
	// Code is the provider-specific error code.
	Code string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s API error: %s", e.Provider, e.Message)
}

// IsTransient reports whether the error is likely temporary and the
// request can be retried. Network failures, rate limits, and server
// errors qualify.
func (e *APIError) IsTransient() bool {
	if e.StatusCode == 0 {
		return true
	}
	if e.StatusCode == 429 {
		return true
	}
	return e.StatusCode >= 500
}

// isTransientError reports whether err wraps a transient APIError.
func isTransientError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsTransient()
	}
	return false
}
