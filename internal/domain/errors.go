package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common error conditions. Degradable errors mark
// stages that fall back to a reduced result; fatal errors abort the
// request that raised them.
var (
	// ErrNotFound indicates that a requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that the input data is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimited indicates that the request was rate limited.
	ErrRateLimited = errors.New("rate limited")

	// ErrIntentExtraction indicates that query intent extraction failed.
	// Degradable: the raw query is used as the single keyword.
	ErrIntentExtraction = errors.New("intent extraction failed")

	// ErrSourceTimeout indicates that a paper source failed or timed out.
	// Degradable: the source contributes zero results.
	ErrSourceTimeout = errors.New("source timed out")

	// ErrRankingBatch indicates that a relevance scoring batch failed.
	// Degradable: the batch's candidates are excluded from ranking.
	ErrRankingBatch = errors.New("ranking batch failed")

	// ErrCacheUnavailable indicates that the result cache is unreachable.
	// Degradable: treated as a cache miss.
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrEmbeddingUnavailable indicates that embedding generation failed.
	// Degradable: the affected paper is excluded from vector operations.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrClusteringConvergence indicates that clustering hit the iteration
	// cap before converging. Degradable: the best-so-far assignment is used.
	ErrClusteringConvergence = errors.New("clustering did not converge")

	// ErrStoreUnavailable indicates that the primary store is unreachable.
	// Fatal for the operation that needs it.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrDeadlineExceeded indicates that the request's global deadline
	// elapsed before any stage could produce a result. Fatal.
	ErrDeadlineExceeded = errors.New("deadline exceeded")
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NotFoundError provides details about a not found entity.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// RateLimitError provides details about a rate limit error.
type RateLimitError struct {
	Source     string
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by %s: retry after %s", e.Source, e.RetryAfter)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// SourceError provides details about a paper source failure.
type SourceError struct {
	Source Source
	Cause  error
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s failed: %v", e.Source, e.Cause)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *SourceError) Unwrap() error {
	return ErrSourceTimeout
}

// ExternalAPIError provides details about an external API error.
type ExternalAPIError struct {
	Source     string
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Source, e.StatusCode, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *ExternalAPIError) Unwrap() error {
	return e.Cause
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{
		Entity: entity,
		ID:     id,
	}
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewRateLimitError creates a new RateLimitError.
func NewRateLimitError(source string, retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{
		Source:     source,
		RetryAfter: retryAfter,
	}
}

// NewSourceError creates a new SourceError.
func NewSourceError(source Source, cause error) *SourceError {
	return &SourceError{
		Source: source,
		Cause:  cause,
	}
}

// NewExternalAPIError creates a new ExternalAPIError.
func NewExternalAPIError(source string, statusCode int, message string, cause error) *ExternalAPIError {
	return &ExternalAPIError{
		Source:     source,
		StatusCode: statusCode,
		Message:    message,
		Cause:      cause,
	}
}
