package errors

import (
	stderrors "errors"
	"fmt"
)

// Sentinel errors for the search error taxonomy. Callers dispatch on these
// with errors.Is; the structured SearchError wraps them with context.
var (
	// ErrEmbeddingUnavailable signals that the embedding endpoint could not
	// produce a vector after all retries. Recoverable: hybrid search falls
	// back to lexical-only, pure vector search returns an empty result set.
	ErrEmbeddingUnavailable = stderrors.New("embedding unavailable")

	// ErrStorageUnavailable signals a content-store failure. Not recoverable
	// within this subsystem; surfaced to the caller with no partial results.
	ErrStorageUnavailable = stderrors.New("storage unavailable")

	// ErrRateLimited signals the per-client quota was exceeded. Expected and
	// user-visible; not logged as an error.
	ErrRateLimited = stderrors.New("rate limited")

	// ErrTimeout signals the request deadline was exceeded while sub-searches
	// were in flight.
	ErrTimeout = stderrors.New("request timed out")

	// ErrInvalidInput exists for completeness of the taxonomy. Search inputs
	// are normalized rather than rejected, so search never returns it.
	ErrInvalidInput = stderrors.New("invalid input")

	// ErrDimensionMismatch signals a vector whose length differs from the
	// system-wide embedding dimensionality. Never silently truncated.
	ErrDimensionMismatch = stderrors.New("embedding dimension mismatch")
)

// SearchError is the structured error type for newsearch. It carries a code
// for logging and a sentinel for errors.Is dispatch.
type SearchError struct {
	// Code is the unique error code (e.g., "ERR_502_STORAGE_UNAVAILABLE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Network, Policy, ...).
	Category Category

	// Sentinel is the taxonomy sentinel this error matches under errors.Is.
	Sentinel error

	// Cause is the underlying error.
	Cause error

	// Retryable indicates the operation may succeed if retried.
	Retryable bool

	// RetryAfterSeconds is set on rate-limit errors: seconds until the
	// client's quota frees up.
	RetryAfterSeconds int
}

// Error implements the error interface.
func (e *SearchError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap supports both the cause chain and the sentinel, so
// errors.Is(err, ErrStorageUnavailable) works on wrapped storage failures.
func (e *SearchError) Unwrap() []error {
	var errs []error
	if e.Sentinel != nil {
		errs = append(errs, e.Sentinel)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// New creates a SearchError with the given code and message.
// Category and retryable flag are derived from the code.
func New(code, message string, cause error) *SearchError {
	return &SearchError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Sentinel:  sentinelFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// EmbeddingUnavailable wraps an exhausted embedding call.
func EmbeddingUnavailable(cause error) *SearchError {
	return New(ErrCodeEmbeddingUnavailable, "embedding endpoint unavailable", cause)
}

// StorageUnavailable wraps a content-store failure.
func StorageUnavailable(cause error) *SearchError {
	return New(ErrCodeStorageUnavailable, "content store unavailable", cause)
}

// RateLimited reports an exceeded quota with the seconds until retry.
func RateLimited(retryAfterSeconds int) *SearchError {
	e := New(ErrCodeRateLimited, "search quota exceeded", nil)
	e.Message = fmt.Sprintf("search quota exceeded, retry in %ds", retryAfterSeconds)
	e.RetryAfterSeconds = retryAfterSeconds
	return e
}

// Timeout reports an exceeded request deadline.
func Timeout(cause error) *SearchError {
	return New(ErrCodeTimeout, "search deadline exceeded", cause)
}

// sentinelFromCode maps codes to taxonomy sentinels.
func sentinelFromCode(code string) error {
	switch code {
	case ErrCodeEmbeddingUnavailable:
		return ErrEmbeddingUnavailable
	case ErrCodeStorageUnavailable:
		return ErrStorageUnavailable
	case ErrCodeRateLimited:
		return ErrRateLimited
	case ErrCodeTimeout:
		return ErrTimeout
	case ErrCodeInvalidInput:
		return ErrInvalidInput
	case ErrCodeDimensionMismatch:
		return ErrDimensionMismatch
	default:
		return nil
	}
}

// Is reports whether any error in err's tree matches target. Re-exported so
// callers dispatching on the sentinels above need only this package.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's tree matching target's type.
func As(err error, target any) bool { return stderrors.As(err, target) }

// IsRetryable reports whether the error is transient. Non-SearchError values
// are treated as non-retryable; Permanent beats everything.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var pe *permanentError
	if stderrors.As(err, &pe) {
		return false
	}
	var se *SearchError
	if stderrors.As(err, &se) {
		return se.Retryable
	}
	return false
}

// GetCode extracts the error code, or "" for non-SearchError values.
func GetCode(err error) string {
	var se *SearchError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ""
}

// permanentError marks an error as not worth retrying regardless of code.
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so Retry stops immediately instead of backing off.
// Used for 4xx responses from the embedding endpoint.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}
