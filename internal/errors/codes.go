// Package errors provides structured error handling for newsearch.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 3XX: Network errors (embedding endpoint)
//   - 4XX: Validation and policy errors
//   - 5XX: Internal errors (storage, search)
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryNetwork indicates errors talking to the embedding endpoint.
	CategoryNetwork Category = "NETWORK"
	// CategoryPolicy indicates expected, user-visible policy outcomes
	// (rate limiting, request deadline).
	CategoryPolicy Category = "POLICY"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates storage and other internal failures.
	CategoryInternal Category = "INTERNAL"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigInvalid = "ERR_102_CONFIG_INVALID"

	// Network errors (300-399)
	ErrCodeNetworkTimeout       = "ERR_301_NETWORK_TIMEOUT"
	ErrCodeNetworkUnavailable   = "ERR_302_NETWORK_UNAVAILABLE"
	ErrCodeEmbeddingUnavailable = "ERR_303_EMBEDDING_UNAVAILABLE"
	ErrCodeEmbeddingRejected    = "ERR_304_EMBEDDING_REJECTED"

	// Validation and policy errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"
	ErrCodeRateLimited       = "ERR_403_RATE_LIMITED"
	ErrCodeTimeout           = "ERR_404_TIMEOUT"

	// Internal errors (500-599)
	ErrCodeStorageUnavailable = "ERR_502_STORAGE_UNAVAILABLE"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '3':
		return CategoryNetwork
	case '4':
		switch code {
		case ErrCodeRateLimited, ErrCodeTimeout:
			return CategoryPolicy
		}
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// isRetryableCode checks if an error code represents a transient failure
// worth retrying. Only embedding-endpoint network failures qualify; storage
// failures and policy outcomes are never retried inside this subsystem.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeNetworkTimeout, ErrCodeNetworkUnavailable:
		return true
	default:
		return false
	}
}
