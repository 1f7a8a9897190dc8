// Package embed provides query embedding for semantic search. The remote
// embedder talks to a signed HTTP endpoint; the static embedder produces
// deterministic local vectors for development and tests.
package embed

import (
	"context"
	"math"
	"time"
)

// Common embedding constants
const (
	// DefaultDimensions is the system-wide embedding dimensionality.
	// Stored article vectors and query vectors must both match it.
	DefaultDimensions = 768

	// DefaultTimeout is the default timeout for a single embedding call.
	DefaultTimeout = 5 * time.Second

	// DefaultMaxRetries is the default number of retries after the
	// initial attempt.
	DefaultMaxRetries = 2
)

// Embedder generates a vector embedding for query text.
type Embedder interface {
	// Embed generates the embedding for a single text. Empty or
	// whitespace-only text returns (nil, nil) without any network call.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding dimensionality.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available checks if the embedder is ready.
	Available(ctx context.Context) bool

	// Close releases resources held by the embedder.
	Close() error
}

// normalizeVector scales v to unit length so cosine similarity reduces to a
// dot product. Zero vectors are returned unchanged.
func normalizeVector(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}
