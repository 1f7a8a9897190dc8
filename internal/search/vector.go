package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/Hino9LLC/newsearch/internal/embed"
	"github.com/Hino9LLC/newsearch/internal/store"
)

// VectorEngine embeds the query and searches the vector index.
type VectorEngine struct {
	embedder embed.Embedder
	index    store.VectorIndex
	logger   *slog.Logger
}

// NewVectorEngine creates a vector engine.
func NewVectorEngine(embedder embed.Embedder, index store.VectorIndex, logger *slog.Logger) *VectorEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &VectorEngine{embedder: embedder, index: index, logger: logger}
}

// Search embeds the query and returns up to limit vector hits ordered by
// descending similarity. Embedding failures propagate so the caller can
// decide whether to degrade; an empty embedding (blank query) yields no
// hits without touching the index.
func (e *VectorEngine) Search(ctx context.Context, query string, limit int) ([]store.VectorHit, error) {
	start := time.Now()

	vector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return []store.VectorHit{}, nil
	}

	hits, err := e.index.Search(ctx, vector, limit)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("vector search completed",
		slog.Int("hits", len(hits)),
		slog.Duration("elapsed", time.Since(start)))
	return hits, nil
}
