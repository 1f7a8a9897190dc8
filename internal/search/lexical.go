package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/Hino9LLC/newsearch/internal/store"
)

// LexicalEngine serves full-text search from the content store's FTS index.
type LexicalEngine struct {
	store  store.ContentStore
	logger *slog.Logger
}

// NewLexicalEngine creates a lexical engine.
func NewLexicalEngine(cs store.ContentStore, logger *slog.Logger) *LexicalEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &LexicalEngine{store: cs, logger: logger}
}

// Search returns up to limit lexical hits ordered by descending score.
// Failures here are store failures and are not recoverable within the
// request.
func (e *LexicalEngine) Search(ctx context.Context, query string, limit int) ([]store.LexicalHit, error) {
	start := time.Now()
	hits, err := e.store.SearchLexical(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("lexical search completed",
		slog.Int("hits", len(hits)),
		slog.Duration("elapsed", time.Since(start)))
	return hits, nil
}
