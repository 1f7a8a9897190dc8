// Package store provides the content store and vector index for newsearch.
// News digests and their linked full articles live in SQLite; the lexical
// index is FTS5 shadow tables kept consistent by triggers, and vectors are
// held in an in-memory HNSW graph synced from the store.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Status is the processing state of a news item or article.
type Status string

const (
	StatusPending   Status = "pending"
	StatusProcessed Status = "processed"
	StatusFailed    Status = "failed"
	StatusPublished Status = "published"
	StatusIgnored   Status = "ignored"
)

// NewsItem is a news digest. It may link to one full Article.
type NewsItem struct {
	ID          int64
	ArticleDate *time.Time
	Title       string
	Summary     string

	// LLM-generated fields take display precedence over the raw ones.
	LLMHeadline string
	LLMSummary  string
	LLMTags     []string

	Domain   string
	SiteName string
	ImageURL string
	URL      string

	// ArticleID links to the full article, when one was fetched.
	ArticleID *int64

	Status      Status
	ContentText string

	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
}

// DisplayTitle returns the best available title for presentation.
func (n *NewsItem) DisplayTitle() string {
	if t := strings.TrimSpace(n.LLMHeadline); t != "" {
		return t
	}
	if t := strings.TrimSpace(n.Title); t != "" {
		return t
	}
	return fmt.Sprintf("Article %d", n.ID)
}

// DisplaySummary returns the best available summary for presentation.
func (n *NewsItem) DisplaySummary() string {
	if s := strings.TrimSpace(n.LLMSummary); s != "" {
		return s
	}
	return strings.TrimSpace(n.Summary)
}

// Eligible reports whether the item may appear in search results.
func (n *NewsItem) Eligible() bool {
	return n.Status == StatusPublished && n.DeletedAt == nil
}

// EffectiveDate is the timestamp used for recency ranking.
func (n *NewsItem) EffectiveDate() time.Time {
	if n.ArticleDate != nil {
		return *n.ArticleDate
	}
	return n.CreatedAt
}

// Article is the full fetched text behind a news digest.
type Article struct {
	ID          int64
	ArticleDate *time.Time
	Title       string
	Summary     string
	Domain      string
	SiteName    string
	URL         string
	Status      Status
	ContentText string

	CreatedAt time.Time
	DeletedAt *time.Time
}

// LexicalHit is one lexical search result. Score is the weighted sum of
// the digest and article text scores for the news item.
type LexicalHit struct {
	NewsID int64
	Score  float64
}

// VectorHit is one vector search result.
type VectorHit struct {
	NewsID int64
	Score  float64
}

// EmbeddingSource identifies which text a stored vector was computed from.
type EmbeddingSource string

const (
	// SourceNews is the vector of the news digest text.
	SourceNews EmbeddingSource = "news"

	// SourceArticle is the vector of the linked full-article text.
	SourceArticle EmbeddingSource = "article"
)

// VectorRef identifies one stored vector by its parent news item and the
// text it was computed from. A news item can carry up to two vectors, one
// per source.
type VectorRef struct {
	NewsID int64
	Source EmbeddingSource
}

// StoredEmbedding pairs a news item with one precomputed vector. An empty
// Source means SourceNews.
type StoredEmbedding struct {
	NewsID int64
	Source EmbeddingSource
	Vector []float32
}

// ContentStore persists news items and articles and serves lexical search.
type ContentStore interface {
	// SaveNews inserts or updates a news item. On insert the item's ID is
	// populated.
	SaveNews(ctx context.Context, item *NewsItem) error

	// SaveArticle inserts or updates a full article.
	SaveArticle(ctx context.Context, article *Article) error

	// GetNewsByIDs returns eligible news items in the order of ids.
	// Missing and ineligible IDs are skipped, not errors.
	GetNewsByIDs(ctx context.Context, ids []int64) ([]*NewsItem, error)

	// SearchLexical runs a full-text search over news and article text,
	// returning at most limit hits ordered by descending score.
	SearchLexical(ctx context.Context, query string, limit int) ([]LexicalHit, error)

	// SaveEmbedding stores the digest vector for a news item.
	SaveEmbedding(ctx context.Context, newsID int64, vector []float32) error

	// SaveArticleEmbedding stores the full-text vector for an article.
	SaveArticleEmbedding(ctx context.Context, articleID int64, vector []float32) error

	// EligibleEmbeddings returns the vectors of all eligible news items,
	// digest vectors and linked-article vectors both, each attributed to
	// its parent news ID.
	EligibleEmbeddings(ctx context.Context) ([]StoredEmbedding, error)

	// SoftDeleteNews marks a news item deleted without removing the row.
	SoftDeleteNews(ctx context.Context, id int64) error

	// SoftDeleteArticle marks an article deleted. Its text stops
	// contributing to lexical scores; the linked digest remains eligible.
	SoftDeleteArticle(ctx context.Context, id int64) error

	// CountEligible returns the number of searchable news items.
	CountEligible(ctx context.Context) (int, error)

	Close() error
}

// VectorIndex serves approximate nearest-neighbor search over news vectors.
type VectorIndex interface {
	// Add inserts or replaces vectors by (news ID, source).
	Add(ctx context.Context, embeddings []StoredEmbedding) error

	// Search returns the k nearest news items to the query vector,
	// ordered by descending similarity score. When both vectors of a
	// news item match, only its best-scoring one is reported.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Remove drops the referenced vectors.
	Remove(ctx context.Context, refs []VectorRef) error

	// Contains reports whether the referenced vector is indexed.
	Contains(ref VectorRef) bool

	// Refs returns all indexed vector references.
	Refs() []VectorRef

	// Count returns the number of indexed vectors.
	Count() int

	Close() error
}
