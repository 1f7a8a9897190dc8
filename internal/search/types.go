// Package search provides news search with three strategies: lexical
// full-text, vector similarity, and a hybrid of both fused with Reciprocal
// Rank Fusion (RRF).
package search

import (
	"strings"
	"time"
)

// Strategy selects how a query is executed.
type Strategy string

const (
	// StrategyHybrid runs lexical and vector search concurrently and
	// fuses the results. This is the default.
	StrategyHybrid Strategy = "hybrid"

	// StrategyLexical runs full-text search only.
	StrategyLexical Strategy = "lexical"

	// StrategyVector runs embedding similarity search only.
	StrategyVector Strategy = "vector"
)

// NormalizeStrategy maps user input to a Strategy. Unknown values fall back
// to hybrid rather than erroring.
func NormalizeStrategy(s string) Strategy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lexical", "text", "keyword", "fulltext":
		return StrategyLexical
	case "vector", "semantic", "embedding":
		return StrategyVector
	default:
		return StrategyHybrid
	}
}

// Request is one search request.
type Request struct {
	// Query is the free-form query text.
	Query string

	// Strategy selects the execution strategy.
	Strategy Strategy

	// Page is the 1-indexed result page. Values below 1 are clamped to 1.
	Page int

	// PageSize is the number of results per page. 0 uses the engine
	// default; values above the maximum are clamped.
	PageSize int

	// ClientKey identifies the caller for rate limiting. Empty skips the
	// quota check.
	ClientKey string
}

// Result is one ranked news item.
type Result struct {
	NewsID   int64      `json:"id"`
	Title    string     `json:"title"`
	Summary  string     `json:"summary"`
	URL      string     `json:"url"`
	Domain   string     `json:"domain,omitempty"`
	SiteName string     `json:"site_name,omitempty"`
	ImageURL string     `json:"image_url,omitempty"`
	Tags     []string   `json:"tags,omitempty"`
	Date     *time.Time `json:"date,omitempty"`

	// Score is the fused relevance score, normalized to 0-1 within the
	// result set.
	Score float64 `json:"score"`

	// MatchedLexical and MatchedVector report which sub-searches ranked
	// this item.
	MatchedLexical bool `json:"matched_lexical"`
	MatchedVector  bool `json:"matched_vector"`
}

// ResultPage is one page of results plus pagination metadata.
type ResultPage struct {
	Results    []*Result `json:"results"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int       `json:"total_pages"`
	Strategy   Strategy  `json:"strategy"`

	// Degraded is true when the hybrid or vector strategy lost its
	// vector component (embedding endpoint unavailable) and served
	// what remained.
	Degraded bool `json:"degraded,omitempty"`

	// Took is the request duration in milliseconds.
	Took int64 `json:"took_ms"`
}

// emptyPage returns a well-formed page with no results.
func emptyPage(strategy Strategy, page, pageSize int) *ResultPage {
	return &ResultPage{
		Results:  []*Result{},
		Page:     page,
		PageSize: pageSize,
		Strategy: strategy,
	}
}
