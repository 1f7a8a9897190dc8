package search

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Hino9LLC/newsearch/internal/embed"
	"github.com/Hino9LLC/newsearch/internal/errors"
	"github.com/Hino9LLC/newsearch/internal/ratelimit"
	"github.com/Hino9LLC/newsearch/internal/store"
	"github.com/Hino9LLC/newsearch/internal/telemetry"
)

// EngineConfig configures the search engine.
type EngineConfig struct {
	// RRFConstant is the fusion smoothing parameter (default: 60).
	RRFConstant int

	// CandidateLimit caps how many candidates each sub-search returns
	// before fusion (default: 100). Pagination applies after fusion.
	CandidateLimit int

	// DefaultPageSize is used when a request has no page size (default: 10).
	DefaultPageSize int

	// MaxPageSize clamps requested page sizes (default: 100).
	MaxPageSize int
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.RRFConstant <= 0 {
		c.RRFConstant = DefaultRRFConstant
	}
	if c.CandidateLimit <= 0 {
		c.CandidateLimit = 100
	}
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = 10
	}
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = 100
	}
	return c
}

// Engine orchestrates news search: quota check, strategy dispatch,
// concurrent sub-searches, RRF fusion, hydration, and pagination.
type Engine struct {
	store   store.ContentStore
	lexical *LexicalEngine
	vector  *VectorEngine
	fusion  *RRFFusion
	limiter ratelimit.Limiter
	metrics *telemetry.Metrics
	logger  *slog.Logger
	config  EngineConfig
}

// NewEngine creates a search engine. limiter may be nil to disable quota
// checks; metrics may be nil to disable recording.
func NewEngine(
	cs store.ContentStore,
	index store.VectorIndex,
	embedder embed.Embedder,
	limiter ratelimit.Limiter,
	metrics *telemetry.Metrics,
	logger *slog.Logger,
	cfg EngineConfig,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if limiter == nil {
		limiter = ratelimit.Noop{}
	}
	cfg = cfg.withDefaults()

	return &Engine{
		store:   cs,
		lexical: NewLexicalEngine(cs, logger),
		vector:  NewVectorEngine(embedder, index, logger),
		fusion:  NewRRFFusion(cfg.RRFConstant),
		limiter: limiter,
		metrics: metrics,
		logger:  logger,
		config:  cfg,
	}
}

// Search executes one search request.
//
// The quota check runs before any engine work. A blank query returns an
// empty page without touching the store or the embedding endpoint. The
// hybrid strategy degrades to lexical-only when the embedding endpoint is
// unavailable; store failures are not recoverable and return an error with
// no partial results.
func (e *Engine) Search(ctx context.Context, req Request) (*ResultPage, error) {
	start := time.Now()
	strategy := req.Strategy
	if strategy != StrategyHybrid && strategy != StrategyLexical && strategy != StrategyVector {
		strategy = NormalizeStrategy(string(strategy))
	}
	page, pageSize := e.clampPagination(req)

	if req.ClientKey != "" {
		if d := e.limiter.Allow(req.ClientKey); !d.Allowed {
			e.record(req.Query, strategy, telemetry.OutcomeRateLimited, 0, start)
			return nil, errors.RateLimited(int(d.RetryAfter.Seconds()) + 1)
		}
	}

	trimmed := trimQuery(req.Query)
	if trimmed == "" {
		e.record(req.Query, strategy, telemetry.OutcomeOK, 0, start)
		result := emptyPage(strategy, page, pageSize)
		result.Took = time.Since(start).Milliseconds()
		return result, nil
	}

	lexHits, vecHits, degraded, err := e.runStrategy(ctx, strategy, trimmed)
	if err != nil {
		outcome := telemetry.OutcomeError
		if stderrors.Is(err, context.DeadlineExceeded) {
			err = errors.Timeout(err)
			outcome = telemetry.OutcomeTimeout
		}
		e.record(req.Query, strategy, outcome, 0, start)
		return nil, err
	}

	fused := e.fusion.Fuse(lexHits, vecHits)
	if len(fused) > e.config.CandidateLimit {
		fused = fused[:e.config.CandidateLimit]
	}

	results, err := e.hydrate(ctx, fused)
	if err != nil {
		e.record(req.Query, strategy, telemetry.OutcomeError, 0, start)
		return nil, err
	}

	result := e.paginate(results, strategy, page, pageSize)
	result.Degraded = degraded
	result.Took = time.Since(start).Milliseconds()

	outcome := telemetry.OutcomeOK
	if degraded {
		outcome = telemetry.OutcomeDegraded
	}
	e.record(req.Query, strategy, outcome, result.Total, start)

	e.logger.Info("search completed",
		slog.String("strategy", string(strategy)),
		slog.Int("total", result.Total),
		slog.Bool("degraded", degraded),
		slog.Int64("took_ms", result.Took))

	return result, nil
}

// runStrategy executes the sub-searches for the chosen strategy.
func (e *Engine) runStrategy(ctx context.Context, strategy Strategy, query string) (
	lexHits []store.LexicalHit,
	vecHits []store.VectorHit,
	degraded bool,
	err error,
) {
	limit := e.config.CandidateLimit

	switch strategy {
	case StrategyLexical:
		lexHits, err = e.lexical.Search(ctx, query, limit)
		return lexHits, nil, false, err

	case StrategyVector:
		vecHits, err = e.vector.Search(ctx, query, limit)
		if err != nil {
			if recoverable(err) {
				e.logger.Warn("vector search degraded", slog.String("error", err.Error()))
				return nil, nil, true, nil
			}
			return nil, nil, false, err
		}
		return nil, vecHits, false, nil

	default: // StrategyHybrid
		g, gctx := errgroup.WithContext(ctx)

		var lexErr, vecErr error
		g.Go(func() error {
			lexHits, lexErr = e.lexical.Search(gctx, query, limit)
			// Lexical failure is fatal to the request; cancel the
			// vector side.
			return lexErr
		})
		g.Go(func() error {
			vecHits, vecErr = e.vector.Search(gctx, query, limit)
			if vecErr != nil && recoverable(vecErr) {
				// Degrade to lexical-only instead of failing.
				return nil
			}
			return vecErr
		})

		if waitErr := g.Wait(); waitErr != nil {
			return nil, nil, false, waitErr
		}

		if vecErr != nil {
			e.logger.Warn("hybrid search degraded to lexical",
				slog.String("error", vecErr.Error()))
			return lexHits, nil, true, nil
		}
		return lexHits, vecHits, false, nil
	}
}

// hydrate loads eligible news items for the fused candidates and applies
// the final deterministic ordering: score desc, recency desc, ID asc.
// Candidates deleted or unpublished since their index entries were built
// drop out here.
func (e *Engine) hydrate(ctx context.Context, fused []*FusedHit) ([]*Result, error) {
	if len(fused) == 0 {
		return []*Result{}, nil
	}

	ids := make([]int64, len(fused))
	byID := make(map[int64]*FusedHit, len(fused))
	for i, hit := range fused {
		ids[i] = hit.NewsID
		byID[hit.NewsID] = hit
	}

	items, err := e.store.GetNewsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	results := make([]*Result, 0, len(items))
	dates := make(map[int64]time.Time, len(items))
	for _, item := range items {
		hit := byID[item.ID]
		dates[item.ID] = item.EffectiveDate()
		results = append(results, &Result{
			NewsID:         item.ID,
			Title:          item.DisplayTitle(),
			Summary:        item.DisplaySummary(),
			URL:            item.URL,
			Domain:         item.Domain,
			SiteName:       item.SiteName,
			ImageURL:       item.ImageURL,
			Tags:           item.LLMTags,
			Date:           item.ArticleDate,
			Score:          hit.RRFScore,
			MatchedLexical: hit.LexRank > 0,
			MatchedVector:  hit.VecRank > 0,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		da, db := dates[a.NewsID], dates[b.NewsID]
		if !da.Equal(db) {
			return da.After(db)
		}
		return a.NewsID < b.NewsID
	})

	return results, nil
}

// paginate slices the full ranked list into the requested page.
func (e *Engine) paginate(results []*Result, strategy Strategy, page, pageSize int) *ResultPage {
	total := len(results)
	totalPages := (total + pageSize - 1) / pageSize

	startIdx := (page - 1) * pageSize
	if startIdx >= total {
		return &ResultPage{
			Results:    []*Result{},
			Total:      total,
			Page:       page,
			PageSize:   pageSize,
			TotalPages: totalPages,
			Strategy:   strategy,
		}
	}
	endIdx := startIdx + pageSize
	if endIdx > total {
		endIdx = total
	}

	return &ResultPage{
		Results:    results[startIdx:endIdx],
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		Strategy:   strategy,
	}
}

func (e *Engine) clampPagination(req Request) (page, pageSize int) {
	page = req.Page
	if page < 1 {
		page = 1
	}
	pageSize = req.PageSize
	if pageSize <= 0 {
		pageSize = e.config.DefaultPageSize
	}
	if pageSize > e.config.MaxPageSize {
		pageSize = e.config.MaxPageSize
	}
	return page, pageSize
}

func (e *Engine) record(query string, strategy Strategy, outcome telemetry.Outcome, results int, start time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.Record(telemetry.QueryEvent{
		Query:       query,
		Strategy:    string(strategy),
		Outcome:     outcome,
		ResultCount: results,
		Latency:     time.Since(start),
	})
}

// recoverable reports whether a vector-side failure should degrade the
// request instead of failing it. Embedding endpoint exhaustion is
// recoverable; cancellation and store failures are not.
func recoverable(err error) bool {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if stderrors.Is(err, errors.ErrStorageUnavailable) {
		return false
	}
	return true
}

// trimQuery normalizes query whitespace for the blank-query check.
func trimQuery(q string) string {
	return strings.TrimSpace(q)
}
