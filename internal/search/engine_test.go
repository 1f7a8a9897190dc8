package search

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hino9LLC/newsearch/internal/embed"
	"github.com/Hino9LLC/newsearch/internal/errors"
	"github.com/Hino9LLC/newsearch/internal/ratelimit"
	"github.com/Hino9LLC/newsearch/internal/store"
	"github.com/Hino9LLC/newsearch/internal/telemetry"
)

const testDims = 32

// countingStore wraps a ContentStore and counts lexical searches.
type countingStore struct {
	store.ContentStore
	lexCalls atomic.Int32
}

func (c *countingStore) SearchLexical(ctx context.Context, query string, limit int) ([]store.LexicalHit, error) {
	c.lexCalls.Add(1)
	return c.ContentStore.SearchLexical(ctx, query, limit)
}

// failingEmbedder always reports the endpoint as unavailable.
type failingEmbedder struct {
	calls atomic.Int32
}

func (f *failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls.Add(1)
	return nil, errors.EmbeddingUnavailable(nil)
}
func (f *failingEmbedder) Dimensions() int                  { return testDims }
func (f *failingEmbedder) ModelName() string                { return "failing" }
func (f *failingEmbedder) Available(_ context.Context) bool { return true }
func (f *failingEmbedder) Close() error                     { return nil }

// brokenStore fails every lexical search.
type brokenStore struct {
	store.ContentStore
}

func (b *brokenStore) SearchLexical(ctx context.Context, query string, limit int) ([]store.LexicalHit, error) {
	return nil, errors.StorageUnavailable(nil)
}

type testEnv struct {
	store    *countingStore
	index    *store.HNSWIndex
	embedder embed.Embedder
	engine   *Engine
	metrics  *telemetry.Metrics
}

// newTestEnv builds an engine over an in-memory store, a real vector
// index, and the static embedder, seeded with a few published items.
func newTestEnv(t *testing.T, embedder embed.Embedder) *testEnv {
	t.Helper()

	sqlStore, err := store.NewSQLiteStore(store.SQLiteConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlStore.Close() })

	index, err := store.NewHNSWIndex(store.HNSWConfig{Dimensions: testDims})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	if embedder == nil {
		embedder = embed.NewStaticEmbedder(testDims)
	}

	cs := &countingStore{ContentStore: sqlStore}
	metrics := telemetry.NewMetrics()
	engine := NewEngine(cs, index, embedder, nil, metrics, nil, EngineConfig{})

	return &testEnv{store: cs, index: index, embedder: embedder, engine: engine, metrics: metrics}
}

// seed saves a published item, embeds its text, and indexes the vector.
func (env *testEnv) seed(t *testing.T, title, summary string) *store.NewsItem {
	t.Helper()
	ctx := context.Background()

	item := &store.NewsItem{Title: title, Summary: summary, Status: store.StatusPublished}
	require.NoError(t, env.store.SaveNews(ctx, item))

	embedder := embed.NewStaticEmbedder(testDims)
	vec, err := embedder.Embed(ctx, title+" "+summary)
	require.NoError(t, err)
	require.NoError(t, env.store.SaveEmbedding(ctx, item.ID, vec))
	require.NoError(t, env.index.Add(ctx, []store.StoredEmbedding{{NewsID: item.ID, Vector: vec}}))
	return item
}

func TestEngine_HybridFindsLexicalAndVectorMatches(t *testing.T) {
	env := newTestEnv(t, nil)
	hit := env.seed(t, "Wildfire evacuation expands", "Crews battle the ridge fire overnight")
	env.seed(t, "Market rally continues", "Tech stocks gain for a third week")

	page, err := env.engine.Search(context.Background(), Request{Query: "wildfire evacuation"})
	require.NoError(t, err)

	require.NotEmpty(t, page.Results)
	assert.Equal(t, hit.ID, page.Results[0].NewsID)
	assert.Equal(t, StrategyHybrid, page.Strategy)
	assert.False(t, page.Degraded)
	assert.True(t, page.Results[0].MatchedLexical)
}

func TestEngine_EmptyQueryShortCircuits(t *testing.T) {
	emb := &failingEmbedder{}
	env := newTestEnv(t, emb)
	env.seed(t, "Anything", "at all")

	for _, q := range []string{"", "   ", "\t\n "} {
		page, err := env.engine.Search(context.Background(), Request{Query: q})
		require.NoError(t, err)
		assert.Empty(t, page.Results)
		assert.Equal(t, 0, page.Total)
	}

	assert.Equal(t, int32(0), env.store.lexCalls.Load(), "no store calls for blank queries")
	assert.Equal(t, int32(0), emb.calls.Load(), "no embedding calls for blank queries")
}

func TestEngine_UnknownStrategyFallsBackToHybrid(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seed(t, "Budget vote passes", "")

	page, err := env.engine.Search(context.Background(), Request{Query: "budget", Strategy: "quantum"})
	require.NoError(t, err)
	assert.Equal(t, StrategyHybrid, page.Strategy)
	assert.NotEmpty(t, page.Results)
}

func TestEngine_LexicalStrategySkipsEmbedding(t *testing.T) {
	emb := &failingEmbedder{}
	env := newTestEnv(t, emb)
	env.seed(t, "Transit strike talks resume", "")

	page, err := env.engine.Search(context.Background(), Request{Query: "transit strike", Strategy: StrategyLexical})
	require.NoError(t, err)
	assert.NotEmpty(t, page.Results)
	assert.False(t, page.Degraded)
	assert.Equal(t, int32(0), emb.calls.Load())
}

func TestEngine_HybridDegradesWhenEmbeddingUnavailable(t *testing.T) {
	emb := &failingEmbedder{}
	env := newTestEnv(t, emb)
	env.seed(t, "Flood warnings issued downstream", "River levels keep rising")
	env.seed(t, "Unrelated sports recap", "")

	hybrid, err := env.engine.Search(context.Background(), Request{Query: "flood warnings"})
	require.NoError(t, err)
	assert.True(t, hybrid.Degraded)

	lexical, err := env.engine.Search(context.Background(), Request{Query: "flood warnings", Strategy: StrategyLexical})
	require.NoError(t, err)

	// The degraded hybrid response is exactly the lexical-only response.
	require.Equal(t, len(lexical.Results), len(hybrid.Results))
	for i := range lexical.Results {
		assert.Equal(t, lexical.Results[i].NewsID, hybrid.Results[i].NewsID)
	}
}

func TestEngine_VectorStrategyDegradesToEmpty(t *testing.T) {
	emb := &failingEmbedder{}
	env := newTestEnv(t, emb)
	env.seed(t, "Some published item", "")

	page, err := env.engine.Search(context.Background(), Request{Query: "anything", Strategy: StrategyVector})
	require.NoError(t, err)
	assert.True(t, page.Degraded)
	assert.Empty(t, page.Results)
}

func TestEngine_StorageFailureIsNotRecoverable(t *testing.T) {
	env := newTestEnv(t, nil)
	broken := &brokenStore{ContentStore: env.store}
	engine := NewEngine(broken, env.index, env.embedder, nil, nil, nil, EngineConfig{})

	_, err := engine.Search(context.Background(), Request{Query: "anything"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrStorageUnavailable)
}

func TestEngine_SoftDeletedItemsDropOut(t *testing.T) {
	env := newTestEnv(t, nil)
	keep := env.seed(t, "Port reopens after storm", "Shipping backlog clears")
	gone := env.seed(t, "Port closure extended", "Storm damage under review")

	require.NoError(t, env.store.SoftDeleteNews(context.Background(), gone.ID))

	page, err := env.engine.Search(context.Background(), Request{Query: "port storm"})
	require.NoError(t, err)

	for _, r := range page.Results {
		assert.NotEqual(t, gone.ID, r.NewsID, "deleted item must not appear")
	}
	require.NotEmpty(t, page.Results)
	assert.Equal(t, keep.ID, page.Results[0].NewsID)
}

func TestEngine_PaginationAfterFusion(t *testing.T) {
	env := newTestEnv(t, nil)
	for i := 0; i < 7; i++ {
		env.seed(t, "Election coverage continues", "Polling stations report turnout")
	}

	page1, err := env.engine.Search(context.Background(), Request{Query: "election turnout", PageSize: 3, Page: 1})
	require.NoError(t, err)
	assert.Equal(t, 7, page1.Total)
	assert.Equal(t, 3, page1.TotalPages)
	assert.Len(t, page1.Results, 3)

	page3, err := env.engine.Search(context.Background(), Request{Query: "election turnout", PageSize: 3, Page: 3})
	require.NoError(t, err)
	assert.Len(t, page3.Results, 1)

	// No overlap between pages, and page numbers past the end are empty.
	seen := map[int64]bool{}
	for _, r := range append(page1.Results, page3.Results...) {
		assert.False(t, seen[r.NewsID])
		seen[r.NewsID] = true
	}

	beyond, err := env.engine.Search(context.Background(), Request{Query: "election turnout", PageSize: 3, Page: 9})
	require.NoError(t, err)
	assert.Empty(t, beyond.Results)
	assert.Equal(t, 7, beyond.Total)
}

func TestEngine_PageClamping(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seed(t, "Heat wave persists", "")

	page, err := env.engine.Search(context.Background(), Request{Query: "heat wave", Page: -2, PageSize: 100000})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 100, page.PageSize, "page size clamps to the maximum")
}

func TestEngine_RateLimitCheckedBeforeWork(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seed(t, "Quota test item", "")

	limiter, err := ratelimit.NewSlidingWindow(2, time.Hour, 10)
	require.NoError(t, err)
	engine := NewEngine(env.store, env.index, env.embedder, limiter, env.metrics, nil, EngineConfig{})

	req := Request{Query: "quota", ClientKey: "1.2.3.4"}
	_, err = engine.Search(context.Background(), req)
	require.NoError(t, err)
	_, err = engine.Search(context.Background(), req)
	require.NoError(t, err)

	calls := env.store.lexCalls.Load()
	_, err = engine.Search(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrRateLimited)
	assert.Equal(t, calls, env.store.lexCalls.Load(), "no engine work after rejection")

	// Other clients are unaffected.
	_, err = engine.Search(context.Background(), Request{Query: "quota", ClientKey: "5.6.7.8"})
	require.NoError(t, err)
}

func TestEngine_RecordsMetrics(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seed(t, "Metrics check", "")

	_, err := env.engine.Search(context.Background(), Request{Query: "metrics check"})
	require.NoError(t, err)

	snap := env.metrics.Snapshot()
	assert.Equal(t, int64(1), snap.TotalQueries)
	assert.Equal(t, int64(1), snap.StrategyCounts["hybrid"])
}

func TestNormalizeStrategy(t *testing.T) {
	tests := []struct {
		input string
		want  Strategy
	}{
		{"hybrid", StrategyHybrid},
		{"lexical", StrategyLexical},
		{"TEXT", StrategyLexical},
		{"keyword", StrategyLexical},
		{"vector", StrategyVector},
		{"Semantic", StrategyVector},
		{"", StrategyHybrid},
		{"nonsense", StrategyHybrid},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeStrategy(tt.input))
		})
	}
}
