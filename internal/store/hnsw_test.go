package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	searcherrors "github.com/Hino9LLC/newsearch/internal/errors"
)

func newTestIndex(t *testing.T, dims int) *HNSWIndex {
	t.Helper()
	idx, err := NewHNSWIndex(HNSWConfig{Dimensions: dims})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestHNSWIndex_AddAndSearch(t *testing.T) {
	idx := newTestIndex(t, 3)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, []StoredEmbedding{
		{NewsID: 1, Vector: []float32{1, 0, 0}},
		{NewsID: 2, Vector: []float32{0, 1, 0}},
		{NewsID: 3, Vector: []float32{0.9, 0.1, 0}},
	}))
	assert.Equal(t, 3, idx.Count())

	hits, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, int64(1), hits[0].NewsID)
	assert.Equal(t, int64(3), hits[1].NewsID)
	// An exact digest-vector match scores the full news weight.
	assert.InDelta(t, 1.2, hits[0].Score, 1e-5)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestHNSWIndex_ArticleVectorWeighting(t *testing.T) {
	idx := newTestIndex(t, 3)
	ctx := context.Background()

	// Item 1 matches through its article vector, item 2 through its digest
	// vector. Equal similarity, so the digest weight decides the order.
	require.NoError(t, idx.Add(ctx, []StoredEmbedding{
		{NewsID: 1, Source: SourceArticle, Vector: []float32{1, 0, 0}},
		{NewsID: 2, Source: SourceNews, Vector: []float32{1, 0, 0}},
	}))

	hits, err := idx.Search(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, int64(2), hits[0].NewsID)
	assert.InDelta(t, 1.2, hits[0].Score, 1e-5)
	assert.Equal(t, int64(1), hits[1].NewsID)
	assert.InDelta(t, 1.0, hits[1].Score, 1e-5)
}

func TestHNSWIndex_CollapsesSourcesPerItem(t *testing.T) {
	idx := newTestIndex(t, 3)
	ctx := context.Background()

	// Both vectors of item 1 match; it must surface once, with the
	// better-weighted score.
	require.NoError(t, idx.Add(ctx, []StoredEmbedding{
		{NewsID: 1, Source: SourceNews, Vector: []float32{1, 0, 0}},
		{NewsID: 1, Source: SourceArticle, Vector: []float32{0.9, 0.1, 0}},
	}))
	assert.Equal(t, 2, idx.Count())

	hits, err := idx.Search(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(1), hits[0].NewsID)
	assert.InDelta(t, 1.2, hits[0].Score, 1e-5)
}

func TestHNSWIndex_DimensionMismatch(t *testing.T) {
	idx := newTestIndex(t, 3)
	ctx := context.Background()

	err := idx.Add(ctx, []StoredEmbedding{{NewsID: 1, Vector: []float32{1, 0}}})
	require.Error(t, err)
	assert.Equal(t, searcherrors.ErrCodeDimensionMismatch, searcherrors.GetCode(err))

	require.NoError(t, idx.Add(ctx, []StoredEmbedding{{NewsID: 1, Vector: []float32{1, 0, 0}}}))
	_, err = idx.Search(ctx, []float32{1, 0, 0, 0}, 1)
	require.Error(t, err)
	assert.Equal(t, searcherrors.ErrCodeDimensionMismatch, searcherrors.GetCode(err))
}

func TestHNSWIndex_EmptySearch(t *testing.T) {
	idx := newTestIndex(t, 3)

	hits, err := idx.Search(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestHNSWIndex_RemoveIsLazy(t *testing.T) {
	idx := newTestIndex(t, 3)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, []StoredEmbedding{
		{NewsID: 1, Vector: []float32{1, 0, 0}},
		{NewsID: 2, Vector: []float32{0.9, 0.1, 0}},
	}))
	require.NoError(t, idx.Remove(ctx, []VectorRef{{NewsID: 1, Source: SourceNews}}))

	assert.False(t, idx.Contains(VectorRef{NewsID: 1, Source: SourceNews}))
	assert.True(t, idx.Contains(VectorRef{NewsID: 2, Source: SourceNews}))
	assert.Equal(t, 1, idx.Count())

	// The removed vector never reappears in results even though its node
	// is still in the graph.
	hits, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(2), hits[0].NewsID)
}

func TestHNSWIndex_ReplaceVector(t *testing.T) {
	idx := newTestIndex(t, 3)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, []StoredEmbedding{{NewsID: 1, Vector: []float32{1, 0, 0}}}))
	require.NoError(t, idx.Add(ctx, []StoredEmbedding{{NewsID: 1, Vector: []float32{0, 0, 1}}}))
	assert.Equal(t, 1, idx.Count())

	hits, err := idx.Search(ctx, []float32{0, 0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(1), hits[0].NewsID)
	assert.InDelta(t, 1.2, hits[0].Score, 1e-5)
}

func TestSyncFromStore(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	idx := newTestIndex(t, 3)

	a := saveNews(t, s, publishedNews("a", ""))
	b := saveNews(t, s, publishedNews("b", ""))
	require.NoError(t, s.SaveEmbedding(ctx, a.ID, []float32{1, 0, 0}))
	require.NoError(t, s.SaveEmbedding(ctx, b.ID, []float32{0, 1, 0}))

	added, removed, err := SyncFromStore(ctx, idx, s)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, 0, removed)
	assert.Equal(t, 2, idx.Count())

	// Soft-deleting a news item drops it from the index on the next sync.
	require.NoError(t, s.SoftDeleteNews(ctx, a.ID))

	added, removed, err = SyncFromStore(ctx, idx, s)
	require.NoError(t, err)
	assert.Equal(t, 0, added)
	assert.Equal(t, 1, removed)
	assert.False(t, idx.Contains(VectorRef{NewsID: a.ID, Source: SourceNews}))
	assert.True(t, idx.Contains(VectorRef{NewsID: b.ID, Source: SourceNews}))
}

func TestSyncFromStore_ArticleVectors(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	idx := newTestIndex(t, 3)

	article := &Article{ContentText: "full text", Status: StatusProcessed}
	require.NoError(t, s.SaveArticle(ctx, article))
	item := publishedNews("digest", "")
	item.ArticleID = &article.ID
	saveNews(t, s, item)

	require.NoError(t, s.SaveEmbedding(ctx, item.ID, []float32{1, 0, 0}))
	require.NoError(t, s.SaveArticleEmbedding(ctx, article.ID, []float32{0, 1, 0}))

	added, removed, err := SyncFromStore(ctx, idx, s)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, 0, removed)
	assert.True(t, idx.Contains(VectorRef{NewsID: item.ID, Source: SourceNews}))
	assert.True(t, idx.Contains(VectorRef{NewsID: item.ID, Source: SourceArticle}))

	// Soft-deleting the article drops only its vector; the digest stays.
	require.NoError(t, s.SoftDeleteArticle(ctx, article.ID))

	added, removed, err = SyncFromStore(ctx, idx, s)
	require.NoError(t, err)
	assert.Equal(t, 0, added)
	assert.Equal(t, 1, removed)
	assert.True(t, idx.Contains(VectorRef{NewsID: item.ID, Source: SourceNews}))
	assert.False(t, idx.Contains(VectorRef{NewsID: item.ID, Source: SourceArticle}))
}
