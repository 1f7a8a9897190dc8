package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hino9LLC/newsearch/internal/store"
)

func lexList(ids ...int64) []store.LexicalHit {
	hits := make([]store.LexicalHit, len(ids))
	for i, id := range ids {
		hits[i] = store.LexicalHit{NewsID: id, Score: float64(len(ids) - i)}
	}
	return hits
}

func vecList(ids ...int64) []store.VectorHit {
	hits := make([]store.VectorHit, len(ids))
	for i, id := range ids {
		hits[i] = store.VectorHit{NewsID: id, Score: 1.0 - float64(i)*0.1}
	}
	return hits
}

func fusedIDs(hits []*FusedHit) []int64 {
	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.NewsID
	}
	return ids
}

func TestRRFFusion_BothEmpty(t *testing.T) {
	f := NewRRFFusion(60)
	result := f.Fuse(nil, nil)
	require.NotNil(t, result)
	assert.Empty(t, result)
}

func TestRRFFusion_SingleListPreservesOrder(t *testing.T) {
	f := NewRRFFusion(60)

	// A list fused with an empty one must come back in the same order:
	// the absent list contributes nothing, so ranks alone decide.
	lex := lexList(7, 3, 9, 1, 5)
	result := f.Fuse(lex, nil)
	assert.Equal(t, []int64{7, 3, 9, 1, 5}, fusedIDs(result))

	vec := vecList(4, 8, 2)
	result = f.Fuse(nil, vec)
	assert.Equal(t, []int64{4, 8, 2}, fusedIDs(result))
}

func TestRRFFusion_ItemInBothListsRanksFirst(t *testing.T) {
	f := NewRRFFusion(60)

	// B is second lexically and first by vector; A and C each appear in
	// one list only. B's two contributions outweigh either single one.
	result := f.Fuse(lexList(1, 2), vecList(2, 3))

	require.Len(t, result, 3)
	assert.Equal(t, int64(2), result[0].NewsID)
	assert.True(t, result[0].InBoth)
	assert.Equal(t, 2, result[0].LexRank)
	assert.Equal(t, 1, result[0].VecRank)
}

func TestRRFFusion_ScoreIsSumOfReciprocalRanks(t *testing.T) {
	f := NewRRFFusion(60)

	result := f.Fuse(lexList(1, 2), vecList(2))
	require.Len(t, result, 2)

	// Before normalization: item 2 scores 1/62 + 1/61, item 1 scores
	// 1/61. Normalized so the top result is 1.0.
	assert.Equal(t, int64(2), result[0].NewsID)
	assert.InDelta(t, 1.0, result[0].RRFScore, 1e-9)

	expected := (1.0 / 61.0) / (1.0/62.0 + 1.0/61.0)
	assert.InDelta(t, expected, result[1].RRFScore, 1e-9)
}

func TestRRFFusion_MissingListContributesNothing(t *testing.T) {
	f := NewRRFFusion(60)

	// With a missing-rank penalty, a long vector list would push
	// lexical-only items around. Here item 1 keeps exactly its
	// reciprocal-rank score regardless of the other list's length.
	short := f.Fuse(lexList(1), vecList(50, 51))
	long := f.Fuse(lexList(1), vecList(50, 51, 52, 53, 54, 55, 56, 57))

	var shortScore, longScore float64
	for _, h := range short {
		if h.NewsID == 1 {
			shortScore = h.RRFScore
		}
	}
	for _, h := range long {
		if h.NewsID == 1 {
			longScore = h.RRFScore
		}
	}
	assert.InDelta(t, shortScore, longScore, 1e-12)
}

func TestRRFFusion_TieBreaksDeterministic(t *testing.T) {
	f := NewRRFFusion(60)

	// Two items at the same rank in opposite lists tie on RRF score;
	// the higher lexical score wins, then the smaller ID.
	lex := []store.LexicalHit{{NewsID: 5, Score: 2.0}}
	vec := []store.VectorHit{{NewsID: 3, Score: 0.9}}

	result := f.Fuse(lex, vec)
	require.Len(t, result, 2)
	assert.Equal(t, int64(5), result[0].NewsID, "lexical score breaks the tie")

	// With no lexical side at all, IDs decide.
	result = f.Fuse(nil, []store.VectorHit{{NewsID: 9, Score: 0.5}})
	result2 := f.Fuse(nil, []store.VectorHit{{NewsID: 9, Score: 0.5}, {NewsID: 4, Score: 0.5}})
	assert.Equal(t, int64(9), result[0].NewsID)
	assert.Equal(t, []int64{9, 4}, fusedIDs(result2), "rank order holds even with equal raw scores")
}

func TestRRFFusion_DefaultK(t *testing.T) {
	assert.Equal(t, DefaultRRFConstant, NewRRFFusion(0).K)
	assert.Equal(t, DefaultRRFConstant, NewRRFFusion(-5).K)
	assert.Equal(t, 30, NewRRFFusion(30).K)
}

func TestRRFFusion_SmallerKSharpensRankGaps(t *testing.T) {
	sharp := NewRRFFusion(1)
	smooth := NewRRFFusion(1000)

	lex := lexList(1, 2)
	gapSharp := sharp.Fuse(lex, nil)
	gapSmooth := smooth.Fuse(lex, nil)

	deltaSharp := gapSharp[0].RRFScore - gapSharp[1].RRFScore
	deltaSmooth := gapSmooth[0].RRFScore - gapSmooth[1].RRFScore
	assert.Greater(t, deltaSharp, deltaSmooth)
}
