package search

import (
	"sort"

	"github.com/Hino9LLC/newsearch/internal/store"
)

// DefaultRRFConstant is the standard RRF smoothing parameter.
// k=60 is empirically validated across domains.
const DefaultRRFConstant = 60

// FusedHit is a single result after RRF fusion.
type FusedHit struct {
	NewsID   int64   // News item identifier
	RRFScore float64 // Combined RRF score (normalized 0-1)
	LexScore float64 // Original lexical score (preserved)
	LexRank  int     // Position in lexical list (1-indexed, 0 if absent)
	VecScore float64 // Original vector similarity score (preserved)
	VecRank  int     // Position in vector list (1-indexed, 0 if absent)
	InBoth   bool    // Item appeared in both result lists
}

// RRFFusion combines lexical and vector results using Reciprocal Rank
// Fusion.
//
// Algorithm: RRF_score(d) = Σ 1 / (k + rank_i)
//
// A list that did not rank an item contributes nothing to its score. This
// keeps single-list fusion order-preserving: fusing one list with an empty
// one reorders nothing.
type RRFFusion struct {
	K int // RRF smoothing constant (default: 60)
}

// NewRRFFusion creates an RRF fusion instance. If k <= 0, defaults to 60.
func NewRRFFusion(k int) *RRFFusion {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return &RRFFusion{K: k}
}

// Fuse combines lexical and vector results.
//
// Results are sorted by: RRFScore (desc) → InBoth (true first) →
// LexScore (desc) → NewsID (asc). The caller applies the recency tie-break
// after hydration, when dates are known.
func (f *RRFFusion) Fuse(lex []store.LexicalHit, vec []store.VectorHit) []*FusedHit {
	if len(lex) == 0 && len(vec) == 0 {
		return []*FusedHit{}
	}

	scores := make(map[int64]*FusedHit, len(lex)+len(vec))

	for rank, h := range lex {
		hit := f.getOrCreate(scores, h.NewsID)
		hit.LexScore = h.Score
		hit.LexRank = rank + 1
		hit.RRFScore += 1.0 / float64(f.K+rank+1)
	}

	for rank, h := range vec {
		hit := f.getOrCreate(scores, h.NewsID)
		hit.VecScore = h.Score
		hit.VecRank = rank + 1
		hit.RRFScore += 1.0 / float64(f.K+rank+1)

		if hit.LexRank > 0 {
			hit.InBoth = true
		}
	}

	results := make([]*FusedHit, 0, len(scores))
	for _, hit := range scores {
		results = append(results, hit)
	}

	sort.Slice(results, func(i, j int) bool {
		return f.compare(results[i], results[j])
	})

	f.normalize(results)
	return results
}

func (f *RRFFusion) getOrCreate(m map[int64]*FusedHit, id int64) *FusedHit {
	if hit, ok := m[id]; ok {
		return hit
	}
	hit := &FusedHit{NewsID: id}
	m[id] = hit
	return hit
}

// compare returns true if a should rank before b.
func (f *RRFFusion) compare(a, b *FusedHit) bool {
	if a.RRFScore != b.RRFScore {
		return a.RRFScore > b.RRFScore
	}
	if a.InBoth != b.InBoth {
		return a.InBoth
	}
	if a.LexScore != b.LexScore {
		return a.LexScore > b.LexScore
	}
	return a.NewsID < b.NewsID
}

// normalize scales RRF scores so the best result is 1.0.
func (f *RRFFusion) normalize(results []*FusedHit) {
	if len(results) == 0 {
		return
	}
	maxScore := results[0].RRFScore
	if maxScore == 0 {
		return
	}
	for _, hit := range results {
		hit.RRFScore /= maxScore
	}
}
