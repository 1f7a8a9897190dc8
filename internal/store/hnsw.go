package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	"github.com/Hino9LLC/newsearch/internal/errors"
)

// HNSWConfig configures the in-memory vector index.
type HNSWConfig struct {
	// Dimensions is the required vector length.
	Dimensions int

	// M is the maximum number of graph neighbors per node.
	M int

	// EfSearch is the search beam width.
	EfSearch int

	// NewsWeight scales similarity scores of digest vectors.
	// Defaults to 1.2.
	NewsWeight float64

	// ArticleWeight scales similarity scores of full-article vectors.
	// Defaults to 1.0.
	ArticleWeight float64
}

// HNSWIndex implements VectorIndex with a pure Go HNSW graph over cosine
// distance. Vectors are keyed by (news ID, source) through an indirection
// table so replaced vectors can be dropped lazily: deleting graph nodes
// directly can corrupt the graph, so stale nodes stay in place and are
// filtered out of results instead.
type HNSWIndex struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[uint64]
	config HNSWConfig

	refMap  map[VectorRef]uint64 // vector ref -> internal key
	keyMap  map[uint64]VectorRef // internal key -> vector ref
	nextKey uint64
	orphans int // stale graph nodes without a live mapping

	closed bool
}

// Verify interface implementation at compile time
var _ VectorIndex = (*HNSWIndex)(nil)

// NewHNSWIndex creates an empty vector index.
func NewHNSWIndex(cfg HNSWConfig) (*HNSWIndex, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", cfg.Dimensions)
	}
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 20
	}
	if cfg.NewsWeight == 0 {
		cfg.NewsWeight = 1.2
	}
	if cfg.ArticleWeight == 0 {
		cfg.ArticleWeight = 1.0
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25

	return &HNSWIndex{
		graph:  graph,
		config: cfg,
		refMap: make(map[VectorRef]uint64),
		keyMap: make(map[uint64]VectorRef),
	}, nil
}

func (h *HNSWIndex) sourceWeight(source EmbeddingSource) float64 {
	if source == SourceArticle {
		return h.config.ArticleWeight
	}
	return h.config.NewsWeight
}

// Add inserts or replaces vectors by (news ID, source).
func (h *HNSWIndex) Add(ctx context.Context, embeddings []StoredEmbedding) error {
	if len(embeddings) == 0 {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return fmt.Errorf("index is closed")
	}

	for _, e := range embeddings {
		if len(e.Vector) != h.config.Dimensions {
			return errors.New(errors.ErrCodeDimensionMismatch,
				fmt.Sprintf("vector for news %d has %d dimensions, expected %d",
					e.NewsID, len(e.Vector), h.config.Dimensions), nil)
		}
	}

	for _, e := range embeddings {
		if err := ctx.Err(); err != nil {
			return err
		}

		ref := VectorRef{NewsID: e.NewsID, Source: e.Source}
		if ref.Source == "" {
			ref.Source = SourceNews
		}

		if existingKey, exists := h.refMap[ref]; exists {
			delete(h.keyMap, existingKey)
			delete(h.refMap, ref)
			h.orphans++
		}

		key := h.nextKey
		h.nextKey++

		vec := make([]float32, len(e.Vector))
		copy(vec, e.Vector)
		normalizeInPlace(vec)

		h.graph.Add(hnsw.MakeNode(key, vec))
		h.refMap[ref] = key
		h.keyMap[key] = ref
	}

	return nil
}

// Search returns the k nearest news items by cosine similarity.
func (h *HNSWIndex) Search(ctx context.Context, query []float32, k int) ([]VectorHit, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(query) != h.config.Dimensions {
		return nil, errors.New(errors.ErrCodeDimensionMismatch,
			fmt.Sprintf("query has %d dimensions, expected %d", len(query), h.config.Dimensions), nil)
	}

	if h.graph.Len() == 0 || k <= 0 {
		return []VectorHit{}, nil
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	normalizeInPlace(normalized)

	// Over-fetch to cover stale nodes and the second vector a news item
	// may carry; both are collapsed out of the results below.
	nodes := h.graph.Search(normalized, 2*k+h.orphans)

	// Weight each source and keep the best score per news item.
	best := make(map[int64]float64, k)
	for _, node := range nodes {
		ref, exists := h.keyMap[node.Key]
		if !exists {
			continue
		}

		distance := h.graph.Distance(normalized, node.Value)
		// Cosine distance ranges 0..2; map to similarity 0..1.
		score := h.sourceWeight(ref.Source) * float64(1.0-distance/2.0)
		if prev, seen := best[ref.NewsID]; !seen || score > prev {
			best[ref.NewsID] = score
		}
	}

	hits := make([]VectorHit, 0, len(best))
	for id, score := range best {
		hits = append(hits, VectorHit{NewsID: id, Score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].NewsID < hits[j].NewsID
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	return hits, nil
}

// Remove drops the referenced vectors using lazy deletion.
func (h *HNSWIndex) Remove(ctx context.Context, refs []VectorRef) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return fmt.Errorf("index is closed")
	}

	for _, ref := range refs {
		if key, exists := h.refMap[ref]; exists {
			delete(h.keyMap, key)
			delete(h.refMap, ref)
			h.orphans++
		}
	}
	return nil
}

// Contains reports whether the referenced vector is indexed.
func (h *HNSWIndex) Contains(ref VectorRef) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return false
	}
	_, exists := h.refMap[ref]
	return exists
}

// Refs returns all indexed vector references.
func (h *HNSWIndex) Refs() []VectorRef {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return nil
	}
	refs := make([]VectorRef, 0, len(h.refMap))
	for ref := range h.refMap {
		refs = append(refs, ref)
	}
	return refs
}

// Count returns the number of live vectors.
func (h *HNSWIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return 0
	}
	return len(h.refMap)
}

// Close releases the index.
func (h *HNSWIndex) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	h.graph = nil
	h.refMap = nil
	h.keyMap = nil
	return nil
}

// SyncFromStore rebuilds index membership from the store's eligible
// vectors: new embeddings are added and indexed items that are no longer
// eligible are removed.
func SyncFromStore(ctx context.Context, idx VectorIndex, cs ContentStore) (added, removed int, err error) {
	embeddings, err := cs.EligibleEmbeddings(ctx)
	if err != nil {
		return 0, 0, err
	}

	eligible := make(map[VectorRef]struct{}, len(embeddings))
	var toAdd []StoredEmbedding
	for _, e := range embeddings {
		ref := VectorRef{NewsID: e.NewsID, Source: e.Source}
		if ref.Source == "" {
			ref.Source = SourceNews
		}
		eligible[ref] = struct{}{}
		if !idx.Contains(ref) {
			toAdd = append(toAdd, e)
		}
	}

	if err := idx.Add(ctx, toAdd); err != nil {
		return 0, 0, err
	}

	var toRemove []VectorRef
	for _, ref := range idx.Refs() {
		if _, ok := eligible[ref]; !ok {
			toRemove = append(toRemove, ref)
		}
	}
	if err := idx.Remove(ctx, toRemove); err != nil {
		return 0, 0, err
	}

	return len(toAdd), len(toRemove), nil
}

// normalizeInPlace scales v to unit length.
func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}
