// Package telemetry collects in-memory search metrics: per-strategy counts,
// latency buckets, zero-result queries, and top query terms.
package telemetry

import (
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// topTermsReported is how many query terms a snapshot carries.
const topTermsReported = 10

// Outcome classifies how a search request ended.
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeDegraded    Outcome = "degraded"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeTimeout     Outcome = "timeout"
	OutcomeError       Outcome = "error"
)

// LatencyBucket represents a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// QueryEvent represents a single search request for recording.
type QueryEvent struct {
	Query       string
	Strategy    string
	Outcome     Outcome
	ResultCount int
	Latency     time.Duration
}

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	mu       sync.RWMutex
	items    []T
	head     int
	size     int
	capacity int
}

// NewCircularBuffer creates a circular buffer with the given capacity.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &CircularBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// Add appends an item, evicting the oldest when full.
func (b *CircularBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
}

// Items returns the buffered items, oldest first.
func (b *CircularBuffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]T, 0, b.size)
	start := (b.head - b.size + b.capacity) % b.capacity
	for i := 0; i < b.size; i++ {
		out = append(out, b.items[(start+i)%b.capacity])
	}
	return out
}

// Snapshot is a point-in-time copy of the collected metrics.
type Snapshot struct {
	TotalQueries    int64                   `json:"total_queries"`
	StrategyCounts  map[string]int64        `json:"strategy_counts"`
	OutcomeCounts   map[Outcome]int64       `json:"outcome_counts"`
	LatencyBuckets  map[LatencyBucket]int64 `json:"latency_buckets"`
	ZeroResultCount int64                   `json:"zero_result_count"`
	ZeroResults     []string                `json:"zero_result_queries"`
	TopTerms        map[string]int64        `json:"top_terms"`
	UptimeSeconds   int64                   `json:"uptime_seconds"`
}

// Metrics is a thread-safe in-memory metrics collector.
type Metrics struct {
	mu sync.RWMutex

	strategies      map[string]int64
	outcomes        map[Outcome]int64
	latencies       map[LatencyBucket]int64
	topTerms        *lru.Cache[string, int64]
	zeroResults     *CircularBuffer[string]
	totalQueries    int64
	zeroResultCount int64
	startTime       time.Time
}

// NewMetrics creates a metrics collector.
func NewMetrics() *Metrics {
	topTerms, _ := lru.New[string, int64](100)
	return &Metrics{
		strategies:  make(map[string]int64),
		outcomes:    make(map[Outcome]int64),
		latencies:   make(map[LatencyBucket]int64),
		topTerms:    topTerms,
		zeroResults: NewCircularBuffer[string](100),
		startTime:   time.Now(),
	}
}

// Record captures one search request. Thread-safe and non-blocking.
func (m *Metrics) Record(event QueryEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalQueries++
	m.strategies[event.Strategy]++
	m.outcomes[event.Outcome]++
	m.latencies[LatencyToBucket(event.Latency)]++

	for _, term := range ExtractTerms(event.Query) {
		count, _ := m.topTerms.Get(term)
		m.topTerms.Add(term, count+1)
	}

	if event.ResultCount == 0 && event.Outcome == OutcomeOK {
		m.zeroResults.Add(event.Query)
		m.zeroResultCount++
	}
}

// Snapshot returns a copy of the current aggregates.
func (m *Metrics) Snapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	strategies := make(map[string]int64, len(m.strategies))
	for k, v := range m.strategies {
		strategies[k] = v
	}
	outcomes := make(map[Outcome]int64, len(m.outcomes))
	for k, v := range m.outcomes {
		outcomes[k] = v
	}
	latencies := make(map[LatencyBucket]int64, len(m.latencies))
	for k, v := range m.latencies {
		latencies[k] = v
	}

	return &Snapshot{
		TotalQueries:    m.totalQueries,
		StrategyCounts:  strategies,
		OutcomeCounts:   outcomes,
		LatencyBuckets:  latencies,
		ZeroResultCount: m.zeroResultCount,
		ZeroResults:     m.zeroResults.Items(),
		TopTerms:        m.topTermCounts(topTermsReported),
		UptimeSeconds:   int64(time.Since(m.startTime).Seconds()),
	}
}

// topTermCounts returns up to n of the most recently counted query terms.
// Callers must hold m.mu.
func (m *Metrics) topTermCounts(n int) map[string]int64 {
	out := make(map[string]int64, n)
	for _, key := range m.topTerms.Keys() {
		if len(out) >= n {
			break
		}
		if count, ok := m.topTerms.Get(key); ok {
			out[key] = count
		}
	}
	return out
}

// ExtractTerms splits a query into lowercase terms of two or more letters.
func ExtractTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, `"'.,;:!?()[]`)
		if len(f) >= 2 {
			terms = append(terms, f)
		}
	}
	return terms
}
