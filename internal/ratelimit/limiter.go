// Package ratelimit enforces per-client request quotas with a sliding
// window counter. Client state is bounded by an LRU cache, so a flood of
// distinct clients cannot grow memory without limit.
package ratelimit

import (
	"math"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Decision is the outcome of a quota check.
type Decision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool

	// Remaining is the number of requests left in the current window.
	Remaining int

	// RetryAfter is how long to wait before the next request may be
	// allowed. Zero when Allowed.
	RetryAfter time.Duration
}

// Limiter decides whether a client request is within quota.
type Limiter interface {
	// Allow records a request attempt for key and returns the decision.
	Allow(key string) Decision
}

// window holds the request counts of two adjacent fixed windows.
type window struct {
	start    time.Time // start of the current window
	count    int       // requests in the current window
	previous int       // requests in the window before it
}

// SlidingWindow implements Limiter with the sliding window counter
// algorithm: the previous window's count is weighted by how much of it
// still overlaps a window-sized interval ending now. This smooths the
// boundary burst allowed by plain fixed windows while needing only two
// counters per client.
type SlidingWindow struct {
	mu      sync.Mutex
	clients *lru.Cache[string, *window]
	limit   int
	size    time.Duration
	now     func() time.Time
}

// Verify interface implementation at compile time
var _ Limiter = (*SlidingWindow)(nil)

// NewSlidingWindow creates a limiter allowing limit requests per window
// across at most maxClients tracked clients.
func NewSlidingWindow(limit int, windowSize time.Duration, maxClients int) (*SlidingWindow, error) {
	if maxClients <= 0 {
		maxClients = 10000
	}
	clients, err := lru.New[string, *window](maxClients)
	if err != nil {
		return nil, err
	}
	return &SlidingWindow{
		clients: clients,
		limit:   limit,
		size:    windowSize,
		now:     time.Now,
	}, nil
}

// Allow records a request attempt for key and returns the decision.
func (l *SlidingWindow) Allow(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	w, ok := l.clients.Get(key)
	if !ok {
		w = &window{start: now.Truncate(l.size)}
		l.clients.Add(key, w)
	}

	l.roll(w, now)

	weighted := l.weightedCount(w, now)
	if weighted >= float64(l.limit) {
		return Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: l.retryAfter(w, now),
		}
	}

	w.count++
	remaining := l.limit - int(math.Ceil(weighted)) - 1
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: true, Remaining: remaining}
}

// roll advances the window pair so w.start is the fixed window containing
// now.
func (l *SlidingWindow) roll(w *window, now time.Time) {
	current := now.Truncate(l.size)
	switch {
	case current.Equal(w.start):
		// Still in the same window.
	case current.Equal(w.start.Add(l.size)):
		w.previous = w.count
		w.count = 0
		w.start = current
	default:
		// More than one full window has elapsed.
		w.previous = 0
		w.count = 0
		w.start = current
	}
}

// weightedCount returns the sliding-window estimate: the current count plus
// the previous count scaled by the remaining overlap.
func (l *SlidingWindow) weightedCount(w *window, now time.Time) float64 {
	elapsed := now.Sub(w.start)
	overlap := 1.0 - float64(elapsed)/float64(l.size)
	if overlap < 0 {
		overlap = 0
	}
	return float64(w.count) + float64(w.previous)*overlap
}

// retryAfter estimates how long until the weighted count drops below the
// limit. With no previous-window contribution the client must wait for the
// next window.
func (l *SlidingWindow) retryAfter(w *window, now time.Time) time.Duration {
	next := w.start.Add(l.size)
	if w.previous == 0 {
		return next.Sub(now)
	}

	// Find when previous*overlap + count < limit.
	need := float64(w.count+w.previous) - float64(l.limit) + 1
	if need <= 0 {
		return 0
	}
	fraction := need / float64(w.previous)
	if fraction > 1 {
		fraction = 1
	}
	wait := time.Duration(fraction*float64(l.size)) - now.Sub(w.start)
	if wait < 0 {
		wait = 0
	}
	return wait
}

// Noop is a Limiter that allows everything. Used when rate limiting is
// disabled.
type Noop struct{}

// Verify interface implementation at compile time
var _ Limiter = Noop{}

// Allow always permits the request.
func (Noop) Allow(string) Decision {
	return Decision{Allowed: true, Remaining: math.MaxInt32}
}
