package routing

import (
	"sync"
	"sync/atomic"
	"time"
)

// RouterStats tracks routing activity with atomic counters. All methods
// are safe for concurrent use.
type RouterStats struct {
	// selections is the total number of successful routing decisions
	selections atomic.Int64

	// completions is the number of completed non-streaming requests
	completions atomic.Int64

	// streams is the number of opened streams
	streams atomic.Int64

	// failures is the number of provider send failures
	failures atomic.Int64

	// errors is the number of selection errors (no match, bad strategy)
	errors atomic.Int64

	// selectionsPerStrategy tracks decisions per strategy
	selectionsPerStrategy sync.Map // map[string]*atomic.Int64

	// selectionsPerProvider tracks decisions per provider
	selectionsPerProvider sync.Map // map[string]*atomic.Int64

	// lastResetTime is when statistics were last reset
	lastResetTime time.Time

	// mu protects lastResetTime
	mu sync.RWMutex
}

// Stats is a point-in-time snapshot of router statistics.
type Stats struct {
	// Selections is the total number of successful routing decisions.
	Selections int64

	// Completions is the number of completed non-streaming requests.
	Completions int64

	// Streams is the number of opened streams.
	Streams int64

	// Failures is the number of provider send failures.
	Failures int64

	// Errors is the number of selection errors.
	Errors int64

	// SelectionsPerStrategy maps strategy name to decision count.
	SelectionsPerStrategy map[string]int64

	// SelectionsPerProvider maps provider id to decision count.
	SelectionsPerProvider map[string]int64

	// LastResetTime is when statistics were last reset.
	LastResetTime time.Time
}

// NewRouterStats creates a new statistics tracker.
func NewRouterStats() *RouterStats {
	return &RouterStats{
		lastResetTime: time.Now(),
	}
}

// IncrementSelection records a successful routing decision.
func (s *RouterStats) IncrementSelection(strategy, provider string) {
	s.selections.Add(1)
	bump(&s.selectionsPerStrategy, strategy)
	bump(&s.selectionsPerProvider, provider)
}

// IncrementCompletions records a completed non-streaming request.
func (s *RouterStats) IncrementCompletions() {
	s.completions.Add(1)
}

// IncrementStreams records an opened stream.
func (s *RouterStats) IncrementStreams() {
	s.streams.Add(1)
}

// IncrementFailures records a provider send failure.
func (s *RouterStats) IncrementFailures() {
	s.failures.Add(1)
}

// IncrementErrors records a selection error.
func (s *RouterStats) IncrementErrors() {
	s.errors.Add(1)
}

func bump(m *sync.Map, key string) {
	val, _ := m.LoadOrStore(key, &atomic.Int64{})
	val.(*atomic.Int64).Add(1)
}

// Snapshot returns a point-in-time copy of the statistics. The returned
// struct is safe to read without locks.
func (s *RouterStats) Snapshot() *Stats {
	s.mu.RLock()
	resetTime := s.lastResetTime
	s.mu.RUnlock()

	perStrategy := make(map[string]int64)
	s.selectionsPerStrategy.Range(func(key, value interface{}) bool {
		perStrategy[key.(string)] = value.(*atomic.Int64).Load()
		return true
	})

	perProvider := make(map[string]int64)
	s.selectionsPerProvider.Range(func(key, value interface{}) bool {
		perProvider[key.(string)] = value.(*atomic.Int64).Load()
		return true
	})

	return &Stats{
		Selections:            s.selections.Load(),
		Completions:           s.completions.Load(),
		Streams:               s.streams.Load(),
		Failures:              s.failures.Load(),
		Errors:                s.errors.Load(),
		SelectionsPerStrategy: perStrategy,
		SelectionsPerProvider: perProvider,
		LastResetTime:         resetTime,
	}
}

// Reset zeroes all statistics.
func (s *RouterStats) Reset() {
	s.selections.Store(0)
	s.completions.Store(0)
	s.streams.Store(0)
	s.failures.Store(0)
	s.errors.Store(0)

	s.selectionsPerStrategy.Range(func(key, value interface{}) bool {
		s.selectionsPerStrategy.Delete(key)
		return true
	})
	s.selectionsPerProvider.Range(func(key, value interface{}) bool {
		s.selectionsPerProvider.Delete(key)
		return true
	})

	s.mu.Lock()
	s.lastResetTime = time.Now()
	s.mu.Unlock()
}
