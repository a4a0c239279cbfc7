package fallback

import (
	"sync"
	"time"
)

// Circuit breaker states.
const (
	stateClosed   = "closed"
	stateOpen     = "open"
	stateHalfOpen = "half-open"
)

// CircuitBreaker tracks consecutive failures for one provider. After
// FailureThreshold consecutive failures the circuit opens and the provider
// is skipped until the cooldown elapses; the first call after that runs as
// a half-open trial whose outcome closes or reopens the circuit.
type CircuitBreaker struct {
	mu          sync.Mutex
	state       string
	failures    int
	lastFailure time.Time

	threshold int
	cooldown  time.Duration
	now       func() time.Time
}

// NewCircuitBreaker creates a closed breaker. A nil clock means time.Now.
func NewCircuitBreaker(threshold int, cooldown time.Duration, clock func() time.Time) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 60 * time.Second
	}
	if clock == nil {
		clock = time.Now
	}
	return &CircuitBreaker{
		state:     stateClosed,
		threshold: threshold,
		cooldown:  cooldown,
		now:       clock,
	}
}

// Allow reports whether a call may proceed. An open circuit whose cooldown
// has elapsed transitions to half-open and admits exactly one trial; further
// calls are rejected until the trial resolves.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case stateClosed:
		return true
	case stateOpen:
		if cb.now().Sub(cb.lastFailure) >= cb.cooldown {
			cb.state = stateHalfOpen
			return true
		}
		return false
	case stateHalfOpen:
		// A trial is already in flight.
		return false
	}
	return false
}

// RecordSuccess resets the breaker to closed.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = stateClosed
	cb.failures = 0
}

// RecordFailure counts a failure. The circuit opens when the count reaches
// the threshold, or immediately when a half-open trial fails.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	if cb.state == stateHalfOpen || cb.failures >= cb.threshold {
		cb.state = stateOpen
		cb.lastFailure = cb.now()
	}
}

// State returns the current state (closed, open, half-open).
func (cb *CircuitBreaker) State() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}
