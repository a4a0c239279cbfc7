package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket is a token-bucket limiter. The bucket starts full, each
// accepted message consumes tokens, and tokens refill at a constant rate up
// to the capacity. Take never blocks; callers reject or drop on false.
//
// TokenBucket is safe for concurrent use.
type TokenBucket struct {
	capacity   int64
	refillRate float64 // tokens per second
	now        func() time.Time

	mu         sync.Mutex
	tokens     int64
	lastRefill time.Time
}

// NewTokenBucket creates a full bucket. capacity is the burst size and
// refillRate the sustained tokens per second. A nil clock means time.Now.
func NewTokenBucket(capacity int64, refillRate float64, clock func() time.Time) *TokenBucket {
	if clock == nil {
		clock = time.Now
	}
	return &TokenBucket{
		capacity:   capacity,
		refillRate: refillRate,
		now:        clock,
		tokens:     capacity,
		lastRefill: clock(),
	}
}

// Take attempts to consume n tokens. It refills based on elapsed time
// first, then reports whether the bucket held enough.
func (tb *TokenBucket) Take(n int64) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked()
	if tb.tokens >= n {
		tb.tokens -= n
		return true
	}
	return false
}

// Remaining returns the number of tokens available right now, after
// applying any pending refill.
func (tb *TokenBucket) Remaining() int64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked()
	return tb.tokens
}

// Capacity returns the bucket's burst size.
func (tb *TokenBucket) Capacity() int64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.capacity
}

// Reset refills the bucket to capacity.
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.lastRefill = tb.now()
}

// TimeUntilAvailable returns how long until n tokens will be available,
// or zero when they already are.
func (tb *TokenBucket) TimeUntilAvailable(n int64) time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked()
	if tb.tokens >= n {
		return 0
	}

	needed := n - tb.tokens
	seconds := float64(needed) / tb.refillRate
	return time.Duration(seconds * float64(time.Second))
}

// refillLocked adds tokens for the time elapsed since the last refill.
// lastRefill only advances when at least one whole token accrued, so
// fractional progress is never thrown away. Caller must hold mu.
func (tb *TokenBucket) refillLocked() {
	now := tb.now()
	elapsed := now.Sub(tb.lastRefill)

	tokensToAdd := int64(elapsed.Seconds() * tb.refillRate)
	if tokensToAdd > 0 {
		tb.tokens += tokensToAdd
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastRefill = now
	}
}
