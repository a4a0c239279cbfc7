// Package ratelimit provides the token-bucket limiter behind per-session
// WebSocket message limits.
//
// A bucket starts full at its burst capacity and refills at a constant
// per-second rate. Take never blocks: the caller consumes a token when one
// is available and otherwise rejects the message, typically with a
// rate-limit error back to the client.
//
// Usage:
//
//	bucket := ratelimit.NewTokenBucket(20, 1.0, nil)
//	if !bucket.Take(1) {
//		return errTooManyMessages
//	}
//
// The clock is injectable so tests advance time without sleeping.
package ratelimit
