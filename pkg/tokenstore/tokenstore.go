// Package tokenstore persists opaque UI-session tokens.
//
// The gateway's auth path accepts a WebSocket upgrade when the presented
// token validates against a Store, before falling back to API-key
// comparison. Two implementations are provided: an in-memory store for
// single-process deployments and tests, and a SQLite store that survives
// restarts.
package tokenstore

import (
	"context"
	"time"
)

// Token is one stored UI-session token.
type Token struct {
	// Value is the opaque token string presented by clients.
	Value string

	// UserID identifies the authenticated user, when known.
	UserID string

	// CreatedAt is when the token was issued.
	CreatedAt time.Time

	// ExpiresAt is when the token stops validating.
	ExpiresAt time.Time
}

// Expired reports whether the token is past its expiry at the given time.
func (t Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// Store persists session tokens. Implementations are safe for concurrent
// use.
type Store interface {
	// Put stores or replaces a token.
	Put(ctx context.Context, token Token) error

	// Validate looks up a token by value. It returns the stored token and
	// true when present and unexpired, (zero, false) otherwise. Expired
	// rows are left for PurgeExpired.
	Validate(ctx context.Context, value string) (Token, bool, error)

	// Delete removes a token. Deleting an absent token is not an error.
	Delete(ctx context.Context, value string) error

	// PurgeExpired removes every expired token and returns how many were
	// dropped.
	PurgeExpired(ctx context.Context) (int64, error)

	// Close releases the store's resources.
	Close() error
}
