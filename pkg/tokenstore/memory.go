package tokenstore

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps tokens in a process-local map. Tokens do not survive a
// restart; use the SQLite store when they must.
type MemoryStore struct {
	now func() time.Time

	mu     sync.RWMutex
	tokens map[string]Token
}

// NewMemoryStore creates an empty in-memory store. A nil clock means
// time.Now.
func NewMemoryStore(clock func() time.Time) *MemoryStore {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryStore{
		now:    clock,
		tokens: make(map[string]Token),
	}
}

// Put stores or replaces a token.
func (s *MemoryStore) Put(_ context.Context, token Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token.CreatedAt.IsZero() {
		token.CreatedAt = s.now()
	}
	s.tokens[token.Value] = token
	return nil
}

// Validate looks up an unexpired token by value.
func (s *MemoryStore) Validate(_ context.Context, value string) (Token, bool, error) {
	s.mu.RLock()
	token, ok := s.tokens[value]
	s.mu.RUnlock()

	if !ok || token.Expired(s.now()) {
		return Token{}, false, nil
	}
	return token, true, nil
}

// Delete removes a token.
func (s *MemoryStore) Delete(_ context.Context, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, value)
	return nil
}

// PurgeExpired drops every expired token.
func (s *MemoryStore) PurgeExpired(_ context.Context) (int64, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64
	for value, token := range s.tokens {
		if token.Expired(now) {
			delete(s.tokens, value)
			purged++
		}
	}
	return purged, nil
}

// Len returns the number of stored tokens, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
