package tokenstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)

// fakeClock is a manually advanced clock shared by store tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

// exerciseStore runs the Store contract against any implementation.
func exerciseStore(t *testing.T, store Store, clock *fakeClock) {
	t.Helper()
	ctx := context.Background()

	token := Token{
		Value:     "tok-1",
		UserID:    "user-1",
		ExpiresAt: clock.Now().Add(time.Hour),
	}
	if err := store.Put(ctx, token); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, ok, err := store.Validate(ctx, "tok-1")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !ok {
		t.Fatal("Validate(tok-1) = false, want true")
	}
	if got.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", got.UserID)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not filled by Put")
	}

	// Unknown token.
	if _, ok, err := store.Validate(ctx, "missing"); err != nil || ok {
		t.Errorf("Validate(missing) = %v, %v; want false, nil", ok, err)
	}

	// Expiry flips validation without a purge.
	clock.Advance(2 * time.Hour)
	if _, ok, _ := store.Validate(ctx, "tok-1"); ok {
		t.Error("Validate(tok-1) = true after expiry")
	}

	// Purge drops the expired row; unexpired rows survive.
	fresh := Token{Value: "tok-2", ExpiresAt: clock.Now().Add(time.Hour)}
	if err := store.Put(ctx, fresh); err != nil {
		t.Fatal(err)
	}
	purged, err := store.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired() error = %v", err)
	}
	if purged != 1 {
		t.Errorf("PurgeExpired() = %d, want 1", purged)
	}
	if _, ok, _ := store.Validate(ctx, "tok-2"); !ok {
		t.Error("Validate(tok-2) = false after purging others")
	}

	// Delete is idempotent.
	if err := store.Delete(ctx, "tok-2"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, "tok-2"); err != nil {
		t.Fatalf("Delete() second call error = %v", err)
	}
	if _, ok, _ := store.Validate(ctx, "tok-2"); ok {
		t.Error("Validate(tok-2) = true after delete")
	}
}

func TestMemoryStore(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(clock.Now)
	defer store.Close()

	exerciseStore(t, store, clock)
}

func TestMemoryStore_PutReplaces(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(clock.Now)
	defer store.Close()
	ctx := context.Background()

	if err := store.Put(ctx, Token{Value: "tok", ExpiresAt: clock.Now().Add(time.Minute)}); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, Token{Value: "tok", UserID: "replaced", ExpiresAt: clock.Now().Add(time.Hour)}); err != nil {
		t.Fatal(err)
	}

	got, ok, _ := store.Validate(ctx, "tok")
	if !ok || got.UserID != "replaced" {
		t.Errorf("Validate after replace = %+v, %v", got, ok)
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}
}

func TestSQLiteStore(t *testing.T) {
	clock := newFakeClock()
	store, err := NewSQLiteStore(&SQLiteConfig{
		Driver: "sqlite", // pure Go driver keeps the test cgo-free
		Path:   filepath.Join(t.TempDir(), "tokens.db"),
		Clock:  clock.Now,
	})
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer store.Close()

	exerciseStore(t, store, clock)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	clock := newFakeClock()
	path := filepath.Join(t.TempDir(), "tokens.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(&SQLiteConfig{Driver: "sqlite", Path: path, Clock: clock.Now})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, Token{Value: "tok", ExpiresAt: clock.Now().Add(time.Hour)}); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	// Tokens survive a restart.
	reopened, err := NewSQLiteStore(&SQLiteConfig{Driver: "sqlite", Path: path, Clock: clock.Now})
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	if _, ok, err := reopened.Validate(ctx, "tok"); err != nil || !ok {
		t.Errorf("Validate after reopen = %v, %v; want true, nil", ok, err)
	}
}

func TestSQLiteStore_RequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(&SQLiteConfig{Driver: "sqlite"}); err == nil {
		t.Fatal("NewSQLiteStore() without path: error = nil")
	}
}
