package tokenstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3" // driver "sqlite3"
	_ "modernc.org/sqlite"          // driver "sqlite", no cgo
)

// schema bootstraps the token table. Timestamps are stored as unix seconds.
const schema = `
CREATE TABLE IF NOT EXISTS ui_session_tokens (
	token      TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ui_session_tokens_expires_at
	ON ui_session_tokens(expires_at);
`

// SQLiteConfig configures the SQLite-backed token store.
type SQLiteConfig struct {
	// Driver selects the database/sql driver: "sqlite3" (mattn, cgo) or
	// "sqlite" (modernc, pure Go).
	// Default: "sqlite3"
	Driver string

	// Path is the database file path.
	Path string

	// BusyTimeout is how long a locked database retries before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// WALMode enables write-ahead logging for better concurrency.
	// Default: true
	WALMode bool

	// Clock returns the current time for expiry checks. Nil means
	// time.Now; tests inject a fake.
	Clock func() time.Time
}

func (c *SQLiteConfig) withDefaults() SQLiteConfig {
	cfg := SQLiteConfig{Driver: "sqlite3", BusyTimeout: 5 * time.Second, WALMode: true, Clock: time.Now}
	if c == nil {
		return cfg
	}
	cfg.Path = c.Path
	if c.Driver != "" {
		cfg.Driver = c.Driver
	}
	if c.BusyTimeout > 0 {
		cfg.BusyTimeout = c.BusyTimeout
	}
	cfg.WALMode = c.WALMode
	if c.Clock != nil {
		cfg.Clock = c.Clock
	}
	return cfg
}

// SQLiteStore persists tokens in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	now    func() time.Time
	logger *slog.Logger
}

// NewSQLiteStore opens (creating if needed) the database at cfg.Path and
// bootstraps the schema.
func NewSQLiteStore(cfg *SQLiteConfig) (*SQLiteStore, error) {
	resolved := cfg.withDefaults()
	if resolved.Path == "" {
		return nil, fmt.Errorf("tokenstore: database path is required")
	}

	db, err := sql.Open(resolved.Driver, resolved.Path)
	if err != nil {
		return nil, fmt.Errorf("tokenstore: open %s: %w", resolved.Path, err)
	}

	if resolved.WALMode {
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			db.Close()
			return nil, fmt.Errorf("tokenstore: enable WAL: %w", err)
		}
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", resolved.BusyTimeout.Milliseconds())); err != nil {
		db.Close()
		return nil, fmt.Errorf("tokenstore: set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("tokenstore: create schema: %w", err)
	}

	logger := slog.Default().With("component", "tokenstore")
	logger.Info("token store opened", "path", resolved.Path, "driver", resolved.Driver)

	return &SQLiteStore{db: db, now: resolved.Clock, logger: logger}, nil
}

// Put stores or replaces a token.
func (s *SQLiteStore) Put(ctx context.Context, token Token) error {
	if token.CreatedAt.IsZero() {
		token.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO ui_session_tokens (token, user_id, created_at, expires_at)
		 VALUES (?, ?, ?, ?)`,
		token.Value, token.UserID, token.CreatedAt.Unix(), token.ExpiresAt.Unix())
	if err != nil {
		return fmt.Errorf("tokenstore: put: %w", err)
	}
	return nil
}

// Validate looks up an unexpired token by value. Expiry is checked in
// process against the store's clock, so expired rows validate false even
// before a purge runs.
func (s *SQLiteStore) Validate(ctx context.Context, value string) (Token, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT token, user_id, created_at, expires_at FROM ui_session_tokens WHERE token = ?`,
		value)

	var (
		token              Token
		createdAt, expires int64
	)
	err := row.Scan(&token.Value, &token.UserID, &createdAt, &expires)
	if err == sql.ErrNoRows {
		return Token{}, false, nil
	}
	if err != nil {
		return Token{}, false, fmt.Errorf("tokenstore: validate: %w", err)
	}

	token.CreatedAt = time.Unix(createdAt, 0)
	token.ExpiresAt = time.Unix(expires, 0)
	if token.Expired(s.now()) {
		return Token{}, false, nil
	}
	return token, true, nil
}

// Delete removes a token.
func (s *SQLiteStore) Delete(ctx context.Context, value string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM ui_session_tokens WHERE token = ?`, value); err != nil {
		return fmt.Errorf("tokenstore: delete: %w", err)
	}
	return nil
}

// PurgeExpired drops every expired token.
func (s *SQLiteStore) PurgeExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM ui_session_tokens WHERE expires_at <= ?`, s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("tokenstore: purge: %w", err)
	}
	purged, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("tokenstore: purge count: %w", err)
	}
	if purged > 0 {
		s.logger.Debug("purged expired tokens", "count", purged)
	}
	return purged, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
