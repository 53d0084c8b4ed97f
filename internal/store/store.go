package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema versions, stored in PRAGMA user_version:
// 1 - events and transfers tables
const currentSchemaVersion = 1

// DefaultBusyTimeout is how long a writer waits for another process's lock.
const DefaultBusyTimeout = 5 * time.Second

// Store is the durable auction journal: every event, hash-verified on read,
// and the payouts that settled Withdrawn events.
//
// One Store may be shared by all auctions of a process. Several processes may
// open the same file; appends from a stale process fail with ErrConflict.
type Store struct {
	db   *sql.DB
	path string
}

// Option configures Open.
type Option func(*settings)

type settings struct {
	busyTimeout time.Duration
}

// WithBusyTimeout sets how long a write waits on a locked database before
// failing. Zero or negative keeps DefaultBusyTimeout.
func WithBusyTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.busyTimeout = d
		}
	}
}

// dsn builds the go-sqlite3 connection string. Connection-scoped pragmas go
// here as well as through applyPragmas so a reopened pooled connection keeps
// them.
func (s settings) dsn(path string) string {
	q := url.Values{}
	q.Set("_foreign_keys", "on")
	q.Set("_busy_timeout", fmt.Sprint(s.busyTimeout.Milliseconds()))
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + q.Encode()
}

// Open creates or opens the journal at path (":memory:" for a throwaway
// journal), enables WAL, and applies the schema. Opening an existing journal
// leaves its contents untouched. A journal written by a newer schema version
// is refused.
func Open(path string, opts ...Option) (*Store, error) {
	cfg := settings{busyTimeout: DefaultBusyTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := sql.Open("sqlite3", cfg.dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to journal %s: %w", path, err)
	}

	// One connection: SQLite allows a single writer, and an in-memory
	// journal exists only on the connection that created it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db, cfg); err != nil {
		db.Close()
		return nil, err
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the path the journal was opened with.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB, cfg settings) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.busyTimeout.Milliseconds()),
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema brings the journal to currentSchemaVersion. schema.sql only
// uses IF NOT EXISTS, so it is safe on an existing v1 journal.
func applySchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("journal schema v%d is newer than supported v%d", version, currentSchemaVersion)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if version < currentSchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
	}
	return nil
}

// LastSeq returns the highest journaled seq, or 0 for an empty journal.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(seq) FROM events").Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

// Stats summarizes the journal.
type Stats struct {
	Events    int64            `json:"events"`
	ByKind    map[string]int64 `json:"by_kind"`
	Transfers int64            `json:"transfers"`
	PaidOut   int64            `json:"paid_out"`
}

// Stats counts events per kind and totals recorded payouts.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	st := Stats{ByKind: map[string]int64{}}

	rows, err := s.db.QueryContext(ctx, "SELECT kind, COUNT(*) FROM events GROUP BY kind")
	if err != nil {
		return Stats{}, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			return Stats{}, fmt.Errorf("scan event count: %w", err)
		}
		st.ByKind[kind] = n
		st.Events += n
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate event counts: %w", err)
	}

	var paid sql.NullInt64
	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*), SUM(amount) FROM transfers").Scan(&st.Transfers, &paid)
	if err != nil {
		return Stats{}, fmt.Errorf("count transfers: %w", err)
	}
	st.PaidOut = paid.Int64
	return st, nil
}

// pragma reads a pragma's current value.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("read pragma %s: %w", name, err)
	}
	return value, nil
}
