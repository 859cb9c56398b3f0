// Package store keeps a SQLite ledger of resampling runs: the state
// transitions each station went through and the issues it raised.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite"
)

// Store wraps the ledger database.
type Store struct {
	db     *sql.DB
	clock  clockwork.Clock
	logger *slog.Logger
}

// New wraps an open database. The caller runs Migrate before use.
func New(db *sql.DB, clock clockwork.Clock, logger *slog.Logger) *Store {
	return &Store{db: db, clock: clock, logger: logger}
}

// Open opens (or creates) the ledger at path and applies migrations.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	// Workers record states concurrently; one connection serializes writes
	// and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	s := New(db, clockwork.NewRealClock(), logger)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}
	return s, nil
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
