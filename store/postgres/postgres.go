// Package postgres provides a PostgreSQL-backed snapshot Store for quotagate.
//
// The snapshot is stored as a single JSONB row, upserted on save. This gives
// durability across restarts for deployments that already run PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ineyio/quotagate"
)

// Store is a PostgreSQL-backed snapshot store.
type Store struct {
	pool        *pgxpool.Pool
	tablePrefix string
}

var _ quotagate.Store = (*Store)(nil)

// Option configures Store.
type Option func(*Store)

// WithTablePrefix sets the table name prefix (default "quotagate_").
func WithTablePrefix(prefix string) Option {
	return func(s *Store) { s.tablePrefix = prefix }
}

// New creates a new PostgreSQL-backed snapshot store.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{
		pool:        pool,
		tablePrefix: "quotagate_",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) snapshotsTable() string { return s.tablePrefix + "snapshots" }

// EnsureSchema creates the required table if it doesn't exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	q := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INT PRIMARY KEY CHECK (id = 1),
			taken_at TIMESTAMPTZ NOT NULL,
			payload JSONB NOT NULL
		);
	`, s.snapshotsTable())
	if _, err := s.pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("quotagate/postgres: ensure schema: %w", err)
	}
	return nil
}

// Save persists a snapshot, replacing any previous one.
func (s *Store) Save(ctx context.Context, snap quotagate.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("quotagate/postgres: marshal snapshot: %w", err)
	}
	q := fmt.Sprintf(`
		INSERT INTO %s (id, taken_at, payload) VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET taken_at = $1, payload = $2
	`, s.snapshotsTable())
	if _, err := s.pool.Exec(ctx, q, snap.TakenAt, data); err != nil {
		return fmt.Errorf("quotagate/postgres: save snapshot: %w", err)
	}
	return nil
}

// Load returns the most recent snapshot, or ok=false if none exists.
func (s *Store) Load(ctx context.Context) (quotagate.Snapshot, bool, error) {
	var data []byte
	q := fmt.Sprintf(`SELECT payload FROM %s WHERE id = 1`, s.snapshotsTable())
	err := s.pool.QueryRow(ctx, q).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return quotagate.Snapshot{}, false, nil
	}
	if err != nil {
		return quotagate.Snapshot{}, false, fmt.Errorf("quotagate/postgres: load snapshot: %w", err)
	}

	var snap quotagate.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return quotagate.Snapshot{}, false, fmt.Errorf("quotagate/postgres: unmarshal snapshot: %w", err)
	}
	return snap, true, nil
}
