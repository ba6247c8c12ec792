// Package redis provides a Redis-backed snapshot Store for quotagate.
//
// The snapshot is stored as a single JSON value. A deployment that persists
// snapshots periodically and restores on boot avoids the transient
// over-admission of a cold start at full headroom.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ineyio/quotagate"
)

// Store is a Redis-backed snapshot store.
type Store struct {
	client goredis.Cmdable
	key    string
}

var _ quotagate.Store = (*Store)(nil)

// Option configures Store.
type Option func(*Store)

// WithKey sets the Redis key (default "quotagate:snapshot").
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// New creates a new Redis-backed snapshot store.
// The client must be a connected *goredis.Client or *goredis.ClusterClient.
func New(client goredis.Cmdable, opts ...Option) *Store {
	s := &Store{
		client: client,
		key:    "quotagate:snapshot",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save persists a snapshot, replacing any previous one.
func (s *Store) Save(ctx context.Context, snap quotagate.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("quotagate/redis: marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("quotagate/redis: save snapshot: %w", err)
	}
	return nil
}

// Load returns the most recent snapshot, or ok=false if none exists.
func (s *Store) Load(ctx context.Context) (quotagate.Snapshot, bool, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return quotagate.Snapshot{}, false, nil
	}
	if err != nil {
		return quotagate.Snapshot{}, false, fmt.Errorf("quotagate/redis: load snapshot: %w", err)
	}

	var snap quotagate.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return quotagate.Snapshot{}, false, fmt.Errorf("quotagate/redis: unmarshal snapshot: %w", err)
	}
	return snap, true, nil
}
