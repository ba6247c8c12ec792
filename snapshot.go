package quotagate

import (
	"context"
	"time"
)

// Snapshot is an export of the gate's mutable state: usage counters, window
// starts and credential health. The gate itself keeps everything in memory
// and cold-starts at full headroom; persisting snapshots through a Store is
// an opt-in way to avoid transient over-admission after a restart.
type Snapshot struct {
	TakenAt     time.Time            `json:"taken_at"`
	Credentials []CredentialSnapshot `json:"credentials"`
}

// CredentialSnapshot captures one credential's mutable fields.
type CredentialSnapshot struct {
	ID      string         `json:"id"`
	Score   float64        `json:"score"`
	Revoked bool           `json:"revoked"`
	Tiers   []TierSnapshot `json:"tiers"`
}

// TierSnapshot captures one tier's window counters.
type TierSnapshot struct {
	Name       string    `json:"name"`
	ShortUsed  int64     `json:"short_used"`
	ShortStart time.Time `json:"short_start"`
	LongUsed   int64     `json:"long_used"`
	LongStart  time.Time `json:"long_start"`
}

// Store persists snapshots between process runs. Implementations live in
// the store/ submodules; the gate never performs I/O itself.
type Store interface {
	// Save persists a snapshot, replacing any previous one.
	Save(ctx context.Context, snap Snapshot) error

	// Load returns the most recent snapshot, or ok=false if none exists.
	Load(ctx context.Context) (snap Snapshot, ok bool, err error)
}

// Snapshot exports the gate's current usage and health state.
func (g *Gate) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap := Snapshot{TakenAt: g.clock()}
	for _, cred := range g.pool.creds {
		cs := CredentialSnapshot{
			ID:      cred.ID,
			Score:   cred.health.score,
			Revoked: cred.health.revoked,
		}
		for _, t := range cred.Tiers {
			cs.Tiers = append(cs.Tiers, TierSnapshot{
				Name:       t.Name,
				ShortUsed:  t.short.used,
				ShortStart: t.short.start,
				LongUsed:   t.long.used,
				LongStart:  t.long.start,
			})
		}
		snap.Credentials = append(snap.Credentials, cs)
	}
	return snap
}

// Restore re-seeds usage and health from a snapshot, typically right after
// New. Credentials or tiers unknown to the current configuration are
// ignored; stale windows resolve themselves through lazy reset on the next
// read.
func (g *Gate) Restore(snap Snapshot) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, cs := range snap.Credentials {
		cred := g.pool.byID(cs.ID)
		if cred == nil {
			continue
		}
		if cs.Revoked {
			cred.health.revoke(snap.TakenAt)
		} else {
			cred.health.score = cs.Score
			cred.health.reclassify(g.deadThreshold, snap.TakenAt)
		}
		for _, ts := range cs.Tiers {
			tier := cred.tier(ts.Name)
			if tier == nil {
				continue
			}
			tier.short = tierWindow{used: ts.ShortUsed, start: ts.ShortStart}
			tier.long = tierWindow{used: ts.LongUsed, start: ts.LongStart}
		}
	}
}
