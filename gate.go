package quotagate

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Gate is the admission-control point for a pool of rate-limited
// credentials. Callers lease a block of remote-call budget with Reserve,
// perform their burst outside the lock, and report per-call outcomes with
// RecordSuccess/RecordFailure so credential health stays accurate.
//
// All state lives behind one mutex: admission is a check-then-act sequence
// over every tier of every credential, and partitioned locks would let two
// callers over-commit overlapping fallback candidates. The lock is never
// held across I/O.
type Gate struct {
	mu          sync.Mutex
	pool        *pool
	outstanding map[string]*Reservation

	deadThreshold   float64
	recovery        time.Duration
	staggerInterval time.Duration
	defaultBlocks   map[string]int64

	meter Meter
	clock func() time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithMeter sets the event meter.
func WithMeter(m Meter) Option {
	return func(g *Gate) { g.meter = m }
}

// WithClock overrides the time source. Intended for tests; window resets and
// health recovery are all computed from this clock.
func WithClock(clock func() time.Time) Option {
	return func(g *Gate) { g.clock = clock }
}

// New creates a Gate from the given config. State starts cold: every window
// at full headroom, every credential healthy. Use Restore to warm-start from
// a persisted Snapshot.
func New(cfg Config, opts ...Option) (*Gate, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	g := &Gate{
		pool:            &pool{},
		outstanding:     make(map[string]*Reservation),
		deadThreshold:   cfg.DeadThreshold,
		recovery:        cfg.RecoveryPeriod,
		staggerInterval: cfg.StaggerInterval,
		defaultBlocks:   cfg.DefaultBlocks,
	}
	for _, cc := range cfg.Credentials {
		g.pool.creds = append(g.pool.creds, newCredential(cc))
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.meter == nil {
		g.meter = noopMeter{}
	}
	if g.clock == nil {
		g.clock = time.Now
	}

	return g, nil
}

func newCredential(cc CredentialConfig) *Credential {
	cred := &Credential{
		ID:     cc.ID,
		Secret: cc.Secret,
		health: newCredentialHealth(),
	}
	for _, tc := range cc.Tiers {
		cred.Tiers = append(cred.Tiers, &Tier{
			Name:         tc.Name,
			ShortCeiling: tc.ShortCeiling,
			ShortWindow:  tc.ShortWindow,
			LongCeiling:  tc.LongCeiling,
			LongWindow:   tc.LongWindow,
		})
	}
	return cred
}

// StaggerInterval returns the configured submission stagger interval.
func (g *Gate) StaggerInterval() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.staggerInterval
}

// DefaultBlock returns the configured default block size for a caller
// class, or 1 if none is configured.
func (g *Gate) DefaultBlock(caller string) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if n, ok := g.defaultBlocks[caller]; ok {
		return n
	}
	return 1
}

// Reserve atomically finds the first (credential, tier) with enough
// remaining headroom in both windows for the requested block and charges
// the full block upfront. It never blocks: on denial the returned
// *AdmissionError carries a RetryAfter hint for the caller to back off with.
//
// The upfront charge is pessimistic on purpose. A caller that uses fewer
// calls than estimated leaves headroom stranded until the window resets
// unless it calls Release, but no concurrent caller can ever observe stale
// headroom and over-admit.
func (g *Gate) Reserve(req ReserveRequest) (*Reservation, error) {
	if req.BlockSize <= 0 {
		return nil, &AdmissionError{Err: ErrInvalidBlockSize, Caller: req.Caller, Requested: req.BlockSize}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock()
	cands := g.pool.candidates(now, g.recovery, req.TierHint)
	if len(cands) == 0 {
		g.meter.OnDeny(DenyEvent{Caller: req.Caller, Requested: req.BlockSize, Reason: "no_credentials"})
		return nil, &AdmissionError{Err: ErrNoCredentialsAvailable, Caller: req.Caller, Requested: req.BlockSize}
	}

	var wait time.Duration
	haveWait := false

	for attempt, c := range cands {
		// A tier whose ceiling itself is below the block can never satisfy
		// the request; it is excluded from the search, not deprioritized.
		if c.tier.maxBlock() < req.BlockSize {
			continue
		}

		short := c.tier.headroom(WindowShort, now)
		long := c.tier.headroom(WindowLong, now)
		if short < req.BlockSize || long < req.BlockSize {
			if w := c.tier.clearIn(req.BlockSize, now); !haveWait || w < wait {
				wait = w
				haveWait = true
			}
			continue
		}

		c.tier.consume(WindowShort, req.BlockSize, now)
		c.tier.consume(WindowLong, req.BlockSize, now)
		c.cred.lastGranted = c.tier

		res := &Reservation{
			ID:           uuid.New().String(),
			Caller:       req.Caller,
			BlockSize:    req.BlockSize,
			CredentialID: c.cred.ID,
			Secret:       c.cred.Secret,
			Tier:         c.tier.Name,
			GrantedAt:    now,
		}
		g.outstanding[res.ID] = res

		// Rotation: once this grant leaves the credential with no headroom
		// anywhere, future passes should start from the next credential.
		if c.cred.exhausted(now) {
			g.pool.advanceCursor()
		}

		g.meter.OnReserve(ReserveEvent{
			Caller:         req.Caller,
			CredentialID:   c.cred.ID,
			Tier:           c.tier.Name,
			Requested:      req.BlockSize,
			Attempt:        attempt + 1,
			ShortRemaining: short - req.BlockSize,
			LongRemaining:  long - req.BlockSize,
		})
		return res, nil
	}

	g.meter.OnDeny(DenyEvent{Caller: req.Caller, Requested: req.BlockSize, Reason: "quota_exhausted", RetryAfter: wait})
	return nil, &AdmissionError{Err: ErrQuotaExhausted, Caller: req.Caller, Requested: req.BlockSize, RetryAfter: wait}
}

// Release returns unused headroom from a reservation whose actual
// consumption turned out smaller than the estimate. Calling it is
// best-effort: skipping it just means conservative accounting until the
// windows reset. A caller abandoning its burst entirely should release with
// actualUsed zero.
func (g *Gate) Release(res *Reservation, actualUsed int64) error {
	if res == nil {
		return ErrUnknownReservation
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.outstanding[res.ID]; !ok {
		return fmt.Errorf("quotagate: release %s: %w", res.ID, ErrUnknownReservation)
	}
	delete(g.outstanding, res.ID)

	cred := g.pool.byID(res.CredentialID)
	if cred == nil {
		return fmt.Errorf("quotagate: release %s: credential %s: %w", res.ID, res.CredentialID, ErrUnknownCredential)
	}

	refund := res.BlockSize - actualUsed
	if refund < 0 {
		refund = 0
	}
	if refund > res.BlockSize {
		refund = res.BlockSize
	}

	if refund > 0 {
		if tier := cred.tier(res.Tier); tier != nil {
			tier.refund(refund, g.clock())
		}
	}

	g.meter.OnRelease(ReleaseEvent{
		Caller:       res.Caller,
		CredentialID: res.CredentialID,
		Tier:         res.Tier,
		Refunded:     refund,
	})
	return nil
}

// RecordSuccess records a successful remote call against a credential.
// Recording against an unknown credential is a programming error and fails
// loudly; silent loss of accounting is the failure mode this subsystem
// exists to prevent.
func (g *Gate) RecordSuccess(credentialID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	cred := g.pool.byID(credentialID)
	if cred == nil {
		return fmt.Errorf("quotagate: record success: %s: %w", credentialID, ErrUnknownCredential)
	}

	cred.health.success()
	g.meter.OnOutcome(OutcomeEvent{CredentialID: credentialID, Success: true, Health: cred.health.state})
	return nil
}

// RecordFailure records a failed remote call against a credential.
//
// A rate-limited failure zeroes the remaining short-window headroom of the
// credential's most recently granted tier: the tracker's estimate was wrong
// and the remote service's signal wins. Unauthorized/revoked failures kill
// the credential permanently. Everything else decays health; below the dead
// threshold the credential leaves rotation until the recovery period
// elapses, then is retried half-open.
func (g *Gate) RecordFailure(credentialID string, kind FailureKind) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	cred := g.pool.byID(credentialID)
	if cred == nil {
		return fmt.Errorf("quotagate: record failure: %s: %w", credentialID, ErrUnknownCredential)
	}

	now := g.clock()
	switch kind {
	case FailureRateLimited:
		tier := cred.lastGranted
		if tier == nil {
			tier = cred.Tiers[0]
		}
		tier.zeroShort(now)
	case FailureUnauthorized, FailureRevoked:
		cred.health.revoke(now)
	default:
		cred.health.fail(now, g.deadThreshold)
	}

	g.meter.OnOutcome(OutcomeEvent{CredentialID: credentialID, Success: false, Kind: kind, Health: cred.health.state})
	return nil
}

// Status returns a read-only snapshot of per-credential, per-tier usage and
// health for operational visibility.
func (g *Gate) Status() []CredentialStatus {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock()
	out := make([]CredentialStatus, 0, len(g.pool.creds))
	for _, cred := range g.pool.creds {
		cs := CredentialStatus{
			ID:     cred.ID,
			Health: cred.health.observe(now, g.recovery),
			Score:  cred.health.score,
		}
		for _, t := range cred.Tiers {
			cs.Tiers = append(cs.Tiers, TierStatus{
				Name: t.Name,
				Short: WindowStatus{
					Used:    t.ShortCeiling - t.headroom(WindowShort, now),
					Ceiling: t.ShortCeiling,
					ResetIn: t.short.resetIn(now, t.ShortWindow),
				},
				Long: WindowStatus{
					Used:    t.LongCeiling - t.headroom(WindowLong, now),
					Ceiling: t.LongCeiling,
					ResetIn: t.long.resetIn(now, t.LongWindow),
				},
			})
		}
		out = append(out, cs)
	}
	return out
}

// ApplyConfig adjusts ceilings, windows and global settings in place while
// preserving live usage counters and health. Credentials present in the new
// config are updated or added; credentials absent from it are revoked so
// they leave rotation.
func (g *Gate) ApplyConfig(cfg Config) error {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.deadThreshold = cfg.DeadThreshold
	g.recovery = cfg.RecoveryPeriod
	g.staggerInterval = cfg.StaggerInterval
	g.defaultBlocks = cfg.DefaultBlocks

	seen := make(map[string]bool, len(cfg.Credentials))
	for _, cc := range cfg.Credentials {
		seen[cc.ID] = true
		cred := g.pool.byID(cc.ID)
		if cred == nil {
			g.pool.creds = append(g.pool.creds, newCredential(cc))
			continue
		}
		cred.Secret = cc.Secret
		for _, tc := range cc.Tiers {
			if tier := cred.tier(tc.Name); tier != nil {
				tier.ShortCeiling = tc.ShortCeiling
				tier.ShortWindow = tc.ShortWindow
				tier.LongCeiling = tc.LongCeiling
				tier.LongWindow = tc.LongWindow
			} else {
				cred.Tiers = append(cred.Tiers, &Tier{
					Name:         tc.Name,
					ShortCeiling: tc.ShortCeiling,
					ShortWindow:  tc.ShortWindow,
					LongCeiling:  tc.LongCeiling,
					LongWindow:   tc.LongWindow,
				})
			}
		}
	}

	now := g.clock()
	for _, cred := range g.pool.creds {
		if !seen[cred.ID] {
			cred.health.revoke(now)
		}
	}

	return nil
}
