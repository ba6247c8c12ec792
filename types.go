package quotagate

import "time"

// Credential is one access token in the rotation pool. It is created from
// configuration at startup and lives for the process lifetime; only its
// usage counters and health fields mutate.
type Credential struct {
	ID     string
	Secret string
	Tiers  []*Tier

	health      *credentialHealth
	lastGranted *Tier // tier of the most recent grant, target for rate-limit signals
}

// tier returns the credential's tier by name, or nil.
func (c *Credential) tier(name string) *Tier {
	for _, t := range c.Tiers {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// exhausted reports whether every tier of the credential is out of headroom
// in at least one window.
func (c *Credential) exhausted(now time.Time) bool {
	for _, t := range c.Tiers {
		if t.headroom(WindowShort, now) > 0 && t.headroom(WindowLong, now) > 0 {
			return false
		}
	}
	return true
}

// Tier is a named quota class belonging to exactly one credential. Usage is
// tracked independently against a short window (e.g. per-minute) and a long
// window (e.g. per-day).
type Tier struct {
	Name         string
	ShortCeiling int64
	ShortWindow  time.Duration
	LongCeiling  int64
	LongWindow   time.Duration

	short tierWindow
	long  tierWindow
}

// Reservation is an upfront charge against quota for an estimated block of
// future calls. It lives only in process memory, for audit and for explicit
// release when the caller ends up using fewer calls than estimated.
type Reservation struct {
	ID           string
	Caller       string
	BlockSize    int64
	CredentialID string
	Secret       string
	Tier         string
	GrantedAt    time.Time
}

// ReserveRequest describes one admission attempt.
type ReserveRequest struct {
	// Caller is the logical name of the requesting workflow step.
	Caller string

	// BlockSize is the estimated number of remote calls the caller's burst
	// will consume. The full block is charged upfront.
	BlockSize int64

	// TierHint optionally names a preferred tier. It is a soft preference:
	// the hinted tier is tried first on each candidate credential, the
	// remaining tiers follow in configured order.
	TierHint string
}

// CredentialStatus is a read-only view of one credential, for operational
// visibility.
type CredentialStatus struct {
	ID     string
	Health HealthState
	Score  float64
	Tiers  []TierStatus
}

// TierStatus reports both windows of one tier.
type TierStatus struct {
	Name  string
	Short WindowStatus
	Long  WindowStatus
}

// WindowStatus reports usage against one window's ceiling.
type WindowStatus struct {
	Used    int64
	Ceiling int64
	ResetIn time.Duration
}
