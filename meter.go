package quotagate

import "time"

// Meter observes admission events for monitoring/logging.
type Meter interface {
	// OnReserve is called when a reservation is granted.
	OnReserve(event ReserveEvent)

	// OnDeny is called when a reservation is denied.
	OnDeny(event DenyEvent)

	// OnRelease is called when a caller returns unused headroom.
	OnRelease(event ReleaseEvent)

	// OnOutcome is called when a call outcome is recorded.
	OnOutcome(event OutcomeEvent)
}

// ReserveEvent describes a granted reservation.
type ReserveEvent struct {
	Caller         string
	CredentialID   string
	Tier           string
	Requested      int64
	Attempt        int // 1-based position in the candidate order
	ShortRemaining int64
	LongRemaining  int64
}

// DenyEvent describes a denied reservation.
type DenyEvent struct {
	Caller     string
	Requested  int64
	Reason     string
	RetryAfter time.Duration
}

// ReleaseEvent describes returned headroom.
type ReleaseEvent struct {
	Caller       string
	CredentialID string
	Tier         string
	Refunded     int64
}

// OutcomeEvent describes a recorded call outcome.
type OutcomeEvent struct {
	CredentialID string
	Success      bool
	Kind         FailureKind
	Health       HealthState
}

// noopMeter is the default meter; it does nothing.
type noopMeter struct{}

func (noopMeter) OnReserve(ReserveEvent) {}
func (noopMeter) OnDeny(DenyEvent)       {}
func (noopMeter) OnRelease(ReleaseEvent) {}
func (noopMeter) OnOutcome(OutcomeEvent) {}
