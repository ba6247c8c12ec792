package quotagate

import "time"

const (
	healthCeiling     = 100.0
	healthSuccessStep = 20.0
	healthFailureStep = 25.0
	healthDegradedAt  = 70.0
)

// HealthState describes the health of a credential.
type HealthState int

const (
	HealthHealthy HealthState = iota
	HealthDegraded
	HealthDead
	HealthHalfOpen
)

func (h HealthState) String() string {
	switch h {
	case HealthHealthy:
		return "healthy"
	case HealthDegraded:
		return "degraded"
	case HealthDead:
		return "dead"
	case HealthHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// FailureKind classifies a failed remote call for outcome recording.
type FailureKind int

const (
	// FailureTransient covers timeouts, 5xx responses and the like.
	FailureTransient FailureKind = iota

	// FailureRateLimited is a 429-class response from the remote service.
	FailureRateLimited

	// FailureUnauthorized is a 401-class response.
	FailureUnauthorized

	// FailureRevoked means the credential has been invalidated remotely.
	FailureRevoked
)

func (k FailureKind) String() string {
	switch k {
	case FailureTransient:
		return "transient"
	case FailureRateLimited:
		return "rate_limited"
	case FailureUnauthorized:
		return "unauthorized"
	case FailureRevoked:
		return "revoked"
	default:
		return "unknown"
	}
}

// credentialHealth is a small per-credential state machine driven only by
// recorded outcomes and elapsed time. Dead credentials re-enter rotation
// half-open after the recovery period, circuit-breaker style; revoked
// credentials never do. All methods are called under the gate's lock.
type credentialHealth struct {
	score   float64
	state   HealthState
	revoked bool
	deadAt  time.Time
}

func newCredentialHealth() *credentialHealth {
	return &credentialHealth{score: healthCeiling, state: HealthHealthy}
}

// observe returns the current state, promoting Dead to HalfOpen once the
// recovery period has elapsed.
func (h *credentialHealth) observe(now time.Time, recovery time.Duration) HealthState {
	if h.revoked {
		return HealthDead
	}
	if h.state == HealthDead && now.Sub(h.deadAt) >= recovery {
		h.state = HealthHalfOpen
	}
	return h.state
}

// success nudges the score toward the healthy ceiling. A success while
// half-open closes the circuit entirely.
func (h *credentialHealth) success() {
	if h.revoked {
		return
	}
	if h.state == HealthHalfOpen {
		h.score = healthCeiling
		h.state = HealthHealthy
		return
	}
	h.score += healthSuccessStep
	if h.score > healthCeiling {
		h.score = healthCeiling
	}
	h.reclassify(0, time.Time{})
}

// fail decays the score by a fixed step. Crossing the dead threshold removes
// the credential from rotation; a half-open probe failure reopens the circuit
// with a fresh recovery timer.
func (h *credentialHealth) fail(now time.Time, deadThreshold float64) {
	if h.revoked {
		return
	}
	h.score -= healthFailureStep
	if h.score < 0 {
		h.score = 0
	}
	if h.state == HealthHalfOpen {
		h.state = HealthDead
		h.deadAt = now
		return
	}
	h.reclassify(deadThreshold, now)
}

// revoke marks the credential permanently dead.
func (h *credentialHealth) revoke(now time.Time) {
	h.revoked = true
	h.score = 0
	if h.state != HealthDead {
		h.state = HealthDead
		h.deadAt = now
	}
}

func (h *credentialHealth) reclassify(deadThreshold float64, now time.Time) {
	switch {
	case h.score <= deadThreshold:
		if h.state != HealthDead {
			h.state = HealthDead
			h.deadAt = now
		}
	case h.score < healthDegradedAt:
		h.state = HealthDegraded
	default:
		h.state = HealthHealthy
	}
}
