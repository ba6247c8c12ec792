package quotagate

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors.
var (
	ErrInvalidBlockSize       = errors.New("quotagate: block size must be positive")
	ErrQuotaExhausted         = errors.New("quotagate: quota exhausted on all candidates")
	ErrNoCredentialsAvailable = errors.New("quotagate: no credentials available")
	ErrUnknownCredential      = errors.New("quotagate: unknown credential")
	ErrUnknownReservation     = errors.New("quotagate: unknown or already released reservation")
)

// AdmissionError wraps a denied reservation with context. For quota denials
// RetryAfter carries the minimum wait until some candidate's blocking window
// resets, so callers can back off instead of busy-polling.
type AdmissionError struct {
	Err        error
	Caller     string
	Requested  int64
	RetryAfter time.Duration
}

func (e *AdmissionError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("quotagate: caller=%s requested=%d retry_after=%s: %v",
			e.Caller, e.Requested, e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("quotagate: caller=%s requested=%d: %v", e.Caller, e.Requested, e.Err)
}

func (e *AdmissionError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the caller can back off and retry the
// reservation later. Invalid arguments and an empty credential pool are not
// retryable: the former is a caller bug, the latter an operator problem.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrQuotaExhausted)
}
