package meter

import (
	"log/slog"

	"github.com/ineyio/quotagate"
)

// LogMeter logs admission events using slog.
type LogMeter struct {
	Logger *slog.Logger
}

var _ quotagate.Meter = (*LogMeter)(nil)

// NewLogMeter creates a LogMeter with the given logger.
// If logger is nil, slog.Default() is used.
func NewLogMeter(logger *slog.Logger) *LogMeter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMeter{Logger: logger}
}

func (m *LogMeter) OnReserve(e quotagate.ReserveEvent) {
	m.Logger.Info("reserve",
		"caller", e.Caller,
		"credential", e.CredentialID,
		"tier", e.Tier,
		"block", e.Requested,
		"attempt", e.Attempt,
		"short_remaining", e.ShortRemaining,
		"long_remaining", e.LongRemaining,
	)
}

func (m *LogMeter) OnDeny(e quotagate.DenyEvent) {
	m.Logger.Warn("deny",
		"caller", e.Caller,
		"block", e.Requested,
		"reason", e.Reason,
		"retry_after_ms", e.RetryAfter.Milliseconds(),
	)
}

func (m *LogMeter) OnRelease(e quotagate.ReleaseEvent) {
	m.Logger.Info("release",
		"caller", e.Caller,
		"credential", e.CredentialID,
		"tier", e.Tier,
		"refunded", e.Refunded,
	)
}

func (m *LogMeter) OnOutcome(e quotagate.OutcomeEvent) {
	if e.Success {
		m.Logger.Info("outcome",
			"credential", e.CredentialID,
			"success", true,
			"health", e.Health.String(),
		)
	} else {
		m.Logger.Warn("outcome",
			"credential", e.CredentialID,
			"success", false,
			"kind", e.Kind.String(),
			"health", e.Health.String(),
		)
	}
}
