package meter

import "github.com/ineyio/quotagate"

// NoopMeter is a meter that does nothing.
type NoopMeter struct{}

var _ quotagate.Meter = (*NoopMeter)(nil)

func (m *NoopMeter) OnReserve(quotagate.ReserveEvent) {}
func (m *NoopMeter) OnDeny(quotagate.DenyEvent)       {}
func (m *NoopMeter) OnRelease(quotagate.ReleaseEvent) {}
func (m *NoopMeter) OnOutcome(quotagate.OutcomeEvent) {}
