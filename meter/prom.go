package meter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ineyio/quotagate"
)

// PromMeter exports admission events as Prometheus metrics.
type PromMeter struct {
	reserves *prometheus.CounterVec
	denials  *prometheus.CounterVec
	releases *prometheus.CounterVec
	outcomes *prometheus.CounterVec
	reserved *prometheus.CounterVec
	health   *prometheus.GaugeVec
}

var _ quotagate.Meter = (*PromMeter)(nil)

// NewPromMeter creates a PromMeter registered on the given registerer.
// If reg is nil, the default registerer is used.
func NewPromMeter(reg prometheus.Registerer) *PromMeter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PromMeter{
		reserves: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quotagate_reserves_total",
				Help: "Granted reservations",
			},
			[]string{"credential", "tier"},
		),
		denials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quotagate_denials_total",
				Help: "Denied reservations by reason",
			},
			[]string{"reason"},
		),
		releases: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quotagate_released_calls_total",
				Help: "Call budget returned by explicit release",
			},
			[]string{"credential", "tier"},
		),
		outcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quotagate_outcomes_total",
				Help: "Recorded call outcomes",
			},
			[]string{"credential", "result"},
		),
		reserved: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quotagate_reserved_calls_total",
				Help: "Call budget charged by reservations",
			},
			[]string{"credential", "tier"},
		),
		health: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quotagate_credential_health",
				Help: "Credential health state (0=healthy 1=degraded 2=dead 3=half-open)",
			},
			[]string{"credential"},
		),
	}
}

func (m *PromMeter) OnReserve(e quotagate.ReserveEvent) {
	m.reserves.WithLabelValues(e.CredentialID, e.Tier).Inc()
	m.reserved.WithLabelValues(e.CredentialID, e.Tier).Add(float64(e.Requested))
}

func (m *PromMeter) OnDeny(e quotagate.DenyEvent) {
	m.denials.WithLabelValues(e.Reason).Inc()
}

func (m *PromMeter) OnRelease(e quotagate.ReleaseEvent) {
	m.releases.WithLabelValues(e.CredentialID, e.Tier).Add(float64(e.Refunded))
}

func (m *PromMeter) OnOutcome(e quotagate.OutcomeEvent) {
	result := "success"
	if !e.Success {
		result = e.Kind.String()
	}
	m.outcomes.WithLabelValues(e.CredentialID, result).Inc()
	m.health.WithLabelValues(e.CredentialID).Set(float64(e.Health))
}
