package observability

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sonicwave/pulse/pkg/domain"
)

// Metrics holds the Prometheus collectors fed by session hooks.
type Metrics struct {
	intents        *prometheus.CounterVec
	intentDuration *prometheus.HistogramVec
	transitions    *prometheus.CounterVec
	gatewayErrors  *prometheus.CounterVec
	ticks          *prometheus.CounterVec
	activeSessions prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg uses a fresh private registry.
func NewMetrics(reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		intents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_intents_total",
				Help: "Total number of intents handled, by intent kind",
			},
			[]string{"intent"},
		),
		intentDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pulse_intent_duration_seconds",
				Help:    "Time spent handling an intent, gateway calls included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"intent"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_transitions_total",
				Help: "Run state transitions, by source, target and reason",
			},
			[]string{"from", "to", "reason"},
		),
		gatewayErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_gateway_errors_total",
				Help: "Failed hardware and ledger calls, by call",
			},
			[]string{"call"},
		),
		ticks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_ticks_total",
				Help: "Ramp and countdown ticks, by kind and staleness",
			},
			[]string{"kind", "stale"},
		),
		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pulse_active_sessions",
				Help: "Sessions currently outside the idle state",
			},
		),
		gatherer: reg,
	}

	for _, c := range []prometheus.Collector{
		m.intents, m.intentDuration, m.transitions, m.gatewayErrors, m.ticks, m.activeSessions,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnIntent: func(_ context.Context, e *domain.IntentEvent) {
			m.intents.WithLabelValues(string(e.Intent)).Inc()
			m.intentDuration.WithLabelValues(string(e.Intent)).Observe(e.Duration.Seconds())
		},
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			m.transitions.WithLabelValues(string(e.From), string(e.To), e.Reason).Inc()
			switch {
			case e.From == domain.RunIdle && e.To.Active():
				m.activeSessions.Inc()
			case e.From.Active() && e.To == domain.RunIdle:
				m.activeSessions.Dec()
			}
		},
		OnGatewayError: func(_ context.Context, e *domain.GatewayEvent) {
			m.gatewayErrors.WithLabelValues(e.Call).Inc()
		},
		OnTick: func(_ context.Context, e *domain.TickEvent) {
			m.ticks.WithLabelValues(string(e.Kind), strconv.FormatBool(e.Stale)).Inc()
		},
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
