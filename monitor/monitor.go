// Package monitor exports Prometheus metrics for the agent's callbacks.
package monitor

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wricardo/battlesnake-agent/game/dispatcher"
	"github.com/wricardo/battlesnake-agent/game/protocol"
	"github.com/wricardo/battlesnake-agent/game/session"
)

// Outcome labels
const (
	OutcomeOK        = "ok"
	OutcomeFallback  = "fallback"
	OutcomeMalformed = "malformed"
	OutcomeOrphan    = "orphan"
	OutcomeError     = "error"
)

type Metrics struct {
	Callbacks        *prometheus.CounterVec
	CallbackDuration *prometheus.HistogramVec
	GamesFinished    *prometheus.CounterVec
	GameTurns        prometheus.Histogram

	registry *prometheus.Registry
}

// NewMetrics creates the agent metrics on a private registry. sessions,
// when non-nil, is sampled for the active sessions gauge.
func NewMetrics(namespace string, sessions func() int) *Metrics {
	m := &Metrics{
		Callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callbacks_total",
			Help:      "Callbacks handled, by kind and outcome",
		}, []string{"kind", "outcome"}),
		CallbackDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "callback_duration_seconds",
			Help:      "Time spent answering a callback",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"kind"}),
		GamesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_finished_total",
			Help:      "Games that reached the end callback, by result",
		}, []string{"result"}),
		GameTurns: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "game_turns",
			Help:      "Turns played per finished game",
			Buckets:   prometheus.LinearBuckets(50, 50, 10),
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.Callbacks,
		m.CallbackDuration,
		m.GamesFinished,
		m.GameTurns,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if sessions != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions between start and end",
		}, func() float64 { return float64(sessions()) }))
	}

	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveTurn implements dispatcher.Observer
func (m *Metrics) ObserveTurn(e dispatcher.TurnEvent) {
	outcome := Outcome(e)
	m.Callbacks.WithLabelValues(string(e.Kind), outcome).Inc()

	if outcome == OutcomeMalformed || outcome == OutcomeOrphan {
		return
	}
	m.CallbackDuration.WithLabelValues(string(e.Kind)).Observe(e.Duration.Seconds())

	if e.Kind == protocol.KindEnd {
		result := "eliminated"
		if e.State != nil && e.State.Alive() {
			result = "survived"
		}
		m.GamesFinished.WithLabelValues(result).Inc()
		m.GameTurns.Observe(float64(e.Turn))
	}
}

// Outcome classifies a turn event
func Outcome(e dispatcher.TurnEvent) string {
	switch {
	case e.Err == nil:
		return OutcomeOK
	case e.Fallback:
		return OutcomeFallback
	case errors.Is(e.Err, protocol.ErrMalformedPayload):
		return OutcomeMalformed
	case errors.Is(e.Err, session.ErrOrphanSession):
		return OutcomeOrphan
	default:
		return OutcomeError
	}
}
