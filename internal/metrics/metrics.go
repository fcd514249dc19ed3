// Package metrics exposes Prometheus instrumentation for the trading
// and learning paths.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector the engine emits. One instance is
// created at startup and shared by reference.
type Metrics struct {
	registry *prometheus.Registry

	VotesCast        *prometheus.CounterVec
	DecisionsTotal   *prometheus.CounterVec
	CycleDuration    prometheus.Histogram
	ExecutionsTotal  *prometheus.CounterVec
	AgentAccuracy    *prometheus.GaugeVec
	AgentWeight      *prometheus.GaugeVec
	LearningOutcomes *prometheus.CounterVec
	OutcomesGraded   prometheus.Counter
}

// New creates the collectors on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		VotesCast: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "warroom_votes_cast_total",
			Help: "Votes cast per agent per action, abstentions included.",
		}, []string{"agent", "action"}),
		DecisionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "warroom_decisions_total",
			Help: "Consensus decisions reached, by action.",
		}, []string{"action"}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "warroom_cycle_duration_seconds",
			Help:    "Wall-clock duration of one full trading cycle.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		ExecutionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "warroom_executions_total",
			Help: "Execution instructions submitted, by side.",
		}, []string{"side"}),
		AgentAccuracy: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "warroom_agent_accuracy",
			Help: "Trailing-window accuracy per agent, updated each learning cycle.",
		}, []string{"agent"}),
		AgentWeight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "warroom_agent_weight",
			Help: "Committed learned weight per agent.",
		}, []string{"agent"}),
		LearningOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "warroom_learning_outcomes_total",
			Help: "Per-agent learning job outcomes: committed, rejected or failed.",
		}, []string{"agent", "outcome"}),
		OutcomesGraded: factory.NewCounter(prometheus.CounterOpts{
			Name: "warroom_outcomes_graded_total",
			Help: "Decisions graded against realized prices.",
		}),
	}
}

// Registry returns the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
