// Package metrics exposes Prometheus metrics about ticks, cycles and action attempts.
package metrics

import (
	"context"
	"time"

	"github.com/dukex/crate/pkg/engine"
	"github.com/dukex/crate/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "crate"

// EngineMetrics records engine activity. It is a workspace observer and an
// executor attempt observer.
type EngineMetrics struct {
	cyclesTotal    *prometheus.CounterVec
	cycleDuration  *prometheus.HistogramVec
	attemptsTotal  *prometheus.CounterVec
	ticksTotal     *prometheus.CounterVec
	tickDuration   prometheus.Histogram
	statusChanges  *prometheus.CounterVec
	lastTickSecond prometheus.Gauge
}

func NewEngineMetrics() *EngineMetrics {
	return &EngineMetrics{
		cyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "cycles_total",
				Help:      "Total number of automation cycles by outcome and result",
			},
			[]string{"outcome", "result"}, // result: success, failure, none
		),
		cycleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "cycle_duration_seconds",
				Help:      "Duration of the action phase of executed cycles",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"trigger_type"},
		),
		attemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "action_attempts_total",
				Help:      "Total number of action attempts by action type and result",
			},
			[]string{"action_type", "result"},
		),
		ticksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "workspace_ticks_total",
				Help:      "Total number of workspace ticks by result",
			},
			[]string{"result"},
		),
		tickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "workspace_tick_duration_seconds",
				Help:      "Duration of workspace ticks",
				Buckets:   prometheus.DefBuckets,
			},
		),
		statusChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "status_changes_total",
				Help:      "Automations moved out of active by a cycle, by new status",
			},
			[]string{"status"},
		),
		lastTickSecond: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "last_tick_timestamp",
				Help:      "Timestamp of the last completed workspace tick",
			},
		),
	}
}

// Register registers all engine metrics with the provided registry.
func (m *EngineMetrics) Register(registry prometheus.Registerer) {
	registry.MustRegister(
		m.cyclesTotal,
		m.cycleDuration,
		m.attemptsTotal,
		m.ticksTotal,
		m.tickDuration,
		m.statusChanges,
		m.lastTickSecond,
	)
}

// CycleCompleted records one cycle outcome.
func (m *EngineMetrics) CycleCompleted(_ context.Context, _ *models.Workspace, automation *models.Automation, outcome *engine.CycleOutcome) {
	result := "none"

	if outcome.Executed() {
		result = "failure"
		if outcome.Success {
			result = "success"
		}

		m.cycleDuration.WithLabelValues(string(automation.Trigger.TriggerType)).Observe(outcome.Elapsed.Seconds())

		if outcome.Status != models.AutomationStatusActive {
			m.statusChanges.WithLabelValues(string(outcome.Status)).Inc()
		}
	}

	m.cyclesTotal.WithLabelValues(string(outcome.Kind), result).Inc()
}

// RecordAttempt records one action attempt.
func (m *EngineMetrics) RecordAttempt(action models.Action, _ int, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}

	m.attemptsTotal.WithLabelValues(string(action.ActionType), result).Inc()
}

// RecordTick records a finished workspace tick.
func (m *EngineMetrics) RecordTick(duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}

	m.ticksTotal.WithLabelValues(result).Inc()
	m.tickDuration.Observe(duration.Seconds())
	m.lastTickSecond.SetToCurrentTime()
}
