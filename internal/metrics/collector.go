// Package metrics exports run results in the node_exporter textfile format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"aibootstrap/internal/provision"
)

const namespace = "aibootstrap"

var outcomes = []provision.Outcome{
	provision.OutcomeApplied,
	provision.OutcomeSkipped,
	provision.OutcomeWarned,
	provision.OutcomeFailed,
}

// RunMetrics holds the gauges describing one run on a private registry
type RunMetrics struct {
	registry *prometheus.Registry

	stepDuration *prometheus.GaugeVec
	stepResult   *prometheus.GaugeVec
	runSuccess   prometheus.Gauge
	runTimestamp prometheus.Gauge
	runDuration  prometheus.Gauge
}

// NewRunMetrics creates and registers the run gauges
func NewRunMetrics() *RunMetrics {
	m := &RunMetrics{
		registry: prometheus.NewRegistry(),
		stepDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "step_duration_seconds",
				Help:      "Wall clock time spent in each provisioning step during the last run",
			},
			[]string{"step"},
		),
		stepResult: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "step_result",
				Help:      "Outcome of each provisioning step during the last run (1 for the outcome that occurred)",
			},
			[]string{"step", "result"},
		),
		runSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_success",
			Help:      "Whether the last run completed every step (1) or aborted (0)",
		}),
		runTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall clock time of the last run",
		}),
	}

	m.registry.MustRegister(m.stepDuration, m.stepResult, m.runSuccess, m.runTimestamp, m.runDuration)
	return m
}

// Registry returns the registry holding the run gauges
func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe sets every gauge from a run report
func (m *RunMetrics) Observe(report provision.Report) {
	for _, step := range report.Steps {
		m.stepDuration.WithLabelValues(step.Name).Set(step.Duration().Seconds())
		for _, o := range outcomes {
			value := 0.0
			if step.Outcome == o {
				value = 1
			}
			m.stepResult.WithLabelValues(step.Name, string(o)).Set(value)
		}
	}

	if report.Success {
		m.runSuccess.Set(1)
	} else {
		m.runSuccess.Set(0)
	}
	m.runTimestamp.Set(float64(report.FinishedAt.Unix()))
	m.runDuration.Set(report.FinishedAt.Sub(report.StartedAt).Seconds())
}
