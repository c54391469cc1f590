package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the assessment-session collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	gatherer prometheus.Gatherer

	Submissions         *prometheus.CounterVec
	CheckpointWrites    prometheus.Counter
	CheckpointRecovered *prometheus.CounterVec
	Reconciled          *prometheus.CounterVec
	Countdowns          prometheus.Gauge
}

// New registers the collectors on reg. Use prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		Submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assessment_submissions_total",
				Help: "Scoring submissions by trigger and outcome",
			},
			[]string{"trigger", "outcome"},
		),
		CheckpointWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "assessment_checkpoint_writes_total",
			Help: "Session checkpoints written",
		}),
		CheckpointRecovered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assessment_checkpoint_recoveries_total",
				Help: "Checkpoint recovery attempts by result",
			},
			[]string{"result"},
		),
		Reconciled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assessment_reconcile_total",
				Help: "Completion statistics derivations by source",
			},
			[]string{"source"},
		),
		Countdowns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "assessment_countdowns_active",
			Help: "Live application countdowns",
		}),
	}
	reg.MustRegister(m.Submissions, m.CheckpointWrites, m.CheckpointRecovered, m.Reconciled, m.Countdowns)
	return m
}

// Handler exposes the registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) Submission(trigger, outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(trigger, outcome).Inc()
}

func (m *Metrics) CheckpointWritten() {
	if m == nil {
		return
	}
	m.CheckpointWrites.Inc()
}

func (m *Metrics) Recovery(result string) {
	if m == nil {
		return
	}
	m.CheckpointRecovered.WithLabelValues(result).Inc()
}

func (m *Metrics) Reconcile(source string) {
	if m == nil {
		return
	}
	m.Reconciled.WithLabelValues(source).Inc()
}

func (m *Metrics) SetCountdowns(n int) {
	if m == nil {
		return
	}
	m.Countdowns.Set(float64(n))
}
