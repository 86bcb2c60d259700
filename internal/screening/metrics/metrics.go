package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SessionsStarted  prometheus.Counter
	Submissions      prometheus.Counter
	Outcomes         *prometheus.CounterVec
	LifetimeVerdicts prometheus.Counter
	Escalations      prometheus.Counter
	OverlayFallbacks prometheus.Counter
	SubmitDuration   prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "amora_screening_sessions_started_total",
			Help: "Total number of screening sessions started",
		}),
		Submissions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "amora_screening_submissions_total",
			Help: "Total number of accepted answer submissions",
		}),
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "amora_screening_outcomes_total",
			Help: "Terminal screening outcomes by type",
		}, []string{"outcome"}),
		LifetimeVerdicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "amora_screening_lifetime_verdicts_total",
			Help: "Total number of lifetime ineligibility verdicts recorded",
		}),
		Escalations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "amora_screening_escalations_total",
			Help: "Total number of phase escalations to the final phase",
		}),
		OverlayFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "amora_screening_overlay_fallbacks_total",
			Help: "Overlay reads that degraded to frozen snapshot values",
		}),
		SubmitDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "amora_screening_submit_duration_seconds",
			Help:    "Latency of answer submission processing",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncrementSessionsStarted() {
	m.SessionsStarted.Inc()
}

func (m *Metrics) IncrementSubmissions() {
	m.Submissions.Inc()
}

func (m *Metrics) IncrementOutcome(outcome string) {
	m.Outcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementLifetimeVerdicts() {
	m.LifetimeVerdicts.Inc()
}

func (m *Metrics) IncrementEscalations() {
	m.Escalations.Inc()
}

func (m *Metrics) IncrementOverlayFallbacks() {
	m.OverlayFallbacks.Inc()
}

func (m *Metrics) ObserveSubmitDuration(seconds float64) {
	m.SubmitDuration.Observe(seconds)
}
