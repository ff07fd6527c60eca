package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	results             *prometheus.CounterVec
	resultErrors        *prometheus.CounterVec
	calibrationRuns     *prometheus.CounterVec
	calibrationDuration prometheus.Histogram
	requestDuration     *prometheus.HistogramVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		results: f.NewCounterVec(prometheus.CounterOpts{
			Name: "archetype_results_total",
			Help: "Diagnosis results served, by matched archetype.",
		}, []string{"archetype"}),
		resultErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "archetype_result_errors_total",
			Help: "Diagnosis requests rejected, by error kind.",
		}, []string{"kind"}),
		calibrationRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "archetype_calibration_runs_total",
			Help: "Calibration runs, by outcome.",
		}, []string{"outcome"}),
		calibrationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "archetype_calibration_duration_seconds",
			Help:    "Wall time of completed calibration runs.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "archetype_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

const (
	OutcomeSuccess = "success"
	OutcomeSkipped = "skipped"
	OutcomeError   = "error"
)

func (m *Metrics) ObserveResult(archetypeID string) {
	if m == nil {
		return
	}
	m.results.WithLabelValues(archetypeID).Inc()
}

func (m *Metrics) ObserveResultError(kind string) {
	if m == nil {
		return
	}
	m.resultErrors.WithLabelValues(kind).Inc()
}

// ObserveCalibration counts a run and, for successful runs, records its duration.
func (m *Metrics) ObserveCalibration(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.calibrationRuns.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess {
		m.calibrationDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
