package reconcile

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "ftrac"

// Import outcomes recorded in ftrac_import_runs_total.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the Prometheus collectors of the reconciler.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// RunsTotal counts import runs.
	// Labels: outcome (success, failure)
	RunsTotal *prometheus.CounterVec

	// RowsTotal counts rows written.
	// Labels: table (runtime, syscall, file, proc)
	RowsTotal *prometheus.CounterVec

	// SkippedLinesTotal counts log lines dropped with a warning.
	// Labels: log (file name)
	SkippedLinesTotal *prometheus.CounterVec

	// DurationSeconds measures whole import runs.
	DurationSeconds prometheus.Histogram
}

// NewMetrics creates the reconciler metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "import_runs_total",
				Help:      "Session import runs by outcome.",
			},
			[]string{"outcome"},
		),
		RowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "import_rows_total",
				Help:      "Rows written by session imports, by table.",
			},
			[]string{"table"},
		),
		SkippedLinesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "import_skipped_lines_total",
				Help:      "Log lines skipped during import, by log.",
			},
			[]string{"log"},
		),
		DurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "import_duration_seconds",
				Help:      "Duration of session imports.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
			},
		),
	}
}

// observe records one finished import.
func (m *Metrics) observe(res *Result, skipped map[string]int, took time.Duration, err error) {
	if m == nil {
		return
	}

	m.DurationSeconds.Observe(took.Seconds())
	for log, n := range skipped {
		m.SkippedLinesTotal.WithLabelValues(log).Add(float64(n))
	}

	if err != nil {
		m.RunsTotal.WithLabelValues(OutcomeFailure).Inc()
		return
	}
	m.RunsTotal.WithLabelValues(OutcomeSuccess).Inc()
	m.RowsTotal.WithLabelValues("runtime").Add(float64(res.RuntimeItems))
	m.RowsTotal.WithLabelValues("syscall").Add(float64(res.Syscalls))
	m.RowsTotal.WithLabelValues("file").Add(float64(res.Files))
	m.RowsTotal.WithLabelValues("proc").Add(float64(res.Processes))
}
