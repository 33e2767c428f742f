package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/KaramelBytes/corrmatrix/internal/analysis"
)

// Metrics holds the Prometheus collectors for the service.
type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	AnalysisDuration prometheus.Histogram
	RecordsPerCall   prometheus.Histogram
	ColumnsPruned    prometheus.Counter
	StructuralErrors prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corrmatrix_http_requests_total",
				Help: "HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "code"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "corrmatrix_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "corrmatrix_analysis_duration_seconds",
			Help:    "Time spent building, correlating and pruning one batch",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		RecordsPerCall: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "corrmatrix_analysis_records",
			Help:    "Records received per analysis call",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
		ColumnsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "corrmatrix_analysis_columns_pruned_total",
			Help: "Degenerate columns removed from results",
		}),
		StructuralErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "corrmatrix_analysis_structural_errors_total",
			Help: "Requests rejected because the input was not a list of objects",
		}),
	}
	reg.MustRegister(
		m.Requests,
		m.RequestDuration,
		m.AnalysisDuration,
		m.RecordsPerCall,
		m.ColumnsPruned,
		m.StructuralErrors,
	)
	return m
}

func (m *Metrics) observeAnalysis(res *analysis.Result, took time.Duration) {
	m.AnalysisDuration.Observe(took.Seconds())
	m.RecordsPerCall.Observe(float64(res.Rows))
	m.ColumnsPruned.Add(float64(len(res.Pruned)))
}
