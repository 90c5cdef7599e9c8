// Package metrics provides Prometheus metrics for the HTTP server and the
// ingestion runs. HTTP metrics:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//
// Ingestion metrics describe the last completed run and count runs by outcome.
// All metrics are registered with the Prometheus default registry during
// package initialization.
package metrics

import (
	"github.com/medprices/medprices-api/pricelist/entities"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	RunStatusSuccess = "success"
	RunStatusFailure = "failure"
	RunStatusSkipped = "skipped"
)

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (IPs seen in last ~5 minutes)",
		},
	)

	IngestionRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingestion_runs_total",
			Help: "Ingestion runs by outcome",
		},
		[]string{"status"},
	)

	IngestionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingestion_duration_seconds",
			Help:    "Duration of completed ingestion runs",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	IngestionRows = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ingestion_rows",
			Help: "Row counts of the last successful ingestion run",
		},
		[]string{"stage"},
	)

	IngestionCoveragePercent = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ingestion_coverage_percent",
			Help: "Share of input rows retained by the last successful ingestion run",
		},
	)

	IngestionLastSuccessTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ingestion_last_success_timestamp_seconds",
			Help: "Unix time the last successful ingestion run finished",
		},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(IngestionRunsTotal)
	prometheus.MustRegister(IngestionDuration)
	prometheus.MustRegister(IngestionRows)
	prometheus.MustRegister(IngestionCoveragePercent)
	prometheus.MustRegister(IngestionLastSuccessTimestamp)
}

// RecordRun publishes the outcome of a successful ingestion run.
func RecordRun(summary *entities.RunSummary) {
	IngestionRunsTotal.WithLabelValues(RunStatusSuccess).Inc()
	if summary == nil {
		return
	}

	IngestionDuration.Observe(summary.FinishedAt.Sub(summary.StartedAt).Seconds())
	IngestionRows.WithLabelValues("input").Set(float64(summary.Coverage.Input))
	IngestionRows.WithLabelValues("output").Set(float64(summary.Coverage.Output))
	IngestionRows.WithLabelValues("dropped").Set(float64(summary.Coverage.Dropped))
	IngestionCoveragePercent.Set(summary.Coverage.Percent())
	IngestionLastSuccessTimestamp.Set(float64(summary.FinishedAt.Unix()))
}

// RecordRunFailure counts a run that did not replace the stored data.
func RecordRunFailure() {
	IngestionRunsTotal.WithLabelValues(RunStatusFailure).Inc()
}

// RecordRunSkipped counts a run that was not started because another one was in progress.
func RecordRunSkipped() {
	IngestionRunsTotal.WithLabelValues(RunStatusSkipped).Inc()
}
