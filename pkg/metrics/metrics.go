// Package metrics exposes the forecaster's own Prometheus metrics. All
// collectors use the "forecaster" namespace and register with the default
// registry via promauto, so promhttp.Handler serves them on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "forecaster"

// Round outcomes
const (
	OutcomeReal      = "real"
	OutcomePartial   = "partial"
	OutcomeSynthetic = "synthetic"
)

var (
	// CollectorRoundsTotal counts collection rounds by outcome.
	// outcome: real | partial | synthetic
	CollectorRoundsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "rounds_total",
			Help:      "Total number of collection rounds by outcome.",
		},
		[]string{"outcome"},
	)

	CollectorRoundDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "round_duration_seconds",
			Help:      "Wall time of a collection round including source calls.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	SourceFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "failures_total",
			Help:      "Readings that fell back to synthetic data, by metric.",
		},
		[]string{"metric"},
	)

	PointsAppendedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_appended_total",
			Help:      "History points appended, by metric and data source.",
		},
		[]string{"metric", "source"},
	)

	MetricValue = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "metric_value",
			Help:      "Most recent value appended for each metric.",
		},
		[]string{"metric"},
	)

	ForecastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecasts_total",
			Help:      "Forecasts served, by model and metric.",
		},
		[]string{"model", "metric"},
	)
)

// ObserveRound records one finished collection round
func ObserveRound(outcome string, duration time.Duration) {
	CollectorRoundsTotal.WithLabelValues(outcome).Inc()
	CollectorRoundDuration.Observe(duration.Seconds())
}

// RecordPoint records an appended point and its value
func RecordPoint(metric, source string, value float64) {
	PointsAppendedTotal.WithLabelValues(metric, source).Inc()
	MetricValue.WithLabelValues(metric).Set(value)
}

func RecordSourceFailure(metric string) {
	SourceFailuresTotal.WithLabelValues(metric).Inc()
}

func RecordForecast(model, metric string) {
	ForecastsTotal.WithLabelValues(model, metric).Inc()
}
