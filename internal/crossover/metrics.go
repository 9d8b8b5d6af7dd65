package crossover

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crossover_scan_duration_seconds",
			Help:    "Duration of a full crossover scan in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	symbolsEvaluated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossover_symbols_evaluated_total",
			Help: "Symbols evaluated by the crossover detector, by outcome",
		},
		[]string{"outcome"},
	)

	scanErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crossover_scan_errors_total",
			Help: "Total number of failed crossover scans",
		},
	)
)
