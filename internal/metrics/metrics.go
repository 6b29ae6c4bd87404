package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Extraction pipeline metrics
var (
	ExtractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extractions_total",
			Help: "Total number of URL extractions, by site and outcome.",
		},
		[]string{"site", "status"},
	)

	StreamExpansionFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_expansion_failures_total",
			Help: "Total number of non-fatal HLS/DASH manifest expansion failures.",
		},
		[]string{"protocol"},
	)
)

func init() {
	prometheus.MustRegister(
		ExtractionsTotal,
		StreamExpansionFailuresTotal,
	)
}
