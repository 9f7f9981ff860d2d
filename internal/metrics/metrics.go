// Package metrics exposes the gateway's prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// InfoRequests counts /info requests by outcome code.
	InfoRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ytgate",
		Name:      "info_requests_total",
		Help:      "Info requests by outcome.",
	}, []string{"outcome"})

	// CacheLookups counts /info cache lookups by result.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ytgate",
		Name:      "cache_lookups_total",
		Help:      "Info cache lookups by result (hit/miss).",
	}, []string{"result"})

	// Downloads counts /download requests by plan kind and outcome.
	Downloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ytgate",
		Name:      "downloads_total",
		Help:      "Download requests by transfer plan and outcome.",
	}, []string{"plan", "outcome"})

	// ResolveDuration observes metadata resolution latency.
	ResolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ytgate",
		Name:      "resolve_duration_seconds",
		Help:      "Metadata resolution latency.",
		Buckets:   prometheus.DefBuckets,
	})
)

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
