package provider

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the registry holding provider telemetry.
var Metrics = prometheus.NewRegistry()

var (
	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "metaweave",
		Subsystem: "provider",
		Name:      "requests_total",
		Help:      "Upstream provider requests by outcome.",
	}, []string{"provider", "outcome"})

	cacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "metaweave",
		Subsystem: "provider",
		Name:      "request_cache_hits_total",
		Help:      "Sub-requests answered from the request cache.",
	}, []string{"provider"})

	usageRatio = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "metaweave",
		Subsystem: "provider",
		Name:      "usage_ratio",
		Help:      "Share of the provider request budget in use.",
	}, []string{"provider"})
)

func init() {
	Metrics.MustRegister(requestsTotal, cacheHits, usageRatio)
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	switch Code(err) {
	case CodeNotFound:
		return "not_found"
	case CodeRateLimited:
		return "rate_limited"
	case CodeAuthFailed:
		return "auth_failed"
	case CodeNetwork, CodeUnavailable:
		return "unavailable"
	}
	return "error"
}

func observe(provider string, err error, usage float64) {
	requestsTotal.WithLabelValues(provider, outcome(err)).Inc()
	usageRatio.WithLabelValues(provider).Set(usage)
}
