package cachestore

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// KeyPrefixLabel is the label for cache metrics, representing the key prefix.
	KeyPrefixLabel = "key_prefix"
)

// Metrics contains the Prometheus collectors for cache-related metrics.
type Metrics struct {
	Hits   *prometheus.CounterVec
	Misses *prometheus.CounterVec
}

// NewMetrics creates and registers the cache metrics collectors.
func NewMetrics() Metrics {
	m := Metrics{
		Hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_hit_count",
			Help: "The number of cache hits",
		}, []string{KeyPrefixLabel}),
		Misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_miss_count",
			Help: "The number of cache misses",
		}, []string{KeyPrefixLabel}),
	}
	prometheus.MustRegister(
		m.Hits,
		m.Misses,
	)
	return m
}
