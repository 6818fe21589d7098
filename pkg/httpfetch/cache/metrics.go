package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Hits tracks cache hits by layer ("redis").
	Hits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagesched_cache_hits_total",
		Help: "Total number of httpfetch cache hits.",
	}, []string{"layer"})

	// Misses tracks cache misses.
	Misses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagesched_cache_misses_total",
		Help: "Total number of httpfetch cache misses.",
	})

	// Size tracks cache size in bytes by layer.
	Size = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pagesched_cache_size_bytes",
		Help: "Current size of the httpfetch cache in bytes.",
	}, []string{"layer"})

	// NotModified tracks 304 Not Modified responses.
	NotModified = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagesched_not_modified_responses_total",
		Help: "Total number of 304 Not Modified responses.",
	})

	// Errors tracks cache operation errors by operation.
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagesched_cache_errors_total",
		Help: "Total number of cache operation errors.",
	}, []string{"operation"})
)
