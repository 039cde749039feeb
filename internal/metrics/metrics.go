// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package metrics exposes Prometheus collectors for category tree
// operations. Collectors register with the default registry on import and
// are served by the router's /metrics endpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taxonomy",
		Name:      "category_mutations_total",
		Help:      "Category mutations by operation and outcome.",
	}, []string{"op", "outcome"})

	rejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taxonomy",
		Name:      "category_rejections_total",
		Help:      "Rejected category writes by violation code.",
	}, []string{"code"})

	subtreeSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "taxonomy",
		Name:      "category_deleted_subtree_size",
		Help:      "Number of categories removed per subtree deletion.",
		Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 500},
	})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "taxonomy",
		Name:      "category_operation_duration_seconds",
		Help:      "Duration of tree service operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taxonomy",
		Name:      "listing_cache_lookups_total",
		Help:      "Listing cache lookups by result (hit, miss).",
	}, []string{"result"})
)

// RecordMutation counts a finished mutation.
func RecordMutation(op, outcome string) {
	mutations.WithLabelValues(op, outcome).Inc()
}

// RecordRejection counts a write rejected by validation.
func RecordRejection(code string) {
	rejections.WithLabelValues(code).Inc()
}

// ObserveSubtreeDeleted records how many nodes one deletion removed.
func ObserveSubtreeDeleted(n int) {
	subtreeSize.Observe(float64(n))
}

// ObserveDuration records the time since start for op.
func ObserveDuration(op string, start time.Time) {
	operationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// RecordCacheLookup counts a listing cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	cacheLookups.WithLabelValues("miss").Inc()
}
