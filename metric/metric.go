// Package metric holds prometheus collectors shared across the module.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UploadsStartedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "unistore",
		Subsystem: "storage",
		Name:      "uploads_started_total",
		Help:      "Uploads launched per provider.",
	}, []string{"provider"})

	UploadsFinishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "unistore",
		Subsystem: "storage",
		Name:      "uploads_finished_total",
		Help:      "Completed uploads per provider and status.",
	}, []string{"provider", "status"})

	UploadDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "unistore",
		Subsystem: "storage",
		Name:      "upload_duration_seconds",
		Help:      "Wall time of a single provider upload.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"provider"})
)
