// Package metrics defines prometheus metrics to expose
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExtractDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pylon_extract_duration_seconds",
			Help:    "Time spent waiting on the extraction provider in seconds",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 15, 20, 30, 45, 60, 90, 120},
		},
		[]string{"provider", "model"},
	)

	ExtractCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pylon_extract_count_total",
			Help: "Total number of extraction calls by outcome",
		},
		[]string{"provider", "model", "status"},
	)

	UpstreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pylon_upstream_error_count",
			Help: "Provider failures by reason",
		},
		[]string{"provider", "reason"},
	)

	RejectedUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pylon_rejected_upload_count",
			Help: "Uploads refused before any provider call",
		},
		[]string{"source", "content_type"},
	)

	ResponseCodes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pylon_status_code",
			Help: "Status Codes",
		},
		[]string{"path", "status_code"},
	)
)
