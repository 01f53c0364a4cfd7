package mockworker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duelcore_judge_jobs_total",
			Help: "Total number of judge jobs processed, by language, mode and terminal status",
		},
		[]string{"language", "mode", "status"},
	)

	jobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duelcore_judge_job_duration_seconds",
			Help:    "Duration of judge job execution in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"language"},
	)

	workersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "duelcore_judge_workers_active",
			Help: "Number of currently active judge worker goroutines",
		},
	)
)
