package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	profileReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profile_store_reads_total",
			Help: "Profile lookups by outcome (found, stub, error)",
		},
		[]string{"result"},
	)

	profileWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profile_store_writes_total",
			Help: "Profile merge-upserts by origin and outcome",
		},
		[]string{"origin", "result"},
	)

	avatarOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avatar_pipeline_outcomes_total",
			Help: "Avatar pipeline attempts by source and final state",
		},
		[]string{"source", "state"},
	)

	avatarUploadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "avatar_upload_duration_seconds",
			Help:    "Duration of avatar blob uploads",
			Buckets: prometheus.DefBuckets,
		},
	)
)
