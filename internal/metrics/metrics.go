// Package metrics holds the Prometheus collectors of the conversation engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "aichatmanager"

var (
	// RunsTotal counts finished runs.
	// Labels: status (completed, failed, cancelled, expired, incomplete, timeout, error)
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "total",
			Help:      "Total number of assistant runs by final status",
		},
		[]string{"status"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Time from run creation to its final status",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 90, 120},
		},
	)

	// ThreadRotations counts rotation decisions.
	// Labels: result (bootstrap, rotated, error)
	ThreadRotations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "thread",
			Name:      "rotations_total",
			Help:      "Total number of threads replaced by a new one",
		},
		[]string{"result"},
	)

	UploadAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "attempts_total",
			Help:      "Total number of provider upload attempts, retries included",
		},
	)

	// UploadsTotal counts upload outcomes.
	// Labels: result (success, empty, too_large, provider, local)
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "total",
			Help:      "Total number of file uploads by result",
		},
		[]string{"result"},
	)

	// GroundingAttachments counts attach operations.
	// Labels: result (added, present, error)
	GroundingAttachments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "grounding",
			Name:      "attachments_total",
			Help:      "Total number of file attachments to grounding stores",
		},
		[]string{"result"},
	)

	GroundingStoresCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "grounding",
			Name:      "stores_created_total",
			Help:      "Total number of grounding stores created",
		},
	)
)
