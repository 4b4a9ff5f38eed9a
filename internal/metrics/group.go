package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EpochsInstalled tracks every group-key install, whether self-minted or
	// received from an initiator.
	EpochsInstalled = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "group",
			Name:      "epochs_installed_total",
			Help:      "Total number of group-key epochs installed",
		},
	)

	// RekeysTriggered tracks initiator-side rekey runs by trigger.
	RekeysTriggered = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "group",
			Name:      "rekeys_triggered_total",
			Help:      "Total number of rekeys triggered",
		},
		[]string{"trigger"}, // membership, external
	)

	// GKFramesWrapped tracks per-member group-key wraps emitted by a rekey.
	GKFramesWrapped = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "group",
			Name:      "gk_frames_wrapped_total",
			Help:      "Total number of per-member group-key frames wrapped",
		},
	)

	// GKFramesApplied tracks the result of applying a received gk frame.
	GKFramesApplied = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "group",
			Name:      "gk_frames_applied_total",
			Help:      "Total number of received group-key frames by outcome",
		},
		[]string{"outcome"}, // installed, wrong_recipient, stale_epoch, unwrap_failed, legacy_fallback
	)

	// GKRetriesExhausted tracks a group-key retry ladder reaching its
	// maximum attempt count without a successful install.
	GKRetriesExhausted = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "group",
			Name:      "gk_retries_exhausted_total",
			Help:      "Total number of group-key retry ladders that exhausted all attempts",
		},
	)
)
