package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CapsulesIssued tracks invitation capsules created for a room.
	CapsulesIssued = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capsule",
			Name:      "issued_total",
			Help:      "Total number of invitation capsules created",
		},
	)

	// CapsulesRejected tracks parse failures by reason.
	CapsulesRejected = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capsule",
			Name:      "rejected_total",
			Help:      "Total number of capsules rejected on parse",
		},
		[]string{"reason"}, // e.g. parse_failed (recorded by nt-guest for any capsule.Parse error)
	)

	// CapsulePaddedSize observes the padded envelope size in bytes.
	CapsulePaddedSize = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "capsule",
			Name:      "padded_size_bytes",
			Help:      "Padded capsule envelope size in bytes",
			Buckets:   prometheus.LinearBuckets(512, 64, 9), // 512..1024
		},
	)
)
