package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HandshakesInitiated tracks the Init-role side of a pairwise handshake.
	HandshakesInitiated = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handshake",
			Name:      "initiated_total",
			Help:      "Total number of handshakes initiated",
		},
	)

	// HandshakesCompleted tracks a pairwise key successfully derived.
	HandshakesCompleted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handshake",
			Name:      "completed_total",
			Help:      "Total number of handshakes that produced a pair key",
		},
		[]string{"role"}, // init, resp
	)

	// HandshakeSignatureMismatches tracks a non-fatal transcript signature
	// verification failure (the pair key is still derived, SigOK is false).
	HandshakeSignatureMismatches = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handshake",
			Name:      "signature_mismatches_total",
			Help:      "Total number of handshakes whose transcript signature failed verification",
		},
	)

	// HandshakeDuration observes end-to-end handshake latency.
	HandshakeDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "handshake",
			Name:      "duration_seconds",
			Help:      "Handshake duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
)
