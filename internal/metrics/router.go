package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// FramesDispatched tracks every frame handed to the router, by frame type
// and dispatch outcome.
var FramesDispatched = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "router",
		Name:      "frames_dispatched_total",
		Help:      "Total number of frames dispatched through the router",
	},
	[]string{"type", "outcome"}, // hello/announce/ct/gk/gk_req/m/leave/chaff/ping or any unknown tag as received, ok/dropped/error
)
