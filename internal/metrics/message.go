package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesEncrypted tracks group-chat frames sealed for send.
	MessagesEncrypted = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "message",
			Name:      "encrypted_total",
			Help:      "Total number of group-chat messages encrypted",
		},
	)

	// MessagesDecrypted tracks frames successfully opened.
	MessagesDecrypted = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "message",
			Name:      "decrypted_total",
			Help:      "Total number of group-chat messages decrypted",
		},
	)

	// MessagesDropped tracks frames dropped before or during decryption.
	MessagesDropped = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "message",
			Name:      "dropped_total",
			Help:      "Total number of group-chat messages dropped",
		},
		[]string{"reason"}, // no_group_key, wrong_epoch, replay, open_failed
	)

	// MessagesBuffered tracks frames parked pending a group key.
	MessagesBuffered = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "message",
			Name:      "buffered_total",
			Help:      "Total number of messages buffered pending a group key",
		},
	)
)
