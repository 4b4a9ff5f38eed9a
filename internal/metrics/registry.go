// Package metrics exposes Prometheus instrumentation for a NullTrace member
// process: capsule issuance, handshake outcomes, group rekey/epoch events,
// message channel drops, and router frame traffic.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "nulltrace"

// Registry is the process-wide collector registry every metric in this
// package registers into.
var Registry = prometheus.NewRegistry()
