// Package mls implements the membership set, debounced rekey, roster
// binding, and group-key load/retry state machine described as the
// "MLS-lite" layer: a minimal subset of Messaging Layer Security ideas
// (epoch-scoped group keys, membership-bound rekey) without the tree-based
// key schedule.
package mls

import (
	"time"

	"github.com/nulltrace/core/groupchat"
)

// Config bounds the group's rekey and group-key-retry timing. Fields mirror
// config.GroupConfig so callers can pass that substruct straight through.
type Config struct {
	// RekeyDebounce is how long an add/remove waits before the initiator
	// mints a new epoch, coalescing bursts of membership changes into one
	// rekey.
	RekeyDebounce time.Duration
	// ExternalRekeyThrottle bounds how often an externally-triggered rekey
	// (a gk_req) may run, independent of the internal debounce.
	ExternalRekeyThrottle time.Duration
	// GKRetryBaseDelay is the first backoff delay in the group-key retry
	// ladder; each subsequent attempt doubles it.
	GKRetryBaseDelay time.Duration
	// GKRetryMaxAttempts caps how many times the retry ladder re-arms
	// before giving up on a group-key request.
	GKRetryMaxAttempts int
}

// DefaultConfig returns the protocol's reference timing: a 50ms rekey
// debounce, an 800ms external-rekey throttle, and a 300ms/x2/6-attempt
// group-key retry ladder.
func DefaultConfig() Config {
	return Config{
		RekeyDebounce:         50 * time.Millisecond,
		ExternalRekeyThrottle: 800 * time.Millisecond,
		GKRetryBaseDelay:      300 * time.Millisecond,
		GKRetryMaxAttempts:    6,
	}
}

// Events lets the owner of a Group react to things the group state machine
// does on its own timers, without the group needing to know about the
// transport or UI.
type Events interface {
	// OnReady fires once a group key (freshly minted or received) is
	// installed and ready for plaintext I/O.
	OnReady()
	// OnEmitGK fires once per peer for every frame a debounce-driven rekey
	// produces; the caller is responsible for putting it on the wire. Direct
	// Rekey/ThrottledRekey calls return their frames instead of firing this.
	OnEmitGK(f GKFrame)
	// OnGKReq fires when the GK retry timer decides to ask the host to
	// resend the group key; the caller sends a gk_req frame.
	OnGKReq()
}

// Group holds the membership mapping and drives the epoch state machine on
// top of a groupchat.State. It is not safe for concurrent use; the spec's
// concurrency model is single-threaded cooperative, so none is needed.
type Group struct {
	Chat *groupchat.State

	selfCID     string
	isInitiator bool
	members     map[string][]byte // cid -> pairwise key

	events Events
	cfg    Config

	rekeyTimer   *time.Timer
	lastExternal time.Time

	gk *gkLoader
}

// New creates a Group for selfCID. isInitiator marks the host; only the
// initiator mints and distributes group keys. A zero-value cfg falls back
// to DefaultConfig.
func New(selfCID string, isInitiator bool, events Events, cfg Config) *Group {
	if cfg.RekeyDebounce == 0 {
		cfg.RekeyDebounce = DefaultConfig().RekeyDebounce
	}
	if cfg.ExternalRekeyThrottle == 0 {
		cfg.ExternalRekeyThrottle = DefaultConfig().ExternalRekeyThrottle
	}
	if cfg.GKRetryBaseDelay == 0 {
		cfg.GKRetryBaseDelay = DefaultConfig().GKRetryBaseDelay
	}
	if cfg.GKRetryMaxAttempts == 0 {
		cfg.GKRetryMaxAttempts = DefaultConfig().GKRetryMaxAttempts
	}

	g := &Group{
		Chat:        groupchat.NewState(selfCID),
		selfCID:     selfCID,
		isInitiator: isInitiator,
		members:     make(map[string][]byte),
		events:      events,
		cfg:         cfg,
	}
	g.gk = newGKLoader(g)
	return g
}

// SetInitiator changes the leadership role. Not exercised in the reference
// deployment, but kept for a future leadership handoff.
func (g *Group) SetInitiator(flag bool) {
	g.isInitiator = flag
}

// IsInitiator reports whether this member currently mints group keys.
func (g *Group) IsInitiator() bool {
	return g.isInitiator
}
