package mls

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nulltrace/core/internal/metrics"
	"github.com/nulltrace/core/primitives"
)

// gkLoader owns the responder-side "no gk arrived yet" retry timer. The
// spec scopes this to a single relationship (the guest waiting on its
// host), so one loader per Group is enough.
type gkLoader struct {
	group *Group

	timer   *time.Timer
	attempt int
}

func newGKLoader(g *Group) *gkLoader {
	return &gkLoader{group: g}
}

// StartRetry arms the first GK-retry timer. Call this once a pair key with
// the host is established but no gk frame has arrived yet.
func (g *Group) StartRetry() {
	g.gk.attempt = 0
	g.gk.arm(g.cfg.GKRetryBaseDelay)
}

// CancelRetry stops a pending GK-retry timer. Called on the first
// successful GK install, or as part of wipeSession teardown.
func (g *Group) CancelRetry() {
	g.gk.cancel()
}

func (l *gkLoader) arm(delay time.Duration) {
	l.cancel()
	l.timer = time.AfterFunc(delay, l.fire)
}

func (l *gkLoader) cancel() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}

func (l *gkLoader) fire() {
	if l.attempt >= l.group.cfg.GKRetryMaxAttempts {
		return
	}
	if l.group.events != nil {
		l.group.events.OnGKReq()
	}
	l.attempt++
	if l.attempt < l.group.cfg.GKRetryMaxAttempts {
		l.arm(l.group.cfg.GKRetryBaseDelay * time.Duration(1<<uint(l.attempt)))
	} else {
		metrics.GKRetriesExhausted.Inc()
	}
}

// ApplyGK processes a received gk frame addressed to selfCID, using pairKey
// as the sender's pairwise key. ok=false with a nil error covers every
// silent-drop case the spec defines (wrong recipient, no epoch advance,
// AEAD failure on both the current and legacy AAD shapes).
func (g *Group) ApplyGK(f GKFrame, pairKey []byte) (ok bool, err error) {
	if f.To != "" && f.To != g.selfCID {
		metrics.GKFramesApplied.WithLabelValues("wrong_recipient").Inc()
		return false, nil
	}
	if f.E <= g.Chat.Epoch() {
		metrics.GKFramesApplied.WithLabelValues("stale_epoch").Inc()
		return false, nil
	}

	nonce, err := primitives.B64Decode(f.N)
	if err != nil {
		metrics.GKFramesApplied.WithLabelValues("unwrap_failed").Inc()
		return false, nil
	}
	ek, err := primitives.B64Decode(f.EK)
	if err != nil {
		metrics.GKFramesApplied.WithLabelValues("unwrap_failed").Inc()
		return false, nil
	}

	var groupKey []byte
	legacyFallback := false
	if f.RH != "" {
		aad, err := json.Marshal(gkAAD{T: "gk", CID: f.CID, S: 0, E: f.E, RH: f.RH})
		if err != nil {
			return false, fmt.Errorf("mls: marshal aad: %w", err)
		}
		groupKey, err = primitives.Open(pairKey, nonce, ek, aad)
		if err != nil {
			// Legacy fallback: the sender may predate roster-hash binding.
			legacyAAD, merr := json.Marshal(gkAAD{T: "gk", CID: f.CID, S: 0, E: f.E})
			if merr != nil {
				metrics.GKFramesApplied.WithLabelValues("unwrap_failed").Inc()
				return false, nil
			}
			groupKey, err = primitives.Open(pairKey, nonce, ek, legacyAAD)
			if err != nil {
				metrics.GKFramesApplied.WithLabelValues("unwrap_failed").Inc()
				return false, nil
			}
			legacyFallback = true
		}
	} else {
		legacyAAD, merr := json.Marshal(gkAAD{T: "gk", CID: f.CID, S: 0, E: f.E})
		if merr != nil {
			metrics.GKFramesApplied.WithLabelValues("unwrap_failed").Inc()
			return false, nil
		}
		var oerr error
		groupKey, oerr = primitives.Open(pairKey, nonce, ek, legacyAAD)
		if oerr != nil {
			metrics.GKFramesApplied.WithLabelValues("unwrap_failed").Inc()
			return false, nil
		}
		legacyFallback = true
	}

	g.CancelRetry()
	g.Chat.InstallGroupKey(groupKey, f.E)
	if g.events != nil {
		g.events.OnReady()
	}
	if legacyFallback {
		metrics.GKFramesApplied.WithLabelValues("legacy_fallback").Inc()
	} else {
		metrics.GKFramesApplied.WithLabelValues("installed").Inc()
	}
	return true, nil
}
