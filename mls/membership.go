package mls

import (
	"time"

	"github.com/nulltrace/core/internal/metrics"
)

// AddMember inserts a peer's pairwise key into the roster and, if this
// member is the initiator, schedules a debounced rekey.
func (g *Group) AddMember(cid string, pairKey []byte) {
	g.members[cid] = pairKey
	g.scheduleRekey()
}

// RemoveMember drops a peer from the roster and, if this member is the
// initiator, schedules a debounced rekey.
func (g *Group) RemoveMember(cid string) {
	delete(g.members, cid)
	g.scheduleRekey()
}

// HasMember reports whether cid currently holds a pairwise key.
func (g *Group) HasMember(cid string) bool {
	_, ok := g.members[cid]
	return ok
}

// scheduleRekey arms (or re-arms) the debounce timer. Repeated calls within
// the debounce window coalesce into a single rekey: the timer is simply
// reset to fire RekeyDebounce from now, so a burst of membership changes
// only ever produces one fire.
func (g *Group) scheduleRekey() {
	if !g.isInitiator {
		return
	}
	if g.rekeyTimer == nil {
		g.rekeyTimer = time.AfterFunc(g.cfg.RekeyDebounce, g.onRekeyTimerFire)
		return
	}
	g.rekeyTimer.Reset(g.cfg.RekeyDebounce)
}

func (g *Group) onRekeyTimerFire() {
	if !g.isInitiator {
		return
	}
	metrics.RekeysTriggered.WithLabelValues("membership").Inc()
	frames, err := g.Rekey()
	if err != nil {
		return
	}
	for _, f := range frames {
		g.events.OnEmitGK(f)
	}
}

// cancelRekeyTimer stops a pending debounce timer, if any. Part of
// wipeSession's teardown contract.
func (g *Group) cancelRekeyTimer() {
	if g.rekeyTimer != nil {
		g.rekeyTimer.Stop()
		g.rekeyTimer = nil
	}
}
