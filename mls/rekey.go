package mls

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/nulltrace/core/internal/metrics"
	"github.com/nulltrace/core/primitives"
)

// GKFrame is the wire shape of a wrapped group key distributed to one peer.
type GKFrame struct {
	T   string `json:"t"`
	CID string `json:"cid"`
	To  string `json:"to"`
	E   int    `json:"e"`
	RH  string `json:"rh,omitempty"`
	N   string `json:"n"`
	EK  string `json:"ek"`
}

// gkAAD is the canonical AAD bound into every GK wrap. rh is present only
// when the wrap carries a roster hash, matching the legacy-fallback shape
// GK load understands.
type gkAAD struct {
	T   string `json:"t"`
	CID string `json:"cid"`
	S   uint64 `json:"s"`
	E   int    `json:"e"`
	RH  string `json:"rh,omitempty"`
}

// Rekey mints a fresh group key for the next epoch, computes the roster
// hash, and wraps the key to every current member. It is a no-op returning
// (nil, nil) if this member is not the initiator.
func (g *Group) Rekey() ([]GKFrame, error) {
	if !g.isInitiator {
		return nil, nil
	}

	key, err := primitives.RandomBytes(primitives.KeySize)
	if err != nil {
		return nil, fmt.Errorf("mls: mint group key: %w", err)
	}
	epoch := g.Chat.Epoch() + 1

	rh, err := g.rosterHash()
	if err != nil {
		return nil, fmt.Errorf("mls: roster hash: %w", err)
	}

	frames := make([]GKFrame, 0, len(g.members))
	for peerCID, sk := range g.members {
		f, err := wrapGK(g.selfCID, peerCID, epoch, rh, key, sk)
		if err != nil {
			return nil, fmt.Errorf("mls: wrap gk for %s: %w", peerCID, err)
		}
		frames = append(frames, f)
		metrics.GKFramesWrapped.Inc()
	}

	g.Chat.InstallGroupKey(key, epoch)
	if g.events != nil {
		g.events.OnReady()
	}
	return frames, nil
}

// ThrottledRekey runs Rekey in response to an externally-triggered request
// (a gk_req), dropping the call if one already ran within
// ExternalRekeyThrottle. The internal debounce timer is independent of this
// throttle and is unaffected by it.
func (g *Group) ThrottledRekey() ([]GKFrame, error) {
	if !g.isInitiator {
		return nil, nil
	}
	now := time.Now()
	if !g.lastExternal.IsZero() && now.Sub(g.lastExternal) < g.cfg.ExternalRekeyThrottle {
		return nil, nil
	}
	g.lastExternal = now
	metrics.RekeysTriggered.WithLabelValues("external").Inc()
	return g.Rekey()
}

// rosterHash computes base64(keyedHash(16, jsonSortedArray(self ∪ members))):
// the sorted, whitespace-free JSON array of every participant id this
// initiator currently knows about, including itself.
func (g *Group) rosterHash() (string, error) {
	ids := make([]string, 0, len(g.members)+1)
	ids = append(ids, g.selfCID)
	for cid := range g.members {
		ids = append(ids, cid)
	}
	sort.Strings(ids)

	encoded, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("marshal roster: %w", err)
	}
	h, err := primitives.KeyedHash(16, encoded)
	if err != nil {
		return "", fmt.Errorf("hash roster: %w", err)
	}
	return primitives.B64Encode(h), nil
}

func wrapGK(selfCID, peerCID string, epoch int, rh string, groupKey, pairKey []byte) (GKFrame, error) {
	nonce, err := primitives.RandomBytes(primitives.NonceSize)
	if err != nil {
		return GKFrame{}, fmt.Errorf("nonce: %w", err)
	}
	aad, err := json.Marshal(gkAAD{T: "gk", CID: selfCID, S: 0, E: epoch, RH: rh})
	if err != nil {
		return GKFrame{}, fmt.Errorf("aad: %w", err)
	}
	ek, err := primitives.Seal(pairKey, nonce, groupKey, aad)
	if err != nil {
		return GKFrame{}, fmt.Errorf("seal: %w", err)
	}
	return GKFrame{
		T:   "gk",
		CID: selfCID,
		To:  peerCID,
		E:   epoch,
		RH:  rh,
		N:   primitives.B64Encode(nonce),
		EK:  primitives.B64Encode(ek),
	}, nil
}
