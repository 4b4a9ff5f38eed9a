package router

import (
	"fmt"

	"github.com/nulltrace/core/handshake"
	"github.com/nulltrace/core/primitives"
)

// ApproveGuest runs the initiator side of the handshake against a peer
// currently in the pending-approval set and sends it the resulting KEM
// ciphertext and transcript signature as a ct frame. Call this once the UI
// (or an auto-admit policy) decides to let the peer in.
func (r *Router) ApproveGuest(cid string) error {
	if !r.IsInitiator {
		return fmt.Errorf("router: only the initiator approves guests")
	}
	p, known := r.peers[cid]
	if !known {
		return fmt.Errorf("router: unknown peer %s", cid)
	}
	delete(r.pendingApproval, cid)

	pairKey, err := handshake.With(p, r.Self, handshake.Init, r.Room)
	if err != nil {
		return fmt.Errorf("router: handshake with %s: %w", cid, err)
	}
	r.Group.AddMember(cid, pairKey)

	return r.transport.Send(Frame{
		T:   tCT,
		CID: r.Self.CID,
		To:  cid,
		CT:  primitives.B64Encode(p.CT),
		Sig: primitives.B64Encode(p.Sig),
	})
}
