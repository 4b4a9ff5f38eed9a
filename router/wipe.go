package router

import "github.com/nulltrace/core/groupchat"

// Wipe is the single authoritative teardown path: best-effort leave,
// cancel every timer the group owns, drop the group-chat state (group key
// and buffered m frames), and clear peers and pending buffers.
// The transport itself and this member's own key material are the caller's
// responsibility to drop/wipe after this returns.
func (r *Router) Wipe() {
	_ = r.transport.Send(Frame{T: tLeave, CID: r.Self.CID})

	r.Group.Wipe()
	r.Group.Chat = groupchat.NewState(r.Self.CID)
	for cid, p := range r.peers {
		p.Wipe()
		delete(r.peers, cid)
	}
	for cid := range r.pendingApproval {
		delete(r.pendingApproval, cid)
	}
	for cid := range r.gkPending {
		delete(r.gkPending, cid)
	}
}
