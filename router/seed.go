package router

import "github.com/nulltrace/core/member"

// SeedPeer records a peer's public material learned out of band (an
// invitation capsule identifies the host this way) rather than through a
// hello/announce frame. It overwrites any existing record for cid.
func (r *Router) SeedPeer(cid string, idPub, xPub, pqPub []byte) {
	r.peers[cid] = member.NewPeer(cid, idPub, xPub, pqPub)
}
