package router

import "github.com/nulltrace/core/primitives"

// HelloFrame builds this member's own hello announcement.
func (r *Router) HelloFrame() (Frame, error) {
	pqPub, err := r.Self.PQPub()
	if err != nil {
		return Frame{}, err
	}
	return Frame{
		T:   tHello,
		CID: r.Self.CID,
		X:   primitives.B64Encode(r.Self.XPub()),
		K:   primitives.B64Encode(pqPub),
		ID:  primitives.B64Encode(r.Self.IDPub()),
	}, nil
}

// AnnounceFrame builds an announce frame telling a joining peer about an
// existing member whose public material the router already holds.
func (r *Router) AnnounceFrame(cid string) (Frame, bool) {
	p, ok := r.peers[cid]
	if !ok {
		return Frame{}, false
	}
	return Frame{
		T:   tAnnounce,
		CID: p.CID,
		X:   primitives.B64Encode(p.XPub),
		K:   primitives.B64Encode(p.PQPub),
		ID:  primitives.B64Encode(p.IDPub),
	}, true
}
