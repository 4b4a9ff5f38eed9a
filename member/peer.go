package member

// Peer holds a known counterparty's public material and the handshake
// artifacts exchanged so far, indexed by its cid in the owning session.
type Peer struct {
	CID string

	IDPub []byte
	XPub  []byte
	PQPub []byte

	// CT and Sig are the KEM ciphertext and transcript signature the
	// initiator delivers in a ct frame; both are absent until that frame
	// arrives.
	CT  []byte
	Sig []byte

	// PairKey is the pairwise AEAD key derived by the handshake, or nil
	// until the handshake completes for this peer.
	PairKey []byte

	// SigOK records whether the transcript signature verified. A failed
	// verification is non-fatal: the handshake still proceeds with
	// SigOK=false so callers can decide how to surface the warning.
	SigOK bool

	// SAS is the short authentication string derived alongside PairKey.
	SAS string
}

// NewPeer records a counterparty's announced public material.
func NewPeer(cid string, idPub, xPub, pqPub []byte) *Peer {
	return &Peer{CID: cid, IDPub: idPub, XPub: xPub, PQPub: pqPub}
}

// Wipe zeroes the peer's pairwise key. Public material is not secret and is
// left as-is.
func (p *Peer) Wipe() {
	for i := range p.PairKey {
		p.PairKey[i] = 0
	}
	p.PairKey = nil
}
