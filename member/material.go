// Package member holds a participant's own key material: the long-term
// identity key pair and the ephemeral ECDH/KEM key pairs generated fresh
// each session, plus the peer records built from handshakes and capsules.
package member

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/nulltrace/core/primitives"
)

// NewCID mints a fresh opaque participant id. It is assigned per session and
// regenerated on any restart; it is never persisted.
func NewCID() string {
	return uuid.NewString()
}

// Material is a participant's own key material: one long-term identity key
// pair plus one ephemeral ECDH and one ephemeral KEM key pair, both
// generated fresh when the session starts.
type Material struct {
	CID string

	idKey *primitives.SignKeyPair
	xKey  *primitives.X25519KeyPair
	pqKey *primitives.KEMKeyPair
	wiped bool
}

// New creates fresh key material for a new session.
func New() (*Material, error) {
	idKey, err := primitives.GenerateSignKeyPair()
	if err != nil {
		return nil, fmt.Errorf("member: generate identity key: %w", err)
	}
	xKey, err := primitives.GenerateX25519()
	if err != nil {
		return nil, fmt.Errorf("member: generate x25519 key: %w", err)
	}
	pqKey, err := primitives.GenerateKEM()
	if err != nil {
		return nil, fmt.Errorf("member: generate kem key: %w", err)
	}
	return &Material{
		CID:   NewCID(),
		idKey: idKey,
		xKey:  xKey,
		pqKey: pqKey,
	}, nil
}

// IDPub returns the identity public key bytes.
func (m *Material) IDPub() []byte {
	if m.wiped {
		return nil
	}
	return m.idKey.PublicBytes()
}

// XPub returns the ephemeral ECDH public key bytes.
func (m *Material) XPub() []byte {
	if m.wiped {
		return nil
	}
	return m.xKey.PublicBytes()
}

// PQPub returns the ephemeral KEM public key bytes.
func (m *Material) PQPub() ([]byte, error) {
	if m.wiped {
		return nil, fmt.Errorf("member: material wiped")
	}
	return m.pqKey.PublicBytes()
}

// IDKeyPair exposes the identity signing key pair directly, for callers
// (capsule issuance) that need to hand it to another package rather than
// call through Sign.
func (m *Material) IDKeyPair() *primitives.SignKeyPair {
	if m.wiped {
		return nil
	}
	return m.idKey
}

// Sign signs transcript with the identity key.
func (m *Material) Sign(transcript []byte) ([]byte, error) {
	if m.wiped {
		return nil, fmt.Errorf("member: material wiped")
	}
	return m.idKey.Sign(transcript), nil
}

// SharedX computes the raw X25519 ECDH output against a peer's public key.
func (m *Material) SharedX(peerXPub []byte) ([]byte, error) {
	if m.wiped {
		return nil, fmt.Errorf("member: material wiped")
	}
	return m.xKey.SharedX(peerXPub)
}

// Decapsulate runs the KEM decapsulation step as handshake responder.
func (m *Material) Decapsulate(ct []byte) ([]byte, error) {
	if m.wiped {
		return nil, fmt.Errorf("member: material wiped")
	}
	return m.pqKey.Decapsulate(ct)
}

// Wipe drops every key this material holds and marks it unusable. It is
// the per-member half of wipeSession's teardown: the key references are
// released to the garbage collector; their bytes are not overwritten.
func (m *Material) Wipe() {
	if m.wiped {
		return
	}
	m.idKey = nil
	m.xKey = nil
	m.pqKey = nil
	m.wiped = true
}
