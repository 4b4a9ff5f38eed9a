package primitives

import (
	"crypto/ecdh"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
)

// X25519KeyPair holds an ephemeral ECDH key pair, mirroring the teacher's
// crypto/keys.X25519KeyPair but trimmed to exactly what the handshake needs:
// generation, public bytes, and raw shared-secret derivation.
type X25519KeyPair struct {
	priv *ecdh.PrivateKey
	pub  *ecdh.PublicKey
}

// GenerateX25519 creates a fresh ephemeral X25519 key pair.
func GenerateX25519() (*X25519KeyPair, error) {
	priv, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("primitives: generate x25519: %w", err)
	}
	return &X25519KeyPair{priv: priv, pub: priv.PublicKey()}, nil
}

// PublicBytes returns the 32-byte wire form of the public key.
func (kp *X25519KeyPair) PublicBytes() []byte {
	return kp.pub.Bytes()
}

// SharedX computes the raw 32-byte X25519 ECDH output with peerPub. It is
// combined with the KEM shared secret (sharedK) by the handshake's extract
// step; it is not used directly as a key.
func (kp *X25519KeyPair) SharedX(peerPub []byte) ([]byte, error) {
	peer, err := ecdh.X25519().NewPublicKey(peerPub)
	if err != nil {
		return nil, fmt.Errorf("primitives: parse peer x25519 pub: %w", err)
	}
	shared, err := kp.priv.ECDH(peer)
	if err != nil {
		return nil, fmt.Errorf("primitives: x25519 ecdh: %w", err)
	}
	var zero [32]byte
	if subtle.ConstantTimeCompare(shared, zero[:]) == 1 {
		return nil, fmt.Errorf("primitives: x25519: low-order or identity point")
	}
	return shared, nil
}
