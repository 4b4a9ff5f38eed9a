package primitives

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

// SignKeyPair is a member's long-term identity signing key, grounded on the
// teacher's crypto/keys.ed25519KeyPair but trimmed to Sign/Verify plus raw
// seed export/import (PrivateSeed, SignKeyPairFromSeed) for identity JWKs.
type SignKeyPair struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// GenerateSignKeyPair creates a fresh Ed25519 identity key pair.
func GenerateSignKeyPair() (*SignKeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("primitives: generate ed25519: %w", err)
	}
	return &SignKeyPair{priv: priv, pub: pub}, nil
}

// PublicBytes returns the 32-byte wire form of the public key.
func (kp *SignKeyPair) PublicBytes() []byte {
	return []byte(kp.pub)
}

// PrivateSeed returns the 32-byte Ed25519 seed backing this key pair, for
// callers that need to persist an identity across process restarts (JWK
// export). It is never transmitted on the wire.
func (kp *SignKeyPair) PrivateSeed() []byte {
	return kp.priv.Seed()
}

// SignKeyPairFromSeed reconstructs an identity key pair from a 32-byte
// Ed25519 seed, the inverse of PrivateSeed.
func SignKeyPairFromSeed(seed []byte) (*SignKeyPair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("primitives: ed25519 seed must be %d bytes", ed25519.SeedSize)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return &SignKeyPair{priv: priv, pub: pub}, nil
}

// Sign signs transcript with the member's identity key.
func (kp *SignKeyPair) Sign(transcript []byte) []byte {
	return ed25519.Sign(kp.priv, transcript)
}

// Verify checks sig over transcript against pubBytes. It never returns an
// error for a bad signature, only a bool: per spec.md §4.2 step 4 a failed
// transcript signature is non-fatal (sets sigOK=false) rather than aborting
// the handshake.
func Verify(pubBytes, transcript, sig []byte) bool {
	if len(pubBytes) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pubBytes), transcript, sig)
}
