package primitives

import (
	"fmt"

	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/mlkem/mlkem512"
)

// kemScheme returns the ML-KEM-512 scheme. It is the 'pq' half of every
// member's ephemeral key pair (spec.md §1 "alg = X25519+ML-KEM-512").
func kemScheme() kem.Scheme {
	return mlkem512.Scheme()
}

// KEMKeyPair holds an ephemeral post-quantum key-encapsulation key pair.
type KEMKeyPair struct {
	pub  kem.PublicKey
	priv kem.PrivateKey
}

// GenerateKEM creates a fresh ephemeral ML-KEM-512 key pair.
func GenerateKEM() (*KEMKeyPair, error) {
	pub, priv, err := kemScheme().GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("primitives: generate kem keypair: %w", err)
	}
	return &KEMKeyPair{pub: pub, priv: priv}, nil
}

// PublicBytes returns the wire form of the KEM public key.
func (kp *KEMKeyPair) PublicBytes() ([]byte, error) {
	return kp.pub.MarshalBinary()
}

// Encapsulate is run by the handshake initiator against the peer's public
// KEM key (spec.md §4.2 step 2, role=init). Returns the ciphertext to send
// and the shared secret to feed into the extract step.
func Encapsulate(peerPubBytes []byte) (ct, sharedK []byte, err error) {
	peerPub, err := kemScheme().UnmarshalBinaryPublicKey(peerPubBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("primitives: parse peer kem pub: %w", err)
	}
	ct, sharedK, err = kemScheme().Encapsulate(peerPub)
	if err != nil {
		return nil, nil, fmt.Errorf("primitives: kem encapsulate: %w", err)
	}
	return ct, sharedK, nil
}

// Decapsulate is run by the handshake responder (spec.md §4.2 step 2,
// role=resp) with the ciphertext the initiator produced.
func (kp *KEMKeyPair) Decapsulate(ct []byte) ([]byte, error) {
	sharedK, err := kemScheme().Decapsulate(kp.priv, ct)
	if err != nil {
		return nil, fmt.Errorf("primitives: kem decapsulate: %w", err)
	}
	return sharedK, nil
}
