package primitives

import (
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// NonceSize is the XChaCha20-Poly1305-IETF nonce length spec.md mandates for
// every group message and GK wrap.
const NonceSize = chacha20poly1305.NonceSizeX

// KeySize is the AEAD key length (also the group key and pair key length).
const KeySize = chacha20poly1305.KeySize

// Seal encrypts plaintext with XChaCha20-Poly1305-IETF under key, binding aad.
func Seal(key, nonce, plaintext, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("primitives: aead init: %w", err)
	}
	if len(nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("primitives: bad nonce size %d", len(nonce))
	}
	return aead.Seal(nil, nonce, plaintext, aad), nil
}

// Open decrypts and authenticates ciphertext produced by Seal.
func Open(key, nonce, ciphertext, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("primitives: aead init: %w", err)
	}
	if len(nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("primitives: bad nonce size %d", len(nonce))
	}
	pt, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("primitives: aead open: %w", err)
	}
	return pt, nil
}
