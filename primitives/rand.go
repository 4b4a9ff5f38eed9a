// Package primitives is the cryptographic façade for the NullTrace group-chat
// engine. It wraps AEAD, keyed hashing, ECDH, KEM, signing, base64 and RNG so
// that the rest of the module never imports golang.org/x/crypto or circl
// directly.
package primitives

import (
	"crypto/rand"
	"fmt"
)

// RandomBytes returns n cryptographically random bytes. A failure is
// returned as an error; callers propagate it (or, on timer-driven rekeys,
// drop it) and nothing wipes the session in response.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("primitives: random bytes: %w", err)
	}
	return b, nil
}
