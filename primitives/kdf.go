package primitives

import (
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// KeyedHash computes an n-byte BLAKE2b digest of data, optionally keyed. It
// is the one building block every higher layer composes into the spec's
// nonce derivation, roster hash, SAS, and handshake extract/expand steps:
// BLAKE2b natively supports keyed hashing with an arbitrary output length in
// [1,64], which is exactly the shape spec.md's "keyedHash(n, data[, key])"
// needs. Passing no key produces an unkeyed hash.
func KeyedHash(n int, data []byte, key ...[]byte) ([]byte, error) {
	if n < 1 || n > blake2b.Size {
		return nil, fmt.Errorf("primitives: keyed hash size %d out of range", n)
	}
	var k []byte
	if len(key) > 0 {
		k = key[0]
	}
	h, err := blake2b.New(n, k)
	if err != nil {
		return nil, fmt.Errorf("primitives: blake2b init: %w", err)
	}
	if _, err := h.Write(data); err != nil {
		return nil, fmt.Errorf("primitives: blake2b write: %w", err)
	}
	return h.Sum(nil), nil
}
