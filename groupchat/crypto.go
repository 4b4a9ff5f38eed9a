package groupchat

import "github.com/nulltrace/core/primitives"

func b64(b []byte) string {
	return primitives.B64Encode(b)
}

func b64dec(s string) ([]byte, error) {
	return primitives.B64Decode(s)
}

func sealPlaintext(key, nonce, plaintext, aad []byte) ([]byte, error) {
	return primitives.Seal(key, nonce, plaintext, aad)
}

func openCiphertext(key, nonce, ciphertext, aad []byte) ([]byte, error) {
	return primitives.Open(key, nonce, ciphertext, aad)
}
