// Package groupchat implements the group AEAD message channel: per-sender
// deterministic nonces, a canonical AAD binding every message to its
// sender/sequence/epoch, replay rejection, and a buffer for messages that
// arrive before the group key that would decrypt them.
package groupchat

import (
	"encoding/json"
	"fmt"

	"github.com/nulltrace/core/primitives"
)

// Frame is the wire shape of an encrypted application message.
type Frame struct {
	T   string `json:"t"`
	CID string `json:"cid"`
	S   uint64 `json:"s"`
	E   int    `json:"e"`
	N   string `json:"n"`
	C   string `json:"c"`
}

// aad is the canonical AAD shape; field order is fixed by struct declaration
// order and must match on both sides of the wire exactly.
type aad struct {
	T   string `json:"t"`
	CID string `json:"cid"`
	S   uint64 `json:"s"`
	E   int    `json:"e"`
}

func nonceFor(cid string, seq uint64, epoch int) ([]byte, error) {
	data := fmt.Sprintf("NT-v1|nonce|%s|%d|%d", cid, seq, epoch)
	return primitives.KeyedHash(primitives.NonceSize, []byte(data))
}

func aadBytes(t, cid string, seq uint64, epoch int) ([]byte, error) {
	b, err := json.Marshal(aad{T: t, CID: cid, S: seq, E: epoch})
	if err != nil {
		return nil, fmt.Errorf("groupchat: marshal aad: %w", err)
	}
	return b, nil
}
