// Package capsule builds and parses the signed, TTL-bound invitation that
// lets a host admit a guest into a room without any prior shared state.
package capsule

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nulltrace/core/internal/metrics"
	"github.com/nulltrace/core/primitives"
)

const (
	// Version is the capsule format tag.
	Version = "NT-C1"
	// Algorithm names the identity and key-agreement primitives a capsule
	// commits its holder to.
	Algorithm = "Ed25519|X25519+ML-KEM-512"

	// DefaultTTL is how long a freshly minted capsule remains valid when the
	// caller doesn't override it via config.CapsuleConfig.TTL.
	DefaultTTL = 120 * time.Second

	// DefaultMaxBytes is the hard ceiling on a capsule's decoded size when
	// the caller doesn't override it via config.CapsuleConfig.MaxBytes.
	DefaultMaxBytes = 4096

	minPaddedBytes = 512
	maxPaddedBytes = 1024
)

// body is the inner, signed portion of a capsule.
type body struct {
	V    string `json:"v,omitempty"`
	Alg  string `json:"alg,omitempty"`
	Room string `json:"room"`
	CID  string `json:"cid"`
	X    string `json:"x"`
	K    string `json:"k"`
	Iat  int64  `json:"iat,omitempty"`
	Exp  int64  `json:"exp"`
}

// envelope is the outer, transmitted form: the base64 body, the signer's
// identity public key, the signature over the canonical transcript, and
// optional padding to obscure the true payload size.
type envelope struct {
	Payload string `json:"payload"`
	ID      string `json:"id"`
	Sig     string `json:"sig"`
	Pad     string `json:"pad,omitempty"`
}

// Invitation is what a successfully parsed capsule yields to its caller.
type Invitation struct {
	Room    string
	CID     string
	XPub    []byte
	PQPub   []byte
	IDPub   []byte
	Version string
	Alg     string
}

// Create mints a fresh, signed, padded capsule for room, naming cid and the
// holder's ephemeral public keys, signed by idPriv/idPub. A ttl of zero
// falls back to DefaultTTL.
func Create(room string, xPub, pqPub []byte, cid string, idPriv *primitives.SignKeyPair, idPub []byte, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	now := time.Now().Unix()
	b := body{
		V:    Version,
		Alg:  Algorithm,
		Room: room,
		CID:  cid,
		X:    primitives.B64Encode(xPub),
		K:    primitives.B64Encode(pqPub),
		Iat:  now,
		Exp:  now + int64(ttl.Seconds()),
	}

	transcript := canonicalTranscript(b)
	sig := idPriv.Sign(transcript)

	payload, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("capsule: marshal body: %w", err)
	}

	env := envelope{
		Payload: primitives.B64Encode(payload),
		ID:      primitives.B64Encode(idPub),
		Sig:     primitives.B64Encode(sig),
	}

	padded, err := pad(env)
	if err != nil {
		return "", fmt.Errorf("capsule: pad: %w", err)
	}
	metrics.CapsulePaddedSize.Observe(float64(len(padded)))
	return base64.StdEncoding.EncodeToString(padded), nil
}

// Parse decodes and verifies a capsule, returning the Invitation it
// describes or an error naming the first rejection reason encountered. A
// maxBytes of zero falls back to DefaultMaxBytes; a ttl of zero falls back
// to DefaultTTL for the exp-iat bound check.
func Parse(capsuleBytes string, maxBytes int, ttl time.Duration) (*Invitation, error) {
	if maxBytes == 0 {
		maxBytes = DefaultMaxBytes
	}
	if ttl == 0 {
		ttl = DefaultTTL
	}
	outer, err := base64.StdEncoding.DecodeString(capsuleBytes)
	if err != nil {
		return nil, fmt.Errorf("capsule: base64 decode: %w", err)
	}
	if len(outer) > maxBytes {
		return nil, fmt.Errorf("capsule: decoded size %d exceeds max %d", len(outer), maxBytes)
	}

	var env envelope
	if err := json.Unmarshal(outer, &env); err != nil {
		return nil, fmt.Errorf("capsule: malformed envelope: %w", err)
	}
	if env.Payload == "" {
		return nil, fmt.Errorf("capsule: payload missing")
	}

	payloadBytes, err := primitives.B64Decode(env.Payload)
	if err != nil {
		return nil, fmt.Errorf("capsule: payload base64 decode: %w", err)
	}
	var b body
	if err := json.Unmarshal(payloadBytes, &b); err != nil {
		return nil, fmt.Errorf("capsule: malformed payload: %w", err)
	}

	now := time.Now().Unix()
	if b.Exp == 0 {
		return nil, fmt.Errorf("capsule: exp missing")
	}
	if now > b.Exp {
		return nil, fmt.Errorf("capsule: expired")
	}
	if b.Iat != 0 {
		if b.Iat > now {
			return nil, fmt.Errorf("capsule: iat in the future")
		}
		if b.Exp-b.Iat > 2*int64(ttl.Seconds()) {
			return nil, fmt.Errorf("capsule: exp-iat exceeds 2*TTL")
		}
	}

	idPub, err := primitives.B64Decode(env.ID)
	if err != nil {
		return nil, fmt.Errorf("capsule: id base64 decode: %w", err)
	}
	sig, err := primitives.B64Decode(env.Sig)
	if err != nil {
		return nil, fmt.Errorf("capsule: sig base64 decode: %w", err)
	}

	transcript := canonicalTranscript(b)
	if !primitives.Verify(idPub, transcript, sig) {
		return nil, fmt.Errorf("capsule: signature verification failed")
	}

	xPub, err := primitives.B64Decode(b.X)
	if err != nil {
		return nil, fmt.Errorf("capsule: x base64 decode: %w", err)
	}
	pqPub, err := primitives.B64Decode(b.K)
	if err != nil {
		return nil, fmt.Errorf("capsule: k base64 decode: %w", err)
	}

	return &Invitation{
		Room:    b.Room,
		CID:     b.CID,
		XPub:    xPub,
		PQPub:   pqPub,
		IDPub:   idPub,
		Version: b.V,
		Alg:     b.Alg,
	}, nil
}

func marshalBody(b body) ([]byte, error) {
	return json.Marshal(b)
}

func marshalEnvelope(env envelope) ([]byte, error) {
	return json.Marshal(env)
}

// canonicalTranscript builds the exact pipe-separated byte sequence both
// sides sign and verify over. Field order is fixed; iat is omitted entirely
// when absent, while v and alg keep their (possibly empty) segments so
// legacy capsules still verify.
func canonicalTranscript(b body) []byte {
	s := fmt.Sprintf("v=%s|alg=%s|room=%s|cid=%s|x=%s|k=%s", b.V, b.Alg, b.Room, b.CID, b.X, b.K)
	if b.Iat != 0 {
		s += fmt.Sprintf("|iat=%d", b.Iat)
	}
	s += fmt.Sprintf("|exp=%d", b.Exp)
	return []byte(s)
}

// pad appends random filler to env.Pad so the final base64-encoded capsule
// lands uniformly in [minPaddedBytes, maxPaddedBytes) bytes, then returns
// the marshaled envelope. If the unpadded envelope already exceeds the
// target range it is returned as-is: padding never truncates a capsule.
func pad(env envelope) ([]byte, error) {
	base, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	// base64 expands 4 chars per 3 bytes; approximate the raw-byte budget
	// needed to land the encoded form in range, then grow pad until it fits.
	target, err := randomTarget()
	if err != nil {
		return nil, err
	}
	for base64.StdEncoding.EncodedLen(len(base)) < target {
		grow := (target-base64.StdEncoding.EncodedLen(len(base)))*3/4 + 1
		extra, err := primitives.RandomBytes(grow)
		if err != nil {
			return nil, err
		}
		env.Pad += primitives.B64Encode(extra)
		base, err = json.Marshal(env)
		if err != nil {
			return nil, err
		}
	}
	return base, nil
}

func randomTarget() (int, error) {
	span := maxPaddedBytes - minPaddedBytes
	r, err := primitives.RandomBytes(2)
	if err != nil {
		return 0, err
	}
	n := int(r[0])<<8 | int(r[1])
	return minPaddedBytes + n%span, nil
}
