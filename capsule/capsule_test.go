package capsule

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nulltrace/core/primitives"
)

func TestCreateAndParse(t *testing.T) {
	idKey, err := primitives.GenerateSignKeyPair()
	require.NoError(t, err)
	xKey, err := primitives.GenerateX25519()
	require.NoError(t, err)
	pqKey, err := primitives.GenerateKEM()
	require.NoError(t, err)
	pqPub, err := pqKey.PublicBytes()
	require.NoError(t, err)

	c, err := Create("room-1", xKey.PublicBytes(), pqPub, "host-cid", idKey, idKey.PublicBytes(), DefaultTTL)
	require.NoError(t, err)
	require.NotEmpty(t, c)

	inv, err := Parse(c, DefaultMaxBytes, DefaultTTL)
	require.NoError(t, err)
	assert.Equal(t, "room-1", inv.Room)
	assert.Equal(t, "host-cid", inv.CID)
	assert.Equal(t, xKey.PublicBytes(), inv.XPub)
	assert.Equal(t, pqPub, inv.PQPub)
	assert.Equal(t, Version, inv.Version)
	assert.Equal(t, Algorithm, inv.Alg)
}

func TestParsePaddedSizeInRange(t *testing.T) {
	idKey, err := primitives.GenerateSignKeyPair()
	require.NoError(t, err)
	xKey, err := primitives.GenerateX25519()
	require.NoError(t, err)
	pqKey, err := primitives.GenerateKEM()
	require.NoError(t, err)
	pqPub, err := pqKey.PublicBytes()
	require.NoError(t, err)

	c, err := Create("room-1", xKey.PublicBytes(), pqPub, "host-cid", idKey, idKey.PublicBytes(), DefaultTTL)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(c), minPaddedBytes)
	assert.Less(t, len(c), maxPaddedBytes+64) // base64 framing slack
}

func TestParseRejectsBadBase64(t *testing.T) {
	_, err := Parse("not-valid-base64!!!", DefaultMaxBytes, DefaultTTL)
	assert.Error(t, err)
}

func TestParseRejectsOversize(t *testing.T) {
	big := make([]byte, DefaultMaxBytes+100)
	_, err := Parse(base64.StdEncoding.EncodeToString(big), DefaultMaxBytes, DefaultTTL)
	assert.Error(t, err)
}

func TestParseRejectsTamperedSignature(t *testing.T) {
	idKey, err := primitives.GenerateSignKeyPair()
	require.NoError(t, err)
	xKey, err := primitives.GenerateX25519()
	require.NoError(t, err)
	pqKey, err := primitives.GenerateKEM()
	require.NoError(t, err)
	pqPub, err := pqKey.PublicBytes()
	require.NoError(t, err)

	c, err := Create("room-1", xKey.PublicBytes(), pqPub, "host-cid", idKey, idKey.PublicBytes(), DefaultTTL)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(c)
	require.NoError(t, err)
	// Flip a byte deep enough in the JSON to land inside the payload.
	raw[len(raw)/2] ^= 0xFF
	tampered := base64.StdEncoding.EncodeToString(raw)

	_, err = Parse(tampered, DefaultMaxBytes, DefaultTTL)
	assert.Error(t, err)
}

func TestParseRejectsExpired(t *testing.T) {
	idKey, err := primitives.GenerateSignKeyPair()
	require.NoError(t, err)

	b := body{
		V:    Version,
		Alg:  Algorithm,
		Room: "room-1",
		CID:  "cid-1",
		X:    primitives.B64Encode([]byte("x")),
		K:    primitives.B64Encode([]byte("k")),
		Iat:  1,
		Exp:  2,
	}
	transcript := canonicalTranscript(b)
	sig := idKey.Sign(transcript)

	payload, err := marshalBody(b)
	require.NoError(t, err)

	env := envelope{
		Payload: primitives.B64Encode(payload),
		ID:      primitives.B64Encode(idKey.PublicBytes()),
		Sig:     primitives.B64Encode(sig),
	}
	raw, err := marshalEnvelope(env)
	require.NoError(t, err)

	_, err = Parse(base64.StdEncoding.EncodeToString(raw), DefaultMaxBytes, DefaultTTL)
	assert.Error(t, err)
}
