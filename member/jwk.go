package member

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nulltrace/core/primitives"
)

// JWK is a JSON Web Key trimmed to the one OKP curve this protocol persists:
// the Ed25519 identity (signing) key. X25519 and ML-KEM keys are ephemeral
// and have no JWK form here. It is ported from the teacher's crypto/formats.JWK, dropping the
// EC/secp256k1 and RSA branches — this protocol has no blockchain or RSA
// key type to round-trip.
type JWK struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	D   string `json:"d,omitempty"`
	Kid string `json:"kid,omitempty"`
	Use string `json:"use,omitempty"`
	Alg string `json:"alg,omitempty"`
}

// ExportIdentityJWK serializes m's long-term identity key pair, private
// half included, so a host can persist it across process restarts.
func ExportIdentityJWK(m *Material) ([]byte, error) {
	if m.wiped {
		return nil, fmt.Errorf("member: material wiped")
	}
	jwk := JWK{
		Kty: "OKP",
		Crv: "Ed25519",
		X:   base64.RawURLEncoding.EncodeToString(m.idKey.PublicBytes()),
		D:   base64.RawURLEncoding.EncodeToString(m.idKey.PrivateSeed()),
		Kid: m.CID,
		Use: "sig",
		Alg: "EdDSA",
	}
	return json.Marshal(jwk)
}

// ExportIdentityPublicJWK serializes only the public half of m's identity
// key, safe to hand to a peer or write to a log.
func ExportIdentityPublicJWK(m *Material) ([]byte, error) {
	if m.wiped {
		return nil, fmt.Errorf("member: material wiped")
	}
	jwk := JWK{
		Kty: "OKP",
		Crv: "Ed25519",
		X:   base64.RawURLEncoding.EncodeToString(m.idKey.PublicBytes()),
		Kid: m.CID,
		Use: "sig",
		Alg: "EdDSA",
	}
	return json.Marshal(jwk)
}

// ParseIdentityJWK reconstructs an identity key pair from the bytes
// ExportIdentityJWK produced.
func ParseIdentityJWK(data []byte) (*primitives.SignKeyPair, error) {
	var jwk JWK
	if err := json.Unmarshal(data, &jwk); err != nil {
		return nil, fmt.Errorf("member: unmarshal identity jwk: %w", err)
	}
	if jwk.Kty != "OKP" || jwk.Crv != "Ed25519" {
		return nil, fmt.Errorf("member: unsupported identity jwk kty/crv: %s/%s", jwk.Kty, jwk.Crv)
	}
	if jwk.D == "" {
		return nil, errors.New("member: identity jwk has no private component")
	}
	seed, err := base64.RawURLEncoding.DecodeString(jwk.D)
	if err != nil {
		return nil, fmt.Errorf("member: decode identity jwk seed: %w", err)
	}
	return primitives.SignKeyPairFromSeed(seed)
}

// NewWithIdentity creates fresh ephemeral ECDH/KEM key material for a new
// session, reusing a previously-persisted long-term identity key pair
// instead of generating a new one. The CID is still freshly minted: a
// participant's transport identity is per-session even when its signing
// identity survives across restarts.
func NewWithIdentity(idKey *primitives.SignKeyPair) (*Material, error) {
	xKey, err := primitives.GenerateX25519()
	if err != nil {
		return nil, fmt.Errorf("member: generate x25519 key: %w", err)
	}
	pqKey, err := primitives.GenerateKEM()
	if err != nil {
		return nil, fmt.Errorf("member: generate kem key: %w", err)
	}
	return &Material{
		CID:   NewCID(),
		idKey: idKey,
		xKey:  xKey,
		pqKey: pqKey,
	}, nil
}
