// Package handshake derives a pairwise key between two members by combining
// a classical X25519 exchange with a post-quantum ML-KEM-512 encapsulation
// over a signed, role-symmetric transcript.
package handshake

import (
	"fmt"
	"time"

	"github.com/nulltrace/core/internal/metrics"
	"github.com/nulltrace/core/member"
	"github.com/nulltrace/core/primitives"
)

// Role is which side of the exchange the local member plays.
type Role int

const (
	// Init is the handshake initiator: encapsulates the KEM ciphertext and
	// signs the transcript.
	Init Role = iota
	// Resp is the handshake responder: decapsulates the ciphertext the
	// initiator stashed and verifies the transcript signature if present.
	Resp
)

const transcriptVersion = "NT-v1|handshake"

// With runs the handshake against peer from local's point of view as role,
// returning the derived pairwise key. Handshake artifacts (the KEM
// ciphertext, the transcript signature, whether it verified, and the short
// authentication string) are stashed on peer as a side effect.
func With(peer *member.Peer, local *member.Material, role Role, room string) ([]byte, error) {
	start := time.Now()
	defer func() { metrics.HandshakeDuration.Observe(time.Since(start).Seconds()) }()

	if role == Init {
		metrics.HandshakesInitiated.Inc()
	}

	sharedX, err := local.SharedX(peer.XPub)
	if err != nil {
		return nil, fmt.Errorf("handshake: ecdh: %w", err)
	}

	var sharedK []byte
	switch role {
	case Init:
		ct, ss, err := primitives.Encapsulate(peer.PQPub)
		if err != nil {
			return nil, fmt.Errorf("handshake: kem encapsulate: %w", err)
		}
		peer.CT = ct
		sharedK = ss
	case Resp:
		if len(peer.CT) == 0 {
			return nil, fmt.Errorf("handshake: responder missing peer ciphertext")
		}
		ss, err := local.Decapsulate(peer.CT)
		if err != nil {
			return nil, fmt.Errorf("handshake: kem decapsulate: %w", err)
		}
		sharedK = ss
	default:
		return nil, fmt.Errorf("handshake: unknown role %d", role)
	}

	initID, initX, initPQ, respID, respX, respPQ, err := orderByRole(peer, local, role)
	if err != nil {
		return nil, fmt.Errorf("handshake: local pq pub: %w", err)
	}
	transcript := canonicalTranscript(room, initID, respID, initX, respX, initPQ, respPQ)

	switch role {
	case Init:
		sig, err := local.Sign(transcript)
		if err != nil {
			return nil, fmt.Errorf("handshake: sign transcript: %w", err)
		}
		peer.Sig = sig
	case Resp:
		if len(peer.Sig) > 0 {
			peer.SigOK = primitives.Verify(peer.IDPub, transcript, peer.Sig)
			if !peer.SigOK {
				metrics.HandshakeSignatureMismatches.Inc()
			}
		}
	}

	sasBytes, err := primitives.KeyedHash(4, transcript)
	if err != nil {
		return nil, fmt.Errorf("handshake: sas: %w", err)
	}
	peer.SAS = primitives.B64Encode(sasBytes)

	pairKey, err := derivePairKey(room, sharedX, sharedK, transcript)
	if err != nil {
		return nil, fmt.Errorf("handshake: derive pair key: %w", err)
	}
	peer.PairKey = pairKey

	roleLabel := "resp"
	if role == Init {
		roleLabel = "init"
	}
	metrics.HandshakesCompleted.WithLabelValues(roleLabel).Inc()

	return pairKey, nil
}

// orderByRole maps local/peer public material onto the fixed init/resp
// transcript slots regardless of which side local plays.
func orderByRole(peer *member.Peer, local *member.Material, role Role) (initID, initX, initPQ, respID, respX, respPQ []byte, err error) {
	localPQ, err := local.PQPub()
	if err != nil {
		return nil, nil, nil, nil, nil, nil, err
	}
	switch role {
	case Init:
		return local.IDPub(), local.XPub(), localPQ, peer.IDPub, peer.XPub, peer.PQPub, nil
	default:
		return peer.IDPub, peer.XPub, peer.PQPub, local.IDPub(), local.XPub(), localPQ, nil
	}
}

// canonicalTranscript builds the exact byte sequence both sides sign and
// verify, always ordered init-then-resp regardless of local role.
func canonicalTranscript(room string, initID, respID, initX, respX, initPQ, respPQ []byte) []byte {
	s := fmt.Sprintf("%s|%s|init.id=%s|resp.id=%s|init.x=%s|resp.x=%s|init.pq=%s|resp.pq=%s",
		transcriptVersion, room,
		primitives.B64Encode(initID), primitives.B64Encode(respID),
		primitives.B64Encode(initX), primitives.B64Encode(respX),
		primitives.B64Encode(initPQ), primitives.B64Encode(respPQ))
	return []byte(s)
}

// derivePairKey runs the HKDF-style extract/expand over sharedX||sharedK,
// salted and bound to the transcript so both sides converge on the same key.
func derivePairKey(room string, sharedX, sharedK, transcript []byte) ([]byte, error) {
	salt, err := primitives.KeyedHash(32, append(append([]byte{}, sharedX...), sharedK...))
	if err != nil {
		return nil, fmt.Errorf("salt: %w", err)
	}
	prk, err := primitives.KeyedHash(32, transcript, salt)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	info := []byte(fmt.Sprintf("NullTrace v1 handshake|room=%s", room))
	info = append(info, 0x01)
	pairKey, err := primitives.KeyedHash(32, info, prk)
	if err != nil {
		return nil, fmt.Errorf("expand: %w", err)
	}
	return pairKey, nil
}
