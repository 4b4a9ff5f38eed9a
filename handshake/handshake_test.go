package handshake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nulltrace/core/member"
)

func TestWithIsRoleSymmetric(t *testing.T) {
	host, err := member.New()
	require.NoError(t, err)
	guest, err := member.New()
	require.NoError(t, err)

	hostPQ, err := host.PQPub()
	require.NoError(t, err)
	guestPQ, err := guest.PQPub()
	require.NoError(t, err)

	// Host's view of guest, and guest's view of host.
	guestAsSeenByHost := member.NewPeer(guest.CID, guest.IDPub(), guest.XPub(), guestPQ)
	hostAsSeenByGuest := member.NewPeer(host.CID, host.IDPub(), host.XPub(), hostPQ)

	room := "room-1"

	hostPairKey, err := With(guestAsSeenByHost, host, Init, room)
	require.NoError(t, err)
	require.NotEmpty(t, guestAsSeenByHost.CT)
	require.NotEmpty(t, guestAsSeenByHost.Sig)

	// The relay carries the ct and sig the host stashed over to the guest.
	hostAsSeenByGuest.CT = guestAsSeenByHost.CT
	hostAsSeenByGuest.Sig = guestAsSeenByHost.Sig

	guestPairKey, err := With(hostAsSeenByGuest, guest, Resp, room)
	require.NoError(t, err)

	assert.Equal(t, hostPairKey, guestPairKey)
	assert.True(t, hostAsSeenByGuest.SigOK)
	assert.Equal(t, guestAsSeenByHost.SAS, hostAsSeenByGuest.SAS)
}

func TestRespWithoutCiphertextFails(t *testing.T) {
	host, err := member.New()
	require.NoError(t, err)
	guest, err := member.New()
	require.NoError(t, err)

	hostPQ, err := host.PQPub()
	require.NoError(t, err)
	hostAsSeenByGuest := member.NewPeer(host.CID, host.IDPub(), host.XPub(), hostPQ)

	_, err = With(hostAsSeenByGuest, guest, Resp, "room-1")
	assert.Error(t, err)
}

func TestUnverifiedSignatureIsNonFatal(t *testing.T) {
	host, err := member.New()
	require.NoError(t, err)
	guest, err := member.New()
	require.NoError(t, err)

	hostPQ, err := host.PQPub()
	require.NoError(t, err)
	guestPQ, err := guest.PQPub()
	require.NoError(t, err)

	guestAsSeenByHost := member.NewPeer(guest.CID, guest.IDPub(), guest.XPub(), guestPQ)
	hostAsSeenByGuest := member.NewPeer(host.CID, host.IDPub(), host.XPub(), hostPQ)

	_, err = With(guestAsSeenByHost, host, Init, "room-1")
	require.NoError(t, err)

	hostAsSeenByGuest.CT = guestAsSeenByHost.CT
	hostAsSeenByGuest.Sig = []byte("not-a-real-signature")

	pairKey, err := With(hostAsSeenByGuest, guest, Resp, "room-1")
	require.NoError(t, err)
	assert.NotEmpty(t, pairKey)
	assert.False(t, hostAsSeenByGuest.SigOK)
}
