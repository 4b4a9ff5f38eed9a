package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nulltrace/core/capsule"
	"github.com/nulltrace/core/member"
	"github.com/nulltrace/core/mls"
)

// TestSeedPeerFromInvitationEnablesJoinWithoutHello exercises the
// capsule-driven join path: the guest never sees a hello/announce frame for
// the host, only the invitation's own public material.
func TestSeedPeerFromInvitationEnablesJoinWithoutHello(t *testing.T) {
	hostMat, err := member.New()
	require.NoError(t, err)
	guestMat, err := member.New()
	require.NoError(t, err)

	hostPQPub, err := hostMat.PQPub()
	require.NoError(t, err)
	raw, err := capsule.Create("r1", hostMat.XPub(), hostPQPub, hostMat.CID, hostMat.IDKeyPair(), hostMat.IDPub(), capsule.DefaultTTL)
	require.NoError(t, err)

	inv, err := capsule.Parse(raw, capsule.DefaultMaxBytes, capsule.DefaultTTL)
	require.NoError(t, err)
	assert.Equal(t, hostMat.CID, inv.CID)

	hostHandler := &recordingHandler{}
	guestHandler := &recordingHandler{}
	hostTransport := &pipe{}
	guestTransport := &pipe{}

	host := New(hostMat, "r1", true, hostTransport, hostHandler, nil, mls.Config{})
	guest := New(guestMat, inv.Room, false, guestTransport, guestHandler, nil, mls.Config{})
	hostTransport.peer = guest
	guestTransport.peer = host
	guest.HostCID = inv.CID
	guest.SeedPeer(inv.CID, inv.IDPub, inv.XPub, inv.PQPub)

	// Host never received a hello for the guest yet, so it must learn the
	// guest's material the normal way before approving.
	require.NoError(t, host.Dispatch(helloFrame(t, guest)))
	require.NoError(t, host.ApproveGuest(guest.Self.CID))
	settleDebounce()

	assert.Equal(t, 1, guestHandler.ready)

	ok, err := guest.Send("hi")
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, hostHandler.messages, 1)
	assert.Equal(t, "hi", hostHandler.messages[0])
}
