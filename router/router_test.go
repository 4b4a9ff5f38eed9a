package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nulltrace/core/member"
	"github.com/nulltrace/core/mls"
)

// settleDebounce waits past the rekey debounce window so a timer-driven
// rekey triggered earlier in the test has had a chance to fire.
func settleDebounce() {
	time.Sleep(mls.DefaultConfig().RekeyDebounce + 40*time.Millisecond)
}

// pipe wires one router's outgoing frames directly into another's Dispatch,
// standing in for the relay in these unit tests.
type pipe struct {
	peer *Router
}

func (p *pipe) Send(f Frame) error {
	return p.peer.Dispatch(f)
}

type recordingHandler struct {
	messages  []string
	ready     int
	announced []string
	pending   []string
	sigMiss   []string
	left      []string
}

func (h *recordingHandler) OnMessage(cid, plaintext string) { h.messages = append(h.messages, plaintext) }
func (h *recordingHandler) OnPeerAnnounced(cid string)       { h.announced = append(h.announced, cid) }
func (h *recordingHandler) OnPendingApproval(cid string)     { h.pending = append(h.pending, cid) }
func (h *recordingHandler) OnSignatureMismatch(cid string)   { h.sigMiss = append(h.sigMiss, cid) }
func (h *recordingHandler) OnReady()                         { h.ready++ }
func (h *recordingHandler) OnLeave(cid string)               { h.left = append(h.left, cid) }

func buildPair(t *testing.T) (*Router, *recordingHandler, *Router, *recordingHandler) {
	t.Helper()
	hostMat, err := member.New()
	require.NoError(t, err)
	guestMat, err := member.New()
	require.NoError(t, err)
	hostPQPub, err := hostMat.PQPub()
	require.NoError(t, err)

	hostHandler := &recordingHandler{}
	guestHandler := &recordingHandler{}

	hostTransport := &pipe{}
	guestTransport := &pipe{}

	host := New(hostMat, "r1", true, hostTransport, hostHandler, nil, mls.Config{})
	guest := New(guestMat, "r1", false, guestTransport, guestHandler, nil, mls.Config{})

	hostTransport.peer = guest
	guestTransport.peer = host

	// The guest knows the host from its invitation, as in the capsule join path.
	guest.HostCID = hostMat.CID
	guest.SeedPeer(hostMat.CID, hostMat.IDPub(), hostMat.XPub(), hostPQPub)

	return host, hostHandler, guest, guestHandler
}

func helloFrame(t *testing.T, r *Router) Frame {
	t.Helper()
	f, err := r.HelloFrame()
	require.NoError(t, err)
	return f
}

func TestTwoPartyJoinAndMessage(t *testing.T) {
	host, hostHandler, guest, guestHandler := buildPair(t)

	// Guest announces itself to the host.
	require.NoError(t, host.Dispatch(helloFrame(t, guest)))
	assert.Contains(t, hostHandler.pending, guest.Self.CID)

	// Host approves: runs the handshake and ships ct to the guest, which
	// (via the pipe) immediately dispatches into the guest's router. This
	// also arms the host's rekey debounce timer.
	require.NoError(t, host.ApproveGuest(guest.Self.CID))

	// Debounce fires, host mints e=1 and ships gk to the guest.
	settleDebounce()
	assert.Equal(t, 1, guestHandler.ready)

	// Guest sends a message; host should decrypt it.
	ok, err := guest.Send("hi")
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, hostHandler.messages, 1)
	assert.Equal(t, "hi", hostHandler.messages[0])
}

func TestLateGKIsBufferedThenAppliedOnCT(t *testing.T) {
	host, _, guest, guestHandler := buildPair(t)

	// Replace the host's transport with one that records frames instead of
	// delivering them, so the test controls delivery order by hand.
	capture := &captureTransport{}
	host.transport = capture

	require.NoError(t, host.Dispatch(helloFrame(t, guest)))
	require.NoError(t, host.ApproveGuest(guest.Self.CID))
	settleDebounce()

	var ctFrame, gkFrame Frame
	for _, f := range capture.sent {
		switch f.T {
		case tCT:
			ctFrame = f
		case tGK:
			gkFrame = f
		}
	}
	require.Equal(t, tCT, ctFrame.T)
	require.Equal(t, tGK, gkFrame.T)

	// Guest sees gk first: no pair key yet, so it buffers rather than
	// applying or erroring.
	require.NoError(t, guest.Dispatch(gkFrame))
	assert.Equal(t, 0, guestHandler.ready)

	// Then ct arrives: handshake runs, buffered gk applies immediately, and
	// no gk_req retry should have been needed.
	require.NoError(t, guest.Dispatch(ctFrame))
	assert.Equal(t, 1, guestHandler.ready)
}

type captureTransport struct {
	sent []Frame
}

func (c *captureTransport) Send(f Frame) error {
	c.sent = append(c.sent, f)
	return nil
}

func TestReplayedMessageIsDropped(t *testing.T) {
	host, hostHandler, guest, _ := buildPair(t)

	require.NoError(t, host.Dispatch(helloFrame(t, guest)))
	require.NoError(t, host.ApproveGuest(guest.Self.CID))
	settleDebounce()

	gf, ok, err := guest.Group.Chat.Encrypt("hi")
	require.NoError(t, err)
	require.True(t, ok)
	f := Frame{T: tM, CID: gf.CID, S: gf.S, E: gf.E, N: gf.N, C: gf.C}

	require.NoError(t, host.Dispatch(f))
	require.Len(t, hostHandler.messages, 1)

	// Replaying the exact same frame must not produce a second message.
	require.NoError(t, host.Dispatch(f))
	assert.Len(t, hostHandler.messages, 1)
}

func TestLeaveRemovesPeer(t *testing.T) {
	host, hostHandler, guest, _ := buildPair(t)
	require.NoError(t, host.Dispatch(helloFrame(t, guest)))
	require.NoError(t, host.ApproveGuest(guest.Self.CID))
	settleDebounce()

	require.NoError(t, host.Dispatch(Frame{T: tLeave, CID: guest.Self.CID}))
	assert.False(t, host.Group.HasMember(guest.Self.CID))
	assert.Contains(t, hostHandler.left, guest.Self.CID)
}
