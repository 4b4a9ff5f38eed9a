package relay

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nulltrace/core/router"
)

func wsURL(t *testing.T, srv *httptest.Server, cid string) string {
	t.Helper()
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "?cid=" + cid
}

type collector struct {
	mu     sync.Mutex
	frames []router.Frame
}

func (c *collector) onFrame(f router.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, f)
}

func (c *collector) all() []router.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]router.Frame, len(c.frames))
	copy(out, c.frames)
	return out
}

func TestBroadcastFrameReachesOtherMembersOnly(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	aCollector := &collector{}
	bCollector := &collector{}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a := NewConn(wsURL(t, srv, "alice"), aCollector.onFrame)
	require.NoError(t, a.Dial(ctx))
	defer a.Close()

	b := NewConn(wsURL(t, srv, "bob"), bCollector.onFrame)
	require.NoError(t, b.Dial(ctx))
	defer b.Close()

	time.Sleep(100 * time.Millisecond) // let both registrations land

	require.NoError(t, a.Send(router.Frame{T: "hello", CID: "alice"}))

	require.Eventually(t, func() bool {
		return len(bCollector.all()) == 1
	}, 2*time.Second, 20*time.Millisecond)

	assert.Empty(t, aCollector.all()) // sender never receives its own broadcast
	assert.Equal(t, "hello", bCollector.all()[0].T)
}

func TestAddressedFrameReachesOnlyRecipient(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	aCollector := &collector{}
	bCollector := &collector{}
	cCollector := &collector{}

	a := NewConn(wsURL(t, srv, "alice"), aCollector.onFrame)
	require.NoError(t, a.Dial(ctx))
	defer a.Close()
	b := NewConn(wsURL(t, srv, "bob"), bCollector.onFrame)
	require.NoError(t, b.Dial(ctx))
	defer b.Close()
	c := NewConn(wsURL(t, srv, "carol"), cCollector.onFrame)
	require.NoError(t, c.Dial(ctx))
	defer c.Close()

	time.Sleep(100 * time.Millisecond)

	require.NoError(t, a.Send(router.Frame{T: "ct", CID: "alice", To: "bob"}))

	require.Eventually(t, func() bool {
		return len(bCollector.all()) == 1
	}, 2*time.Second, 20*time.Millisecond)

	assert.Empty(t, cCollector.all())
}
