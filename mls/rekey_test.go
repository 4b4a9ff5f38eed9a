package mls

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nulltrace/core/primitives"
)

func pairKey(t *testing.T) []byte {
	t.Helper()
	k, err := primitives.RandomBytes(primitives.KeySize)
	require.NoError(t, err)
	return k
}

type fakeEvents struct {
	ready  int
	gk     []GKFrame
	gkReqN int
}

func (f *fakeEvents) OnReady()           { f.ready++ }
func (f *fakeEvents) OnEmitGK(g GKFrame) { f.gk = append(f.gk, g) }
func (f *fakeEvents) OnGKReq()           { f.gkReqN++ }

func TestRekeyProducesOneFramePerMember(t *testing.T) {
	ev := &fakeEvents{}
	host := New("host", true, ev, DefaultConfig())
	host.AddMember("guest-1", pairKey(t))
	host.AddMember("guest-2", pairKey(t))
	host.cancelRekeyTimer() // drive synchronously instead of waiting out the debounce

	frames, err := host.Rekey()
	require.NoError(t, err)
	assert.Len(t, frames, 2)
	assert.Equal(t, 1, host.Chat.Epoch())
	assert.True(t, host.Chat.HasGroupKey())
}

func TestNonInitiatorRekeyIsNoop(t *testing.T) {
	ev := &fakeEvents{}
	guest := New("guest", false, ev, DefaultConfig())
	frames, err := guest.Rekey()
	require.NoError(t, err)
	assert.Nil(t, frames)
}

func TestDebounceCoalescesBurst(t *testing.T) {
	ev := &fakeEvents{}
	host := New("host", true, ev, DefaultConfig())

	host.AddMember("g1", pairKey(t))
	host.AddMember("g2", pairKey(t))
	host.AddMember("g3", pairKey(t))

	time.Sleep(DefaultConfig().RekeyDebounce + 30*time.Millisecond)
	assert.Equal(t, 1, host.Chat.Epoch())
	assert.Equal(t, 1, ev.ready)
}

func TestRosterHashIsSortedAndStable(t *testing.T) {
	ev := &fakeEvents{}
	host := New("host", true, ev, DefaultConfig())
	host.AddMember("zeta", pairKey(t))
	host.AddMember("alpha", pairKey(t))
	host.cancelRekeyTimer()

	rh1, err := host.rosterHash()
	require.NoError(t, err)
	rh2, err := host.rosterHash()
	require.NoError(t, err)
	assert.Equal(t, rh1, rh2)

	sorted, err := primitives.KeyedHash(16, []byte(`["alpha","host","zeta"]`))
	require.NoError(t, err)
	assert.Equal(t, primitives.B64Encode(sorted), rh1)
}

func TestThrottledRekeyDropsWithinWindow(t *testing.T) {
	ev := &fakeEvents{}
	host := New("host", true, ev, DefaultConfig())
	host.AddMember("g1", pairKey(t))
	host.cancelRekeyTimer()

	frames1, err := host.ThrottledRekey()
	require.NoError(t, err)
	assert.NotNil(t, frames1)

	frames2, err := host.ThrottledRekey()
	require.NoError(t, err)
	assert.Nil(t, frames2)
}

func TestGKWrapAADOmitsRHWhenAbsent(t *testing.T) {
	a := gkAAD{T: "gk", CID: "host", S: 0, E: 1}
	b, err := json.Marshal(a)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "rh")
}
