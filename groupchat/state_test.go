package groupchat

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nulltrace/core/primitives"
)

func freshGroupKey(t *testing.T) []byte {
	t.Helper()
	k, err := primitives.RandomBytes(primitives.KeySize)
	require.NoError(t, err)
	return k
}

func TestEncryptWithoutGroupKeyReturnsNoFrame(t *testing.T) {
	s := NewState("host")
	_, ok, err := s.Encrypt("hello")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	sender := NewState("alice")
	receiver := NewState("bob")

	key := freshGroupKey(t)
	sender.InstallGroupKey(key, 1)
	receiver.InstallGroupKey(key, 1)

	f, ok, err := sender.Encrypt("hi bob")
	require.NoError(t, err)
	require.True(t, ok)

	pt, ok := receiver.Decrypt(f)
	require.True(t, ok)
	assert.Equal(t, "hi bob", pt)
}

func TestNonceIsDeterministic(t *testing.T) {
	n1, err := nonceFor("alice", 3, 1)
	require.NoError(t, err)
	n2, err := nonceFor("alice", 3, 1)
	require.NoError(t, err)
	assert.Equal(t, n1, n2)
	assert.Len(t, n1, primitives.NonceSize)

	n3, err := nonceFor("alice", 4, 1)
	require.NoError(t, err)
	assert.NotEqual(t, n1, n3)
}

func TestReplayIsDropped(t *testing.T) {
	sender := NewState("alice")
	receiver := NewState("bob")
	key := freshGroupKey(t)
	sender.InstallGroupKey(key, 1)
	receiver.InstallGroupKey(key, 1)

	f, _, err := sender.Encrypt("first")
	require.NoError(t, err)
	_, ok := receiver.Decrypt(f)
	require.True(t, ok)

	// Replaying the same frame must be dropped.
	_, ok = receiver.Decrypt(f)
	assert.False(t, ok)
}

func TestOutOfOrderOldSeqIsDropped(t *testing.T) {
	sender := NewState("alice")
	receiver := NewState("bob")
	key := freshGroupKey(t)
	sender.InstallGroupKey(key, 1)
	receiver.InstallGroupKey(key, 1)

	f1, _, err := sender.Encrypt("one")
	require.NoError(t, err)
	f2, _, err := sender.Encrypt("two")
	require.NoError(t, err)

	_, ok := receiver.Decrypt(f2)
	require.True(t, ok)
	_, ok = receiver.Decrypt(f1)
	assert.False(t, ok)
}

func TestWrongEpochIsDropped(t *testing.T) {
	sender := NewState("alice")
	receiver := NewState("bob")
	key := freshGroupKey(t)
	sender.InstallGroupKey(key, 1)
	receiver.InstallGroupKey(key, 2)

	f, _, err := sender.Encrypt("hi")
	require.NoError(t, err)
	_, ok := receiver.Decrypt(f)
	assert.False(t, ok)
}

func TestTamperedAADBreaksDecryption(t *testing.T) {
	sender := NewState("alice")
	receiver := NewState("bob")
	key := freshGroupKey(t)
	sender.InstallGroupKey(key, 1)
	receiver.InstallGroupKey(key, 1)

	f, _, err := sender.Encrypt("hi")
	require.NoError(t, err)

	f.S = f.S + 100 // flips the s field bound into the AAD
	_, ok := receiver.Decrypt(f)
	assert.False(t, ok)
}

func TestDecryptBuffersUntilGroupKey(t *testing.T) {
	sender := NewState("alice")
	key := freshGroupKey(t)
	sender.InstallGroupKey(key, 1)
	f, _, err := sender.Encrypt("buffered")
	require.NoError(t, err)

	receiver := NewState("bob")
	_, ok := receiver.Decrypt(f)
	assert.False(t, ok)
	assert.Len(t, receiver.pending, 1)

	recovered := receiver.InstallGroupKey(key, 1)
	require.Len(t, recovered, 1)
	assert.Equal(t, "buffered", recovered[0])
}

func TestEncryptAtSendSeqExhaustionReturnsError(t *testing.T) {
	sender := NewState("alice")
	key := freshGroupKey(t)
	sender.InstallGroupKey(key, 1)
	sender.sendSeq = math.MaxUint64

	f, ok, err := sender.Encrypt("one too many")
	assert.True(t, errors.Is(err, ErrSendSeqExhausted))
	assert.False(t, ok)
	assert.Equal(t, Frame{}, f)

	// The guard must not advance sendSeq past exhaustion.
	assert.Equal(t, uint64(math.MaxUint64), sender.sendSeq)
}

func TestFlushDiscardsStaleAndKeepsFutureEpoch(t *testing.T) {
	receiver := NewState("bob")
	receiver.pending = []Frame{
		{T: "m", CID: "alice", S: 0, E: 0, N: "x", C: "y"}, // stale, discarded
		{T: "m", CID: "alice", S: 0, E: 5, N: "x", C: "y"}, // future, kept
	}

	key := freshGroupKey(t)
	receiver.InstallGroupKey(key, 1)

	require.Len(t, receiver.pending, 1)
	assert.Equal(t, 5, receiver.pending[0].E)
}
