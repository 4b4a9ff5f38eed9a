package primitives

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomBytes(t *testing.T) {
	b, err := RandomBytes(32)
	require.NoError(t, err)
	assert.Len(t, b, 32)

	c, err := RandomBytes(32)
	require.NoError(t, err)
	assert.NotEqual(t, b, c)
}

func TestB64RoundTrip(t *testing.T) {
	b, err := RandomBytes(24)
	require.NoError(t, err)

	s := B64Encode(b)
	decoded, err := B64Decode(s)
	require.NoError(t, err)
	assert.Equal(t, b, decoded)
}
