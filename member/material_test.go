package member

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMaterial(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	assert.NotEmpty(t, m.CID)
	assert.Len(t, m.IDPub(), 32)
	assert.Len(t, m.XPub(), 32)

	pqPub, err := m.PQPub()
	require.NoError(t, err)
	assert.NotEmpty(t, pqPub)
}

func TestMaterialCIDsAreUnique(t *testing.T) {
	a, err := New()
	require.NoError(t, err)
	b, err := New()
	require.NoError(t, err)
	assert.NotEqual(t, a.CID, b.CID)
}

func TestMaterialSharedXAgrees(t *testing.T) {
	a, err := New()
	require.NoError(t, err)
	b, err := New()
	require.NoError(t, err)

	s1, err := a.SharedX(b.XPub())
	require.NoError(t, err)
	s2, err := b.SharedX(a.XPub())
	require.NoError(t, err)
	assert.Equal(t, s1, s2)
}

func TestMaterialWipe(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	m.Wipe()
	assert.Nil(t, m.IDPub())
	assert.Nil(t, m.XPub())

	_, err = m.PQPub()
	assert.Error(t, err)
	_, err = m.Sign([]byte("data"))
	assert.Error(t, err)

	// Wiping twice must not panic.
	m.Wipe()
}
