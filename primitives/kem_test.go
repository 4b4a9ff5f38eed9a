package primitives

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKEM(t *testing.T) {
	t.Run("EncapDecapAgree", func(t *testing.T) {
		kp, err := GenerateKEM()
		require.NoError(t, err)
		pub, err := kp.PublicBytes()
		require.NoError(t, err)

		ct, sharedInit, err := Encapsulate(pub)
		require.NoError(t, err)
		require.NotEmpty(t, ct)

		sharedResp, err := kp.Decapsulate(ct)
		require.NoError(t, err)
		assert.Equal(t, sharedInit, sharedResp)
	})

	t.Run("RejectsMalformedPeerKey", func(t *testing.T) {
		_, _, err := Encapsulate([]byte("not-a-valid-mlkem-pub"))
		assert.Error(t, err)
	})
}
