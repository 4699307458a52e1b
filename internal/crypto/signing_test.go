package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerifyRoundTrip(t *testing.T) {
	pk, err := GeneratePrivateKey()
	require.NoError(t, err)

	payload := []byte("transfer 10 tokens")
	sig := pk.Sign(payload)

	assert.True(t, Verify(pk.PublicKey(), payload, sig))
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	pk, err := GeneratePrivateKey()
	require.NoError(t, err)

	sig := pk.Sign([]byte("transfer 10 tokens"))
	assert.False(t, Verify(pk.PublicKey(), []byte("transfer 99 tokens"), sig))
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	a, err := GeneratePrivateKey()
	require.NoError(t, err)
	b, err := GeneratePrivateKey()
	require.NoError(t, err)

	sig := a.Sign([]byte("payload"))
	assert.False(t, Verify(b.PublicKey(), []byte("payload"), sig))
}

func TestVerifyRejectsInvalidPublicKey(t *testing.T) {
	pk, err := GeneratePrivateKey()
	require.NoError(t, err)
	sig := pk.Sign([]byte("payload"))

	assert.False(t, Verify(PublicKey{}, []byte("payload"), sig))
}

func TestDifferentKeysProduceDifferentSignatures(t *testing.T) {
	a, err := GeneratePrivateKey()
	require.NoError(t, err)
	b, err := GeneratePrivateKey()
	require.NoError(t, err)

	assert.NotEqual(t, a.Sign([]byte("x")), b.Sign([]byte("x")))
}
