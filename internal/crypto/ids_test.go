package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashStringRoundTrip(t *testing.T) {
	h := SumHash([]byte("payload"))
	decoded, err := HashFromString(h.String())
	require.NoError(t, err)
	assert.Equal(t, h, decoded)
}

func TestHashFromStringRejectsWrongLength(t *testing.T) {
	_, err := HashFromString("too-short")
	assert.Error(t, err)
}

func TestPublicKeyStringRoundTrip(t *testing.T) {
	pk, err := GeneratePrivateKey()
	require.NoError(t, err)
	pub := pk.PublicKey()

	decoded, err := PublicKeyFromString(pub.String())
	require.NoError(t, err)
	assert.Equal(t, pub, decoded)
	assert.True(t, decoded.IsValid())
}

func TestUserIdFromPublicKeyIsDeterministic(t *testing.T) {
	pk, err := GeneratePrivateKey()
	require.NoError(t, err)
	pub := pk.PublicKey()

	a := UserIdFromPublicKey(pub)
	b := UserIdFromPublicKey(pub)
	assert.Equal(t, a, b)
	assert.True(t, a.IsValid())

	decoded, err := UserIdFromString(a.String())
	require.NoError(t, err)
	assert.Equal(t, a, decoded)
}

func TestMinerIdRoundTripsThroughPublicKey(t *testing.T) {
	pk, err := GeneratePrivateKey()
	require.NoError(t, err)
	pub := pk.PublicKey()

	minerId := MinerIdFromPublicKey(pub)
	assert.Equal(t, pub, minerId.ToPublicKey())

	decoded, err := MinerIdFromString(minerId.String())
	require.NoError(t, err)
	assert.Equal(t, minerId, decoded)
}

func TestTransactionIdEncodesFieldsInOrder(t *testing.T) {
	hash := SumHash([]byte("tx body"))
	id := NewTransactionId(123456, 7, 512, hash)

	assert.Equal(t, uint32(123456), id.BlockId())
	assert.Equal(t, uint8(7), id.Type())
	assert.Equal(t, uint16(512), id.Size())
	assert.Equal(t, hash, id.Hash())
	assert.True(t, id.IsValid())
}

func TestZeroValueIdsAreInvalid(t *testing.T) {
	assert.False(t, Hash{}.IsValid())
	assert.False(t, PublicKey{}.IsValid())
	assert.False(t, UserId{}.IsValid())
	assert.False(t, MinerId{}.IsValid())
	assert.False(t, Signature{}.IsValid())
	assert.False(t, TransactionId{}.IsValid())
}

func TestLessOrdersLexicographically(t *testing.T) {
	var a, b Hash
	a[0], b[0] = 1, 2
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
}
