package columns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/serializer"
)

func TestEncodeDecodeTransactionsStateRoundTrip(t *testing.T) {
	st := TransactionsState{Version: 1, BlockId: 7, Count: 42}

	s := serializer.New()
	st.Serialize(s)
	decoded, err := decodeTransactionsState(serializer.NewReader(s.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, st, decoded)
}

func TestAddTransactionStagesUnderId(t *testing.T) {
	c := NewTransactionsColumn(nil)
	var id crypto.TransactionId
	id[0] = 9

	c.AddTransaction(id, []byte("encoded"))

	raw, ok := c.staged[id]
	assert.True(t, ok)
	assert.Equal(t, []byte("encoded"), raw)
}

func TestGetTransactionsCountAddsStagedToConfirmed(t *testing.T) {
	c := NewTransactionsColumn(nil)
	var id crypto.TransactionId
	id[0] = 1
	c.AddTransaction(id, []byte("x"))

	assert.Equal(t, uint64(0), c.GetTransactionsCount(true))
	assert.Equal(t, uint64(1), c.GetTransactionsCount(false))
}
