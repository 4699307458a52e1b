package columns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logpass/node/internal/config"
	"github.com/logpass/node/internal/crypto"
)

func newTestTransactionHashesColumn(t *testing.T) *TransactionHashesColumn {
	t.Helper()
	return NewTransactionHashesColumn(nil, config.Default())
}

func TestSeenReportsTrueForStagedHash(t *testing.T) {
	c := newTestTransactionHashesColumn(t)
	h := crypto.SumHash([]byte("tx"))
	c.Record(h, 10)

	seen, err := c.Seen(h, 10, 10)
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestSeenReportsFalseOutsideReplayWindow(t *testing.T) {
	c := newTestTransactionHashesColumn(t)
	h := crypto.SumHash([]byte("tx"))

	seen, err := c.Seen(h, 1, 1+c.cfg.MaxBlockIdDifference+1)
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestHashKeyOrdersByBlockIdThenHash(t *testing.T) {
	h := crypto.SumHash([]byte("tx"))
	k1 := hashKey(1, h)
	k2 := hashKey(2, h)
	assert.Less(t, string(k1), string(k2))
}

func TestRecordTracksActiveBlocks(t *testing.T) {
	c := newTestTransactionHashesColumn(t)
	h := crypto.SumHash([]byte("tx"))
	c.Record(h, 5)

	assert.True(t, c.activeBlocks.Contains(5))
}
