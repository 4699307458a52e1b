package columns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/model"
)

func TestEncodeDecodeHistoryEntryRoundTrip(t *testing.T) {
	var txId crypto.TransactionId
	txId[0] = 3
	entry := model.UserHistory{BlockId: 11, Type: model.UserHistoryType(2), TransactionId: txId}

	raw := encodeHistoryEntry(entry)
	decoded, err := decodeHistoryPage(raw)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, entry, decoded[0])
}

func TestDecodeHistoryPageHandlesMultipleEntries(t *testing.T) {
	var tx1, tx2 crypto.TransactionId
	tx1[0], tx2[0] = 1, 2
	e1 := model.UserHistory{BlockId: 1, Type: model.UserHistoryType(1), TransactionId: tx1}
	e2 := model.UserHistory{BlockId: 2, Type: model.UserHistoryType(2), TransactionId: tx2}

	raw := append(encodeHistoryEntry(e1), encodeHistoryEntry(e2)...)
	decoded, err := decodeHistoryPage(raw)
	require.NoError(t, err)
	assert.Equal(t, []model.UserHistory{e1, e2}, decoded)
}

func TestUserHistoryCountAndPageKeysAreDistinct(t *testing.T) {
	var user crypto.UserId
	user[0] = 1

	countKey := userHistoryCountKey(user)
	pageKey := userHistoryPageKey(user, 0)

	assert.NotEqual(t, countKey, pageKey)
}

func TestAppendUsesCachedCountWithoutTouchingEngine(t *testing.T) {
	c := NewUserHistoryColumn(nil)
	var user crypto.UserId
	user[0] = 5
	c.counts[user] = 3

	err := c.Append(user, model.UserHistory{BlockId: 1})
	require.NoError(t, err)

	assert.Equal(t, uint64(4), c.pending[user])
	require.Len(t, c.staged, 1)
	assert.Equal(t, user, c.staged[0].user)
}
