package columns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/model"
	"github.com/logpass/node/internal/serializer"
)

func TestEncodeDecodeUsersStateRoundTrip(t *testing.T) {
	st := UsersState{Version: 1, BlockId: 3, Count: 5, Tokens: 1000}

	s := serializer.New()
	st.Serialize(s)
	decoded, err := decodeUsersState(serializer.NewReader(s.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, st, decoded)
}

func TestGetUserPrefersStagedThenPreloadedThenConfirmed(t *testing.T) {
	c := NewUsersColumn(nil)
	var id crypto.UserId
	id[0] = 1

	confirmed := &model.User{Id: id, Tokens: 1}
	preloaded := &model.User{Id: id, Tokens: 2}
	staged := &model.User{Id: id, Tokens: 3}

	c.confirmed[id] = confirmed
	assert.Equal(t, confirmed, c.GetUser(id, false))

	c.preloaded[id] = preloaded
	assert.Equal(t, preloaded, c.GetUser(id, false))

	c.staged[id] = staged
	assert.Equal(t, staged, c.GetUser(id, false))

	assert.Equal(t, confirmed, c.GetUser(id, true))
}

func TestPreloadOnlyRegistersUnresolvedIds(t *testing.T) {
	c := NewUsersColumn(nil)
	var id crypto.UserId
	id[0] = 1

	c.Preload(id)
	_, ok := c.preloaded[id]
	assert.True(t, ok)
	assert.Nil(t, c.preloaded[id])
}

func TestGetUsersCountCountsOnlyNewStagedUsers(t *testing.T) {
	c := NewUsersColumn(nil)
	var existing, fresh crypto.UserId
	existing[0], fresh[0] = 1, 2

	c.confirmed[existing] = &model.User{Id: existing}
	c.staged[existing] = &model.User{Id: existing}
	c.staged[fresh] = &model.User{Id: fresh}

	assert.Equal(t, uint64(1), c.GetUsersCount(false))
}

func TestGetTokensAddsNewAndAdjustsUpdatedStagedUsers(t *testing.T) {
	c := NewUsersColumn(nil)
	var existing, fresh crypto.UserId
	existing[0], fresh[0] = 1, 2

	// the confirmed total already counts existing's 100 tokens
	c.SetState(UsersState{Version: 1, Tokens: 100})
	c.StatefulColumn.Commit()
	c.confirmed[existing] = &model.User{Id: existing, Tokens: 100}
	c.staged[existing] = &model.User{Id: existing, Tokens: 150}
	c.staged[fresh] = &model.User{Id: fresh, Tokens: 10}

	assert.Equal(t, uint64(160), c.GetTokens(false))
}

func TestCommitPromotesStagedUsersAndUpdatesCounters(t *testing.T) {
	c := NewUsersColumn(nil)
	var id crypto.UserId
	id[0] = 1
	c.staged[id] = &model.User{Id: id, Tokens: 50}

	c.Commit()

	assert.Equal(t, uint64(1), c.GetUsersCount(true))
	assert.Equal(t, uint64(50), c.GetTokens(true))
	assert.Empty(t, c.staged)
}
