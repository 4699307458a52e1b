package columns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/model"
)

func TestEncodeDecodePrefixRoundTrip(t *testing.T) {
	var owner, allowed crypto.UserId
	owner[0], allowed[0] = 1, 2

	p := model.NewPrefix("my-prefix", owner, 5)
	p.Settings.AllowedUsers[allowed] = struct{}{}
	p.Entries = 3
	p.LastEntryBlock = 9

	raw := encodePrefix(p)
	decoded, err := decodePrefix(raw)
	require.NoError(t, err)

	assert.Equal(t, p.Id, decoded.Id)
	assert.Equal(t, p.Owner, decoded.Owner)
	assert.Equal(t, p.Entries, decoded.Entries)
	assert.Equal(t, p.LastEntryBlock, decoded.LastEntryBlock)
	assert.Equal(t, p.Settings.AllowedUsers, decoded.Settings.AllowedUsers)
}

func TestDecodePrefixRejectsUnsupportedVersion(t *testing.T) {
	_, err := decodePrefix([]byte{9})
	assert.Error(t, err)
}

func TestGetPrefixPrefersStagedOverConfirmed(t *testing.T) {
	c := NewStoragePrefixesColumn(nil)

	var owner crypto.UserId
	owner[0] = 1
	confirmed := model.NewPrefix("p", owner, 1)
	staged := model.NewPrefix("p", owner, 2)
	staged.Entries = 5

	c.confirmed["p"] = confirmed
	c.staged["p"] = staged

	assert.Equal(t, staged, c.GetPrefix("p", false))
	assert.Equal(t, confirmed, c.GetPrefix("p", true))
}
