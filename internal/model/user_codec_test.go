package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logpass/node/internal/config"
	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/serializer"
)

func newSerializerForSettings(t *testing.T, settings UserSettings) *serializer.Serializer {
	t.Helper()
	s := serializer.New()
	SerializeUserSettings(s, settings)
	return serializer.NewReader(s.Bytes())
}

func TestEncodeDecodeUserRoundTrip(t *testing.T) {
	key := newKey(t)
	sup := newKey(t)
	supId := crypto.UserIdFromPublicKey(sup)

	u := NewUser(crypto.UserIdFromPublicKey(key), crypto.UserIdFromPublicKey(key), UserSettings{
		Version: 1,
		Keys:    map[crypto.PublicKey]UserKeySettings{key: {Power: 1, Scopes: AllScopes}},
		Supervisors: map[crypto.UserId]UserKeySettings{
			supId: {Power: 1, Scopes: AllScopes},
		},
	}, 1)
	u.Tokens = 500
	u.FreeTransactions = 3
	u.LockedKeys[key] = struct{}{}
	u.LockedSupervisors[supId] = struct{}{}
	u.Operations = 7
	u.Sponsors = 2
	u.PendingUpdate = &PendingUpdate{
		BlockId:    42,
		PowerLevel: config.PowerLevelMedium,
		Settings: UserSettings{
			Version: 1,
			Keys:    map[crypto.PublicKey]UserKeySettings{key: {Power: 1, Scopes: AllScopes}},
		},
	}

	raw := EncodeUser(u)
	decoded, err := DecodeUser(raw)
	require.NoError(t, err)

	assert.Equal(t, u.Id, decoded.Id)
	assert.Equal(t, u.Tokens, decoded.Tokens)
	assert.Equal(t, u.FreeTransactions, decoded.FreeTransactions)
	assert.Contains(t, decoded.LockedKeys, key)
	assert.Contains(t, decoded.LockedSupervisors, supId)
	assert.Equal(t, u.Operations, decoded.Operations)
	assert.Equal(t, u.Sponsors, decoded.Sponsors)
	require.NotNil(t, decoded.PendingUpdate)
	assert.Equal(t, uint32(42), decoded.PendingUpdate.BlockId)
	assert.Equal(t, uint8(config.PowerLevelMedium), decoded.PendingUpdate.PowerLevel)
	assert.Equal(t, u.Settings.Keys, decoded.Settings.Keys)
	assert.Equal(t, u.Settings.Supervisors, decoded.Settings.Supervisors)
}

func TestEncodeDecodeUserWithoutPendingUpdate(t *testing.T) {
	key := newKey(t)
	u := NewUser(crypto.UserIdFromPublicKey(key), crypto.UserIdFromPublicKey(key), UserSettings{
		Version: 1,
		Keys:    map[crypto.PublicKey]UserKeySettings{key: {Power: 1, Scopes: AllScopes}},
	}, 1)

	decoded, err := DecodeUser(EncodeUser(u))
	require.NoError(t, err)
	assert.Nil(t, decoded.PendingUpdate)
}

func TestDecodeUserRejectsUnsupportedVersion(t *testing.T) {
	raw := []byte{2}
	_, err := DecodeUser(raw)
	assert.Error(t, err)
}

func TestSerializeDeserializeUserSettingsRoundTrip(t *testing.T) {
	key := newKey(t)
	settings := UserSettings{
		Version: 1,
		Keys:    map[crypto.PublicKey]UserKeySettings{key: {Power: 2, Scopes: AllScopes}},
		Rules: UserSecurityRules{
			PowerLevels:           [config.PowerLevels]uint32{0, 1, 2, 3, 4},
			SupervisingPowerLevel: config.PowerLevelMedium,
		},
	}

	s := newSerializerForSettings(t, settings)
	decoded, err := DeserializeUserSettings(s)
	require.NoError(t, err)

	assert.Equal(t, settings.Keys, decoded.Keys)
	assert.Equal(t, settings.Rules, decoded.Rules)
}
