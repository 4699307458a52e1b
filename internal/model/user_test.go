package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logpass/node/internal/config"
	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/envelope"
)

func newKey(t *testing.T) crypto.PublicKey {
	t.Helper()
	pk, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return pk.PublicKey()
}

func noSupervisors(crypto.UserId) (PowerLevel, map[crypto.PublicKey]struct{}, bool) {
	return Invalid(), nil, false
}

func TestGetPowerLevelSumsKeyPower(t *testing.T) {
	key := newKey(t)
	u := &User{Settings: UserSettings{
		Keys: map[crypto.PublicKey]UserKeySettings{key: {Power: 10, Scopes: AllScopes}},
		Rules: UserSecurityRules{
			PowerLevels: [config.PowerLevels]uint32{0, 1, 5, 10, 50},
		},
	}, LockedKeys: map[crypto.PublicKey]struct{}{}, LockedSupervisors: map[crypto.UserId]struct{}{}}

	env := &envelope.Envelope{MainKey: key}
	level, used := u.GetPowerLevel(env, noSupervisors, false)

	assert.Equal(t, uint8(config.PowerLevelMedium), level.Level)
	assert.Contains(t, used, key)
}

func TestGetPowerLevelIgnoresUnknownKeys(t *testing.T) {
	known := newKey(t)
	unknown := newKey(t)
	u := &User{Settings: UserSettings{
		Keys:  map[crypto.PublicKey]UserKeySettings{known: {Power: 1, Scopes: AllScopes}},
		Rules: UserSecurityRules{PowerLevels: [config.PowerLevels]uint32{0, 1, 2, 3, 4}},
	}, LockedKeys: map[crypto.PublicKey]struct{}{}, LockedSupervisors: map[crypto.UserId]struct{}{}}

	env := &envelope.Envelope{MainKey: unknown}
	level, used := u.GetPowerLevel(env, noSupervisors, false)

	assert.Equal(t, config.PowerLevelInvalid, int(level.Level))
	assert.Empty(t, used)
}

func TestGetPowerLevelForcesInvalidWhenLockedKeyBelowMedium(t *testing.T) {
	key := newKey(t)
	u := &User{
		Settings: UserSettings{
			Keys:  map[crypto.PublicKey]UserKeySettings{key: {Power: 1, Scopes: AllScopes}},
			Rules: UserSecurityRules{PowerLevels: [config.PowerLevels]uint32{0, 1, 2, 3, 4}},
		},
		LockedKeys:        map[crypto.PublicKey]struct{}{key: {}},
		LockedSupervisors: map[crypto.UserId]struct{}{},
	}

	env := &envelope.Envelope{MainKey: key}
	level, _ := u.GetPowerLevel(env, noSupervisors, false)
	assert.Equal(t, config.PowerLevelInvalid, int(level.Level))
}

func TestGetPowerLevelIgnoresLockWhenRequested(t *testing.T) {
	key := newKey(t)
	u := &User{
		Settings: UserSettings{
			Keys:  map[crypto.PublicKey]UserKeySettings{key: {Power: 1, Scopes: AllScopes}},
			Rules: UserSecurityRules{PowerLevels: [config.PowerLevels]uint32{0, 1, 2, 3, 4}},
		},
		LockedKeys:        map[crypto.PublicKey]struct{}{key: {}},
		LockedSupervisors: map[crypto.UserId]struct{}{},
	}

	env := &envelope.Envelope{MainKey: key}
	level, _ := u.GetPowerLevel(env, noSupervisors, true)
	assert.Equal(t, config.PowerLevelLowest, int(level.Level))
}

func TestValidateNewSettingsRejectsSelfSupervision(t *testing.T) {
	key := newKey(t)
	u := NewUser(crypto.UserIdFromPublicKey(key), crypto.UserIdFromPublicKey(key), UserSettings{
		Version: 1,
		Keys:    map[crypto.PublicKey]UserKeySettings{key: {Power: 1, Scopes: AllScopes}},
	}, 1)

	newSettings := UserSettings{
		Version:     1,
		Keys:        map[crypto.PublicKey]UserKeySettings{key: {Power: 1, Scopes: AllScopes}},
		Supervisors: map[crypto.UserId]UserKeySettings{u.Id: {Power: 1, Scopes: AllScopes}},
	}
	err := u.ValidateNewSettings(newSettings, Medium())
	assert.Error(t, err)
}

func TestValidateNewSettingsRejectsLowerPowerOverwrite(t *testing.T) {
	key := newKey(t)
	u := NewUser(crypto.UserIdFromPublicKey(key), crypto.UserIdFromPublicKey(key), UserSettings{
		Version: 1,
		Keys:    map[crypto.PublicKey]UserKeySettings{key: {Power: 1, Scopes: AllScopes}},
	}, 1)
	u.PendingUpdate = &PendingUpdate{PowerLevel: config.PowerLevelHigh}

	newSettings := UserSettings{Version: 1, Keys: map[crypto.PublicKey]UserKeySettings{key: {Power: 1, Scopes: AllScopes}}}
	err := u.ValidateNewSettings(newSettings, Medium())
	assert.Error(t, err)
}

func TestLoadAppliesDuePendingUpdate(t *testing.T) {
	key := newKey(t)
	u := NewUser(crypto.UserIdFromPublicKey(key), crypto.UserIdFromPublicKey(key), UserSettings{
		Version: 1,
		Keys:    map[crypto.PublicKey]UserKeySettings{key: {Power: 1, Scopes: AllScopes}},
	}, 1)
	newSettings := UserSettings{Version: 1, Keys: map[crypto.PublicKey]UserKeySettings{key: {Power: 5, Scopes: AllScopes}}}
	u.PendingUpdate = &PendingUpdate{BlockId: 10, Settings: newSettings}

	loaded := Load(u, 9)
	assert.NotNil(t, loaded.PendingUpdate)

	loaded = Load(u, 10)
	assert.Nil(t, loaded.PendingUpdate)
	assert.Equal(t, uint8(5), loaded.Settings.Keys[key].Power)
}

func TestCloneDeepCopiesLockedSets(t *testing.T) {
	key := newKey(t)
	u := NewUser(crypto.UserIdFromPublicKey(key), crypto.UserIdFromPublicKey(key), UserSettings{Version: 1}, 1)
	u.LockedKeys[key] = struct{}{}

	clone := u.Clone(2)
	delete(clone.LockedKeys, key)

	assert.Contains(t, u.LockedKeys, key)
	assert.NotContains(t, clone.LockedKeys, key)
	assert.Equal(t, u.Iteration+1, clone.Iteration)
}
