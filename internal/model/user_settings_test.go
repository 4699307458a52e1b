package model

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/logpass/node/internal/config"
	"github.com/logpass/node/internal/crypto"
)

func validRules() UserSecurityRules {
	return UserSecurityRules{
		PowerLevels:            [config.PowerLevels]uint32{0, 1, 5, 20, 100},
		KeysUpdateTimes:        [config.PowerLevels]uint32{100, 80, 40, 10, 0},
		SupervisorsUpdateTimes: [config.PowerLevels]uint32{100, 80, 40, 10, 0},
		RulesUpdateTimes:       [config.PowerLevels]uint32{100, 80, 40, 10, 0},
		SpendingLimits:         [config.PowerLevels]uint64{0, 100, 500, 1000, 0},
		SupervisingPowerLevel:  config.PowerLevelMedium,
	}
}

func TestUserSecurityRulesValidateAcceptsWellFormedRules(t *testing.T) {
	assert.NoError(t, validRules().Validate())
}

func TestUserSecurityRulesValidateRejectsDecreasingPowerLevels(t *testing.T) {
	r := validRules()
	r.PowerLevels[2] = 0
	assert.Error(t, r.Validate())
}

func TestUserSecurityRulesValidateRejectsIncreasingUpdateDelay(t *testing.T) {
	r := validRules()
	r.KeysUpdateTimes[2] = r.KeysUpdateTimes[1] + 1
	assert.Error(t, r.Validate())
}

func TestUserSecurityRulesValidateRejectsOutOfRangeSupervisingLevel(t *testing.T) {
	r := validRules()
	r.SupervisingPowerLevel = config.PowerLevels
	assert.Error(t, r.Validate())
}

func TestUserSecurityRulesValidateRejectsExcessiveUpdateDelay(t *testing.T) {
	r := validRules()
	r.KeysUpdateTimes[0] = config.UserMaxUpdateDelay + 1
	assert.Error(t, r.Validate())
}

func TestUserKeySettingsValidateRejectsZeroPower(t *testing.T) {
	assert.Error(t, UserKeySettings{Power: 0, Scopes: AllScopes}.Validate())
}

func TestUserKeySettingsValidateRejectsPartialScopes(t *testing.T) {
	assert.Error(t, UserKeySettings{Power: 1, Scopes: 0x0F}.Validate())
}

func TestUserSettingsValidateRejectsNoKeys(t *testing.T) {
	s := UserSettings{Version: 1, Keys: map[crypto.PublicKey]UserKeySettings{}, Rules: validRules()}
	assert.Error(t, s.Validate())
}

func TestUserSettingsValidateRejectsTooManyKeys(t *testing.T) {
	keys := map[crypto.PublicKey]UserKeySettings{}
	for i := 0; i < config.UserMaxKeys+1; i++ {
		var pk crypto.PublicKey
		pk[0] = crypto.PublicKeyTypeEd25519
		pk[1] = byte(i)
		keys[pk] = UserKeySettings{Power: 1, Scopes: AllScopes}
	}
	s := UserSettings{Version: 1, Keys: keys, Rules: validRules()}
	assert.Error(t, s.Validate())
}

func TestUserSettingsValidateAcceptsWellFormedSettings(t *testing.T) {
	var pk crypto.PublicKey
	pk[0] = crypto.PublicKeyTypeEd25519
	s := UserSettings{
		Version: 1,
		Keys:    map[crypto.PublicKey]UserKeySettings{pk: {Power: 1, Scopes: AllScopes}},
		Rules:   validRules(),
	}
	assert.NoError(t, s.Validate())
}
