package model

import (
	"github.com/pkg/errors"

	"github.com/logpass/node/internal/config"
	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/serializer"
)

// AllScopes is the only currently supported scopes value: a key or
// supervisor entry always grants every scope.
const AllScopes uint32 = 0xFFFFFFFF

// UserKeySettings is the per-key authorization weight and scope grant.
type UserKeySettings struct {
	Power  uint8
	Scopes uint32
}

func (k UserKeySettings) Validate() error {
	if k.Power == 0 || k.Power > config.MaxPower {
		return errors.Errorf("key settings: power %d out of range", k.Power)
	}
	if k.Scopes != AllScopes {
		return errors.New("key settings: only all-scopes grants are supported")
	}
	return nil
}

func (k UserKeySettings) Serialize(s *serializer.Serializer) {
	s.PutUint8(k.Power)
	s.PutUint32(k.Scopes)
}

func DeserializeUserKeySettings(s *serializer.Serializer) (UserKeySettings, error) {
	var k UserKeySettings
	p, err := s.GetUint8()
	if err != nil {
		return k, err
	}
	scopes, err := s.GetUint32()
	if err != nil {
		return k, err
	}
	k.Power, k.Scopes = p, scopes
	return k, nil
}

// UserSecurityRules governs how power levels are reached and how long
// pending changes take to activate.
type UserSecurityRules struct {
	PowerLevels            [config.PowerLevels]uint32
	KeysUpdateTimes        [config.PowerLevels]uint32
	SupervisorsUpdateTimes [config.PowerLevels]uint32
	RulesUpdateTimes       [config.PowerLevels]uint32
	SpendingLimits         [config.PowerLevels]uint64
	SupervisingPowerLevel  uint8
}

// Validate enforces: non-decreasing PowerLevels and SpendingLimits (a 0
// spending limit at the highest level means "no limit" and is exempt),
// non-increasing *UpdateTimes, and a supervising level inside range.
func (r UserSecurityRules) Validate() error {
	for i := 1; i < config.PowerLevels; i++ {
		if r.PowerLevels[i] < r.PowerLevels[i-1] {
			return errors.New("security rules: power level thresholds must be non-decreasing")
		}
		unlimited := i == config.PowerLevels-1 && r.SpendingLimits[i] == 0
		if r.SpendingLimits[i] < r.SpendingLimits[i-1] && !unlimited {
			return errors.New("security rules: spending limits must be non-decreasing")
		}
		if r.KeysUpdateTimes[i] > r.KeysUpdateTimes[i-1] {
			return errors.New("security rules: keys update delay must be non-increasing")
		}
		if r.SupervisorsUpdateTimes[i] > r.SupervisorsUpdateTimes[i-1] {
			return errors.New("security rules: supervisors update delay must be non-increasing")
		}
		if r.RulesUpdateTimes[i] > r.RulesUpdateTimes[i-1] {
			return errors.New("security rules: rules update delay must be non-increasing")
		}
	}
	for i := 0; i < config.PowerLevels; i++ {
		if r.KeysUpdateTimes[i] > config.UserMaxUpdateDelay ||
			r.SupervisorsUpdateTimes[i] > config.UserMaxUpdateDelay ||
			r.RulesUpdateTimes[i] > config.UserMaxUpdateDelay {
			return errors.New("security rules: update delay exceeds maximum")
		}
	}
	if r.SupervisingPowerLevel >= config.PowerLevels {
		return errors.New("security rules: supervising power level out of range")
	}
	return nil
}

func (r UserSecurityRules) Serialize(s *serializer.Serializer) {
	for _, v := range r.PowerLevels {
		s.PutUint32(v)
	}
	for _, v := range r.KeysUpdateTimes {
		s.PutUint32(v)
	}
	for _, v := range r.SupervisorsUpdateTimes {
		s.PutUint32(v)
	}
	for _, v := range r.RulesUpdateTimes {
		s.PutUint32(v)
	}
	for _, v := range r.SpendingLimits {
		s.PutUint64(v)
	}
	s.PutUint8(r.SupervisingPowerLevel)
}

func DeserializeUserSecurityRules(s *serializer.Serializer) (UserSecurityRules, error) {
	var r UserSecurityRules
	var err error
	for i := range r.PowerLevels {
		if r.PowerLevels[i], err = s.GetUint32(); err != nil {
			return r, err
		}
	}
	for i := range r.KeysUpdateTimes {
		if r.KeysUpdateTimes[i], err = s.GetUint32(); err != nil {
			return r, err
		}
	}
	for i := range r.SupervisorsUpdateTimes {
		if r.SupervisorsUpdateTimes[i], err = s.GetUint32(); err != nil {
			return r, err
		}
	}
	for i := range r.RulesUpdateTimes {
		if r.RulesUpdateTimes[i], err = s.GetUint32(); err != nil {
			return r, err
		}
	}
	for i := range r.SpendingLimits {
		if r.SpendingLimits[i], err = s.GetUint64(); err != nil {
			return r, err
		}
	}
	if r.SupervisingPowerLevel, err = s.GetUint8(); err != nil {
		return r, err
	}
	return r, nil
}

// UserSettings bundles keys, supervisors and rules. It is versioned so a
// future on-disk format change can be detected at load time.
type UserSettings struct {
	Version     uint8
	Keys        map[crypto.PublicKey]UserKeySettings
	Supervisors map[crypto.UserId]UserKeySettings
	Rules       UserSecurityRules
}

func (s UserSettings) Validate() error {
	if s.Version != 1 {
		return errors.Errorf("user settings: unsupported version %d", s.Version)
	}
	if len(s.Keys) == 0 || len(s.Keys) > config.UserMaxKeys {
		return errors.Errorf("user settings: key count %d out of range", len(s.Keys))
	}
	for k, ks := range s.Keys {
		if !k.IsValid() {
			return errors.New("user settings: empty key not allowed")
		}
		if err := ks.Validate(); err != nil {
			return err
		}
	}
	if len(s.Supervisors) > config.UserMaxSupervisors {
		return errors.Errorf("user settings: supervisor count %d out of range", len(s.Supervisors))
	}
	for _, ss := range s.Supervisors {
		if err := ss.Validate(); err != nil {
			return err
		}
	}
	return s.Rules.Validate()
}
