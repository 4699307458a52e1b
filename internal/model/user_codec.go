package model

import (
	"github.com/pkg/errors"

	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/serializer"
)

// EncodeUser produces the on-disk form of u.
func EncodeUser(u *User) []byte {
	s := serializer.New()
	s.PutUint8(1)
	s.PutFixed(u.Id.Bytes())
	s.PutFixed(u.Creator.Bytes())
	s.PutUint64(u.Iteration)
	s.PutUint32BE(u.CommittedIn)
	s.PutUint64(u.Tokens)
	s.PutUint32(u.FreeTransactions)
	s.PutFixed(u.Miner.Bytes())

	putPublicKeySet(s, u.LockedKeys)
	putUserIdSet(s, u.LockedSupervisors)

	s.PutUint32BE(u.Logout)
	for _, v := range u.Spendings {
		s.PutUint64(v)
	}

	s.PutPresence(u.PendingUpdate != nil)
	if u.PendingUpdate != nil {
		s.PutUint32BE(u.PendingUpdate.BlockId)
		putUserSettings(s, u.PendingUpdate.Settings)
		s.PutFixed(u.PendingUpdate.TransactionId.Bytes())
		s.PutUint8(u.PendingUpdate.PowerLevel)
	}
	putUserSettings(s, u.Settings)
	s.PutFixed(u.SettingsTransaction.Bytes())
	s.PutUint64(u.Operations)
	s.PutUint64(u.Sponsors)
	return s.Bytes()
}

// DecodeUser parses the bytes written by EncodeUser.
func DecodeUser(raw []byte) (*User, error) {
	s := serializer.NewReader(raw)
	version, err := s.GetUint8()
	if err != nil {
		return nil, err
	}
	if version != 1 {
		return nil, errors.Errorf("model: unsupported user version %d", version)
	}
	u := &User{Version: version}

	idB, err := s.GetFixed(crypto.UserIdSize)
	if err != nil {
		return nil, err
	}
	copy(u.Id[:], idB)

	creatorB, err := s.GetFixed(crypto.UserIdSize)
	if err != nil {
		return nil, err
	}
	copy(u.Creator[:], creatorB)

	if u.Iteration, err = s.GetUint64(); err != nil {
		return nil, err
	}
	if u.CommittedIn, err = s.GetUint32BE(); err != nil {
		return nil, err
	}
	if u.Tokens, err = s.GetUint64(); err != nil {
		return nil, err
	}
	if u.FreeTransactions, err = s.GetUint32(); err != nil {
		return nil, err
	}
	minerB, err := s.GetFixed(crypto.MinerIdSize)
	if err != nil {
		return nil, err
	}
	copy(u.Miner[:], minerB)

	if u.LockedKeys, err = getPublicKeySet(s); err != nil {
		return nil, err
	}
	if u.LockedSupervisors, err = getUserIdSet(s); err != nil {
		return nil, err
	}

	if u.Logout, err = s.GetUint32BE(); err != nil {
		return nil, err
	}
	for i := range u.Spendings {
		if u.Spendings[i], err = s.GetUint64(); err != nil {
			return nil, err
		}
	}

	hasPending, err := s.GetPresence()
	if err != nil {
		return nil, err
	}
	if hasPending {
		pu := &PendingUpdate{}
		if pu.BlockId, err = s.GetUint32BE(); err != nil {
			return nil, err
		}
		if pu.Settings, err = getUserSettings(s); err != nil {
			return nil, err
		}
		txIdB, err := s.GetFixed(crypto.TransactionIdSize)
		if err != nil {
			return nil, err
		}
		copy(pu.TransactionId[:], txIdB)
		if pu.PowerLevel, err = s.GetUint8(); err != nil {
			return nil, err
		}
		u.PendingUpdate = pu
	}

	if u.Settings, err = getUserSettings(s); err != nil {
		return nil, err
	}
	settingsTxB, err := s.GetFixed(crypto.TransactionIdSize)
	if err != nil {
		return nil, err
	}
	copy(u.SettingsTransaction[:], settingsTxB)

	if u.Operations, err = s.GetUint64(); err != nil {
		return nil, err
	}
	if u.Sponsors, err = s.GetUint64(); err != nil {
		return nil, err
	}
	return u, nil
}

func putPublicKeySet(s *serializer.Serializer, set map[crypto.PublicKey]struct{}) {
	_ = s.PutUint8Count(len(set))
	for k := range set {
		s.PutFixed(k.Bytes())
	}
}

func getPublicKeySet(s *serializer.Serializer) (map[crypto.PublicKey]struct{}, error) {
	n, err := s.GetUint8Count()
	if err != nil {
		return nil, err
	}
	out := make(map[crypto.PublicKey]struct{}, n)
	for i := 0; i < n; i++ {
		b, err := s.GetFixed(crypto.PublicKeySize)
		if err != nil {
			return nil, err
		}
		var k crypto.PublicKey
		copy(k[:], b)
		out[k] = struct{}{}
	}
	return out, nil
}

func putUserIdSet(s *serializer.Serializer, set map[crypto.UserId]struct{}) {
	_ = s.PutUint8Count(len(set))
	for k := range set {
		s.PutFixed(k.Bytes())
	}
}

func getUserIdSet(s *serializer.Serializer) (map[crypto.UserId]struct{}, error) {
	n, err := s.GetUint8Count()
	if err != nil {
		return nil, err
	}
	out := make(map[crypto.UserId]struct{}, n)
	for i := 0; i < n; i++ {
		b, err := s.GetFixed(crypto.UserIdSize)
		if err != nil {
			return nil, err
		}
		var k crypto.UserId
		copy(k[:], b)
		out[k] = struct{}{}
	}
	return out, nil
}

// SerializeUserSettings writes settings in the same form EncodeUser uses,
// for transaction bodies that carry a UserSettings value directly
// (update_user, the implicit settings created by create_user).
func SerializeUserSettings(s *serializer.Serializer, settings UserSettings) {
	putUserSettings(s, settings)
}

// DeserializeUserSettings reads the form written by SerializeUserSettings.
func DeserializeUserSettings(s *serializer.Serializer) (UserSettings, error) {
	return getUserSettings(s)
}

func putUserSettings(s *serializer.Serializer, settings UserSettings) {
	s.PutUint8(settings.Version)
	_ = s.PutUint8Count(len(settings.Keys))
	for k, ks := range settings.Keys {
		s.PutFixed(k.Bytes())
		ks.Serialize(s)
	}
	_ = s.PutUint8Count(len(settings.Supervisors))
	for id, ss := range settings.Supervisors {
		s.PutFixed(id.Bytes())
		ss.Serialize(s)
	}
	settings.Rules.Serialize(s)
}

func getUserSettings(s *serializer.Serializer) (UserSettings, error) {
	var settings UserSettings
	var err error
	if settings.Version, err = s.GetUint8(); err != nil {
		return settings, err
	}
	keyCount, err := s.GetUint8Count()
	if err != nil {
		return settings, err
	}
	settings.Keys = make(map[crypto.PublicKey]UserKeySettings, keyCount)
	for i := 0; i < keyCount; i++ {
		kb, err := s.GetFixed(crypto.PublicKeySize)
		if err != nil {
			return settings, err
		}
		ks, err := DeserializeUserKeySettings(s)
		if err != nil {
			return settings, err
		}
		var k crypto.PublicKey
		copy(k[:], kb)
		settings.Keys[k] = ks
	}
	supCount, err := s.GetUint8Count()
	if err != nil {
		return settings, err
	}
	settings.Supervisors = make(map[crypto.UserId]UserKeySettings, supCount)
	for i := 0; i < supCount; i++ {
		ib, err := s.GetFixed(crypto.UserIdSize)
		if err != nil {
			return settings, err
		}
		ss, err := DeserializeUserKeySettings(s)
		if err != nil {
			return settings, err
		}
		var id crypto.UserId
		copy(id[:], ib)
		settings.Supervisors[id] = ss
	}
	if settings.Rules, err = DeserializeUserSecurityRules(s); err != nil {
		return settings, err
	}
	return settings, nil
}
