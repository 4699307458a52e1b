package tx

import (
	"github.com/pkg/errors"

	"github.com/logpass/node/internal/config"
	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/serializer"
)

func init() {
	register(TypeUnlockUser, decodeUnlockUser)
}

// UnlockUser reverses LockUser: it requires Medium power, higher than the
// Lowest power needed to lock in the first place, since unlocking
// restores a key/supervisor's ability to reach a below-Medium level on
// its own (grounded on unlock_user.cpp).
type UnlockUser struct {
	Keys        map[crypto.PublicKey]struct{}
	Supervisors map[crypto.UserId]struct{}
}

func decodeUnlockUser(s *serializer.Serializer) (Body, error) {
	b := &UnlockUser{Keys: map[crypto.PublicKey]struct{}{}, Supervisors: map[crypto.UserId]struct{}{}}
	keyCount, err := s.GetUint8Count()
	if err != nil {
		return nil, err
	}
	for i := 0; i < keyCount; i++ {
		raw, err := s.GetFixed(crypto.PublicKeySize)
		if err != nil {
			return nil, err
		}
		var pk crypto.PublicKey
		copy(pk[:], raw)
		b.Keys[pk] = struct{}{}
	}
	supCount, err := s.GetUint8Count()
	if err != nil {
		return nil, err
	}
	for i := 0; i < supCount; i++ {
		raw, err := s.GetFixed(crypto.UserIdSize)
		if err != nil {
			return nil, err
		}
		var id crypto.UserId
		copy(id[:], raw)
		b.Supervisors[id] = struct{}{}
	}
	return b, nil
}

func (b *UnlockUser) Type() Type { return TypeUnlockUser }

func (b *UnlockUser) Settings() Settings {
	return Settings{IgnoresLock: true, IsUserManagement: true, FeeMultiplier: 1, MinimumPowerLevel: config.PowerLevelMedium}
}

func (b *UnlockUser) SerializeBody(s *serializer.Serializer) {
	_ = s.PutUint8Count(len(b.Keys))
	for pk := range b.Keys {
		s.PutFixed(pk.Bytes())
	}
	_ = s.PutUint8Count(len(b.Supervisors))
	for id := range b.Supervisors {
		s.PutFixed(id.Bytes())
	}
}

func (b *UnlockUser) Cost() uint64 { return 0 }

func (b *UnlockUser) ValidateBody(ctx *Context, transaction *Transaction) error {
	if len(b.Keys) == 0 && len(b.Supervisors) == 0 {
		return errors.New("tx: unlock_user must name at least one key or supervisor")
	}
	user := ctx.Users.Get(transaction.Envelope.UserId, false)
	hasValidUnlock := false
	for pk := range b.Keys {
		if !user.HasKey(pk) {
			return errors.New("tx: key does not belong to user")
		}
		if user.IsKeyLocked(pk) {
			hasValidUnlock = true
		}
	}
	for id := range b.Supervisors {
		if !user.HasSupervisor(id) {
			return errors.New("tx: supervisor does not belong to user")
		}
		if user.IsSupervisorLocked(id) {
			hasValidUnlock = true
		}
	}
	if !hasValidUnlock {
		return errors.New("tx: unlock_user does not unlock anything")
	}
	return nil
}

func (b *UnlockUser) ExecuteBody(ctx *Context, transaction *Transaction) error {
	user := ctx.Users.Get(transaction.Envelope.UserId, false).Clone(ctx.BlockId)
	for pk := range b.Keys {
		delete(user.LockedKeys, pk)
	}
	for id := range b.Supervisors {
		delete(user.LockedSupervisors, id)
	}
	ctx.Users.UpdateUser(user, user.PendingUpdate != nil)
	return nil
}
