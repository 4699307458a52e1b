package tx

import (
	"github.com/pkg/errors"

	"github.com/logpass/node/internal/config"
	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/serializer"
)

func init() {
	register(TypeLockUser, decodeLockUser)
}

// LockUser freezes a subset of the signer's own keys/supervisors so they
// can no longer contribute to a below-Medium power level (grounded on
// lock_user.cpp). At least one named key or supervisor must not already
// be locked.
type LockUser struct {
	Keys        map[crypto.PublicKey]struct{}
	Supervisors map[crypto.UserId]struct{}
}

func decodeLockUser(s *serializer.Serializer) (Body, error) {
	b := &LockUser{Keys: map[crypto.PublicKey]struct{}{}, Supervisors: map[crypto.UserId]struct{}{}}
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

func (b *LockUser) Type() Type { return TypeLockUser }

func (b *LockUser) Settings() Settings {
	return Settings{IgnoresLock: true, IsUserManagement: true, FeeMultiplier: 1, MinimumPowerLevel: config.PowerLevelLowest}
}

func (b *LockUser) SerializeBody(s *serializer.Serializer) {
	_ = s.PutUint8Count(len(b.Keys))
	for pk := range b.Keys {
		s.PutFixed(pk.Bytes())
	}
	_ = s.PutUint8Count(len(b.Supervisors))
	for id := range b.Supervisors {
		s.PutFixed(id.Bytes())
	}
}

func (b *LockUser) Cost() uint64 { return 0 }

func (b *LockUser) ValidateBody(ctx *Context, transaction *Transaction) error {
	if len(b.Keys) == 0 && len(b.Supervisors) == 0 {
		return errors.New("tx: lock_user must name at least one key or supervisor")
	}
	user := ctx.Users.Get(transaction.Envelope.UserId, false)
	hasValidLock := false
	for pk := range b.Keys {
		if !user.HasKey(pk) {
			return errors.New("tx: key does not belong to user")
		}
		if !user.IsKeyLocked(pk) {
			hasValidLock = true
		}
	}
	for id := range b.Supervisors {
		if !user.HasSupervisor(id) {
			return errors.New("tx: supervisor does not belong to user")
		}
		if !user.IsSupervisorLocked(id) {
			hasValidLock = true
		}
	}
	if !hasValidLock {
		return errors.New("tx: lock_user does not lock anything new")
	}
	return nil
}

func (b *LockUser) ExecuteBody(ctx *Context, transaction *Transaction) error {
	user := ctx.Users.Get(transaction.Envelope.UserId, false).Clone(ctx.BlockId)
	for pk := range b.Keys {
		user.LockedKeys[pk] = struct{}{}
	}
	for id := range b.Supervisors {
		user.LockedSupervisors[id] = struct{}{}
	}
	ctx.Users.UpdateUser(user, user.PendingUpdate != nil)
	return nil
}
