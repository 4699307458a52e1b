package tx

import (
	"github.com/pkg/errors"

	"github.com/logpass/node/internal/config"
	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/serializer"
)

func init() {
	register(TypeSelectMiner, decodeSelectMiner)
}

// SelectMiner points the signer's account at the miner that mines on
// its behalf. Rejecting a no-op reselection (already set to MinerId)
// mirrors select_miner.cpp; its "user missing" branch has no counterpart
// here, since Validate already confirmed the signer exists.
type SelectMiner struct {
	MinerId crypto.MinerId
}

func decodeSelectMiner(s *serializer.Serializer) (Body, error) {
	b := &SelectMiner{}
	id, err := s.GetFixed(crypto.MinerIdSize)
	if err != nil {
		return nil, err
	}
	copy(b.MinerId[:], id)
	return b, nil
}

func (b *SelectMiner) Type() Type { return TypeSelectMiner }

func (b *SelectMiner) Settings() Settings {
	return Settings{FeeMultiplier: 1, MinimumPowerLevel: config.PowerLevelMedium}
}

func (b *SelectMiner) SerializeBody(s *serializer.Serializer) {
	s.PutFixed(b.MinerId.Bytes())
}

func (b *SelectMiner) Cost() uint64 { return 0 }

func (b *SelectMiner) ValidateBody(ctx *Context, transaction *Transaction) error {
	if !b.MinerId.IsValid() || ctx.DB.Miners.GetMiner(b.MinerId, false) == nil {
		return errors.New("tx: miner does not exist")
	}
	user := ctx.Users.Get(transaction.Envelope.UserId, false)
	if user.Miner == b.MinerId {
		return errors.New("tx: miner is already set for user")
	}
	return nil
}

func (b *SelectMiner) ExecuteBody(ctx *Context, transaction *Transaction) error {
	user := ctx.Users.Get(transaction.Envelope.UserId, false).Clone(ctx.BlockId)
	user.Miner = b.MinerId
	ctx.Users.UpdateUser(user, user.PendingUpdate != nil)
	return nil
}
