package tx

import (
	"github.com/pkg/errors"

	"github.com/logpass/node/internal/config"
	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/serializer"
)

func init() {
	register(TypeWithdrawStake, decodeWithdrawStake)
}

// WithdrawStake returns stake to the owning user's token balance.
// Withdrawing from the locked pool costs a 5% penalty, credited to
// nobody — it simply never reaches the user's balance (grounded on
// withdraw_stake.cpp).
type WithdrawStake struct {
	MinerId       crypto.MinerId
	UnlockedStake uint64
	LockedStake   uint64
}

func decodeWithdrawStake(s *serializer.Serializer) (Body, error) {
	b := &WithdrawStake{}
	id, err := s.GetFixed(crypto.MinerIdSize)
	if err != nil {
		return nil, err
	}
	copy(b.MinerId[:], id)
	var err2 error
	if b.UnlockedStake, err2 = s.GetUint64(); err2 != nil {
		return nil, err2
	}
	if b.LockedStake, err2 = s.GetUint64(); err2 != nil {
		return nil, err2
	}
	return b, nil
}

func (b *WithdrawStake) Type() Type { return TypeWithdrawStake }

func (b *WithdrawStake) Settings() Settings {
	return Settings{FeeMultiplier: 1, MinimumPowerLevel: config.PowerLevelMedium}
}

func (b *WithdrawStake) SerializeBody(s *serializer.Serializer) {
	s.PutFixed(b.MinerId.Bytes())
	s.PutUint64(b.UnlockedStake)
	s.PutUint64(b.LockedStake)
}

func (b *WithdrawStake) Cost() uint64 { return 0 }

func (b *WithdrawStake) ValidateBody(ctx *Context, transaction *Transaction) error {
	if b.UnlockedStake == 0 && b.LockedStake == 0 {
		return errors.New("tx: withdraw_stake amounts can not both be zero")
	}
	miner := ctx.DB.Miners.GetMiner(b.MinerId, false)
	if miner == nil {
		return errors.New("tx: miner does not exist")
	}
	if miner.Owner != transaction.Envelope.UserId {
		return errors.New("tx: miner is not owned by transaction user")
	}
	if b.LockedStake > miner.LockedStake {
		return errors.New("tx: locked stake withdrawal exceeds miner's locked stake")
	}
	if b.UnlockedStake > miner.Stake-miner.LockedStake {
		return errors.New("tx: unlocked stake withdrawal exceeds miner's free stake")
	}
	return nil
}

func (b *WithdrawStake) ExecuteBody(ctx *Context, transaction *Transaction) error {
	miner := ctx.DB.Miners.GetMiner(b.MinerId, false).Clone(ctx.BlockId)
	miner.WithdrawStake(b.UnlockedStake, b.LockedStake)
	ctx.DB.Miners.UpdateMiner(miner)

	user := ctx.Users.Get(transaction.Envelope.UserId, false).Clone(ctx.BlockId)
	user.Tokens += b.UnlockedStake + (b.LockedStake*19)/20
	ctx.Users.UpdateUser(user, user.PendingUpdate != nil)
	return nil
}
