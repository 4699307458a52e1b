package tx

import (
	"github.com/pkg/errors"

	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/serializer"
)

func init() {
	register(TypeIncreaseStake, decodeIncreaseStake)
}

// IncreaseStake deposits Value tokens from the signer into a miner's
// locked stake pool. Value is carried as Cost, so the shared pipeline
// deducts it from the signer; any owner may top up any miner's stake
// (grounded on increase_stake.cpp, which checks only that the miner
// exists).
type IncreaseStake struct {
	MinerId crypto.MinerId
	Value   uint64
}

func decodeIncreaseStake(s *serializer.Serializer) (Body, error) {
	b := &IncreaseStake{}
	id, err := s.GetFixed(crypto.MinerIdSize)
	if err != nil {
		return nil, err
	}
	copy(b.MinerId[:], id)
	if b.Value, err = s.GetUint64(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *IncreaseStake) Type() Type { return TypeIncreaseStake }

func (b *IncreaseStake) Settings() Settings { return Settings{FeeMultiplier: 1} }

func (b *IncreaseStake) SerializeBody(s *serializer.Serializer) {
	s.PutFixed(b.MinerId.Bytes())
	s.PutUint64(b.Value)
}

func (b *IncreaseStake) Cost() uint64 { return b.Value }

func (b *IncreaseStake) ValidateBody(ctx *Context, transaction *Transaction) error {
	if b.Value == 0 {
		return errors.New("tx: increase_stake value can not be zero")
	}
	if ctx.DB.Miners.GetMiner(b.MinerId, false) == nil {
		return errors.New("tx: miner does not exist")
	}
	return nil
}

func (b *IncreaseStake) ExecuteBody(ctx *Context, transaction *Transaction) error {
	miner := ctx.DB.Miners.GetMiner(b.MinerId, false).Clone(ctx.BlockId)
	miner.AddStake(b.Value, false)
	ctx.DB.Miners.UpdateMiner(miner)
	return nil
}
