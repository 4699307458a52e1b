package tx

import (
	"github.com/pkg/errors"

	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/model"
	"github.com/logpass/node/internal/serializer"
)

func init() {
	register(TypeCreateMiner, decodeCreateMiner)
}

// CreateMiner registers the signer as the owner of a brand-new miner
// identity. No original source file for this type survived the
// distillation; it is modeled directly on the genesis miner creation in
// init.cpp and on UpdateMiner's ownership checks, since both share the
// same Miner record shape.
type CreateMiner struct {
	MinerId     crypto.MinerId
	NewSettings model.MinerSettings
}

func decodeCreateMiner(s *serializer.Serializer) (Body, error) {
	b := &CreateMiner{}
	id, err := s.GetFixed(crypto.MinerIdSize)
	if err != nil {
		return nil, err
	}
	copy(b.MinerId[:], id)
	if b.NewSettings, err = decodeMinerSettings(s); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *CreateMiner) Type() Type { return TypeCreateMiner }

func (b *CreateMiner) Settings() Settings { return Settings{FeeMultiplier: 1} }

func (b *CreateMiner) SerializeBody(s *serializer.Serializer) {
	s.PutFixed(b.MinerId.Bytes())
	encodeMinerSettings(s, b.NewSettings)
}

func (b *CreateMiner) Cost() uint64 { return 0 }

func (b *CreateMiner) ValidateBody(ctx *Context, transaction *Transaction) error {
	if !b.MinerId.IsValid() {
		return errors.New("tx: invalid miner id")
	}
	if ctx.DB.Miners.GetMiner(b.MinerId, false) != nil {
		return errors.New("tx: miner already exists")
	}
	return nil
}

func (b *CreateMiner) ExecuteBody(ctx *Context, transaction *Transaction) error {
	miner := model.NewMiner(b.MinerId, transaction.Envelope.UserId, ctx.BlockId, ctx.Cfg.StakingDuration)
	miner.Settings = b.NewSettings
	ctx.DB.Miners.AddMiner(miner)
	return nil
}
