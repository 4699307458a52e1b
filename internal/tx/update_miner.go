package tx

import (
	"github.com/pkg/errors"

	"github.com/logpass/node/internal/config"
	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/model"
	"github.com/logpass/node/internal/serializer"
)

func init() {
	register(TypeUpdateMiner, decodeUpdateMiner)
}

// decodeMinerSettings / encodeMinerSettings are the wire codec for
// model.MinerSettings, shared by CreateMiner and UpdateMiner.
func encodeMinerSettings(s *serializer.Serializer, ms model.MinerSettings) {
	s.PutUint8(ms.Version)
	_ = s.PutString8(ms.Endpoint)
	_ = s.PutString8(ms.Api)
	_ = s.PutString8(ms.Name)
	_ = s.PutString8(ms.Website)
	_ = s.PutString8(ms.Description)
}

func decodeMinerSettings(s *serializer.Serializer) (model.MinerSettings, error) {
	var ms model.MinerSettings
	var err error
	if ms.Version, err = s.GetUint8(); err != nil {
		return ms, err
	}
	if ms.Endpoint, err = s.GetString8(); err != nil {
		return ms, err
	}
	if ms.Api, err = s.GetString8(); err != nil {
		return ms, err
	}
	if ms.Name, err = s.GetString8(); err != nil {
		return ms, err
	}
	if ms.Website, err = s.GetString8(); err != nil {
		return ms, err
	}
	if ms.Description, err = s.GetString8(); err != nil {
		return ms, err
	}
	return ms, nil
}

// UpdateMiner replaces a miner's public advertisement. Only the owning
// user may update it (grounded on update_miner.cpp).
type UpdateMiner struct {
	MinerId     crypto.MinerId
	NewSettings model.MinerSettings
}

func decodeUpdateMiner(s *serializer.Serializer) (Body, error) {
	b := &UpdateMiner{}
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

func (b *UpdateMiner) Type() Type { return TypeUpdateMiner }

func (b *UpdateMiner) Settings() Settings {
	return Settings{FeeMultiplier: 1, MinimumPowerLevel: config.PowerLevelMedium}
}

func (b *UpdateMiner) SerializeBody(s *serializer.Serializer) {
	s.PutFixed(b.MinerId.Bytes())
	encodeMinerSettings(s, b.NewSettings)
}

func (b *UpdateMiner) Cost() uint64 { return 0 }

func (b *UpdateMiner) ValidateBody(ctx *Context, transaction *Transaction) error {
	if !b.MinerId.IsValid() {
		return errors.New("tx: invalid miner id")
	}
	miner := ctx.DB.Miners.GetMiner(b.MinerId, false)
	if miner == nil {
		return errors.New("tx: miner does not exist")
	}
	if miner.Owner != transaction.Envelope.UserId {
		return errors.New("tx: miner is not owned by transaction user")
	}
	return nil
}

func (b *UpdateMiner) ExecuteBody(ctx *Context, transaction *Transaction) error {
	miner := ctx.DB.Miners.GetMiner(b.MinerId, false).Clone(ctx.BlockId)
	miner.Settings = b.NewSettings
	ctx.DB.Miners.UpdateMiner(miner)
	return nil
}
