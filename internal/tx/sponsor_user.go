package tx

import (
	"github.com/pkg/errors"

	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/envelope"
	"github.com/logpass/node/internal/model"
	"github.com/logpass/node/internal/serializer"
)

func init() {
	register(TypeSponsorUser, decodeSponsorUser)
}

// SponsorUser grants UserId additional free transactions, capped at
// config.UserMaxFreeTransactions (grounded on sponsor_user.cpp).
type SponsorUser struct {
	UserId                crypto.UserId
	SponsoredTransactions uint8
	Sponsor               crypto.Hash
}

func decodeSponsorUser(s *serializer.Serializer) (Body, error) {
	b := &SponsorUser{}
	id, err := s.GetFixed(crypto.UserIdSize)
	if err != nil {
		return nil, err
	}
	copy(b.UserId[:], id)
	if b.SponsoredTransactions, err = s.GetUint8(); err != nil {
		return nil, err
	}
	sponsor, err := s.GetFixed(crypto.HashSize)
	if err != nil {
		return nil, err
	}
	copy(b.Sponsor[:], sponsor)
	return b, nil
}

func (b *SponsorUser) Type() Type { return TypeSponsorUser }

func (b *SponsorUser) Settings() Settings {
	return Settings{FeeMultiplier: uint64(b.SponsoredTransactions) + 1}
}

func (b *SponsorUser) SerializeBody(s *serializer.Serializer) {
	s.PutFixed(b.UserId.Bytes())
	s.PutUint8(b.SponsoredTransactions)
	s.PutFixed(b.Sponsor.Bytes())
}

func (b *SponsorUser) Cost() uint64 { return 0 }

func (b *SponsorUser) ValidateBody(ctx *Context, transaction *Transaction) error {
	if ctx.Users.Get(b.UserId, false) == nil {
		return errors.New("tx: sponsored user does not exist")
	}
	if b.SponsoredTransactions == 0 || uint32(b.SponsoredTransactions) > ctx.Cfg.UserMaxFreeTransactions {
		return errors.New("tx: invalid number of sponsored transactions")
	}
	if transaction.Envelope.Type == envelope.TypeSponsor && transaction.Envelope.SponsorId == b.UserId {
		return errors.New("tx: sponsor can not sponsor itself")
	}
	return nil
}

func (b *SponsorUser) ExecuteBody(ctx *Context, transaction *Transaction) error {
	user := ctx.Users.Get(b.UserId, false).Clone(ctx.BlockId)

	free := user.FreeTransactions + uint32(b.SponsoredTransactions)
	if free > ctx.Cfg.UserMaxFreeTransactions {
		free = ctx.Cfg.UserMaxFreeTransactions
	}
	user.FreeTransactions = free

	if err := ctx.DB.UserHistory.Append(user.Id, model.UserHistory{
		BlockId: ctx.BlockId, Type: model.UserHistorySponsoredTransaction, TransactionId: transaction.Id,
	}); err != nil {
		return err
	}
	user.Operations++

	ctx.DB.UserSponsors.Append(transaction.Envelope.UserId, model.UserSponsor{
		BlockId: ctx.BlockId, TransactionId: transaction.Id, SponsoredUser: user.Id,
	})
	user.Sponsors++

	ctx.Users.UpdateUser(user, user.PendingUpdate != nil)
	return nil
}
