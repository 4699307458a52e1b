package tx

import (
	"github.com/pkg/errors"

	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/envelope"
	"github.com/logpass/node/internal/model"
	"github.com/logpass/node/internal/serializer"
)

func init() {
	register(TypeTransfer, decodeTransfer)
}

// Transfer moves Value tokens from the signer to DestinationUser. Value
// is carried as the generic Cost, so the shared pipeline deducts it from
// the signer automatically; ExecuteBody only has to credit the
// destination (grounded on transfer.cpp).
type Transfer struct {
	DestinationUser crypto.UserId
	Value           uint64
}

func decodeTransfer(s *serializer.Serializer) (Body, error) {
	b := &Transfer{}
	id, err := s.GetFixed(crypto.UserIdSize)
	if err != nil {
		return nil, err
	}
	copy(b.DestinationUser[:], id)
	if b.Value, err = s.GetUint64(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Transfer) Type() Type { return TypeTransfer }

func (b *Transfer) Settings() Settings { return Settings{FeeMultiplier: 1} }

func (b *Transfer) SerializeBody(s *serializer.Serializer) {
	s.PutFixed(b.DestinationUser.Bytes())
	s.PutUint64(b.Value)
}

func (b *Transfer) Cost() uint64 { return b.Value }

func (b *Transfer) ValidateBody(ctx *Context, transaction *Transaction) error {
	if b.Value == 0 {
		return errors.New("tx: transfer value can not be zero")
	}
	if b.DestinationUser == transaction.Envelope.UserId {
		return errors.New("tx: can not transfer to self")
	}
	env := transaction.Envelope
	if env.Type == envelope.TypeSponsor && env.SponsorId == b.DestinationUser {
		return errors.New("tx: sponsor can not be the transfer destination")
	}
	if ctx.Users.Get(b.DestinationUser, false) == nil {
		return errors.New("tx: destination user does not exist")
	}
	return nil
}

func (b *Transfer) ExecuteBody(ctx *Context, transaction *Transaction) error {
	dest := ctx.Users.Get(b.DestinationUser, false).Clone(ctx.BlockId)
	dest.Tokens += b.Value

	if err := ctx.DB.UserHistory.Append(dest.Id, model.UserHistory{
		BlockId: ctx.BlockId, Type: model.UserHistoryIncomingTransaction, TransactionId: transaction.Id,
	}); err != nil {
		return err
	}
	dest.Operations++

	ctx.Users.UpdateUser(dest, dest.PendingUpdate != nil)
	return nil
}
