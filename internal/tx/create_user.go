package tx

import (
	"github.com/pkg/errors"

	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/model"
	"github.com/logpass/node/internal/serializer"
)

func init() {
	register(TypeCreateUser, decodeCreateUser)
}

// CreateUser registers a brand-new user identified by PublicKey, funded
// with SponsoredTransactions worth of free transactions by the signer
// (grounded on create_user.cpp).
type CreateUser struct {
	PublicKey             crypto.PublicKey
	SponsoredTransactions uint8
	Sponsor               crypto.Hash
}

func decodeCreateUser(s *serializer.Serializer) (Body, error) {
	b := &CreateUser{}
	pk, err := s.GetFixed(crypto.PublicKeySize)
	if err != nil {
		return nil, err
	}
	copy(b.PublicKey[:], pk)
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

func (b *CreateUser) Type() Type { return TypeCreateUser }

// Settings reproduces the original's getFee() override by folding the
// sponsored-transactions count into the fee multiplier rather than
// changing Cost, since every sponsored free transaction costs the
// signer one unit of the base fee.
func (b *CreateUser) Settings() Settings {
	return Settings{FeeMultiplier: uint64(b.SponsoredTransactions) + 1}
}

func (b *CreateUser) SerializeBody(s *serializer.Serializer) {
	s.PutFixed(b.PublicKey.Bytes())
	s.PutUint8(b.SponsoredTransactions)
	s.PutFixed(b.Sponsor.Bytes())
}

func (b *CreateUser) Cost() uint64 { return 0 }

func (b *CreateUser) newUserId() crypto.UserId { return crypto.UserIdFromPublicKey(b.PublicKey) }

func (b *CreateUser) ValidateBody(ctx *Context, transaction *Transaction) error {
	if !b.PublicKey.IsValid() {
		return errors.New("tx: invalid user id")
	}
	if ctx.Users.Get(b.newUserId(), false) != nil {
		return errors.New("tx: user already exists")
	}
	if b.SponsoredTransactions < uint8(ctx.Cfg.UserMinFreeTransactions) ||
		uint32(b.SponsoredTransactions) > ctx.Cfg.UserMaxFreeTransactions {
		return errors.New("tx: invalid number of sponsored transactions")
	}
	return nil
}

func (b *CreateUser) ExecuteBody(ctx *Context, transaction *Transaction) error {
	userId := b.newUserId()
	settings := model.UserSettings{
		Version: 1,
		Keys: map[crypto.PublicKey]model.UserKeySettings{
			b.PublicKey: {Power: 1, Scopes: model.AllScopes},
		},
		Supervisors: map[crypto.UserId]model.UserKeySettings{},
	}
	user := model.NewUser(userId, transaction.Envelope.UserId, settings, ctx.BlockId)
	user.FreeTransactions = uint32(b.SponsoredTransactions)

	if err := ctx.DB.UserHistory.Append(userId, model.UserHistory{
		BlockId: ctx.BlockId, Type: model.UserHistoryIncomingTransaction, TransactionId: transaction.Id,
	}); err != nil {
		return err
	}
	user.Operations++

	ctx.DB.UserSponsors.Append(transaction.Envelope.UserId, model.UserSponsor{
		BlockId: ctx.BlockId, TransactionId: transaction.Id, SponsoredUser: userId,
	})
	user.Sponsors++

	ctx.Users.AddUser(user)
	return nil
}
