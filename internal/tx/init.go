package tx

import (
	"github.com/pkg/errors"

	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/model"
	"github.com/logpass/node/internal/serializer"
)

func init() {
	register(TypeInit, decodeInit)
}

// Init is the genesis transaction: it creates the first user and miner
// and seeds the database. It is accepted only for block 1 and bypasses
// the generic validation pipeline entirely (Execute still applies the
// generic effects to it), since there is no existing signer to
// validate against (grounded on init.cpp, the one type whose validate()
// does not call the base Transaction::validate).
type Init struct {
	Version            uint8
	InitializationTime uint64
	BlockInterval      uint32
}

func decodeInit(s *serializer.Serializer) (Body, error) {
	b := &Init{}
	var err error
	if b.Version, err = s.GetUint8(); err != nil {
		return nil, err
	}
	if b.InitializationTime, err = s.GetUint64(); err != nil {
		return nil, err
	}
	if b.BlockInterval, err = s.GetUint32(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Init) Type() Type { return TypeInit }

func (b *Init) Settings() Settings {
	return Settings{IsBlockchainManagement: true}
}

func (b *Init) SerializeBody(s *serializer.Serializer) {
	s.PutUint8(b.Version)
	s.PutUint64(b.InitializationTime)
	s.PutUint32(b.BlockInterval)
}

func (b *Init) Cost() uint64 { return 0 }

func (b *Init) ValidateBody(ctx *Context, transaction *Transaction) error {
	if transaction.BlockId != 1 || ctx.BlockId != 1 {
		return errors.New("tx: init transaction can be executed only in first block")
	}
	if transaction.Pricing != 0 {
		return errors.New("tx: init transaction must have pricing set to 0")
	}
	if b.Version != 1 {
		return errors.New("tx: invalid init transaction version")
	}
	if ctx.DB.Blocks.GetLatestBlockId() != 0 {
		return errors.New("tx: blockchain is already initialized")
	}
	if ctx.DB.Transactions.GetTransactionsCount(false) != 0 {
		return errors.New("tx: blockchain is already initialized")
	}
	if ctx.DB.Users.GetUsersCount(false) != 0 {
		return errors.New("tx: blockchain is already initialized")
	}
	if b.InitializationTime == 0 {
		return errors.New("tx: invalid initialization time")
	}
	if b.InitializationTime%60 != 0 {
		return errors.New("tx: initialization time can not contain seconds")
	}
	if b.BlockInterval == 0 {
		return errors.New("tx: invalid block interval")
	}

	env := transaction.Envelope
	if len(env.CoSigners) != 0 || env.UserId != crypto.UserIdFromPublicKey(env.MainKey) {
		return errors.New("tx: invalid signatures for init transaction")
	}
	if err := env.Validate(); err != nil {
		return errors.Wrap(err, "tx: invalid envelope")
	}
	return env.VerifySignatures(transaction.SignedPayload())
}

func (b *Init) ExecuteBody(ctx *Context, transaction *Transaction) error {
	env := transaction.Envelope
	userId := crypto.UserIdFromPublicKey(env.MainKey)
	minerId := crypto.MinerIdFromPublicKey(env.MainKey)

	settings := model.UserSettings{
		Version: 1,
		Keys: map[crypto.PublicKey]model.UserKeySettings{
			env.MainKey: {Power: 1, Scopes: model.AllScopes},
		},
		Supervisors: map[crypto.UserId]model.UserKeySettings{},
	}
	user := model.NewUser(userId, userId, settings, ctx.BlockId)
	user.Tokens = ctx.Cfg.FirstUserBalance
	user.Miner = minerId
	ctx.Users.AddUser(user)

	miner := model.NewMiner(minerId, userId, ctx.BlockId, ctx.Cfg.StakingDuration)
	miner.AddStake(ctx.Cfg.FirstUserStake, true)
	ctx.DB.Miners.AddMiner(miner)

	return nil
}
