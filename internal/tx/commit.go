package tx

import (
	"github.com/pkg/errors"

	"github.com/logpass/node/internal/config"
	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/serializer"
)

func init() {
	register(TypeCommit, decodeCommit)
}

// Commit closes a block: it pays MinerId the reward it independently
// recomputes from the block's own aggregate counters, and rejects itself
// if one already ran this block (grounded on commit.cpp). The reward is
// credited straight to free stake and immediately unlocked, never
// touching the locked-stake buckets a staking deposit would use.
type Commit struct {
	MinerId      crypto.MinerId
	Transactions uint32
	Users        uint64
	Tokens       uint64
	StakedTokens uint64
	Reward       uint64
}

func decodeCommit(s *serializer.Serializer) (Body, error) {
	b := &Commit{}
	id, err := s.GetFixed(crypto.MinerIdSize)
	if err != nil {
		return nil, err
	}
	copy(b.MinerId[:], id)
	if b.Transactions, err = s.GetUint32(); err != nil {
		return nil, err
	}
	if b.Users, err = s.GetUint64(); err != nil {
		return nil, err
	}
	if b.Tokens, err = s.GetUint64(); err != nil {
		return nil, err
	}
	if b.StakedTokens, err = s.GetUint64(); err != nil {
		return nil, err
	}
	if b.Reward, err = s.GetUint64(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Commit) Type() Type { return TypeCommit }

func (b *Commit) Settings() Settings {
	return Settings{IsBlockchainManagement: true, MinimumPowerLevel: config.PowerLevelLowest}
}

func (b *Commit) SerializeBody(s *serializer.Serializer) {
	s.PutFixed(b.MinerId.Bytes())
	s.PutUint32(b.Transactions)
	s.PutUint64(b.Users)
	s.PutUint64(b.Tokens)
	s.PutUint64(b.StakedTokens)
	s.PutUint64(b.Reward)
}

func (b *Commit) Cost() uint64 { return 0 }

// getMiningReward reproduces commit.cpp's static reward formula: the
// block reward tops up whatever the network is still missing toward its
// maximum token supply, capped at what per-transaction fees and the
// missing-supply schedule actually generate this block.
func getMiningReward(cfg config.Config, pricing int16, newTransactions uint32, tokens, stakedTokens uint64) uint64 {
	maxTokens := cfg.FirstUserBalance + cfg.FirstUserStake
	var missingTokens uint64
	if maxTokens > tokens+stakedTokens {
		missingTokens = maxTokens - tokens - stakedTokens
	}
	transactionFee := (cfg.TransactionFee * 25) / uint64(24+pricing)
	transactionsReward := uint64(newTransactions) * transactionFee / 5
	missingTokensReward := missingTokens / (uint64(cfg.BlocksPerDay) * uint64(cfg.StakingDuration) / 2)

	reward := transactionsReward + missingTokensReward
	if reward > missingTokens {
		reward = missingTokens
	}
	return reward
}

func (b *Commit) ValidateBody(ctx *Context, transaction *Transaction) error {
	if ctx.DB.Default.CommitSeen() {
		return errors.New("tx: block already has a commit transaction")
	}
	if transaction.Envelope.Size() != 1 {
		return errors.New("tx: commit transaction must have a single signature")
	}

	latest := ctx.DB.Blocks.GetLatestBlockId()
	if ctx.BlockId <= latest {
		return errors.New("tx: invalid commit block")
	}
	queue := ctx.DB.Blocks.GetMinersQueue()
	index := ctx.BlockId - latest - 1
	if index >= uint32(len(queue)) || queue[index] != b.MinerId {
		return errors.New("tx: transaction miner is not next in the mining queue")
	}

	newTransactions := ctx.DB.Transactions.GetTransactionsCount(false) - ctx.DB.Transactions.GetTransactionsCount(true)
	users := ctx.DB.Users.GetUsersCount(false)
	tokens := ctx.DB.Users.GetTokens(false)
	stakedTokens := ctx.DB.Miners.GetStakedTokens(false)

	if uint64(b.Transactions) != newTransactions || b.Users != users ||
		b.Tokens != tokens || b.StakedTokens != stakedTokens {
		return errors.New("tx: commit transaction counters do not match blockchain state")
	}

	expectedReward := getMiningReward(ctx.Cfg, transaction.Pricing, b.Transactions, tokens, stakedTokens)
	if b.Reward != expectedReward {
		return errors.New("tx: commit transaction reward does not match expected reward")
	}
	return nil
}

func (b *Commit) ExecuteBody(ctx *Context, transaction *Transaction) error {
	ctx.DB.Default.MarkCommitSeen()

	miner := ctx.DB.Miners.GetMiner(b.MinerId, false).Clone(ctx.BlockId)
	miner.Stake += b.Reward
	miner.UnlockStake(ctx.BlockId, ctx.Cfg.BlocksPerDay)
	ctx.DB.Miners.UpdateMiner(miner)
	return nil
}
