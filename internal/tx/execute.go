package tx

import (
	"github.com/logpass/node/internal/envelope"
	"github.com/logpass/node/internal/model"
)

// Execute applies transaction against ctx, assuming Validate already
// passed for the same blockId. It runs the type-specific mutation first
// (ExecuteBody — matching the original's derived-class-executes-before-
// base ordering), then the five generic effects common to every type
// (spec.md §4.4): recording the transaction, re-deriving the signer's
// power level, deducting the free-transaction-or-fee, deducting the
// type's cost, and appending history rows for signer and payer.
func Execute(ctx *Context, transaction *Transaction, encoded []byte) error {
	settings := transaction.Body.Settings()
	env := transaction.Envelope

	if err := transaction.Body.ExecuteBody(ctx, transaction); err != nil {
		return err
	}

	ctx.Transactions.AddTransaction(transaction.Id, encoded, transaction.DuplicationHash(), transaction.BlockId)

	beforeClone := ctx.Users.Get(env.UserId, false)
	userHadPendingUpdate := beforeClone.PendingUpdate != nil
	user := beforeClone.Clone(ctx.BlockId)
	powerLevel, _ := user.GetPowerLevel(env, ctx.supervisorResolver(env, settings.IgnoresLock), settings.IgnoresLock)

	payer := user
	payerPowerLevel := powerLevel
	hadPendingUpdate := false
	if env.Type == envelope.TypeSponsor {
		sponsor := ctx.Users.Get(env.SponsorId, false)
		hadPendingUpdate = sponsor.PendingUpdate != nil
		payer = sponsor.Clone(ctx.BlockId)
		payerPowerLevel, _ = payer.GetPowerLevel(env, noSupervisors, false)
	}

	if !settings.IsBlockchainManagement {
		if transaction.Pricing == 0 {
			payer.FreeTransactions--
		} else {
			fee := Fee(ctx.Cfg, settings.FeeMultiplier, transaction.Pricing)
			payer.SpendTokens(fee, payerPowerLevel)
			if transaction.Pricing > 0 {
				miner := ctx.DB.Miners.GetMiner(payer.Miner, false).Clone(ctx.BlockId)
				miner.AddStake(fee, true)
				ctx.DB.Miners.UpdateMiner(miner)
			}
		}
	}

	user.SpendTokens(transaction.Body.Cost(), powerLevel)

	if user.Id != payer.Id {
		if err := ctx.DB.UserHistory.Append(payer.Id, model.UserHistory{
			BlockId: ctx.BlockId, Type: model.UserHistorySponsoredTransaction, TransactionId: transaction.Id,
		}); err != nil {
			return err
		}
		payer.Operations++
		ctx.Users.UpdateUser(payer, hadPendingUpdate)
	}

	if err := ctx.DB.UserHistory.Append(user.Id, model.UserHistory{
		BlockId: ctx.BlockId, Type: model.UserHistoryOutgoingTransaction, TransactionId: transaction.Id,
	}); err != nil {
		return err
	}
	user.Operations++
	ctx.Users.UpdateUser(user, userHadPendingUpdate)

	return nil
}
