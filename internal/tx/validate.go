package tx

import (
	"github.com/pkg/errors"

	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/envelope"
)

func absInt16(v int16) int16 {
	if v < 0 {
		return -v
	}
	return v
}

func mergeKeys(dst, src map[crypto.PublicKey]struct{}) {
	for k := range src {
		dst[k] = struct{}{}
	}
}

// Validate runs the nine generic checks every transaction must pass
// before its type-specific ValidateBody runs (spec.md §4.4): envelope
// structure and signatures, expiry,
// duplication, signer existence + power level, minimum power level,
// payer selection, used-keys-equals-signatures, spending feasibility,
// and pricing rules.
func Validate(ctx *Context, transaction *Transaction) error {
	// the init transaction creates the genesis user and miner, so it can
	// not go through the generic pipeline below (there is no signer to
	// look up yet) — it validates itself entirely, envelope included.
	if transaction.Body.Type() == TypeInit {
		return transaction.Body.ValidateBody(ctx, transaction)
	}

	settings := transaction.Body.Settings()
	env := transaction.Envelope

	// 0. envelope structure and signatures
	if err := env.Validate(); err != nil {
		return errors.Wrap(err, "tx: invalid envelope")
	}
	if err := env.VerifySignatures(transaction.SignedPayload()); err != nil {
		return errors.Wrap(err, "tx: signature verification failed")
	}

	// 1. expiry
	if ctx.BlockId >= transaction.BlockId+ctx.Cfg.MaxBlockIdDifference || transaction.BlockId > ctx.BlockId {
		return errors.New("tx: transaction is outdated")
	}

	// 2. duplication
	seen, err := ctx.DB.TransactionHashes.Seen(transaction.DuplicationHash(), transaction.BlockId, ctx.BlockId)
	if err != nil {
		return errors.Wrap(err, "tx: duplication check")
	}
	if seen {
		return errors.New("tx: transaction already exists")
	}

	// 3. signer existence + power level
	user := ctx.Users.Get(env.UserId, false)
	if user == nil {
		return errors.New("tx: transaction user does not exist")
	}
	powerLevel, usedKeys := user.GetPowerLevel(env, ctx.supervisorResolver(env, settings.IgnoresLock), settings.IgnoresLock)
	if powerLevel.Level == 0 {
		return errors.New("tx: transaction has invalid power level")
	}

	// 4. minimum power level
	if powerLevel.Level < settings.MinimumPowerLevel {
		return errors.New("tx: transaction has too low power level")
	}

	// 5. payer (sponsor) selection
	payer := user
	payerPowerLevel := powerLevel
	if env.Type == envelope.TypeSponsor {
		if transaction.Pricing > 0 {
			return errors.New("tx: transaction with sponsor can not stake transaction fees")
		}
		if env.UserId == env.SponsorId {
			return errors.New("tx: transaction user can not be the same as sponsor")
		}
		payer = ctx.Users.Get(env.SponsorId, false)
		if payer == nil {
			return errors.New("tx: transaction sponsor does not exist")
		}
		var payerUsedKeys map[crypto.PublicKey]struct{}
		payerPowerLevel, payerUsedKeys = payer.GetPowerLevel(env, noSupervisors, false)
		mergeKeys(usedKeys, payerUsedKeys)
	} else {
		// make sure at least one of the signer's own keys was used
		_, ownUsedKeys := user.GetPowerLevel(env, noSupervisors, true)
		if len(ownUsedKeys) == 0 {
			return errors.New("tx: transaction does not have any user key signature to pay for itself")
		}
	}
	if payerPowerLevel.Level == 0 {
		return errors.New("tx: transaction payer has invalid power level")
	}

	// 6. used-keys-equals-signatures
	if len(usedKeys) != env.Size() {
		return errors.New("tx: not all public keys from the signature have been used")
	}

	// 7. spending feasibility (transaction cost, paid by the signer)
	if !user.CanSpendTokens(transaction.Body.Cost(), powerLevel) {
		return errors.New("tx: user has too low balance or reached spending limits")
	}

	// 8. pricing rules
	dbPricing := ctx.DB.Default.Pricing(false)
	switch {
	case settings.IsBlockchainManagement:
		if transaction.Pricing != dbPricing {
			return errors.New("tx: transaction has invalid pricing")
		}
	case transaction.Pricing == 0:
		if !settings.IsUserManagement {
			return errors.New("tx: transaction has invalid pricing (can not be 0)")
		}
		if payer.FreeTransactions == 0 {
			return errors.New("tx: transaction payer can't execute this transaction for free")
		}
	default:
		if absInt16(transaction.Pricing) != dbPricing {
			return errors.New("tx: transaction has different than blockchain pricing")
		}
		if transaction.Pricing > 0 && !payer.Miner.IsValid() {
			return errors.New("tx: transaction payer doesn't have miner set to use staking transaction")
		}
		payerCost := Fee(ctx.Cfg, settings.FeeMultiplier, transaction.Pricing)
		if env.Type != envelope.TypeSponsor {
			payerCost += transaction.Body.Cost()
		}
		if !payer.CanSpendTokens(payerCost, payerPowerLevel) {
			return errors.New("tx: transaction payer has too low balance or reached spending limits")
		}
	}

	// 9. type-specific checks
	return transaction.Body.ValidateBody(ctx, transaction)
}
