package tx

import (
	"github.com/logpass/node/internal/config"
	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/envelope"
	"github.com/logpass/node/internal/model"
	"github.com/logpass/node/internal/state"
)

// Context bundles everything a Body's Validate/Execute needs: the
// database facades, the block currently being assembled, and the
// constant table. One Context is built per block and reused across
// every transaction validated/executed within it.
type Context struct {
	DB      *state.Database
	Cfg     config.Config
	BlockId uint32

	Users        state.UsersFacade
	Transactions state.TransactionsFacade
	Blocks       state.BlocksFacade
}

// NewContext builds a Context for assembling blockId against db.
func NewContext(db *state.Database, cfg config.Config, blockId uint32) *Context {
	return &Context{
		DB:           db,
		Cfg:          cfg,
		BlockId:      blockId,
		Users:        db.UsersFacade(),
		Transactions: db.TransactionsFacade(),
		Blocks:       db.BlocksFacade(),
	}
}

// supervisorResolver builds a model.SupervisorResolver bound to env: a
// supervisor counts only if its own power level, computed against the
// same signature set and without recursing into its own supervisors,
// reaches the threshold its own security rules demand of a supervising
// signer (mirrors the original's nested getPowerLevel(signatures, {},
// ...) call).
func (ctx *Context) supervisorResolver(env *envelope.Envelope, ignoresLock bool) model.SupervisorResolver {
	return func(id crypto.UserId) (model.PowerLevel, map[crypto.PublicKey]struct{}, bool) {
		supervisor := ctx.Users.Get(id, false)
		if supervisor == nil {
			return model.Invalid(), nil, false
		}
		level, usedKeys := supervisor.GetPowerLevel(env, noSupervisors, ignoresLock)
		threshold := model.NewPowerLevel(supervisor.Settings.Rules.SupervisingPowerLevel, 0, 0)
		return level, usedKeys, level.AtLeast(threshold)
	}
}

// noSupervisors terminates the recursion: a supervisor's own power level
// is computed from its signing keys only, never its own supervisors.
func noSupervisors(crypto.UserId) (model.PowerLevel, map[crypto.PublicKey]struct{}, bool) {
	return model.Invalid(), nil, false
}
