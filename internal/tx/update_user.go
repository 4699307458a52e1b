package tx

import (
	"github.com/pkg/errors"

	"github.com/logpass/node/internal/config"
	"github.com/logpass/node/internal/model"
	"github.com/logpass/node/internal/serializer"
)

func init() {
	register(TypeUpdateUser, decodeUpdateUser)
}

// UpdateUser schedules a new UserSettings to activate after the delay its
// acting power level's KeysUpdateTimes entry prescribes (grounded on
// update_user.cpp). It ignores lock (a locked key/supervisor can still
// initiate a settings change) and requires at least the lowest power
// level.
type UpdateUser struct {
	NewSettings model.UserSettings
}

func decodeUpdateUser(s *serializer.Serializer) (Body, error) {
	settings, err := model.DeserializeUserSettings(s)
	if err != nil {
		return nil, err
	}
	return &UpdateUser{NewSettings: settings}, nil
}

func (b *UpdateUser) Type() Type { return TypeUpdateUser }

func (b *UpdateUser) Settings() Settings {
	return Settings{IgnoresLock: true, IsUserManagement: true, FeeMultiplier: 1, MinimumPowerLevel: config.PowerLevelLowest}
}

func (b *UpdateUser) SerializeBody(s *serializer.Serializer) {
	model.SerializeUserSettings(s, b.NewSettings)
}

func (b *UpdateUser) Cost() uint64 { return 0 }

func (b *UpdateUser) ValidateBody(ctx *Context, transaction *Transaction) error {
	user := ctx.Users.Get(transaction.Envelope.UserId, false)
	env := transaction.Envelope
	level, _ := user.GetPowerLevel(env, ctx.supervisorResolver(env, true), true)
	if level.Level == config.PowerLevelInvalid {
		return errors.New("tx: transaction has invalid power level")
	}
	return user.ValidateNewSettings(b.NewSettings, level)
}

func (b *UpdateUser) ExecuteBody(ctx *Context, transaction *Transaction) error {
	env := transaction.Envelope
	user := ctx.Users.Get(env.UserId, false).Clone(ctx.BlockId)
	level, _ := user.GetPowerLevel(env, ctx.supervisorResolver(env, true), true)
	hadPendingUpdate := user.PendingUpdate != nil
	var previousBlockId uint32
	if hadPendingUpdate {
		previousBlockId = user.PendingUpdate.BlockId
	}
	user.SetPendingUpdate(level, b.NewSettings, ctx.BlockId, transaction.Id)
	// a replacement that moves the activation block is scheduled again
	ctx.Users.UpdateUser(user, hadPendingUpdate && user.PendingUpdate.BlockId == previousBlockId)
	return nil
}
