package tx

import (
	"github.com/logpass/node/internal/config"
	"github.com/logpass/node/internal/serializer"
)

func init() {
	register(TypeLogoutUser, decodeLogoutUser)
}

// LogoutUser records the block at which the user stopped actively
// signing, a marker read-only consumers use to detect abandoned accounts
// (grounded on logout_user.cpp). It carries no fields of its own.
type LogoutUser struct{}

func decodeLogoutUser(s *serializer.Serializer) (Body, error) {
	return &LogoutUser{}, nil
}

func (b *LogoutUser) Type() Type { return TypeLogoutUser }

func (b *LogoutUser) Settings() Settings {
	return Settings{IgnoresLock: true, IsUserManagement: true, FeeMultiplier: 1, MinimumPowerLevel: config.PowerLevelLowest}
}

func (b *LogoutUser) SerializeBody(s *serializer.Serializer) {}

func (b *LogoutUser) Cost() uint64 { return 0 }

func (b *LogoutUser) ValidateBody(ctx *Context, transaction *Transaction) error {
	return nil
}

func (b *LogoutUser) ExecuteBody(ctx *Context, transaction *Transaction) error {
	user := ctx.Users.Get(transaction.Envelope.UserId, false).Clone(ctx.BlockId)
	user.Logout = ctx.BlockId
	ctx.Users.UpdateUser(user, user.PendingUpdate != nil)
	return nil
}
