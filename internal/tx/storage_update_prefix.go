package tx

import (
	"github.com/pkg/errors"

	"github.com/logpass/node/internal/config"
	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/model"
	"github.com/logpass/node/internal/serializer"
)

func init() {
	register(TypeStorageUpdatePrefix, decodeStorageUpdatePrefix)
}

// StorageUpdatePrefix replaces a prefix's allowed-writer set. Only the
// owner may update it (grounded on storage/update_prefix.cpp).
type StorageUpdatePrefix struct {
	Prefix      string
	NewSettings model.PrefixSettings
}

func decodeStorageUpdatePrefix(s *serializer.Serializer) (Body, error) {
	prefix, err := s.GetString8()
	if err != nil {
		return nil, err
	}
	count, err := s.GetUint8Count()
	if err != nil {
		return nil, err
	}
	allowed := make(map[crypto.UserId]struct{}, count)
	for i := 0; i < count; i++ {
		raw, err := s.GetFixed(crypto.UserIdSize)
		if err != nil {
			return nil, err
		}
		var id crypto.UserId
		copy(id[:], raw)
		allowed[id] = struct{}{}
	}
	return &StorageUpdatePrefix{Prefix: prefix, NewSettings: model.PrefixSettings{AllowedUsers: allowed}}, nil
}

func (b *StorageUpdatePrefix) Type() Type { return TypeStorageUpdatePrefix }

func (b *StorageUpdatePrefix) Settings() Settings {
	return Settings{FeeMultiplier: 1, MinimumPowerLevel: config.PowerLevelMedium}
}

func (b *StorageUpdatePrefix) SerializeBody(s *serializer.Serializer) {
	_ = s.PutString8(b.Prefix)
	_ = s.PutUint8Count(len(b.NewSettings.AllowedUsers))
	for id := range b.NewSettings.AllowedUsers {
		s.PutFixed(id.Bytes())
	}
}

func (b *StorageUpdatePrefix) Cost() uint64 { return 0 }

func (b *StorageUpdatePrefix) ValidateBody(ctx *Context, transaction *Transaction) error {
	if !model.PrefixIsIdValid(b.Prefix) {
		return errors.New("tx: invalid storage prefix")
	}
	prefix := ctx.DB.StoragePrefixes.GetPrefix(b.Prefix, false)
	if prefix == nil {
		return errors.New("tx: storage prefix does not exist")
	}
	if prefix.Owner != transaction.Envelope.UserId {
		return errors.New("tx: storage prefix is not owned by transaction user")
	}
	return b.NewSettings.Validate(prefix.Owner)
}

func (b *StorageUpdatePrefix) ExecuteBody(ctx *Context, transaction *Transaction) error {
	prefix := ctx.DB.StoragePrefixes.GetPrefix(b.Prefix, false).Clone(ctx.BlockId)
	prefix.Settings = b.NewSettings
	ctx.DB.StoragePrefixes.UpdatePrefix(prefix)
	return nil
}
