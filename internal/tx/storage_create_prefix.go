package tx

import (
	"github.com/pkg/errors"

	"github.com/logpass/node/internal/model"
	"github.com/logpass/node/internal/serializer"
)

func init() {
	register(TypeStorageCreatePrefix, decodeStorageCreatePrefix)
}

// StorageCreatePrefix reserves a storage namespace for the signer. It
// carries a 100x fee multiplier, matching the original's cost for
// claiming a prefix name permanently (grounded on storage/create_prefix.cpp).
type StorageCreatePrefix struct {
	Prefix string
}

func decodeStorageCreatePrefix(s *serializer.Serializer) (Body, error) {
	prefix, err := s.GetString8()
	if err != nil {
		return nil, err
	}
	return &StorageCreatePrefix{Prefix: prefix}, nil
}

func (b *StorageCreatePrefix) Type() Type { return TypeStorageCreatePrefix }

func (b *StorageCreatePrefix) Settings() Settings {
	return Settings{FeeMultiplier: 100}
}

func (b *StorageCreatePrefix) SerializeBody(s *serializer.Serializer) {
	_ = s.PutString8(b.Prefix)
}

func (b *StorageCreatePrefix) Cost() uint64 { return 0 }

func (b *StorageCreatePrefix) ValidateBody(ctx *Context, transaction *Transaction) error {
	if !model.PrefixIsIdValid(b.Prefix) {
		return errors.New("tx: invalid storage prefix")
	}
	if ctx.DB.StoragePrefixes.GetPrefix(b.Prefix, false) != nil {
		return errors.New("tx: storage prefix already exists")
	}
	return nil
}

func (b *StorageCreatePrefix) ExecuteBody(ctx *Context, transaction *Transaction) error {
	prefix := model.NewPrefix(b.Prefix, transaction.Envelope.UserId, ctx.BlockId)
	ctx.DB.StoragePrefixes.AddPrefix(prefix)
	return nil
}
