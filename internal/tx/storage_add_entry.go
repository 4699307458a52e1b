package tx

import (
	"github.com/pkg/errors"

	"github.com/logpass/node/internal/model"
	"github.com/logpass/node/internal/serializer"
)

func init() {
	register(TypeStorageAddEntry, decodeStorageAddEntry)
}

// StorageAddEntry writes a key/value pair under a prefix the signer owns
// or is allowed to write to. The value itself is not stored in a
// separate column — it lives in this transaction's own serialized body,
// and storage_entries only records which transaction last wrote a given
// prefix+key (grounded on storage/add_entry.cpp).
type StorageAddEntry struct {
	Prefix string
	Key    string
	Value  string
}

func decodeStorageAddEntry(s *serializer.Serializer) (Body, error) {
	b := &StorageAddEntry{}
	var err error
	if b.Prefix, err = s.GetString8(); err != nil {
		return nil, err
	}
	if b.Key, err = s.GetString8(); err != nil {
		return nil, err
	}
	value, err := s.GetBytes16()
	if err != nil {
		return nil, err
	}
	b.Value = string(value)
	return b, nil
}

func (b *StorageAddEntry) Type() Type { return TypeStorageAddEntry }

// Settings reproduces the original's getFee() override: one extra fee
// unit per kilobyte of key+value, on top of the base multiplier.
func (b *StorageAddEntry) Settings() Settings {
	return Settings{FeeMultiplier: uint64(1 + (len(b.Key)+len(b.Value))/1024)}
}

func (b *StorageAddEntry) SerializeBody(s *serializer.Serializer) {
	_ = s.PutString8(b.Prefix)
	_ = s.PutString8(b.Key)
	_ = s.PutBytes16([]byte(b.Value))
}

func (b *StorageAddEntry) Cost() uint64 { return 0 }

func (b *StorageAddEntry) ValidateBody(ctx *Context, transaction *Transaction) error {
	if !model.PrefixIsIdValid(b.Prefix) {
		return errors.New("tx: invalid storage prefix")
	}
	if b.Key == "" {
		return errors.New("tx: storage entry key can not be empty")
	}
	if len(b.Value) > ctx.Cfg.StorageEntryMaxValueLength {
		return errors.New("tx: storage entry value is too large")
	}
	prefix := ctx.DB.StoragePrefixes.GetPrefix(b.Prefix, false)
	if prefix == nil {
		return errors.New("tx: storage prefix does not exist")
	}
	if !prefix.CanWrite(transaction.Envelope.UserId) {
		return errors.New("tx: transaction user can not write to this storage prefix")
	}
	history, err := ctx.DB.StorageEntries.History(b.Prefix, b.Key)
	if err != nil {
		return errors.Wrap(err, "tx: storage entry history lookup")
	}
	if len(history) != 0 {
		return errors.New("tx: storage entry already exists")
	}
	return nil
}

func (b *StorageAddEntry) ExecuteBody(ctx *Context, transaction *Transaction) error {
	prefix := ctx.DB.StoragePrefixes.GetPrefix(b.Prefix, false).Clone(ctx.BlockId)
	prefix.Entries++
	prefix.LastEntryBlock = ctx.BlockId
	ctx.DB.StoragePrefixes.UpdatePrefix(prefix)

	ctx.DB.StorageEntries.AppendEntry(b.Prefix, b.Key, transaction.Id)
	return nil
}
