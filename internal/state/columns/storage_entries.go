package columns

import (
	"sync"

	"github.com/stumble/gorocksdb"

	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/serializer"
	"github.com/logpass/node/internal/store"
)

type StorageEntriesState struct {
	Version uint8
	BlockId uint32
	Count   uint64
}

func (s StorageEntriesState) Clone() StorageEntriesState { return s }
func (s StorageEntriesState) GetBlockId() uint32         { return s.BlockId }
func (s *StorageEntriesState) SetBlockId(b uint32)        { s.BlockId = b }

func (s StorageEntriesState) Serialize(w *serializer.Serializer) {
	w.PutUint8(1)
	w.PutUint32BE(s.BlockId)
	w.PutUint64(s.Count)
}

func decodeStorageEntriesState(r *serializer.Serializer) (StorageEntriesState, error) {
	var s StorageEntriesState
	var err error
	if s.Version, err = r.GetUint8(); err != nil {
		return s, err
	}
	if s.BlockId, err = r.GetUint32BE(); err != nil {
		return s, err
	}
	if s.Count, err = r.GetUint64(); err != nil {
		return s, err
	}
	return s, nil
}

const StorageEntriesColumnName = "storage_entries"

// StorageEntriesColumn is append-only: key = uint8-length-prefixed prefix
// id followed by uint8-length-prefixed entry id (see EntryKey),
// value = the growing list of transaction ids that have written this
// entry, appended via the AppendMergeOperator rather than read-modify-
// write so concurrent entries under the same prefix never contend.
type StorageEntriesColumn struct {
	*store.StatefulColumn[StorageEntriesState]

	mu     sync.Mutex
	staged [][2][]byte // key, single transaction id to append
}

func NewStorageEntriesColumn(engine *store.Engine) *StorageEntriesColumn {
	return &StorageEntriesColumn{
		StatefulColumn: store.NewStatefulColumn(engine, StorageEntriesColumnName, StorageEntriesState{Version: 1}, decodeStorageEntriesState),
	}
}

func EntryKey(prefixId, entryId string) []byte {
	s := serializer.New()
	_ = s.PutString8(prefixId)
	_ = s.PutString8(entryId)
	return s.Bytes()
}

// AppendEntry stages a merge recording that txId wrote prefixId/entryId.
func (c *StorageEntriesColumn) AppendEntry(prefixId, entryId string, txId crypto.TransactionId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staged = append(c.staged, [2][]byte{EntryKey(prefixId, entryId), append([]byte(nil), txId.Bytes()...)})
}

// History returns the full merged history for prefixId/entryId: a
// concatenation of 39-byte transaction ids, oldest first.
func (c *StorageEntriesColumn) History(prefixId, entryId string) ([]crypto.TransactionId, error) {
	raw, err := c.Get(EntryKey(prefixId, entryId))
	if err != nil || raw == nil {
		return nil, err
	}
	const idSize = crypto.TransactionIdSize
	out := make([]crypto.TransactionId, 0, len(raw)/idSize)
	for i := 0; i+idSize <= len(raw); i += idSize {
		var id crypto.TransactionId
		copy(id[:], raw[i:i+idSize])
		out = append(out, id)
	}
	return out, nil
}

func (c *StorageEntriesColumn) Prepare(blockId uint32, batch *gorocksdb.WriteBatch) {
	c.mu.Lock()
	for _, kv := range c.staged {
		c.MergeInBatch(batch, kv[0], kv[1])
	}
	c.mu.Unlock()
	c.StatefulColumn.Prepare(blockId, batch)
}

func (c *StorageEntriesColumn) Commit() {
	c.mu.Lock()
	st := c.State(false)
	st.Count += uint64(len(c.staged))
	c.SetState(st)
	c.staged = nil
	c.mu.Unlock()
	c.StatefulColumn.Commit()
}

func (c *StorageEntriesColumn) Clear() {
	c.mu.Lock()
	c.staged = nil
	c.mu.Unlock()
	c.StatefulColumn.Clear()
}
