package columns

import (
	"sync"

	"github.com/stumble/gorocksdb"

	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/serializer"
	"github.com/logpass/node/internal/store"
)

// TransactionsState only tracks the running count CommitTransaction
// validates against; the transactions themselves live under per-id keys,
// not inside the state record.
type TransactionsState struct {
	Version uint8
	BlockId uint32
	Count   uint64
}

func (s TransactionsState) Clone() TransactionsState { return s }
func (s TransactionsState) GetBlockId() uint32       { return s.BlockId }
func (s *TransactionsState) SetBlockId(b uint32)      { s.BlockId = b }

func (s TransactionsState) Serialize(w *serializer.Serializer) {
	w.PutUint8(1)
	w.PutUint32BE(s.BlockId)
	w.PutUint64(s.Count)
}

func decodeTransactionsState(r *serializer.Serializer) (TransactionsState, error) {
	var s TransactionsState
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

const TransactionsColumnName = "transactions"

// TransactionsColumn maps TransactionId -> the raw encoded transaction, so
// a later block can look up a transaction already committed by id (e.g.
// duplicate-commit detection, history lookups).
type TransactionsColumn struct {
	*store.StatefulColumn[TransactionsState]

	mu     sync.RWMutex
	staged map[crypto.TransactionId][]byte
}

func NewTransactionsColumn(engine *store.Engine) *TransactionsColumn {
	return &TransactionsColumn{
		StatefulColumn: store.NewStatefulColumn(engine, TransactionsColumnName, TransactionsState{Version: 1}, decodeTransactionsState),
		staged:         map[crypto.TransactionId][]byte{},
	}
}

// AddTransaction stages the encoded transaction under its id.
func (c *TransactionsColumn) AddTransaction(id crypto.TransactionId, encoded []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staged[id] = encoded
}

func (c *TransactionsColumn) GetTransaction(id crypto.TransactionId) ([]byte, error) {
	c.mu.RLock()
	if raw, ok := c.staged[id]; ok {
		c.mu.RUnlock()
		return raw, nil
	}
	c.mu.RUnlock()
	return c.Get(id.Bytes())
}

func (c *TransactionsColumn) GetTransactionsCount(confirmed bool) uint64 {
	if confirmed {
		return c.State(true).Count
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.State(true).Count + uint64(len(c.staged))
}

func (c *TransactionsColumn) Prepare(blockId uint32, batch *gorocksdb.WriteBatch) {
	c.mu.RLock()
	for id, raw := range c.staged {
		c.PutInBatch(batch, id.Bytes(), raw)
	}
	c.mu.RUnlock()
	c.StatefulColumn.Prepare(blockId, batch)
}

func (c *TransactionsColumn) Commit() {
	c.mu.Lock()
	st := c.State(false)
	st.Count += uint64(len(c.staged))
	c.SetState(st)
	c.staged = map[crypto.TransactionId][]byte{}
	c.mu.Unlock()
	c.StatefulColumn.Commit()
}

func (c *TransactionsColumn) Clear() {
	c.mu.Lock()
	c.staged = map[crypto.TransactionId][]byte{}
	c.mu.Unlock()
	c.StatefulColumn.Clear()
}
