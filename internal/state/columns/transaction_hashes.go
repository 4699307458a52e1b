package columns

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stumble/gorocksdb"

	"github.com/logpass/node/internal/config"
	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/serializer"
	"github.com/logpass/node/internal/store"
)

// TransactionHashesState only tracks blockId; the column itself is a
// rolling window keyed by {blockId BE, hash} used to reject a
// transaction replayed within config.MaxBlockIdDifference of its
// original blockId, per spec.md §4.4 duplicate-hash check. The column
// family carries a bloom filter (internal/store.Engine.Open) since every
// validate call probes it.
type TransactionHashesState struct {
	Version uint8
	BlockId uint32
}

func (s TransactionHashesState) Clone() TransactionHashesState { return s }
func (s TransactionHashesState) GetBlockId() uint32            { return s.BlockId }
func (s *TransactionHashesState) SetBlockId(b uint32)           { s.BlockId = b }

func (s TransactionHashesState) Serialize(w *serializer.Serializer) {
	w.PutUint8(1)
	w.PutUint32BE(s.BlockId)
}

func decodeTransactionHashesState(r *serializer.Serializer) (TransactionHashesState, error) {
	var s TransactionHashesState
	var err error
	if s.Version, err = r.GetUint8(); err != nil {
		return s, err
	}
	if s.BlockId, err = r.GetUint32BE(); err != nil {
		return s, err
	}
	return s, nil
}

const TransactionHashesColumnName = "transaction_hashes"

type TransactionHashesColumn struct {
	*store.StatefulColumn[TransactionHashesState]
	cfg config.Config

	mu     sync.RWMutex
	staged map[crypto.Hash]uint32

	// activeBlocks tracks which blockIds currently hold at least one
	// recorded hash, so GC can skip the DeleteRangeCF call once the live
	// window is already empty instead of issuing it every commit.
	activeBlocks *roaring.Bitmap
}

func NewTransactionHashesColumn(engine *store.Engine, cfg config.Config) *TransactionHashesColumn {
	return &TransactionHashesColumn{
		StatefulColumn: store.NewStatefulColumn(engine, TransactionHashesColumnName, TransactionHashesState{Version: 1}, decodeTransactionHashesState),
		cfg:            cfg,
		staged:         map[crypto.Hash]uint32{},
		activeBlocks:   roaring.New(),
	}
}

func hashKey(blockId uint32, h crypto.Hash) []byte {
	s := serializer.New()
	s.PutUint32BE(blockId)
	s.PutFixed(h.Bytes())
	return s.Bytes()
}

// Seen reports whether hash was already recorded for some blockId within
// MaxBlockIdDifference of currentBlockId — the live replay window.
func (c *TransactionHashesColumn) Seen(h crypto.Hash, originalBlockId, currentBlockId uint32) (bool, error) {
	c.mu.RLock()
	if _, ok := c.staged[h]; ok {
		c.mu.RUnlock()
		return true, nil
	}
	c.mu.RUnlock()
	if currentBlockId > originalBlockId+c.cfg.MaxBlockIdDifference {
		return false, nil
	}
	raw, err := c.Get(hashKey(originalBlockId, h))
	if err != nil {
		return false, err
	}
	return raw != nil, nil
}

// Record stages hash as seen at blockId.
func (c *TransactionHashesColumn) Record(h crypto.Hash, blockId uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staged[h] = blockId
	c.activeBlocks.Add(blockId)
}

func (c *TransactionHashesColumn) Prepare(blockId uint32, batch *gorocksdb.WriteBatch) {
	c.mu.RLock()
	for h, bId := range c.staged {
		c.PutInBatch(batch, hashKey(bId, h), []byte{1})
	}
	c.mu.RUnlock()
	c.StatefulColumn.Prepare(blockId, batch)
}

// GC deletes the range of hash records older than the replay window,
// called once per commit so the column never grows unbounded. It skips
// the RocksDB range delete entirely once activeBlocks shows nothing
// below the cutoff was ever recorded.
func (c *TransactionHashesColumn) GC(batch *gorocksdb.WriteBatch, currentBlockId uint32) {
	if currentBlockId <= c.cfg.MaxBlockIdDifference {
		return
	}
	cutoff := currentBlockId - c.cfg.MaxBlockIdDifference

	c.mu.Lock()
	belowCutoff := roaring.New()
	belowCutoff.AddRange(0, uint64(cutoff))
	belowCutoff.And(c.activeBlocks)
	hasStale := !belowCutoff.IsEmpty()
	if hasStale {
		c.activeBlocks.RemoveRange(0, uint64(cutoff))
	}
	c.mu.Unlock()

	if !hasStale {
		return
	}

	start := serializer.New()
	start.PutUint32BE(0)
	limit := serializer.New()
	limit.PutUint32BE(cutoff)
	batch.DeleteRangeCF(c.Handle(), start.Bytes(), limit.Bytes())
}

func (c *TransactionHashesColumn) Commit() {
	c.mu.Lock()
	c.staged = map[crypto.Hash]uint32{}
	c.mu.Unlock()
	c.StatefulColumn.Commit()
}

func (c *TransactionHashesColumn) Clear() {
	c.mu.Lock()
	c.staged = map[crypto.Hash]uint32{}
	c.mu.Unlock()
	c.StatefulColumn.Clear()
}
