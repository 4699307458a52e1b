package columns

import (
	"sync"

	"github.com/stumble/gorocksdb"

	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/model"
	"github.com/logpass/node/internal/serializer"
	"github.com/logpass/node/internal/store"
)

// UserHistoryEntriesPerPage bounds how many fixed-width entries are
// merged under one RocksDB key, keeping individual values small enough
// that AppendMergeOperator never has to concatenate an unbounded blob.
const UserHistoryEntriesPerPage = 100

const userHistoryEntrySize = 4 + 1 + crypto.TransactionIdSize // blockId + type + txId

type UserHistoryState struct {
	Version uint8
	BlockId uint32
}

func (s UserHistoryState) Clone() UserHistoryState { return s }
func (s UserHistoryState) GetBlockId() uint32      { return s.BlockId }
func (s *UserHistoryState) SetBlockId(b uint32)     { s.BlockId = b }

func (s UserHistoryState) Serialize(w *serializer.Serializer) {
	w.PutUint8(1)
	w.PutUint32BE(s.BlockId)
}

func decodeUserHistoryState(r *serializer.Serializer) (UserHistoryState, error) {
	var s UserHistoryState
	var err error
	if s.Version, err = r.GetUint8(); err != nil {
		return s, err
	}
	if s.BlockId, err = r.GetUint32BE(); err != nil {
		return s, err
	}
	return s, nil
}

const UserHistoryColumnName = "user_history"

// UserHistoryColumn is the append-only activity log (§4.6): key =
// {userId, 'C'} holds the running entry count, {userId, page BE} holds
// up to UserHistoryEntriesPerPage merge-appended fixed-width entries.
type UserHistoryColumn struct {
	*store.StatefulColumn[UserHistoryState]

	mu      sync.Mutex
	counts  map[crypto.UserId]uint64 // confirmed counts, loaded lazily
	staged  []pendingHistoryEntry
	pending map[crypto.UserId]uint64 // confirmed+staged-so-far, for page math
}

type pendingHistoryEntry struct {
	user  crypto.UserId
	entry model.UserHistory
}

func NewUserHistoryColumn(engine *store.Engine) *UserHistoryColumn {
	return &UserHistoryColumn{
		StatefulColumn: store.NewStatefulColumn(engine, UserHistoryColumnName, UserHistoryState{Version: 1}, decodeUserHistoryState),
		counts:         map[crypto.UserId]uint64{},
		pending:        map[crypto.UserId]uint64{},
	}
}

func userHistoryCountKey(user crypto.UserId) []byte {
	s := serializer.New()
	s.PutFixed(user.Bytes())
	s.PutUint8('C')
	return s.Bytes()
}

func userHistoryPageKey(user crypto.UserId, page uint64) []byte {
	s := serializer.New()
	s.PutFixed(user.Bytes())
	s.PutUint32BE(uint32(page))
	return s.Bytes()
}

func (c *UserHistoryColumn) loadCount(user crypto.UserId) (uint64, error) {
	c.mu.Lock()
	if n, ok := c.counts[user]; ok {
		c.mu.Unlock()
		return n, nil
	}
	c.mu.Unlock()
	raw, err := c.Get(userHistoryCountKey(user))
	if err != nil {
		return 0, err
	}
	var n uint64
	if raw != nil {
		n, err = serializer.NewReader(raw).GetUint64()
		if err != nil {
			return 0, err
		}
	}
	c.mu.Lock()
	c.counts[user] = n
	c.mu.Unlock()
	return n, nil
}

// Append records one activity entry for user, to be merged into the
// current page on Prepare.
func (c *UserHistoryColumn) Append(user crypto.UserId, entry model.UserHistory) error {
	next, ok := c.pending[user]
	if !ok {
		n, err := c.loadCount(user)
		if err != nil {
			return err
		}
		next = n
	}
	c.mu.Lock()
	c.staged = append(c.staged, pendingHistoryEntry{user: user, entry: entry})
	c.pending[user] = next + 1
	c.mu.Unlock()
	return nil
}

func (c *UserHistoryColumn) Prepare(blockId uint32, batch *gorocksdb.WriteBatch) {
	c.mu.Lock()
	// Recompute per-user running index deterministically from the
	// loaded base count plus position within this block's staged slice.
	seen := map[crypto.UserId]uint64{}
	// Append already loaded every staged user's count into c.counts;
	// loadCount takes c.mu itself, so it is not called while c.mu is held.
	for _, pe := range c.staged {
		base := c.counts[pe.user]
		idx := base + seen[pe.user]
		seen[pe.user]++
		page := idx / UserHistoryEntriesPerPage
		c.MergeInBatch(batch, userHistoryPageKey(pe.user, page), encodeHistoryEntry(pe.entry))
	}
	for user, n := range seen {
		total := c.counts[user] + n
		s := serializer.New()
		s.PutUint64(total)
		c.PutInBatch(batch, userHistoryCountKey(user), s.Bytes())
		c.counts[user] = total
	}
	c.mu.Unlock()
	c.StatefulColumn.Prepare(blockId, batch)
}

func (c *UserHistoryColumn) Commit() {
	c.mu.Lock()
	c.staged = nil
	c.pending = map[crypto.UserId]uint64{}
	c.mu.Unlock()
	c.StatefulColumn.Commit()
}

func (c *UserHistoryColumn) Clear() {
	c.mu.Lock()
	c.staged = nil
	c.pending = map[crypto.UserId]uint64{}
	c.mu.Unlock()
	c.StatefulColumn.Clear()
}

func encodeHistoryEntry(e model.UserHistory) []byte {
	s := serializer.New()
	s.PutUint32BE(e.BlockId)
	s.PutUint8(uint8(e.Type))
	s.PutFixed(e.TransactionId.Bytes())
	return s.Bytes()
}

func decodeHistoryPage(raw []byte) ([]model.UserHistory, error) {
	var out []model.UserHistory
	for i := 0; i+userHistoryEntrySize <= len(raw); i += userHistoryEntrySize {
		r := serializer.NewReader(raw[i : i+userHistoryEntrySize])
		blockId, err := r.GetUint32BE()
		if err != nil {
			return nil, err
		}
		t, err := r.GetUint8()
		if err != nil {
			return nil, err
		}
		idB, err := r.GetFixed(crypto.TransactionIdSize)
		if err != nil {
			return nil, err
		}
		var id crypto.TransactionId
		copy(id[:], idB)
		out = append(out, model.UserHistory{BlockId: blockId, Type: model.UserHistoryType(t), TransactionId: id})
	}
	return out, nil
}

// Page returns the decoded entries stored in userId's given page index.
func (c *UserHistoryColumn) Page(user crypto.UserId, page uint64) ([]model.UserHistory, error) {
	raw, err := c.Get(userHistoryPageKey(user, page))
	if err != nil || raw == nil {
		return nil, err
	}
	return decodeHistoryPage(raw)
}
