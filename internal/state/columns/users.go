// Package columns implements the eleven concrete stateful columns named
// in spec.md §4.6, each a typed wrapper over one RocksDB column family
// with an unconfirmed (staged) map shadowing the confirmed snapshot.
package columns

import (
	"sync"

	"github.com/stumble/gorocksdb"

	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/model"
	"github.com/logpass/node/internal/serializer"
	"github.com/logpass/node/internal/store"
)

// UsersState is the users column's per-column state record: version,
// blockId, and the running counters CommitTransaction validates against.
type UsersState struct {
	Version uint8
	BlockId uint32
	Count   uint64
	Tokens  uint64
}

func (s UsersState) Clone() UsersState    { return s }
func (s UsersState) GetBlockId() uint32   { return s.BlockId }
func (s *UsersState) SetBlockId(b uint32) { s.BlockId = b }

func (s UsersState) Serialize(w *serializer.Serializer) {
	w.PutUint8(1)
	w.PutUint32BE(s.BlockId)
	w.PutUint64(s.Count)
	w.PutUint64(s.Tokens)
}

func decodeUsersState(r *serializer.Serializer) (UsersState, error) {
	var s UsersState
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
	if s.Tokens, err = r.GetUint64(); err != nil {
		return s, err
	}
	return s, nil
}

const UsersColumnName = "users"

// UsersColumn holds User records, the preload cache declared by
// transactions ahead of validation, and the running user/token counters.
type UsersColumn struct {
	*store.StatefulColumn[UsersState]

	mu        sync.RWMutex
	confirmed map[crypto.UserId]*model.User
	staged    map[crypto.UserId]*model.User
	preloaded map[crypto.UserId]*model.User
}

func NewUsersColumn(engine *store.Engine) *UsersColumn {
	return &UsersColumn{
		StatefulColumn: store.NewStatefulColumn(engine, UsersColumnName, UsersState{Version: 1}, decodeUsersState),
		confirmed:      map[crypto.UserId]*model.User{},
		staged:         map[crypto.UserId]*model.User{},
		preloaded:      map[crypto.UserId]*model.User{},
	}
}

// Preload declares that id will be needed by an upcoming validate/execute
// pass; FlushPreloads later issues one batched MultiGet per block.
func (c *UsersColumn) Preload(id crypto.UserId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.preloaded[id]; !ok {
		c.preloaded[id] = nil
	}
}

// FlushPreloads resolves every declared-but-unresolved preload with one
// batched MultiGet against the confirmed store, then applies the
// transparent pending-update activation for blockId.
func (c *UsersColumn) FlushPreloads(blockId uint32) error {
	c.mu.Lock()
	var missing []crypto.UserId
	for id, u := range c.preloaded {
		if u == nil {
			if _, ok := c.staged[id]; !ok {
				if _, ok := c.confirmed[id]; !ok {
					missing = append(missing, id)
				}
			}
		}
	}
	c.mu.Unlock()
	if len(missing) == 0 {
		return nil
	}
	keys := make([][]byte, len(missing))
	for i, id := range missing {
		keys[i] = id.Bytes()
	}
	values, err := c.MultiGet(keys)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, id := range missing {
		if values[i] == nil {
			continue
		}
		u, err := model.DecodeUser(values[i])
		if err != nil {
			return err
		}
		c.preloaded[id] = model.Load(u, blockId)
	}
	return nil
}

// GetUser resolves id, consulting the staged override first, then the
// preload cache, then the in-memory confirmed map. confirmed=true
// bypasses staging entirely.
func (c *UsersColumn) GetUser(id crypto.UserId, confirmed bool) *model.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if confirmed {
		return c.confirmed[id]
	}
	if u, ok := c.staged[id]; ok {
		return u
	}
	if u, ok := c.preloaded[id]; ok && u != nil {
		return u
	}
	return c.confirmed[id]
}

// AddUser stages a brand-new user.
func (c *UsersColumn) AddUser(u *model.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staged[u.Id] = u
}

// UpdateUser stages a mutated (already-cloned) user.
func (c *UsersColumn) UpdateUser(u *model.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staged[u.Id] = u
}

func (c *UsersColumn) GetUsersCount(confirmed bool) uint64 {
	base := c.State(true).Count
	if confirmed {
		return base
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for id := range c.staged {
		if _, existed := c.confirmed[id]; !existed {
			base++
		}
	}
	return base
}

func (c *UsersColumn) GetTokens(confirmed bool) uint64 {
	if confirmed {
		return c.State(true).Tokens
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	total := c.State(true).Tokens
	for id, u := range c.staged {
		if old, ok := c.confirmed[id]; ok {
			total = total - old.Tokens + u.Tokens
		} else {
			total += u.Tokens
		}
	}
	return total
}

// Load reads the column's state record, then rebuilds the in-memory
// confirmed map by scanning every key except the empty state key.
func (c *UsersColumn) Load() error {
	if err := c.StatefulColumn.Load(); err != nil {
		return err
	}
	confirmed, err := c.scanAllUsers()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.confirmed = confirmed
	c.mu.Unlock()
	return nil
}

func (c *UsersColumn) scanAllUsers() (map[crypto.UserId]*model.User, error) {
	out := map[crypto.UserId]*model.User{}
	it := c.Iterator()
	defer it.Close()
	for it.SeekToFirst(); it.Valid(); it.Next() {
		key := it.Key()
		if key.Size() == 0 {
			key.Free()
			continue
		}
		var id crypto.UserId
		copy(id[:], key.Data())
		key.Free()
		value := it.Value()
		u, err := model.DecodeUser(value.Data())
		value.Free()
		if err != nil {
			return nil, err
		}
		out[id] = u
	}
	return out, it.Err()
}

func (c *UsersColumn) Prepare(blockId uint32, batch *gorocksdb.WriteBatch) {
	c.mu.RLock()
	for id, u := range c.staged {
		c.PutInBatch(batch, id.Bytes(), model.EncodeUser(u))
	}
	c.mu.RUnlock()
	c.StatefulColumn.Prepare(blockId, batch)
}

// Commit promotes every staged user into the confirmed map and updates
// the running counters, then clears staging.
func (c *UsersColumn) Commit() {
	c.mu.Lock()
	st := c.State(false)
	for id, u := range c.staged {
		if old, ok := c.confirmed[id]; ok {
			st.Tokens = st.Tokens - old.Tokens + u.Tokens
		} else {
			st.Count++
			st.Tokens += u.Tokens
		}
		c.confirmed[id] = u
	}
	c.SetState(st)
	c.staged = map[crypto.UserId]*model.User{}
	c.preloaded = map[crypto.UserId]*model.User{}
	c.mu.Unlock()
	c.StatefulColumn.Commit()
}

func (c *UsersColumn) Clear() {
	c.mu.Lock()
	c.staged = map[crypto.UserId]*model.User{}
	c.preloaded = map[crypto.UserId]*model.User{}
	c.mu.Unlock()
	c.StatefulColumn.Clear()
}
