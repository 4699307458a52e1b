package columns

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/stumble/gorocksdb"

	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/model"
	"github.com/logpass/node/internal/serializer"
	"github.com/logpass/node/internal/store"
)

type StoragePrefixesState struct {
	Version uint8
	BlockId uint32
	Count   uint64
}

func (s StoragePrefixesState) Clone() StoragePrefixesState { return s }
func (s StoragePrefixesState) GetBlockId() uint32          { return s.BlockId }
func (s *StoragePrefixesState) SetBlockId(b uint32)         { s.BlockId = b }

func (s StoragePrefixesState) Serialize(w *serializer.Serializer) {
	w.PutUint8(1)
	w.PutUint32BE(s.BlockId)
	w.PutUint64(s.Count)
}

func decodeStoragePrefixesState(r *serializer.Serializer) (StoragePrefixesState, error) {
	var s StoragePrefixesState
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

const StoragePrefixesColumnName = "storage_prefixes"

// StoragePrefixesColumn keys on the prefix id string itself (§4.6: "key =
// prefix id bytes"), so lookups never need a secondary index.
type StoragePrefixesColumn struct {
	*store.StatefulColumn[StoragePrefixesState]

	mu        sync.RWMutex
	confirmed map[string]*model.Prefix
	staged    map[string]*model.Prefix
}

func NewStoragePrefixesColumn(engine *store.Engine) *StoragePrefixesColumn {
	return &StoragePrefixesColumn{
		StatefulColumn: store.NewStatefulColumn(engine, StoragePrefixesColumnName, StoragePrefixesState{Version: 1}, decodeStoragePrefixesState),
		confirmed:      map[string]*model.Prefix{},
		staged:         map[string]*model.Prefix{},
	}
}

func (c *StoragePrefixesColumn) GetPrefix(id string, confirmed bool) *model.Prefix {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if confirmed {
		return c.confirmed[id]
	}
	if p, ok := c.staged[id]; ok {
		return p
	}
	return c.confirmed[id]
}

func (c *StoragePrefixesColumn) AddPrefix(p *model.Prefix) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staged[p.Id] = p
}

func (c *StoragePrefixesColumn) UpdatePrefix(p *model.Prefix) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staged[p.Id] = p
}

func (c *StoragePrefixesColumn) Load() error {
	if err := c.StatefulColumn.Load(); err != nil {
		return err
	}
	confirmed, err := c.scanAllPrefixes()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.confirmed = confirmed
	c.mu.Unlock()
	return nil
}

func (c *StoragePrefixesColumn) scanAllPrefixes() (map[string]*model.Prefix, error) {
	out := map[string]*model.Prefix{}
	it := c.Iterator()
	defer it.Close()
	for it.SeekToFirst(); it.Valid(); it.Next() {
		key := it.Key()
		if key.Size() == 0 {
			key.Free()
			continue
		}
		id := string(key.Data())
		key.Free()
		value := it.Value()
		p, err := decodePrefix(value.Data())
		value.Free()
		if err != nil {
			return nil, err
		}
		out[id] = p
	}
	return out, it.Err()
}

func (c *StoragePrefixesColumn) Prepare(blockId uint32, batch *gorocksdb.WriteBatch) {
	c.mu.RLock()
	for id, p := range c.staged {
		c.PutInBatch(batch, []byte(id), encodePrefix(p))
	}
	c.mu.RUnlock()
	c.StatefulColumn.Prepare(blockId, batch)
}

func (c *StoragePrefixesColumn) Commit() {
	c.mu.Lock()
	st := c.State(false)
	for id, p := range c.staged {
		if _, existed := c.confirmed[id]; !existed {
			st.Count++
		}
		c.confirmed[id] = p
	}
	c.SetState(st)
	c.staged = map[string]*model.Prefix{}
	c.mu.Unlock()
	c.StatefulColumn.Commit()
}

func (c *StoragePrefixesColumn) Clear() {
	c.mu.Lock()
	c.staged = map[string]*model.Prefix{}
	c.mu.Unlock()
	c.StatefulColumn.Clear()
}

func encodePrefix(p *model.Prefix) []byte {
	s := serializer.New()
	s.PutUint8(1)
	_ = s.PutString8(p.Id)
	s.PutFixed(p.Owner.Bytes())
	s.PutUint32BE(p.CreatedBlock)
	s.PutUint32BE(p.LastEntryBlock)
	s.PutUint64(p.Entries)
	s.PutUint64(p.Iteration)
	s.PutUint32BE(p.CommittedIn)
	_ = s.PutUint8Count(len(p.Settings.AllowedUsers))
	for id := range p.Settings.AllowedUsers {
		s.PutFixed(id.Bytes())
	}
	return s.Bytes()
}

func decodePrefix(raw []byte) (*model.Prefix, error) {
	s := serializer.NewReader(raw)
	version, err := s.GetUint8()
	if err != nil {
		return nil, err
	}
	if version != 1 {
		return nil, errors.Errorf("model: unsupported prefix version %d", version)
	}
	p := &model.Prefix{Settings: model.PrefixSettings{AllowedUsers: map[crypto.UserId]struct{}{}}}
	if p.Id, err = s.GetString8(); err != nil {
		return nil, err
	}
	ownerB, err := s.GetFixed(crypto.UserIdSize)
	if err != nil {
		return nil, err
	}
	copy(p.Owner[:], ownerB)
	if p.CreatedBlock, err = s.GetUint32BE(); err != nil {
		return nil, err
	}
	if p.LastEntryBlock, err = s.GetUint32BE(); err != nil {
		return nil, err
	}
	if p.Entries, err = s.GetUint64(); err != nil {
		return nil, err
	}
	if p.Iteration, err = s.GetUint64(); err != nil {
		return nil, err
	}
	if p.CommittedIn, err = s.GetUint32BE(); err != nil {
		return nil, err
	}
	n, err := s.GetUint8Count()
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		idB, err := s.GetFixed(crypto.UserIdSize)
		if err != nil {
			return nil, err
		}
		var id crypto.UserId
		copy(id[:], idB)
		p.Settings.AllowedUsers[id] = struct{}{}
	}
	return p, nil
}
