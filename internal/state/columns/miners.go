package columns

import (
	"sync"

	"github.com/google/btree"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/stumble/gorocksdb"

	"github.com/logpass/node/internal/config"
	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/model"
	"github.com/logpass/node/internal/serializer"
	"github.com/logpass/node/internal/store"
)

// minerStakeItem orders miners by stake descending, id ascending on ties
// — the same comparator the original's std::set<Miner*, MinersCompare>
// used to keep the top-miners ordering, here backed by a btree.BTreeG
// rebuilt on demand rather than maintained incrementally.
type minerStakeItem struct {
	id    crypto.MinerId
	stake uint64
}

func minerStakeLess(a, b minerStakeItem) bool {
	if a.stake != b.stake {
		return a.stake > b.stake
	}
	return a.id.Less(b.id)
}

type MinersState struct {
	Version     uint8
	BlockId     uint32
	StakedTokens uint64
}

func (s MinersState) Clone() MinersState  { return s }
func (s MinersState) GetBlockId() uint32  { return s.BlockId }
func (s *MinersState) SetBlockId(b uint32) { s.BlockId = b }

func (s MinersState) Serialize(w *serializer.Serializer) {
	w.PutUint8(1)
	w.PutUint32BE(s.BlockId)
	w.PutUint64(s.StakedTokens)
}

func decodeMinersState(r *serializer.Serializer) (MinersState, error) {
	var s MinersState
	var err error
	if s.Version, err = r.GetUint8(); err != nil {
		return s, err
	}
	if s.BlockId, err = r.GetUint32BE(); err != nil {
		return s, err
	}
	if s.StakedTokens, err = r.GetUint64(); err != nil {
		return s, err
	}
	return s, nil
}

const MinersColumnName = "miners"

// MinersColumn holds Miner records plus the derived topMiners ordering
// used for mining-queue selection (§4.6).
type MinersColumn struct {
	*store.StatefulColumn[MinersState]
	cfg config.Config

	mu        sync.RWMutex
	confirmed map[crypto.MinerId]*model.Miner
	staged    map[crypto.MinerId]*model.Miner

	// endpoints caches MinerSettings.Endpoint/Api lookups by miner id, so
	// a node gossiping to its peers' advertised endpoints doesn't refetch
	// the full Miner record on every round (§4.6, "size ≤ 10000").
	endpoints *lru.Cache[crypto.MinerId, model.MinerSettings]
}

func NewMinersColumn(engine *store.Engine, cfg config.Config) *MinersColumn {
	endpoints, err := lru.New[crypto.MinerId, model.MinerSettings](cfg.MinerEndpointsCacheSize)
	if err != nil {
		panic(err) // only fails for a non-positive size, which config.Default never produces
	}
	return &MinersColumn{
		StatefulColumn: store.NewStatefulColumn(engine, MinersColumnName, MinersState{Version: 1}, decodeMinersState),
		cfg:            cfg,
		confirmed:      map[crypto.MinerId]*model.Miner{},
		staged:         map[crypto.MinerId]*model.Miner{},
		endpoints:      endpoints,
	}
}

// Endpoint returns the cached endpoint settings for id, falling back to
// (and populating from) the confirmed record on a miss.
func (c *MinersColumn) Endpoint(id crypto.MinerId) (model.MinerSettings, bool) {
	if s, ok := c.endpoints.Get(id); ok {
		return s, true
	}
	m := c.GetMiner(id, true)
	if m == nil {
		return model.MinerSettings{}, false
	}
	c.endpoints.Add(id, m.Settings)
	return m.Settings, true
}

func (c *MinersColumn) GetMiner(id crypto.MinerId, confirmed bool) *model.Miner {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if confirmed {
		return c.confirmed[id]
	}
	if m, ok := c.staged[id]; ok {
		return m
	}
	return c.confirmed[id]
}

func (c *MinersColumn) AddMiner(m *model.Miner) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staged[m.Id] = m
}

func (c *MinersColumn) UpdateMiner(m *model.Miner) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staged[m.Id] = m
}

func (c *MinersColumn) GetStakedTokens(confirmed bool) uint64 {
	if confirmed {
		return c.State(true).StakedTokens
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	total := c.State(true).StakedTokens
	for id, m := range c.staged {
		if old, ok := c.confirmed[id]; ok {
			total = total - old.Stake + m.Stake
		} else {
			total += m.Stake
		}
	}
	return total
}

// TopMiners returns the size highest-staked miners, ties broken by id,
// from the confirmed snapshot — used to build the next miners queue.
func (c *MinersColumn) TopMiners(size int) []crypto.MinerId {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tree := btree.NewG(32, minerStakeLess)
	for _, m := range c.confirmed {
		tree.ReplaceOrInsert(minerStakeItem{id: m.Id, stake: m.Stake})
	}
	out := make([]crypto.MinerId, 0, size)
	tree.Ascend(func(item minerStakeItem) bool {
		if len(out) >= size {
			return false
		}
		out = append(out, item.id)
		return true
	})
	return out
}

func (c *MinersColumn) Load() error {
	if err := c.StatefulColumn.Load(); err != nil {
		return err
	}
	confirmed, err := c.scanAllMiners()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.confirmed = confirmed
	c.mu.Unlock()
	return nil
}

func (c *MinersColumn) scanAllMiners() (map[crypto.MinerId]*model.Miner, error) {
	out := map[crypto.MinerId]*model.Miner{}
	it := c.Iterator()
	defer it.Close()
	for it.SeekToFirst(); it.Valid(); it.Next() {
		key := it.Key()
		if key.Size() == 0 {
			key.Free()
			continue
		}
		var id crypto.MinerId
		copy(id[:], key.Data())
		key.Free()
		value := it.Value()
		m, err := decodeMiner(value.Data(), c.cfg.StakingDuration)
		value.Free()
		if err != nil {
			return nil, err
		}
		out[id] = m
	}
	return out, it.Err()
}

func (c *MinersColumn) Prepare(blockId uint32, batch *gorocksdb.WriteBatch) {
	c.mu.RLock()
	for id, m := range c.staged {
		c.PutInBatch(batch, id.Bytes(), encodeMiner(m))
	}
	c.mu.RUnlock()
	c.StatefulColumn.Prepare(blockId, batch)
}

func (c *MinersColumn) Commit() {
	c.mu.Lock()
	st := c.State(false)
	for id, m := range c.staged {
		if old, ok := c.confirmed[id]; ok {
			st.StakedTokens = st.StakedTokens - old.Stake + m.Stake
		} else {
			st.StakedTokens += m.Stake
		}
		c.confirmed[id] = m
		c.endpoints.Remove(id) // settings may have changed; refetch on next Endpoint call
	}
	c.SetState(st)
	c.staged = map[crypto.MinerId]*model.Miner{}
	c.mu.Unlock()
	c.StatefulColumn.Commit()
}

func (c *MinersColumn) Clear() {
	c.mu.Lock()
	c.staged = map[crypto.MinerId]*model.Miner{}
	c.mu.Unlock()
	c.StatefulColumn.Clear()
}

func encodeMiner(m *model.Miner) []byte {
	s := serializer.New()
	s.PutUint8(1)
	s.PutFixed(m.Id.Bytes())
	s.PutFixed(m.Owner.Bytes())
	s.PutUint64(m.Iteration)
	s.PutUint32BE(m.CommittedIn)
	s.PutUint64(m.Stake)
	s.PutUint64(m.LockedStake)
	buckets := m.Buckets()
	_ = s.PutUint8Count(len(buckets))
	for _, b := range buckets {
		s.PutUint64(b)
	}
	s.PutUint32BE(m.LastStakeUpdate)
	_ = s.PutString8(m.Settings.Endpoint)
	_ = s.PutString8(m.Settings.Api)
	_ = s.PutString8(m.Settings.Name)
	_ = s.PutString8(m.Settings.Website)
	_ = s.PutString8(m.Settings.Description)
	s.PutUint8(m.Banned)
	return s.Bytes()
}

func decodeMiner(raw []byte, stakingDuration uint32) (*model.Miner, error) {
	s := serializer.NewReader(raw)
	version, err := s.GetUint8()
	if err != nil {
		return nil, err
	}
	if version != 1 {
		return nil, errors.Errorf("model: unsupported miner version %d", version)
	}
	m := &model.Miner{Version: version}
	idB, err := s.GetFixed(crypto.MinerIdSize)
	if err != nil {
		return nil, err
	}
	copy(m.Id[:], idB)
	ownerB, err := s.GetFixed(crypto.UserIdSize)
	if err != nil {
		return nil, err
	}
	copy(m.Owner[:], ownerB)
	if m.Iteration, err = s.GetUint64(); err != nil {
		return nil, err
	}
	if m.CommittedIn, err = s.GetUint32BE(); err != nil {
		return nil, err
	}
	if m.Stake, err = s.GetUint64(); err != nil {
		return nil, err
	}
	if m.LockedStake, err = s.GetUint64(); err != nil {
		return nil, err
	}
	n, err := s.GetUint8Count()
	if err != nil {
		return nil, err
	}
	buckets := make([]uint64, n)
	for i := range buckets {
		if buckets[i], err = s.GetUint64(); err != nil {
			return nil, err
		}
	}
	m.SetBuckets(buckets)
	if m.LastStakeUpdate, err = s.GetUint32BE(); err != nil {
		return nil, err
	}
	if m.Settings.Endpoint, err = s.GetString8(); err != nil {
		return nil, err
	}
	if m.Settings.Api, err = s.GetString8(); err != nil {
		return nil, err
	}
	if m.Settings.Name, err = s.GetString8(); err != nil {
		return nil, err
	}
	if m.Settings.Website, err = s.GetString8(); err != nil {
		return nil, err
	}
	if m.Settings.Description, err = s.GetString8(); err != nil {
		return nil, err
	}
	if m.Banned, err = s.GetUint8(); err != nil {
		return nil, err
	}
	return m, nil
}
