package columns

import (
	"sync"

	"github.com/stumble/gorocksdb"

	"github.com/logpass/node/internal/serializer"
	"github.com/logpass/node/internal/store"
)

// DefaultState holds the version and current pricing, plus (Design Notes
// Open Question #3) an explicit "commit seen this block" flag replacing
// the original's getNewTransactionsCountByType(COMMIT) > 0 check.
type DefaultState struct {
	Version    uint8
	BlockId    uint32
	Pricing    int16
	CommitSeen bool
}

func (s DefaultState) Clone() DefaultState { return s }
func (s DefaultState) GetBlockId() uint32  { return s.BlockId }
func (s *DefaultState) SetBlockId(b uint32) { s.BlockId = b }

func (s DefaultState) Serialize(w *serializer.Serializer) {
	w.PutUint8(1)
	w.PutUint32BE(s.BlockId)
	w.PutInt16(s.Pricing)
	w.PutPresence(s.CommitSeen)
}

func decodeDefaultState(r *serializer.Serializer) (DefaultState, error) {
	var s DefaultState
	var err error
	if s.Version, err = r.GetUint8(); err != nil {
		return s, err
	}
	if s.BlockId, err = r.GetUint32BE(); err != nil {
		return s, err
	}
	if s.Pricing, err = r.GetInt16(); err != nil {
		return s, err
	}
	if s.CommitSeen, err = r.GetPresence(); err != nil {
		return s, err
	}
	return s, nil
}

const DefaultColumnName = "default"

type DefaultColumn struct {
	*store.StatefulColumn[DefaultState]
	mu sync.Mutex
}

func NewDefaultColumn(engine *store.Engine) *DefaultColumn {
	return &DefaultColumn{
		StatefulColumn: store.NewStatefulColumn(engine, DefaultColumnName, DefaultState{Version: 1}, decodeDefaultState),
	}
}

func (c *DefaultColumn) Pricing(confirmed bool) int16 { return c.State(confirmed).Pricing }

func (c *DefaultColumn) SetPricing(pricing int16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.State(false)
	st.Pricing = pricing
	c.SetState(st)
}

// MarkCommitSeen records that a Commit transaction was already staged
// this block; a second one is rejected by CommitTransaction.Validate.
func (c *DefaultColumn) MarkCommitSeen() {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.State(false)
	st.CommitSeen = true
	c.SetState(st)
}

func (c *DefaultColumn) CommitSeen() bool { return c.State(false).CommitSeen }

// Clear reverts to the confirmed pricing and resets CommitSeen for the
// new block being staged. The flag is per-block for validation: the
// confirmed state (and its serialized record) keeps whatever value was
// committed, and Clear resets only the unconfirmed copy.
func (c *DefaultColumn) Clear() {
	c.StatefulColumn.Clear()
	c.mu.Lock()
	st := c.State(false)
	st.CommitSeen = false
	c.SetState(st)
	c.mu.Unlock()
}

func (c *DefaultColumn) Prepare(blockId uint32, batch *gorocksdb.WriteBatch) {
	c.StatefulColumn.Prepare(blockId, batch)
}
