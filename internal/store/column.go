package store

import (
	"github.com/logpass/node/internal/serializer"
	"github.com/stumble/gorocksdb"
)

// StateKey is the empty-slice key under which every column persists its
// per-column state record.
var StateKey = []byte{}

// Column is the thin typed wrapper every concrete column embeds: a name,
// an engine handle, and the get/put/merge primitives used by subclasses.
// It corresponds 1:1 to the original's Column base class.
type Column struct {
	engine *Engine
	name   string
}

func NewColumn(engine *Engine, name string) Column {
	return Column{engine: engine, name: name}
}

func (c *Column) Name() string { return c.name }

// Handle returns the underlying column-family handle, for callers that
// need a raw gorocksdb operation (range deletes, compaction) the Column
// wrapper doesn't otherwise expose.
func (c *Column) Handle() *gorocksdb.ColumnFamilyHandle {
	return c.engine.Handle(c.name)
}

func (c *Column) Get(key []byte) ([]byte, error) {
	return c.engine.Get(c.name, key)
}

func (c *Column) MultiGet(keys [][]byte) ([][]byte, error) {
	return c.engine.MultiGet(c.name, keys)
}

// Iterator returns a fresh RocksDB iterator over this column family, used
// by columns that rebuild an in-memory index on Load.
func (c *Column) Iterator() *gorocksdb.Iterator {
	ro := gorocksdb.NewDefaultReadOptions()
	return c.engine.db.NewIteratorCF(ro, c.engine.Handle(c.name))
}

func (c *Column) PutInBatch(batch *gorocksdb.WriteBatch, key, value []byte) {
	batch.PutCF(c.engine.Handle(c.name), key, value)
}

func (c *Column) MergeInBatch(batch *gorocksdb.WriteBatch, key, value []byte) {
	batch.MergeCF(c.engine.Handle(c.name), key, value)
}

// GetBlockId reads the version+blockId header from the empty-slice key,
// returning 0 if the column has never been written to.
func (c *Column) GetBlockId() (uint32, error) {
	raw, err := c.Get(StateKey)
	if err != nil || raw == nil {
		return 0, err
	}
	s := serializer.NewReader(raw)
	if _, err := s.GetUint8(); err != nil { // version
		return 0, err
	}
	return s.GetUint32BE()
}

// Stateful is implemented by every per-column state record: it always
// begins {version, blockId} and supports a deep Clone so the
// unconfirmed/confirmed dual-view swap never aliases mutable fields.
type Stateful[S any] interface {
	Serialize(s *serializer.Serializer)
	SetBlockId(blockId uint32)
	GetBlockId() uint32
	Clone() S
}

// StatefulColumn layers the unconfirmed/confirmed dual-view state
// pattern on top of Column, matching the original's StatefulColumn
// template: one in-memory State (unconfirmed) and one ConfirmedState.
// Load reads the persisted record into both; Prepare stages State under
// the empty key; Commit promotes State into ConfirmedState (by deep
// clone, so later mutation of one never leaks into the other); Clear
// reverts State back to a clone of ConfirmedState, discarding any
// uncommitted staging.
type StatefulColumn[S Stateful[S]] struct {
	Column
	state          S
	confirmedState S
	decode         func(s *serializer.Serializer) (S, error)
}

func NewStatefulColumn[S Stateful[S]](engine *Engine, name string, zero S, decode func(s *serializer.Serializer) (S, error)) *StatefulColumn[S] {
	return &StatefulColumn[S]{Column: NewColumn(engine, name), state: zero, confirmedState: zero, decode: decode}
}

func (c *StatefulColumn[S]) State(confirmed bool) S {
	if confirmed {
		return c.confirmedState
	}
	return c.state
}

func (c *StatefulColumn[S]) SetState(s S) { c.state = s }

func (c *StatefulColumn[S]) Load() error {
	raw, err := c.Get(StateKey)
	if err != nil {
		return err
	}
	if raw != nil {
		st, err := c.decode(serializer.NewReader(raw))
		if err != nil {
			return err
		}
		c.state = st
	}
	c.confirmedState = c.state.Clone()
	return nil
}

func (c *StatefulColumn[S]) Prepare(blockId uint32, batch *gorocksdb.WriteBatch) {
	c.state.SetBlockId(blockId)
	s := serializer.New()
	c.state.Serialize(s)
	c.PutInBatch(batch, StateKey, s.Bytes())
}

func (c *StatefulColumn[S]) Commit() { c.confirmedState = c.state.Clone() }

func (c *StatefulColumn[S]) Clear() { c.state = c.confirmedState.Clone() }
