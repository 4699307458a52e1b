package columns

import (
	"sync"

	"github.com/stumble/gorocksdb"

	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/serializer"
	"github.com/logpass/node/internal/store"
)

// UserUpdatesEntriesPerPage bounds how many user ids are packed into one
// {blockId, page} value.
const UserUpdatesEntriesPerPage = 1024

type UserUpdatesState struct {
	Version uint8
	BlockId uint32
}

func (s UserUpdatesState) Clone() UserUpdatesState { return s }
func (s UserUpdatesState) GetBlockId() uint32      { return s.BlockId }
func (s *UserUpdatesState) SetBlockId(b uint32)     { s.BlockId = b }

func (s UserUpdatesState) Serialize(w *serializer.Serializer) {
	w.PutUint8(1)
	w.PutUint32BE(s.BlockId)
}

func decodeUserUpdatesState(r *serializer.Serializer) (UserUpdatesState, error) {
	var s UserUpdatesState
	var err error
	if s.Version, err = r.GetUint8(); err != nil {
		return s, err
	}
	if s.BlockId, err = r.GetUint32BE(); err != nil {
		return s, err
	}
	return s, nil
}

const UserUpdatesColumnName = "user_updates"

// UserUpdatesColumn records, for every block, which users had a settings
// update scheduled to activate at that block — so a node can discover a
// PendingUpdate target blockId is due without scanning every user. Key =
// {blockId BE} holds the total count; {blockId BE, page BE} holds up to
// UserUpdatesEntriesPerPage packed user ids.
type UserUpdatesColumn struct {
	*store.StatefulColumn[UserUpdatesState]

	mu     sync.Mutex
	staged map[uint32][]crypto.UserId
}

func NewUserUpdatesColumn(engine *store.Engine) *UserUpdatesColumn {
	return &UserUpdatesColumn{
		StatefulColumn: store.NewStatefulColumn(engine, UserUpdatesColumnName, UserUpdatesState{Version: 1}, decodeUserUpdatesState),
		staged:         map[uint32][]crypto.UserId{},
	}
}

func userUpdatesCountKey(targetBlockId uint32) []byte {
	s := serializer.New()
	s.PutUint32BE(targetBlockId)
	return s.Bytes()
}

func userUpdatesPageKey(targetBlockId, page uint32) []byte {
	s := serializer.New()
	s.PutUint32BE(targetBlockId)
	s.PutUint32BE(page)
	return s.Bytes()
}

// ScheduleActivation records that id's pending settings update will
// activate at targetBlockId.
func (c *UserUpdatesColumn) ScheduleActivation(targetBlockId uint32, id crypto.UserId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staged[targetBlockId] = append(c.staged[targetBlockId], id)
}

// DueAt returns every user id scheduled to activate at targetBlockId.
func (c *UserUpdatesColumn) DueAt(targetBlockId uint32) ([]crypto.UserId, error) {
	raw, err := c.Get(userUpdatesCountKey(targetBlockId))
	if err != nil || raw == nil {
		return nil, err
	}
	count, err := serializer.NewReader(raw).GetUint64()
	if err != nil {
		return nil, err
	}
	pages := (count + UserUpdatesEntriesPerPage - 1) / UserUpdatesEntriesPerPage
	out := make([]crypto.UserId, 0, count)
	for page := uint64(0); page < pages; page++ {
		pageRaw, err := c.Get(userUpdatesPageKey(targetBlockId, uint32(page)))
		if err != nil {
			return nil, err
		}
		for i := 0; i+crypto.UserIdSize <= len(pageRaw); i += crypto.UserIdSize {
			var id crypto.UserId
			copy(id[:], pageRaw[i:i+crypto.UserIdSize])
			out = append(out, id)
		}
	}
	return out, nil
}

func (c *UserUpdatesColumn) Prepare(blockId uint32, batch *gorocksdb.WriteBatch) {
	c.mu.Lock()
	for targetBlockId, ids := range c.staged {
		existing, err := c.DueAt(targetBlockId)
		if err != nil {
			continue
		}
		base := uint64(len(existing))
		page := base / UserUpdatesEntriesPerPage
		buf := serializer.New()
		for _, id := range existing[page*UserUpdatesEntriesPerPage:] {
			buf.PutFixed(id.Bytes())
		}
		for _, id := range ids {
			if base%UserUpdatesEntriesPerPage == 0 && base != uint64(len(existing)) {
				c.PutInBatch(batch, userUpdatesPageKey(targetBlockId, uint32(page)), buf.Bytes())
				buf = serializer.New()
				page++
			}
			buf.PutFixed(id.Bytes())
			base++
		}
		c.PutInBatch(batch, userUpdatesPageKey(targetBlockId, uint32(page)), buf.Bytes())
		total := serializer.New()
		total.PutUint64(base)
		c.PutInBatch(batch, userUpdatesCountKey(targetBlockId), total.Bytes())
	}
	c.mu.Unlock()
	c.StatefulColumn.Prepare(blockId, batch)
}

func (c *UserUpdatesColumn) Commit() {
	c.mu.Lock()
	c.staged = map[uint32][]crypto.UserId{}
	c.mu.Unlock()
	c.StatefulColumn.Commit()
}

func (c *UserUpdatesColumn) Clear() {
	c.mu.Lock()
	c.staged = map[uint32][]crypto.UserId{}
	c.mu.Unlock()
	c.StatefulColumn.Clear()
}
