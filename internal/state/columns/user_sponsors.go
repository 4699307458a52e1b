package columns

import (
	"sync"

	"github.com/stumble/gorocksdb"

	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/model"
	"github.com/logpass/node/internal/serializer"
	"github.com/logpass/node/internal/store"
)

// UserSponsorsEntriesPerPage mirrors UserHistoryEntriesPerPage's paging
// scheme, applied to the sponsorship log instead of the activity log.
const UserSponsorsEntriesPerPage = 100

const userSponsorEntrySize = 4 + crypto.TransactionIdSize + crypto.UserIdSize

type UserSponsorsState struct {
	Version uint8
	BlockId uint32
}

func (s UserSponsorsState) Clone() UserSponsorsState { return s }
func (s UserSponsorsState) GetBlockId() uint32       { return s.BlockId }
func (s *UserSponsorsState) SetBlockId(b uint32)      { s.BlockId = b }

func (s UserSponsorsState) Serialize(w *serializer.Serializer) {
	w.PutUint8(1)
	w.PutUint32BE(s.BlockId)
}

func decodeUserSponsorsState(r *serializer.Serializer) (UserSponsorsState, error) {
	var s UserSponsorsState
	var err error
	if s.Version, err = r.GetUint8(); err != nil {
		return s, err
	}
	if s.BlockId, err = r.GetUint32BE(); err != nil {
		return s, err
	}
	return s, nil
}

const UserSponsorsColumnName = "user_sponsors"

// UserSponsorsColumn records, per sponsor, every user it has paid fees
// for via CreateUser/SponsorUser — same append/paging layout as
// UserHistoryColumn, over a distinct record shape.
type UserSponsorsColumn struct {
	*store.StatefulColumn[UserSponsorsState]

	mu     sync.Mutex
	counts map[crypto.UserId]uint64
	staged []pendingSponsorEntry
}

type pendingSponsorEntry struct {
	sponsor crypto.UserId
	entry   model.UserSponsor
}

func NewUserSponsorsColumn(engine *store.Engine) *UserSponsorsColumn {
	return &UserSponsorsColumn{
		StatefulColumn: store.NewStatefulColumn(engine, UserSponsorsColumnName, UserSponsorsState{Version: 1}, decodeUserSponsorsState),
		counts:         map[crypto.UserId]uint64{},
	}
}

func userSponsorCountKey(sponsor crypto.UserId) []byte {
	s := serializer.New()
	s.PutFixed(sponsor.Bytes())
	s.PutUint8('C')
	return s.Bytes()
}

func userSponsorPageKey(sponsor crypto.UserId, page uint64) []byte {
	s := serializer.New()
	s.PutFixed(sponsor.Bytes())
	s.PutUint32BE(uint32(page))
	return s.Bytes()
}

func (c *UserSponsorsColumn) loadCount(sponsor crypto.UserId) (uint64, error) {
	c.mu.Lock()
	if n, ok := c.counts[sponsor]; ok {
		c.mu.Unlock()
		return n, nil
	}
	c.mu.Unlock()
	raw, err := c.Get(userSponsorCountKey(sponsor))
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
	c.counts[sponsor] = n
	c.mu.Unlock()
	return n, nil
}

func (c *UserSponsorsColumn) Append(sponsor crypto.UserId, entry model.UserSponsor) {
	c.mu.Lock()
	c.staged = append(c.staged, pendingSponsorEntry{sponsor: sponsor, entry: entry})
	c.mu.Unlock()
}

func (c *UserSponsorsColumn) Prepare(blockId uint32, batch *gorocksdb.WriteBatch) {
	// loadCount takes c.mu itself, so every staged sponsor's count is
	// loaded before c.mu is held for the page math below.
	c.mu.Lock()
	sponsors := make([]crypto.UserId, 0, len(c.staged))
	for _, pe := range c.staged {
		sponsors = append(sponsors, pe.sponsor)
	}
	c.mu.Unlock()
	for _, sponsor := range sponsors {
		_, _ = c.loadCount(sponsor)
	}
	c.mu.Lock()
	seen := map[crypto.UserId]uint64{}
	for _, pe := range c.staged {
		base, ok := c.counts[pe.sponsor]
		if !ok {
			continue
		}
		idx := base + seen[pe.sponsor]
		seen[pe.sponsor]++
		page := idx / UserSponsorsEntriesPerPage
		c.MergeInBatch(batch, userSponsorPageKey(pe.sponsor, page), encodeSponsorEntry(pe.entry))
	}
	for sponsor, n := range seen {
		total := c.counts[sponsor] + n
		s := serializer.New()
		s.PutUint64(total)
		c.PutInBatch(batch, userSponsorCountKey(sponsor), s.Bytes())
		c.counts[sponsor] = total
	}
	c.mu.Unlock()
	c.StatefulColumn.Prepare(blockId, batch)
}

func (c *UserSponsorsColumn) Commit() {
	c.mu.Lock()
	c.staged = nil
	c.mu.Unlock()
	c.StatefulColumn.Commit()
}

func (c *UserSponsorsColumn) Clear() {
	c.mu.Lock()
	c.staged = nil
	c.mu.Unlock()
	c.StatefulColumn.Clear()
}

func encodeSponsorEntry(e model.UserSponsor) []byte {
	s := serializer.New()
	s.PutUint32BE(e.BlockId)
	s.PutFixed(e.TransactionId.Bytes())
	s.PutFixed(e.SponsoredUser.Bytes())
	return s.Bytes()
}

func decodeSponsorPage(raw []byte) ([]model.UserSponsor, error) {
	var out []model.UserSponsor
	for i := 0; i+userSponsorEntrySize <= len(raw); i += userSponsorEntrySize {
		r := serializer.NewReader(raw[i : i+userSponsorEntrySize])
		blockId, err := r.GetUint32BE()
		if err != nil {
			return nil, err
		}
		txB, err := r.GetFixed(crypto.TransactionIdSize)
		if err != nil {
			return nil, err
		}
		userB, err := r.GetFixed(crypto.UserIdSize)
		if err != nil {
			return nil, err
		}
		var e model.UserSponsor
		e.BlockId = blockId
		copy(e.TransactionId[:], txB)
		copy(e.SponsoredUser[:], userB)
		out = append(out, e)
	}
	return out, nil
}

// Page returns the decoded sponsorship entries for sponsor's given page.
func (c *UserSponsorsColumn) Page(sponsor crypto.UserId, page uint64) ([]model.UserSponsor, error) {
	raw, err := c.Get(userSponsorPageKey(sponsor, page))
	if err != nil || raw == nil {
		return nil, err
	}
	return decodeSponsorPage(raw)
}
