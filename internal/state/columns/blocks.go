package columns

import (
	"sync"

	"github.com/klauspost/compress/s2"
	"github.com/stumble/gorocksdb"

	"github.com/logpass/node/internal/config"
	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/model"
	"github.com/logpass/node/internal/serializer"
	"github.com/logpass/node/internal/store"
)

// BlocksState is the persisted state record of the blocks column: the
// latest block id and the miners queue. It does not hold block headers or
// bodies; the most recent MinersQueueSize+RollbackableBlocks of those are
// kept only in BlocksColumn's in-memory maps, filled on Commit and not
// restored by Load.
type BlocksState struct {
	Version      uint8
	BlockId      uint32
	MinersQueue  []crypto.MinerId
}

func (s BlocksState) Clone() BlocksState {
	n := s
	n.MinersQueue = append([]crypto.MinerId(nil), s.MinersQueue...)
	return n
}
func (s BlocksState) GetBlockId() uint32   { return s.BlockId }
func (s *BlocksState) SetBlockId(b uint32) { s.BlockId = b }

func (s BlocksState) Serialize(w *serializer.Serializer) {
	w.PutUint8(1)
	w.PutUint32BE(s.BlockId)
	_ = w.PutUint8Count(len(s.MinersQueue))
	for _, m := range s.MinersQueue {
		w.PutFixed(m.Bytes())
	}
}

func decodeBlocksState(r *serializer.Serializer) (BlocksState, error) {
	var s BlocksState
	var err error
	if s.Version, err = r.GetUint8(); err != nil {
		return s, err
	}
	if s.BlockId, err = r.GetUint32BE(); err != nil {
		return s, err
	}
	n, err := r.GetUint8Count()
	if err != nil {
		return s, err
	}
	s.MinersQueue = make([]crypto.MinerId, n)
	for i := range s.MinersQueue {
		b, err := r.GetFixed(crypto.MinerIdSize)
		if err != nil {
			return s, err
		}
		copy(s.MinersQueue[i][:], b)
	}
	return s, nil
}

const BlocksColumnName = "blocks"

// BlocksColumn is append-only: headers/bodies keyed by big-endian
// blockId, with a 'B'/'T'-tagged suffix for the body and transaction-id
// chunks respectively.
type BlocksColumn struct {
	*store.StatefulColumn[BlocksState]
	cfg config.Config

	mu      sync.RWMutex
	headers map[uint32]*model.BlockHeader
	bodies  map[uint32]*model.BlockBody
	staged  []stagedBlock
}

type stagedBlock struct {
	header *model.BlockHeader
	body   *model.BlockBody
	chunks []model.TransactionIdChunk
}

func NewBlocksColumn(engine *store.Engine, cfg config.Config) *BlocksColumn {
	return &BlocksColumn{
		StatefulColumn: store.NewStatefulColumn(engine, BlocksColumnName, BlocksState{Version: 1}, decodeBlocksState),
		cfg:            cfg,
		headers:        map[uint32]*model.BlockHeader{},
		bodies:         map[uint32]*model.BlockBody{},
	}
}

func headerKey(blockId uint32) []byte {
	s := serializer.New()
	s.PutUint32BE(blockId)
	return s.Bytes()
}

func bodyKey(blockId uint32) []byte {
	s := serializer.New()
	s.PutUint32BE(blockId)
	s.PutUint8('B')
	return s.Bytes()
}

func (c *BlocksColumn) GetLatestBlockId() uint32 { return c.State(true).BlockId }

func (c *BlocksColumn) GetMinersQueue() []crypto.MinerId { return c.State(false).MinersQueue }

func (c *BlocksColumn) GetHeader(blockId uint32) *model.BlockHeader {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.headers[blockId]
}

// AddBlock stages a new block at the head of the unconfirmed chain.
func (c *BlocksColumn) AddBlock(header *model.BlockHeader, body *model.BlockBody, chunks []model.TransactionIdChunk) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staged = append(c.staged, stagedBlock{header: header, body: body, chunks: chunks})
	st := c.State(false)
	st.MinersQueue = header.NextMinersQueue
	c.SetState(st)
}

func (c *BlocksColumn) Prepare(blockId uint32, batch *gorocksdb.WriteBatch) {
	c.mu.RLock()
	for _, sb := range c.staged {
		c.PutInBatch(batch, headerKey(sb.header.Id), encodeBlockHeader(sb.header))
		c.PutInBatch(batch, bodyKey(sb.header.Id), encodeBlockBody(sb.body))
		for idx, chunk := range sb.chunks {
			c.PutInBatch(batch, chunkKey(sb.header.Id, uint32(idx)), encodeChunk(chunk))
		}
	}
	c.mu.RUnlock()
	c.StatefulColumn.Prepare(blockId, batch)
}

func chunkKey(blockId, chunkIdx uint32) []byte {
	s := serializer.New()
	s.PutUint32BE(blockId)
	s.PutUint8('T')
	s.PutUint32BE(chunkIdx)
	return s.Bytes()
}

func (c *BlocksColumn) Commit() {
	c.mu.Lock()
	keep := c.cfg.MinersQueueSize + c.cfg.DatabaseRollbackableBlocks
	for _, sb := range c.staged {
		c.headers[sb.header.Id] = sb.header
		c.bodies[sb.header.Id] = sb.body
	}
	for id := range c.headers {
		if id+keep < c.State(false).BlockId {
			delete(c.headers, id)
			delete(c.bodies, id)
		}
	}
	c.staged = nil
	c.mu.Unlock()
	c.StatefulColumn.Commit()
}

func (c *BlocksColumn) Clear() {
	c.mu.Lock()
	c.staged = nil
	c.mu.Unlock()
	c.StatefulColumn.Clear()
}

func encodeBlockHeader(h *model.BlockHeader) []byte {
	s := serializer.New()
	s.PutUint32BE(h.Id)
	s.PutUint64(h.Depth)
	s.PutFixed(h.PreviousHash.Bytes())
	s.PutFixed(h.BodyHash.Bytes())
	_ = s.PutUint8Count(len(h.NextMinersQueue))
	for _, m := range h.NextMinersQueue {
		s.PutFixed(m.Bytes())
	}
	return s.Bytes()
}

func encodeBlockBody(b *model.BlockBody) []byte {
	s := serializer.New()
	s.PutFixed(b.Hash.Bytes())
	_ = s.PutUint8Count(len(b.TransactionIdChunkHashes))
	for _, h := range b.TransactionIdChunkHashes {
		s.PutFixed(h.Bytes())
	}
	s.PutUint32(b.TransactionCount)
	return s.Bytes()
}

// encodeChunk s2-compresses the raw id list before it ever reaches
// RocksDB: a transaction-id chunk is the bulkiest per-block record and,
// unlike headers/bodies, is never read on the hot validate/execute path,
// so the decompression cost only lands on history reads.
func encodeChunk(c model.TransactionIdChunk) []byte {
	s := serializer.New()
	s.PutUint32(uint32(len(c.Ids)))
	for _, id := range c.Ids {
		s.PutFixed(id.Bytes())
	}
	return s2.Encode(nil, s.Bytes())
}

func decodeChunk(raw []byte) (model.TransactionIdChunk, error) {
	var chunk model.TransactionIdChunk
	decoded, err := s2.Decode(nil, raw)
	if err != nil {
		return chunk, err
	}
	r := serializer.NewReader(decoded)
	n, err := r.GetUint32()
	if err != nil {
		return chunk, err
	}
	chunk.Ids = make([]crypto.TransactionId, n)
	for i := range chunk.Ids {
		b, err := r.GetFixed(crypto.TransactionIdSize)
		if err != nil {
			return chunk, err
		}
		copy(chunk.Ids[i][:], b)
	}
	return chunk, nil
}

// GetChunk reads back one transaction-id chunk of a committed block,
// used by history/explorer-style reads that need a block's full
// transaction list rather than just its summary counts.
func (c *BlocksColumn) GetChunk(blockId, chunkIdx uint32) (model.TransactionIdChunk, error) {
	raw, err := c.Get(chunkKey(blockId, chunkIdx))
	if err != nil {
		return model.TransactionIdChunk{}, err
	}
	if raw == nil {
		return model.TransactionIdChunk{}, nil
	}
	return decodeChunk(raw)
}
