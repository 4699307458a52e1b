package model

import "github.com/logpass/node/internal/crypto"

// BlockHeader pins a block into the chain: id, depth, links to the
// previous block and to this block's own body, and the miners queue
// snapshot effective from this block onward.
type BlockHeader struct {
	Id               uint32
	Depth            uint64
	PreviousHash     crypto.Hash
	BodyHash         crypto.Hash
	NextMinersQueue  []crypto.MinerId
}

// BlockBody is hashed separately from the header so header-only chain
// walks never need to touch transaction payloads.
type BlockBody struct {
	Hash                crypto.Hash
	TransactionIdChunkHashes []crypto.Hash
	TransactionCount    uint32
}

// MaxTransactionIdsPerChunk bounds a single transaction-id chunk so no
// single KV value grows unbounded.
const MaxTransactionIdsPerChunk = 1024

// TransactionIdChunk is an ordered slice of a block's transaction ids.
type TransactionIdChunk struct {
	Ids []crypto.TransactionId
}
