package state

import (
	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/invariant"
	"github.com/logpass/node/internal/model"
)

// UsersFacade is the single entry point transaction execution uses to
// mutate the users column: it enforces the cross-column invariant that
// every user carrying a pending settings update is also scheduled in
// user_updates, so DueAt never misses an activation (spec.md §4.8).
type UsersFacade struct {
	db *Database
}

func (db *Database) UsersFacade() UsersFacade { return UsersFacade{db: db} }

func (f UsersFacade) Get(id crypto.UserId, confirmed bool) *model.User {
	return f.db.Users.GetUser(id, confirmed)
}

// AddUser stages a brand-new user and, if it already carries a pending
// update (sponsor/create flows that schedule one up front), records the
// activation.
func (f UsersFacade) AddUser(u *model.User) {
	f.db.Users.AddUser(u)
	if u.PendingUpdate != nil {
		f.db.UserUpdates.ScheduleActivation(u.PendingUpdate.BlockId, u.Id)
	}
}

// UpdateUser stages a mutated user record and schedules its activation
// whenever the mutation attached a new pending update.
func (f UsersFacade) UpdateUser(u *model.User, hadPendingUpdate bool) {
	f.db.Users.UpdateUser(u)
	if u.PendingUpdate != nil && !hadPendingUpdate {
		f.db.UserUpdates.ScheduleActivation(u.PendingUpdate.BlockId, u.Id)
	}
}

// TransactionsFacade is the single entry point for recording a committed
// transaction: it enforces that every transaction added to the
// transactions column is also recorded in transaction_hashes, so the
// duplicate-rejection window never misses an entry (spec.md §4.8).
type TransactionsFacade struct {
	db *Database
}

func (db *Database) TransactionsFacade() TransactionsFacade { return TransactionsFacade{db: db} }

func (f TransactionsFacade) AddTransaction(id crypto.TransactionId, encoded []byte, duplicationHash crypto.Hash, blockId uint32) {
	f.db.Transactions.AddTransaction(id, encoded)
	f.db.TransactionHashes.Record(duplicationHash, blockId)
}

// BlocksFacade is the single entry point for closing a block: it
// debug-asserts that the unconfirmed transactions column grew by exactly
// the block body's transaction count, and that every transaction id the
// body references through its chunks is now present (spec.md §4.8).
// The assertion only runs when internal/invariant.Enabled and never
// substitutes for transaction-level validation.
type BlocksFacade struct {
	db *Database
}

func (db *Database) BlocksFacade() BlocksFacade { return BlocksFacade{db: db} }

func (f BlocksFacade) AddBlock(header *model.BlockHeader, body *model.BlockBody, chunks []model.TransactionIdChunk, before uint64) {
	f.db.Blocks.AddBlock(header, body, chunks)

	after := f.db.Transactions.GetTransactionsCount(false)
	invariant.Check(after-before == uint64(body.TransactionCount),
		"block %d: transactions column grew by %d, expected %d", header.Id, after-before, body.TransactionCount)

	for _, chunk := range chunks {
		for _, id := range chunk.Ids {
			raw, err := f.db.Transactions.GetTransaction(id)
			invariant.Check(err == nil && raw != nil, "block %d: referenced transaction %s not present", header.Id, id.String())
		}
	}
}
