// Package state wires the eleven concrete columns (package columns) and
// the RocksDB engine (package store) into the Database orchestrator:
// the single object that owns the confirmed/unconfirmed dual view and
// drives the commit/rollback protocol described in spec.md §4.7.
package state

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/logpass/node/internal/config"
	"github.com/logpass/node/internal/eventloop"
	"github.com/logpass/node/internal/state/columns"
	"github.com/logpass/node/internal/store"
)

// stateColumn is the subset of StatefulColumn[S]'s surface the
// orchestrator drives generically, independent of each column's
// concrete state type.
type stateColumn interface {
	Load() error
	Clear()
}

// ColumnNames lists every column family the engine opens.
var ColumnNames = []string{
	columns.DefaultColumnName,
	columns.UsersColumnName,
	columns.MinersColumnName,
	columns.BlocksColumnName,
	columns.TransactionsColumnName,
	columns.TransactionHashesColumnName,
	columns.StoragePrefixesColumnName,
	columns.StorageEntriesColumnName,
	columns.UserHistoryColumnName,
	columns.UserSponsorsColumnName,
	columns.UserUpdatesColumnName,
}

// Database owns the engine and every column, and is the single point
// through which blocks are staged, committed, and rolled back. Only one
// block may be in flight at a time (mu), matching the original's
// single-writer design (spec.md §5).
type Database struct {
	cfg    config.Config
	engine *store.Engine
	log    *zap.Logger

	Default          *columns.DefaultColumn
	Users            *columns.UsersColumn
	Miners           *columns.MinersColumn
	Blocks           *columns.BlocksColumn
	Transactions     *columns.TransactionsColumn
	TransactionHashes *columns.TransactionHashesColumn
	StoragePrefixes  *columns.StoragePrefixesColumn
	StorageEntries   *columns.StorageEntriesColumn
	UserHistory      *columns.UserHistoryColumn
	UserSponsors     *columns.UserSponsorsColumn
	UserUpdates      *columns.UserUpdatesColumn

	mu sync.Mutex

	// flush tracks the async post-commit FlushAll/compaction-suggestion
	// task; rollbackDepth collapses concurrent MaxRollbackDepth callers
	// (e.g. several goroutines probing it at once) into one L0-metadata scan.
	flush         eventloop.Background
	rollbackDepth eventloop.Collapsed
}

// Open opens the RocksDB engine at path and loads every column's
// confirmed state.
func Open(path string, cfg config.Config, log *zap.Logger) (*Database, error) {
	engine, err := store.Open(path, ColumnNames, cfg)
	if err != nil {
		return nil, err
	}
	db := &Database{
		cfg:               cfg,
		engine:            engine,
		log:               log,
		Default:           columns.NewDefaultColumn(engine),
		Users:             columns.NewUsersColumn(engine),
		Miners:            columns.NewMinersColumn(engine, cfg),
		Blocks:            columns.NewBlocksColumn(engine, cfg),
		Transactions:      columns.NewTransactionsColumn(engine),
		TransactionHashes: columns.NewTransactionHashesColumn(engine, cfg),
		StoragePrefixes:   columns.NewStoragePrefixesColumn(engine),
		StorageEntries:    columns.NewStorageEntriesColumn(engine),
		UserHistory:       columns.NewUserHistoryColumn(engine),
		UserSponsors:      columns.NewUserSponsorsColumn(engine),
		UserUpdates:       columns.NewUserUpdatesColumn(engine),
	}
	for _, c := range db.all() {
		if err := c.Load(); err != nil {
			return nil, errors.Wrap(err, "state: load column")
		}
	}
	return db, nil
}

func (db *Database) Close() {
	if err := db.flush.Wait(); err != nil {
		db.log.Error("background flush failed", zap.Error(err))
	}
	db.engine.Close()
}

func (db *Database) all() []stateColumn {
	return []stateColumn{
		db.Default, db.Users, db.Miners, db.Blocks, db.Transactions,
		db.TransactionHashes, db.StoragePrefixes, db.StorageEntries,
		db.UserHistory, db.UserSponsors, db.UserUpdates,
	}
}

// LatestBlockId returns the confirmed chain head.
func (db *Database) LatestBlockId() uint32 { return db.Blocks.GetLatestBlockId() }

// BeginBlock clears every column's unconfirmed view back to the
// confirmed snapshot, the first step of staging a new block (spec.md
// §4.7 step 1).
func (db *Database) BeginBlock() {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, c := range db.all() {
		c.Clear()
	}
}

// Commit stages every column's pending writes into one WriteBatch,
// applies it unsynced, promotes every column's unconfirmed state into
// its confirmed state, then asynchronously flushes and suggests partial
// L0 compaction — the five-step protocol of spec.md §4.7.
func (db *Database) Commit(blockId uint32) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	// wait for any prior async flush before writing again
	if err := db.flush.Wait(); err != nil {
		db.log.Error("background flush failed", zap.Error(err))
	}

	batch := db.engine.NewBatch()
	defer batch.Destroy()

	db.Default.Prepare(blockId, batch)
	db.Users.Prepare(blockId, batch)
	db.Miners.Prepare(blockId, batch)
	db.Blocks.Prepare(blockId, batch)
	db.Transactions.Prepare(blockId, batch)
	db.TransactionHashes.Prepare(blockId, batch)
	db.TransactionHashes.GC(batch, blockId)
	db.StoragePrefixes.Prepare(blockId, batch)
	db.StorageEntries.Prepare(blockId, batch)
	db.UserHistory.Prepare(blockId, batch)
	db.UserSponsors.Prepare(blockId, batch)
	db.UserUpdates.Prepare(blockId, batch)

	if err := db.engine.WriteUnsynced(batch); err != nil {
		return errors.Wrap(err, "state: write block batch")
	}

	db.Default.Commit()
	db.Users.Commit()
	db.Miners.Commit()
	db.Blocks.Commit()
	db.Transactions.Commit()
	db.TransactionHashes.Commit()
	db.StoragePrefixes.Commit()
	db.StorageEntries.Commit()
	db.UserHistory.Commit()
	db.UserSponsors.Commit()
	db.UserUpdates.Commit()

	db.flush.Go(func() error {
		if err := db.engine.FlushAll(); err != nil {
			return errors.Wrapf(err, "state: flush block %d", blockId)
		}
		if cf := db.engine.MostCompactableColumn(); cf != "" {
			if err := db.engine.SuggestPartialL0Compaction(cf); err != nil {
				db.log.Warn("partial compaction suggestion failed", zap.Error(err), zap.String("column", cf))
			}
		}
		return nil
	})

	return nil
}

// MaxRollbackDepth reports how many of the most recent blocks can
// currently be rolled back without waiting on in-flight compaction.
// Concurrent callers collapse onto a single L0-metadata scan.
func (db *Database) MaxRollbackDepth() uint32 {
	v, _ := db.rollbackDepth.Do("max-rollback-depth", func() (interface{}, error) {
		return db.engine.MaxRollbackDepth(), nil
	})
	depth := v.(uint32)
	if depth > db.cfg.DatabaseRollbackableBlocks {
		depth = db.cfg.DatabaseRollbackableBlocks
	}
	return depth
}

// Rollback discards the n most recently committed blocks by deleting
// their newest L0 file segment from every column family (spec.md §4.7).
// It refuses rather than partially rolling back.
func (db *Database) Rollback(n uint32) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.flush.Wait(); err != nil {
		db.log.Error("background flush failed", zap.Error(err))
	}
	ok, err := db.engine.Rollback(n)
	if err != nil || !ok {
		return ok, err
	}
	for _, c := range db.all() {
		if err := c.Load(); err != nil {
			return false, errors.Wrap(err, "state: reload column after rollback")
		}
	}
	return true, nil
}
