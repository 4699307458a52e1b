// Package store wraps the embedded RocksDB engine (via gorocksdb) with
// the tunables and primitives the commit/rollback protocol depends on:
// atomic flush across column families, disabled-WAL/unsynced batch
// writes followed by a synchronous flush, L0 file-metadata inspection,
// and DeleteFiles-based rollback.
package store

import (
	"github.com/pkg/errors"
	"github.com/stumble/gorocksdb"

	"github.com/logpass/node/internal/config"
)

// Engine owns the RocksDB handle and every open column family.
type Engine struct {
	db      *gorocksdb.DB
	cfNames []string
	cfs     map[string]*gorocksdb.ColumnFamilyHandle
	cfg     config.Config
}

// Open creates (if missing) and opens path with one column family per
// name in names, tuned so that compaction preserves exactly
// cfg.DatabaseRollbackableBlocks newest L0 files per column family — the
// invariant the commit/rollback protocol relies on.
func Open(path string, names []string, cfg config.Config) (*Engine, error) {
	dbOpts := gorocksdb.NewDefaultOptions()
	dbOpts.SetCreateIfMissing(true)
	dbOpts.SetCreateIfMissingColumnFamilies(true)
	dbOpts.SetParanoidChecks(true)
	dbOpts.SetWriteBufferSize(1 << 30)
	dbOpts.SetMaxWriteBufferNumber(20)
	dbOpts.SetMaxBackgroundJobs(4)
	dbOpts.SetMaxSubcompactions(4)
	dbOpts.SetAtomicFlush(true)

	trigger := int(5 * cfg.DatabaseRollbackableBlocks)

	cfOpts := make([]*gorocksdb.Options, len(names))
	for i, name := range names {
		o := gorocksdb.NewDefaultOptions()
		o.SetLevel0FileNumCompactionTrigger(trigger)
		o.SetLevel0SlowdownWritesTrigger(trigger)
		o.SetLevel0StopWritesTrigger(trigger)
		o.SetNumLevels(6)
		o.SetCompactionStyle(gorocksdb.LevelCompactionStyle)
		if isAppendOnlyColumn(name) {
			o.SetMergeOperator(NewAppendMergeOperator())
		}
		if name == transactionHashesColumnName {
			bbto := gorocksdb.NewDefaultBlockBasedTableOptions()
			bbto.SetFilterPolicy(gorocksdb.NewBloomFilter(10))
			o.SetBlockBasedTableFactory(bbto)
		}
		cfOpts[i] = o
	}

	db, handles, err := gorocksdb.OpenDbColumnFamilies(dbOpts, path, names, cfOpts)
	if err != nil {
		return nil, errors.Wrap(err, "store: open column families")
	}

	e := &Engine{db: db, cfNames: names, cfs: map[string]*gorocksdb.ColumnFamilyHandle{}, cfg: cfg}
	for i, name := range names {
		e.cfs[name] = handles[i]
	}
	return e, nil
}

const transactionHashesColumnName = "transaction_hashes"

func isAppendOnlyColumn(name string) bool {
	switch name {
	case "user_history", "user_sponsors", "storage_entries":
		return true
	default:
		return false
	}
}

func (e *Engine) Handle(name string) *gorocksdb.ColumnFamilyHandle {
	return e.cfs[name]
}

func (e *Engine) Close() {
	for _, h := range e.cfs {
		h.Destroy()
	}
	e.db.Close()
}

// NewBatch returns an empty write batch for staged mutations.
func (e *Engine) NewBatch() *gorocksdb.WriteBatch {
	return gorocksdb.NewWriteBatch()
}

// WriteUnsynced applies batch with the WAL disabled and sync=false;
// durability is provided by the subsequent synchronous Flush, not by
// this write.
func (e *Engine) WriteUnsynced(batch *gorocksdb.WriteBatch) error {
	wo := gorocksdb.NewDefaultWriteOptions()
	wo.DisableWAL(true)
	wo.SetSync(false)
	return e.db.Write(wo, batch)
}

// FlushAll synchronously flushes every column family (atomic_flush
// guarantees the set lands together).
func (e *Engine) FlushAll() error {
	fo := gorocksdb.NewDefaultFlushOptions()
	fo.SetWait(true)
	names := make([]*gorocksdb.ColumnFamilyHandle, 0, len(e.cfs))
	for _, h := range e.cfs {
		names = append(names, h)
	}
	return e.db.FlushCFs(names, fo)
}

// Get reads key from the named column family.
func (e *Engine) Get(cf string, key []byte) ([]byte, error) {
	ro := gorocksdb.NewDefaultReadOptions()
	slice, err := e.db.GetCF(ro, e.cfs[cf], key)
	if err != nil {
		return nil, err
	}
	defer slice.Free()
	if !slice.Exists() {
		return nil, nil
	}
	out := make([]byte, len(slice.Data()))
	copy(out, slice.Data())
	return out, nil
}

// MultiGet batch-reads keys from the named column family.
func (e *Engine) MultiGet(cf string, keys [][]byte) ([][]byte, error) {
	ro := gorocksdb.NewDefaultReadOptions()
	handle := e.cfs[cf]
	handles := make([]*gorocksdb.ColumnFamilyHandle, len(keys))
	for i := range handles {
		handles[i] = handle
	}
	slices, err := e.db.MultiGetCFMultiCF(ro, handles, keys)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(keys))
	for i, s := range slices {
		if s.Exists() {
			b := make([]byte, len(s.Data()))
			copy(b, s.Data())
			out[i] = b
		}
		s.Free()
	}
	return out, nil
}
