package store

import (
	"github.com/pkg/errors"
	"github.com/stumble/gorocksdb"
)

// l0File is the subset of RocksDB SST metadata the rollback protocol
// needs: its name (for DeleteFile) and whether a compaction currently
// touches it.
type l0File struct {
	Name         string
	BeingCompacted bool
}

// columnL0Files returns cf's level-0 files, newest first. The gorocksdb
// metadata API returns them oldest-first per level, so this function
// reverses them.
func (e *Engine) columnL0Files(cf string) []l0File {
	meta := e.db.GetColumnFamilyMetadataCF(e.cfs[cf])
	if meta == nil || len(meta.Levels) == 0 {
		return nil
	}
	level0 := meta.Levels[0]
	files := make([]l0File, len(level0.Files))
	for i, f := range level0.Files {
		files[i] = l0File{Name: f.Name, BeingCompacted: f.BeingCompacted}
	}
	// newest-first: RocksDB appends new L0 files at increasing file
	// numbers, and file metadata preserves insertion order, so the
	// newest file is last in the raw listing; reverse it here.
	for i, j := 0, len(files)-1; i < j; i, j = i+1, j-1 {
		files[i], files[j] = files[j], files[i]
	}
	return files
}

// MaxRollbackDepth returns the minimum over every column family of (L0
// file count with no file currently being compacted in the inspected
// prefix), capped by cfg.DatabaseRollbackableBlocks.
func (e *Engine) MaxRollbackDepth() uint32 {
	max := e.cfg.DatabaseRollbackableBlocks
	depth := max
	for _, name := range e.cfNames {
		files := e.columnL0Files(name)
		count := uint32(0)
		for _, f := range files {
			if f.BeingCompacted {
				break
			}
			count++
			if count >= max {
				break
			}
		}
		if count < depth {
			depth = count
		}
	}
	return depth
}

// DisableAutoCompactions / EnableAutoCompactions bracket a rollback so
// file-segment deletion is atomic with respect to the compaction thread.
func (e *Engine) DisableAutoCompactions() error {
	return e.setAutoCompactions(false)
}

func (e *Engine) EnableAutoCompactions() error {
	return e.setAutoCompactions(true)
}

func (e *Engine) setAutoCompactions(enabled bool) error {
	for _, name := range e.cfNames {
		if err := e.db.SetOptionsCF(e.cfs[name], map[string]string{
			"disable_auto_compactions": boolString(!enabled),
		}); err != nil {
			return errors.Wrapf(err, "store: set auto-compactions on %s", name)
		}
	}
	return nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// Rollback deletes exactly the newest n L0 files of every column family,
// the file-segment-deletion rollback described in spec.md §4.7. It
// refuses (returning false, nil) if n exceeds the frontier any column
// can support, or if any of the candidate files is currently being
// compacted.
func (e *Engine) Rollback(n uint32) (bool, error) {
	if n == 0 {
		return true, nil
	}
	if n > e.MaxRollbackDepth() {
		return false, nil
	}

	if err := e.DisableAutoCompactions(); err != nil {
		return false, err
	}
	defer e.EnableAutoCompactions()

	plan := make(map[string][]string, len(e.cfNames))
	for _, name := range e.cfNames {
		files := e.columnL0Files(name)
		if uint32(len(files)) < n {
			return false, nil
		}
		for i := uint32(0); i < n; i++ {
			if files[i].BeingCompacted {
				return false, nil
			}
		}
		names := make([]string, n)
		for i := uint32(0); i < n; i++ {
			names[i] = files[i].Name
		}
		plan[name] = names
	}

	for _, names := range plan {
		for _, name := range names {
			if err := e.db.DeleteFile(name); err != nil {
				return false, errors.Wrapf(err, "store: delete file %s", name)
			}
		}
	}
	return true, nil
}

// SuggestPartialL0Compaction folds cf's L0 files older than the newest
// cfg.DatabaseRollbackableBlocks down into L1, by name, via CompactFiles.
// It never touches the newest R files: those are the rollback frontier,
// and a range- or full-compaction could fold them away along with the
// excess, which would silently shrink how far the chain can roll back.
func (e *Engine) SuggestPartialL0Compaction(cf string) error {
	files := e.columnL0Files(cf)
	if uint32(len(files)) <= e.cfg.DatabaseRollbackableBlocks {
		return nil
	}
	excess := files[e.cfg.DatabaseRollbackableBlocks:]
	names := make([]string, 0, len(excess))
	for _, f := range excess {
		if f.BeingCompacted {
			continue
		}
		names = append(names, f.Name)
	}
	if len(names) == 0 {
		return nil
	}
	opts := gorocksdb.NewDefaultCompactionOptions()
	return e.db.CompactFiles(opts, e.cfs[cf], names, 1)
}

// MostCompactableColumn returns the column family with the highest L0
// file count beyond the rollback frontier, or "" if none exceed it.
func (e *Engine) MostCompactableColumn() string {
	best := ""
	bestExcess := uint32(0)
	for _, name := range e.cfNames {
		files := e.columnL0Files(name)
		anyCompacting := false
		for _, f := range files {
			if f.BeingCompacted {
				anyCompacting = true
				break
			}
		}
		if anyCompacting {
			continue
		}
		if uint32(len(files)) <= e.cfg.DatabaseRollbackableBlocks {
			continue
		}
		excess := uint32(len(files)) - e.cfg.DatabaseRollbackableBlocks
		if excess > bestExcess {
			bestExcess = excess
			best = name
		}
	}
	return best
}
