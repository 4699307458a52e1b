// Package config holds the network-compatibility constant table. These
// values are not independently chosen; changing any of them changes
// consensus-relevant behavior (fee math, rollback depth, reward size).
package config

import (
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// Power levels. Per-level arrays have PowerLevels slots, indexed by
// PowerLevelInvalid..PowerLevelHigh; PowerLevelHighest (5) lies outside
// that range and has no slot.
const (
	PowerLevelInvalid  = 0
	PowerLevelLowest   = 1
	PowerLevelLow      = 2
	PowerLevelMedium   = 3
	PowerLevelHigh     = 4
	PowerLevelHighest  = 5
	PowerLevels        = 5
	MaxPower           = 100
	UserMaxKeys        = 10
	UserMaxSupervisors = 10
	UserMaxUpdateDelay = 1 << 20
)

// Config is the single constant table referenced throughout the engine.
// Field names mirror the original kXxx constants.
type Config struct {
	// DatabaseRollbackableBlocks (R): number of recent blocks for which the
	// one-L0-file-per-block invariant is preserved.
	DatabaseRollbackableBlocks uint32
	// StakingDuration (D): number of daily buckets in a miner's locked stake ring.
	StakingDuration uint32
	// MinersQueueSize: number of miners pre-selected to produce the next blocks.
	MinersQueueSize uint32
	// BlocksPerDay: blocks in a 24h period, used for bucket-aging and reward math.
	BlocksPerDay uint32
	// MaxBlockIdDifference: transaction expiry window and transaction-hash GC window.
	MaxBlockIdDifference uint32
	// TransactionMaxSize: hard cap on a serialized transaction, bytes.
	TransactionMaxSize uint32
	// TransactionFee: base fee unit before per-type multiplier and pricing scaling.
	TransactionFee uint64
	// FirstUserBalance: initial token balance credited to the genesis user.
	FirstUserBalance uint64
	// FirstUserStake: initial stake credited to the genesis miner.
	FirstUserStake uint64
	// UserMinFreeTransactions / UserMaxFreeTransactions: CreateUser/SponsorUser bounds.
	UserMinFreeTransactions uint32
	UserMaxFreeTransactions uint32
	// StoragePrefixMaxAllowedUsers: cap on Prefix.settings.allowedUsers.
	StoragePrefixMaxAllowedUsers int
	// StorageEntryMaxValueLength: cap on a single storage_add_entry value, bytes.
	StorageEntryMaxValueLength int
	// MinerEndpointsCacheSize: cap on the miners column's minerEndpoints cache.
	MinerEndpointsCacheSize int
	// BlockInterval set by Init; kept here only as the expected default for tests.
	DefaultBlockInterval time.Duration
}

// Default returns the network-compatibility constant table.
func Default() Config {
	return Config{
		DatabaseRollbackableBlocks:   50,
		StakingDuration:              56,
		MinersQueueSize:              21,
		BlocksPerDay:                 (24 * 60 * 60) / 60,
		MaxBlockIdDifference:         60,
		TransactionMaxSize:           1 << 16,
		TransactionFee:               1000,
		FirstUserBalance:             1_000_000_000,
		FirstUserStake:               1_000_000_000,
		UserMinFreeTransactions:      1,
		UserMaxFreeTransactions:      100,
		StoragePrefixMaxAllowedUsers: 32,
		StorageEntryMaxValueLength:   1 << 16,
		MinerEndpointsCacheSize:      10_000,
		DefaultBlockInterval:         60 * time.Second,
	}
}

// LoadOverrides reads a TOML file at path and applies any fields it sets
// on top of base, returning the merged Config. Used by a test network or
// private deployment that needs a non-default constant table; the main
// network never ships one. Missing file is not an error — base is
// returned unchanged.
func LoadOverrides(path string, base Config) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return base, errors.Wrap(err, "config: read overrides file")
	}
	out := base
	if err := toml.Unmarshal(raw, &out); err != nil {
		return base, errors.Wrap(err, "config: parse overrides file")
	}
	return out, nil
}
