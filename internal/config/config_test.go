package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverridesReturnsBaseWhenFileMissing(t *testing.T) {
	base := Default()
	got, err := LoadOverrides(filepath.Join(t.TempDir(), "missing.toml"), base)
	require.NoError(t, err)
	assert.Equal(t, base, got)
}

func TestLoadOverridesAppliesPartialOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
TransactionFee = 5000
StakingDuration = 7
`), 0o600))

	got, err := LoadOverrides(path, Default())
	require.NoError(t, err)

	assert.Equal(t, uint64(5000), got.TransactionFee)
	assert.Equal(t, uint32(7), got.StakingDuration)
	assert.Equal(t, Default().BlocksPerDay, got.BlocksPerDay)
}

func TestLoadOverridesRejectsMalformedToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("not = [valid"), 0o600))

	_, err := LoadOverrides(path, Default())
	assert.Error(t, err)
}

func TestDefaultBlocksPerDayMatchesMinuteBlockInterval(t *testing.T) {
	cfg := Default()
	assert.Equal(t, uint32(24*60), cfg.BlocksPerDay)
}
