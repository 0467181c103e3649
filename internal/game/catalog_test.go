package game

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBalanceFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "balance.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadCatalogEmptyPathUsesDefaults(t *testing.T) {
	cat, err := LoadCatalog("")
	require.NoError(t, err)
	assert.EqualValues(t, 10, cat.UnitPower)
	assert.Equal(t, 10, cat.Economy.TurnIntervalMinutes)
}

func TestLoadCatalogOverridesMergeOverDefaults(t *testing.T) {
	path := writeBalanceFile(t, `
unit_power = 12

[mission]
crit_ratio = 3.0
`)
	cat, err := LoadCatalog(path)
	require.NoError(t, err)

	assert.EqualValues(t, 12, cat.UnitPower)
	assert.Equal(t, 3.0, cat.Mission.CritRatio)
	// Untouched sections keep their compiled-in values.
	assert.EqualValues(t, 1000, cat.Economy.BaseIncome)
	assert.Len(t, cat.Armory, 10)
}

func TestLoadCatalogRejectsBadTuning(t *testing.T) {
	path := writeBalanceFile(t, `
[mission]
luck_band = 1.5
`)
	_, err := LoadCatalog(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "luck_band")
}

func TestLoadCatalogRejectsUnknownTrack(t *testing.T) {
	path := writeBalanceFile(t, `
[upgrades]
warp = [1.0, 2.0]
`)
	_, err := LoadCatalog(path)
	require.Error(t, err)
}

func TestLoadCatalogMissingFile(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestUpgradeSum(t *testing.T) {
	cat := DefaultCatalog()

	assert.Zero(t, cat.UpgradeSum(TrackOffense, 0))
	assert.Equal(t, 2.0, cat.UpgradeSum(TrackOffense, 1))
	assert.Equal(t, 7.0, cat.UpgradeSum(TrackOffense, 3)) // 2+2+3

	// Levels past the table keep earning the final entry.
	last := cat.UpgradeSum(TrackOffense, 15)
	assert.Equal(t, last+10.0, cat.UpgradeSum(TrackOffense, 16))
}

func TestItemsFor(t *testing.T) {
	cat := DefaultCatalog()
	workers := cat.ItemsFor(LoadoutWorker)
	require.Len(t, workers, 2)
	for _, item := range workers {
		assert.Positive(t, item.Income)
		assert.Zero(t, item.Power)
	}
	assert.Empty(t, cat.ItemsFor(LoadoutCategory("mech")))
}
