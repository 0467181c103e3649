package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sweepAccountFixture(lastUpdated time.Time) *Account {
	return &Account{
		ID:          7,
		Workers:     10,
		LastUpdated: lastUpdated,
	}
}

func TestComputeTurnGrantFreshAnchorIsEmpty(t *testing.T) {
	cat := DefaultCatalog()
	now := time.Now()
	a := sweepAccountFixture(now)

	grant := computeTurnGrant(cat, a, EconomyBonuses(cat, a, nil, AllianceBonuses{}), now)
	assert.True(t, grant.empty(), "no elapsed time should grant nothing")
}

func TestComputeTurnGrantElapsedTicks(t *testing.T) {
	cat := DefaultCatalog()
	now := time.Now()
	// 25 minutes on a 10-minute interval: two full ticks, remainder held by
	// the anchor not moving past now.
	a := sweepAccountFixture(now.Add(-25 * time.Minute))
	eco := EconomyBonuses(cat, a, nil, AllianceBonuses{})

	grant := computeTurnGrant(cat, a, eco, now)
	require.EqualValues(t, 2, grant.turnsElapsed)
	assert.EqualValues(t, 4, grant.turns, "two ticks at two turns each")
	assert.EqualValues(t, 2, grant.citizens)
	assert.Equal(t, eco.CreditsPerTurn(cat, a)*2, grant.credits)
	assert.Zero(t, grant.depositsReleased)
}

func TestComputeTurnGrantIsAnchorIdempotent(t *testing.T) {
	cat := DefaultCatalog()
	now := time.Now()
	a := sweepAccountFixture(now.Add(-25 * time.Minute))
	eco := EconomyBonuses(cat, a, nil, AllianceBonuses{})

	first := computeTurnGrant(cat, a, eco, now)
	second := computeTurnGrant(cat, a, eco, now)
	assert.Equal(t, first, second, "same anchor and clock must yield the same grant")

	// Once the anchor advances the next pass grants nothing.
	a.LastUpdated = now
	assert.True(t, computeTurnGrant(cat, a, eco, now).empty())
}

func TestComputeTurnGrantDepositRelease(t *testing.T) {
	cat := DefaultCatalog()
	now := time.Now()

	cases := []struct {
		name     string
		deposits int32
		agoHours float64
		want     int32
	}{
		{"before first maturity", 3, 5.9, 0},
		{"one slot", 3, 6, 1},
		{"two slots", 3, 13, 2},
		{"capped at held deposits", 3, 100, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := sweepAccountFixture(now)
			a.DepositsToday = tc.deposits
			at := now.Add(-time.Duration(tc.agoHours * float64(time.Hour)))
			a.LastDepositAt = &at

			grant := computeTurnGrant(cat, a, EconomyBonuses(cat, a, nil, AllianceBonuses{}), now)
			assert.Equal(t, tc.want, grant.depositsReleased)
		})
	}
}

func TestComputeTurnGrantNoDepositAnchor(t *testing.T) {
	cat := DefaultCatalog()
	now := time.Now()
	a := sweepAccountFixture(now)
	a.DepositsToday = 2 // held, but no timestamp to mature against

	grant := computeTurnGrant(cat, a, EconomyBonuses(cat, a, nil, AllianceBonuses{}), now)
	assert.True(t, grant.empty())
}

func TestComputeTurnGrantAnchorIsComputeClock(t *testing.T) {
	cat := DefaultCatalog()
	now := time.Now()
	a := sweepAccountFixture(now.Add(-25 * time.Minute))
	eco := EconomyBonuses(cat, a, nil, AllianceBonuses{})

	grant := computeTurnGrant(cat, a, eco, now)
	require.EqualValues(t, 2, grant.turnsElapsed)

	// The anchor written back is the clock the grant was computed against.
	// Re-sweeping before a full interval accrues past that clock grants
	// nothing: the 5-minute remainder is not paid out twice.
	a.LastUpdated = now
	assert.True(t, computeTurnGrant(cat, a, eco, now.Add(9*time.Minute)).empty())
	assert.EqualValues(t, 1, computeTurnGrant(cat, a, eco, now.Add(10*time.Minute)).turnsElapsed)
}
