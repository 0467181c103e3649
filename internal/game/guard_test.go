package game

import (
	"errors"
	"testing"
)

func TestWithinLevelBracket(t *testing.T) {
	cases := []struct {
		name                     string
		attackerLvl, defenderLvl int32
		maxDelta                 int32
		want                     bool
	}{
		{"equal levels", 10, 10, 5, true},
		{"at the edge", 10, 15, 5, true},
		{"just outside", 10, 16, 5, false},
		{"symmetric downward", 16, 10, 5, false},
		{"zero disables the bracket", 1, 99, 0, true},
		{"negative disables the bracket", 1, 99, -1, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			attacker := &Account{Level: tc.attackerLvl}
			defender := &Account{Level: tc.defenderLvl}
			if got := withinLevelBracket(attacker, defender, tc.maxDelta); got != tc.want {
				t.Fatalf("withinLevelBracket(%d, %d, %d) = %v, want %v",
					tc.attackerLvl, tc.defenderLvl, tc.maxDelta, got, tc.want)
			}
		})
	}
}

func TestSabotageFrequencyVerdict(t *testing.T) {
	cases := []struct {
		name               string
		attempts, received int64
		want               error
	}{
		{"clear", 0, 0, nil},
		{"one recent success blocks the attacker", 1, 0, ErrSabotageCooldown},
		{"defender under the shield limit", 0, sabotageShieldLimit - 1, nil},
		{"defender at the shield limit", 0, sabotageShieldLimit, ErrSabotageShielded},
		{"cooldown outranks the shield", 2, sabotageShieldLimit + 4, ErrSabotageCooldown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := sabotageFrequencyVerdict(tc.attempts, tc.received)
			if !errors.Is(err, tc.want) {
				t.Fatalf("sabotageFrequencyVerdict(%d, %d) = %v, want %v", tc.attempts, tc.received, err, tc.want)
			}
		})
	}
}
