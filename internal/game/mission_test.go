package game

import (
	"errors"
	"testing"
)

func validRequest() MissionRequest {
	return MissionRequest{
		AttackerID: 1,
		DefenderID: 2,
		Type:       MissionIntelligence,
		Turns:      1,
	}
}

func TestMissionRequestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*MissionRequest)
		ok     bool
	}{
		{"intelligence baseline", func(r *MissionRequest) {}, true},
		{"missing defender", func(r *MissionRequest) { r.DefenderID = 0 }, false},
		{"self target", func(r *MissionRequest) { r.DefenderID = r.AttackerID }, false},
		{"zero turns", func(r *MissionRequest) { r.Turns = 0 }, false},
		{"too many turns", func(r *MissionRequest) { r.Turns = MaxMissionTurns + 1 }, false},
		{"max turns", func(r *MissionRequest) { r.Turns = MaxMissionTurns }, true},
		{"unknown type", func(r *MissionRequest) { r.Type = "raid" }, false},
		{"assassination needs target", func(r *MissionRequest) {
			r.Type = MissionAssassination
		}, false},
		{"assassination of workers", func(r *MissionRequest) {
			r.Type = MissionAssassination
			r.TargetUnit = UnitWorkers
		}, true},
		{"assassination of spies rejected", func(r *MissionRequest) {
			r.Type = MissionAssassination
			r.TargetUnit = UnitSpies
		}, false},
		{"sabotage needs no target", func(r *MissionRequest) {
			r.Type = MissionSabotage
		}, true},
		{"total sabotage needs mode", func(r *MissionRequest) {
			r.Type = MissionTotalSabotage
		}, false},
		{"total sabotage structure mode", func(r *MissionRequest) {
			r.Type = MissionTotalSabotage
			r.Mode = SabotageStructure
			r.TargetStructure = StructureSentry
		}, true},
		{"structure mode without key", func(r *MissionRequest) {
			r.Type = MissionTotalSabotage
			r.Mode = SabotageStructure
		}, false},
		{"total sabotage loadout mode", func(r *MissionRequest) {
			r.Type = MissionTotalSabotage
			r.Mode = SabotageLoadout
			r.TargetCategory = LoadoutGuard
		}, true},
		{"loadout mode without category", func(r *MissionRequest) {
			r.Type = MissionTotalSabotage
			r.Mode = SabotageLoadout
		}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)
			err := req.Validate()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok {
				if !errors.Is(err, ErrInvalidMission) {
					t.Fatalf("want ErrInvalidMission, got %v", err)
				}
			}
		})
	}
}

func TestDetermineOutcomeNeutralLuck(t *testing.T) {
	tuning := DefaultCatalog().Mission

	// A mid-band roll and a single turn leave the effective ratio equal to
	// the raw ratio.
	res := determineOutcome(tuning, MissionIntelligence, 1000, 500, 1, neutralRoller())
	if !res.success {
		t.Fatal("2:1 mission should succeed")
	}
	if res.effectiveRatio != res.rawRatio {
		t.Fatalf("effective %v != raw %v under neutral luck", res.effectiveRatio, res.rawRatio)
	}

	res = determineOutcome(tuning, MissionIntelligence, 100, 500, 1, neutralRoller())
	if res.success {
		t.Fatal("1:5 mission should fail")
	}
}

func TestDetermineOutcomeTurnsSoftenTheRatio(t *testing.T) {
	tuning := DefaultCatalog().Mission

	// 0.6 raw fails on one turn but four turns double the effective ratio.
	if res := determineOutcome(tuning, MissionSabotage, 600, 1000, 1, neutralRoller()); res.success {
		t.Fatal("0.6 on one turn should fail")
	}
	if res := determineOutcome(tuning, MissionSabotage, 600, 1000, 4, neutralRoller()); !res.success {
		t.Fatal("0.6 over four turns should succeed")
	}
}

func TestDetermineOutcomeLuckBand(t *testing.T) {
	tuning := DefaultCatalog().Mission

	// Worst roll shrinks a marginal win into a loss; best roll rescues it.
	worst := determineOutcome(tuning, MissionIntelligence, 1050, 1000, 1, &scriptRoller{floats: []float64{0}})
	if worst.success {
		t.Fatalf("marginal mission with worst luck should fail (eff %v)", worst.effectiveRatio)
	}
	best := determineOutcome(tuning, MissionIntelligence, 1050, 1000, 1, &scriptRoller{floats: []float64{0.999}})
	if !best.success {
		t.Fatalf("marginal mission with best luck should succeed (eff %v)", best.effectiveRatio)
	}
}

func TestDetermineOutcomeUndefended(t *testing.T) {
	tuning := DefaultCatalog().Mission
	res := determineOutcome(tuning, MissionIntelligence, 1, 0, 1, neutralRoller())
	if !res.success || res.rawRatio != UndefendedRatio {
		t.Fatalf("undefended mission: success=%v raw=%v", res.success, res.rawRatio)
	}
}

// failRoller proves a code path never consults randomness.
type failRoller struct{ t *testing.T }

func (f failRoller) Float64() float64 {
	f.t.Fatal("Float64 consulted on a deterministic path")
	return 0
}

func (f failRoller) IntN(n int) int {
	f.t.Fatal("IntN consulted on a deterministic path")
	return 0
}

func TestDetermineOutcomeTotalSabotageIsDeterministic(t *testing.T) {
	tuning := DefaultCatalog().Mission

	// Total sabotage runs on the raw ratio alone: turns and luck never enter.
	res := determineOutcome(tuning, MissionTotalSabotage, 600, 500, 10, failRoller{t})
	if !res.success || res.critical {
		t.Fatalf("1.2 raw: success=%v critical=%v, want success only", res.success, res.critical)
	}

	res = determineOutcome(tuning, MissionTotalSabotage, 1000, 400, 1, failRoller{t})
	if !res.success || !res.critical {
		t.Fatalf("2.5 raw: success=%v critical=%v, want critical", res.success, res.critical)
	}

	res = determineOutcome(tuning, MissionTotalSabotage, 999, 1000, 10, failRoller{t})
	if res.success {
		t.Fatal("0.999 raw should fail no matter how many turns are spent")
	}
}

func TestEffectFraction(t *testing.T) {
	tuning := DefaultCatalog().Mission

	approx := func(got, want float64) bool {
		diff := got - want
		if diff < 0 {
			diff = -diff
		}
		return diff < 1e-9
	}

	// Mid roll lands mid band: (0.10+0.25)/2 = 0.175, scaled by the clamped ratio.
	if got := effectFraction(tuning, 1.0, neutralRoller()); !approx(got, 0.175) {
		t.Fatalf("effectFraction(1.0) = %v, want 0.175", got)
	}
	// Decisive wins clamp at 1.5x, narrow wins floor at 0.75x.
	if got := effectFraction(tuning, 10.0, neutralRoller()); !approx(got, 0.175*1.5) {
		t.Fatalf("effectFraction(10.0) = %v, want %v", got, 0.175*1.5)
	}
	if got := effectFraction(tuning, 0.1, neutralRoller()); !approx(got, 0.175*0.75) {
		t.Fatalf("effectFraction(0.1) = %v, want %v", got, 0.175*0.75)
	}
}

func TestLoadoutDestroyPercentBounds(t *testing.T) {
	tuning := DefaultCatalog().Mission

	cases := []struct {
		name     string
		roll     int
		critical bool
		want     int32
	}{
		{"floor roll", 0, false, 10},
		{"ceiling roll", 80, false, 90},
		{"floor roll with crit bonus", 0, true, 20},
		{"ceiling roll caps the crit bonus", 80, true, 90},
		{"near-ceiling crit stays capped", 75, true, 90},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := loadoutDestroyPercent(tuning, tc.critical, &scriptRoller{ints: []int{tc.roll}})
			if got != tc.want {
				t.Fatalf("loadoutDestroyPercent(roll=%d, crit=%v) = %d, want %d", tc.roll, tc.critical, got, tc.want)
			}
		})
	}

	// Every possible roll stays inside the configured band, critical or not.
	for roll := 0; roll <= 80; roll++ {
		for _, critical := range []bool{false, true} {
			got := loadoutDestroyPercent(tuning, critical, &scriptRoller{ints: []int{roll}})
			if got < tuning.LoadoutDestroyMinPct || got > tuning.LoadoutDestroyMaxPct {
				t.Fatalf("roll %d crit %v escaped the band: %d", roll, critical, got)
			}
		}
	}
}

func TestAssassinationConverted(t *testing.T) {
	if got := assassinationConverted(100, 0.20); got != 20 {
		t.Fatalf("100 workers at 20%% = %d, want 20", got)
	}
	if got := assassinationConverted(100, 0.999); got != 99 {
		t.Fatalf("floor should leave a survivor: %d", got)
	}
	// Capped at the standing count even if the fraction overshoots.
	if got := assassinationConverted(3, 2.0); got != 3 {
		t.Fatalf("overshoot should cap at 3, got %d", got)
	}
	if got := assassinationConverted(4, 0.10); got != 0 {
		t.Fatalf("sub-unit share should floor to 0, got %d", got)
	}
	if got := assassinationConverted(0, 0.20); got != 0 {
		t.Fatalf("empty population should convert nothing, got %d", got)
	}
}
