package game

import (
	"errors"
	"fmt"
	"math"
)

// MissionType enumerates the covert operations a spy fleet can run.
type MissionType string

const (
	MissionIntelligence  MissionType = "intelligence"
	MissionAssassination MissionType = "assassination"
	MissionSabotage      MissionType = "sabotage"
	MissionTotalSabotage MissionType = "total_sabotage"
)

func ParseMissionType(s string) (MissionType, error) {
	switch MissionType(s) {
	case MissionIntelligence, MissionAssassination, MissionSabotage, MissionTotalSabotage:
		return MissionType(s), nil
	}
	return "", fmt.Errorf("%w: unknown mission type %q", ErrInvalidMission, s)
}

// UnitType enumerates the population columns of an account. Assassination may
// only target the subset accepted by ParseAssassinationTarget; the enum keeps
// unit selection out of query strings entirely.
type UnitType string

const (
	UnitWorkers  UnitType = "workers"
	UnitSoldiers UnitType = "soldiers"
	UnitGuards   UnitType = "guards"
	UnitSentries UnitType = "sentries"
	UnitSpies    UnitType = "spies"
)

func ParseAssassinationTarget(s string) (UnitType, error) {
	switch UnitType(s) {
	case UnitWorkers, UnitSoldiers, UnitGuards:
		return UnitType(s), nil
	}
	return "", fmt.Errorf("%w: assassination cannot target %q", ErrInvalidMission, s)
}

// LoadoutCategory scopes armory items to the unit class that equips them.
type LoadoutCategory string

const (
	LoadoutSoldier LoadoutCategory = "soldier"
	LoadoutGuard   LoadoutCategory = "guard"
	LoadoutSentry  LoadoutCategory = "sentry"
	LoadoutSpy     LoadoutCategory = "spy"
	LoadoutWorker  LoadoutCategory = "worker"
)

func ParseLoadoutCategory(s string) (LoadoutCategory, error) {
	switch LoadoutCategory(s) {
	case LoadoutSoldier, LoadoutGuard, LoadoutSentry, LoadoutSpy, LoadoutWorker:
		return LoadoutCategory(s), nil
	}
	return "", fmt.Errorf("%w: unknown loadout category %q", ErrInvalidMission, s)
}

// StructureKey names the damageable installations of an account. Each combat
// domain reads its integrity ratio from the matching structure row.
type StructureKey string

const (
	StructureOffense StructureKey = "offense"
	StructureDefense StructureKey = "defense"
	StructureSpy     StructureKey = "spy"
	StructureSentry  StructureKey = "sentry"
)

func ParseStructureKey(s string) (StructureKey, error) {
	switch StructureKey(s) {
	case StructureOffense, StructureDefense, StructureSpy, StructureSentry:
		return StructureKey(s), nil
	}
	return "", fmt.Errorf("%w: unknown structure %q", ErrInvalidMission, s)
}

// SabotageMode selects the total-sabotage target style.
type SabotageMode string

const (
	SabotageStructure SabotageMode = "structure"
	SabotageLoadout   SabotageMode = "loadout"
)

func ParseSabotageMode(s string) (SabotageMode, error) {
	switch SabotageMode(s) {
	case SabotageStructure, SabotageLoadout:
		return SabotageMode(s), nil
	}
	return "", fmt.Errorf("%w: unknown sabotage mode %q", ErrInvalidMission, s)
}

// UpgradeTrack names the per-account research tracks.
type UpgradeTrack string

const (
	TrackOffense       UpgradeTrack = "offense"
	TrackDefense       UpgradeTrack = "defense"
	TrackEconomy       UpgradeTrack = "economy"
	TrackPopulation    UpgradeTrack = "population"
	TrackSpy           UpgradeTrack = "spy"
	TrackFortification UpgradeTrack = "fortification"
)

const (
	MinMissionTurns = 1
	MaxMissionTurns = 10

	// Ratio granted when the defending side scores zero power.
	UndefendedRatio = 100.0

	DepositReleaseHours  = 6
	UntrainedHoldMinutes = 30
)

var (
	ErrInvalidMission       = errors.New("invalid mission request")
	ErrAccountNotFound      = errors.New("account not found")
	ErrInsufficientTurns    = errors.New("not enough attack turns")
	ErrNoSpies              = errors.New("no spies available")
	ErrInsufficientCredits  = errors.New("not enough credits")
	ErrLevelBracket         = errors.New("target outside your level bracket")
	ErrSabotageCooldown     = errors.New("total sabotage already succeeded in the last 24 hours")
	ErrSabotageShielded     = errors.New("target has absorbed too many total sabotage attempts in the last 24 hours")
	ErrMissionLogNotFound   = errors.New("mission log not found")
	ErrMissionLogRestricted = errors.New("mission log belongs to another account")
)

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// turnsMultiplier softens the benefit of spending many turns on one mission.
func turnsMultiplier(turns int, exponent, ceiling float64) float64 {
	m := math.Pow(float64(turns), exponent)
	if m > ceiling {
		return ceiling
	}
	return m
}

// attackerXP rewards punching up: the factor grows when the defender outlevels
// the attacker and shrinks when farming lower-level targets.
func attackerXP(base int64, turns int, attackerLevel, defenderLevel int32) int64 {
	turnsFactor := clampFloat(math.Sqrt(float64(turns))/2, 0.75, 1.5)
	levelFactor := clampFloat(1+0.05*float64(defenderLevel-attackerLevel), 0.5, 2.0)
	return int64(math.Round(float64(base) * turnsFactor * levelFactor))
}

// defenderXP uses a narrower turns clamp and the inverse level factor.
func defenderXP(base int64, turns int, attackerLevel, defenderLevel int32) int64 {
	turnsFactor := clampFloat(math.Sqrt(float64(turns))/2, 0.75, 1.25)
	levelFactor := clampFloat(1+0.05*float64(attackerLevel-defenderLevel), 0.5, 2.0)
	return int64(math.Round(float64(base) * turnsFactor * levelFactor))
}

// totalSabotageCost doubles per recent success so repeat offenders pay
// progressively more. Charged up front, win or lose.
func totalSabotageCost(base int64, recentSuccesses int64) int64 {
	if recentSuccesses > 3 {
		recentSuccesses = 3
	}
	return base << recentSuccesses
}
