package game

import "time"

// Account is the full player ledger row. Every field maps to a column in
// game.accounts; the sim core mutates it only through locked transactions
// (missions) or single-row delta updates (turn sweep).
type Account struct {
	ID                int64
	Credits           int64
	BankedCredits     int64
	UntrainedCitizens int64
	AttackTurns       int64

	Workers  int64
	Soldiers int64
	Guards   int64
	Sentries int64
	Spies    int64

	OffenseUpgrade       int32
	DefenseUpgrade       int32
	EconomyUpgrade       int32
	PopulationUpgrade    int32
	SpyUpgrade           int32
	FortificationUpgrade int32

	StrengthPoints     int32
	ConstitutionPoints int32
	WealthPoints       int32
	DexterityPoints    int32
	CharismaPoints     int32

	AllianceID             *int64
	Level                  int32
	Experience             int64
	FortificationHitpoints int64

	DepositsToday int32
	LastDepositAt *time.Time
	LastUpdated   time.Time
}

// UnitCount returns the population column for a unit type.
func (a *Account) UnitCount(u UnitType) int64 {
	switch u {
	case UnitWorkers:
		return a.Workers
	case UnitSoldiers:
		return a.Soldiers
	case UnitGuards:
		return a.Guards
	case UnitSentries:
		return a.Sentries
	case UnitSpies:
		return a.Spies
	}
	return 0
}

// AllianceBonuses is the read-only modifier row for one alliance. Percent
// fields scale income or power; flat fields add directly per turn tick.
type AllianceBonuses struct {
	CreditsFlat  int64
	CitizensFlat int64
	IncomePct    float64
	ResourcesPct float64
	OffensePct   float64
	DefensePct   float64
}

// Structure is one damageable installation. Integrity runs 0-100 and feeds
// the structure multiplier of the matching combat domain.
type Structure struct {
	AccountID int64
	Key       StructureKey
	Integrity int32
	Level     int32
}

// MissionRequest is the validated input to ResolveMission. Target fields are
// mission-specific: TargetUnit for assassination, Mode plus TargetStructure or
// TargetCategory for total sabotage.
type MissionRequest struct {
	AttackerID int64
	DefenderID int64
	Type       MissionType
	Turns      int

	TargetUnit      UnitType
	Mode            SabotageMode
	TargetStructure StructureKey
	TargetCategory  LoadoutCategory
}

// MissionResult is the committed outcome surfaced to the caller.
type MissionResult struct {
	MissionID     string       `json:"mission_id"`
	Type          MissionType  `json:"mission_type"`
	Success       bool         `json:"success"`
	Critical      bool         `json:"critical,omitempty"`
	AttackerPower int64        `json:"attacker_power"`
	DefenderPower int64        `json:"defender_power"`
	TurnsSpent    int          `json:"turns_spent"`
	CreditsSpent  int64        `json:"credits_spent,omitempty"`
	UnitsKilled   int64        `json:"units_killed,omitempty"`
	StructDamage  int64        `json:"structure_damage,omitempty"`
	AttackerXP    int64        `json:"attacker_xp"`
	DefenderXP    int64        `json:"defender_xp"`
	Intel         *IntelReport `json:"intel,omitempty"`
	Sabotage      *SabotageReport `json:"sabotage,omitempty"`
}

// IntelReport is the intelligence payload: a random sample of the defender's
// revealed-stat pool taken at resolution time.
type IntelReport struct {
	Facts []IntelFact `json:"facts"`
}

type IntelFact struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// SabotageReport details a total-sabotage strike for the mission log payload.
type SabotageReport struct {
	Mode      SabotageMode    `json:"mode"`
	Critical  bool            `json:"critical"`
	Percent   int32           `json:"percent"`
	Structure StructureKey    `json:"structure,omitempty"`
	Category  LoadoutCategory `json:"category,omitempty"`

	IntegrityBefore int32 `json:"integrity_before,omitempty"`
	IntegrityAfter  int32 `json:"integrity_after,omitempty"`
	Downgraded      bool  `json:"downgraded,omitempty"`

	Items []LoadoutDamage `json:"items,omitempty"`
}

type LoadoutDamage struct {
	ItemKey   string `json:"item_key"`
	Before    int64  `json:"before"`
	After     int64  `json:"after"`
	Destroyed int64  `json:"destroyed"`
}

// MissionLog mirrors one append-only game.mission_logs row.
type MissionLog struct {
	ID            string      `json:"id"`
	AttackerID    int64       `json:"attacker_id"`
	DefenderID    int64       `json:"defender_id"`
	Type          MissionType `json:"mission_type"`
	Success       bool        `json:"success"`
	UnitsKilled   int64       `json:"units_killed"`
	StructDamage  int64       `json:"structure_damage"`
	AttackerPower int64       `json:"attacker_power"`
	DefenderPower int64       `json:"defender_power"`
	AttackerXP    int64       `json:"attacker_xp"`
	DefenderXP    int64       `json:"defender_xp"`
	Intel         []byte      `json:"intel,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

// AccountOverview is the derived read model served by the API and CLI.
type AccountOverview struct {
	AccountID      int64 `json:"account_id"`
	Level          int32 `json:"level"`
	Experience     int64 `json:"experience"`
	Credits        int64 `json:"credits"`
	BankedCredits  int64 `json:"banked_credits"`
	AttackTurns    int64 `json:"attack_turns"`
	OffensePower   int64 `json:"offense_power"`
	DefensePower   int64 `json:"defense_power"`
	SpyOffense     int64 `json:"spy_offense"`
	SentryDefense  int64 `json:"sentry_defense"`
	IncomePerTurn  int64 `json:"income_per_turn"`
	CitizensPerTurn int64 `json:"citizens_per_turn"`
}

// SweepStats summarizes one turn-regeneration pass.
type SweepStats struct {
	Scanned  int `json:"scanned"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}
