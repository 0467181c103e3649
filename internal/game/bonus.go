package game

import "math"

// domainProfile ties one combat domain to its unit column, proficiency stat,
// upgrade track, loadout category, and alliance modifier. The four profiles
// are the only place this mapping exists; both the power calculator and the
// account overview go through it.
type domainProfile struct {
	units    UnitType
	loadout  LoadoutCategory
	track    UpgradeTrack
	statPts  func(*Account) int32
	alliance func(AllianceBonuses) float64
}

var domainProfiles = map[StructureKey]domainProfile{
	StructureOffense: {
		units:    UnitSoldiers,
		loadout:  LoadoutSoldier,
		track:    TrackOffense,
		statPts:  func(a *Account) int32 { return a.StrengthPoints },
		alliance: func(b AllianceBonuses) float64 { return b.OffensePct },
	},
	StructureDefense: {
		units:    UnitGuards,
		loadout:  LoadoutGuard,
		track:    TrackDefense,
		statPts:  func(a *Account) int32 { return a.ConstitutionPoints },
		alliance: func(b AllianceBonuses) float64 { return b.DefensePct },
	},
	StructureSpy: {
		units:    UnitSpies,
		loadout:  LoadoutSpy,
		track:    TrackSpy,
		statPts:  func(a *Account) int32 { return a.DexterityPoints },
		alliance: func(b AllianceBonuses) float64 { return b.OffensePct },
	},
	StructureSentry: {
		units:    UnitSentries,
		loadout:  LoadoutSentry,
		track:    TrackDefense,
		statPts:  func(a *Account) int32 { return a.CharismaPoints },
		alliance: func(b AllianceBonuses) float64 { return b.DefensePct },
	},
}

// CombatBonus is the aggregated multiplier/flat pair for one combat domain.
// Pure data; no randomness and no I/O went into producing it.
type CombatBonus struct {
	Units          int64
	UpgradePct     float64
	ArmoryFlat     int64
	StatPct        float64
	AlliancePct    float64
	StructureRatio float64
}

// Multiplier folds the percentage chain (upgrades, structure integrity,
// alliance) into one scalar. The proficiency stat is applied to the unit base
// separately, before the armory flat is added.
func (b CombatBonus) Multiplier() float64 {
	return (1 + b.UpgradePct/100) * b.StructureRatio * (1 + b.AlliancePct/100)
}

func (b CombatBonus) statMultiplier() float64 {
	return 1 + b.StatPct/100
}

// CombatBonuses aggregates everything one combat domain needs from an account
// snapshot, its armory inventory, its alliance bonuses, and a structure
// integrity ratio (0 < ratio ≤ 1).
func CombatBonuses(cat *Catalog, a *Account, inv map[string]int64, ab AllianceBonuses, domain StructureKey, integrity float64) CombatBonus {
	p := domainProfiles[domain]
	units := a.UnitCount(p.units)

	var flat int64
	for _, item := range cat.ItemsFor(p.loadout) {
		owned := inv[item.Key]
		if owned <= 0 {
			continue
		}
		effective := owned
		if units < effective {
			effective = units
		}
		flat += effective * item.Power
	}

	var track UpgradeTrack
	var level int32
	switch p.track {
	case TrackOffense:
		track, level = TrackOffense, a.OffenseUpgrade
	case TrackDefense:
		track, level = TrackDefense, a.DefenseUpgrade
	case TrackSpy:
		track, level = TrackSpy, a.SpyUpgrade
	}

	return CombatBonus{
		Units:          units,
		UpgradePct:     cat.UpgradeSum(track, level),
		ArmoryFlat:     flat,
		StatPct:        float64(p.statPts(a)),
		AlliancePct:    p.alliance(ab),
		StructureRatio: clampFloat(integrity, 0, 1),
	}
}

// EconomyBonus is the aggregated income chain for the turn sweep.
type EconomyBonus struct {
	ArmoryIncomeFlat     int64
	EconomyUpgradePct    float64
	WealthPct            float64
	AllianceIncomePct    float64
	AllianceResourcesPct float64
	AllianceCreditsFlat  int64
	AllianceCitizensFlat int64
}

// EconomyBonuses aggregates the per-turn income modifiers for one account.
func EconomyBonuses(cat *Catalog, a *Account, inv map[string]int64, ab AllianceBonuses) EconomyBonus {
	var flat int64
	for _, item := range cat.ItemsFor(LoadoutWorker) {
		owned := inv[item.Key]
		if owned <= 0 {
			continue
		}
		effective := owned
		if a.Workers < effective {
			effective = a.Workers
		}
		flat += effective * item.Income
	}
	return EconomyBonus{
		ArmoryIncomeFlat:     flat,
		EconomyUpgradePct:    cat.UpgradeSum(TrackEconomy, a.EconomyUpgrade),
		WealthPct:            float64(a.WealthPoints),
		AllianceIncomePct:    ab.IncomePct,
		AllianceResourcesPct: ab.ResourcesPct,
		AllianceCreditsFlat:  ab.CreditsFlat,
		AllianceCitizensFlat: ab.CitizensFlat,
	}
}

// CreditsPerTurn is the fully scaled credit grant for one attack-turn tick.
func (e EconomyBonus) CreditsPerTurn(cat *Catalog, a *Account) int64 {
	base := float64(cat.Economy.BaseIncome + a.Workers*cat.Economy.CreditsPerWorker + e.ArmoryIncomeFlat)
	scaled := base *
		(1 + e.EconomyUpgradePct/100) *
		(1 + e.WealthPct/100) *
		(1 + e.AllianceIncomePct/100) *
		(1 + e.AllianceResourcesPct/100)
	return int64(math.Floor(scaled)) + e.AllianceCreditsFlat
}

// CitizensPerTurn is the untrained-citizen grant for one tick.
func (e EconomyBonus) CitizensPerTurn(cat *Catalog) int64 {
	return cat.Economy.CitizensPerTurn + e.AllianceCitizensFlat
}
