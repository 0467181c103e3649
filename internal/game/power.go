package game

import "math"

// EffectivePower derives one account's combat score for a domain:
//
//	floor((units*base*statMult + armoryFlat) * upgradeMult * structureMult * allianceMult)
//
// The result is at least 1 whenever the account fields any units or armory in
// the domain, so attacker-side ratio math never divides by zero. An account
// with nothing in the domain scores 0; callers treat a zero defending score as
// the UndefendedRatio sentinel instead.
func EffectivePower(cat *Catalog, a *Account, inv map[string]int64, ab AllianceBonuses, domain StructureKey, integrity float64) int64 {
	b := CombatBonuses(cat, a, inv, ab, domain, integrity)
	raw := float64(b.Units*cat.UnitPower)*b.statMultiplier() + float64(b.ArmoryFlat)
	power := int64(math.Floor(raw * b.Multiplier()))
	if power < 1 && (b.Units > 0 || b.ArmoryFlat > 0) {
		return 1
	}
	if power < 0 {
		return 0
	}
	return power
}

// powerRatio is the raw attacker/defender ratio with the undefended sentinel
// applied. Preserved as an explicit rule, not a division guard.
func powerRatio(attacker, defender int64) float64 {
	if defender <= 0 {
		return UndefendedRatio
	}
	return float64(attacker) / float64(defender)
}
