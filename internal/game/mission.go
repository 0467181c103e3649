package game

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Validate rejects a mission before any lock is taken. Every failure wraps
// the ErrInvalidMission sentinel with the concrete reason.
func (r MissionRequest) Validate() error {
	if r.AttackerID <= 0 || r.DefenderID <= 0 {
		return fmt.Errorf("%w: both account ids are required", ErrInvalidMission)
	}
	if r.AttackerID == r.DefenderID {
		return fmt.Errorf("%w: cannot run a mission against yourself", ErrInvalidMission)
	}
	if r.Turns < MinMissionTurns || r.Turns > MaxMissionTurns {
		return fmt.Errorf("%w: turns must be between %d and %d", ErrInvalidMission, MinMissionTurns, MaxMissionTurns)
	}
	if _, err := ParseMissionType(string(r.Type)); err != nil {
		return err
	}
	switch r.Type {
	case MissionAssassination:
		if _, err := ParseAssassinationTarget(string(r.TargetUnit)); err != nil {
			return err
		}
	case MissionTotalSabotage:
		mode, err := ParseSabotageMode(string(r.Mode))
		if err != nil {
			return err
		}
		if mode == SabotageStructure {
			if _, err := ParseStructureKey(string(r.TargetStructure)); err != nil {
				return err
			}
		} else if _, err := ParseLoadoutCategory(string(r.TargetCategory)); err != nil {
			return err
		}
	}
	return nil
}

type outcome struct {
	success        bool
	critical       bool
	rawRatio       float64
	effectiveRatio float64
}

// determineOutcome applies the generic turns/luck formula, except for total
// sabotage which deliberately runs on the raw ratio alone. The asymmetry is
// game balance, not an accident; do not unify the two paths.
func determineOutcome(t MissionTuning, mtype MissionType, attackerPower, defenderPower int64, turns int, r Roller) outcome {
	raw := powerRatio(attackerPower, defenderPower)
	if mtype == MissionTotalSabotage {
		return outcome{
			success:        raw >= 1.0,
			critical:       raw >= t.CritRatio,
			rawRatio:       raw,
			effectiveRatio: raw,
		}
	}
	eff := raw * turnsMultiplier(turns, t.SoftTurnExponent, t.MaxTurnsMultiplier) * luckScalar(r, t.LuckBand)
	return outcome{
		success:        eff >= t.MinSuccessRatio,
		rawRatio:       raw,
		effectiveRatio: eff,
	}
}

// effectFraction is the shared assassination/sabotage magnitude roll: a
// bounded random percentage scaled by how decisively the mission won.
func effectFraction(t MissionTuning, effectiveRatio float64, r Roller) float64 {
	return rollBetween(r, t.MinEffectPct, t.MaxEffectPct) * clampFloat(effectiveRatio, 0.75, 1.5)
}

// ResolveMission runs one espionage mission end to end inside a single
// transaction: validate, lock both accounts (lowest id first), anti-abuse
// checks, power computation, outcome, effects, turn/XP spend, log, commit.
// Any error rolls the whole attempt back, turns included.
func (s *Service) ResolveMission(ctx context.Context, req MissionRequest) (MissionResult, error) {
	var out MissionResult
	if err := req.Validate(); err != nil {
		return out, err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return out, fmt.Errorf("begin mission tx: %w", err)
	}
	defer tx.Rollback(ctx)

	attacker, defender, err := lockAccountPair(ctx, tx, req.AttackerID, req.DefenderID)
	if err != nil {
		return out, err
	}
	if attacker.AttackTurns < int64(req.Turns) {
		return out, fmt.Errorf("%w: have %d, need %d", ErrInsufficientTurns, attacker.AttackTurns, req.Turns)
	}
	if attacker.Spies <= 0 {
		return out, ErrNoSpies
	}
	if err := s.guardMission(ctx, tx, req, &attacker, &defender); err != nil {
		return out, err
	}

	var creditsSpent int64
	if req.Type == MissionTotalSabotage {
		creditsSpent, err = s.chargeTotalSabotage(ctx, tx, &attacker)
		if err != nil {
			return out, err
		}
	}

	attackerPower, defenderPower, err := s.missionPowers(ctx, tx, &attacker, &defender)
	if err != nil {
		return out, err
	}
	res := determineOutcome(s.cat.Mission, req.Type, attackerPower, defenderPower, req.Turns, s.roll)

	out = MissionResult{
		Type:          req.Type,
		Success:       res.success,
		Critical:      res.critical,
		AttackerPower: attackerPower,
		DefenderPower: defenderPower,
		TurnsSpent:    req.Turns,
		CreditsSpent:  creditsSpent,
	}

	var intelPayload any
	if res.success {
		switch req.Type {
		case MissionIntelligence:
			report, err := s.compileIntel(ctx, tx, &defender)
			if err != nil {
				return out, err
			}
			out.Intel = report
			intelPayload = report
		case MissionAssassination:
			killed, err := s.applyAssassination(ctx, tx, &defender, req.TargetUnit, res.effectiveRatio)
			if err != nil {
				return out, err
			}
			out.UnitsKilled = killed
		case MissionSabotage:
			damage, err := s.applyFortSabotage(ctx, tx, &defender, res.effectiveRatio)
			if err != nil {
				return out, err
			}
			out.StructDamage = damage
		case MissionTotalSabotage:
			report, damage, err := s.applyTotalSabotage(ctx, tx, &defender, req, res.critical)
			if err != nil {
				return out, err
			}
			out.Sabotage = report
			out.StructDamage = damage
			intelPayload = report
		}
	}

	atkXP := attackerXP(s.cat.Mission.AttackerXPBase, req.Turns, attacker.Level, defender.Level)
	defXP := defenderXP(s.cat.Mission.DefenderXPBase, req.Turns, attacker.Level, defender.Level)
	out.AttackerXP = atkXP
	out.DefenderXP = defXP

	if _, err := tx.Exec(ctx, `
		UPDATE game.accounts
		SET attack_turns = attack_turns - $1,
		    experience = experience + $2
		WHERE id = $3
	`, req.Turns, atkXP, attacker.ID); err != nil {
		return out, fmt.Errorf("spend turns: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE game.accounts
		SET experience = experience + $1
		WHERE id = $2
	`, defXP, defender.ID); err != nil {
		return out, fmt.Errorf("credit defender xp: %w", err)
	}

	entry := MissionLog{
		ID:            uuid.NewString(),
		AttackerID:    attacker.ID,
		DefenderID:    defender.ID,
		Type:          req.Type,
		Success:       res.success,
		UnitsKilled:   out.UnitsKilled,
		StructDamage:  out.StructDamage,
		AttackerPower: attackerPower,
		DefenderPower: defenderPower,
		AttackerXP:    atkXP,
		DefenderXP:    defXP,
		CreatedAt:     time.Now().UTC(),
	}
	if intelPayload != nil {
		raw, err := json.Marshal(intelPayload)
		if err != nil {
			return out, fmt.Errorf("encode intel payload: %w", err)
		}
		entry.Intel = raw
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO game.mission_logs
		    (id, attacker_id, defender_id, mission_type, success,
		     units_killed, structure_damage, attacker_power, defender_power,
		     attacker_xp, defender_xp, intel, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, entry.ID, entry.AttackerID, entry.DefenderID, string(entry.Type), entry.Success,
		entry.UnitsKilled, entry.StructDamage, entry.AttackerPower, entry.DefenderPower,
		entry.AttackerXP, entry.DefenderXP, entry.Intel, entry.CreatedAt); err != nil {
		return out, fmt.Errorf("append mission log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return out, fmt.Errorf("commit mission: %w", err)
	}
	out.MissionID = entry.ID

	s.log.Info("mission resolved",
		"mission_id", entry.ID,
		"type", string(req.Type),
		"attacker_id", attacker.ID,
		"defender_id", defender.ID,
		"success", res.success,
		"ratio", res.effectiveRatio,
	)
	s.notifyAchievements(entry)
	return out, nil
}

// chargeTotalSabotage computes the progressive cost from the attacker's
// recent successes and deducts it. Paid regardless of the eventual outcome;
// only a rollback refunds it.
func (s *Service) chargeTotalSabotage(ctx context.Context, tx pgx.Tx, attacker *Account) (int64, error) {
	recent, err := countSabotageByAttacker(ctx, tx, attacker.ID, sabotageCostWindow)
	if err != nil {
		return 0, fmt.Errorf("sabotage cost query: %w", err)
	}
	cost := totalSabotageCost(s.cat.Mission.TotalSabotageBaseCost, recent)
	if attacker.Credits < cost {
		return 0, fmt.Errorf("%w: total sabotage costs %d", ErrInsufficientCredits, cost)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE game.accounts
		SET credits = credits - $1
		WHERE id = $2
	`, cost, attacker.ID); err != nil {
		return 0, fmt.Errorf("charge sabotage cost: %w", err)
	}
	attacker.Credits -= cost
	return cost, nil
}

// missionPowers computes attacker spy offense vs defender sentry defense,
// each with its own armory, alliance, and structure-integrity chain.
func (s *Service) missionPowers(ctx context.Context, tx pgx.Tx, attacker, defender *Account) (int64, int64, error) {
	atkInv, err := loadArmory(ctx, tx, attacker.ID, false)
	if err != nil {
		return 0, 0, fmt.Errorf("load attacker armory: %w", err)
	}
	defInv, err := loadArmory(ctx, tx, defender.ID, false)
	if err != nil {
		return 0, 0, fmt.Errorf("load defender armory: %w", err)
	}
	atkAB, err := loadAllianceBonuses(ctx, tx, attacker.AllianceID)
	if err != nil {
		return 0, 0, fmt.Errorf("load attacker alliance: %w", err)
	}
	defAB, err := loadAllianceBonuses(ctx, tx, defender.AllianceID)
	if err != nil {
		return 0, 0, fmt.Errorf("load defender alliance: %w", err)
	}
	atkIntegrity, err := structureIntegrity(ctx, tx, attacker.ID, StructureSpy)
	if err != nil {
		return 0, 0, fmt.Errorf("attacker spy structure: %w", err)
	}
	defIntegrity, err := structureIntegrity(ctx, tx, defender.ID, StructureSentry)
	if err != nil {
		return 0, 0, fmt.Errorf("defender sentry structure: %w", err)
	}
	atkPower := EffectivePower(s.cat, attacker, atkInv, atkAB, StructureSpy, atkIntegrity)
	defPower := EffectivePower(s.cat, defender, defInv, defAB, StructureSentry, defIntegrity)
	return atkPower, defPower, nil
}

// compileIntel samples a fixed-size subset of the defender's revealed-stat
// pool. Reads only; intelligence mutates nothing on either side.
func (s *Service) compileIntel(ctx context.Context, tx pgx.Tx, defender *Account) (*IntelReport, error) {
	inv, err := loadArmory(ctx, tx, defender.ID, false)
	if err != nil {
		return nil, fmt.Errorf("load defender armory: %w", err)
	}
	ab, err := loadAllianceBonuses(ctx, tx, defender.AllianceID)
	if err != nil {
		return nil, fmt.Errorf("load defender alliance: %w", err)
	}
	integrity := make(map[StructureKey]float64, 4)
	for _, key := range []StructureKey{StructureOffense, StructureDefense, StructureSpy, StructureSentry} {
		ratio, err := structureIntegrity(ctx, tx, defender.ID, key)
		if err != nil {
			return nil, err
		}
		integrity[key] = ratio
	}
	eco := EconomyBonuses(s.cat, defender, inv, ab)

	pool := []IntelFact{
		{Name: "offense_power", Value: EffectivePower(s.cat, defender, inv, ab, StructureOffense, integrity[StructureOffense])},
		{Name: "defense_power", Value: EffectivePower(s.cat, defender, inv, ab, StructureDefense, integrity[StructureDefense])},
		{Name: "spy_offense", Value: EffectivePower(s.cat, defender, inv, ab, StructureSpy, integrity[StructureSpy])},
		{Name: "sentry_defense", Value: EffectivePower(s.cat, defender, inv, ab, StructureSentry, integrity[StructureSentry])},
		{Name: "income_per_turn", Value: eco.CreditsPerTurn(s.cat, defender)},
		{Name: "workers", Value: defender.Workers},
		{Name: "soldiers", Value: defender.Soldiers},
		{Name: "guards", Value: defender.Guards},
		{Name: "sentries", Value: defender.Sentries},
		{Name: "spies", Value: defender.Spies},
	}
	// Partial Fisher-Yates: the first k slots become the sample.
	k := s.cat.Mission.IntelFactCount
	if k > len(pool) {
		k = len(pool)
	}
	for i := 0; i < k; i++ {
		j := i + s.roll.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return &IntelReport{Facts: pool[:k]}, nil
}

// assassinationConverted floors the converted share of the target population
// and never exceeds the standing count.
func assassinationConverted(current int64, pct float64) int64 {
	converted := int64(math.Floor(float64(current) * pct))
	if converted > current {
		converted = current
	}
	if converted < 0 {
		return 0
	}
	return converted
}

// applyAssassination converts a slice of the target unit into the untrained
// queue, holding them for UntrainedHoldMinutes before retraining.
func (s *Service) applyAssassination(ctx context.Context, tx pgx.Tx, defender *Account, target UnitType, effectiveRatio float64) (int64, error) {
	current := defender.UnitCount(target)
	if current <= 0 {
		return 0, nil
	}
	pct := effectFraction(s.cat.Mission, effectiveRatio, s.roll)
	converted := assassinationConverted(current, pct)
	if converted <= 0 {
		return 0, nil
	}

	// Closed enum: each target maps to an explicit update branch. Unit
	// selection never reaches the query text.
	var err error
	switch target {
	case UnitWorkers:
		_, err = tx.Exec(ctx, `UPDATE game.accounts SET workers = workers - $1 WHERE id = $2`, converted, defender.ID)
	case UnitSoldiers:
		_, err = tx.Exec(ctx, `UPDATE game.accounts SET soldiers = soldiers - $1 WHERE id = $2`, converted, defender.ID)
	case UnitGuards:
		_, err = tx.Exec(ctx, `UPDATE game.accounts SET guards = guards - $1 WHERE id = $2`, converted, defender.ID)
	default:
		return 0, fmt.Errorf("%w: assassination cannot target %q", ErrInvalidMission, target)
	}
	if err != nil {
		return 0, fmt.Errorf("decrement %s: %w", target, err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO game.untrained_queue (account_id, unit_type, quantity, available_at)
		VALUES ($1, $2, $3, now() + make_interval(mins => $4))
	`, defender.ID, string(target), converted, UntrainedHoldMinutes); err != nil {
		return 0, fmt.Errorf("enqueue untrained units: %w", err)
	}
	return converted, nil
}

// applyFortSabotage chips the defender's fortification hitpoints.
func (s *Service) applyFortSabotage(ctx context.Context, tx pgx.Tx, defender *Account, effectiveRatio float64) (int64, error) {
	if defender.FortificationHitpoints <= 0 {
		return 0, nil
	}
	pct := effectFraction(s.cat.Mission, effectiveRatio, s.roll)
	damage := int64(math.Floor(float64(defender.FortificationHitpoints) * pct))
	if damage > defender.FortificationHitpoints {
		damage = defender.FortificationHitpoints
	}
	if damage <= 0 {
		return 0, nil
	}
	if _, err := tx.Exec(ctx, `
		UPDATE game.accounts
		SET fortification_hitpoints = GREATEST(fortification_hitpoints - $1, 0)
		WHERE id = $2
	`, damage, defender.ID); err != nil {
		return 0, fmt.Errorf("damage fortification: %w", err)
	}
	return damage, nil
}

// applyTotalSabotage dispatches between the two mutually exclusive strike
// modes and returns the structured detail payload for the mission log.
func (s *Service) applyTotalSabotage(ctx context.Context, tx pgx.Tx, defender *Account, req MissionRequest, critical bool) (*SabotageReport, int64, error) {
	if req.Mode == SabotageStructure {
		return s.sabotageStructure(ctx, tx, defender.ID, req.TargetStructure, critical)
	}
	return s.sabotageLoadout(ctx, tx, defender.ID, req.TargetCategory, critical)
}

// sabotageStructure removes integrity percentage points: the full bar on a
// critical, otherwise a bounded roll. A structure driven to zero loses a
// level.
func (s *Service) sabotageStructure(ctx context.Context, tx pgx.Tx, defenderID int64, key StructureKey, critical bool) (*SabotageReport, int64, error) {
	st, err := lockStructure(ctx, tx, defenderID, key)
	if err != nil {
		return nil, 0, fmt.Errorf("lock structure %s: %w", key, err)
	}
	t := s.cat.Mission
	pct := int32(100)
	if !critical {
		span := int(t.StructureDamageMaxPct - t.StructureDamageMinPct + 1)
		pct = t.StructureDamageMinPct + int32(s.roll.IntN(span))
	}
	after := st.Integrity - pct
	if after < 0 {
		after = 0
	}
	downgraded := after == 0 && st.Integrity > 0
	level := st.Level
	if downgraded && level > 0 {
		level--
	}
	if _, err := tx.Exec(ctx, `
		UPDATE game.structures
		SET integrity = $1, level = $2
		WHERE account_id = $3 AND structure_key = $4
	`, after, level, defenderID, string(key)); err != nil {
		return nil, 0, fmt.Errorf("damage structure %s: %w", key, err)
	}
	report := &SabotageReport{
		Mode:            SabotageStructure,
		Critical:        critical,
		Percent:         pct,
		Structure:       key,
		IntegrityBefore: st.Integrity,
		IntegrityAfter:  after,
		Downgraded:      downgraded,
	}
	return report, int64(st.Integrity - after), nil
}

// loadoutDestroyPercent rolls the share of each owned item a loadout strike
// destroys. The crit bonus applies on top of the roll but never pushes the
// percentage past the configured ceiling.
func loadoutDestroyPercent(t MissionTuning, critical bool, r Roller) int32 {
	span := int(t.LoadoutDestroyMaxPct - t.LoadoutDestroyMinPct + 1)
	pct := t.LoadoutDestroyMinPct + int32(r.IntN(span))
	if critical {
		pct += t.LoadoutCritBonusPct
	}
	if pct > t.LoadoutDestroyMaxPct {
		pct = t.LoadoutDestroyMaxPct
	}
	return pct
}

// sabotageLoadout destroys a rolled share of every owned item in the target
// category's catalog. The armory rows stay locked so before/after quantities
// in the payload are consistent.
func (s *Service) sabotageLoadout(ctx context.Context, tx pgx.Tx, defenderID int64, category LoadoutCategory, critical bool) (*SabotageReport, int64, error) {
	inv, err := loadArmory(ctx, tx, defenderID, true)
	if err != nil {
		return nil, 0, fmt.Errorf("lock defender armory: %w", err)
	}
	pct := loadoutDestroyPercent(s.cat.Mission, critical, s.roll)

	report := &SabotageReport{
		Mode:     SabotageLoadout,
		Critical: critical,
		Percent:  pct,
		Category: category,
	}
	var destroyedTotal int64
	for _, item := range s.cat.ItemsFor(category) {
		before := inv[item.Key]
		if before <= 0 || pct <= 0 {
			continue
		}
		destroyed := int64(math.Floor(float64(before) * float64(pct) / 100))
		if destroyed < 1 {
			destroyed = 1
		}
		if destroyed > before {
			destroyed = before
		}
		if _, err := tx.Exec(ctx, `
			UPDATE game.armory
			SET quantity = quantity - $1
			WHERE account_id = $2 AND item_key = $3
		`, destroyed, defenderID, item.Key); err != nil {
			return nil, 0, fmt.Errorf("destroy %s: %w", item.Key, err)
		}
		report.Items = append(report.Items, LoadoutDamage{
			ItemKey:   item.Key,
			Before:    before,
			After:     before - destroyed,
			Destroyed: destroyed,
		})
		destroyedTotal += destroyed
	}
	return report, destroyedTotal, nil
}
