package game

import (
	"context"
	"fmt"
	"time"
)

const (
	sabotageCooldownWindow = 24 * time.Hour
	sabotageCostWindow     = 7 * 24 * time.Hour

	// Max total-sabotage missions one defender can absorb per cooldown window.
	sabotageShieldLimit = 5
)

// withinLevelBracket is the pure bracket predicate. maxDelta 0 disables it.
func withinLevelBracket(attacker, defender *Account, maxDelta int32) bool {
	if maxDelta <= 0 {
		return true
	}
	delta := attacker.Level - defender.Level
	if delta < 0 {
		delta = -delta
	}
	return delta <= maxDelta
}

// countSabotageByAttacker counts successful total-sabotage missions the
// attacker committed inside the window. The mission log is the source of
// truth; no separate counter to drift.
func countSabotageByAttacker(ctx context.Context, q dbtx, attackerID int64, window time.Duration) (int64, error) {
	var n int64
	err := q.QueryRow(ctx, `
		SELECT COUNT(1)
		FROM game.mission_logs
		WHERE attacker_id = $1
		  AND mission_type = $2
		  AND success = true
		  AND created_at > now() - make_interval(secs => $3)
	`, attackerID, string(MissionTotalSabotage), window.Seconds()).Scan(&n)
	return n, err
}

// countSabotageAgainstDefender counts total-sabotage missions received inside
// the window, successful or not.
func countSabotageAgainstDefender(ctx context.Context, q dbtx, defenderID int64, window time.Duration) (int64, error) {
	var n int64
	err := q.QueryRow(ctx, `
		SELECT COUNT(1)
		FROM game.mission_logs
		WHERE defender_id = $1
		  AND mission_type = $2
		  AND created_at > now() - make_interval(secs => $3)
	`, defenderID, string(MissionTotalSabotage), window.Seconds()).Scan(&n)
	return n, err
}

// sabotageFrequencyVerdict applies the attacker cooldown and the defender
// shield to counts taken over the rolling window. One recent success blocks
// the attacker before the defender's shield is considered.
func sabotageFrequencyVerdict(attackerSuccesses, defenderReceived int64) error {
	if attackerSuccesses > 0 {
		return ErrSabotageCooldown
	}
	if defenderReceived >= sabotageShieldLimit {
		return ErrSabotageShielded
	}
	return nil
}

// guardMission runs every anti-abuse predicate for a validated, locked
// mission. Violations surface as named sentinel errors so the caller can tell
// the player exactly which rule tripped.
func (s *Service) guardMission(ctx context.Context, q dbtx, req MissionRequest, attacker, defender *Account) error {
	if !withinLevelBracket(attacker, defender, s.bracket) {
		return fmt.Errorf("%w: levels %d vs %d exceed ±%d", ErrLevelBracket, attacker.Level, defender.Level, s.bracket)
	}
	if req.Type != MissionTotalSabotage {
		return nil
	}
	attempts, err := countSabotageByAttacker(ctx, q, attacker.ID, sabotageCooldownWindow)
	if err != nil {
		return fmt.Errorf("sabotage cooldown query: %w", err)
	}
	received, err := countSabotageAgainstDefender(ctx, q, defender.ID, sabotageCooldownWindow)
	if err != nil {
		return fmt.Errorf("sabotage shield query: %w", err)
	}
	return sabotageFrequencyVerdict(attempts, received)
}
