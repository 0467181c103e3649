package game

import (
	"context"
	"fmt"
	"math"
	"time"
)

// turnGrant is the computed regeneration for one account at one instant.
// Zero-valued means the account is up to date and no write should happen.
type turnGrant struct {
	turnsElapsed     int64
	depositsReleased int32
	credits          int64
	citizens         int64
	turns            int64
}

func (g turnGrant) empty() bool {
	return g.turnsElapsed <= 0 && g.depositsReleased <= 0
}

// computeTurnGrant is the pure half of the sweep: elapsed ticks since the
// last_updated anchor, matured bank-deposit slots, and the scaled income for
// those ticks. Calling it again with the same anchor and clock yields the
// same grant; after the anchor advances it yields nothing.
func computeTurnGrant(cat *Catalog, a *Account, eco EconomyBonus, now time.Time) turnGrant {
	var g turnGrant

	minutes := now.Sub(a.LastUpdated).Minutes()
	if minutes > 0 {
		g.turnsElapsed = int64(math.Floor(minutes / float64(cat.Economy.TurnIntervalMinutes)))
	}

	if a.DepositsToday > 0 && a.LastDepositAt != nil {
		hours := now.Sub(*a.LastDepositAt).Hours()
		if hours >= DepositReleaseHours {
			released := int32(math.Floor(hours / DepositReleaseHours))
			if released > a.DepositsToday {
				released = a.DepositsToday
			}
			g.depositsReleased = released
		}
	}

	if g.turnsElapsed > 0 {
		g.credits = eco.CreditsPerTurn(cat, a) * g.turnsElapsed
		g.citizens = eco.CitizensPerTurn(cat) * g.turnsElapsed
		g.turns = cat.Economy.TurnsPerTick * g.turnsElapsed
	}
	return g
}

// RunTurnSweep regenerates turns, citizens, credits, and matured deposit
// slots for every account. Each account is one self-contained delta update;
// a failure is logged and the sweep moves on, so one broken row never stalls
// the shard. Deliberately not wrapped in a cross-account transaction.
func (s *Service) RunTurnSweep(ctx context.Context) (SweepStats, error) {
	var stats SweepStats

	rows, err := s.db.Query(ctx, `
		SELECT`+accountColumns+`
		FROM game.accounts
		ORDER BY id
	`)
	if err != nil {
		return stats, fmt.Errorf("list accounts: %w", err)
	}
	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			rows.Close()
			return stats, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("list accounts: %w", err)
	}

	for i := range accounts {
		a := &accounts[i]
		stats.Scanned++
		updated, err := s.sweepAccount(ctx, a)
		switch {
		case err != nil:
			stats.Failed++
			s.log.Error("turn sweep account failed", "account_id", a.ID, "err", err)
		case updated:
			stats.Updated++
		default:
			stats.Skipped++
		}
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
	}

	s.log.Info("turn sweep complete",
		"scanned", stats.Scanned,
		"updated", stats.Updated,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
	)
	return stats, nil
}

func (s *Service) sweepAccount(ctx context.Context, a *Account) (bool, error) {
	inv, err := loadArmory(ctx, s.db, a.ID, false)
	if err != nil {
		return false, fmt.Errorf("load armory: %w", err)
	}
	ab, err := loadAllianceBonuses(ctx, s.db, a.AllianceID)
	if err != nil {
		return false, fmt.Errorf("load alliance bonuses: %w", err)
	}
	now := time.Now()
	grant := computeTurnGrant(s.cat, a, EconomyBonuses(s.cat, a, inv, ab), now)
	if grant.empty() {
		return false, nil
	}

	// One relative update so interleaving with a locked mission write on the
	// same row stays safe; only the sweep moves the last_updated anchor. The
	// anchor written is the clock the grant was computed against, never the
	// database's, so a trailing DB clock cannot re-grant a partial tick.
	_, err = s.db.Exec(ctx, `
		UPDATE game.accounts
		SET attack_turns = attack_turns + $1,
		    untrained_citizens = untrained_citizens + $2,
		    credits = credits + $3,
		    deposits_today = GREATEST(deposits_today - $4, 0),
		    last_deposit_at = CASE WHEN $4 > 0 THEN $5 ELSE last_deposit_at END,
		    last_updated = $5
		WHERE id = $6
	`, grant.turns, grant.citizens, grant.credits, grant.depositsReleased, now, a.ID)
	if err != nil {
		return false, fmt.Errorf("apply grant: %w", err)
	}
	return true, nil
}
