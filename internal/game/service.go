package game

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Service is the simulation core: turn regeneration, mission resolution, and
// the derived read models. All persistence goes through the pool it holds.
type Service struct {
	db       *pgxpool.Pool
	log      *slog.Logger
	cat      *Catalog
	roll     Roller
	bracket  int32
	notifier AchievementNotifier
}

// ServiceOptions carries the tunable collaborators. Zero values mean: wall
// clock roller, level bracket disabled, no achievement hook.
type ServiceOptions struct {
	Roller Roller
	// LevelBracket caps |attacker level − defender level|; 0 disables the check.
	LevelBracket int32
	Notifier     AchievementNotifier
}

// AchievementNotifier receives committed missions fire-and-forget. Errors are
// logged and never affect the mission outcome.
type AchievementNotifier interface {
	MissionResolved(ctx context.Context, entry MissionLog) error
}

func NewService(db *pgxpool.Pool, logger *slog.Logger, cat *Catalog, opts ServiceOptions) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cat == nil {
		cat = DefaultCatalog()
	}
	roller := opts.Roller
	if roller == nil {
		roller = NewRoller()
	}
	return &Service{
		db:       db,
		log:      logger,
		cat:      cat,
		roll:     roller,
		bracket:  opts.LevelBracket,
		notifier: opts.Notifier,
	}
}

// Catalog exposes the balance tables for read-only use by callers.
func (s *Service) Catalog() *Catalog { return s.cat }

// dbtx is the query surface shared by *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const accountColumns = `
	id, credits, banked_credits, untrained_citizens, attack_turns,
	workers, soldiers, guards, sentries, spies,
	offense_upgrade, defense_upgrade, economy_upgrade, population_upgrade, spy_upgrade, fortification_upgrade,
	strength_points, constitution_points, wealth_points, dexterity_points, charisma_points,
	alliance_id, level, experience, fortification_hitpoints,
	deposits_today, last_deposit_at, last_updated`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(
		&a.ID, &a.Credits, &a.BankedCredits, &a.UntrainedCitizens, &a.AttackTurns,
		&a.Workers, &a.Soldiers, &a.Guards, &a.Sentries, &a.Spies,
		&a.OffenseUpgrade, &a.DefenseUpgrade, &a.EconomyUpgrade, &a.PopulationUpgrade, &a.SpyUpgrade, &a.FortificationUpgrade,
		&a.StrengthPoints, &a.ConstitutionPoints, &a.WealthPoints, &a.DexterityPoints, &a.CharismaPoints,
		&a.AllianceID, &a.Level, &a.Experience, &a.FortificationHitpoints,
		&a.DepositsToday, &a.LastDepositAt, &a.LastUpdated,
	)
	if err == pgx.ErrNoRows {
		return a, ErrAccountNotFound
	}
	return a, err
}

func getAccount(ctx context.Context, q dbtx, id int64) (Account, error) {
	return scanAccount(q.QueryRow(ctx, `
		SELECT`+accountColumns+`
		FROM game.accounts
		WHERE id = $1
	`, id))
}

func lockAccount(ctx context.Context, tx pgx.Tx, id int64) (Account, error) {
	return scanAccount(tx.QueryRow(ctx, `
		SELECT`+accountColumns+`
		FROM game.accounts
		WHERE id = $1
		FOR UPDATE
	`, id))
}

// lockAccountPair locks both mission parties in ascending id order so two
// missions targeting each other's accounts cannot deadlock.
func lockAccountPair(ctx context.Context, tx pgx.Tx, attackerID, defenderID int64) (attacker, defender Account, err error) {
	first, second := attackerID, defenderID
	if defenderID < attackerID {
		first, second = defenderID, attackerID
	}
	a, err := lockAccount(ctx, tx, first)
	if err != nil {
		return attacker, defender, fmt.Errorf("lock account %d: %w", first, err)
	}
	b, err := lockAccount(ctx, tx, second)
	if err != nil {
		return attacker, defender, fmt.Errorf("lock account %d: %w", second, err)
	}
	if a.ID == attackerID {
		return a, b, nil
	}
	return b, a, nil
}

func loadArmory(ctx context.Context, q dbtx, accountID int64, forUpdate bool) (map[string]int64, error) {
	query := `
		SELECT item_key, quantity
		FROM game.armory
		WHERE account_id = $1 AND quantity > 0
	`
	if forUpdate {
		query += " FOR UPDATE"
	}
	rows, err := q.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	inv := make(map[string]int64)
	for rows.Next() {
		var key string
		var qty int64
		if err := rows.Scan(&key, &qty); err != nil {
			return nil, err
		}
		inv[key] = qty
	}
	return inv, rows.Err()
}

func loadAllianceBonuses(ctx context.Context, q dbtx, allianceID *int64) (AllianceBonuses, error) {
	var out AllianceBonuses
	if allianceID == nil {
		return out, nil
	}
	rows, err := q.Query(ctx, `
		SELECT category, pct_bonus, flat_bonus
		FROM game.alliance_bonuses
		WHERE alliance_id = $1
	`, *allianceID)
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		var category string
		var pct float64
		var flat int64
		if err := rows.Scan(&category, &pct, &flat); err != nil {
			return out, err
		}
		switch category {
		case "credits":
			out.CreditsFlat = flat
		case "citizens":
			out.CitizensFlat = flat
		case "income":
			out.IncomePct = pct
		case "resources":
			out.ResourcesPct = pct
		case "offense":
			out.OffensePct = pct
		case "defense":
			out.DefensePct = pct
		}
	}
	return out, rows.Err()
}

// structureIntegrity reads the 0-1 multiplier for one combat domain. Accounts
// with no structure row yet count as fully intact.
func structureIntegrity(ctx context.Context, q dbtx, accountID int64, key StructureKey) (float64, error) {
	var integrity int32
	err := q.QueryRow(ctx, `
		SELECT integrity
		FROM game.structures
		WHERE account_id = $1 AND structure_key = $2
	`, accountID, string(key)).Scan(&integrity)
	if err == pgx.ErrNoRows {
		return 1.0, nil
	}
	if err != nil {
		return 0, err
	}
	return clampFloat(float64(integrity)/100, 0, 1), nil
}

// lockStructure ensures the row exists, then locks it for a sabotage write.
func lockStructure(ctx context.Context, tx pgx.Tx, accountID int64, key StructureKey) (Structure, error) {
	if _, err := tx.Exec(ctx, `
		INSERT INTO game.structures (account_id, structure_key, integrity, level)
		VALUES ($1, $2, 100, 1)
		ON CONFLICT (account_id, structure_key) DO NOTHING
	`, accountID, string(key)); err != nil {
		return Structure{}, err
	}
	st := Structure{AccountID: accountID, Key: key}
	err := tx.QueryRow(ctx, `
		SELECT integrity, level
		FROM game.structures
		WHERE account_id = $1 AND structure_key = $2
		FOR UPDATE
	`, accountID, string(key)).Scan(&st.Integrity, &st.Level)
	return st, err
}

// Overview builds the derived read model for one account.
func (s *Service) Overview(ctx context.Context, accountID int64) (AccountOverview, error) {
	var out AccountOverview
	a, err := getAccount(ctx, s.db, accountID)
	if err != nil {
		return out, err
	}
	inv, err := loadArmory(ctx, s.db, accountID, false)
	if err != nil {
		return out, err
	}
	ab, err := loadAllianceBonuses(ctx, s.db, a.AllianceID)
	if err != nil {
		return out, err
	}
	integrity := make(map[StructureKey]float64, 4)
	for _, key := range []StructureKey{StructureOffense, StructureDefense, StructureSpy, StructureSentry} {
		ratio, err := structureIntegrity(ctx, s.db, accountID, key)
		if err != nil {
			return out, err
		}
		integrity[key] = ratio
	}
	eco := EconomyBonuses(s.cat, &a, inv, ab)

	out = AccountOverview{
		AccountID:       a.ID,
		Level:           a.Level,
		Experience:      a.Experience,
		Credits:         a.Credits,
		BankedCredits:   a.BankedCredits,
		AttackTurns:     a.AttackTurns,
		OffensePower:    EffectivePower(s.cat, &a, inv, ab, StructureOffense, integrity[StructureOffense]),
		DefensePower:    EffectivePower(s.cat, &a, inv, ab, StructureDefense, integrity[StructureDefense]),
		SpyOffense:      EffectivePower(s.cat, &a, inv, ab, StructureSpy, integrity[StructureSpy]),
		SentryDefense:   EffectivePower(s.cat, &a, inv, ab, StructureSentry, integrity[StructureSentry]),
		IncomePerTurn:   eco.CreditsPerTurn(s.cat, &a),
		CitizensPerTurn: eco.CitizensPerTurn(s.cat),
	}
	return out, nil
}

const missionLogColumns = `
	id, attacker_id, defender_id, mission_type, success,
	units_killed, structure_damage, attacker_power, defender_power,
	attacker_xp, defender_xp, intel, created_at`

func scanMissionLog(row pgx.Row) (MissionLog, error) {
	var m MissionLog
	var missionType string
	err := row.Scan(
		&m.ID, &m.AttackerID, &m.DefenderID, &missionType, &m.Success,
		&m.UnitsKilled, &m.StructDamage, &m.AttackerPower, &m.DefenderPower,
		&m.AttackerXP, &m.DefenderXP, &m.Intel, &m.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return m, ErrMissionLogNotFound
	}
	m.Type = MissionType(missionType)
	return m, err
}

// RecentMissions lists the newest logs where the account was either party.
// Intel payloads are withheld unless the account ran the mission.
func (s *Service) RecentMissions(ctx context.Context, accountID int64, limit int) ([]MissionLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	rows, err := s.db.Query(ctx, `
		SELECT`+missionLogColumns+`
		FROM game.mission_logs
		WHERE attacker_id = $1 OR defender_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MissionLog
	for rows.Next() {
		m, err := scanMissionLog(rows)
		if err != nil {
			return nil, err
		}
		if m.AttackerID != accountID {
			m.Intel = nil
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MissionByID fetches one log. Only the attacker may read the intel payload;
// the defender sees the log without it, anyone else gets nothing.
func (s *Service) MissionByID(ctx context.Context, accountID int64, missionID string) (MissionLog, error) {
	m, err := scanMissionLog(s.db.QueryRow(ctx, `
		SELECT`+missionLogColumns+`
		FROM game.mission_logs
		WHERE id = $1
	`, missionID))
	if err != nil {
		return m, err
	}
	switch accountID {
	case m.AttackerID:
		return m, nil
	case m.DefenderID:
		m.Intel = nil
		return m, nil
	}
	return MissionLog{}, ErrMissionLogRestricted
}

// notifyAchievements hands the committed mission to the hook without letting
// it touch the request lifecycle. A slow or failing hook only produces a log
// line.
func (s *Service) notifyAchievements(entry MissionLog) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.notifier.MissionResolved(ctx, entry); err != nil {
			s.log.Error("achievement hook failed", "mission_id", entry.ID, "err", err)
		}
	}()
}
