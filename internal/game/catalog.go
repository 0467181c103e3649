package game

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Catalog is the immutable balance configuration: upgrade tables, armory
// loadout definitions, and tuning constants. Built once at startup and passed
// by reference; nothing in the sim core mutates it.
type Catalog struct {
	UnitPower int64          `toml:"unit_power"`
	Economy   EconomyTuning  `toml:"economy"`
	Mission   MissionTuning  `toml:"mission"`
	Upgrades  map[string][]float64 `toml:"upgrades"`
	Armory    []ArmoryItemDef      `toml:"armory"`
}

type EconomyTuning struct {
	TurnIntervalMinutes int   `toml:"turn_interval_minutes"`
	BaseIncome          int64 `toml:"base_income"`
	CreditsPerWorker    int64 `toml:"credits_per_worker"`
	CitizensPerTurn     int64 `toml:"citizens_per_turn"`
	TurnsPerTick        int64 `toml:"turns_per_tick"`
}

type MissionTuning struct {
	SoftTurnExponent   float64 `toml:"soft_turn_exponent"`
	MaxTurnsMultiplier float64 `toml:"max_turns_multiplier"`
	LuckBand           float64 `toml:"luck_band"`
	MinSuccessRatio    float64 `toml:"min_success_ratio"`
	CritRatio          float64 `toml:"crit_ratio"`

	MinEffectPct float64 `toml:"min_effect_pct"`
	MaxEffectPct float64 `toml:"max_effect_pct"`

	StructureDamageMinPct int32 `toml:"structure_damage_min_pct"`
	StructureDamageMaxPct int32 `toml:"structure_damage_max_pct"`
	LoadoutDestroyMinPct  int32 `toml:"loadout_destroy_min_pct"`
	LoadoutDestroyMaxPct  int32 `toml:"loadout_destroy_max_pct"`
	LoadoutCritBonusPct   int32 `toml:"loadout_crit_bonus_pct"`

	AttackerXPBase        int64 `toml:"attacker_xp_base"`
	DefenderXPBase        int64 `toml:"defender_xp_base"`
	TotalSabotageBaseCost int64 `toml:"total_sabotage_base_cost"`

	IntelFactCount int `toml:"intel_fact_count"`
}

type ArmoryItemDef struct {
	Key      string          `toml:"key"`
	Name     string          `toml:"name"`
	Category LoadoutCategory `toml:"category"`
	Power    int64           `toml:"power"`
	Income   int64           `toml:"income"`
}

// DefaultCatalog returns the compiled-in balance tables.
func DefaultCatalog() *Catalog {
	return &Catalog{
		UnitPower: 10,
		Economy: EconomyTuning{
			TurnIntervalMinutes: 10,
			BaseIncome:          1000,
			CreditsPerWorker:    50,
			CitizensPerTurn:     1,
			TurnsPerTick:        2,
		},
		Mission: MissionTuning{
			SoftTurnExponent:   0.5,
			MaxTurnsMultiplier: 2.0,
			LuckBand:           0.10,
			MinSuccessRatio:    1.0,
			CritRatio:          2.0,

			MinEffectPct: 0.10,
			MaxEffectPct: 0.25,

			StructureDamageMinPct: 25,
			StructureDamageMaxPct: 40,
			LoadoutDestroyMinPct:  10,
			LoadoutDestroyMaxPct:  90,
			LoadoutCritBonusPct:   10,

			AttackerXPBase:        120,
			DefenderXPBase:        40,
			TotalSabotageBaseCost: 250_000,

			IntelFactCount: 4,
		},
		Upgrades: map[string][]float64{
			string(TrackOffense):       {2, 2, 3, 3, 4, 4, 5, 5, 6, 6, 7, 7, 8, 8, 10},
			string(TrackDefense):       {2, 2, 3, 3, 4, 4, 5, 5, 6, 6, 7, 7, 8, 8, 10},
			string(TrackEconomy):       {3, 3, 4, 4, 5, 5, 6, 6, 7, 7, 8, 8, 9, 9, 12},
			string(TrackPopulation):    {1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6, 7, 7, 8},
			string(TrackSpy):           {2, 3, 3, 4, 4, 5, 5, 6, 6, 7, 7, 8, 8, 9, 10},
			string(TrackFortification): {2, 3, 3, 4, 4, 5, 5, 6, 6, 7, 7, 8, 8, 9, 10},
		},
		Armory: []ArmoryItemDef{
			{Key: "pulse_rifle", Name: "Pulse Rifle", Category: LoadoutSoldier, Power: 30},
			{Key: "plasma_lance", Name: "Plasma Lance", Category: LoadoutSoldier, Power: 55},
			{Key: "deflector_shield", Name: "Deflector Shield", Category: LoadoutGuard, Power: 28},
			{Key: "aegis_plating", Name: "Aegis Plating", Category: LoadoutGuard, Power: 50},
			{Key: "warden_array", Name: "Warden Array", Category: LoadoutSentry, Power: 32},
			{Key: "lattice_scanner", Name: "Lattice Scanner", Category: LoadoutSentry, Power: 48},
			{Key: "cloak_field", Name: "Cloak Field", Category: LoadoutSpy, Power: 34},
			{Key: "ghost_protocol", Name: "Ghost Protocol", Category: LoadoutSpy, Power: 52},
			{Key: "fusion_torch", Name: "Fusion Torch", Category: LoadoutWorker, Income: 15},
			{Key: "auto_fabricator", Name: "Auto Fabricator", Category: LoadoutWorker, Income: 25},
		},
	}
}

// LoadCatalog reads balance overrides from a TOML file on top of the
// defaults. An empty path returns the defaults untouched.
func LoadCatalog(path string) (*Catalog, error) {
	cat := DefaultCatalog()
	if path == "" {
		return cat, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read balance file: %w", err)
	}
	if err := toml.Unmarshal(raw, cat); err != nil {
		return nil, fmt.Errorf("parse balance file: %w", err)
	}
	if err := cat.validate(); err != nil {
		return nil, fmt.Errorf("balance file %s: %w", path, err)
	}
	return cat, nil
}

func (c *Catalog) validate() error {
	if c.UnitPower <= 0 {
		return fmt.Errorf("unit_power must be > 0")
	}
	if c.Economy.TurnIntervalMinutes <= 0 {
		return fmt.Errorf("turn_interval_minutes must be > 0")
	}
	if c.Mission.LuckBand < 0 || c.Mission.LuckBand >= 1 {
		return fmt.Errorf("luck_band must be in [0,1)")
	}
	if c.Mission.MinEffectPct <= 0 || c.Mission.MaxEffectPct < c.Mission.MinEffectPct {
		return fmt.Errorf("effect pct bounds are inverted")
	}
	for track, table := range c.Upgrades {
		if _, err := parseUpgradeTrack(track); err != nil {
			return err
		}
		if len(table) == 0 {
			return fmt.Errorf("upgrade track %s has no levels", track)
		}
	}
	seen := make(map[string]bool, len(c.Armory))
	for _, item := range c.Armory {
		if seen[item.Key] {
			return fmt.Errorf("duplicate armory item %s", item.Key)
		}
		seen[item.Key] = true
		if _, err := ParseLoadoutCategory(string(item.Category)); err != nil {
			return err
		}
	}
	return nil
}

func parseUpgradeTrack(s string) (UpgradeTrack, error) {
	switch UpgradeTrack(s) {
	case TrackOffense, TrackDefense, TrackEconomy, TrackPopulation, TrackSpy, TrackFortification:
		return UpgradeTrack(s), nil
	}
	return "", fmt.Errorf("unknown upgrade track %q", s)
}

// UpgradeSum folds the per-level bonus table for levels 1..level. Levels past
// the end of the table keep earning the last entry.
func (c *Catalog) UpgradeSum(track UpgradeTrack, level int32) float64 {
	table := c.Upgrades[string(track)]
	if len(table) == 0 || level <= 0 {
		return 0
	}
	var sum float64
	for lvl := int32(1); lvl <= level; lvl++ {
		idx := int(lvl) - 1
		if idx >= len(table) {
			idx = len(table) - 1
		}
		sum += table[idx]
	}
	return sum
}

// ItemsFor returns the loadout slice for one category, in catalog order.
func (c *Catalog) ItemsFor(category LoadoutCategory) []ArmoryItemDef {
	var out []ArmoryItemDef
	for _, item := range c.Armory {
		if item.Category == category {
			out = append(out, item)
		}
	}
	return out
}
