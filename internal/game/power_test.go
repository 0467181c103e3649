package game

import "testing"

func TestEffectivePowerFormula(t *testing.T) {
	cat := DefaultCatalog()
	a := &Account{
		Spies:           100,
		DexterityPoints: 10,
		SpyUpgrade:      1, // first spy level grants +2%
	}
	inv := map[string]int64{"cloak_field": 50} // power 34, capped by owned

	// units*base*stat = 100*10*1.10 = 1100; armory = 50*34 = 1700;
	// chain = (1+2/100) * 1.0 * 1.0 => floor(2800 * 1.02) = 2856
	got := EffectivePower(cat, a, inv, AllianceBonuses{}, StructureSpy, 1.0)
	if got != 2856 {
		t.Fatalf("EffectivePower = %d, want 2856", got)
	}
}

func TestEffectivePowerStructureIntegrityScales(t *testing.T) {
	cat := DefaultCatalog()
	a := &Account{Sentries: 10}
	full := EffectivePower(cat, a, nil, AllianceBonuses{}, StructureSentry, 1.0)
	half := EffectivePower(cat, a, nil, AllianceBonuses{}, StructureSentry, 0.5)
	if full != 100 || half != 50 {
		t.Fatalf("integrity scaling: full=%d half=%d, want 100/50", full, half)
	}
}

func TestEffectivePowerFloorsAtOne(t *testing.T) {
	cat := DefaultCatalog()
	a := &Account{Spies: 1}
	// One spy through a nearly dead structure floors below 1, but a fielded
	// force never scores zero.
	if got := EffectivePower(cat, a, nil, AllianceBonuses{}, StructureSpy, 0.001); got != 1 {
		t.Fatalf("EffectivePower = %d, want 1", got)
	}
}

func TestEffectivePowerEmptyDomainIsZero(t *testing.T) {
	cat := DefaultCatalog()
	if got := EffectivePower(cat, &Account{}, nil, AllianceBonuses{}, StructureSentry, 1.0); got != 0 {
		t.Fatalf("EffectivePower on empty account = %d, want 0", got)
	}
}

func TestPowerRatioUndefendedSentinel(t *testing.T) {
	if got := powerRatio(500, 0); got != UndefendedRatio {
		t.Fatalf("powerRatio vs zero = %v, want %v", got, UndefendedRatio)
	}
	if got := powerRatio(1000, 500); got != 2.0 {
		t.Fatalf("powerRatio = %v, want 2.0", got)
	}
}
