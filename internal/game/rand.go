package game

import (
	"math/rand"
	"sync"
	"time"
)

// Roller is the randomness source behind luck scalars and damage rolls. It is
// injected so mission outcomes can be replayed with a scripted sequence under
// test.
type Roller interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
	// IntN returns a value in [0, n).
	IntN(n int) int
}

type lockedRoller struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRoller returns the production Roller, seeded from the wall clock and safe
// for concurrent mission resolution.
func NewRoller() Roller {
	return &lockedRoller{r: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewSeededRoller returns a deterministic Roller for replaying outcomes.
func NewSeededRoller(seed int64) Roller {
	return &lockedRoller{r: rand.New(rand.NewSource(seed))}
}

func (l *lockedRoller) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRoller) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// rollBetween maps one roll onto [lo, hi).
func rollBetween(r Roller, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

// luckScalar returns 1 ± band.
func luckScalar(r Roller, band float64) float64 {
	if band <= 0 {
		return 1
	}
	return 1 + rollBetween(r, -band, band)
}
