package game

// scriptRoller replays a fixed sequence of rolls so outcome and damage math
// can be asserted exactly. Out of script, Float64 returns 0.5 (a neutral
// luck roll) and IntN returns 0.
type scriptRoller struct {
	floats []float64
	ints   []int
	fi, ii int
}

func (r *scriptRoller) Float64() float64 {
	if r.fi >= len(r.floats) {
		return 0.5
	}
	v := r.floats[r.fi]
	r.fi++
	return v
}

func (r *scriptRoller) IntN(n int) int {
	if r.ii >= len(r.ints) {
		return 0
	}
	v := r.ints[r.ii] % n
	r.ii++
	return v
}

// neutralRoller always rolls the middle of every band.
func neutralRoller() Roller {
	return &scriptRoller{}
}
