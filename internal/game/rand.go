package game

import (
	"math/rand/v2"

	"banana-bot/internal/model"
)

// RNG is the randomness every game draws from. *rand.Rand satisfies it;
// tests substitute a scripted source.
type RNG interface {
	IntN(n int) int
	Float64() float64
}

// NewRand returns an independently seeded generator. Each session owns one.
func NewRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// Roll draws uniformly from the inclusive range r.
func Roll(rng RNG, r model.Range) int {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rng.IntN(r.Max-r.Min+1)
}

// Roll64 is Roll for currency amounts.
func Roll64(rng RNG, min, max int64) int64 {
	if max <= min {
		return min
	}
	return min + int64(rng.IntN(int(max-min+1)))
}

// Chance reports true with probability p.
func Chance(rng RNG, p float64) bool {
	return rng.Float64() < p
}
