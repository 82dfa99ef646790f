package engine

import "math/rand/v2"

// RNG is the session's deterministic random source. Every random draw in
// a session (random conditions, randomAction picks) goes through it, so a
// seed and the input sequence fully determine the outcome.
type RNG struct {
	r     *rand.Rand
	seed  uint64
	draws uint64
}

// NewRNG creates a PCG-backed generator for seed.
func NewRNG(seed uint64) *RNG {
	return &RNG{
		r:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		seed: seed,
	}
}

// Float64 returns a value in [0, 1).
func (g *RNG) Float64() float64 {
	g.draws++
	return g.r.Float64()
}

// IntN returns a value in [0, n). n must be positive.
func (g *RNG) IntN(n int) int {
	g.draws++
	return g.r.IntN(n)
}

// Seed returns the seed the generator was created with.
func (g *RNG) Seed() uint64 {
	return g.seed
}

// Draws returns how many values have been drawn.
func (g *RNG) Draws() uint64 {
	return g.draws
}
