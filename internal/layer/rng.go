package layer

import "math/rand"

// defaultInitSeed seeds parameter initialization so that freshly built
// models are reproducible across runs and across test processes.
const defaultInitSeed = 42

// initRNG is the shared stream drawn from by layer constructors.
// Layers built in sequence get distinct parameters while the whole
// construction remains reproducible.
var initRNG = NewRNG(defaultInitSeed)

// SeedInit resets the parameter initialization stream. Call before
// building a model to make its initial weights reproducible.
func SeedInit(seed int64) {
	initRNG = NewRNG(seed)
}

// RNG is a seeded random source for parameter initialization.
type RNG struct {
	r *rand.Rand
}

// NewRNG creates a deterministic RNG with the given seed.
func NewRNG(seed int64) *RNG {
	return &RNG{r: rand.New(rand.NewSource(seed))}
}

// RandFloat returns a uniform value in [0, 1).
func (g *RNG) RandFloat() float64 {
	return g.r.Float64()
}

// RandNorm returns a standard normal value.
func (g *RNG) RandNorm() float64 {
	return g.r.NormFloat64()
}
