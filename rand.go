package swarmtune

import "math/rand"

// Rand supplies every random number drawn by the search, at both swarm
// levels.  Swap in a seeded source for reproducible runs: two runs with
// identical sources produce identical position and velocity
// trajectories and an identical final result.
var Rand Rng = rand.New(rand.NewSource(1))

type Rng interface {
	Float64() float64
	Intn(n int) int
}

// RandInt returns a uniform integer in the inclusive range [low, up].
func RandInt(low, up int) int {
	return low + Rand.Intn(up-low+1)
}
