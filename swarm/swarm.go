// Package swarm runs the two-level particle swarm search.  Level-1
// particles carry a network topology; each owns a level-2 swarm whose
// particles carry the per-layer hyperparameters evaluated under that
// topology.  Fitness flows bottom-up: a level-1 particle's fitness is
// the best fitness its level-2 swarm has found.
package swarm

import (
	"math"

	"github.com/swarmtune/swarmtune"
)

// Velocity update coefficients from the MPSO-CNN paper; both swarm
// levels use the same values.
const (
	DefaultCognition = 2.0
	DefaultSocial    = 2.0
)

// DefaultAlpha is the fraction of the run spent in the high-exploration
// inertia regime.
const DefaultAlpha = 0.2

// Omega returns the inertia weight for outer generation t of tmax.  The
// weight holds at 0.9 for the first alpha*tmax generations and then
// decays smoothly toward exploitation:
//
//	w = 1 / (1 + e^((10t - tmax)/tmax))
//
// At the regime boundary t = tmax/5 this is 1/(1+e), about 0.269.  The
// outer loop computes the weight once per generation and shares it with
// every level-2 optimization of that generation.
func Omega(t, tmax int) float64 {
	if float64(t) < DefaultAlpha*float64(tmax) {
		return 0.9
	}
	return 1 / (1 + math.Exp((10*float64(t)-float64(tmax))/float64(tmax)))
}

// Particle is one candidate at either swarm level: an integer position,
// a real-valued velocity, and the best position this particle has
// personally visited.  Fitness fields hold Unevaluated until the first
// measurement.
type Particle struct {
	Id  int
	Pos []int
	Vel []float64

	Best    []int
	BestFit float64

	Fit float64
}

func newParticle(id int, pos []int) *Particle {
	return &Particle{
		Id:      id,
		Pos:     append([]int{}, pos...),
		Vel:     make([]float64, len(pos)),
		Best:    append([]int{}, pos...),
		BestFit: swarmtune.Unevaluated(),
		Fit:     swarmtune.Unevaluated(),
	}
}

// Move updates velocity and position toward the particle's personal
// best and the swarm best gbest.  A swarm that has not measured
// anything yet passes nil and the personal best stands in, which makes
// the first move of a fresh swarm a pure inertia step over its seeds.
func (p *Particle) Move(gbest []int, w, cognition, social float64) {
	gb := gbest
	if gb == nil {
		gb = p.Best
	}

	for i, currv := range p.Vel {
		// r1 and r2 MUST be drawn inside this loop, fresh for every
		// dimension of every particle's velocity.
		r1 := swarmtune.Rand.Float64()
		r2 := swarmtune.Rand.Float64()
		p.Vel[i] = w*currv +
			cognition*r1*float64(p.Best[i]-p.Pos[i]) +
			social*r2*float64(gb[i]-p.Pos[i])
	}

	for i := range p.Pos {
		// int() truncates toward zero; the domain is non-negative
		// after repair, so this is a floor.
		p.Pos[i] = int(float64(p.Pos[i]) + p.Vel[i])
	}
}

// Update records a measured fitness, advancing the personal best only
// on strict improvement.  The stored best is a copy; later moves of Pos
// never alias it.
func (p *Particle) Update(fit float64) {
	p.Fit = fit
	if fit > p.BestFit {
		p.BestFit = fit
		p.Best = append([]int{}, p.Pos...)
	}
}

// Population is an ordered particle collection.  Iteration order is
// fixed for the life of the swarm and acts as the tie break between
// equally fit particles.
type Population []*Particle

// Best returns the particle with the best personal best, or nil for an
// empty population.  Ties keep the earliest particle.
func (pop Population) Best() *Particle {
	if len(pop) == 0 {
		return nil
	}
	best := pop[0]
	for _, p := range pop[1:] {
		// compare personal bests, not current fitness
		if p.BestFit > best.BestFit {
			best = p
		}
	}
	return best
}
