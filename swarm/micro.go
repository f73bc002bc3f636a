package swarm

import (
	"context"

	"github.com/pkg/errors"

	"github.com/swarmtune/swarmtune"
	"github.com/swarmtune/swarmtune/space"
)

// ParticlesPerLayer is the level-2 swarm size per convolutional layer
// of the owning topology.
const ParticlesPerLayer = 5

// Micro is the level-2 swarm owned by one level-1 particle.  Its size
// is fixed at ParticlesPerLayer times the owner's convolutional depth
// when the owner is created early and never changes afterwards, even as
// the owner's topology moves.  Particle state persists across outer
// generations, so the swarm best is the best combination measured under
// this owner over the whole run.
type Micro struct {
	Pop Population

	// the single shared swarm best; Optimize is its only writer
	bestPos []int
	bestFit float64

	space     *space.Space
	maxIter   int
	cognition float64
	social    float64
	neval     int
}

func newMicro(s *space.Space, nConv, maxIter int, cognition, social float64) *Micro {
	m := &Micro{
		Pop:       make(Population, ParticlesPerLayer*nConv),
		bestFit:   swarmtune.Unevaluated(),
		space:     s,
		maxIter:   maxIter,
		cognition: cognition,
		social:    social,
	}
	for i := range m.Pop {
		m.Pop[i] = newParticle(i, s.RandParams().Vec())
	}
	return m
}

// Best returns the swarm's best position (a copy) and fitness.  Before
// the first completed generation the position is nil and the fitness is
// Unevaluated.
func (m *Micro) Best() ([]int, float64) {
	if m.bestPos == nil {
		return nil, m.bestFit
	}
	return append([]int{}, m.bestPos...), m.bestFit
}

// Neval returns the total number of evaluator invocations this swarm
// has dispatched over the run.
func (m *Micro) Neval() int { return m.neval }

// Optimize runs the inner generations against arch using the inertia
// weight w supplied by the outer loop.  Each generation moves and
// repairs every particle, scores the full combinations through ev in
// one batch, and then folds the fitnesses into personal and swarm bests
// serially - the evaluations are the parallel phase, the reduction is
// the single-writer phase.  The first evaluation failure aborts with no
// best recorded for that generation.
func (m *Micro) Optimize(ctx context.Context, arch swarmtune.Architecture, w float64, ev swarmtune.Evaler, fn swarmtune.Evaluator) (pos []int, fit float64, err error) {
	for t := 0; t < m.maxIter; t++ {
		if err := ctx.Err(); err != nil {
			return nil, swarmtune.Unevaluated(), errors.Wrap(err, "level-2 optimization canceled")
		}

		cands := make([]swarmtune.Candidate, len(m.Pop))
		for i, p := range m.Pop {
			p.Move(m.bestPos, w, m.cognition, m.social)
			if err := m.space.RepairL2(p.Pos); err != nil {
				return nil, swarmtune.Unevaluated(), err
			}
			cands[i] = swarmtune.NewCandidate(arch, swarmtune.ParamsFromVec(p.Pos))
		}

		results, n, err := ev.Eval(ctx, fn, cands...)
		m.neval += n
		if err != nil {
			return nil, swarmtune.Unevaluated(), errors.Wrapf(err, "level-2 generation %v", t)
		}

		for i, c := range results {
			m.Pop[i].Update(c.Fitness)
		}
		if pb := m.Pop.Best(); pb != nil && pb.BestFit > m.bestFit {
			m.bestFit = pb.BestFit
			m.bestPos = append([]int{}, pb.Best...)
		}
	}

	pos, fit = m.Best()
	return pos, fit, nil
}
