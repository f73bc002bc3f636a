package swarm

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/swarmtune/swarmtune"
	"github.com/swarmtune/swarmtune/space"
)

// Level-1 defaults from the MPSO-CNN paper.  The outer generation count
// is drawn uniformly from [MinOuterIter, MaxOuterIter] once at
// construction and then fixed for the run.
const (
	DefaultSwarmSize = 5
	DefaultInnerIter = 5
	MinOuterIter     = 5
	MaxOuterIter     = 8
)

// Macro is a level-1 particle: a topology position plus the level-2
// swarm it owns.
type Macro struct {
	Particle
	Micro *Micro
}

type Option func(*Optimizer)

// DB sets a database for per-generation progress logging.  Tables are
// created on construction if they don't exist.
func DB(db *sql.DB) Option {
	return func(o *Optimizer) { o.db = db }
}

// Eval sets the evaluation strategy used for level-2 generations.
// Defaults to SerialEvaler; use PoolEvaler to spread training runs over
// a bounded worker pool, and compose CacheEvaler or RecordEvaler on top.
func Eval(ev swarmtune.Evaler) Option {
	return func(o *Optimizer) { o.ev = ev }
}

// LearnFactors sets the cognition (c1) and social (c2) velocity
// coefficients used at both levels.
func LearnFactors(cognition, social float64) Option {
	return func(o *Optimizer) {
		o.cognition = cognition
		o.social = social
	}
}

// OuterIter fixes the number of level-1 generations instead of drawing
// it from [MinOuterIter, MaxOuterIter] at construction.
func OuterIter(n int) Option {
	return func(o *Optimizer) { o.maxOuter = n }
}

// InnerIter sets the number of level-2 generations run per level-1
// particle per level-1 generation.
func InnerIter(n int) Option {
	return func(o *Optimizer) { o.maxInner = n }
}

// SwarmSize sets the number of level-1 particles.
func SwarmSize(n int) Option {
	return func(o *Optimizer) { o.swarmSize = n }
}

// Optimizer drives the level-1 swarm: one inertia weight per outer
// generation, shared with every level-2 optimization of that
// generation, and a single run-wide best combination as the only shared
// mutable state - this loop is its single writer.
type Optimizer struct {
	Space *space.Space
	Pop   []*Macro

	fn swarmtune.Evaluator
	ev swarmtune.Evaler

	cognition float64
	social    float64
	maxOuter  int
	maxInner  int
	swarmSize int

	bestArch   []int
	bestParams []int
	bestFit    float64

	db    *sql.DB
	runid string
	t     int // completed outer generations
}

// New builds an optimizer over s that scores candidates with fn.  The
// search space is validated here once and never mutated afterwards; a
// malformed space is fatal.
func New(fn swarmtune.Evaluator, s *space.Space, opts ...Option) (*Optimizer, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	o := &Optimizer{
		Space:     s,
		fn:        fn,
		ev:        swarmtune.SerialEvaler{},
		cognition: DefaultCognition,
		social:    DefaultSocial,
		maxOuter:  swarmtune.RandInt(MinOuterIter, MaxOuterIter),
		maxInner:  DefaultInnerIter,
		swarmSize: DefaultSwarmSize,
		bestFit:   swarmtune.Unevaluated(),
		runid:     uuid.NewString(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.maxOuter < 1 || o.maxInner < 1 {
		return nil, errors.Errorf("swarm: at least one generation required at each level (outer %v, inner %v)", o.maxOuter, o.maxInner)
	}
	if o.swarmSize < 1 {
		return nil, errors.Errorf("swarm: at least one level-1 particle required, got %v", o.swarmSize)
	}

	o.Pop = make([]*Macro, o.swarmSize)
	for i := range o.Pop {
		arch := s.RandArch()
		o.Pop[i] = &Macro{
			Particle: *newParticle(i, arch.Vec()),
			// swarm size follows the convolutional depth frozen here,
			// not the topology the particle later moves to
			Micro: newMicro(s, arch.Conv, o.maxInner, o.cognition, o.social),
		}
	}

	if err := o.initdb(); err != nil {
		return nil, err
	}
	return o, nil
}

// Run executes the whole search and returns the best topology, the best
// layer parameters found under it, and that fitness.  The run ends only
// by generation exhaustion; any evaluation failure aborts it with the
// error and no partial result.
func (o *Optimizer) Run(ctx context.Context) (swarmtune.Result, error) {
	for ; o.t < o.maxOuter; o.t++ {
		w := Omega(o.t, o.maxOuter)

		for _, mp := range o.Pop {
			// Move first: the level-2 swarm must measure the topology
			// the level-1 particle actually occupies this generation.
			mp.Move(o.bestArch, w, o.cognition, o.social)
			if err := o.Space.RepairL1(mp.Pos); err != nil {
				return swarmtune.Result{}, err
			}

			arch := swarmtune.ArchFromVec(mp.Pos)
			mpos, mfit, err := mp.Micro.Optimize(ctx, arch, w, o.ev, o.fn)
			if err != nil {
				return swarmtune.Result{}, errors.Wrapf(err, "level-1 particle %v generation %v", mp.Id, o.t)
			}

			mp.Update(mfit)
			if mp.BestFit > o.bestFit {
				o.bestFit = mp.BestFit
				o.bestArch = append([]int{}, mp.Best...)
				o.bestParams = mpos
			}
		}

		if err := o.logGeneration(); err != nil {
			return swarmtune.Result{}, err
		}
	}

	return swarmtune.Result{
		Arch:    swarmtune.ArchFromVec(o.bestArch),
		Params:  swarmtune.ParamsFromVec(o.bestParams),
		Fitness: o.bestFit,
	}, nil
}

// Best returns the best candidate found so far, unevaluated before the
// first completed generation.
func (o *Optimizer) Best() swarmtune.Candidate {
	if o.bestArch == nil {
		return swarmtune.Candidate{Fitness: swarmtune.Unevaluated()}
	}
	return swarmtune.Candidate{
		Arch:    swarmtune.ArchFromVec(o.bestArch),
		Params:  swarmtune.ParamsFromVec(o.bestParams),
		Fitness: o.bestFit,
	}
}

// Niter returns the number of completed level-1 generations.
func (o *Optimizer) Niter() int { return o.t }

// Neval returns the total number of evaluator invocations so far.
func (o *Optimizer) Neval() int {
	tot := 0
	for _, mp := range o.Pop {
		tot += mp.Micro.Neval()
	}
	return tot
}
