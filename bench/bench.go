// Package bench provides cheap synthetic stand-ins for the external
// fitness evaluator, for exercising the optimizer without training any
// networks: an analytic accuracy surface with a known optimum, an
// exact-match needle, and an invocation counter.  All are deterministic
// and run in microseconds where a real evaluator takes minutes.
package bench

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/swarmtune/swarmtune"
	"github.com/swarmtune/swarmtune/space"
)

// Surrogate scores candidates on an analytic accuracy surface peaked at
// Target: accuracy = exp(-4d) where d is the squared distance from the
// target combination with each field normalized by its range width.
// The optimum value is exactly 1.0 at Target.
type Surrogate struct {
	Target swarmtune.Candidate
	Space  *space.Space
}

// Default returns a surrogate over the default search space with an
// interior target combination.
func Default() Surrogate {
	return Surrogate{
		Space: space.Default(),
		Target: swarmtune.Candidate{
			Arch: swarmtune.Architecture{Conv: 3, Pool: 2, FC: 2},
			Params: swarmtune.LayerParams{
				FilterCount: 32,
				FilterSize:  5,
				ConvPad:     1,
				ConvStride:  1,
				PoolSize:    3,
				PoolStride:  2,
				PoolPad:     0,
				OutUnits:    256,
			},
		},
	}
}

func (s Surrogate) Evaluate(ctx context.Context, arch swarmtune.Architecture, params swarmtune.LayerParams) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	got := append(arch.Vec(), params.Vec()...)
	want := append(s.Target.Arch.Vec(), s.Target.Params.Vec()...)

	d := 0.0
	for i, r := range s.Space.Ranges() {
		width := float64(r.Max - r.Min)
		if width == 0 {
			continue
		}
		diff := float64(got[i]-want[i]) / width
		d += diff * diff
	}
	return math.Exp(-4 * d), nil
}

// Peak returns accuracy 1.0 for exactly the target combination and 0.0
// for everything else - a needle for convergence tests over small
// spaces.
type Peak struct {
	Target swarmtune.Candidate
}

func (p Peak) Evaluate(ctx context.Context, arch swarmtune.Architecture, params swarmtune.LayerParams) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if arch == p.Target.Arch && params == p.Target.Params {
		return 1, nil
	}
	return 0, nil
}

// Counter wraps an Evaluator and counts invocations.  Safe under
// concurrent evaluation.
type Counter struct {
	swarmtune.Evaluator
	n atomic.Int64
}

func NewCounter(fn swarmtune.Evaluator) *Counter {
	return &Counter{Evaluator: fn}
}

func (c *Counter) Evaluate(ctx context.Context, arch swarmtune.Architecture, params swarmtune.LayerParams) (float64, error) {
	c.n.Add(1)
	return c.Evaluator.Evaluate(ctx, arch, params)
}

// N returns the number of invocations so far.
func (c *Counter) N() int { return int(c.n.Load()) }
