package swarmtune

import (
	"context"
	"crypto/sha1"
	"math"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"github.com/sourcegraph/conc/pool"
)

// Evaluator builds and trains the network described by a combination
// and reports its validation accuracy in [0,1].  Implementations are
// expected to be expensive (a full train cycle per call) and should
// honor ctx cancellation.  A returned accuracy outside [0,1] or NaN is
// treated as an evaluation failure, never as a score.
type Evaluator interface {
	Evaluate(ctx context.Context, arch Architecture, params LayerParams) (float64, error)
}

// EvaluatorFunc adapts a plain function to the Evaluator interface.
type EvaluatorFunc func(ctx context.Context, arch Architecture, params LayerParams) (float64, error)

func (f EvaluatorFunc) Evaluate(ctx context.Context, arch Architecture, params LayerParams) (float64, error) {
	return f(ctx, arch, params)
}

// Evaler is an evaluation strategy: it scores a batch of candidates
// with fn and returns them with fitness set, along with the number of
// evaluator invocations n.  On error, candidates that were never
// dispatched must not appear in results, and the candidate that failed
// carries Unevaluated fitness.
type Evaler interface {
	Eval(ctx context.Context, fn Evaluator, cands ...Candidate) (results []Candidate, n int, err error)
}

func checkAccuracy(v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return errors.Wrapf(ErrEvaluation, "accuracy %v outside [0,1]", v)
	}
	return nil
}

// SerialEvaler scores candidates one at a time in order, stopping at
// the first failure.
type SerialEvaler struct{}

func (ev SerialEvaler) Eval(ctx context.Context, fn Evaluator, cands ...Candidate) (results []Candidate, n int, err error) {
	results = make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if err := ctx.Err(); err != nil {
			return results, len(results), errors.Wrap(err, "evaluation canceled")
		}

		val, err := fn.Evaluate(ctx, c.Arch, c.Params)
		if err == nil {
			err = checkAccuracy(val)
		}
		if err != nil {
			c.Fitness = Unevaluated()
			results = append(results, c)
			return results, len(results), err
		}

		c.Fitness = val
		results = append(results, c)
	}
	return results, len(results), nil
}

// CacheEvaler wraps another Evaler and memoizes fitnesses by candidate
// position.  Integer truncation makes particles revisit combinations
// often, and every fresh visit would otherwise cost a full train cycle.
type CacheEvaler struct {
	ev    Evaler
	cache map[[sha1.Size]byte]float64
	hits  int
}

func NewCacheEvaler(ev Evaler) *CacheEvaler {
	return &CacheEvaler{
		ev:    ev,
		cache: map[[sha1.Size]byte]float64{},
	}
}

// Hits returns the number of evaluations avoided so far.
func (ev *CacheEvaler) Hits() int { return ev.hits }

func (ev *CacheEvaler) Eval(ctx context.Context, fn Evaluator, cands ...Candidate) (results []Candidate, n int, err error) {
	out := make([]Candidate, 0, len(cands))
	fromnew := make([]int, 0, len(cands))
	miss := make([]Candidate, 0, len(cands))
	for i, c := range cands {
		if val, ok := ev.cache[c.Hash()]; ok {
			c.Fitness = val
			ev.hits++
		} else {
			fromnew = append(fromnew, i)
			miss = append(miss, c)
		}
		out = append(out, c)
	}

	fresh, n, err := ev.ev.Eval(ctx, fn, miss...)
	for _, c := range fresh {
		if !math.IsInf(c.Fitness, -1) {
			ev.cache[c.Hash()] = c.Fitness
		}
	}
	for j, c := range fresh {
		out[fromnew[j]] = c
	}

	if err != nil {
		// drop candidates past the failure point
		last := 0
		if len(fresh) > 0 {
			last = fromnew[len(fresh)-1] + 1
		}
		out = out[:last]
	}
	return out, n, err
}

// PoolEvaler scores candidates concurrently on a bounded pool of
// workers, one evaluator invocation per candidate.  Candidate
// evaluations within a generation are independent; all best tracking
// happens serially in the caller after Eval returns.  A nonzero Timeout
// bounds each invocation so one stuck training run cannot stall the
// whole generation.
type PoolEvaler struct {
	// Workers caps concurrent evaluator invocations.  Size it to the
	// available training hardware; zero means runtime.NumCPU.
	Workers int
	// Timeout bounds a single evaluation.  Zero means no bound beyond
	// the caller's ctx.
	Timeout time.Duration
}

func (ev PoolEvaler) Eval(ctx context.Context, fn Evaluator, cands ...Candidate) (results []Candidate, n int, err error) {
	workers := ev.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	out := make([]Candidate, len(cands))
	errs := make([]error, len(cands))

	p := pool.New().WithMaxGoroutines(workers)
	for i := range cands {
		p.Go(func() {
			c := cands[i]
			cctx := ctx
			if ev.Timeout > 0 {
				var cancel context.CancelFunc
				cctx, cancel = context.WithTimeout(ctx, ev.Timeout)
				defer cancel()
			}

			val, err := fn.Evaluate(cctx, c.Arch, c.Params)
			if err == nil {
				err = checkAccuracy(val)
			}
			if err != nil {
				c.Fitness = Unevaluated()
				errs[i] = errors.Wrapf(err, "candidate %v", i)
			} else {
				c.Fitness = val
			}
			out[i] = c
		})
	}
	p.Wait()

	for _, err := range errs {
		if err != nil {
			return out, len(cands), err
		}
	}
	return out, len(cands), nil
}
