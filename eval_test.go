package swarmtune

import (
	"context"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

const errcount = 3

type errEvaluator struct {
	count int
}

func (o *errEvaluator) Evaluate(ctx context.Context, arch Architecture, params LayerParams) (float64, error) {
	o.count++
	if o.count >= errcount {
		return 0, errors.New("fake error")
	}
	return 0.5, nil
}

func TestSerialEvalerErr(t *testing.T) {
	fn := &errEvaluator{}
	ev := SerialEvaler{}

	cands := make([]Candidate, 5)
	results, n, err := ev.Eval(context.Background(), fn, cands...)
	if len(results) != errcount {
		t.Errorf("returned wrong number of results: expected %v, got %v", errcount, len(results))
	}
	if n != errcount {
		t.Errorf("returned wrong evaluation count: expected %v, got %v", errcount, n)
	}
	if err == nil {
		t.Errorf("did not propagate error through return")
	}
	if len(results) > 0 && !math.IsInf(results[len(results)-1].Fitness, -1) {
		t.Errorf("failed candidate carries fitness %v, want unevaluated", results[len(results)-1].Fitness)
	}
}

func TestSerialEvalerRejectsBadAccuracy(t *testing.T) {
	for _, bad := range []float64{math.NaN(), -0.1, 1.5} {
		fn := EvaluatorFunc(func(ctx context.Context, arch Architecture, params LayerParams) (float64, error) {
			return bad, nil
		})

		_, _, err := SerialEvaler{}.Eval(context.Background(), fn, Candidate{})
		require.ErrorIs(t, err, ErrEvaluation, "accuracy %v must be an evaluation failure", bad)
	}
}

func TestCacheEvaler(t *testing.T) {
	var calls int
	fn := EvaluatorFunc(func(ctx context.Context, arch Architecture, params LayerParams) (float64, error) {
		calls++
		return 0.75, nil
	})

	ev := NewCacheEvaler(SerialEvaler{})
	c := NewCandidate(Architecture{Conv: 2, Pool: 1, FC: 1}, LayerParams{FilterCount: 8, FilterSize: 3, ConvStride: 1, PoolSize: 3, PoolStride: 1, OutUnits: 16})

	results, n, err := ev.Eval(context.Background(), fn, c)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 0.75, results[0].Fitness)

	results, n, err = ev.Eval(context.Background(), fn, c)
	require.NoError(t, err)
	require.Equal(t, 0, n, "second visit must not re-train")
	require.Equal(t, 1, calls)
	require.Equal(t, 1, ev.Hits())
	require.Equal(t, 0.75, results[0].Fitness)
}

func TestPoolEvaler(t *testing.T) {
	var inflight, peak atomic.Int64
	fn := EvaluatorFunc(func(ctx context.Context, arch Architecture, params LayerParams) (float64, error) {
		cur := inflight.Add(1)
		defer inflight.Add(-1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return float64(params.FilterCount) / 100, nil
	})

	cands := make([]Candidate, 8)
	for i := range cands {
		cands[i] = NewCandidate(Architecture{Conv: 1, Pool: 1, FC: 1}, LayerParams{FilterCount: i + 1})
	}

	ev := PoolEvaler{Workers: 4}
	results, n, err := ev.Eval(context.Background(), fn, cands...)
	require.NoError(t, err)
	require.Equal(t, len(cands), n)
	require.LessOrEqual(t, peak.Load(), int64(4), "worker bound exceeded")
	for i, c := range results {
		require.Equal(t, cands[i].Params, c.Params, "result order must follow candidate order")
		require.Equal(t, float64(i+1)/100, c.Fitness)
	}
}

func TestPoolEvalerErr(t *testing.T) {
	fn := EvaluatorFunc(func(ctx context.Context, arch Architecture, params LayerParams) (float64, error) {
		if params.FilterCount == 3 {
			return 0, errors.New("training diverged")
		}
		return 0.5, nil
	})

	cands := make([]Candidate, 5)
	for i := range cands {
		cands[i] = NewCandidate(Architecture{Conv: 1, Pool: 1, FC: 1}, LayerParams{FilterCount: i + 1})
	}

	_, _, err := PoolEvaler{Workers: 2}.Eval(context.Background(), fn, cands...)
	require.Error(t, err)
}

func TestPoolEvalerTimeout(t *testing.T) {
	fn := EvaluatorFunc(func(ctx context.Context, arch Architecture, params LayerParams) (float64, error) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(5 * time.Second):
			return 0.5, nil
		}
	})

	ev := PoolEvaler{Workers: 1, Timeout: 10 * time.Millisecond}
	start := time.Now()
	_, _, err := ev.Eval(context.Background(), fn, Candidate{})
	require.Error(t, err, "stuck evaluation must be cut off")
	require.Less(t, time.Since(start), time.Second)
}
