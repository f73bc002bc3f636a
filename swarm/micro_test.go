package swarm

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/swarmtune/swarmtune"
	"github.com/swarmtune/swarmtune/space"
)

// hashEval scores every combination with a cheap deterministic
// pseudo-accuracy so swarm dynamics can be tested without a model.
var hashEval = swarmtune.EvaluatorFunc(func(ctx context.Context, arch swarmtune.Architecture, params swarmtune.LayerParams) (float64, error) {
	h := swarmtune.NewCandidate(arch, params).Hash()
	return float64(h[0]) / 255, nil
})

func TestMicroSizing(t *testing.T) {
	seedrng(1)
	s := space.Default()

	for _, nc := range []int{1, 3, 5} {
		m := newMicro(s, nc, DefaultInnerIter, DefaultCognition, DefaultSocial)
		if len(m.Pop) != ParticlesPerLayer*nc {
			t.Errorf("nconv=%v: swarm size %v, want %v", nc, len(m.Pop), ParticlesPerLayer*nc)
		}

		pos, fit := m.Best()
		require.Nil(t, pos)
		require.Equal(t, swarmtune.Unevaluated(), fit)
	}
}

func TestMicroOptimize(t *testing.T) {
	seedrng(42)
	s := space.Default()
	m := newMicro(s, 3, DefaultInnerIter, DefaultCognition, DefaultSocial)
	arch := swarmtune.Architecture{Conv: 3, Pool: 2, FC: 1}

	pos, fit, err := m.Optimize(context.Background(), arch, 0.9, swarmtune.SerialEvaler{}, hashEval)
	require.NoError(t, err)
	require.NotNil(t, pos)
	require.GreaterOrEqual(t, fit, 0.0)
	require.LessOrEqual(t, fit, 1.0)
	require.Equal(t, DefaultInnerIter*len(m.Pop), m.Neval())

	// every particle sits on a repaired, feasible position afterwards
	for _, p := range m.Pop {
		c := swarmtune.NewCandidate(arch, swarmtune.ParamsFromVec(p.Pos))
		require.True(t, s.Feasible(c), "particle %v at infeasible position %v", p.Id, p.Pos)
	}
}

func TestMicroBestMonotonic(t *testing.T) {
	seedrng(7)
	s := space.Default()
	m := newMicro(s, 2, 3, DefaultCognition, DefaultSocial)
	arch := swarmtune.Architecture{Conv: 2, Pool: 2, FC: 1}

	// repeated calls stand in for successive outer generations; swarm
	// state persists between them and the best must never regress
	prev := swarmtune.Unevaluated()
	for gen := 0; gen < 4; gen++ {
		_, fit, err := m.Optimize(context.Background(), arch, Omega(gen, 8), swarmtune.SerialEvaler{}, hashEval)
		require.NoError(t, err)
		if fit < prev {
			t.Errorf("generation %v: best regressed from %v to %v", gen, prev, fit)
		}
		prev = fit
	}
}

func TestMicroBestIsCopy(t *testing.T) {
	seedrng(11)
	s := space.Default()
	m := newMicro(s, 1, 1, DefaultCognition, DefaultSocial)
	arch := swarmtune.Architecture{Conv: 1, Pool: 1, FC: 1}

	pos, _, err := m.Optimize(context.Background(), arch, 0.9, swarmtune.SerialEvaler{}, hashEval)
	require.NoError(t, err)

	pos[0] = -1
	again, _ := m.Best()
	require.NotEqual(t, -1, again[0], "Best must return a copy")
}

func TestMicroEvalErrorAborts(t *testing.T) {
	seedrng(3)
	s := space.Default()
	m := newMicro(s, 2, 5, DefaultCognition, DefaultSocial)
	arch := swarmtune.Architecture{Conv: 2, Pool: 1, FC: 1}

	failing := swarmtune.EvaluatorFunc(func(ctx context.Context, a swarmtune.Architecture, p swarmtune.LayerParams) (float64, error) {
		return 0, errors.New("gpu fell over")
	})

	pos, fit, err := m.Optimize(context.Background(), arch, 0.9, swarmtune.SerialEvaler{}, failing)
	require.Error(t, err)
	require.Nil(t, pos)
	require.Equal(t, swarmtune.Unevaluated(), fit)

	best, bfit := m.Best()
	require.Nil(t, best)
	require.Equal(t, swarmtune.Unevaluated(), bfit)
}

func TestMicroCanceledContext(t *testing.T) {
	seedrng(3)
	s := space.Default()
	m := newMicro(s, 1, 5, DefaultCognition, DefaultSocial)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := m.Optimize(ctx, swarmtune.Architecture{Conv: 1, Pool: 1, FC: 1}, 0.9, swarmtune.SerialEvaler{}, hashEval)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, m.Neval())
}
