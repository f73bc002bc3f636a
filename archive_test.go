package swarmtune

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArchiveKeepsBest(t *testing.T) {
	a := NewArchive(3)
	for i, fit := range []float64{0.2, 0.8, 0.1, 0.5, 0.4} {
		a.Add(Candidate{Params: LayerParams{FilterCount: i + 1}, Fitness: fit})
	}

	require.Equal(t, 3, a.Len())
	top := a.Top(3)
	require.Len(t, top, 3)
	require.Equal(t, []float64{0.8, 0.5, 0.4}, []float64{top[0].Fitness, top[1].Fitness, top[2].Fitness})
}

func TestArchiveIgnoresUnevaluated(t *testing.T) {
	a := NewArchive(3)
	a.Add(NewCandidate(Architecture{}, LayerParams{}))
	require.Equal(t, 0, a.Len())
}

func TestRecordEvaler(t *testing.T) {
	fn := EvaluatorFunc(func(ctx context.Context, arch Architecture, params LayerParams) (float64, error) {
		return float64(params.FilterCount) / 10, nil
	})

	a := NewArchive(10)
	ev := RecordEvaler{Ev: SerialEvaler{}, Archive: a}

	cands := []Candidate{
		NewCandidate(Architecture{Conv: 1, Pool: 1, FC: 1}, LayerParams{FilterCount: 2}),
		NewCandidate(Architecture{Conv: 1, Pool: 1, FC: 1}, LayerParams{FilterCount: 7}),
	}
	_, _, err := ev.Eval(context.Background(), fn, cands...)
	require.NoError(t, err)

	require.Equal(t, 2, a.Len())
	require.Equal(t, 0.7, a.Top(1)[0].Fitness)
}
