package swarmtune

import (
	"context"
	"math"

	"github.com/petar/GoLLRB/llrb"
)

// Archive keeps the best evaluated candidates seen during a run.
// Every evaluation costs a full training cycle, so the runner-up
// combinations are usually worth keeping alongside the single best the
// optimizer reports.
type Archive struct {
	max  int
	tree *llrb.LLRB
}

type archItem Candidate

func (a archItem) Less(than llrb.Item) bool {
	return a.Fitness < than.(archItem).Fitness
}

// NewArchive returns an archive holding at most max candidates.
func NewArchive(max int) *Archive {
	if max < 1 {
		max = 1
	}
	return &Archive{max: max, tree: llrb.New()}
}

// Add records an evaluated candidate, evicting the worst entry when the
// archive is full.  Unevaluated candidates are ignored.
func (a *Archive) Add(c Candidate) {
	if math.IsInf(c.Fitness, -1) {
		return
	}
	a.tree.InsertNoReplace(archItem(c))
	for a.tree.Len() > a.max {
		a.tree.DeleteMin()
	}
}

func (a *Archive) Len() int { return a.tree.Len() }

// Top returns up to n archived candidates in descending fitness order.
func (a *Archive) Top(n int) []Candidate {
	out := make([]Candidate, 0, n)
	a.tree.DescendLessOrEqual(archItem{Fitness: math.Inf(1)}, func(i llrb.Item) bool {
		out = append(out, Candidate(i.(archItem)))
		return len(out) < n
	})
	return out
}

// RecordEvaler is Evaler middleware that feeds every evaluated
// candidate into an Archive.  It composes with the other strategies:
//
//	ev := RecordEvaler{Ev: NewCacheEvaler(PoolEvaler{}), Archive: a}
type RecordEvaler struct {
	Ev      Evaler
	Archive *Archive
}

func (r RecordEvaler) Eval(ctx context.Context, fn Evaluator, cands ...Candidate) ([]Candidate, int, error) {
	results, n, err := r.Ev.Eval(ctx, fn, cands...)
	for _, c := range results {
		r.Archive.Add(c)
	}
	return results, n, err
}
