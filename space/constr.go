package space

import (
	"gonum.org/v1/gonum/mat"

	"github.com/swarmtune/swarmtune"
)

// Combined vector layout used by Constraints, Violation, and Feasible:
// indices 0-2 are the topology fields, 3-10 the layer-parameter fields,
// in Ranges order.
//
// The cross-field rules are linear: each is a row of "x_dep - x_ind <= 0"
// over the combined vector, stacked under the box-bound rows.
var crossRules = [][2]int{
	{1, 0}, // pool layers  <= conv layers
	{2, 0}, // fc layers    <= conv layers
	{6, 4}, // conv stride  <= filter size
	{9, 7}, // pool padding <= pool size
}

// Constraints returns the feasible region as a stacked linear system
// "A x <= b": two box rows per field (upper then negated lower bound)
// followed by one row per cross-field rule.  Oddness of the kernel
// extents is the only rule the system cannot express.
func (s *Space) Constraints() (*mat.Dense, *mat.VecDense) {
	rs := s.Ranges()
	rows := 2*len(rs) + len(crossRules)
	A := mat.NewDense(rows, NumFields, nil)
	b := mat.NewVecDense(rows, nil)

	for i, r := range rs {
		A.Set(2*i, i, 1)
		b.SetVec(2*i, float64(r.Max))
		A.Set(2*i+1, i, -1)
		b.SetVec(2*i+1, float64(-r.Min))
	}
	for k, rule := range crossRules {
		row := 2*len(rs) + k
		A.Set(row, rule[0], 1)
		A.Set(row, rule[1], -1)
	}
	return A, b
}

// Violation measures how far a candidate's combined position lies
// outside the feasible region: the sum over violated constraint rows of
// the overshoot, box rows normalized by their range width.  Zero means
// every range and cross-field rule holds.
func (s *Space) Violation(c swarmtune.Candidate) float64 {
	A, b := s.Constraints()
	rows, _ := A.Dims()

	x := mat.NewVecDense(NumFields, combined(c))
	ax := mat.NewVecDense(rows, nil)
	ax.MulVec(A, x)

	rs := s.Ranges()
	tot := 0.0
	for i := 0; i < rows; i++ {
		d := ax.AtVec(i) - b.AtVec(i)
		if d <= 0 {
			continue
		}
		if i < 2*len(rs) {
			if width := float64(rs[i/2].Max - rs[i/2].Min); width > 1 {
				d /= width
			}
		}
		tot += d
	}
	return tot
}

// Feasible reports whether the candidate satisfies every range,
// cross-field rule, and oddness constraint.
func (s *Space) Feasible(c swarmtune.Candidate) bool {
	return s.Violation(c) == 0 &&
		c.Params.FilterSize%2 == 1 &&
		c.Params.PoolSize%2 == 1
}

func combined(c swarmtune.Candidate) []float64 {
	v := append(c.Arch.Vec(), c.Params.Vec()...)
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
