// Package space describes the valid region of the hyperparameter
// search: inclusive ranges for every field at both swarm levels, the
// cross-field consistency rules between them, and the repair step that
// clamps a freshly moved position back into the region.  Positions must
// be repaired before every fitness evaluation; an unrepaired position
// can describe a network the external model builder will reject.
package space

import (
	"github.com/pkg/errors"

	"github.com/swarmtune/swarmtune"
)

// Range is an inclusive [Min, Max] bound on one integer hyperparameter.
type Range struct {
	Min, Max int
}

func (r Range) clamp(v int) int {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

func (r Range) hasOdd() bool {
	if r.Min > r.Max {
		return false
	}
	return r.Min%2 == 1 || r.Min < r.Max
}

func (r Range) rand() int { return swarmtune.RandInt(r.Min, r.Max) }

// randOdd returns a uniform odd value in the range, which must contain
// at least one.
func (r Range) randOdd() int {
	lo := r.Min
	if lo%2 == 0 {
		lo++
	}
	return lo + 2*swarmtune.Rand.Intn((r.Max-lo)/2+1)
}

// Space holds the range of every hyperparameter at both levels.  It is
// immutable for the lifetime of a run and has no side effects; validate
// once at optimizer construction.
type Space struct {
	// level 1: topology
	Conv Range
	Pool Range // cross-field: Pool <= Conv
	FC   Range // cross-field: FC <= Conv

	// level 2: per-layer parameters
	FilterCount Range
	FilterSize  Range // odd
	ConvPad     Range // categorical {0,1}
	ConvStride  Range // cross-field: ConvStride <= FilterSize
	PoolSize    Range // odd
	PoolStride  Range
	PoolPad     Range // categorical {0,1}, cross-field: PoolPad <= PoolSize
	OutUnits    Range
}

// Default returns the ranges from Table 1 of the MPSO-CNN paper.
func Default() *Space {
	return &Space{
		Conv:        Range{1, 5},
		Pool:        Range{1, 5},
		FC:          Range{1, 5},
		FilterCount: Range{1, 64},
		FilterSize:  Range{1, 13},
		ConvPad:     Range{0, 1},
		ConvStride:  Range{1, 5},
		PoolSize:    Range{1, 13},
		PoolStride:  Range{1, 5},
		PoolPad:     Range{0, 1},
		OutUnits:    Range{1, 1024},
	}
}

// NumFields is the combined dimensionality of both position vectors.
const NumFields = 11

// Ranges returns the per-field ranges in combined vector order: the
// three topology fields followed by the eight layer-parameter fields.
func (s *Space) Ranges() []Range {
	return []Range{
		s.Conv, s.Pool, s.FC,
		s.FilterCount, s.FilterSize, s.ConvPad, s.ConvStride,
		s.PoolSize, s.PoolStride, s.PoolPad, s.OutUnits,
	}
}

var fieldNames = []string{
	"conv layers", "pool layers", "fc layers",
	"filter count", "filter size", "conv padding", "conv stride",
	"pool size", "pool stride", "pool padding", "output units",
}

// Validate reports whether every range is well formed and the ranges
// jointly admit at least one repairable position.
func (s *Space) Validate() error {
	for i, r := range s.Ranges() {
		if r.Min > r.Max {
			return errors.Wrapf(swarmtune.ErrInvalidSpace, "%v: empty range [%v,%v]", fieldNames[i], r.Min, r.Max)
		}
		if r.Min < 0 {
			return errors.Wrapf(swarmtune.ErrInvalidSpace, "%v: negative bound %v", fieldNames[i], r.Min)
		}
	}

	// counts and extents are at least one
	for _, f := range []struct {
		name string
		r    Range
	}{
		{"conv layers", s.Conv}, {"pool layers", s.Pool}, {"fc layers", s.FC},
		{"filter count", s.FilterCount}, {"filter size", s.FilterSize},
		{"conv stride", s.ConvStride}, {"pool size", s.PoolSize},
		{"pool stride", s.PoolStride}, {"output units", s.OutUnits},
	} {
		if f.r.Min < 1 {
			return errors.Wrapf(swarmtune.ErrInvalidSpace, "%v: must be positive, got min %v", f.name, f.r.Min)
		}
	}

	// padding is categorical: 0 = valid, 1 = same
	if s.ConvPad.Max > 1 {
		return errors.Wrapf(swarmtune.ErrInvalidSpace, "conv padding: categorical range [%v,%v] exceeds {0,1}", s.ConvPad.Min, s.ConvPad.Max)
	}
	if s.PoolPad.Max > 1 {
		return errors.Wrapf(swarmtune.ErrInvalidSpace, "pool padding: categorical range [%v,%v] exceeds {0,1}", s.PoolPad.Min, s.PoolPad.Max)
	}

	// cross-field rules need a feasible independent value
	if s.Pool.Min > s.Conv.Max {
		return errors.Wrapf(swarmtune.ErrInvalidSpace, "pool layers: min %v exceeds max conv layers %v", s.Pool.Min, s.Conv.Max)
	}
	if s.FC.Min > s.Conv.Max {
		return errors.Wrapf(swarmtune.ErrInvalidSpace, "fc layers: min %v exceeds max conv layers %v", s.FC.Min, s.Conv.Max)
	}
	if !s.convSizeRange().hasOdd() {
		return errors.Wrapf(swarmtune.ErrInvalidSpace, "filter size: no odd value in [%v,%v] admits conv stride min %v", s.FilterSize.Min, s.FilterSize.Max, s.ConvStride.Min)
	}
	if !s.poolSizeRange().hasOdd() {
		return errors.Wrapf(swarmtune.ErrInvalidSpace, "pool size: no odd value in [%v,%v] admits pool padding min %v", s.PoolSize.Min, s.PoolSize.Max, s.PoolPad.Min)
	}
	return nil
}

// convSizeRange is the filter-size range restricted to values that keep
// the stride constraint satisfiable.
func (s *Space) convSizeRange() Range {
	return Range{max(s.FilterSize.Min, s.ConvStride.Min), s.FilterSize.Max}
}

func (s *Space) poolSizeRange() Range {
	return Range{max(s.PoolSize.Min, s.PoolPad.Min), s.PoolSize.Max}
}

// RepairL1 clamps a level-1 position in place: each layer count to its
// range, then the pooling and fully connected depths down to the
// convolutional depth.  Fails when a cross-field clamp pushes a field
// below its own minimum.
func (s *Space) RepairL1(pos []int) error {
	pos[0] = s.Conv.clamp(pos[0])
	pos[1] = s.Pool.clamp(pos[1])
	pos[2] = s.FC.clamp(pos[2])
	if pos[1] > pos[0] {
		pos[1] = pos[0]
	}
	if pos[2] > pos[0] {
		pos[2] = pos[0]
	}
	if pos[1] < s.Pool.Min || pos[2] < s.FC.Min {
		return errors.Wrapf(swarmtune.ErrUnrepairable, "topology %v conflicts with pool/fc minimums", pos)
	}
	return nil
}

// RepairL2 clamps a level-2 position in place: every field to its
// range, kernel extents to the nearest odd value, and then the stride
// and padding fields down to the kernel extent they act on.
func (s *Space) RepairL2(pos []int) error {
	pos[0] = s.FilterCount.clamp(pos[0])
	pos[1] = oddClamp(s.FilterSize, pos[1])
	pos[2] = s.ConvPad.clamp(pos[2])
	pos[3] = s.ConvStride.clamp(pos[3])
	pos[4] = oddClamp(s.PoolSize, pos[4])
	pos[5] = s.PoolStride.clamp(pos[5])
	pos[6] = s.PoolPad.clamp(pos[6])
	pos[7] = s.OutUnits.clamp(pos[7])

	// stride and padding cannot exceed the kernel extent they act on
	if pos[3] > pos[1] {
		pos[3] = pos[1]
	}
	if pos[6] > pos[4] {
		pos[6] = pos[4]
	}
	if pos[3] < s.ConvStride.Min || pos[6] < s.PoolPad.Min {
		return errors.Wrapf(swarmtune.ErrUnrepairable, "layer params %v conflict with stride/padding minimums", pos)
	}
	return nil
}

// oddClamp clamps v into r and rounds to the nearest odd value, biasing
// downward so the result never overshoots a kernel-extent bound.
func oddClamp(r Range, v int) int {
	v = r.clamp(v)
	if v%2 == 1 {
		return v
	}
	if v-1 >= r.Min {
		return v - 1
	}
	return v + 1
}

// RandArch returns a uniformly random feasible topology.  The dependent
// depths are drawn inside the already drawn convolutional depth, the
// same order the paper constructs level-1 particles in.
func (s *Space) RandArch() swarmtune.Architecture {
	lo := max(s.Conv.Min, s.Pool.Min, s.FC.Min)
	nc := Range{lo, s.Conv.Max}.rand()
	return swarmtune.Architecture{
		Conv: nc,
		Pool: Range{s.Pool.Min, min(nc, s.Pool.Max)}.rand(),
		FC:   Range{s.FC.Min, min(nc, s.FC.Max)}.rand(),
	}
}

// RandParams returns a uniformly random feasible level-2 position.
// Kernel extents are drawn from odd values only, and dependent fields
// inside their already drawn independent field.
func (s *Space) RandParams() swarmtune.LayerParams {
	fs := s.convSizeRange().randOdd()
	ps := s.poolSizeRange().randOdd()
	return swarmtune.LayerParams{
		FilterCount: s.FilterCount.rand(),
		FilterSize:  fs,
		ConvPad:     s.ConvPad.rand(),
		ConvStride:  Range{s.ConvStride.Min, min(fs, s.ConvStride.Max)}.rand(),
		PoolSize:    ps,
		PoolStride:  s.PoolStride.rand(),
		PoolPad:     Range{s.PoolPad.Min, min(ps, s.PoolPad.Max)}.rand(),
		OutUnits:    s.OutUnits.rand(),
	}
}
