package swarmtune

import (
	"crypto/sha1"
	"encoding/binary"
	"math"
)

// Architecture is a level-1 position: the topology of a candidate
// network expressed as layer counts.  The pooling and fully connected
// depths never exceed the convolutional depth.
type Architecture struct {
	Conv int // convolutional layers
	Pool int // max-pooling layers, at most Conv
	FC   int // fully connected layers, at most Conv
}

// Vec returns the position vector {Conv, Pool, FC} as a fresh slice.
func (a Architecture) Vec() []int { return []int{a.Conv, a.Pool, a.FC} }

// ArchFromVec is the inverse of Architecture.Vec.
func ArchFromVec(v []int) Architecture {
	return Architecture{Conv: v[0], Pool: v[1], FC: v[2]}
}

// LayerParams is a level-2 position: the per-layer numeric
// hyperparameters applied under a fixed Architecture.
type LayerParams struct {
	FilterCount int // filters per convolutional layer
	FilterSize  int // convolution kernel extent, odd
	ConvPad     int // 0 = valid, 1 = same
	ConvStride  int // at most FilterSize
	PoolSize    int // pooling kernel extent, odd
	PoolStride  int
	PoolPad     int // 0 = valid, 1 = same, at most PoolSize
	OutUnits    int // neurons per hidden fully connected layer
}

// Vec returns the position vector in field order as a fresh slice.
func (p LayerParams) Vec() []int {
	return []int{
		p.FilterCount, p.FilterSize, p.ConvPad, p.ConvStride,
		p.PoolSize, p.PoolStride, p.PoolPad, p.OutUnits,
	}
}

// ParamsFromVec is the inverse of LayerParams.Vec.
func ParamsFromVec(v []int) LayerParams {
	return LayerParams{
		FilterCount: v[0],
		FilterSize:  v[1],
		ConvPad:     v[2],
		ConvStride:  v[3],
		PoolSize:    v[4],
		PoolStride:  v[5],
		PoolPad:     v[6],
		OutUnits:    v[7],
	}
}

// Unevaluated is the fitness of a candidate that has never been scored.
// It is negative infinity so that any measured accuracy improves on it;
// it is never a valid accuracy itself.
func Unevaluated() float64 { return math.Inf(-1) }

// Candidate pairs a full hyperparameter combination with its measured
// fitness.  Fitness is validation accuracy in [0,1]; higher is better.
type Candidate struct {
	Arch    Architecture
	Params  LayerParams
	Fitness float64
}

// NewCandidate returns an unevaluated candidate for the combination.
func NewCandidate(arch Architecture, params LayerParams) Candidate {
	return Candidate{Arch: arch, Params: params, Fitness: Unevaluated()}
}

// Hash identifies a candidate by its position at both levels.
func (c Candidate) Hash() [sha1.Size]byte {
	v := append(c.Arch.Vec(), c.Params.Vec()...)
	data := make([]byte, len(v)*8)
	for i, x := range v {
		binary.BigEndian.PutUint64(data[i*8:], uint64(x))
	}
	return sha1.Sum(data)
}

// Result is the sole output of a completed run: the best topology, the
// best layer parameters found under it, and that fitness.
type Result struct {
	Arch    Architecture
	Params  LayerParams
	Fitness float64
}
