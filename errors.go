package swarmtune

import "github.com/pkg/errors"

var (
	// ErrInvalidSpace reports a malformed search space: an empty or
	// reversed range, or ranges that jointly admit no repairable
	// position.  Fatal at optimizer construction.
	ErrInvalidSpace = errors.New("swarmtune: invalid search space")

	// ErrUnrepairable reports a position that cannot be clamped into
	// the valid region because a cross-field constraint conflicts with
	// the dependent field's own range.  Signals misconfiguration.
	ErrUnrepairable = errors.New("swarmtune: position not repairable")

	// ErrEvaluation reports a failed or nonsensical fitness
	// evaluation.  A NaN or out-of-range accuracy is an evaluation
	// failure, never a valid low score.
	ErrEvaluation = errors.New("swarmtune: fitness evaluation failed")
)
