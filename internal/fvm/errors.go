package fvm

import "errors"

var (
	// ErrEmptyValue indicates a cell variable without cells.
	ErrEmptyValue = errors.New("fvm: cell variable has no cells")

	// ErrNonPositiveDr indicates a grid spacing that is zero or negative.
	ErrNonPositiveDr = errors.New("fvm: grid spacing must be positive")

	// ErrMissingConstraint indicates a face with neither a value nor a
	// gradient constraint.
	ErrMissingConstraint = errors.New("fvm: face has neither a value nor a gradient constraint")

	// ErrTooFewCells indicates an operator applied to a grid with fewer than
	// two cells.
	ErrTooFewCells = errors.New("fvm: operator needs at least two cells")

	// ErrShapeMismatch indicates coefficients whose dimensions do not match
	// the state they are applied to.
	ErrShapeMismatch = errors.New("fvm: dimension mismatch between coefficients and state")

	// ErrNonFinite indicates NaN or Inf in a checked residual evaluation.
	ErrNonFinite = errors.New("fvm: non-finite value in residual evaluation")

	// ErrSmallTransient indicates a transient coefficient below the sanity
	// threshold in a checked residual evaluation.
	ErrSmallTransient = errors.New("fvm: transient coefficient unexpectedly small")

	// ErrUnknownConvectionMode indicates an unsupported boundary mode for
	// the convection operator.
	ErrUnknownConvectionMode = errors.New("fvm: unknown convection boundary mode")

	// ErrUnknownInitialGuess indicates an unsupported initial guess mode.
	ErrUnknownInitialGuess = errors.New("fvm: unknown initial guess mode")
)
