package solver

import (
	"fmt"

	"github.com/san-kum/torasim/internal/config"
	"github.com/san-kum/torasim/internal/fvm"
)

// CoeffsCallback computes block coefficients for a state at the time of
// slice. allowPereverzev admits the Pereverzev-Corrigan stabilization terms
// when the configuration enables them. Implementations must be
// deterministic in x.
type CoeffsCallback interface {
	Coeffs(x []fvm.CellVariable, slice *config.Slice, allowPereverzev bool) (fvm.Block1DCoeffs, error)
}

// CoeffsCallbackFunc adapts a function to CoeffsCallback.
type CoeffsCallbackFunc func(x []fvm.CellVariable, slice *config.Slice, allowPereverzev bool) (fvm.Block1DCoeffs, error)

func (f CoeffsCallbackFunc) Coeffs(x []fvm.CellVariable, slice *config.Slice, allowPereverzev bool) (fvm.Block1DCoeffs, error) {
	return f(x, slice, allowPereverzev)
}

// Problem is one time step of a block of evolving variables.
type Problem struct {
	// XOld are the evolving variables at time t.
	XOld []fvm.CellVariable
	// UpdateFns refresh boundary conditions to t+dt, one per variable.
	UpdateFns []fvm.UpdateFn
	Dt        float64
	// SliceT and SliceTPlusDt are the configuration at t and t+dt. Either
	// may be nil when the callback ignores it.
	SliceT       *config.Slice
	SliceTPlusDt *config.Slice
	Callback     CoeffsCallback
}

func (p Problem) validate() error {
	if p.Callback == nil {
		return ErrNilCallback
	}
	if len(p.XOld) == 0 {
		return fmt.Errorf("%w: no evolving variables", ErrInvalidOptions)
	}
	if p.UpdateFns != nil && len(p.UpdateFns) != len(p.XOld) {
		return fmt.Errorf("%w: %d update fns for %d variables", ErrInvalidOptions, len(p.UpdateFns), len(p.XOld))
	}
	if !(p.Dt > 0) {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrInvalidOptions, p.Dt)
	}
	return nil
}

// coeffsAt binds the callback to the t+dt slice.
func (p Problem) coeffsAt(allowPereverzev bool) fvm.CoeffsFunc {
	return func(x []fvm.CellVariable) (fvm.Block1DCoeffs, error) {
		return p.Callback.Coeffs(x, p.SliceTPlusDt, allowPereverzev)
	}
}

// Result is the outcome of one solve. Error is 0 when the residual met the
// tolerance and 1 when the caller should retry with a smaller step.
type Result struct {
	X     []fvm.CellVariable
	Error int
	Aux   fvm.AuxiliaryOutput

	Iterations int
	LastTau    float64
	Residual   float64
}

// Converged reports whether Error is 0.
func (r *Result) Converged() bool { return r.Error == 0 }
