package fvm

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// minTransient is the sanity threshold on transient coefficients in checked
// evaluations.
const minTransient = 1e-7

// ThetaConfig fixes everything in the theta-method residual except the
// candidate solution.
type ThetaConfig struct {
	// XOld holds the variables at the start of the step, time t.
	XOld []CellVariable
	// UpdateFns refresh candidate boundary conditions to t+dt. Optional.
	UpdateFns []UpdateFn
	Dt        float64
	// ThetaImp weights the implicit side: 1 is backward Euler, 0.5 is
	// Crank-Nicolson, 0 is fully explicit.
	ThetaImp float64
	// Coeffs evaluates coefficients at a candidate state for time t+dt.
	Coeffs CoeffsFunc
	// CoeffsOld are the coefficients at XOld for time t.
	CoeffsOld Block1DCoeffs
	Modes     Modes
	// JacobianStep is the finite-difference step; zero uses the formula default.
	JacobianStep float64
}

// ThetaResidual evaluates
//
//	R(x) = T(x)·(x − x_old)/dt − [θ·F(x) + (1−θ)·F(x_old)]
//
// with F(x) = C(x)·x + c(x) assembled by CalcC.
type ThetaResidual struct {
	cfg      ThetaConfig
	xOld     []float64
	explicit []float64
}

// NewThetaResidual validates cfg and precomputes the explicit side.
func NewThetaResidual(cfg ThetaConfig) (*ThetaResidual, error) {
	if len(cfg.XOld) == 0 {
		return nil, ErrEmptyValue
	}
	for i, v := range cfg.XOld {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("x_old channel %d: %w", i, err)
		}
	}
	if !(cfg.Dt > 0) {
		return nil, fmt.Errorf("fvm: dt must be positive, got %g", cfg.Dt)
	}
	if cfg.ThetaImp < 0 || cfg.ThetaImp > 1 {
		return nil, fmt.Errorf("fvm: theta_imp must be in [0, 1], got %g", cfg.ThetaImp)
	}
	if cfg.UpdateFns != nil && len(cfg.UpdateFns) != len(cfg.XOld) {
		return nil, fmt.Errorf("%w: %d update fns for %d variables", ErrShapeMismatch, len(cfg.UpdateFns), len(cfg.XOld))
	}
	if cfg.Coeffs == nil {
		return nil, errors.New("fvm: nil coefficient function")
	}

	r := &ThetaResidual{cfg: cfg, xOld: Flatten(cfg.XOld)}
	r.explicit = make([]float64, len(r.xOld))
	if thetaExp := 1 - cfg.ThetaImp; thetaExp > 0 {
		fOld, err := r.spatial(cfg.XOld, cfg.CoeffsOld, r.xOld)
		if err != nil {
			return nil, fmt.Errorf("explicit terms: %w", err)
		}
		for i, f := range fOld {
			r.explicit[i] = thetaExp * f
		}
	}
	return r, nil
}

// XOld returns the flattened start-of-step solution.
func (r *ThetaResidual) XOld() []float64 { return clone(r.xOld) }

// Like returns the start-of-step variables used to shape candidates.
func (r *ThetaResidual) Like() []CellVariable { return r.cfg.XOld }

// UpdateFns returns the boundary update functions.
func (r *ThetaResidual) UpdateFns() []UpdateFn { return r.cfg.UpdateFns }

// Evaluate computes the residual and auxiliary output at x. With checked
// set, non-finite values and tiny transient coefficients are reported as
// errors; otherwise they propagate as data.
func (r *ThetaResidual) Evaluate(x []float64, checked bool) ([]float64, AuxiliaryOutput, error) {
	if len(x) != len(r.xOld) {
		return nil, nil, fmt.Errorf("%w: candidate has %d entries, want %d", ErrShapeMismatch, len(x), len(r.xOld))
	}
	vars := ToCellVariables(x, r.cfg.XOld, r.cfg.UpdateFns)
	coeffs, err := r.cfg.Coeffs(vars)
	if err != nil {
		return nil, nil, err
	}
	transient := flattenRows(coeffs.TransientIn)
	if checked {
		if err := checkTransient(transient); err != nil {
			return nil, nil, err
		}
	}
	f, err := r.spatial(vars, coeffs, x)
	if err != nil {
		return nil, nil, err
	}

	theta, dt := r.cfg.ThetaImp, r.cfg.Dt
	res := make([]float64, len(x))
	for i := range x {
		res[i] = transient[i]*(x[i]-r.xOld[i])/dt - theta*f[i] - r.explicit[i]
	}
	if checked && !IsFinite(res) {
		return nil, nil, ErrNonFinite
	}
	return res, coeffs.Aux, nil
}

// Jacobian returns ∂R/∂x at x by central finite differences. Evaluations
// inside the difference stencil are unchecked.
func (r *ThetaResidual) Jacobian(x []float64) (*mat.Dense, error) {
	n := len(x)
	jac := mat.NewDense(n, n, nil)
	var evalErr error
	fd.Jacobian(jac, func(y, xx []float64) {
		res, _, err := r.Evaluate(xx, false)
		if err != nil {
			if evalErr == nil {
				evalErr = err
			}
			for i := range y {
				y[i] = math.NaN()
			}
			return
		}
		copy(y, res)
	}, x, &fd.JacobianSettings{
		Formula: fd.Central,
		Step:    r.cfg.JacobianStep,
	})
	if evalErr != nil {
		return nil, fmt.Errorf("jacobian: %w", evalErr)
	}
	return jac, nil
}

// LinearSystem freezes the coefficients at guess and returns A, b such that
// A·x = b is the linearized theta-method update. It also returns the
// auxiliary output of the frozen coefficients.
func (r *ThetaResidual) LinearSystem(guess []CellVariable) (*mat.Dense, []float64, AuxiliaryOutput, error) {
	coeffs, err := r.cfg.Coeffs(guess)
	if err != nil {
		return nil, nil, nil, err
	}
	c, vec, err := CalcC(guess, coeffs, r.cfg.Modes)
	if err != nil {
		return nil, nil, nil, err
	}
	transient := flattenRows(coeffs.TransientIn)
	if err := checkTransient(transient); err != nil {
		return nil, nil, nil, err
	}

	theta, dt := r.cfg.ThetaImp, r.cfg.Dt
	n := len(r.xOld)
	a := mat.NewDense(n, n, nil)
	a.Scale(-theta, c)
	b := make([]float64, n)
	for i := 0; i < n; i++ {
		a.Set(i, i, a.At(i, i)+transient[i]/dt)
		b[i] = transient[i]/dt*r.xOld[i] + theta*vec[i] + r.explicit[i]
	}
	return a, b, coeffs.Aux, nil
}

func (r *ThetaResidual) spatial(vars []CellVariable, coeffs Block1DCoeffs, x []float64) ([]float64, error) {
	c, vec, err := CalcC(vars, coeffs, r.cfg.Modes)
	if err != nil {
		return nil, err
	}
	f := mat.NewVecDense(len(x), nil)
	f.MulVec(c, mat.NewVecDense(len(x), clone(x)))
	out := make([]float64, len(x))
	for i := range out {
		out[i] = f.AtVec(i) + vec[i]
	}
	return out, nil
}

func checkTransient(t []float64) error {
	for i, v := range t {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: transient coefficient %d", ErrNonFinite, i)
		}
		if v < minTransient {
			return fmt.Errorf("%w: entry %d is %g", ErrSmallTransient, i, v)
		}
	}
	return nil
}

func flattenRows(rows [][]float64) []float64 {
	var out []float64
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}
