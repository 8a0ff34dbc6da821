package solver

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/san-kum/torasim/internal/fvm"
)

// Newton solves the implicit theta-method step by Newton-Raphson iteration.
type Newton struct {
	opts Options
}

// NewNewton validates opts. A fully explicit theta is rejected because no
// iteration is needed; use Linear for it.
func NewNewton(opts Options) (*Newton, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.ThetaImp == 0 {
		return nil, ErrExplicitTheta
	}
	return &Newton{opts: opts}, nil
}

func (n *Newton) Options() Options { return n.opts }

// newtonState is owned by one Step call.
type newtonState struct {
	x          []float64
	iterations int
	residual   []float64
	lastTau    float64
	aux        fvm.AuxiliaryOutput
}

func (s *newtonState) done(o Options) bool {
	return !(fvm.ResidualScalar(s.residual) > o.Tol && s.iterations < o.MaxIter && s.lastTau > o.TauMin)
}

// Step advances p by one time step. Non-convergence, including a singular
// Jacobian, is reported through Result.Error; the returned error is reserved
// for invalid input and callback failures.
func (n *Newton) Step(p Problem) (*Result, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	o := n.opts
	log := o.logger()

	coeffsOld, err := p.Callback.Coeffs(p.XOld, p.SliceT, false)
	if err != nil {
		return nil, fmt.Errorf("coefficients at t: %w", err)
	}

	var x0 []float64
	switch o.InitialGuess {
	case fvm.InitialGuessLinear:
		coeffsExp, err := p.Callback.Coeffs(p.XOld, p.SliceT, true)
		if err != nil {
			return nil, fmt.Errorf("explicit coefficients: %w", err)
		}
		guess, _, err := predictorCorrector(p, o, coeffsExp)
		if err != nil {
			if isNumeric(err) {
				log.Warn("Linear initial guess failed", zap.Error(err))
				return n.result(p, &newtonState{x: fvm.Flatten(p.XOld), lastTau: 1}, math.NaN()), nil
			}
			return nil, fmt.Errorf("initial guess: %w", err)
		}
		x0 = fvm.Flatten(guess)
	case fvm.InitialGuessXOld:
		x0 = fvm.Flatten(p.XOld)
	default:
		return nil, fmt.Errorf("%w: %v", fvm.ErrUnknownInitialGuess, o.InitialGuess)
	}

	res, err := fvm.NewThetaResidual(fvm.ThetaConfig{
		XOld:         p.XOld,
		UpdateFns:    p.UpdateFns,
		Dt:           p.Dt,
		ThetaImp:     o.ThetaImp,
		Coeffs:       p.coeffsAt(false),
		CoeffsOld:    coeffsOld,
		Modes:        o.Modes,
		JacobianStep: o.JacobianStep,
	})
	if err != nil {
		return nil, err
	}

	state := &newtonState{x: x0, lastTau: 1}
	state.residual, state.aux, err = res.Evaluate(x0, true)
	if err != nil {
		if isNumeric(err) {
			log.Warn("Initial guess is not a valid state", zap.Error(err))
			return n.result(p, state, math.NaN()), nil
		}
		return nil, err
	}
	if o.LogIterations {
		r := fvm.ResidualScalar(state.residual)
		log.Info(fmt.Sprintf("Iteration: %d. Residual: %.16f. dt = %.6f", 0, r, p.Dt),
			zap.Int("iteration", 0),
			zap.Float64("residual", r),
			zap.Float64("dt", p.Dt))
	}

	trial := func(x []float64) float64 {
		r, _, err := res.Evaluate(x, false)
		if err != nil {
			return math.NaN()
		}
		return fvm.ResidualScalar(r)
	}

	for !state.done(o) {
		jac, err := res.Jacobian(state.x)
		if err != nil {
			return nil, err
		}
		if !fvm.IsFinite(jac.RawMatrix().Data) {
			log.Warn("Non-finite Jacobian", zap.Int("iteration", state.iterations))
			state.lastTau = 0
			break
		}
		rhs := make([]float64, len(state.residual))
		for i, r := range state.residual {
			rhs[i] = -r
		}
		delta, err := solveLinear(jac, rhs, log)
		if err != nil {
			if !errors.Is(err, ErrSingularJacobian) {
				return nil, fmt.Errorf("iteration %d: %w", state.iterations, err)
			}
			log.Warn("Singular Jacobian", zap.Int("iteration", state.iterations), zap.Error(err))
			state.lastTau = 0
			break
		}
		if !fvm.IsFinite(delta) {
			log.Warn("Non-finite Newton step", zap.Int("iteration", state.iterations))
			state.lastTau = 0
			break
		}

		step := searchStep(trial, state.x, delta, fvm.ResidualScalar(state.residual), o.DeltaReductionFactor)
		xNew := step.next()
		resNew, auxNew, err := res.Evaluate(xNew, true)
		if err != nil {
			if isNumeric(err) {
				log.Warn("Accepted step left the valid state space",
					zap.Int("iteration", state.iterations), zap.Error(err))
				state.lastTau = 0
				state.iterations++
				return n.result(p, state, math.NaN()), nil
			}
			return nil, err
		}
		state.x, state.residual, state.aux = xNew, resNew, auxNew
		state.iterations++
		state.lastTau = step.tau

		if o.LogIterations {
			r := fvm.ResidualScalar(state.residual)
			log.Info(fmt.Sprintf("Iteration: %d. Residual: %.16f. tau = %.6f", state.iterations, r, step.tau),
				zap.Int("iteration", state.iterations),
				zap.Float64("residual", r),
				zap.Float64("tau", step.tau))
		}
	}

	return n.result(p, state, fvm.ResidualScalar(state.residual)), nil
}

func (n *Newton) result(p Problem, s *newtonState, residual float64) *Result {
	errCode := 0
	if !(residual <= n.opts.Tol) {
		errCode = 1
	}
	return &Result{
		X:          fvm.ToCellVariables(s.x, p.XOld, p.UpdateFns),
		Error:      errCode,
		Aux:        s.aux,
		Iterations: s.iterations,
		LastTau:    s.lastTau,
		Residual:   residual,
	}
}

// isNumeric reports whether err came from the sanity checks of a residual
// evaluation or a singular solve rather than from a faulty callback.
func isNumeric(err error) bool {
	return errors.Is(err, fvm.ErrNonFinite) ||
		errors.Is(err, fvm.ErrSmallTransient) ||
		errors.Is(err, ErrSingularJacobian)
}
