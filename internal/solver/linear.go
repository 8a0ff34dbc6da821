package solver

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/san-kum/torasim/internal/fvm"
)

// Linear is the linearized theta-method stepper. Each sweep freezes the
// coefficients at the current guess and solves the resulting linear
// system; with the predictor-corrector enabled CorrectorSteps further
// sweeps follow the first. It reports Error = 1 only when a sweep meets a
// singular or non-finite system.
type Linear struct {
	opts Options
}

func NewLinear(opts Options) (*Linear, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Linear{opts: opts}, nil
}

func (l *Linear) Options() Options { return l.opts }

func (l *Linear) Step(p Problem) (*Result, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	coeffsExp, err := p.Callback.Coeffs(p.XOld, p.SliceT, true)
	if err != nil {
		return nil, fmt.Errorf("explicit coefficients: %w", err)
	}
	x, aux, err := predictorCorrector(p, l.opts, coeffsExp)
	if err != nil {
		if !isNumeric(err) {
			return nil, err
		}
		l.opts.logger().Warn("Linear step failed", zap.Error(err))
		return &Result{
			X:        fvm.ToCellVariables(fvm.Flatten(p.XOld), p.XOld, p.UpdateFns),
			Error:    1,
			Residual: math.NaN(),
		}, nil
	}
	return &Result{
		X:          x,
		Aux:        aux,
		Iterations: l.opts.sweeps(),
		LastTau:    1,
	}, nil
}

// predictorCorrector runs the fixed-point sweeps of the linear theta method
// from the start-of-step state. coeffsExp are the coefficients at XOld,
// including Pereverzev terms when enabled, and form the explicit side.
func predictorCorrector(p Problem, o Options, coeffsExp fvm.Block1DCoeffs) ([]fvm.CellVariable, fvm.AuxiliaryOutput, error) {
	res, err := fvm.NewThetaResidual(fvm.ThetaConfig{
		XOld:      p.XOld,
		UpdateFns: p.UpdateFns,
		Dt:        p.Dt,
		ThetaImp:  o.ThetaImp,
		Coeffs:    p.coeffsAt(true),
		CoeffsOld: coeffsExp,
		Modes:     o.Modes,
	})
	if err != nil {
		return nil, nil, err
	}

	log := o.logger()
	guess := fvm.ToCellVariables(fvm.Flatten(p.XOld), p.XOld, p.UpdateFns)
	var aux fvm.AuxiliaryOutput
	for i := 0; i < o.sweeps(); i++ {
		a, b, sweepAux, err := res.LinearSystem(guess)
		if err != nil {
			return nil, nil, fmt.Errorf("sweep %d: %w", i, err)
		}
		x, err := solveLinear(a, b, log)
		if err != nil {
			return nil, nil, fmt.Errorf("sweep %d: %w", i, err)
		}
		guess = fvm.ToCellVariables(x, p.XOld, p.UpdateFns)
		aux = sweepAux
		if o.LogIterations {
			log.Debug("Predictor-corrector sweep", zap.Int("sweep", i), zap.Float64("dt", p.Dt))
		}
	}
	return guess, aux, nil
}
