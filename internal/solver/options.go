package solver

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/torasim/internal/config"
	"github.com/san-kum/torasim/internal/fvm"
)

// MinDelta is the largest step component below which the step search stops
// shrinking.
const MinDelta = 1e-3

// Options configures both steppers. Newton-only fields are ignored by Linear.
type Options struct {
	ThetaImp     float64
	InitialGuess fvm.InitialGuessMode
	Modes        fvm.Modes

	MaxIter              int
	Tol                  float64
	DeltaReductionFactor float64
	TauMin               float64
	// JacobianStep is the finite-difference step; zero picks the default.
	JacobianStep float64

	// PredictorCorrector enables CorrectorSteps extra sweeps in the linear
	// step.
	PredictorCorrector bool
	CorrectorSteps     int

	LogIterations bool
	Logger        *zap.Logger
}

func DefaultOptions() Options {
	return Options{
		ThetaImp:             config.DefaultThetaImp,
		InitialGuess:         fvm.InitialGuessLinear,
		Modes:                fvm.DefaultModes(),
		MaxIter:              config.DefaultMaxIter,
		Tol:                  config.DefaultTol,
		DeltaReductionFactor: config.DefaultDeltaReductionFactor,
		TauMin:               config.DefaultTauMin,
		PredictorCorrector:   true,
		CorrectorSteps:       config.DefaultCorrectorSteps,
		Logger:               zap.NewNop(),
	}
}

// OptionsFromConfig translates the stepper section of a run configuration.
func OptionsFromConfig(c config.StepperConfig, logger *zap.Logger) (Options, error) {
	guess, err := fvm.ParseInitialGuessMode(c.InitialGuessMode)
	if err != nil {
		return Options{}, err
	}
	dirichlet, err := fvm.ParseConvectionMode(c.ConvectionDirichletMode)
	if err != nil {
		return Options{}, err
	}
	neumann, err := fvm.ParseConvectionMode(c.ConvectionNeumannMode)
	if err != nil {
		return Options{}, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := Options{
		ThetaImp:             c.ThetaImp,
		InitialGuess:         guess,
		Modes:                fvm.Modes{Dirichlet: dirichlet, Neumann: neumann},
		MaxIter:              c.MaxIter,
		Tol:                  c.Tol,
		DeltaReductionFactor: c.DeltaReductionFactor,
		TauMin:               c.TauMin,
		JacobianStep:         c.JacobianStep,
		PredictorCorrector:   c.PredictorCorrector,
		CorrectorSteps:       c.CorrectorSteps,
		LogIterations:        c.LogIterations,
		Logger:               logger,
	}
	return opts, opts.Validate()
}

// Validate checks the ranges of the numeric settings.
func (o Options) Validate() error {
	if o.ThetaImp < 0 || o.ThetaImp > 1 {
		return fmt.Errorf("%w: theta_imp %g outside [0, 1]", ErrInvalidOptions, o.ThetaImp)
	}
	switch o.InitialGuess {
	case fvm.InitialGuessXOld, fvm.InitialGuessLinear:
	default:
		return fmt.Errorf("%w: %v", fvm.ErrUnknownInitialGuess, o.InitialGuess)
	}
	if o.MaxIter < 0 {
		return fmt.Errorf("%w: maxiter %d is negative", ErrInvalidOptions, o.MaxIter)
	}
	if !(o.Tol > 0) {
		return fmt.Errorf("%w: tol must be positive, got %g", ErrInvalidOptions, o.Tol)
	}
	if !(o.DeltaReductionFactor > 0 && o.DeltaReductionFactor < 1) {
		return fmt.Errorf("%w: delta_reduction_factor %g outside (0, 1)", ErrInvalidOptions, o.DeltaReductionFactor)
	}
	if o.TauMin < 0 || o.TauMin > 1 {
		return fmt.Errorf("%w: tau_min %g outside [0, 1]", ErrInvalidOptions, o.TauMin)
	}
	if o.JacobianStep < 0 {
		return fmt.Errorf("%w: negative jacobian step", ErrInvalidOptions)
	}
	if o.CorrectorSteps < 0 {
		return fmt.Errorf("%w: negative corrector_steps", ErrInvalidOptions)
	}
	return nil
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o Options) sweeps() int {
	if o.PredictorCorrector {
		return o.CorrectorSteps + 1
	}
	return 1
}
