package sim

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/torasim/internal/coeffs"
	"github.com/san-kum/torasim/internal/config"
	"github.com/san-kum/torasim/internal/geometry"
	"github.com/san-kum/torasim/internal/plasma"
	"github.com/san-kum/torasim/internal/solver"
	"github.com/san-kum/torasim/internal/transport"
)

type Simulator struct {
	model     transport.Model
	stepper   Stepper
	logger    *zap.Logger
	metrics   []Metric
	observers []Observer
}

func New(model transport.Model, stepper Stepper) *Simulator {
	return &Simulator{
		model:     model,
		stepper:   stepper,
		logger:    zap.NewNop(),
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

// NewFromConfig builds the transport model and stepper named in cfg.
func NewFromConfig(cfg *config.Config, logger *zap.Logger) (*Simulator, error) {
	model, err := transport.New(cfg.Transport.Model)
	if err != nil {
		return nil, err
	}
	stepper, err := NewStepper(cfg.Stepper, logger)
	if err != nil {
		return nil, err
	}
	return New(model, stepper).WithLogger(logger), nil
}

// NewStepper returns the linear or Newton-Raphson stepper.
func NewStepper(c config.StepperConfig, logger *zap.Logger) (Stepper, error) {
	opts, err := solver.OptionsFromConfig(c, logger)
	if err != nil {
		return nil, err
	}
	switch c.Stepper {
	case config.StepperLinear:
		return solver.NewLinear(opts)
	case config.StepperNewtonRaphson:
		return solver.NewNewton(opts)
	default:
		return nil, fmt.Errorf("%w: unknown stepper %q", config.ErrInvalidConfig, c.Stepper)
	}
}

func (s *Simulator) WithLogger(l *zap.Logger) *Simulator {
	if l != nil {
		s.logger = l
	}
	return s
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Run evolves initial from t_initial to t_final.
func (s *Simulator) Run(ctx context.Context, initial plasma.CoreProfiles, cfg *config.Config) (*Result, error) {
	result := &Result{Metrics: make(map[string]float64)}
	for _, m := range s.metrics {
		m.Reset()
	}

	err := s.RunWithCallback(ctx, initial, cfg, func(rec StepRecord) bool {
		result.append(rec)
		if rec.Step > 0 {
			result.StepsTaken++
		}
		return true
	})
	if len(result.Profiles) > 0 {
		result.Channels = EvolvingChannels(cfg.Numerics)
	}
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	return result, err
}

// RunWithCallback evolves initial and hands every accepted step, starting
// with the initial state, to callback. Returning false stops the run
// without error.
func (s *Simulator) RunWithCallback(ctx context.Context, initial plasma.CoreProfiles, cfg *config.Config, callback func(StepRecord) bool) error {
	if s.model == nil || s.stepper == nil {
		return ErrNilStepper
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := initial.Validate(); err != nil {
		return err
	}
	geo, err := geometry.FromConfig(cfg.Geometry)
	if err != nil {
		return err
	}
	channels := EvolvingChannels(cfg.Numerics)
	builder, err := coeffs.New(geo, s.model, channels)
	if err != nil {
		return err
	}

	t := cfg.Numerics.TInitial
	p := initial
	if !s.emit(StepRecord{Time: t, Profiles: p}, callback) {
		return nil
	}

	for step := 1; cfg.Numerics.TFinal-t > timeEps; step++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rec, err := s.advance(cfg, geo, builder, channels, step, t, p)
		if err != nil {
			return err
		}
		t, p = rec.Time, rec.Profiles
		if !s.emit(rec, callback) {
			return nil
		}
	}
	return nil
}

func (s *Simulator) emit(rec StepRecord, callback func(StepRecord) bool) bool {
	for _, m := range s.metrics {
		m.Observe(rec)
	}
	for _, obs := range s.observers {
		obs.OnStep(rec)
	}
	return callback(rec)
}

// advance takes one accepted step from t, dividing dt by
// dt_reduction_factor after every failed attempt.
func (s *Simulator) advance(cfg *config.Config, geo *geometry.Geometry, builder *coeffs.Builder, channels []plasma.Channel, step int, t float64, p plasma.CoreProfiles) (StepRecord, error) {
	sliceT := cfg.SliceAt(t)
	dt := TimeStep(cfg.Numerics, geo, s.model.Coeffs(p, geo, sliceT).ChiMax(), t)

	for rejected := 0; ; rejected++ {
		next := cfg.SliceAt(t + dt)
		base := coeffs.UpdateBoundaries(p, next)
		res, err := s.stepper.Step(solver.Problem{
			XOld:         p.Extract(channels),
			UpdateFns:    coeffs.BoundaryUpdateFns(next, channels),
			Dt:           dt,
			SliceT:       sliceT,
			SliceTPlusDt: next,
			Callback:     builder.WithBase(base),
		})
		if err != nil {
			return StepRecord{}, &SimulationError{Step: step, Time: t, Dt: dt, Wrapped: err}
		}

		var out plasma.CoreProfiles
		if res.Converged() {
			out, err = base.Merge(channels, res.X)
			if err == nil {
				err = out.Validate()
			}
			if err == nil {
				return StepRecord{
					Step:       step,
					Time:       t + dt,
					Dt:         dt,
					Iterations: res.Iterations,
					Residual:   res.Residual,
					Rejected:   rejected,
					Profiles:   out,
					Aux:        res.Aux,
				}, nil
			}
		}

		reduced := dt / cfg.Stepper.DtReductionFactor
		s.logger.Warn("Solver did not converge, reducing dt",
			zap.Int("step", step),
			zap.Float64("t", t),
			zap.Float64("dt", dt),
			zap.Float64("next_dt", reduced),
			zap.Float64("residual", res.Residual),
			zap.Error(err),
		)
		if reduced < cfg.Numerics.MinDt {
			return StepRecord{}, &SimulationError{Step: step, Time: t, Dt: reduced, Wrapped: ErrStepTooSmall}
		}
		dt = reduced
	}
}
