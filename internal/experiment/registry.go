package experiment

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/san-kum/torasim/internal/config"
	"github.com/san-kum/torasim/internal/fvm"
	"github.com/san-kum/torasim/internal/geometry"
	"github.com/san-kum/torasim/internal/metrics"
	"github.com/san-kum/torasim/internal/sim"
	"github.com/san-kum/torasim/internal/transport"
)

type Registry struct {
	models   map[string]func() transport.Model
	steppers map[string]func(config.StepperConfig, *zap.Logger) (sim.Stepper, error)
}

func NewRegistry() *Registry {
	r := &Registry{
		models:   make(map[string]func() transport.Model),
		steppers: make(map[string]func(config.StepperConfig, *zap.Logger) (sim.Stepper, error)),
	}

	r.models["constant"] = func() transport.Model { return transport.Constant{} }
	r.models["critical_gradient"] = func() transport.Model { return transport.CriticalGradient{} }

	for _, name := range []string{config.StepperLinear, config.StepperNewtonRaphson} {
		r.steppers[name] = func(c config.StepperConfig, logger *zap.Logger) (sim.Stepper, error) {
			c.Stepper = name
			return sim.NewStepper(c, logger)
		}
	}
	return r
}

func (r *Registry) GetModel(name string) (transport.Model, error) {
	fn, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", transport.ErrUnknownModel, name)
	}
	return fn(), nil
}

func (r *Registry) GetStepper(name string, c config.StepperConfig, logger *zap.Logger) (sim.Stepper, error) {
	fn, ok := r.steppers[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown stepper %q", config.ErrInvalidConfig, name)
	}
	return fn(c, logger)
}

func (r *Registry) ListModels() []string {
	return sortedKeys(r.models)
}

func (r *Registry) ListSteppers() []string {
	return sortedKeys(r.steppers)
}

// ListInitialGuessModes names the accepted initial_guess_mode values.
func (r *Registry) ListInitialGuessModes() []string {
	return []string{fvm.InitialGuessLinear.String(), fvm.InitialGuessXOld.String()}
}

func (r *Registry) DefaultMetrics(geo *geometry.Geometry) []sim.Metric {
	return []sim.Metric{
		metrics.NewStoredEnergy(geo),
		metrics.NewEnergyDrift(geo),
		metrics.NewMeanIterations(),
		metrics.NewAcceptance(),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
