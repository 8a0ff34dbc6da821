package experiment

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/san-kum/torasim/internal/config"
	"github.com/san-kum/torasim/internal/geometry"
	"github.com/san-kum/torasim/internal/plasma"
	"github.com/san-kum/torasim/internal/sim"
)

var ErrNotSetup = errors.New("experiment: not set up")

// Experiment ties a run configuration to a simulator and its initial state.
type Experiment struct {
	cfg       *config.Config
	geo       *geometry.Geometry
	initial   plasma.CoreProfiles
	simulator *sim.Simulator
	logger    *zap.Logger
}

func New(cfg *config.Config, logger *zap.Logger) *Experiment {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Experiment{cfg: cfg, logger: logger}
}

// Setup validates the configuration and builds the simulator from the
// registry, attaching the default metrics.
func (e *Experiment) Setup(r *Registry) error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	geo, err := geometry.FromConfig(e.cfg.Geometry)
	if err != nil {
		return err
	}
	model, err := r.GetModel(e.cfg.Transport.Model)
	if err != nil {
		return err
	}
	stepper, err := r.GetStepper(e.cfg.Stepper.Stepper, e.cfg.Stepper, e.logger)
	if err != nil {
		return err
	}
	initial, err := sim.InitialProfiles(e.cfg, geo)
	if err != nil {
		return err
	}

	e.geo = geo
	e.initial = initial
	e.simulator = sim.New(model, stepper).WithLogger(e.logger)
	for _, m := range r.DefaultMetrics(geo) {
		e.simulator.AddMetric(m)
	}
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, ErrNotSetup
	}
	e.logger.Info("Starting simulation",
		zap.String("name", e.cfg.Name),
		zap.String("stepper", e.cfg.Stepper.Stepper),
		zap.String("transport", e.cfg.Transport.Model),
		zap.Strings("channels", channelNames(sim.EvolvingChannels(e.cfg.Numerics))),
	)
	return e.simulator.Run(ctx, e.initial, e.cfg)
}

// RunWithCallback streams every accepted step to callback.
func (e *Experiment) RunWithCallback(ctx context.Context, callback func(sim.StepRecord) bool) error {
	if e.simulator == nil {
		return ErrNotSetup
	}
	return e.simulator.RunWithCallback(ctx, e.initial, e.cfg, callback)
}

// Simulator returns the underlying simulator for adding observers.
func (e *Experiment) Simulator() *sim.Simulator { return e.simulator }

func (e *Experiment) Geometry() *geometry.Geometry { return e.geo }

func (e *Experiment) Config() *config.Config { return e.cfg }

func channelNames(cs []plasma.Channel) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.String()
	}
	return out
}
