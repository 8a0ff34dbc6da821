package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/torasim/internal/config"
	"github.com/san-kum/torasim/internal/fvm"
	"github.com/san-kum/torasim/internal/geometry"
	"github.com/san-kum/torasim/internal/plasma"
	"github.com/san-kum/torasim/internal/solver"
	"github.com/san-kum/torasim/internal/transport"
)

func shortConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Numerics.TFinal = 0.1
	return cfg
}

func setup(t *testing.T, cfg *config.Config) (*Simulator, plasma.CoreProfiles) {
	t.Helper()
	s, err := NewFromConfig(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	geo, err := geometry.FromConfig(cfg.Geometry)
	if err != nil {
		t.Fatal(err)
	}
	initial, err := InitialProfiles(cfg, geo)
	if err != nil {
		t.Fatal(err)
	}
	return s, initial
}

// flaky fails the first n attempts and then delegates.
type flaky struct {
	next  Stepper
	fails int
	dts   []float64
}

func (f *flaky) Step(p solver.Problem) (*solver.Result, error) {
	f.dts = append(f.dts, p.Dt)
	if f.fails > 0 {
		f.fails--
		return &solver.Result{X: p.XOld, Error: 1}, nil
	}
	return f.next.Step(p)
}

type countMetric struct{ n int }

func (c *countMetric) Name() string          { return "count" }
func (c *countMetric) Observe(rec StepRecord) { c.n++ }
func (c *countMetric) Value() float64         { return float64(c.n) }
func (c *countMetric) Reset()                 { c.n = 0 }

func TestSimulatorRun(t *testing.T) {
	cfg := shortConfig()
	s, initial := setup(t, cfg)

	result, err := s.Run(context.Background(), initial, cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.Times) != result.StepsTaken+1 || len(result.Profiles) != len(result.Times) {
		t.Fatalf("inconsistent history: %d times, %d profiles, %d steps",
			len(result.Times), len(result.Profiles), result.StepsTaken)
	}
	for i := 1; i < len(result.Times); i++ {
		if result.Times[i] <= result.Times[i-1] {
			t.Fatalf("time not increasing at step %d", i)
		}
	}
	if last := result.Times[len(result.Times)-1]; math.Abs(last-cfg.Numerics.TFinal) > 1e-9 {
		t.Errorf("expected to end at %g, ended at %g", cfg.Numerics.TFinal, last)
	}
	if err := result.Final().Validate(); err != nil {
		t.Errorf("final profiles invalid: %v", err)
	}
	if len(result.Channels) != 2 {
		t.Errorf("expected two evolving channels, got %v", result.Channels)
	}

	// density is not evolved and must not change
	ne0, ne1 := initial.Ne.Value(), result.Final().Ne.Value()
	for i := range ne0 {
		if ne0[i] != ne1[i] {
			t.Fatalf("frozen density changed at cell %d", i)
		}
	}
}

func TestEvolvingChannelsSolverOrder(t *testing.T) {
	n := config.DefaultConfig().Numerics
	n.IonHeatEq, n.ElHeatEq, n.CurrentEq, n.DensEq = true, true, true, true
	want := []plasma.Channel{plasma.TempIon, plasma.TempEl, plasma.Psi, plasma.Ne}
	got := EvolvingChannels(n)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}

	n.ElHeatEq = false
	if got := EvolvingChannels(n); len(got) != 3 || got[1] != plasma.Psi {
		t.Errorf("without the electron equation got %v", got)
	}
}

func TestSimulatorLinearStepperAllChannels(t *testing.T) {
	cfg, err := config.GetPreset("iterhybrid_pc")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Numerics.TFinal = 0.02
	s, initial := setup(t, cfg)

	result, err := s.Run(context.Background(), initial, cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.StepsTaken == 0 {
		t.Fatal("no steps taken")
	}
	for _, it := range result.Iterations[1:] {
		if it != cfg.Stepper.CorrectorSteps+1 {
			t.Fatalf("expected %d sweeps per step, got %d", cfg.Stepper.CorrectorSteps+1, it)
		}
	}
}

func TestSimulatorReducesDtOnFailure(t *testing.T) {
	cfg := shortConfig()
	s, initial := setup(t, cfg)
	stepper := &flaky{next: s.stepper, fails: 2}
	s.stepper = stepper

	result, err := s.Run(context.Background(), initial, cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Rejected != 2 {
		t.Errorf("expected 2 rejected attempts, got %d", result.Rejected)
	}
	factor := cfg.Stepper.DtReductionFactor
	if math.Abs(stepper.dts[1]-stepper.dts[0]/factor) > 1e-15 ||
		math.Abs(stepper.dts[2]-stepper.dts[1]/factor) > 1e-15 {
		t.Errorf("dt not reduced by %g: %v", factor, stepper.dts[:3])
	}
	if math.Abs(result.Dts[1]-stepper.dts[2]) > 1e-15 {
		t.Errorf("accepted dt %g should be the reduced one %g", result.Dts[1], stepper.dts[2])
	}
}

func TestSimulatorRecoversFromSingularSolve(t *testing.T) {
	cfg := shortConfig()
	s, initial := setup(t, cfg)
	newton, err := solver.NewNewton(solver.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	// dx/dt = x stepped with dt = 1 has a zero Jacobian.
	growth := solver.CoeffsCallbackFunc(func(x []fvm.CellVariable, _ *config.Slice, _ bool) (fvm.Block1DCoeffs, error) {
		return fvm.Block1DCoeffs{
			TransientIn: [][]float64{{1}},
			SourceMat:   [][][]float64{{{1}}},
		}, nil
	})
	unit := []fvm.CellVariable{fvm.MustCellVariable([]float64{1}, 1, fvm.DefaultBoundary(0))}

	next := s.stepper
	var dts []float64
	s.stepper = stepperFunc(func(p solver.Problem) (*solver.Result, error) {
		dts = append(dts, p.Dt)
		if len(dts) > 1 {
			return next.Step(p)
		}
		res, err := newton.Step(solver.Problem{XOld: unit, Dt: 1, Callback: growth})
		if err != nil {
			return nil, err
		}
		return &solver.Result{X: p.XOld, Error: res.Error, Residual: res.Residual}, nil
	})

	result, err := s.Run(context.Background(), initial, cfg)
	if err != nil {
		t.Fatalf("singular solve aborted the run: %v", err)
	}
	if result.Rejected != 1 {
		t.Errorf("expected 1 rejected attempt, got %d", result.Rejected)
	}
	if want := dts[0] / cfg.Stepper.DtReductionFactor; math.Abs(dts[1]-want) > 1e-15 {
		t.Errorf("retry dt %g, want %g", dts[1], want)
	}
	if math.Abs(result.Dts[1]-dts[1]) > 1e-15 {
		t.Errorf("accepted dt %g should be the reduced one %g", result.Dts[1], dts[1])
	}
}

func TestSimulatorStepTooSmall(t *testing.T) {
	cfg := shortConfig()
	s, initial := setup(t, cfg)
	s.stepper = &flaky{fails: math.MaxInt}

	_, err := s.Run(context.Background(), initial, cfg)
	if !errors.Is(err, ErrStepTooSmall) {
		t.Fatalf("expected ErrStepTooSmall, got %v", err)
	}
	var simErr *SimulationError
	if !errors.As(err, &simErr) {
		t.Fatalf("expected *SimulationError, got %T", err)
	}
	if simErr.Step != 1 || simErr.Dt >= cfg.Numerics.MinDt {
		t.Errorf("unexpected error context %+v", simErr)
	}
}

func TestSimulatorPropagatesSolverErrors(t *testing.T) {
	cfg := shortConfig()
	s, initial := setup(t, cfg)
	boom := errors.New("boom")
	s.stepper = stepperFunc(func(solver.Problem) (*solver.Result, error) { return nil, boom })

	_, err := s.Run(context.Background(), initial, cfg)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped solver error, got %v", err)
	}
}

type stepperFunc func(solver.Problem) (*solver.Result, error)

func (f stepperFunc) Step(p solver.Problem) (*solver.Result, error) { return f(p) }

func TestSimulatorContextCanceled(t *testing.T) {
	cfg := shortConfig()
	s, initial := setup(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := s.Run(ctx, initial, cfg)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(result.Profiles) != 1 {
		t.Errorf("expected only the initial state, got %d", len(result.Profiles))
	}
}

func TestRunWithCallbackStops(t *testing.T) {
	cfg := shortConfig()
	s, initial := setup(t, cfg)

	calls := 0
	err := s.RunWithCallback(context.Background(), initial, cfg, func(rec StepRecord) bool {
		calls++
		return rec.Step < 3
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 4 {
		t.Errorf("expected 4 callbacks, got %d", calls)
	}
}

func TestSimulatorMetrics(t *testing.T) {
	cfg := shortConfig()
	s, initial := setup(t, cfg)
	m := &countMetric{}
	s.AddMetric(m)

	result, err := s.Run(context.Background(), initial, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if result.Metrics["count"] != float64(len(result.Times)) {
		t.Errorf("expected %d observations, got %g", len(result.Times), result.Metrics["count"])
	}
}

func TestSimulatorInvalidConfig(t *testing.T) {
	cfg := shortConfig()
	s, initial := setup(t, cfg)

	tests := []struct {
		name   string
		modify func(*config.Config)
	}{
		{"t_final before start", func(c *config.Config) { c.Numerics.TFinal = -1 }},
		{"no equations", func(c *config.Config) { c.Numerics.IonHeatEq, c.Numerics.ElHeatEq = false, false }},
		{"bad reduction factor", func(c *config.Config) { c.Stepper.DtReductionFactor = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := shortConfig()
			tt.modify(bad)
			if _, err := s.Run(context.Background(), initial, bad); !errors.Is(err, config.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	if err := New(nil, nil).RunWithCallback(context.Background(), initial, cfg, func(StepRecord) bool { return true }); !errors.Is(err, ErrNilStepper) {
		t.Errorf("expected ErrNilStepper, got %v", err)
	}
}

func TestNewStepper(t *testing.T) {
	c := config.DefaultConfig().Stepper
	for name, want := range map[string]string{
		config.StepperLinear:        "*solver.Linear",
		config.StepperNewtonRaphson: "*solver.Newton",
	} {
		c.Stepper = name
		st, err := NewStepper(c, nil)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		switch st.(type) {
		case *solver.Linear:
			if want != "*solver.Linear" {
				t.Errorf("%s: got linear stepper", name)
			}
		case *solver.Newton:
			if want != "*solver.Newton" {
				t.Errorf("%s: got Newton stepper", name)
			}
		}
	}

	c.Stepper = "rk4"
	if _, err := NewStepper(c, nil); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
	c.Stepper = config.StepperNewtonRaphson
	c.ThetaImp = 0
	if _, err := NewStepper(c, nil); !errors.Is(err, solver.ErrExplicitTheta) {
		t.Errorf("expected ErrExplicitTheta, got %v", err)
	}
}

func TestEnsemble(t *testing.T) {
	build := func(cfg *config.Config) (*Simulator, error) { return NewFromConfig(cfg, nil) }
	a, b := shortConfig(), shortConfig()
	b.Transport.ChiI = 4

	results, err := NewEnsemble(build, 2).Run(context.Background(), []*config.Config{a, b})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	// stronger ion transport gives a flatter, cooler core
	if results[1].Final().TempIon.At(0) >= results[0].Final().TempIon.At(0) {
		t.Errorf("expected lower core Ti with larger chi: %g >= %g",
			results[1].Final().TempIon.At(0), results[0].Final().TempIon.At(0))
	}
}

func TestEnsembleFailsFast(t *testing.T) {
	bad := shortConfig()
	bad.Transport.Model = "unknown"
	build := func(cfg *config.Config) (*Simulator, error) { return NewFromConfig(cfg, nil) }

	if _, err := NewEnsemble(build, 0).Run(context.Background(), []*config.Config{shortConfig(), bad}); !errors.Is(err, transport.ErrUnknownModel) {
		t.Errorf("expected ErrUnknownModel, got %v", err)
	}
}
