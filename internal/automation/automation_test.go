package automation

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/torasim/internal/config"
	"github.com/san-kum/torasim/internal/optim"
	"github.com/san-kum/torasim/internal/sim"
)

const campaignYAML = `
name: chi scan
description: two quick runs
runs:
  - name: low_chi
    set:
      chi_i: 1
      nrho: 10
  - name: stiff
    preset: iterhybrid_pc
    set:
      nrho: 10
`

func writeCampaign(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "campaign.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCampaignConfigs(t *testing.T) {
	c, err := LoadCampaign(writeCampaign(t, campaignYAML))
	if err != nil {
		t.Fatal(err)
	}
	if c.Name != "chi scan" || len(c.Runs) != 2 {
		t.Fatalf("unexpected campaign %+v", c)
	}

	cfgs, err := c.Configs()
	if err != nil {
		t.Fatal(err)
	}
	if cfgs[0].Name != "low_chi" || cfgs[0].Transport.ChiI != 1 || cfgs[0].Geometry.NRho != 10 {
		t.Errorf("first run not resolved: %s chi_i=%g nrho=%d", cfgs[0].Name, cfgs[0].Transport.ChiI, cfgs[0].Geometry.NRho)
	}
	if cfgs[1].Transport.Model != "critical_gradient" || cfgs[1].Stepper.Stepper != config.StepperLinear {
		t.Errorf("preset not applied to second run: %+v", cfgs[1].Stepper)
	}
}

func TestCampaignErrors(t *testing.T) {
	if _, err := (&Campaign{}).Configs(); !errors.Is(err, ErrEmptyCampaign) {
		t.Errorf("expected ErrEmptyCampaign, got %v", err)
	}

	bad := &Campaign{Runs: []CampaignRun{{Set: map[string]float64{"beta": 1}}}}
	if _, err := bad.Configs(); !errors.Is(err, optim.ErrUnknownParameter) {
		t.Errorf("expected ErrUnknownParameter, got %v", err)
	}

	invalid := &Campaign{Runs: []CampaignRun{{Set: map[string]float64{"nrho": 1}}}}
	if _, err := invalid.Configs(); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}

	missing := &Campaign{Runs: []CampaignRun{{Preset: "jet"}}}
	if _, err := missing.Configs(); !errors.Is(err, config.ErrUnknownPreset) {
		t.Errorf("expected ErrUnknownPreset, got %v", err)
	}
}

func TestRunCampaign(t *testing.T) {
	c := &Campaign{Name: "quick", Runs: []CampaignRun{
		{Name: "a", Set: map[string]float64{"nrho": 10, "t_final": 0.05}},
		{Name: "b", Set: map[string]float64{"nrho": 10, "t_final": 0.05, "chi_i": 4}},
	}}
	build := func(cfg *config.Config) (*sim.Simulator, error) {
		return sim.NewFromConfig(cfg, nil)
	}

	cfgs, results, err := RunCampaign(context.Background(), c, sim.NewEnsemble(build, 2), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfgs) != 2 || len(results) != 2 {
		t.Fatalf("expected 2 runs, got %d configs %d results", len(cfgs), len(results))
	}
	for i, r := range results {
		if r.StepsTaken == 0 {
			t.Errorf("run %s took no steps", cfgs[i].Name)
		}
	}
}

func TestSweep(t *testing.T) {
	base := config.DefaultConfig()
	cfgs, err := Sweep(base, "chi_e", 1, 3, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []float64{1, 2, 3} {
		if cfgs[i].Transport.ChiE != want {
			t.Errorf("point %d: expected chi_e %g, got %g", i, want, cfgs[i].Transport.ChiE)
		}
	}
	if cfgs[2].Name != "default_chi_e_2" {
		t.Errorf("unexpected name %s", cfgs[2].Name)
	}

	single, err := Sweep(base, "chi_e", 5, 9, 1)
	if err != nil || single[0].Transport.ChiE != 5 {
		t.Errorf("single point sweep should use lo: %v", err)
	}
	if _, err := Sweep(base, "chi_e", 1, 2, 0); err == nil {
		t.Error("expected an error for zero points")
	}
}

func TestMonteCarlo(t *testing.T) {
	base := config.DefaultConfig()
	nominal := map[string]float64{"chi_i": 2, "zeff": 1.6}

	cfgs, draws, err := MonteCarlo(base, nominal, 0.1, 20, 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfgs) != 20 || len(draws) != 20 {
		t.Fatalf("expected 20 trials, got %d", len(cfgs))
	}
	for i, cfg := range cfgs {
		if math.Abs(cfg.Transport.ChiI/2-1) > 0.1+1e-12 {
			t.Errorf("trial %d: chi_i %g outside the spread", i, cfg.Transport.ChiI)
		}
		if cfg.Profiles.Zeff != draws[i]["zeff"] {
			t.Errorf("trial %d: draw not applied", i)
		}
	}

	again, _, err := MonteCarlo(base, nominal, 0.1, 20, 7)
	if err != nil {
		t.Fatal(err)
	}
	if again[3].Transport.ChiI != cfgs[3].Transport.ChiI {
		t.Error("same seed should give the same draws")
	}
}
