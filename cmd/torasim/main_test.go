package main

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/torasim/internal/config"
)

func scenarioCmd(t *testing.T, flags ...string) *cobra.Command {
	t.Helper()
	configFile = ""
	cmd := &cobra.Command{Use: "run"}
	addScenarioFlags(cmd)
	if err := cmd.ParseFlags(flags); err != nil {
		t.Fatal(err)
	}
	return cmd
}

func TestScenarioDefaults(t *testing.T) {
	cfg, err := scenario(scenarioCmd(t), nil)
	if err != nil {
		t.Fatal(err)
	}
	want := config.DefaultConfig()
	if cfg.Numerics.TFinal != want.Numerics.TFinal || cfg.Stepper.Stepper != want.Stepper.Stepper {
		t.Errorf("expected defaults, got t_final %g stepper %s", cfg.Numerics.TFinal, cfg.Stepper.Stepper)
	}
}

func TestScenarioFlagsOverridePreset(t *testing.T) {
	cmd := scenarioCmd(t, "--tfinal", "0.2", "--stepper", config.StepperNewtonRaphson, "--nrho", "30")
	cfg, err := scenario(cmd, []string{"iterhybrid_pc"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "iterhybrid_pc" {
		t.Errorf("expected preset name, got %s", cfg.Name)
	}
	if cfg.Numerics.TFinal != 0.2 || cfg.Geometry.NRho != 30 {
		t.Errorf("flags not applied: t_final %g nrho %d", cfg.Numerics.TFinal, cfg.Geometry.NRho)
	}
	if cfg.Stepper.Stepper != config.StepperNewtonRaphson {
		t.Errorf("expected newton stepper, got %s", cfg.Stepper.Stepper)
	}
	// untouched preset values survive
	if !cfg.Numerics.DensEq || cfg.Transport.Model != "critical_gradient" {
		t.Error("preset values were lost")
	}
}

func TestScenarioConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	c := config.DefaultConfig()
	c.Name = "from_file"
	c.Numerics.TFinal = 0.7
	if err := config.Save(path, c); err != nil {
		t.Fatal(err)
	}

	cmd := scenarioCmd(t)
	configFile = path
	defer func() { configFile = "" }()

	cfg, err := scenario(cmd, nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "from_file" || cfg.Numerics.TFinal != 0.7 {
		t.Errorf("config file not applied: %s %g", cfg.Name, cfg.Numerics.TFinal)
	}
}

func TestScenarioUnknownPreset(t *testing.T) {
	if _, err := scenario(scenarioCmd(t), []string{"jet"}); !errors.Is(err, config.ErrUnknownPreset) {
		t.Errorf("expected ErrUnknownPreset, got %v", err)
	}
}

func TestSetup(t *testing.T) {
	logger = zap.NewNop()
	cfg := config.DefaultConfig()
	if _, err := setup(cfg); err != nil {
		t.Fatal(err)
	}
	cfg.Transport.Model = "tglf"
	if _, err := setup(cfg); err == nil {
		t.Error("expected an unknown transport model error")
	}
}
