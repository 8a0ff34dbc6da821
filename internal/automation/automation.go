package automation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sort"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/torasim/internal/config"
	"github.com/san-kum/torasim/internal/optim"
	"github.com/san-kum/torasim/internal/sim"
)

var ErrEmptyCampaign = errors.New("automation: campaign has no runs")

// Campaign is a YAML list of runs executed together.
type Campaign struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Runs        []CampaignRun `yaml:"runs"`
}

// CampaignRun starts from a preset or a config file (the file wins) and
// applies Set on top.
type CampaignRun struct {
	Name   string             `yaml:"name"`
	Preset string             `yaml:"preset"`
	Config string             `yaml:"config"`
	Set    map[string]float64 `yaml:"set"`
}

func LoadCampaign(path string) (*Campaign, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Campaign
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &c, nil
}

// Configs resolves every run into a validated configuration.
func (c *Campaign) Configs() ([]*config.Config, error) {
	if len(c.Runs) == 0 {
		return nil, ErrEmptyCampaign
	}
	cfgs := make([]*config.Config, len(c.Runs))
	for i, run := range c.Runs {
		base := config.DefaultConfig()
		var err error
		switch {
		case run.Config != "":
			base, err = config.Load(run.Config)
		case run.Preset != "":
			base, err = config.GetPreset(run.Preset)
		}
		if err != nil {
			return nil, fmt.Errorf("run %d: %w", i+1, err)
		}
		cfg, err := optim.Apply(base, run.Set)
		if err != nil {
			return nil, fmt.Errorf("run %d: %w", i+1, err)
		}
		if run.Name != "" {
			cfg.Name = run.Name
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("run %d: %w", i+1, err)
		}
		cfgs[i] = cfg
	}
	return cfgs, nil
}

// RunCampaign resolves and runs the campaign on the ensemble.
func RunCampaign(ctx context.Context, c *Campaign, ens *sim.Ensemble, logger *zap.Logger) ([]*config.Config, []*sim.Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfgs, err := c.Configs()
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Running campaign", zap.String("name", c.Name), zap.Int("runs", len(cfgs)))
	results, err := ens.Run(ctx, cfgs)
	if err != nil {
		return nil, nil, err
	}
	return cfgs, results, nil
}

// Sweep returns n copies of base with param spaced linearly over
// [lo, hi].
func Sweep(base *config.Config, param string, lo, hi float64, n int) ([]*config.Config, error) {
	if n < 1 {
		return nil, fmt.Errorf("automation: sweep needs at least one point, got %d", n)
	}
	cfgs := make([]*config.Config, n)
	for i := range cfgs {
		v := lo
		if n > 1 {
			v = lo + float64(i)*(hi-lo)/float64(n-1)
		}
		cfg, err := optim.Apply(base, map[string]float64{param: v})
		if err != nil {
			return nil, err
		}
		cfg.Name = fmt.Sprintf("%s_%s_%d", base.Name, param, i)
		cfgs[i] = cfg
	}
	return cfgs, nil
}

// MonteCarlo returns trials copies of base with every named parameter
// scaled by a uniform factor in [1-spread, 1+spread]. Nominal values come
// from nominal. A zero seed is replaced by 1 so runs are reproducible.
func MonteCarlo(base *config.Config, nominal map[string]float64, spread float64, trials int, seed int64) ([]*config.Config, []map[string]float64, error) {
	if seed == 0 {
		seed = 1
	}
	rng := rand.New(rand.NewSource(seed))

	names := make([]string, 0, len(nominal))
	for name := range nominal {
		names = append(names, name)
	}
	sort.Strings(names)

	cfgs := make([]*config.Config, trials)
	draws := make([]map[string]float64, trials)
	for trial := range cfgs {
		draw := make(map[string]float64, len(names))
		for _, name := range names {
			draw[name] = nominal[name] * (1 + (2*rng.Float64()-1)*spread)
		}
		cfg, err := optim.Apply(base, draw)
		if err != nil {
			return nil, nil, err
		}
		cfg.Name = fmt.Sprintf("%s_mc%d", base.Name, trial)
		cfgs[trial], draws[trial] = cfg, draw
	}
	return cfgs, draws, nil
}
