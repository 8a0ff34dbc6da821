package sim

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/torasim/internal/config"
	"github.com/san-kum/torasim/internal/geometry"
)

// Ensemble runs independent scenarios concurrently, one simulator per
// scenario. Runs share nothing, so a scan over parameters needs no locking.
type Ensemble struct {
	build   func(cfg *config.Config) (*Simulator, error)
	workers int
}

// NewEnsemble runs at most workers scenarios at a time; zero or less uses
// GOMAXPROCS.
func NewEnsemble(build func(cfg *config.Config) (*Simulator, error), workers int) *Ensemble {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Ensemble{build: build, workers: workers}
}

// Run simulates every configuration from its initial profiles. Results are
// in the order of cfgs. The first failure cancels the remaining runs.
func (e *Ensemble) Run(ctx context.Context, cfgs []*config.Config) ([]*Result, error) {
	results := make([]*Result, len(cfgs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, cfg := range cfgs {
		g.Go(func() error {
			s, err := e.build(cfg)
			if err != nil {
				return err
			}
			geo, err := geometry.FromConfig(cfg.Geometry)
			if err != nil {
				return err
			}
			initial, err := InitialProfiles(cfg, geo)
			if err != nil {
				return err
			}
			results[i], err = s.Run(ctx, initial, cfg)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
