package optim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/torasim/internal/config"
	"github.com/san-kum/torasim/internal/sim"
)

var ErrMissingMetric = errors.New("optim: metric not recorded")

// GridSearch scans the cartesian product of parameter ranges.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("optim: %d parameters but %d ranges", len(params), len(ranges))
	}
	for i, name := range params {
		if _, ok := Parameters[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownParameter, name)
		}
		if len(ranges[i]) == 0 {
			return nil, fmt.Errorf("optim: empty range for %s", name)
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Points lists every parameter combination, the last parameter varying
// fastest.
func (g *GridSearch) Points() []map[string]float64 {
	points := []map[string]float64{{}}
	for i, name := range g.paramNames {
		next := make([]map[string]float64, 0, len(points)*len(g.ranges[i]))
		for _, p := range points {
			for _, v := range g.ranges[i] {
				q := make(map[string]float64, len(p)+1)
				for k, x := range p {
					q[k] = x
				}
				q[name] = v
				next = append(next, q)
			}
		}
		points = next
	}
	return points
}

// Point is one evaluated combination.
type Point struct {
	Params map[string]float64
	Value  float64
	Result *sim.Result
}

type Outcome struct {
	Best   Point
	Points []Point
}

// Search runs every point on the ensemble and picks the one with the
// smallest metric, or the largest when maximize is set.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, ens *sim.Ensemble, metric string, maximize bool) (*Outcome, error) {
	points := g.Points()
	cfgs := make([]*config.Config, len(points))
	for i, p := range points {
		cfg, err := Apply(base, p)
		if err != nil {
			return nil, err
		}
		cfg.Name = fmt.Sprintf("%s_%d", base.Name, i)
		cfgs[i] = cfg
	}

	results, err := ens.Run(ctx, cfgs)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Points: make([]Point, len(points))}
	best := math.Inf(1)
	for i, r := range results {
		val, ok := r.Metrics[metric]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingMetric, metric)
		}
		out.Points[i] = Point{Params: points[i], Value: val, Result: r}
		score := val
		if maximize {
			score = -val
		}
		if score < best {
			best = score
			out.Best = out.Points[i]
		}
	}
	return out, nil
}
