package config

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// TimeSeries is a time-dependent scalar. It is piecewise linear between its
// points and constant outside them. In YAML it is either a plain number or a
// mapping from time to value.
type TimeSeries struct {
	times  []float64
	values []float64
}

// Constant returns a series that is v at all times.
func Constant(v float64) TimeSeries {
	return TimeSeries{times: []float64{0}, values: []float64{v}}
}

// NewTimeSeries builds a series from time/value points.
func NewTimeSeries(points map[float64]float64) TimeSeries {
	ts := TimeSeries{}
	for t := range points {
		ts.times = append(ts.times, t)
	}
	sort.Float64s(ts.times)
	ts.values = make([]float64, len(ts.times))
	for i, t := range ts.times {
		ts.values[i] = points[t]
	}
	return ts
}

// At evaluates the series at t. An empty series is zero.
func (ts TimeSeries) At(t float64) float64 {
	n := len(ts.times)
	switch {
	case n == 0:
		return 0
	case t <= ts.times[0]:
		return ts.values[0]
	case t >= ts.times[n-1]:
		return ts.values[n-1]
	}
	i := sort.SearchFloat64s(ts.times, t)
	if ts.times[i] == t {
		return ts.values[i]
	}
	t0, t1 := ts.times[i-1], ts.times[i]
	w := (t - t0) / (t1 - t0)
	return ts.values[i-1] + w*(ts.values[i]-ts.values[i-1])
}

// Len returns the number of points.
func (ts TimeSeries) Len() int { return len(ts.times) }

func (ts *TimeSeries) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v float64
		if err := node.Decode(&v); err != nil {
			return fmt.Errorf("time series: %w", err)
		}
		*ts = Constant(v)
		return nil
	case yaml.MappingNode:
		points := map[float64]float64{}
		if err := node.Decode(&points); err != nil {
			return fmt.Errorf("time series: %w", err)
		}
		if len(points) == 0 {
			return fmt.Errorf("time series: empty mapping at line %d", node.Line)
		}
		*ts = NewTimeSeries(points)
		return nil
	default:
		return fmt.Errorf("time series: expected number or mapping at line %d", node.Line)
	}
}

func (ts TimeSeries) MarshalYAML() (interface{}, error) {
	switch len(ts.times) {
	case 0:
		return 0.0, nil
	case 1:
		return ts.values[0], nil
	}
	points := make(map[float64]float64, len(ts.times))
	for i, t := range ts.times {
		points[t] = ts.values[i]
	}
	return points, nil
}
