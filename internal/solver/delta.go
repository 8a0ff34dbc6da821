package solver

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// deltaState is owned by the step search of a single Newton iteration.
type deltaState struct {
	x     []float64
	delta []float64
	tau   float64
}

// searchStep shrinks the Newton step delta from x until the trial residual
// is finite and no larger than oldResidual, or until the largest component
// of delta is at most MinDelta. trial evaluates the residual scalar without
// sanity checks, returning NaN for states it cannot evaluate.
//
// delta must be finite; the number of reductions is then bounded by
// log(max(delta)/MinDelta) / log(1/factor) + 1.
func searchStep(trial func([]float64) float64, x, delta []float64, oldResidual, factor float64) deltaState {
	s := deltaState{x: x, delta: clone(delta), tau: 1}
	for s.shrink(trial, oldResidual) {
		floats.Scale(factor, s.delta)
		s.tau *= factor
	}
	return s
}

func (s deltaState) shrink(trial func([]float64) float64, oldResidual float64) bool {
	if floats.Max(s.delta) <= MinDelta {
		return false
	}
	r := trial(s.next())
	return r > oldResidual || math.IsNaN(r)
}

func (s deltaState) next() []float64 {
	return floats.AddTo(make([]float64, len(s.x)), s.x, s.delta)
}

func clone(v []float64) []float64 {
	c := make([]float64, len(v))
	copy(c, v)
	return c
}
