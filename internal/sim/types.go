package sim

import (
	"github.com/san-kum/torasim/internal/fvm"
	"github.com/san-kum/torasim/internal/plasma"
	"github.com/san-kum/torasim/internal/solver"
)

// Stepper advances the evolving channels by one time step. Both
// *solver.Newton and *solver.Linear satisfy it.
type Stepper interface {
	Step(p solver.Problem) (*solver.Result, error)
}

// Metric accumulates a scalar over the accepted steps of a run.
type Metric interface {
	Name() string
	Observe(rec StepRecord)
	Value() float64
	Reset()
}

// Observer is notified of every accepted step.
type Observer interface {
	OnStep(rec StepRecord)
}

// StepRecord describes one accepted step. Step 0 is the initial state.
type StepRecord struct {
	Step       int
	Time       float64
	Dt         float64
	Iterations int
	Residual   float64
	// Rejected counts the attempts discarded before this step was accepted.
	Rejected int
	Profiles plasma.CoreProfiles
	Aux      fvm.AuxiliaryOutput
}

// Result is the history of a run.
type Result struct {
	Profiles   []plasma.CoreProfiles
	Times      []float64
	Dts        []float64
	Iterations []int
	Aux        []fvm.AuxiliaryOutput
	Channels   []plasma.Channel
	StepsTaken int
	Rejected   int
	Metrics    map[string]float64
}

func (r *Result) append(rec StepRecord) {
	r.Profiles = append(r.Profiles, rec.Profiles)
	r.Times = append(r.Times, rec.Time)
	r.Dts = append(r.Dts, rec.Dt)
	r.Iterations = append(r.Iterations, rec.Iterations)
	r.Aux = append(r.Aux, rec.Aux)
	r.Rejected += rec.Rejected
}

// Final returns the last recorded profiles.
func (r *Result) Final() plasma.CoreProfiles {
	return r.Profiles[len(r.Profiles)-1]
}
