package metrics

import "github.com/san-kum/torasim/internal/sim"

// MeanIterations is the average number of solver iterations per accepted
// step. The initial state is not counted.
type MeanIterations struct {
	name    string
	sum     int
	samples int
}

func NewMeanIterations() *MeanIterations {
	return &MeanIterations{name: "mean_iterations"}
}

func (m *MeanIterations) Name() string { return m.name }

func (m *MeanIterations) Observe(rec sim.StepRecord) {
	if rec.Step == 0 {
		return
	}
	m.sum += rec.Iterations
	m.samples++
}

func (m *MeanIterations) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return float64(m.sum) / float64(m.samples)
}

func (m *MeanIterations) Reset() {
	m.sum = 0
	m.samples = 0
}

// Acceptance is the fraction of solver attempts that were accepted.
type Acceptance struct {
	name     string
	accepted int
	rejected int
}

func NewAcceptance() *Acceptance {
	return &Acceptance{name: "acceptance"}
}

func (a *Acceptance) Name() string { return a.name }

func (a *Acceptance) Observe(rec sim.StepRecord) {
	if rec.Step == 0 {
		return
	}
	a.accepted++
	a.rejected += rec.Rejected
}

func (a *Acceptance) Value() float64 {
	total := a.accepted + a.rejected
	if total == 0 {
		return 1.0
	}
	return float64(a.accepted) / float64(total)
}

func (a *Acceptance) Reset() {
	a.accepted = 0
	a.rejected = 0
}
