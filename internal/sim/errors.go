package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrStepTooSmall indicates the time step fell below mindt while
	// retrying a step that would not converge.
	ErrStepTooSmall = errors.New("sim: time step below minimum")

	// ErrNilStepper indicates a simulator built without a stepper or
	// transport model.
	ErrNilStepper = errors.New("sim: missing stepper or transport model")
)

// SimulationError wraps an error with the step it happened in.
type SimulationError struct {
	Step    int
	Time    float64
	Dt      float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d at t=%.6g (dt=%.3g): %v", e.Step, e.Time, e.Dt, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
