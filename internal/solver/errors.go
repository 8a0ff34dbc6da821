package solver

import "errors"

var (
	ErrExplicitTheta    = errors.New("solver: theta_imp = 0 needs no Newton iteration, use the linear stepper")
	ErrSingularJacobian = errors.New("solver: singular linear system")
	ErrInvalidOptions   = errors.New("solver: invalid options")
	ErrNilCallback      = errors.New("solver: nil coefficient callback")
)
