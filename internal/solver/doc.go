// Package solver advances a block of coupled 1-D transport equations by one
// time step.
//
// NewtonRaphson iterates on the theta-method residual of package fvm with a
// finite-difference Jacobian and a backtracking step search. Linear runs a
// fixed number of predictor-corrector sweeps of the linearized system and is
// also used as the LINEAR initial guess for Newton.
//
// Neither stepper retries with a smaller time step. A step that does not
// reach tolerance is reported through Result.Error and left to the caller.
package solver
