package solver

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// solveLinear solves a·x = b. Ill-conditioning is logged; an exactly
// singular matrix is an error.
func solveLinear(a *mat.Dense, b []float64, logger *zap.Logger) ([]float64, error) {
	var x mat.VecDense
	err := x.SolveVec(a, mat.NewVecDense(len(b), clone(b)))
	if err != nil {
		if errors.Is(err, mat.ErrSingular) {
			return nil, ErrSingularJacobian
		}
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("linear solve: %w", err)
		}
		if c := float64(cond); math.IsInf(c, 0) || math.IsNaN(c) {
			return nil, fmt.Errorf("%w: condition number %g", ErrSingularJacobian, c)
		}
		logger.Warn("Ill-conditioned linear system", zap.Float64("condition", float64(cond)))
	}
	return clone(x.RawVector().Data), nil
}
