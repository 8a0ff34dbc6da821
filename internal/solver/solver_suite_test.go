package solver

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/torasim/internal/config"
	"github.com/san-kum/torasim/internal/fvm"
)

func TestSolver(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Solver Suite")
}

func fill(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func scalar(v float64) []fvm.CellVariable {
	return []fvm.CellVariable{fvm.MustCellVariable([]float64{v}, 1, fvm.DefaultBoundary(0))}
}

// decay is dx/dt = -x.
var decay = CoeffsCallbackFunc(func(x []fvm.CellVariable, _ *config.Slice, _ bool) (fvm.Block1DCoeffs, error) {
	n := x[0].Len()
	return fvm.Block1DCoeffs{
		TransientIn: [][]float64{fill(n, 1)},
		SourceMat:   [][][]float64{{fill(n, -1)}},
		Aux:         fvm.AuxiliaryOutput{"x": x[0].Value()},
	}, nil
})

// cubic is dx/dt = 1 - x^3, steady at x = 1.
var cubic = CoeffsCallbackFunc(func(x []fvm.CellVariable, _ *config.Slice, _ bool) (fvm.Block1DCoeffs, error) {
	v := x[0].Value()
	mat := make([]float64, len(v))
	for i, xi := range v {
		mat[i] = -xi * xi
	}
	return fvm.Block1DCoeffs{
		TransientIn: [][]float64{fill(len(v), 1)},
		SourceMat:   [][][]float64{{mat}},
		Source:      [][]float64{fill(len(v), 1)},
	}, nil
})

// growth is dx/dt = x. With an implicit step and dt = 1 the Jacobian
// 1 - dt vanishes.
var growth = CoeffsCallbackFunc(func(x []fvm.CellVariable, _ *config.Slice, _ bool) (fvm.Block1DCoeffs, error) {
	n := x[0].Len()
	return fvm.Block1DCoeffs{
		TransientIn: [][]float64{fill(n, 1)},
		SourceMat:   [][][]float64{{fill(n, 1)}},
	}, nil
})

func options(guess fvm.InitialGuessMode) Options {
	opts := DefaultOptions()
	opts.InitialGuess = guess
	return opts
}

func mustNewton(opts Options) *Newton {
	n, err := NewNewton(opts)
	Expect(err).NotTo(HaveOccurred())
	return n
}
