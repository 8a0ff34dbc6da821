package solver

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/torasim/internal/config"
	"github.com/san-kum/torasim/internal/fvm"
)

var _ = Describe("Linear", func() {
	It("solves the linear decay step exactly", func() {
		l, err := NewLinear(DefaultOptions())
		Expect(err).NotTo(HaveOccurred())

		res, err := l.Step(Problem{XOld: scalar(1), Dt: 1, Callback: decay})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Error).To(Equal(0))
		Expect(res.X[0].At(0)).To(BeNumerically("~", 0.5, 1e-12))
		Expect(res.Iterations).To(Equal(2))
	})

	It("reports a singular sweep as a failed step", func() {
		l, err := NewLinear(DefaultOptions())
		Expect(err).NotTo(HaveOccurred())

		res, err := l.Step(Problem{XOld: scalar(1), Dt: 1, Callback: growth})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Error).To(Equal(1))
		Expect(res.X[0].At(0)).To(Equal(1.0))

		res, err = l.Step(Problem{XOld: scalar(1), Dt: 0.5, Callback: growth})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Error).To(Equal(0))
		Expect(res.X[0].At(0)).To(BeNumerically("~", 2, 1e-12))
	})

	It("accepts a fully explicit theta", func() {
		opts := DefaultOptions()
		opts.ThetaImp = 0
		l, err := NewLinear(opts)
		Expect(err).NotTo(HaveOccurred())

		// forward Euler: x = x_old + dt * (-x_old)
		res, err := l.Step(Problem{XOld: scalar(1), Dt: 0.25, Callback: decay})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.X[0].At(0)).To(BeNumerically("~", 0.75, 1e-12))
	})

	It("runs one sweep without the predictor-corrector", func() {
		sweeps := 0
		counting := CoeffsCallbackFunc(func(x []fvm.CellVariable, s *config.Slice, allow bool) (fvm.Block1DCoeffs, error) {
			sweeps++
			return cubic(x, s, allow)
		})
		opts := DefaultOptions()
		opts.PredictorCorrector = false
		opts.CorrectorSteps = 5
		l, err := NewLinear(opts)
		Expect(err).NotTo(HaveOccurred())

		res, err := l.Step(Problem{XOld: scalar(0.5), Dt: 0.1, Callback: counting})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Iterations).To(Equal(1))
		// explicit coefficients plus one sweep
		Expect(sweeps).To(Equal(2))
	})

	It("moves a nonlinear problem closer with more corrector steps", func() {
		step := func(corrector int) float64 {
			opts := DefaultOptions()
			opts.CorrectorSteps = corrector
			l, err := NewLinear(opts)
			Expect(err).NotTo(HaveOccurred())
			res, err := l.Step(Problem{XOld: scalar(0.5), Dt: 0.5, Callback: cubic})
			Expect(err).NotTo(HaveOccurred())
			return res.X[0].At(0)
		}

		n, err := NewNewton(options(fvm.InitialGuessXOld))
		Expect(err).NotTo(HaveOccurred())
		exact, err := n.Step(Problem{XOld: scalar(0.5), Dt: 0.5, Callback: cubic})
		Expect(err).NotTo(HaveOccurred())
		target := exact.X[0].At(0)

		errFew := step(0) - target
		errMany := step(6) - target
		Expect(errMany * errMany).To(BeNumerically("<", errFew*errFew))
	})
})
