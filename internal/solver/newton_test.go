package solver

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/san-kum/torasim/internal/config"
	"github.com/san-kum/torasim/internal/fvm"
)

var _ = Describe("Newton", func() {
	Describe("construction", func() {
		It("rejects a fully explicit theta", func() {
			opts := DefaultOptions()
			opts.ThetaImp = 0
			_, err := NewNewton(opts)
			Expect(err).To(MatchError(ErrExplicitTheta))
		})

		It("rejects an unknown initial guess mode", func() {
			opts := DefaultOptions()
			opts.InitialGuess = fvm.InitialGuessMode(7)
			_, err := NewNewton(opts)
			Expect(errors.Is(err, fvm.ErrUnknownInitialGuess)).To(BeTrue())
		})

		DescribeTable("rejects out of range settings",
			func(modify func(*Options)) {
				opts := DefaultOptions()
				modify(&opts)
				_, err := NewNewton(opts)
				Expect(errors.Is(err, ErrInvalidOptions)).To(BeTrue())
			},
			Entry("negative maxiter", func(o *Options) { o.MaxIter = -1 }),
			Entry("zero tol", func(o *Options) { o.Tol = 0 }),
			Entry("reduction factor of one", func(o *Options) { o.DeltaReductionFactor = 1 }),
			Entry("tau_min above one", func(o *Options) { o.TauMin = 1.5 }),
			Entry("theta above one", func(o *Options) { o.ThetaImp = 2 }),
		)
	})

	Describe("decay equation", func() {
		var p Problem

		BeforeEach(func() {
			p = Problem{XOld: scalar(1), Dt: 1, Callback: decay}
		})

		It("converges to x = 0.5 from x_old", func() {
			res, err := mustNewton(options(fvm.InitialGuessXOld)).Step(p)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Error).To(Equal(0))
			Expect(res.X[0].At(0)).To(BeNumerically("~", 0.5, 1e-6))
			Expect(res.Iterations).To(Equal(1))
			Expect(res.LastTau).To(Equal(1.0))
			Expect(res.Aux["x"][0]).To(BeNumerically("~", 0.5, 1e-6))
		})

		It("needs no iteration from the linear guess", func() {
			res, err := mustNewton(options(fvm.InitialGuessLinear)).Step(p)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Error).To(Equal(0))
			Expect(res.Iterations).To(Equal(0))
			Expect(res.X[0].At(0)).To(BeNumerically("~", 0.5, 1e-12))
		})

		It("solves Crank-Nicolson", func() {
			opts := options(fvm.InitialGuessXOld)
			opts.ThetaImp = 0.5
			res, err := mustNewton(opts).Step(p)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Error).To(Equal(0))
			Expect(res.X[0].At(0)).To(BeNumerically("~", 1.0/3, 1e-6))
		})

		It("returns the initial guess unchanged when maxiter is zero", func() {
			opts := options(fvm.InitialGuessXOld)
			opts.MaxIter = 0
			res, err := mustNewton(opts).Step(p)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Error).To(Equal(1))
			Expect(res.Iterations).To(Equal(0))
			Expect(res.X[0].At(0)).To(Equal(1.0))
		})

		It("fails without iterating when tau_min is one", func() {
			opts := options(fvm.InitialGuessXOld)
			opts.TauMin = 1
			res, err := mustNewton(opts).Step(p)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Error).To(Equal(1))
			Expect(res.Iterations).To(Equal(0))
			Expect(res.LastTau).To(Equal(1.0))
		})

		It("applies the boundary update functions to the output", func() {
			p.UpdateFns = []fvm.UpdateFn{func(v fvm.CellVariable) fvm.CellVariable {
				return v.WithBoundary(fvm.DefaultBoundary(9))
			}}
			res, err := mustNewton(options(fvm.InitialGuessXOld)).Step(p)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.X[0].Boundary().Right.Value).To(Equal(9.0))
			Expect(p.XOld[0].Boundary().Right.Value).To(Equal(0.0))
		})
	})

	Describe("a state already at steady state", func() {
		It("performs zero iterations and returns the input values", func() {
			p := Problem{XOld: scalar(1), Dt: 0.1, Callback: cubic}
			res, err := mustNewton(options(fvm.InitialGuessXOld)).Step(p)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Error).To(Equal(0))
			Expect(res.Iterations).To(Equal(0))
			Expect(res.X[0].Value()).To(Equal([]float64{1}))
		})
	})

	Describe("a nonlinear source", func() {
		var (
			logs *observer.ObservedLogs
			opts Options
			p    Problem
		)

		BeforeEach(func() {
			var core zapcore.Core
			core, logs = observer.New(zap.InfoLevel)
			opts = options(fvm.InitialGuessXOld)
			opts.LogIterations = true
			opts.Logger = zap.New(core)
			p = Problem{XOld: scalar(0.5), Dt: 1e6, Callback: cubic}
		})

		It("converges to the steady state", func() {
			res, err := mustNewton(opts).Step(p)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Error).To(Equal(0))
			Expect(res.X[0].At(0)).To(BeNumerically("~", 1, 1e-5))
			Expect(res.Iterations).To(BeNumerically(">", 1))
		})

		It("stops once a shrunken step brings last tau to tau_min", func() {
			opts.TauMin = 0.6
			res, err := mustNewton(opts).Step(p)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Error).To(Equal(1))
			Expect(res.Iterations).To(Equal(1))
			Expect(res.LastTau).To(Equal(0.5))
			Expect(res.Residual).To(BeNumerically(">", opts.Tol))
		})

		It("never increases the residual across accepted steps", func() {
			_, err := mustNewton(opts).Step(p)
			Expect(err).NotTo(HaveOccurred())

			entries := logs.FilterMessageSnippet("Iteration: ").All()
			Expect(len(entries)).To(BeNumerically(">", 2))
			prev := math.Inf(1)
			for _, e := range entries {
				r := e.ContextMap()["residual"].(float64)
				Expect(r).To(BeNumerically("<=", prev))
				prev = r
			}
			Expect(entries[0].Message).To(HavePrefix("Iteration: 0. Residual: "))
			Expect(entries[0].Message).To(ContainSubstring("dt = 1000000.000000"))
			Expect(entries[0].ContextMap()).To(HaveKey("dt"))
			Expect(entries[1].Message).To(MatchRegexp(`^Iteration: 1\. Residual: \d+\.\d{16}\. tau = \d\.\d{6}$`))
			Expect(entries[1].ContextMap()).To(HaveKey("tau"))
		})

		It("is idempotent on its converged output", func() {
			first, err := mustNewton(opts).Step(p)
			Expect(err).NotTo(HaveOccurred())

			again := Problem{XOld: first.X, Dt: p.Dt, Callback: cubic}
			second, err := mustNewton(opts).Step(again)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Error).To(Equal(0))
			Expect(second.X[0].At(0)).To(BeNumerically("~", first.X[0].At(0), 1e-9))
		})

		It("logs nothing when iteration logging is off", func() {
			opts.LogIterations = false
			_, err := mustNewton(opts).Step(p)
			Expect(err).NotTo(HaveOccurred())
			Expect(logs.FilterMessageSnippet("Iteration: ").Len()).To(Equal(0))
		})
	})

	Describe("failure modes", func() {
		It("reports a singular Jacobian as non-convergence", func() {
			core, logs := observer.New(zap.WarnLevel)
			opts := options(fvm.InitialGuessXOld)
			opts.Logger = zap.New(core)
			res, err := mustNewton(opts).Step(Problem{XOld: scalar(1), Dt: 1, Callback: growth})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Error).To(Equal(1))
			Expect(res.Iterations).To(Equal(0))
			Expect(res.LastTau).To(Equal(0.0))
			Expect(res.X[0].At(0)).To(Equal(1.0))
			Expect(logs.FilterMessage("Singular Jacobian").Len()).To(Equal(1))
		})

		It("converges on the same problem with a halved dt", func() {
			res, err := mustNewton(options(fvm.InitialGuessXOld)).Step(Problem{XOld: scalar(1), Dt: 0.5, Callback: growth})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Error).To(Equal(0))
			Expect(res.X[0].At(0)).To(BeNumerically("~", 2, 1e-6))
		})

		It("reports a singular linear initial guess as non-convergence", func() {
			res, err := mustNewton(options(fvm.InitialGuessLinear)).Step(Problem{XOld: scalar(1), Dt: 1, Callback: growth})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Error).To(Equal(1))
			Expect(res.X[0].At(0)).To(Equal(1.0))
		})

		It("propagates callback errors", func() {
			boom := errors.New("boom")
			failing := CoeffsCallbackFunc(func([]fvm.CellVariable, *config.Slice, bool) (fvm.Block1DCoeffs, error) {
				return fvm.Block1DCoeffs{}, boom
			})
			_, err := mustNewton(options(fvm.InitialGuessXOld)).Step(Problem{XOld: scalar(1), Dt: 1, Callback: failing})
			Expect(errors.Is(err, boom)).To(BeTrue())
		})

		It("treats an invalid starting state as non-convergence", func() {
			nan := CoeffsCallbackFunc(func(x []fvm.CellVariable, _ *config.Slice, _ bool) (fvm.Block1DCoeffs, error) {
				return fvm.Block1DCoeffs{
					TransientIn: [][]float64{{1}},
					Source:      [][]float64{{math.NaN()}},
				}, nil
			})
			res, err := mustNewton(options(fvm.InitialGuessXOld)).Step(Problem{XOld: scalar(1), Dt: 1, Callback: nan})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Error).To(Equal(1))
			Expect(res.X[0].At(0)).To(Equal(1.0))
		})

		It("rejects a problem without a callback", func() {
			_, err := mustNewton(DefaultOptions()).Step(Problem{XOld: scalar(1), Dt: 1})
			Expect(err).To(MatchError(ErrNilCallback))
		})

		It("rejects a non-positive dt", func() {
			_, err := mustNewton(DefaultOptions()).Step(Problem{XOld: scalar(1), Callback: decay})
			Expect(errors.Is(err, ErrInvalidOptions)).To(BeTrue())
		})
	})

	It("evaluates the Newton residual without Pereverzev terms", func() {
		var withPer, withoutPer int
		recording := CoeffsCallbackFunc(func(x []fvm.CellVariable, s *config.Slice, allow bool) (fvm.Block1DCoeffs, error) {
			if allow {
				withPer++
			} else {
				withoutPer++
			}
			return decay(x, s, allow)
		})
		opts := options(fvm.InitialGuessLinear)
		opts.CorrectorSteps = 2
		_, err := mustNewton(opts).Step(Problem{XOld: scalar(1), Dt: 1, Callback: recording})
		Expect(err).NotTo(HaveOccurred())
		// one explicit call plus three sweeps
		Expect(withPer).To(Equal(4))
		Expect(withoutPer).To(BeNumerically(">=", 2))
	})
})
