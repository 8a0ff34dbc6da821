package solver

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("step search", func() {
	alwaysNaN := func([]float64) float64 { return math.NaN() }

	It("accepts a step that reduces the residual", func() {
		trial := func(x []float64) float64 { return math.Abs(x[0] - 1) }
		s := searchStep(trial, []float64{0}, []float64{1}, 1, 0.5)
		Expect(s.tau).To(Equal(1.0))
		Expect(s.next()).To(Equal([]float64{1}))
	})

	It("halves until the step becomes negligible when every trial is NaN", func() {
		s := searchStep(alwaysNaN, []float64{0}, []float64{1}, 1, 0.5)
		Expect(s.tau).To(Equal(math.Pow(0.5, 10)))
		Expect(s.delta[0]).To(Equal(s.tau))
	})

	It("keeps tau in (0, 1] and never increases it", func() {
		var taus []float64
		delta := []float64{3, -2}
		trial := func(x []float64) float64 {
			taus = append(taus, x[0]/delta[0])
			return math.NaN()
		}
		s := searchStep(trial, []float64{0, 0}, delta, 0, 0.5)
		Expect(s.tau).To(BeNumerically(">", 0))
		Expect(s.tau).To(BeNumerically("<=", 1))
		for i := 1; i < len(taus); i++ {
			Expect(taus[i]).To(BeNumerically("<", taus[i-1]))
		}
		Expect(delta).To(Equal([]float64{3, -2}), "input delta must not be modified")
	})

	It("does not shrink when the largest component is below the threshold", func() {
		calls := 0
		trial := func([]float64) float64 { calls++; return math.Inf(1) }
		s := searchStep(trial, []float64{5}, []float64{-4}, 0, 0.5)
		Expect(s.tau).To(Equal(1.0))
		Expect(calls).To(Equal(0))
	})

	It("stops shrinking once the residual no longer grows", func() {
		// residual grows for steps longer than 0.3
		trial := func(x []float64) float64 {
			if x[0] > 0.3 {
				return 10
			}
			return 0.5
		}
		s := searchStep(trial, []float64{0}, []float64{1}, 1, 0.5)
		Expect(s.tau).To(Equal(0.25))
	})
})
