package sim

import (
	"math"

	"github.com/san-kum/torasim/internal/config"
	"github.com/san-kum/torasim/internal/geometry"
)

// timeEps absorbs rounding when the last step lands on t_final.
const timeEps = 1e-10

// TimeStep returns the step for time t: fixed_dt when set, otherwise
// dtmult times the explicit diffusion limit of the largest heat
// diffusivity. The result never exceeds maxdt or the time left.
func TimeStep(n config.NumericsConfig, geo *geometry.Geometry, chiMax, t float64) float64 {
	dt := n.FixedDt
	if dt <= 0 {
		dx := geo.Dr * geo.Rmin
		dt = n.DtMult * dx * dx / (2 * math.Max(chiMax, 1e-12))
	}
	dt = math.Min(dt, n.MaxDt)
	return math.Min(dt, n.TFinal-t)
}
