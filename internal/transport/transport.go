// Package transport computes turbulent transport coefficients on the face
// grid: ion and electron heat diffusivities and electron particle
// diffusivity and convection velocity.
package transport

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/torasim/internal/config"
	"github.com/san-kum/torasim/internal/geometry"
	"github.com/san-kum/torasim/internal/plasma"
)

var ErrUnknownModel = errors.New("transport: unknown model")

// Coeffs are face-grid transport coefficients in m^2/s and m/s.
type Coeffs struct {
	ChiFaceIon []float64
	ChiFaceEl  []float64
	DFaceEl    []float64
	VFaceEl    []float64
}

// Model computes transport coefficients for a profile state.
type Model interface {
	Name() string
	Coeffs(p plasma.CoreProfiles, geo *geometry.Geometry, s *config.Slice) Coeffs
}

// New returns the model named by name.
func New(name string) (Model, error) {
	switch name {
	case "constant":
		return Constant{}, nil
	case "critical_gradient":
		return CriticalGradient{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
}

// Constant uses the fixed coefficients of the configuration.
type Constant struct{}

func (Constant) Name() string { return "constant" }

func (Constant) Coeffs(p plasma.CoreProfiles, geo *geometry.Geometry, s *config.Slice) Coeffs {
	t := s.Transport
	n := len(geo.RhoFace)
	c := Coeffs{
		ChiFaceIon: fill(n, t.ChiI),
		ChiFaceEl:  fill(n, t.ChiE),
		DFaceEl:    fill(n, t.De),
		VFaceEl:    fill(n, t.Ve),
	}
	return postprocess(c, geo, t)
}

// CriticalGradient is a stiff model: heat diffusivity rises steeply once
// the normalized temperature gradient R/L_T exceeds a threshold. Particle
// transport follows the electron heat diffusivity.
type CriticalGradient struct{}

func (CriticalGradient) Name() string { return "critical_gradient" }

func (CriticalGradient) Coeffs(p plasma.CoreProfiles, geo *geometry.Geometry, s *config.Slice) Coeffs {
	t := s.Transport
	c := Coeffs{
		ChiFaceIon: stiffChi(p.TempIon.FaceValue(), p.TempIon.FaceGrad(), geo, t),
		ChiFaceEl:  stiffChi(p.TempEl.FaceValue(), p.TempEl.FaceGrad(), geo, t),
	}
	n := len(geo.RhoFace)
	c.DFaceEl = make([]float64, n)
	c.VFaceEl = make([]float64, n)
	for i, chi := range c.ChiFaceEl {
		c.DFaceEl[i] = t.DeOverChi * chi
		c.VFaceEl[i] = t.VeOverDe * c.DFaceEl[i] * geo.RhoFace[i]
	}
	return postprocess(c, geo, t)
}

func stiffChi(face, grad []float64, geo *geometry.Geometry, t config.TransportConfig) []float64 {
	chi := make([]float64, len(face))
	for i := range face {
		rlt := -geo.Rmaj * grad[i] / (geo.Rmin * math.Max(face[i], 1e-3))
		chi[i] = t.ChiMin + t.ChiStiff*math.Pow(math.Max(0, rlt-t.RLTCrit), t.Alpha)
	}
	return chi
}

// postprocess clips the coefficients to their configured ranges and applies
// the inner patch.
func postprocess(c Coeffs, geo *geometry.Geometry, t config.TransportConfig) Coeffs {
	clip(c.ChiFaceIon, t.ChiMin, t.ChiMax)
	clip(c.ChiFaceEl, t.ChiMin, t.ChiMax)
	clip(c.DFaceEl, t.DeMin, t.DeMax)
	clip(c.VFaceEl, t.VeMin, t.VeMax)
	if t.ApplyInnerPatch {
		for i, rho := range geo.RhoFace {
			if rho >= t.RhoInner {
				break
			}
			c.ChiFaceIon[i] = t.ChiiInner
			c.ChiFaceEl[i] = t.ChieInner
			c.DFaceEl[i] = t.DeInner
			c.VFaceEl[i] = t.VeInner
		}
	}
	return c
}

// ChiMax returns the largest heat diffusivity, used to size the time step.
func (c Coeffs) ChiMax() float64 {
	m := 0.0
	for _, v := range c.ChiFaceIon {
		m = math.Max(m, v)
	}
	for _, v := range c.ChiFaceEl {
		m = math.Max(m, v)
	}
	return m
}

func clip(v []float64, lo, hi float64) {
	for i, x := range v {
		v[i] = math.Min(math.Max(x, lo), hi)
	}
}

func fill(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
