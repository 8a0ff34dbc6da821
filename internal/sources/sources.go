// Package sources builds the source and sink profiles of the transport
// equations: auxiliary heating, gas puff and NBI fuelling, externally
// driven current, ion-electron heat exchange and bremsstrahlung.
//
// Heat profiles are returned in W/m^3, particle sources in m^-3/s and
// current densities in A/m^2. EnergyUnit and DensityUnit convert them to
// the normalized units of the evolved profiles.
package sources

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/torasim/internal/config"
	"github.com/san-kum/torasim/internal/geometry"
)

const (
	// DensityUnit is the density normalization in m^-3.
	DensityUnit = 1e20
	// EnergyUnit is the energy density of 1 keV at DensityUnit, in J/m^3.
	EnergyUnit = 1.602176634e-16 * DensityUnit
	// Mu0 is the vacuum permeability.
	Mu0 = 4 * math.Pi * 1e-7

	coulombLog = 17.0
)

// Gaussian returns exp(-(rho-loc)^2 / 2w^2) on the cell grid, scaled so its
// volume integral equals total. A zero total gives a zero profile.
func Gaussian(geo *geometry.Geometry, loc, width, total float64) []float64 {
	shape := make([]float64, geo.NRho)
	for i, rho := range geo.RhoCell {
		shape[i] = math.Exp(-(rho - loc) * (rho - loc) / (2 * width * width))
	}
	return normalize(geo, shape, total)
}

// EdgeExponential decays from the edge inward with length lambda in rho.
func EdgeExponential(geo *geometry.Geometry, lambda, total float64) []float64 {
	shape := make([]float64, geo.NRho)
	for i, rho := range geo.RhoCell {
		shape[i] = math.Exp(-(1 - rho) / lambda)
	}
	return normalize(geo, shape, total)
}

func normalize(geo *geometry.Geometry, shape []float64, total float64) []float64 {
	integral := geo.VolumeIntegral(shape)
	if total == 0 || integral == 0 {
		return make([]float64, len(shape))
	}
	floats.Scale(total/integral, shape)
	return shape
}

// Heating splits the total auxiliary power between ions and electrons.
func Heating(geo *geometry.Geometry, s *config.Slice) (ion, el []float64) {
	src := s.Sources
	total := Gaussian(geo, src.HeatLoc, src.HeatWidth, s.Ptot)
	ion = make([]float64, len(total))
	el = make([]float64, len(total))
	floats.ScaleTo(ion, 1-src.ElHeatFraction, total)
	floats.ScaleTo(el, src.ElHeatFraction, total)
	return ion, el
}

// GasPuff is the edge fuelling source.
func GasPuff(geo *geometry.Geometry, s *config.Slice) []float64 {
	return EdgeExponential(geo, s.Sources.PuffDecayLength, s.SPuffTot)
}

// NBIParticles is the beam fuelling source.
func NBIParticles(geo *geometry.Geometry, s *config.Slice) []float64 {
	return Gaussian(geo, s.Sources.NBILoc, s.Sources.NBIWidth, s.SNBITot)
}

// ExternalCurrent is a Gaussian current density carrying the fraction fext
// of the plasma current through the poloidal cross-section.
func ExternalCurrent(geo *geometry.Geometry, s *config.Slice) []float64 {
	src := s.Sources
	j := make([]float64, geo.NRho)
	area := 0.0
	for i, rho := range geo.RhoCell {
		j[i] = math.Exp(-(rho - src.Rext) * (rho - src.Rext) / (2 * src.Wext * src.Wext))
		area += j[i] * 2 * math.Pi * geo.Rmin * geo.Rmin * rho * geo.Dr
	}
	target := src.Fext * s.Ip * 1e6
	if area == 0 || target == 0 {
		return make([]float64, geo.NRho)
	}
	floats.Scale(target/area, j)
	return j
}

// ExchangeCoefficient returns the ion-electron heat exchange coefficient
// 1.5 ne nu_ei in normalized units (1e20 m^-3 per second). The exchange
// power density into the ions is coef*(Te-Ti)*EnergyUnit.
func ExchangeCoefficient(ne, te []float64, s *config.Slice) []float64 {
	out := make([]float64, len(ne))
	// nu_ei = 2 (me/mi) / tau_e with tau_e from Braginskii.
	scale := 2 * DensityUnit * coulombLog / (1836 * s.Profiles.Ai * 1.09e16)
	for i := range ne {
		nu := scale * ne[i] / math.Pow(te[i], 1.5)
		out[i] = s.Sources.QeiMult * 1.5 * ne[i] * nu
	}
	return out
}

// Bremsstrahlung returns the radiated power density in W/m^3, with ne in
// 1e20 m^-3 and te in keV.
func Bremsstrahlung(ne, te []float64, s *config.Slice) []float64 {
	out := make([]float64, len(ne))
	coef := 5.35e3 * s.Profiles.Zeff * s.Sources.RadiationMult
	for i := range ne {
		out[i] = coef * ne[i] * ne[i] * math.Sqrt(te[i])
	}
	return out
}

// SpitzerConductivity returns the parallel conductivity in S/m for te in keV.
func SpitzerConductivity(te []float64, zeff float64) []float64 {
	out := make([]float64, len(te))
	for i, t := range te {
		out[i] = math.Pow(t, 1.5) / (1.65e-9 * coulombLog * zeff)
	}
	return out
}
