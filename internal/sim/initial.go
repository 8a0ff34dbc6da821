package sim

import (
	"github.com/san-kum/torasim/internal/coeffs"
	"github.com/san-kum/torasim/internal/config"
	"github.com/san-kum/torasim/internal/fvm"
	"github.com/san-kum/torasim/internal/geometry"
	"github.com/san-kum/torasim/internal/plasma"
)

// InitialProfiles builds the starting state at t_initial: temperatures
// linear between the axis and edge values, a parabolic density and the
// flux of a uniform-like current carrying Ip.
func InitialProfiles(cfg *config.Config, geo *geometry.Geometry) (plasma.CoreProfiles, error) {
	s := cfg.SliceAt(cfg.Numerics.TInitial)
	p := cfg.Profiles

	n := geo.NRho
	ti := make([]float64, n)
	te := make([]float64, n)
	ne := make([]float64, n)
	psi := make([]float64, n)
	c := coeffs.PsiEdgeGradient(s.Ip)
	for i, rho := range geo.RhoCell {
		ti[i] = p.TiBoundLeft + (s.TiBoundRight-p.TiBoundLeft)*rho
		te[i] = p.TeBoundLeft + (s.TeBoundRight-p.TeBoundLeft)*rho
		ne[i] = s.NeBoundRight + (p.Ne0-s.NeBoundRight)*(1-rho*rho)
		psi[i] = c * (rho*rho - rho*rho*rho*rho/4)
	}

	vars := make(map[plasma.Channel]fvm.CellVariable, len(plasma.AllChannels))
	for c, v := range map[plasma.Channel][]float64{
		plasma.TempIon: ti,
		plasma.TempEl:  te,
		plasma.Ne:      ne,
		plasma.Psi:     psi,
	} {
		cv, err := fvm.NewCellVariable(v, geo.Dr, coeffs.Boundary(c, s))
		if err != nil {
			return plasma.CoreProfiles{}, err
		}
		vars[c] = cv
	}

	dil := s.Dilution()
	prof := plasma.CoreProfiles{
		TempIon:  vars[plasma.TempIon],
		TempEl:   vars[plasma.TempEl],
		Ne:       vars[plasma.Ne],
		Ni:       plasma.IonDensity(vars[plasma.Ne], dil),
		Psi:      vars[plasma.Psi],
		Dilution: dil,
	}
	return prof, prof.Validate()
}

// EvolvingChannels lists the channels enabled in n, in solver order.
func EvolvingChannels(n config.NumericsConfig) []plasma.Channel {
	var out []plasma.Channel
	for _, c := range plasma.AllChannels {
		switch {
		case c == plasma.TempIon && n.IonHeatEq,
			c == plasma.TempEl && n.ElHeatEq,
			c == plasma.Psi && n.CurrentEq,
			c == plasma.Ne && n.DensEq:
			out = append(out, c)
		}
	}
	return out
}
