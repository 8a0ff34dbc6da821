package coeffs

import (
	"math"

	"github.com/san-kum/torasim/internal/config"
	"github.com/san-kum/torasim/internal/fvm"
	"github.com/san-kum/torasim/internal/plasma"
	"github.com/san-kum/torasim/internal/sources"
)

// Boundary returns the face constraints of channel c at the time of s.
// Every channel has zero gradient on the axis. The edge holds the boundary
// temperatures and density, and psi carries the plasma current through its
// edge gradient.
func Boundary(c plasma.Channel, s *config.Slice) fvm.Boundary {
	switch c {
	case plasma.TempIon:
		return fvm.DefaultBoundary(s.TiBoundRight)
	case plasma.TempEl:
		return fvm.DefaultBoundary(s.TeBoundRight)
	case plasma.Ne:
		return fvm.DefaultBoundary(s.NeBoundRight)
	default:
		return fvm.Boundary{Left: fvm.Neumann(0), Right: fvm.Neumann(PsiEdgeGradient(s.Ip))}
	}
}

// PsiEdgeGradient is d(psi)/d(rho) at the edge for a plasma current ip in MA.
func PsiEdgeGradient(ip float64) float64 {
	return sources.Mu0 * ip * 1e6 / (2 * math.Pi)
}

// BoundaryUpdateFns returns one update function per channel that refreshes
// the face constraints for the time of s.
func BoundaryUpdateFns(s *config.Slice, channels []plasma.Channel) []fvm.UpdateFn {
	fns := make([]fvm.UpdateFn, len(channels))
	for i, c := range channels {
		b := Boundary(c, s)
		fns[i] = func(v fvm.CellVariable) fvm.CellVariable {
			return v.WithBoundary(b)
		}
	}
	return fns
}

// UpdateBoundaries refreshes every channel of p, including the frozen ones,
// for the time of s.
func UpdateBoundaries(p plasma.CoreProfiles, s *config.Slice) plasma.CoreProfiles {
	for _, c := range plasma.AllChannels {
		p = p.With(c, p.Get(c).WithBoundary(Boundary(c, s)))
	}
	return p
}
