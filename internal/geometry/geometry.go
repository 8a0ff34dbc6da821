// Package geometry builds the radial grid of a circular tokamak
// cross-section.
//
// Radii are normalized: rho runs from 0 on the magnetic axis to 1 at the
// last closed flux surface. Volume factors are per unit normalized radius.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/torasim/internal/config"
)

var ErrInvalidGeometry = errors.New("geometry: invalid geometry")

// Geometry is an immutable uniform grid with n cells and n+1 faces.
type Geometry struct {
	NRho int
	Dr   float64
	Rmaj float64
	Rmin float64
	B0   float64

	RhoCell []float64
	RhoFace []float64

	// Vpr is dV/drho in m^3, on cells and faces.
	Vpr     []float64
	VprFace []float64
	// Volume is the total plasma volume in m^3.
	Volume float64
}

// NewCircular builds a circular geometry with nrho cells.
func NewCircular(nrho int, rmaj, rmin, b0 float64) (*Geometry, error) {
	if nrho < 2 {
		return nil, fmt.Errorf("%w: nrho=%d", ErrInvalidGeometry, nrho)
	}
	if !(rmin > 0) || !(rmaj > rmin) {
		return nil, fmt.Errorf("%w: rmin=%g rmaj=%g", ErrInvalidGeometry, rmin, rmaj)
	}
	dr := 1.0 / float64(nrho)
	g := &Geometry{
		NRho:    nrho,
		Dr:      dr,
		Rmaj:    rmaj,
		Rmin:    rmin,
		B0:      b0,
		RhoFace: make([]float64, nrho+1),
	}
	for i := range g.RhoFace {
		g.RhoFace[i] = float64(i) * dr
	}
	g.RhoCell = FaceToCell(g.RhoFace)

	vprCoef := 4 * math.Pi * math.Pi * rmaj * rmin * rmin
	g.Vpr = floats.ScaleTo(make([]float64, nrho), vprCoef, g.RhoCell)
	g.VprFace = floats.ScaleTo(make([]float64, nrho+1), vprCoef, g.RhoFace)
	g.Volume = 2 * math.Pi * math.Pi * rmaj * rmin * rmin
	return g, nil
}

// FromConfig builds the geometry described by c.
func FromConfig(c config.GeometryConfig) (*Geometry, error) {
	return NewCircular(c.NRho, c.Rmaj, c.Rmin, c.B0)
}

// FaceToCell averages neighbouring faces onto cells.
func FaceToCell(face []float64) []float64 {
	if len(face) < 2 {
		return nil
	}
	cell := make([]float64, len(face)-1)
	for i := range cell {
		cell[i] = 0.5 * (face[i] + face[i+1])
	}
	return cell
}

// NearestCell returns the index of the cell centre closest to rho.
func (g *Geometry) NearestCell(rho float64) int {
	idx := int(math.Floor(rho / g.Dr))
	if idx < 0 {
		return 0
	}
	if idx >= g.NRho {
		return g.NRho - 1
	}
	return idx
}

// VolumeIntegral integrates a cell profile over the plasma volume.
func (g *Geometry) VolumeIntegral(profile []float64) float64 {
	return floats.Dot(profile, g.Vpr) * g.Dr
}
