package fvm

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Modes bundles the convection boundary modes passed through to CalcC.
type Modes struct {
	Dirichlet ConvectionMode
	Neumann   ConvectionMode
}

// DefaultModes uses ghost cells on both kinds of face.
func DefaultModes() Modes {
	return Modes{Dirichlet: ConvectionGhost, Neumann: ConvectionGhost}
}

// CalcC assembles the block matrix C and vector c such that the spatial
// operator of the block is F(x) = C·x + c. Boundary vectors are taken from
// the face constraints of x.
func CalcC(x []CellVariable, coeffs Block1DCoeffs, modes Modes) (*mat.Dense, []float64, error) {
	if err := coeffs.validate(x); err != nil {
		return nil, nil, err
	}
	offsets := make([]int, len(x)+1)
	for i, v := range x {
		offsets[i+1] = offsets[i] + v.Len()
	}
	size := offsets[len(x)]
	c := mat.NewDense(size, size, nil)
	vec := make([]float64, size)

	for i, v := range x {
		off := offsets[i]
		dFace := channel(coeffs.DFace, i)
		if dFace != nil {
			t, bvec, err := DiffusionTerms(dFace, v)
			if err != nil {
				return nil, nil, fmt.Errorf("diffusion channel %d: %w", i, err)
			}
			addTridiag(c, off, t)
			addTo(vec[off:], bvec)
		}
		if vFace := channel(coeffs.VFace, i); vFace != nil {
			t, bvec, err := ConvectionTerms(vFace, dFace, v, modes.Dirichlet, modes.Neumann)
			if err != nil {
				return nil, nil, fmt.Errorf("convection channel %d: %w", i, err)
			}
			addTridiag(c, off, t)
			addTo(vec[off:], bvec)
		}
		if i < len(coeffs.SourceMat) {
			for j, m := range coeffs.SourceMat[i] {
				if m == nil {
					continue
				}
				colOff := offsets[j]
				for k, val := range m {
					c.Set(off+k, colOff+k, c.At(off+k, colOff+k)+val)
				}
			}
		}
		if src := channel(coeffs.Source, i); src != nil {
			addTo(vec[off:], src)
		}
	}
	return c, vec, nil
}

func addTridiag(m *mat.Dense, off int, t Tridiag) {
	for k, d := range t.Diag {
		m.Set(off+k, off+k, m.At(off+k, off+k)+d)
	}
	for k := range t.Upper {
		m.Set(off+k, off+k+1, m.At(off+k, off+k+1)+t.Upper[k])
		m.Set(off+k+1, off+k, m.At(off+k+1, off+k)+t.Lower[k])
	}
}

func addTo(dst, src []float64) {
	for k, v := range src {
		dst[k] += v
	}
}
