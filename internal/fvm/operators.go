package fvm

import (
	"fmt"
	"math"
)

// Tridiag is a tridiagonal matrix. Upper[i] sits at (i, i+1) and Lower[i]
// at (i+1, i).
type Tridiag struct {
	Diag  []float64
	Upper []float64
	Lower []float64
}

func newTridiag(n int) Tridiag {
	return Tridiag{
		Diag:  make([]float64, n),
		Upper: make([]float64, n-1),
		Lower: make([]float64, n-1),
	}
}

// MulVec returns T·x.
func (t Tridiag) MulVec(x []float64) []float64 {
	n := len(t.Diag)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		y[i] = t.Diag[i] * x[i]
		if i+1 < n {
			y[i] += t.Upper[i] * x[i+1]
		}
		if i > 0 {
			y[i] += t.Lower[i-1] * x[i-1]
		}
	}
	return y
}

// DiffusionTerms discretizes ∇·(d ∇x) for the variable v. It returns the
// matrix and the boundary vector such that the operator is mat·x + vec.
func DiffusionTerms(dFace []float64, v CellVariable) (Tridiag, []float64, error) {
	n := v.Len()
	if n < 2 {
		return Tridiag{}, nil, ErrTooFewCells
	}
	if len(dFace) != n+1 {
		return Tridiag{}, nil, fmt.Errorf("%w: d_face has %d entries for %d cells", ErrShapeMismatch, len(dFace), n)
	}
	dr := v.dr
	denom := dr * dr
	t := newTridiag(n)
	vec := make([]float64, n)

	for i := 0; i < n; i++ {
		t.Diag[i] = -dFace[i+1] - dFace[i]
	}
	for i := 0; i < n-1; i++ {
		t.Upper[i] = dFace[i+1]
		t.Lower[i] = dFace[i+1]
	}

	left, right := v.boundary.Left, v.boundary.Right
	if left.Kind == FaceDirichlet {
		t.Diag[0] = -2*dFace[0] - dFace[1]
		vec[0] = 2 * dFace[0] * left.Value / denom
	} else {
		t.Diag[0] = -dFace[1]
		vec[0] = -dFace[0] * left.Value / dr
	}
	if right.Kind == FaceDirichlet {
		t.Diag[n-1] = -2*dFace[n] - dFace[n-1]
		vec[n-1] = 2 * dFace[n] * right.Value / denom
	} else {
		t.Diag[n-1] = -dFace[n-1]
		vec[n-1] = dFace[n] * right.Value / dr
	}

	for i := range t.Diag {
		t.Diag[i] /= denom
	}
	for i := range t.Upper {
		t.Upper[i] /= denom
		t.Lower[i] /= denom
	}
	return t, vec, nil
}

// ConvectionTerms discretizes −∇·(v x) with power-law upwinding weighted by
// the local Peclet number of the face velocity against dFace. dFace may be
// nil, which gives pure upwinding.
func ConvectionTerms(vFace, dFace []float64, v CellVariable, dirichletMode, neumannMode ConvectionMode) (Tridiag, []float64, error) {
	n := v.Len()
	if n < 2 {
		return Tridiag{}, nil, ErrTooFewCells
	}
	if len(vFace) != n+1 || (dFace != nil && len(dFace) != n+1) {
		return Tridiag{}, nil, fmt.Errorf("%w: convection faces for %d cells", ErrShapeMismatch, n)
	}
	dr := v.dr

	ratio := make([]float64, n+1)
	for j := 0; j <= n; j++ {
		d := 0.0
		if dFace != nil {
			d = dFace[j]
		}
		sign := 1.0
		if d < 0 {
			sign = -1.0
		}
		d = sign * math.Max(1e-20, math.Abs(d))
		scale := 1.0
		if j == 0 || j == n {
			scale = 0.5
		}
		ratio[j] = scale * dr * vFace[j] / d
	}
	leftAlpha := make([]float64, n)
	rightAlpha := make([]float64, n)
	for i := 0; i < n; i++ {
		leftAlpha[i] = pecletToAlpha(-ratio[i])
		rightAlpha[i] = pecletToAlpha(ratio[i+1])
	}

	t := newTridiag(n)
	vec := make([]float64, n)
	for i := 0; i < n; i++ {
		t.Diag[i] = (leftAlpha[i]*vFace[i] - rightAlpha[i]*vFace[i+1]) / dr
	}
	for i := 0; i < n-1; i++ {
		t.Upper[i] = -(1 - rightAlpha[i]) * vFace[i+1] / dr
		t.Lower[i] = (1 - leftAlpha[i+1]) * vFace[i+1] / dr
	}

	// Left face: inflow term (α x_0 + (1−α) x_ghost) v_0 / dr.
	la, v0 := leftAlpha[0], vFace[0]
	left := v.boundary.Left
	switch left.Kind {
	case FaceDirichlet:
		switch dirichletMode {
		case ConvectionGhost:
			t.Diag[0] -= (1 - la) * v0 / dr
			vec[0] += 2 * (1 - la) * v0 * left.Value / dr
		case ConvectionDirect:
			t.Diag[0] -= la * v0 / dr
			vec[0] += v0 * left.Value / dr
		case ConvectionSemiImplicit:
			vec[0] += (1 - la) * v0 * left.Value / dr
		default:
			return Tridiag{}, nil, fmt.Errorf("%w: dirichlet %q", ErrUnknownConvectionMode, dirichletMode)
		}
	default:
		switch neumannMode {
		case ConvectionGhost:
			t.Diag[0] += (1 - la) * v0 / dr
			vec[0] -= (1 - la) * v0 * left.Value
		case ConvectionSemiImplicit:
			t.Diag[0] += (1 - la) * v0 / dr
			vec[0] -= v0 * left.Value / 2
		default:
			return Tridiag{}, nil, fmt.Errorf("%w: neumann %q", ErrUnknownConvectionMode, neumannMode)
		}
	}

	// Right face: outflow term (α x_n-1 + (1−α) x_ghost) v_n / dr.
	ra, vn := rightAlpha[n-1], vFace[n]
	right := v.boundary.Right
	switch right.Kind {
	case FaceDirichlet:
		switch dirichletMode {
		case ConvectionGhost:
			t.Diag[n-1] += (1 - ra) * vn / dr
			vec[n-1] -= 2 * (1 - ra) * vn * right.Value / dr
		case ConvectionDirect:
			t.Diag[n-1] += ra * vn / dr
			vec[n-1] -= vn * right.Value / dr
		case ConvectionSemiImplicit:
			vec[n-1] -= (1 - ra) * vn * right.Value / dr
		default:
			return Tridiag{}, nil, fmt.Errorf("%w: dirichlet %q", ErrUnknownConvectionMode, dirichletMode)
		}
	default:
		switch neumannMode {
		case ConvectionGhost:
			t.Diag[n-1] -= (1 - ra) * vn / dr
			vec[n-1] -= (1 - ra) * vn * right.Value
		case ConvectionSemiImplicit:
			t.Diag[n-1] -= (1 - ra) * vn / dr
			vec[n-1] -= vn * right.Value / 2
		default:
			return Tridiag{}, nil, fmt.Errorf("%w: neumann %q", ErrUnknownConvectionMode, neumannMode)
		}
	}
	return t, vec, nil
}

// pecletToAlpha is the power-law weighting of the cell's own value at a face.
func pecletToAlpha(p float64) float64 {
	const eps = 1e-3
	if math.Abs(p) < eps {
		p = eps
	}
	switch {
	case p > 10:
		return (p - 1) / p
	case p > eps:
		return ((p - 1) + math.Pow(1-p/10, 5)) / p
	case p >= -10 && p < -eps:
		return (math.Pow(1+p/10, 5) - 1) / p
	case p < -10:
		return -1 / p
	default:
		return 0.5
	}
}
