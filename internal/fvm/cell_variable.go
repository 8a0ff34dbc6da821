package fvm

import "fmt"

// FaceKind selects how a boundary face is constrained.
type FaceKind int

const (
	// FaceUnset is the zero value; a CellVariable with an unset face is invalid.
	FaceUnset FaceKind = iota
	// FaceDirichlet fixes the value on the face.
	FaceDirichlet
	// FaceNeumann fixes the gradient on the face.
	FaceNeumann
)

func (k FaceKind) String() string {
	switch k {
	case FaceDirichlet:
		return "dirichlet"
	case FaceNeumann:
		return "neumann"
	default:
		return "unset"
	}
}

// FaceConstraint is the boundary condition of one face. Holding either a
// value or a gradient, never both.
type FaceConstraint struct {
	Kind  FaceKind
	Value float64
}

// Dirichlet returns a value constraint.
func Dirichlet(v float64) FaceConstraint { return FaceConstraint{Kind: FaceDirichlet, Value: v} }

// Neumann returns a gradient constraint.
func Neumann(grad float64) FaceConstraint { return FaceConstraint{Kind: FaceNeumann, Value: grad} }

// Boundary holds the constraints of the left (axis) and right (edge) faces.
type Boundary struct {
	Left  FaceConstraint
	Right FaceConstraint
}

// DefaultBoundary is zero gradient on the axis and a fixed edge value.
func DefaultBoundary(edge float64) Boundary {
	return Boundary{Left: Neumann(0), Right: Dirichlet(edge)}
}

// CellVariable is a cell-centred field on a uniform 1-D grid together with
// its face constraints. Values are never mutated after construction; every
// transformation returns a new CellVariable.
type CellVariable struct {
	value    []float64
	dr       float64
	boundary Boundary
}

// NewCellVariable copies value and validates the grid and boundary.
func NewCellVariable(value []float64, dr float64, b Boundary) (CellVariable, error) {
	v := CellVariable{value: clone(value), dr: dr, boundary: b}
	if err := v.Validate(); err != nil {
		return CellVariable{}, err
	}
	return v, nil
}

// MustCellVariable is NewCellVariable for statically known inputs.
func MustCellVariable(value []float64, dr float64, b Boundary) CellVariable {
	v, err := NewCellVariable(value, dr, b)
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks the invariants of the variable.
func (c CellVariable) Validate() error {
	if len(c.value) == 0 {
		return ErrEmptyValue
	}
	if !(c.dr > 0) {
		return fmt.Errorf("%w: dr=%g", ErrNonPositiveDr, c.dr)
	}
	if c.boundary.Left.Kind == FaceUnset {
		return fmt.Errorf("%w: left face", ErrMissingConstraint)
	}
	if c.boundary.Right.Kind == FaceUnset {
		return fmt.Errorf("%w: right face", ErrMissingConstraint)
	}
	return nil
}

func (c CellVariable) Len() int           { return len(c.value) }
func (c CellVariable) Dr() float64        { return c.dr }
func (c CellVariable) At(i int) float64   { return c.value[i] }
func (c CellVariable) Boundary() Boundary { return c.boundary }

// Value returns a copy of the cell values.
func (c CellVariable) Value() []float64 { return clone(c.value) }

// WithValue returns a copy holding value and the same boundary. The caller
// guarantees len(value) == c.Len().
func (c CellVariable) WithValue(value []float64) CellVariable {
	return CellVariable{value: clone(value), dr: c.dr, boundary: c.boundary}
}

// WithBoundary returns a copy with new face constraints.
func (c CellVariable) WithBoundary(b Boundary) CellVariable {
	return CellVariable{value: c.value, dr: c.dr, boundary: b}
}

// FaceValue returns the n+1 face values. Inner faces average their
// neighbours, constrained faces take the constraint and gradient faces
// extrapolate over half a cell.
func (c CellVariable) FaceValue() []float64 {
	n := len(c.value)
	face := make([]float64, n+1)
	for i := 1; i < n; i++ {
		face[i] = 0.5 * (c.value[i-1] + c.value[i])
	}
	switch c.boundary.Left.Kind {
	case FaceDirichlet:
		face[0] = c.boundary.Left.Value
	default:
		face[0] = c.value[0] - c.boundary.Left.Value*c.dr/2
	}
	switch c.boundary.Right.Kind {
	case FaceDirichlet:
		face[n] = c.boundary.Right.Value
	default:
		face[n] = c.value[n-1] + c.boundary.Right.Value*c.dr/2
	}
	return face
}

// FaceGrad returns the n+1 face gradients.
func (c CellVariable) FaceGrad() []float64 {
	n := len(c.value)
	grad := make([]float64, n+1)
	for i := 1; i < n; i++ {
		grad[i] = (c.value[i] - c.value[i-1]) / c.dr
	}
	switch c.boundary.Left.Kind {
	case FaceDirichlet:
		grad[0] = (c.value[0] - c.boundary.Left.Value) / (0.5 * c.dr)
	default:
		grad[0] = c.boundary.Left.Value
	}
	switch c.boundary.Right.Kind {
	case FaceDirichlet:
		grad[n] = -(c.value[n-1] - c.boundary.Right.Value) / (0.5 * c.dr)
	default:
		grad[n] = c.boundary.Right.Value
	}
	return grad
}

// CellPlusBoundaries returns the left face value, the cell values and the
// right face value.
func (c CellVariable) CellPlusBoundaries() []float64 {
	face := c.FaceValue()
	out := make([]float64, 0, len(c.value)+2)
	out = append(out, face[0])
	out = append(out, c.value...)
	return append(out, face[len(face)-1])
}

func clone(v []float64) []float64 {
	c := make([]float64, len(v))
	copy(c, v)
	return c
}
