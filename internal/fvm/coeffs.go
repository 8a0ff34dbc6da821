package fvm

import (
	"fmt"
	"strings"
)

// AuxiliaryOutput carries diagnostic profiles computed alongside the
// coefficients. It is never read by the solver's convergence logic.
type AuxiliaryOutput map[string][]float64

// Clone returns a deep copy.
func (a AuxiliaryOutput) Clone() AuxiliaryOutput {
	if a == nil {
		return nil
	}
	out := make(AuxiliaryOutput, len(a))
	for k, v := range a {
		out[k] = clone(v)
	}
	return out
}

// Block1DCoeffs holds the coefficients of a block of coupled 1-D equations
//
//	TransientIn_i ∂x_i/∂t = ∇·(DFace_i ∇x_i) − ∇·(VFace_i x_i)
//	                        + Σ_j SourceMat_ij x_j + Source_i
//
// Optional terms are nil, per channel or as a whole.
type Block1DCoeffs struct {
	TransientIn [][]float64
	DFace       [][]float64
	VFace       [][]float64
	SourceMat   [][][]float64
	Source      [][]float64
	Aux         AuxiliaryOutput
}

// CoeffsFunc computes the coefficients for a given state. It must be a
// deterministic function of its argument.
type CoeffsFunc func(x []CellVariable) (Block1DCoeffs, error)

func (b Block1DCoeffs) validate(x []CellVariable) error {
	n := len(x)
	if len(b.TransientIn) != n {
		return fmt.Errorf("%w: %d transient channels for %d variables", ErrShapeMismatch, len(b.TransientIn), n)
	}
	for i, v := range x {
		nc := v.Len()
		if len(b.TransientIn[i]) != nc {
			return fmt.Errorf("%w: transient channel %d", ErrShapeMismatch, i)
		}
		if face := channel(b.DFace, i); face != nil && len(face) != nc+1 {
			return fmt.Errorf("%w: d_face channel %d", ErrShapeMismatch, i)
		}
		if face := channel(b.VFace, i); face != nil && len(face) != nc+1 {
			return fmt.Errorf("%w: v_face channel %d", ErrShapeMismatch, i)
		}
		if src := channel(b.Source, i); src != nil && len(src) != nc {
			return fmt.Errorf("%w: source channel %d", ErrShapeMismatch, i)
		}
		if i < len(b.SourceMat) {
			for j, m := range b.SourceMat[i] {
				if m == nil {
					continue
				}
				if j >= n || len(m) != nc || x[j].Len() != nc {
					return fmt.Errorf("%w: source_mat[%d][%d]", ErrShapeMismatch, i, j)
				}
			}
		}
	}
	return nil
}

func channel(terms [][]float64, i int) []float64 {
	if i < len(terms) {
		return terms[i]
	}
	return nil
}

// ConvectionMode selects how the convection operator treats constrained
// boundary faces.
type ConvectionMode string

const (
	ConvectionGhost        ConvectionMode = "ghost"
	ConvectionDirect       ConvectionMode = "direct"
	ConvectionSemiImplicit ConvectionMode = "semi-implicit"
)

// ParseConvectionMode parses a boundary mode name.
func ParseConvectionMode(s string) (ConvectionMode, error) {
	switch m := ConvectionMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ConvectionGhost, ConvectionDirect, ConvectionSemiImplicit:
		return m, nil
	case "":
		return ConvectionGhost, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownConvectionMode, s)
	}
}

// InitialGuessMode selects the starting point of the Newton iteration.
type InitialGuessMode int

const (
	// InitialGuessXOld starts from the previous time step's solution.
	InitialGuessXOld InitialGuessMode = iota
	// InitialGuessLinear starts from a predictor-corrector linear solve.
	InitialGuessLinear
)

func (m InitialGuessMode) String() string {
	switch m {
	case InitialGuessXOld:
		return "x_old"
	case InitialGuessLinear:
		return "linear"
	default:
		return fmt.Sprintf("InitialGuessMode(%d)", int(m))
	}
}

// ParseInitialGuessMode parses "linear" or "x_old" (case-insensitive).
// Unknown names are an error, never a silent default.
func ParseInitialGuessMode(s string) (InitialGuessMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linear":
		return InitialGuessLinear, nil
	case "x_old", "xold":
		return InitialGuessXOld, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownInitialGuess, s)
	}
}
