package fvm

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// UpdateFn refreshes the boundary conditions of a candidate variable for the
// target time. It must not mutate its argument.
type UpdateFn func(CellVariable) CellVariable

// Flatten concatenates the values of vars channel-major.
func Flatten(vars []CellVariable) []float64 {
	size := 0
	for _, v := range vars {
		size += v.Len()
	}
	out := make([]float64, 0, size)
	for _, v := range vars {
		out = append(out, v.value...)
	}
	return out
}

// Split cuts x into per-channel slices shaped like vars. The slices are
// fresh copies.
func Split(x []float64, like []CellVariable) [][]float64 {
	out := make([][]float64, len(like))
	off := 0
	for i, v := range like {
		out[i] = clone(x[off : off+v.Len()])
		off += v.Len()
	}
	return out
}

// ToCellVariables splits x, places each part into the matching variable of
// like and passes it through the matching update function. A nil fns slice
// or nil entry keeps the boundary of like.
func ToCellVariables(x []float64, like []CellVariable, fns []UpdateFn) []CellVariable {
	parts := Split(x, like)
	out := make([]CellVariable, len(like))
	for i, v := range like {
		nv := CellVariable{value: parts[i], dr: v.dr, boundary: v.boundary}
		if i < len(fns) && fns[i] != nil {
			nv = fns[i](nv)
		}
		out[i] = nv
	}
	return out
}

// ResidualScalar is the mean absolute value of r. NaN entries propagate.
func ResidualScalar(r []float64) float64 {
	if len(r) == 0 {
		return 0
	}
	return floats.Norm(r, 1) / float64(len(r))
}

// IsFinite reports whether every entry of v is neither NaN nor Inf.
func IsFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
