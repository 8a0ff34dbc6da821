// Package fvm provides the finite-volume building blocks of the transport
// solver.
//
// The package defines the discretized field type and the operators that turn
// per-channel coefficients into a block linear system:
//
//   - [CellVariable]: immutable cell-centred field with face constraints
//   - [Block1DCoeffs]: transient, diffusion, convection and source coefficients
//   - [DiffusionTerms], [ConvectionTerms]: tridiagonal operators per channel
//   - [CalcC]: block matrix C and vector c such that F(x) = C·x + c
//   - [ThetaResidual]: theta-method residual and its Jacobian
//
// # Layout
//
// Channels are flattened channel-major: the solution vector of a block with
// channels (Ti, Te) on n cells is [Ti_0 .. Ti_n-1, Te_0 .. Te_n-1]. [Flatten]
// and [Split] convert between the two views and round-trip exactly.
package fvm
