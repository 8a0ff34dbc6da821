// Package plasma provides the state types shared by the transport, source,
// coefficient and driver packages.
//
// The package defines:
//
//   - [Channel]: one of the four transported quantities
//   - [CoreProfiles]: the radial profiles of all channels at one time
//
// CoreProfiles values are immutable. Every update returns a new value, so a
// profile snapshot can be kept in a run history without copying.
package plasma
