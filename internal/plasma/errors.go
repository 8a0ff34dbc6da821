package plasma

import "errors"

var (
	// ErrInvalidProfiles indicates NaN, Inf or non-positive temperatures or
	// densities.
	ErrInvalidProfiles = errors.New("plasma: invalid profiles")

	// ErrUnknownChannel indicates a channel name that is not transported.
	ErrUnknownChannel = errors.New("plasma: unknown channel")

	// ErrChannelMismatch indicates a variable list that does not match the
	// evolving channels.
	ErrChannelMismatch = errors.New("plasma: channel mismatch")
)
