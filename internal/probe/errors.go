package probe

import "errors"

// Domain errors for the probe package. Device-side failures are reported
// through Outcome, not through these.
var (
	// ErrInvalidResult is returned when a result cannot be stored.
	ErrInvalidResult = errors.New("probe: invalid result")

	// ErrInvalidConfig is returned when prober settings are unusable.
	ErrInvalidConfig = errors.New("probe: invalid configuration")
)
