package core

import "errors"

// Surfaced error kinds (spec's §7 taxonomy). CapacityRejected is
// intentionally absent: admission rejection is silent, communicated
// only by UpdatePoint stopping its zoom-climb early.
var (
	ErrAuthFailed      = errors.New("core: auth failed")
	ErrTokenExpired    = errors.New("core: token expired")
	ErrNotFound        = errors.New("core: not found")
	ErrInvalidArgument = errors.New("core: invalid argument")
)
