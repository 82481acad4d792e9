package engine

import (
	"errors"
)

// Caller contract violation: empty user identifier, non-positive mute duration, etc. Never returned for an ordinary accept/reject outcome.
var ErrInvalidInput = errors.New("invalid input")
