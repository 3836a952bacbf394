package simulation

import "errors"

var (
	ErrTooManyInputs     = errors.New("too many inputs")
	ErrWrongInputCount   = errors.New("wrong number of inputs")
	ErrInvalidCounter    = errors.New("counter must be positive")
	ErrInvalidProperty   = errors.New("invalid property")
	ErrUnknownUnit       = errors.New("unknown time unit")
	ErrInvalidResolution = errors.New("clock resolution must be positive")
)
