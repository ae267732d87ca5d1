package noise

import "errors"

// Sentinel kinds for noise overlay errors.
var (
	ErrExhausted     = errors.New("noise entries exhausted")
	ErrInvalidWindow = errors.New("invalid noise window")
)
