package scoring

import "errors"

var (
	// ErrMissingFeature is returned when a required input is absent.
	ErrMissingFeature = errors.New("missing classifier input")
	// ErrSchemaMismatch is returned when weights name features outside the
	// input schema or the model targets another schema version.
	ErrSchemaMismatch = errors.New("classifier schema mismatch")
)
