package features

import "errors"

var (
	// ErrEmptyWindow is returned when a sub-window needed for a feature has
	// no hits. The candidate is discarded, the event continues.
	ErrEmptyWindow = errors.New("empty feature window")
	// ErrVertexFit wraps failures of the vertex estimator.
	ErrVertexFit = errors.New("vertex fit failed")
	// ErrClassifier wraps failures of the classifier.
	ErrClassifier = errors.New("classifier failed")
)
