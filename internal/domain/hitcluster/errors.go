package hitcluster

import "errors"

var (
	// ErrUnsorted is returned when a time query runs on an unsorted cluster.
	ErrUnsorted = errors.New("hit cluster is not sorted")
	// ErrIndexOutOfRange is returned for a start index outside the cluster.
	ErrIndexOutOfRange = errors.New("hit index out of range")
	// ErrEmpty is returned when a window is requested from an empty cluster.
	ErrEmpty = errors.New("hit cluster is empty")
	// ErrUnknownChannel is returned when the geometry has no position for a hit.
	ErrUnknownChannel = errors.New("unknown channel")
)
