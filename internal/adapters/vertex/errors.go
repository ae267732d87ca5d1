package vertex

import "errors"

// ErrNoHits is returned when a fit is requested on an empty window.
var ErrNoHits = errors.New("no hits to fit")
