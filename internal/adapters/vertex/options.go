package vertex

import "github.com/okian/ntag/internal/domain/detector"

// Option configures a GridSearch.
type Option func(*GridSearch)

// WithTank restricts grid points to the given tank.
func WithTank(t detector.Tank) Option {
	return func(g *GridSearch) {
		if t.Radius > 0 && t.HalfHeight > 0 {
			g.tank = t
		}
	}
}

// WithMaxSteps bounds the number of grid evaluations rounds.
func WithMaxSteps(n int) Option {
	return func(g *GridSearch) {
		if n > 0 {
			g.maxSteps = n
		}
	}
}
