// Package vertex provides the time-residual grid search used to refit a
// capture vertex from a short hit window.
package vertex

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/okian/ntag/internal/domain/detector"
	"github.com/okian/ntag/internal/domain/features"
	"github.com/okian/ntag/internal/domain/hitcluster"
	"github.com/okian/ntag/pkg/metrics"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

const (
	defaultMaxSteps   = 1000
	defaultShrinkRate = 0.5
)

// GridSearch finds the point minimising the RMS of TOF-corrected hit times.
// Each round scores a 3x3x3 grid around the current best point. The grid
// moves to the best neighbour, or shrinks when the centre is already best,
// until it is narrower than the minimum width. GridSearch holds no mutable
// state and is safe for concurrent use.
type GridSearch struct {
	geom     detector.Geometry
	tank     detector.Tank
	maxSteps int
}

var _ features.VertexEstimator = (*GridSearch)(nil)

// New returns a grid search over sensors in geom.
func New(geom detector.Geometry, opts ...Option) *GridSearch {
	g := &GridSearch{geom: geom, tank: detector.DefaultTank, maxSteps: defaultMaxSteps}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// EstimateVertex implements features.VertexEstimator. The search starts at
// the vertex the window is TOF-corrected against, or the tank centre.
func (g *GridSearch) EstimateVertex(ctx context.Context, window *hitcluster.Cluster, grid features.GridConfig) (r3.Vec, error) {
	start := time.Now()
	defer func() {
		metrics.RecordVertexFitLatency(float64(time.Since(start).Microseconds()) / 1e3)
	}()

	if window == nil || window.Len() == 0 {
		return r3.Vec{}, ErrNoHits
	}
	origin, _ := window.TOFVertex()
	shrink := grid.ShrinkRate
	if shrink <= 0 || shrink >= 1 {
		shrink = defaultShrinkRate
	}

	center := origin
	best, err := g.trms(window, center)
	if err != nil {
		return r3.Vec{}, err
	}
	width := grid.InitWidth
	scores := make([]float64, 0, 27)
	points := make([]r3.Vec, 0, 27)

	for step := 0; width >= grid.MinWidth && step < g.maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return r3.Vec{}, fmt.Errorf("vertex grid search: %w", err)
		}
		scores, points = scores[:0], points[:0]
		scores = append(scores, best)
		points = append(points, center)
		for _, off := range neighbours {
			p := r3.Add(center, r3.Scale(width, off))
			if r3.Norm(r3.Sub(p, origin)) > grid.SearchRange || !g.tank.Contains(p) {
				continue
			}
			s, err := g.trms(window, p)
			if err != nil {
				return r3.Vec{}, err
			}
			scores = append(scores, s)
			points = append(points, p)
		}

		i := floats.MinIdx(scores)
		if i == 0 {
			width *= shrink
			continue
		}
		center, best = points[i], scores[i]
	}
	return center, nil
}

// trms is the population standard deviation of hit times relative to p.
func (g *GridSearch) trms(window *hitcluster.Cluster, p r3.Vec) (float64, error) {
	shifted, err := window.SubtractTOF(p, g.geom)
	if err != nil {
		return 0, err
	}
	_, variance := stat.PopMeanVariance(shifted.Times(), nil)
	return math.Sqrt(variance), nil
}

// neighbours are the 26 unit offsets of a 3x3x3 grid without its centre.
var neighbours = func() []r3.Vec {
	out := make([]r3.Vec, 0, 26)
	for _, x := range []float64{-1, 0, 1} {
		for _, y := range []float64{-1, 0, 1} {
			for _, z := range []float64{-1, 0, 1} {
				if x == 0 && y == 0 && z == 0 {
					continue
				}
				out = append(out, r3.Vec{X: x, Y: y, Z: z})
			}
		}
	}
	return out
}()
