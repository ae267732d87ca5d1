// Package features computes the per-candidate feature map from the hits
// around a candidate window.
package features

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/ntag/internal/domain/detector"
	"github.com/okian/ntag/internal/domain/hitcluster"
	"github.com/okian/ntag/internal/domain/model"
	"github.com/okian/ntag/internal/domain/types"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// Window offsets around the window centre, ns.
const (
	n50Half     = 25
	n200Half    = 100
	n1300Before = 520
	n1300After  = 780
)

// DefaultWidth is the primary window width, ns.
const DefaultWidth = 200

// GridConfig parameterises the vertex grid search.
type GridConfig struct {
	InitWidth   float64 // cm
	MinWidth    float64 // cm
	ShrinkRate  float64
	SearchRange float64 // cm
}

// DefaultGrid matches the reference reconstruction settings.
var DefaultGrid = GridConfig{InitWidth: 800, MinWidth: 50, ShrinkRate: 0.5, SearchRange: 5000}

// VertexEstimator returns a best-fit position for a hit window. It must be
// safe for concurrent use.
type VertexEstimator interface {
	EstimateVertex(ctx context.Context, window *hitcluster.Cluster, grid GridConfig) (r3.Vec, error)
}

// Classifier scores an assembled feature map. It must be safe for
// concurrent use.
type Classifier interface {
	Score(ctx context.Context, fm model.FeatureMap) (float64, error)
}

// TagPolicy assigns the algorithm's own tag class from features.
type TagPolicy interface {
	Classify(fm model.FeatureMap) types.TagClass
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithWidth sets the primary window width in ns.
func WithWidth(w float64) Option {
	return func(e *Extractor) {
		if w > 0 {
			e.width = w
		}
	}
}

// WithGrid sets the vertex grid parameters.
func WithGrid(g GridConfig) Option {
	return func(e *Extractor) { e.grid = g }
}

// WithTank sets the tank used for wall distances.
func WithTank(t detector.Tank) Option {
	return func(e *Extractor) { e.tank = t }
}

// Extractor fills candidate feature maps. It holds no per-event state.
type Extractor struct {
	width      float64
	grid       GridConfig
	tank       detector.Tank
	geom       detector.Geometry
	vertex     VertexEstimator
	classifier Classifier
	policy     TagPolicy
}

// NewExtractor wires an extractor to its collaborators.
func NewExtractor(geom detector.Geometry, vertex VertexEstimator, classifier Classifier, policy TagPolicy, opts ...Option) *Extractor {
	e := &Extractor{
		width:      DefaultWidth,
		grid:       DefaultGrid,
		tank:       detector.DefaultTank,
		geom:       geom,
		vertex:     vertex,
		classifier: classifier,
		policy:     policy,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Width returns the primary window width.
func (e *Extractor) Width() float64 { return e.width }

// Extract computes the delayed-candidate features for the window starting at
// hitID. hits must be sorted and time-of-flight corrected to prompt.
func (e *Extractor) Extract(ctx context.Context, hits *hitcluster.Cluster, hitID int, prompt r3.Vec) (model.FeatureMap, error) {
	half := e.width / 2
	full, err := hits.Slice(hitID, e.width)
	if err != nil {
		return nil, err
	}
	w50, err := hits.SliceOffsets(hitID, half-n50Half, half+n50Half)
	if err != nil {
		return nil, err
	}
	w200, err := hits.SliceOffsets(hitID, half-n200Half, half+n200Half)
	if err != nil {
		return nil, err
	}
	w1300, err := hits.SliceOffsets(hitID, half-n1300Before, half+n1300After)
	if err != nil {
		return nil, err
	}
	if full.Len() == 0 {
		return nil, fmt.Errorf("%w: primary window at hit %d", ErrEmptyWindow, hitID)
	}
	if w50.Len() == 0 {
		return nil, fmt.Errorf("%w: N50 window at hit %d", ErrEmptyWindow, hitID)
	}

	fm := model.FeatureMap{
		model.FeatureNHits: float64(full.Len()),
		model.FeatureN50:   float64(w50.Len()),
		model.FeatureN200:  float64(w200.Len()),
		model.FeatureN1300: float64(w1300.Len()),
	}

	mean, variance := stat.PopMeanVariance(full.Times(), nil)
	fm[model.FeatureReconCT] = mean * 1e-3
	fm[model.FeatureTRMS] = math.Sqrt(variance)
	fm[model.FeatureQSum] = floats.Sum(full.Charges())

	dirs, err := full.Directions(prompt, e.geom)
	if err != nil {
		return nil, err
	}
	beta := hitcluster.BetaArray(dirs)
	fm[model.FeatureBeta1] = beta[1]
	fm[model.FeatureBeta2] = beta[2]
	fm[model.FeatureBeta3] = beta[3]
	fm[model.FeatureBeta4] = beta[4]
	fm[model.FeatureBeta5] = beta[5]

	meanDir := hitcluster.MeanDirection(dirs)
	fm[model.FeatureDWall] = e.tank.WallDistance(prompt)
	fm[model.FeatureDWallMeanDir] = e.tank.WallDistanceAlong(prompt, meanDir)
	thetas := make([]float64, len(dirs))
	for i, d := range dirs {
		thetas[i] = hitcluster.Degrees(meanDir, d)
	}
	fm[model.FeatureThetaMeanDir] = stat.Mean(thetas, nil)

	angles := hitcluster.OpeningAngleStats(dirs)
	fm[model.FeatureAngleMean] = angles.Mean
	fm[model.FeatureAngleStdev] = angles.Stdev
	fm[model.FeatureAngleSkew] = angles.Skew

	fit, err := e.vertex.EstimateVertex(ctx, w50, e.grid)
	if err != nil {
		return nil, fmt.Errorf("%w: hit %d: %w", ErrVertexFit, hitID, err)
	}
	fm[model.FeatureDWallN] = e.tank.WallDistance(fit)
	fm[model.FeaturePromptNFit] = r3.Norm(r3.Sub(prompt, fit))

	score, err := e.classifier.Score(ctx, fm)
	if err != nil {
		return nil, fmt.Errorf("%w: hit %d: %w", ErrClassifier, hitID, err)
	}
	fm[model.FeatureScore] = score
	fm[model.FeatureTagClass] = float64(e.policy.Classify(fm))
	return fm, nil
}

// ExtractEarly computes the reduced early-candidate features for a window
// found by the low-threshold search. N50 is left unset so tag policies see
// the early-search sentinel.
func (e *Extractor) ExtractEarly(hits *hitcluster.Cluster, hitID int, width float64, prompt r3.Vec) (model.FeatureMap, error) {
	full, err := hits.Slice(hitID, width)
	if err != nil {
		return nil, err
	}
	if full.Len() == 0 {
		return nil, fmt.Errorf("%w: early window at hit %d", ErrEmptyWindow, hitID)
	}
	dirs, err := full.Directions(prompt, e.geom)
	if err != nil {
		return nil, err
	}
	dir := hitcluster.MeanDirection(dirs)
	fm := model.FeatureMap{
		model.FeatureReconCT:  stat.Mean(full.Times(), nil) * 1e-3,
		model.FeatureNHits:    float64(full.Len()),
		model.FeatureX:        prompt.X,
		model.FeatureY:        prompt.Y,
		model.FeatureZ:        prompt.Z,
		model.FeatureDirX:     dir.X,
		model.FeatureDirY:     dir.Y,
		model.FeatureDirZ:     dir.Z,
		model.FeatureDWall:    e.tank.WallDistance(prompt),
		model.FeatureGateType: -1,
		model.FeatureGoodness: 0,
	}
	fm[model.FeatureTagClass] = float64(e.policy.Classify(fm))
	return fm, nil
}

// FromPulse builds early-candidate features from an externally
// reconstructed pulse.
func (e *Extractor) FromPulse(p model.EarlyPulse) model.FeatureMap {
	fm := model.FeatureMap{
		model.FeatureReconCT:  p.ReconCT,
		model.FeatureNHits:    float64(p.NHits),
		model.FeatureX:        p.Position.X,
		model.FeatureY:        p.Position.Y,
		model.FeatureZ:        p.Position.Z,
		model.FeatureDirX:     p.Direction.X,
		model.FeatureDirY:     p.Direction.Y,
		model.FeatureDirZ:     p.Direction.Z,
		model.FeatureDWall:    e.tank.WallDistance(p.Position),
		model.FeatureGateType: float64(p.GateType),
		model.FeatureGoodness: p.Goodness,
	}
	fm[model.FeatureTagClass] = float64(e.policy.Classify(fm))
	return fm
}
