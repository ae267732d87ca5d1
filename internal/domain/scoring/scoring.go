// Package scoring provides the candidate classifier: a logistic model over
// standardised features of the fixed input schema.
package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/ntag/internal/domain/features"
	"github.com/okian/ntag/internal/domain/model"
	"gonum.org/v1/gonum/floats"
)

// Model is the serialisable form of a LinearScorer.
type Model struct {
	Version string             `json:"version"`
	Bias    float64            `json:"bias"`
	Weights map[string]float64 `json:"weights"`
	Means   map[string]float64 `json:"means"`
	Scales  map[string]float64 `json:"scales"`
}

// DefaultModel is a hand-tuned starting point: multiplicity and a compact
// vertex favour captures, a wide timing spread and a far fit disfavour them.
func DefaultModel() Model {
	return Model{
		Version: features.SchemaVersion,
		Bias:    -1.0,
		Weights: map[string]float64{
			model.FeatureNHits:        1.4,
			model.FeatureN200:         -0.5,
			model.FeatureTRMS:         -0.9,
			model.FeatureBeta1:        0.4,
			model.FeatureAngleMean:    0.3,
			model.FeatureDWall:        0.2,
			model.FeatureDWallN:       0.3,
			model.FeaturePromptNFit:   -0.6,
			model.FeatureThetaMeanDir: 0.2,
		},
		Means: map[string]float64{
			model.FeatureNHits:        8,
			model.FeatureN200:         15,
			model.FeatureTRMS:         4,
			model.FeatureBeta1:        0.2,
			model.FeatureAngleMean:    60,
			model.FeatureDWall:        800,
			model.FeatureDWallN:       800,
			model.FeaturePromptNFit:   300,
			model.FeatureThetaMeanDir: 50,
		},
		Scales: map[string]float64{
			model.FeatureNHits:        3,
			model.FeatureN200:         8,
			model.FeatureTRMS:         2,
			model.FeatureBeta1:        0.2,
			model.FeatureAngleMean:    20,
			model.FeatureDWall:        500,
			model.FeatureDWallN:       500,
			model.FeaturePromptNFit:   300,
			model.FeatureThetaMeanDir: 20,
		},
	}
}

// Option applies a configuration option to the LinearScorer.
type Option func(*LinearScorer)

// WithModel replaces the model coefficients.
func WithModel(m Model) Option {
	return func(s *LinearScorer) { s.model = m }
}

// WithInputs sets the input schema. It defaults to features.ClassifierInputs.
func WithInputs(inputs []string) Option {
	return func(s *LinearScorer) {
		s.inputs = append([]string(nil), inputs...)
	}
}

// LinearScorer implements features.Classifier. It is immutable after
// construction and safe for concurrent use.
type LinearScorer struct {
	model  Model
	inputs []string

	// compiled per input index
	weight []float64
	mean   []float64
	scale  []float64
}

// NewLinearScorer builds a scorer and checks the model against the input
// schema.
func NewLinearScorer(opts ...Option) (*LinearScorer, error) {
	s := &LinearScorer{
		model:  DefaultModel(),
		inputs: append([]string(nil), features.ClassifierInputs...),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.model.Version != "" && s.model.Version != features.SchemaVersion {
		return nil, fmt.Errorf("%w: model version %q, features %q", ErrSchemaMismatch, s.model.Version, features.SchemaVersion)
	}

	index := make(map[string]int, len(s.inputs))
	for i, name := range s.inputs {
		index[name] = i
	}
	s.weight = make([]float64, len(s.inputs))
	s.mean = make([]float64, len(s.inputs))
	s.scale = make([]float64, len(s.inputs))
	for i := range s.scale {
		s.scale[i] = 1
	}
	for name, w := range s.model.Weights {
		i, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("%w: weight for %q", ErrSchemaMismatch, name)
		}
		s.weight[i] = w
		s.mean[i] = s.model.Means[name]
		if sc, ok := s.model.Scales[name]; ok && sc > 0 {
			s.scale[i] = sc
		}
	}
	return s, nil
}

// Inputs returns the input schema.
func (s *LinearScorer) Inputs() []string {
	return append([]string(nil), s.inputs...)
}

// Score returns the capture probability in (0, 1).
func (s *LinearScorer) Score(ctx context.Context, fm model.FeatureMap) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context cancelled: %w", err)
	}
	x := make([]float64, len(s.inputs))
	for i, name := range s.inputs {
		v, ok := fm[name]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrMissingFeature, name)
		}
		x[i] = (v - s.mean[i]) / s.scale[i]
	}
	z := s.model.Bias + floats.Dot(s.weight, x)
	return 1 / (1 + math.Exp(-z)), nil
}
