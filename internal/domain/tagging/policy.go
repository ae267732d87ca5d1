// Package tagging assigns the algorithm's own tag class to candidates from
// their features. It never reads the ground-truth label.
package tagging

import (
	"errors"
	"fmt"

	"github.com/okian/ntag/internal/domain/model"
	"github.com/okian/ntag/internal/domain/types"
)

// ErrMissingCut is returned when separation mode lacks a required cut.
var ErrMissingCut = errors.New("missing electron/neutron separation cut")

// Policy maps features to a tag class.
type Policy interface {
	Classify(fm model.FeatureMap) types.TagClass
}

// n50 returns the N50 feature, with -1 marking early-search candidates.
func n50(fm model.FeatureMap) float64 {
	return fm.Get(model.FeatureN50, -1)
}

func reconTimeNs(fm model.FeatureMap) float64 {
	return fm.Get(model.FeatureReconCT, 0) * 1e3
}

// CutPolicy is used when electron/neutron separation is enabled. Times are
// in ns.
type CutPolicy struct {
	T0Min    float64
	N50Cut   float64
	TimeCut  float64
	ScoreCut float64
}

// Classify implements Policy.
func (p CutPolicy) Classify(fm model.FeatureMap) types.TagClass {
	t := reconTimeNs(fm)
	switch {
	case t < p.T0Min:
		return types.TagElectron
	case n50(fm) > p.N50Cut && t < p.TimeCut:
		return types.TagElectron
	case fm.Get(model.FeatureScore, 0) > p.ScoreCut:
		return types.TagNeutron
	default:
		return types.TagMissed
	}
}

// ScorePolicy is used when separation is disabled.
type ScorePolicy struct {
	ScoreCut float64
}

// Classify implements Policy.
func (p ScorePolicy) Classify(fm model.FeatureMap) types.TagClass {
	switch {
	case n50(fm) < 0:
		return types.TagElectron
	case fm.Get(model.FeatureScore, 0) > p.ScoreCut:
		return types.TagNeutron
	default:
		return types.TagMissed
	}
}

// Settings selects and parameterises a policy. Cut pointers distinguish an
// absent value from zero.
type Settings struct {
	Separation bool
	T0Min      float64
	N50Cut     *float64
	TimeCut    *float64
	ScoreCut   float64
}

// NewPolicy builds the policy for s. Separation mode requires both the N50
// and the time cut.
func NewPolicy(s Settings) (Policy, error) {
	if !s.Separation {
		return ScorePolicy{ScoreCut: s.ScoreCut}, nil
	}
	if s.N50Cut == nil {
		return nil, fmt.Errorf("%w: n50_cut", ErrMissingCut)
	}
	if s.TimeCut == nil {
		return nil, fmt.Errorf("%w: time_cut", ErrMissingCut)
	}
	return CutPolicy{
		T0Min:    s.T0Min,
		N50Cut:   *s.N50Cut,
		TimeCut:  *s.TimeCut,
		ScoreCut: s.ScoreCut,
	}, nil
}

// Apply reclassifies every candidate in cc and stores the class on both the
// candidate and its feature map.
func Apply(p Policy, cc *model.CandidateCluster) {
	for _, c := range cc.Candidates {
		tc := p.Classify(c.Features)
		c.TagClass = tc
		c.Features[model.FeatureTagClass] = float64(tc)
	}
}
