package model

import (
	"sort"

	"github.com/okian/ntag/internal/domain/types"
)

// Cluster names used as keys in Taggable ownership maps.
const (
	ClusterEarly   = "Early"
	ClusterDelayed = "Delayed"
)

// Candidate is a proposed hit cluster that may be a capture signal.
//
// Field ownership: Features and TagClass are written by the extractor and the
// tag classifier, Label and TagIndex only by the taggable matcher.
type Candidate struct {
	HitID    int            `json:"hit_id"`
	Features FeatureMap     `json:"features"`
	Label    types.Label    `json:"label"`
	TagClass types.TagClass `json:"tag_class"`
	TagIndex int            `json:"tag_index"`
}

// NewCandidate creates an unlabelled, unmatched candidate starting at hitID.
func NewCandidate(hitID int) *Candidate {
	return &Candidate{
		HitID:    hitID,
		Features: make(FeatureMap),
		Label:    types.LabelUnset,
		TagClass: types.TagMissed,
		TagIndex: -1,
	}
}

// ReconTime returns the reconstructed time in ns.
func (c *Candidate) ReconTime() float64 {
	return c.Features.Get(FeatureReconCT, 0) * 1e3
}

// NHits returns the window multiplicity.
func (c *Candidate) NHits() int {
	return int(c.Features.Get(FeatureNHits, 0))
}

// CandidateCluster is a named, ordered collection of candidates owned by one
// event.
type CandidateCluster struct {
	Name       string
	Candidates []*Candidate
}

// NewCandidateCluster returns an empty cluster.
func NewCandidateCluster(name string) *CandidateCluster {
	return &CandidateCluster{Name: name}
}

// Append adds a candidate at the end.
func (cc *CandidateCluster) Append(c *Candidate) {
	cc.Candidates = append(cc.Candidates, c)
}

// Len returns the number of candidates.
func (cc *CandidateCluster) Len() int { return len(cc.Candidates) }

// At returns the i-th candidate.
func (cc *CandidateCluster) At(i int) *Candidate { return cc.Candidates[i] }

// Erase removes the candidates at the given indices. Indices refer to the
// positions before any removal; duplicates and out-of-range values are
// ignored.
func (cc *CandidateCluster) Erase(indices []int) {
	if len(indices) == 0 {
		return
	}
	drop := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(cc.Candidates) {
			drop[i] = struct{}{}
		}
	}
	kept := cc.Candidates[:0]
	for i, c := range cc.Candidates {
		if _, ok := drop[i]; !ok {
			kept = append(kept, c)
		}
	}
	for i := len(kept); i < len(cc.Candidates); i++ {
		cc.Candidates[i] = nil
	}
	cc.Candidates = kept
}

// Clear empties the cluster.
func (cc *CandidateCluster) Clear() {
	cc.Candidates = nil
}

// SortByTime orders candidates by reconstructed time, keeping the original
// order for equal times.
func (cc *CandidateCluster) SortByTime() {
	sort.SliceStable(cc.Candidates, func(i, j int) bool {
		return cc.Candidates[i].ReconTime() < cc.Candidates[j].ReconTime()
	})
}

// Rows flattens the candidates into feature rows in the given column order.
// Label, TagIndex and TagClass columns are taken from the candidate fields.
func (cc *CandidateCluster) Rows(columns []string) [][]float64 {
	rows := make([][]float64, len(cc.Candidates))
	for i, c := range cc.Candidates {
		row := make([]float64, len(columns))
		for j, col := range columns {
			switch col {
			case FeatureLabel:
				row[j] = float64(c.Label)
			case FeatureTagIndex:
				row[j] = float64(c.TagIndex)
			case FeatureTagClass:
				row[j] = float64(c.TagClass)
			default:
				row[j] = c.Features.Get(col, 0)
			}
		}
		rows[i] = row
	}
	return rows
}
