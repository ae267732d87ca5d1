package model

import "github.com/okian/ntag/internal/domain/types"

// Taggable is a ground-truth marker of a physical event supplied with the
// input (simulation truth). Time is in ns, Energy in MeV.
type Taggable struct {
	Type       types.TaggableType `json:"type"`
	Energy     float64            `json:"energy"`
	Time       float64            `json:"time"`
	TaggedType types.TagClass     `json:"tagged_type"`

	// CandidateIndex maps a cluster name to the owning candidate index.
	CandidateIndex map[string]int `json:"candidate_index,omitempty"`
}

// CandidateIndexFor returns the owning candidate index for a cluster, or -1.
func (t *Taggable) CandidateIndexFor(cluster string) int {
	if idx, ok := t.CandidateIndex[cluster]; ok {
		return idx
	}
	return -1
}

// SetCandidateIndex records the owner for a cluster. A negative index clears
// ownership.
func (t *Taggable) SetCandidateIndex(cluster string, idx int) {
	if t.CandidateIndex == nil {
		t.CandidateIndex = make(map[string]int)
	}
	if idx < 0 {
		delete(t.CandidateIndex, cluster)
		return
	}
	t.CandidateIndex[cluster] = idx
}
