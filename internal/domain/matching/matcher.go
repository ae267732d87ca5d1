// Package matching links candidates to ground-truth taggables by time and
// resolves conflicting claims.
package matching

import (
	"math"

	"github.com/okian/ntag/internal/domain/model"
	"github.com/okian/ntag/internal/domain/types"
)

// GdEnergyThreshold separates n-on-Gd from n-on-H captures, MeV.
const GdEnergyThreshold = 6.0

// Matcher is the only writer of candidate labels, tag indices and taggable
// ownership. It holds no per-event state.
type Matcher struct {
	window float64
}

// New returns a matcher accepting |t_taggable - t_candidate| < window (ns).
func New(window float64) *Matcher {
	return &Matcher{window: window}
}

// Window returns the match window in ns.
func (m *Matcher) Window() float64 { return m.window }

// Reset clears ownership and resolved types on taggables and marks every
// candidate as unmatched noise.
func (m *Matcher) Reset(taggables []*model.Taggable, clusters ...*model.CandidateCluster) {
	for _, t := range taggables {
		t.CandidateIndex = nil
		t.TaggedType = types.TagMissed
	}
	for _, cc := range clusters {
		for _, c := range cc.Candidates {
			c.TagIndex = -1
			c.Label = types.LabelNoise
		}
	}
}

// Map matches every candidate of cc to its closest taggable and records
// ownership under cc.Name. A taggable ends up owned by the claimant with the
// most hits; every other claimant is labelled remnant.
func (m *Matcher) Map(cc *model.CandidateCluster, taggables []*model.Taggable) {
	key := cc.Name
	for i, c := range cc.Candidates {
		c.TagIndex = -1
		label := types.LabelNoise

		best, ambiguous := m.closest(c.ReconTime(), taggables)
		if best >= 0 {
			t := taggables[best]
			label = labelFor(t)
			c.TagIndex = best

			owner := t.CandidateIndexFor(key)
			switch {
			case owner < 0:
				setTaggedType(t, c)
				t.SetCandidateIndex(key, i)
			case c.NHits() > cc.At(owner).NHits():
				setTaggedType(t, c)
				t.SetCandidateIndex(key, i)
				cc.At(owner).Label = types.LabelRemnant
			default:
				label = types.LabelRemnant
			}
		}
		if ambiguous {
			label = types.LabelUndefined
		}
		c.Label = label
	}
}

// closest returns the first taggable index with the smallest time
// difference inside the window, and whether that minimum is shared by both
// a neutron and a decay-electron taggable.
func (m *Matcher) closest(t float64, taggables []*model.Taggable) (int, bool) {
	best := -1
	bestDiff := math.Inf(1)
	for i, tg := range taggables {
		d := math.Abs(tg.Time - t)
		if d < m.window && d < bestDiff {
			best, bestDiff = i, d
		}
	}
	if best < 0 {
		return -1, false
	}
	var hasN, hasE bool
	for _, tg := range taggables {
		if math.Abs(tg.Time-t) != bestDiff {
			continue
		}
		switch tg.Type {
		case types.TaggableNeutron:
			hasN = true
		case types.TaggableDecayElectron:
			hasE = true
		}
	}
	return best, hasN && hasE
}

func labelFor(t *model.Taggable) types.Label {
	switch t.Type {
	case types.TaggableNeutron:
		if t.Energy > GdEnergyThreshold {
			return types.LabelNGd
		}
		return types.LabelNH
	case types.TaggableDecayElectron:
		return types.LabelDecayElectron
	default:
		return types.LabelNoise
	}
}

// setTaggedType merges the claimant's tag class into the taggable's
// resolved type. Disagreeing claims resolve to TagEN.
func setTaggedType(t *model.Taggable, c *model.Candidate) {
	if t.TaggedType != types.TagMissed && t.TaggedType != c.TagClass {
		t.TaggedType = types.TagEN
		return
	}
	t.TaggedType = c.TagClass
}

// Counters tallies true taggables and tagged candidates across clusters.
func Counters(taggables []*model.Taggable, clusters ...*model.CandidateCluster) model.Counters {
	var out model.Counters
	for _, t := range taggables {
		switch t.Type {
		case types.TaggableDecayElectron:
			out.TrueElectrons++
		case types.TaggableNeutron:
			out.TrueNeutrons++
		}
	}
	for _, cc := range clusters {
		for _, c := range cc.Candidates {
			switch c.TagClass {
			case types.TagElectron:
				out.TaggedElectrons++
			case types.TagNeutron:
				out.TaggedNeutrons++
			}
		}
	}
	return out
}
