package model

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// EarlyPulse is an externally reconstructed early (pre-capture) pulse, e.g.
// a decay-electron found by the prompt reconstruction. ReconCT is in µs.
type EarlyPulse struct {
	ReconCT   float64 `json:"recon_ct"`
	NHits     int     `json:"nhits"`
	Position  r3.Vec  `json:"position"`
	Direction r3.Vec  `json:"direction"`
	GateType  int     `json:"gate_type"`
	Goodness  float64 `json:"goodness"`
}

// Event is one detector event as delivered by the external decoder.
type Event struct {
	ID              string       `json:"id"`
	Hits            []Hit        `json:"hits"`
	PromptVertex    *r3.Vec      `json:"prompt_vertex,omitempty"`
	Taggables       []Taggable   `json:"taggables,omitempty"`
	EarlyCandidates []EarlyPulse `json:"early_candidates,omitempty"`
}

// Counters are the per-event tagging tallies.
type Counters struct {
	TrueElectrons   int `json:"n_true_e"`
	TaggedElectrons int `json:"n_tagged_e"`
	TrueNeutrons    int `json:"n_true_n"`
	TaggedNeutrons  int `json:"n_tagged_n"`
}

// Add accumulates other into c.
func (c *Counters) Add(other Counters) {
	c.TrueElectrons += other.TrueElectrons
	c.TaggedElectrons += other.TaggedElectrons
	c.TrueNeutrons += other.TrueNeutrons
	c.TaggedNeutrons += other.TaggedNeutrons
}

// Result is the outcome of processing one event.
type Result struct {
	EventID         string             `json:"event_id"`
	Variables       map[string]float64 `json:"variables"`
	Candidates      []*Candidate       `json:"candidates"`
	EarlyCandidates []*Candidate       `json:"early_candidates"`
	Taggables       []*Taggable        `json:"taggables,omitempty"`
	Counters        Counters           `json:"counters"`
}

// Rows flattens the delayed and early candidates into feature rows in the
// given column orders.
func (r *Result) Rows(delayedColumns, earlyColumns []string) (delayed, early [][]float64) {
	d := CandidateCluster{Name: ClusterDelayed, Candidates: r.Candidates}
	e := CandidateCluster{Name: ClusterEarly, Candidates: r.EarlyCandidates}
	return d.Rows(delayedColumns), e.Rows(earlyColumns)
}
