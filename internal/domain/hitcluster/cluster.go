// Package hitcluster implements the time-ordered hit container the search
// and feature stages slice into.
package hitcluster

import (
	"fmt"
	"sort"

	"github.com/okian/ntag/internal/domain/detector"
	"github.com/okian/ntag/internal/domain/model"
	"gonum.org/v1/gonum/spatial/r3"
)

// Cluster is an ordered sequence of hits. Time queries require Sort to have
// been called since the last unordered mutation.
type Cluster struct {
	hits   []model.Hit
	sorted bool
	// tof is the vertex whose flight times were subtracted, if any.
	tof *r3.Vec
}

// New returns a cluster holding a copy of hits. A nil or empty input gives a
// sorted, empty cluster.
func New(hits []model.Hit) *Cluster {
	c := &Cluster{hits: append([]model.Hit(nil), hits...)}
	c.sorted = sort.SliceIsSorted(c.hits, func(i, j int) bool { return c.hits[i].Time < c.hits[j].Time })
	return c
}

func sortedFrom(hits []model.Hit) *Cluster {
	return &Cluster{hits: hits, sorted: true}
}

// Append adds a hit at the end.
func (c *Cluster) Append(h model.Hit) {
	if n := len(c.hits); n > 0 && h.Time < c.hits[n-1].Time {
		c.sorted = false
	}
	c.hits = append(c.hits, h)
}

// AppendCluster adds every hit of other, or only its in-gate hits.
func (c *Cluster) AppendCluster(other *Cluster, inGateOnly bool) {
	for _, h := range other.hits {
		if inGateOnly && !h.IsInGate() {
			continue
		}
		c.Append(h)
	}
}

// Sort orders hits by time, keeping insertion order for equal times.
func (c *Cluster) Sort() {
	if !c.sorted {
		sort.SliceStable(c.hits, func(i, j int) bool { return c.hits[i].Time < c.hits[j].Time })
	}
	c.sorted = true
}

// IsSorted reports whether time queries are allowed.
func (c *Cluster) IsSorted() bool { return c.sorted }

// Len returns the number of hits.
func (c *Cluster) Len() int { return len(c.hits) }

// At returns the i-th hit.
func (c *Cluster) At(i int) (model.Hit, error) {
	if i < 0 || i >= len(c.hits) {
		return model.Hit{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(c.hits))
	}
	return c.hits[i], nil
}

// Hits returns a copy of the hits.
func (c *Cluster) Hits() []model.Hit {
	return append([]model.Hit(nil), c.hits...)
}

func (c *Cluster) checkStart(start int) error {
	if !c.sorted {
		return ErrUnsorted
	}
	if len(c.hits) == 0 {
		return ErrEmpty
	}
	if start < 0 || start >= len(c.hits) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, start, len(c.hits))
	}
	return nil
}

// Slice returns the hits with time in [t_start, t_start+width).
func (c *Cluster) Slice(start int, width float64) (*Cluster, error) {
	return c.SliceOffsets(start, 0, width)
}

// SliceOffsets returns the hits with time in [t_start+lo, t_start+hi).
func (c *Cluster) SliceOffsets(start int, lo, hi float64) (*Cluster, error) {
	if err := c.checkStart(start); err != nil {
		return nil, err
	}
	return c.SliceRange(c.hits[start].Time, lo, hi)
}

// SliceRange returns the hits with time in [t+lo, t+hi).
func (c *Cluster) SliceRange(t, lo, hi float64) (*Cluster, error) {
	if !c.sorted {
		return nil, ErrUnsorted
	}
	from := c.lowerBound(t + lo)
	to := c.lowerBound(t + hi)
	if to < from {
		to = from
	}
	out := sortedFrom(append([]model.Hit(nil), c.hits[from:to]...))
	out.tof = c.tof
	return out, nil
}

func (c *Cluster) lowerBound(t float64) int {
	return sort.Search(len(c.hits), func(i int) bool { return c.hits[i].Time >= t })
}

func (c *Cluster) upperBound(t float64) int {
	return sort.Search(len(c.hits), func(i int) bool { return c.hits[i].Time > t })
}

// LowerBound returns the index of the first hit with time >= t.
func (c *Cluster) LowerBound(t float64) (int, error) {
	if !c.sorted {
		return 0, ErrUnsorted
	}
	return c.lowerBound(t), nil
}

// UpperBound returns the index of the first hit with time > t.
func (c *Cluster) UpperBound(t float64) (int, error) {
	if !c.sorted {
		return 0, ErrUnsorted
	}
	return c.upperBound(t), nil
}

// Index returns the index of the first hit at exactly time t.
func (c *Cluster) Index(t float64) (int, error) {
	i, err := c.LowerBound(t)
	if err != nil {
		return -1, err
	}
	if i == len(c.hits) || c.hits[i].Time != t {
		return -1, fmt.Errorf("%w: no hit at t=%g", ErrIndexOutOfRange, t)
	}
	return i, nil
}

// ApplyDeadtime drops, in place, every hit closer than deadtime to the
// previously retained hit.
func (c *Cluster) ApplyDeadtime(deadtime float64) error {
	if !c.sorted {
		return ErrUnsorted
	}
	if len(c.hits) == 0 || deadtime <= 0 {
		return nil
	}
	kept := c.hits[:1]
	last := c.hits[0].Time
	for _, h := range c.hits[1:] {
		if h.Time-last < deadtime {
			continue
		}
		kept = append(kept, h)
		last = h.Time
	}
	c.hits = kept
	return nil
}

// Shift returns a copy with every hit time moved by dt.
func (c *Cluster) Shift(dt float64) *Cluster {
	out := &Cluster{hits: make([]model.Hit, len(c.hits)), sorted: c.sorted, tof: c.tof}
	for i, h := range c.hits {
		h.Time += dt
		out.hits[i] = h
	}
	return out
}

// SubtractTOF returns a sorted copy with the photon flight time from vertex
// to each sensor removed from the hit times. Flight times from an earlier
// SubtractTOF are restored first, so the result is always relative to vertex.
func (c *Cluster) SubtractTOF(vertex r3.Vec, geom detector.Geometry) (*Cluster, error) {
	out := &Cluster{hits: make([]model.Hit, len(c.hits)), tof: &vertex}
	for i, h := range c.hits {
		pos, ok := geom.Position(h.Channel)
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownChannel, h.Channel)
		}
		if c.tof != nil {
			h.Time += r3.Norm(r3.Sub(pos, *c.tof)) / detector.LightSpeedInWater
		}
		h.Time -= r3.Norm(r3.Sub(pos, vertex)) / detector.LightSpeedInWater
		out.hits[i] = h
	}
	out.Sort()
	return out, nil
}

// TOFVertex returns the vertex the hit times are relative to.
func (c *Cluster) TOFVertex() (r3.Vec, bool) {
	if c.tof == nil {
		return r3.Vec{}, false
	}
	return *c.tof, true
}

// Times returns the hit times.
func (c *Cluster) Times() []float64 {
	out := make([]float64, len(c.hits))
	for i, h := range c.hits {
		out[i] = h.Time
	}
	return out
}

// Charges returns the hit charges.
func (c *Cluster) Charges() []float64 {
	out := make([]float64, len(c.hits))
	for i, h := range c.hits {
		out[i] = h.Charge
	}
	return out
}

// Directions returns the unit vectors from vertex to each hit sensor.
func (c *Cluster) Directions(vertex r3.Vec, geom detector.Geometry) ([]r3.Vec, error) {
	out := make([]r3.Vec, len(c.hits))
	for i, h := range c.hits {
		pos, ok := geom.Position(h.Channel)
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownChannel, h.Channel)
		}
		d := r3.Sub(pos, vertex)
		if r3.Norm(d) > 0 {
			d = r3.Unit(d)
		}
		out[i] = d
	}
	return out, nil
}
