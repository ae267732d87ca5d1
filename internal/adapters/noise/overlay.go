// Package noise overlays hits from recorded noise entries onto signal events.
//
// Each noise entry is cut into parts as wide as the signal window. Successive
// calls consume successive parts, moving to the next usable entry once the
// current one is used up. The cursor persists across events.
package noise

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/okian/ntag/internal/domain/hitcluster"
	"github.com/okian/ntag/internal/domain/model"
	"github.com/okian/ntag/pkg/metrics"
)

// Overlay supplies noise hits to the pipeline. It is safe for concurrent
// use, though parts are handed out in call order.
type Overlay struct {
	entries [][]model.Hit

	start, end             float64
	deadtime               float64
	minDensity, maxDensity float64
	repeat                 bool

	mu     sync.Mutex
	entry  int
	part   int
	nParts int
	t0     float64
	hits   []model.Hit
	cursor int
}

// New returns an overlay over entries. Entries are not modified.
func New(entries [][]model.Hit, opts ...Option) (*Overlay, error) {
	o := &Overlay{
		entries:    entries,
		start:      18_000,
		end:        535_000,
		maxDensity: math.Inf(1),
		entry:      -1,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.end <= o.start {
		return nil, fmt.Errorf("%w: [%v, %v)", ErrInvalidWindow, o.start, o.end)
	}
	return o, nil
}

func (o *Overlay) width() float64 { return o.end - o.start }

// Add appends the next noise part to signal, shifted into the signal
// window, then applies deadtime and re-sorts.
func (o *Overlay) Add(ctx context.Context, signal *hitcluster.Cluster) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.entry == -1 || o.part == o.nParts {
		if err := o.nextEntry(); err != nil {
			return err
		}
	}

	partStart := o.t0 + float64(o.part)*o.width()
	partEnd := partStart + o.width()
	shift := o.start - partStart

	for o.cursor < len(o.hits) && o.hits[o.cursor].Time < partStart {
		o.cursor++
	}
	for o.cursor < len(o.hits) && o.hits[o.cursor].Time < partEnd {
		h := o.hits[o.cursor]
		h.Time += shift
		signal.Append(h)
		o.cursor++
	}
	o.part++
	metrics.RecordNoisePart()

	signal.Sort()
	return signal.ApplyDeadtime(o.deadtime)
}

// nextEntry advances to the next entry that has at least one full part and
// an acceptable density.
func (o *Overlay) nextEntry() error {
	for tried := 0; tried <= len(o.entries); tried++ {
		o.entry++
		if o.entry >= len(o.entries) {
			if !o.repeat || len(o.entries) == 0 {
				return fmt.Errorf("%w: %d entries", ErrExhausted, len(o.entries))
			}
			o.entry = 0
		}
		if o.load(o.entries[o.entry]) {
			return nil
		}
	}
	return fmt.Errorf("%w: no usable entry among %d", ErrExhausted, len(o.entries))
}

// load prepares raw as the current entry and reports whether it is usable.
func (o *Overlay) load(raw []model.Hit) bool {
	if len(raw) == 0 {
		return false
	}
	hits := make([]model.Hit, len(raw))
	for i, h := range raw {
		h.Gate |= model.InGate
		hits[i] = h
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Time < hits[j].Time })

	length := hits[len(hits)-1].Time - hits[0].Time
	nParts := int(length / o.width())
	if nParts <= 0 {
		return false
	}
	density := float64(len(hits)) / (length / 1e3)
	if density < o.minDensity || density > o.maxDensity {
		return false
	}

	o.hits = hits
	o.nParts = nParts
	o.part = 0
	o.cursor = 0
	o.t0 = hits[0].Time + (length-float64(nParts)*o.width())/2
	return true
}

// Position returns the current entry and part indices.
func (o *Overlay) Position() (entry, part int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.entry, o.part
}
