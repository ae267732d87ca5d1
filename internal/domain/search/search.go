// Package search implements the sliding-window peak finder that proposes
// candidate windows from a sorted hit cluster.
package search

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/okian/ntag/internal/domain/hitcluster"
)

// ErrInvalidParams is returned by New for unusable parameters.
var ErrInvalidParams = errors.New("invalid search parameters")

// n200Half is the half width of the N200 window around the window centre.
const n200Half = 100

// Params are the gates of one search pass. Times are in ns.
type Params struct {
	T0Min      float64
	T0Max      float64
	Width      float64
	MinPeakSep float64
	NHitsMin   int
	NHitsMax   int
	N200Max    int
}

// DefaultParams returns the delayed-capture search gates.
func DefaultParams() Params {
	return Params{
		T0Min:      18000,
		T0Max:      535000,
		Width:      14,
		MinPeakSep: 14,
		NHitsMin:   7,
		NHitsMax:   400,
		N200Max:    200,
	}
}

// DefaultEarlyParams returns the looser gates of the low-threshold search
// for pre-capture pulses.
func DefaultEarlyParams() Params {
	return Params{
		T0Min:      1000,
		T0Max:      18000,
		Width:      50,
		MinPeakSep: 500,
		NHitsMin:   20,
		NHitsMax:   5000,
		N200Max:    5000,
	}
}

// Validate checks the parameters for internal consistency.
func (p Params) Validate() error {
	switch {
	case p.Width <= 0:
		return fmt.Errorf("%w: width must be positive", ErrInvalidParams)
	case p.T0Max < p.T0Min:
		return fmt.Errorf("%w: t0_max must not be below t0_min", ErrInvalidParams)
	case p.NHitsMin < 1 || p.NHitsMax < p.NHitsMin:
		return fmt.Errorf("%w: nhits range is empty", ErrInvalidParams)
	case p.MinPeakSep < 0:
		return fmt.Errorf("%w: min_peak_sep must not be negative", ErrInvalidParams)
	}
	return nil
}

// Peak is the running best window of the current peak slot.
type Peak struct {
	HitID int
	NHits int
	N200  int
	T0    float64
}

func emptyPeak() Peak {
	return Peak{T0: math.Inf(-1)}
}

// Searcher runs the peak finder with fixed parameters. It is stateless
// between calls and safe for concurrent use.
type Searcher struct {
	p Params
}

// New returns a Searcher for p.
func New(p Params) (*Searcher, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Searcher{p: p}, nil
}

// Params returns the search gates.
func (s *Searcher) Params() Params { return s.p }

// Search scans hits once and returns the start indices of accepted peaks in
// time order. commit, when non-nil, is called for each accepted peak as it
// is found; an error from commit stops the scan.
//
// Within one slot of MinPeakSep only the window with the most hits survives;
// on equal counts the earlier window is kept.
func (s *Searcher) Search(ctx context.Context, hits *hitcluster.Cluster, commit func(hitID int) error) ([]int, error) {
	if hits.Len() == 0 {
		return nil, nil
	}
	if !hits.IsSorted() {
		return nil, hitcluster.ErrUnsorted
	}

	var accepted []int
	accept := func(id int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if commit != nil {
			if err := commit(id); err != nil {
				return err
			}
		}
		accepted = append(accepted, id)
		return nil
	}

	start, err := hits.LowerBound(s.p.T0Min)
	if err != nil {
		return nil, err
	}
	half := s.p.Width / 2
	prev := emptyPeak()
	for i := start; i < hits.Len(); i++ {
		h, err := hits.At(i)
		if err != nil {
			return nil, err
		}
		t0 := h.Time
		if t0 > s.p.T0Max {
			break
		}
		n, err := count(hits, t0, 0, s.p.Width)
		if err != nil {
			return nil, err
		}
		if n < s.p.NHitsMin || n > s.p.NHitsMax {
			continue
		}
		n200, err := count(hits, t0, half-n200Half, half+n200Half)
		if err != nil {
			return nil, err
		}

		if t0-prev.T0 > s.p.MinPeakSep {
			if prev.NHits > 0 && prev.N200 < s.p.N200Max && prev.T0 > s.p.T0Min {
				if err := accept(prev.HitID); err != nil {
					return nil, err
				}
			}
			prev.NHits = 0
		}
		if n <= prev.NHits {
			continue
		}
		prev = Peak{HitID: i, NHits: n, N200: n200, T0: t0}
	}

	if prev.NHits >= s.p.NHitsMin {
		if err := accept(prev.HitID); err != nil {
			return nil, err
		}
	}
	return accepted, nil
}

// count returns the number of hits with time in [t+lo, t+hi) without
// copying them.
func count(hits *hitcluster.Cluster, t, lo, hi float64) (int, error) {
	from, err := hits.LowerBound(t + lo)
	if err != nil {
		return 0, err
	}
	to, err := hits.LowerBound(t + hi)
	if err != nil {
		return 0, err
	}
	return max(to-from, 0), nil
}
