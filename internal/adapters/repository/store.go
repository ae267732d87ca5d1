// Package repository keeps per-event results and a score index over their
// delayed candidates.
package repository

import (
	"context"

	"github.com/okian/ntag/internal/domain/model"
	"github.com/okian/ntag/internal/domain/types"
)

// Entry is one delayed candidate in score order.
type Entry struct {
	Rank      int            `json:"rank"`
	EventID   string         `json:"event_id"`
	HitID     int            `json:"hit_id"`
	Score     float64        `json:"score"`
	ReconTime float64        `json:"recon_time"`
	Label     types.Label    `json:"label"`
	TagClass  types.TagClass `json:"tag_class"`
}

// Store provides read/write access to processed results.
type Store interface {
	// Store saves a result, replacing any earlier result for the same event.
	Store(ctx context.Context, result model.Result) error

	// Get returns the stored result for an event.
	// Returns ErrNotFound if the event is unknown or evicted.
	Get(ctx context.Context, eventID string) (model.Result, error)

	// CountAbove returns how many retained delayed candidates score strictly above cut.
	CountAbove(ctx context.Context, cut float64) int

	// TopN returns the N highest scoring retained delayed candidates.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Totals returns counters summed over every stored result.
	Totals(ctx context.Context) model.Counters

	// Count returns the number of retained results.
	Count(ctx context.Context) int
}
