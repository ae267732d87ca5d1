package service

import (
	"context"

	"github.com/okian/ntag/internal/domain/features"
	"github.com/okian/ntag/internal/domain/model"
)

// RecordWriter writes one record per call.
type RecordWriter interface {
	Write(ctx context.Context, v any) error
}

// FeatureHeader opens a feature dump.
type FeatureHeader struct {
	Schema         string   `json:"schema"`
	DelayedColumns []string `json:"delayed_columns"`
	EarlyColumns   []string `json:"early_columns"`
}

// FeatureRows holds one event's flattened candidates.
type FeatureRows struct {
	EventID string      `json:"event_id"`
	Delayed [][]float64 `json:"delayed"`
	Early   [][]float64 `json:"early"`
}

// FeatureDump is a result sink writing candidate feature rows in schema order.
type FeatureDump struct {
	w RecordWriter
}

// NewFeatureDump returns a dump over w.
func NewFeatureDump(w RecordWriter) *FeatureDump {
	return &FeatureDump{w: w}
}

// WriteHeader writes the schema line.
func (d *FeatureDump) WriteHeader(ctx context.Context) error {
	return d.w.Write(ctx, FeatureHeader{
		Schema:         features.SchemaVersion,
		DelayedColumns: features.DelayedSchema,
		EarlyColumns:   features.EarlySchema,
	})
}

// Store writes the rows of result.
func (d *FeatureDump) Store(ctx context.Context, result model.Result) error { //nolint:gocritic // hugeParam: matches the worker Sink
	delayed, early := result.Rows(features.DelayedSchema, features.EarlySchema)
	return d.w.Write(ctx, FeatureRows{EventID: result.EventID, Delayed: delayed, Early: early})
}
