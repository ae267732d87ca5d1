package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/okian/ntag/internal/adapters/jsonl"
	"github.com/okian/ntag/internal/adapters/noise"
	"github.com/okian/ntag/internal/adapters/vertex"
	app "github.com/okian/ntag/internal/app"
	"github.com/okian/ntag/internal/config"
	"github.com/okian/ntag/internal/domain/detector"
	"github.com/okian/ntag/internal/domain/features"
	"github.com/okian/ntag/internal/domain/matching"
	"github.com/okian/ntag/internal/domain/model"
	"github.com/okian/ntag/internal/domain/scoring"
	"github.com/okian/ntag/internal/domain/search"
	"github.com/okian/ntag/internal/domain/tagging"
	"github.com/okian/ntag/internal/simulate"
	"github.com/okian/ntag/pkg/logger"
)

// Synthetic barrel used when no geometry file is configured.
const (
	demoRings   = 16
	demoPerRing = 64
)

func loadGeometry(cfg *config.Config) (detector.Table, error) {
	if cfg.GeometryFile == "" {
		return simulate.Geometry(detector.DefaultTank, demoRings, demoPerRing), nil
	}
	f, err := os.Open(cfg.GeometryFile)
	if err != nil {
		return nil, fmt.Errorf("open geometry: %w", err)
	}
	defer f.Close()
	return detector.LoadTable(f)
}

func searchParams(c config.SearchConfig) search.Params {
	return search.Params{
		T0Min:      c.T0Min,
		T0Max:      c.T0Max,
		Width:      c.TWidth,
		MinPeakSep: c.MinPeakSep,
		NHitsMin:   c.NHitsMin,
		NHitsMax:   c.NHitsMax,
		N200Max:    c.N200Max,
	}
}

func newScorer(c config.ClassifierConfig) (*scoring.LinearScorer, error) {
	if len(c.Weights) == 0 {
		return scoring.NewLinearScorer()
	}
	return scoring.NewLinearScorer(scoring.WithModel(scoring.Model{
		Version: features.SchemaVersion,
		Bias:    c.Bias,
		Weights: c.Weights,
		Means:   c.Means,
		Scales:  c.Scales,
	}))
}

func newOverlay(c config.NoiseConfig) (*noise.Overlay, error) {
	f, err := os.Open(c.File)
	if err != nil {
		return nil, fmt.Errorf("open noise file: %w", err)
	}
	defer f.Close()

	events, err := jsonl.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read noise file: %w", err)
	}
	entries := make([][]model.Hit, len(events))
	for i := range events {
		entries[i] = events[i].Hits
	}
	return noise.New(entries,
		noise.WithWindow(c.WindowStart, c.WindowEnd),
		noise.WithDeadtime(c.Deadtime),
		noise.WithDensityRange(c.MinDensity, c.MaxDensity),
		noise.WithRepeat(c.Repeat),
	)
}

// buildPipeline wires every per-event stage from cfg.
func buildPipeline(cfg *config.Config, geom detector.Table, log logger.Logger) (*app.Pipeline, error) {
	policy, err := tagging.NewPolicy(tagging.Settings{
		Separation: cfg.Separation.Enabled,
		T0Min:      cfg.Search.T0Min,
		N50Cut:     cfg.Separation.N50Cut,
		TimeCut:    cfg.Separation.TimeCut,
		ScoreCut:   cfg.SeparationScoreCut(),
	})
	if err != nil {
		return nil, err
	}
	scorer, err := newScorer(cfg.Classifier)
	if err != nil {
		return nil, err
	}
	grid := features.GridConfig{
		InitWidth:   cfg.Vertex.InitGridWidth,
		MinWidth:    cfg.Vertex.MinGridWidth,
		ShrinkRate:  cfg.Vertex.ShrinkRate,
		SearchRange: cfg.Vertex.SearchRange,
	}
	extractor := features.NewExtractor(geom, vertex.New(geom), scorer, policy,
		features.WithWidth(cfg.Search.TWidth),
		features.WithGrid(grid),
	)

	delayed, err := search.New(searchParams(cfg.Search))
	if err != nil {
		return nil, fmt.Errorf("delayed search: %w", err)
	}

	opts := []app.PipelineOption{
		app.WithDeadtime(cfg.Deadtime),
		app.WithPipelineLogger(log.Named("pipeline")),
	}
	if cfg.Early.Enabled {
		early, err := search.New(searchParams(cfg.Early.SearchConfig))
		if err != nil {
			return nil, fmt.Errorf("early search: %w", err)
		}
		opts = append(opts, app.WithEarlySearch(early))
	}
	if cfg.Separation.Enabled {
		opts = append(opts, app.WithSeparation(cfg.EffectivePruneWindow()))
	}
	if cfg.Noise.Enabled {
		overlay, err := newOverlay(cfg.Noise)
		if err != nil {
			return nil, err
		}
		opts = append(opts, app.WithNoise(overlay))
	}

	return app.NewPipeline(geom, extractor, delayed, matching.New(cfg.MatchWindow), policy, opts...), nil
}

// eventSource returns simulated events in demo mode and the input stream
// otherwise. The returned closer must be called after the run.
func eventSource(ctx context.Context, cfg *config.Config, geom detector.Table) (app.EventSource, io.Closer, error) {
	if cfg.DemoEvents > 0 {
		gen := simulate.New(geom, simulate.WithSeed(cfg.DemoSeed))
		events, err := gen.Generate(ctx, cfg.DemoEvents, cfg.WorkerCount)
		if err != nil {
			return nil, nil, err
		}
		return app.NewSliceSource(events), nopWriteCloser{}, nil
	}
	if cfg.Input == "-" {
		return jsonl.NewReader(os.Stdin), nopWriteCloser{}, nil
	}
	f, err := os.Open(cfg.Input)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return jsonl.NewReader(f), f, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func openOutput(path string) (io.WriteCloser, error) {
	if path == "-" || path == "" {
		return nopWriteCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, nil
}
