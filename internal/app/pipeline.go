package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/ntag/internal/domain/detector"
	"github.com/okian/ntag/internal/domain/features"
	"github.com/okian/ntag/internal/domain/hitcluster"
	"github.com/okian/ntag/internal/domain/matching"
	"github.com/okian/ntag/internal/domain/model"
	"github.com/okian/ntag/internal/domain/search"
	"github.com/okian/ntag/internal/domain/tagging"
	"github.com/okian/ntag/pkg/logger"
	"github.com/okian/ntag/pkg/metrics"
	"gonum.org/v1/gonum/spatial/r3"
)

// Event-level variables written to every Result.
const (
	VarNHits     = "NHits"
	VarNEarly    = "NEarly"
	VarNDelayed  = "NDelayed"
	VarNPruned   = "NPruned"
	VarPromptX   = "PromptX"
	VarPromptY   = "PromptY"
	VarPromptZ   = "PromptZ"
	VarPromptDWl = "PromptDWall"
)

// NoiseSource appends extra hits to an event before the search.
type NoiseSource interface {
	Add(ctx context.Context, hits *hitcluster.Cluster) error
}

// Pipeline runs search, extraction, pruning and truth matching for one
// event at a time. It holds no per-event state, so one Pipeline can serve
// many goroutines as long as its collaborators are safe for concurrent use.
type Pipeline struct {
	geom      detector.Geometry
	tank      detector.Tank
	extractor *features.Extractor
	delayed   *search.Searcher
	early     *search.Searcher
	matcher   *matching.Matcher
	policy    tagging.Policy

	deadtime    float64
	separation  bool
	pruneWindow float64
	noise       NoiseSource
	logger      logger.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithEarlySearch enables the low-threshold search for events that carry no
// external early candidates.
func WithEarlySearch(s *search.Searcher) PipelineOption {
	return func(p *Pipeline) { p.early = s }
}

// WithDeadtime applies a sensor deadtime, ns, to raw hits.
func WithDeadtime(d float64) PipelineOption {
	return func(p *Pipeline) {
		if d > 0 {
			p.deadtime = d
		}
	}
}

// WithSeparation enables pruning of delayed candidates near early electrons.
func WithSeparation(pruneWindow float64) PipelineOption {
	return func(p *Pipeline) {
		p.separation = true
		p.pruneWindow = pruneWindow
	}
}

// WithNoise overlays noise hits onto every event.
func WithNoise(n NoiseSource) PipelineOption {
	return func(p *Pipeline) { p.noise = n }
}

// WithTank sets the tank used for event-level wall distances.
func WithTank(t detector.Tank) PipelineOption {
	return func(p *Pipeline) { p.tank = t }
}

// WithPipelineLogger sets a custom logger.
func WithPipelineLogger(l logger.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPipeline wires the per-event stages.
func NewPipeline(geom detector.Geometry, extractor *features.Extractor, delayed *search.Searcher, matcher *matching.Matcher, policy tagging.Policy, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		geom:      geom,
		tank:      detector.DefaultTank,
		extractor: extractor,
		delayed:   delayed,
		matcher:   matcher,
		policy:    policy,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("pipeline")
	}
	return p
}

// Process runs every stage on a fresh set of containers. Any collaborator
// failure fails the whole event and no partial Result is returned.
func (p *Pipeline) Process(ctx context.Context, event model.Event) (model.Result, error) { //nolint:gocritic // hugeParam: Event is the queue payload
	start := time.Now()

	hits := hitcluster.New(event.Hits)
	hits.Sort()
	if err := hits.ApplyDeadtime(p.deadtime); err != nil {
		return model.Result{}, p.fail(ctx, event.ID, "deadtime", err)
	}
	if p.noise != nil {
		if err := p.noise.Add(ctx, hits); err != nil {
			return model.Result{}, p.fail(ctx, event.ID, "noise", err)
		}
	}

	var prompt r3.Vec
	if event.PromptVertex != nil {
		prompt = *event.PromptVertex
	}
	corrected, err := hits.SubtractTOF(prompt, p.geom)
	if err != nil {
		return model.Result{}, p.fail(ctx, event.ID, "tof", err)
	}

	early, err := p.earlyCandidates(ctx, event, corrected, prompt)
	if err != nil {
		return model.Result{}, p.fail(ctx, event.ID, "early_search", err)
	}
	delayed, err := p.delayedCandidates(ctx, corrected, prompt)
	if err != nil {
		return model.Result{}, p.fail(ctx, event.ID, "delayed_search", err)
	}
	tagging.Apply(p.policy, early)
	tagging.Apply(p.policy, delayed)

	pruned := 0
	if p.separation {
		pruned = matching.Prune(delayed, early, p.pruneWindow)
		metrics.RecordCandidatesPruned(pruned)
	}

	taggables := make([]*model.Taggable, len(event.Taggables))
	for i := range event.Taggables {
		t := event.Taggables[i]
		taggables[i] = &t
	}
	p.matcher.Reset(taggables, early, delayed)
	p.matcher.Map(early, taggables)
	p.matcher.Map(delayed, taggables)
	counters := matching.Counters(taggables, early, delayed)

	result := model.Result{
		EventID: event.ID,
		Variables: map[string]float64{
			VarNHits:     float64(hits.Len()),
			VarNEarly:    float64(early.Len()),
			VarNDelayed:  float64(delayed.Len()),
			VarNPruned:   float64(pruned),
			VarPromptX:   prompt.X,
			VarPromptY:   prompt.Y,
			VarPromptZ:   prompt.Z,
			VarPromptDWl: p.tank.WallDistance(prompt),
		},
		Candidates:      delayed.Candidates,
		EarlyCandidates: early.Candidates,
		Taggables:       taggables,
		Counters:        counters,
	}

	p.record(result)
	metrics.RecordEventLatency(float64(time.Since(start).Microseconds()) / 1e3)
	p.logger.Debug(ctx, "event processed",
		logger.String("eventID", event.ID),
		logger.Int("hits", hits.Len()),
		logger.Int("early", early.Len()),
		logger.Int("delayed", delayed.Len()),
		logger.Int("pruned", pruned),
		logger.Int("taggedNeutrons", counters.TaggedNeutrons),
		logger.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// earlyCandidates prefers externally reconstructed pulses and falls back to
// the early search when it is enabled.
func (p *Pipeline) earlyCandidates(ctx context.Context, event model.Event, hits *hitcluster.Cluster, prompt r3.Vec) (*model.CandidateCluster, error) { //nolint:gocritic // hugeParam: Event is the queue payload
	cc := model.NewCandidateCluster(model.ClusterEarly)
	if len(event.EarlyCandidates) > 0 {
		for _, pulse := range event.EarlyCandidates {
			c := model.NewCandidate(-1)
			c.Features = p.extractor.FromPulse(pulse)
			cc.Append(c)
		}
		cc.SortByTime()
		return cc, nil
	}
	if p.early == nil {
		return cc, nil
	}

	width := p.early.Params().Width
	_, err := p.early.Search(ctx, hits, func(hitID int) error {
		fm, err := p.extractor.ExtractEarly(hits, hitID, width, prompt)
		if errors.Is(err, features.ErrEmptyWindow) {
			metrics.RecordCandidateDiscarded()
			return nil
		}
		if err != nil {
			return err
		}
		c := model.NewCandidate(hitID)
		c.Features = fm
		cc.Append(c)
		return nil
	})
	return cc, err
}

func (p *Pipeline) delayedCandidates(ctx context.Context, hits *hitcluster.Cluster, prompt r3.Vec) (*model.CandidateCluster, error) {
	cc := model.NewCandidateCluster(model.ClusterDelayed)
	_, err := p.delayed.Search(ctx, hits, func(hitID int) error {
		start := time.Now()
		fm, err := p.extractor.Extract(ctx, hits, hitID, prompt)
		metrics.RecordExtractionLatency(float64(time.Since(start).Microseconds()) / 1e3)
		if errors.Is(err, features.ErrEmptyWindow) {
			metrics.RecordCandidateDiscarded()
			return nil
		}
		if err != nil {
			return err
		}
		c := model.NewCandidate(hitID)
		c.Features = fm
		cc.Append(c)
		return nil
	})
	return cc, err
}

func (p *Pipeline) record(r model.Result) { //nolint:gocritic // hugeParam: read-only
	metrics.RecordCandidates(model.ClusterEarly, len(r.EarlyCandidates))
	metrics.RecordCandidates(model.ClusterDelayed, len(r.Candidates))
	for _, c := range r.EarlyCandidates {
		metrics.RecordLabel(model.ClusterEarly, c.Label.String())
	}
	for _, c := range r.Candidates {
		metrics.RecordLabel(model.ClusterDelayed, c.Label.String())
	}
	metrics.RecordTaggingCounts(r.Counters.TrueElectrons, r.Counters.TaggedElectrons, r.Counters.TrueNeutrons, r.Counters.TaggedNeutrons)
}

func (p *Pipeline) fail(ctx context.Context, eventID, stage string, err error) error {
	metrics.RecordErrorByComponent("pipeline", stage)
	p.logger.Error(ctx, "event failed",
		logger.String("eventID", eventID),
		logger.String("stage", stage),
		logger.Error(err),
	)
	return fmt.Errorf("event %s: %s: %w", eventID, stage, err)
}
