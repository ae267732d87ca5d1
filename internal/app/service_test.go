package service_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	service "github.com/okian/ntag/internal/app"
	"github.com/okian/ntag/internal/domain/features"
	"github.com/okian/ntag/internal/domain/model"
	"github.com/okian/ntag/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

var errProcess = errors.New("process failed")

// stubProcessor fails events whose ID starts with "fail" and otherwise
// returns one scored candidate per taggable.
type stubProcessor struct {
	mu    sync.Mutex
	calls map[string]int
}

func newStubProcessor() *stubProcessor {
	return &stubProcessor{calls: make(map[string]int)}
}

func (p *stubProcessor) Process(_ context.Context, e model.Event) (model.Result, error) {
	p.mu.Lock()
	p.calls[e.ID]++
	p.mu.Unlock()
	if strings.HasPrefix(e.ID, "fail") {
		return model.Result{}, errProcess
	}
	c := model.NewCandidate(0)
	c.Features[model.FeatureScore] = 0.8
	c.Features[model.FeatureNHits] = 9
	return model.Result{
		EventID:    e.ID,
		Candidates: []*model.Candidate{c},
		Counters:   model.Counters{TrueNeutrons: len(e.Taggables), TaggedNeutrons: 1},
	}, nil
}

func (p *stubProcessor) count(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[id]
}

type collectSink struct {
	mu      sync.Mutex
	results []model.Result
}

func (s *collectSink) Store(_ context.Context, r model.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
	return nil
}

type collectWriter struct {
	mu      sync.Mutex
	records []any
}

func (w *collectWriter) Write(_ context.Context, v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.records = append(w.records, v)
	return nil
}

type brokenSource struct {
	served bool
}

func (s *brokenSource) Next() (model.Event, error) {
	if s.served {
		return model.Event{}, io.ErrUnexpectedEOF
	}
	s.served = true
	return model.Event{ID: "only"}, nil
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with custom options", t, func() {
		svc := service.New(newStubProcessor(),
			service.WithWorkerCount(8),
			service.WithQueueSize(50_000),
			service.WithDedupeSize(25_000),
		)

		Convey("Then nothing runs until it is started", func() {
			So(svc, ShouldNotBeNil)
			So(svc.Store(), ShouldBeNil)
			ok, err := svc.Submit(context.Background(), model.Event{ID: "early"})
			So(ok, ShouldBeFalse)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})
	})

	Convey("Given a service without a processor", t, func() {
		svc := service.New(nil)

		Convey("Then it refuses to start", func() {
			So(svc.Start(context.Background()), ShouldNotBeNil)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		svc := service.New(newStubProcessor(), service.WithWorkerCount(2))
		So(svc.Start(ctx), ShouldBeNil)

		Convey("Then starting again is a no-op", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Store(), ShouldNotBeNil)
			So(svc.Stop(ctx), ShouldBeNil)
		})

		Convey("When it is stopped", func() {
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then submissions are rejected and stopping again is harmless", func() {
				_, err := svc.Submit(ctx, model.Event{ID: "late"})
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				So(svc.Stop(ctx), ShouldBeNil)
			})
		})
	})
}

func TestService_Run(t *testing.T) {
	Convey("Given a batch with a duplicate and a failing event", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		proc := newStubProcessor()
		sink := &collectSink{}
		svc := service.New(proc, service.WithWorkerCount(3), service.WithQueueSize(2), service.WithSink(sink))

		events := []model.Event{
			{ID: "a", Taggables: []model.Taggable{{Time: 1}}},
			{ID: "b"},
			{ID: "a"},
			{ID: "fail-1"},
			{ID: "c", Taggables: []model.Taggable{{Time: 1}, {Time: 2}}},
		}

		Convey("When the batch is run", func() {
			summary, err := svc.Run(ctx, service.NewSliceSource(events))

			Convey("Then every unique event is processed once", func() {
				So(err, ShouldBeNil)
				So(summary.Submitted, ShouldEqual, 4)
				So(summary.Duplicates, ShouldEqual, 1)
				So(summary.Failed, ShouldEqual, 1)
				So(summary.Stored, ShouldEqual, 3)
				So(proc.count("a"), ShouldEqual, 1)
				So(proc.count("fail-1"), ShouldEqual, 1)
			})

			Convey("Then totals accumulate over stored results", func() {
				So(summary.Totals, ShouldResemble, model.Counters{TrueNeutrons: 3, TaggedNeutrons: 3})
				So(svc.Store().CountAbove(ctx, 0.5), ShouldEqual, 3)
			})

			Convey("Then extra sinks see the same results", func() {
				So(sink.results, ShouldHaveLength, 3)
			})
		})
	})

	Convey("Given events without IDs", t, func() {
		ctx := context.Background()
		sink := &collectSink{}
		svc := service.New(newStubProcessor(), service.WithWorkerCount(1), service.WithSink(sink))

		Convey("When they are run", func() {
			summary, err := svc.Run(ctx, service.NewSliceSource([]model.Event{{}, {}}))

			Convey("Then each gets a distinct generated ID", func() {
				So(err, ShouldBeNil)
				So(summary.Submitted, ShouldEqual, 2)
				So(sink.results, ShouldHaveLength, 2)
				So(sink.results[0].EventID, ShouldHaveLength, 36)
				So(sink.results[0].EventID, ShouldNotEqual, sink.results[1].EventID)
			})
		})
	})

	Convey("Given a source that breaks after one event", t, func() {
		ctx := context.Background()
		svc := service.New(newStubProcessor(), service.WithWorkerCount(1))

		Convey("When it is run", func() {
			summary, err := svc.Run(ctx, &brokenSource{})

			Convey("Then the read error is returned after draining", func() {
				So(errors.Is(err, io.ErrUnexpectedEOF), ShouldBeTrue)
				So(summary.Stored, ShouldEqual, 1)
			})
		})
	})
}

func TestFeatureDump(t *testing.T) {
	Convey("Given a feature dump sink", t, func() {
		ctx := context.Background()
		w := &collectWriter{}
		dump := service.NewFeatureDump(w)

		Convey("When the header and one result are written", func() {
			So(dump.WriteHeader(ctx), ShouldBeNil)
			c := model.NewCandidate(4)
			c.Features[model.FeatureNHits] = 12
			So(dump.Store(ctx, model.Result{EventID: "e1", Candidates: []*model.Candidate{c}}), ShouldBeNil)

			Convey("Then the header names the schema", func() {
				So(w.records, ShouldHaveLength, 2)
				header, ok := w.records[0].(service.FeatureHeader)
				So(ok, ShouldBeTrue)
				So(header.Schema, ShouldEqual, features.SchemaVersion)
				So(header.DelayedColumns, ShouldResemble, features.DelayedSchema)
			})

			Convey("Then rows follow the schema order", func() {
				rows, ok := w.records[1].(service.FeatureRows)
				So(ok, ShouldBeTrue)
				So(rows.EventID, ShouldEqual, "e1")
				So(rows.Delayed, ShouldHaveLength, 1)
				So(rows.Delayed[0], ShouldHaveLength, len(features.DelayedSchema))
				So(rows.Early, ShouldBeEmpty)
			})
		})
	})
}
