package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/okian/ntag/internal/adapters/vertex"
	service "github.com/okian/ntag/internal/app"
	"github.com/okian/ntag/internal/domain/detector"
	"github.com/okian/ntag/internal/domain/features"
	"github.com/okian/ntag/internal/domain/matching"
	"github.com/okian/ntag/internal/domain/scoring"
	"github.com/okian/ntag/internal/domain/search"
	"github.com/okian/ntag/internal/domain/tagging"
	"github.com/okian/ntag/internal/domain/types"
	"github.com/okian/ntag/internal/simulate"
	. "github.com/smartystreets/goconvey/convey"
)

func TestServiceIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping simulated batch in short mode")
	}

	Convey("Given a full pipeline over simulated events", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		geom := simulate.Geometry(detector.DefaultTank, 8, 32)
		gen := simulate.New(geom, simulate.WithSeed(7), simulate.WithCaptures(1, 2))
		events, err := gen.Generate(ctx, 12, 4)
		So(err, ShouldBeNil)

		scorer, err := scoring.NewLinearScorer()
		So(err, ShouldBeNil)
		policy := tagging.ScorePolicy{ScoreCut: 0.5}
		grid := features.GridConfig{InitWidth: 400, MinWidth: 50, ShrinkRate: 0.5, SearchRange: 5000}
		ex := features.NewExtractor(geom, vertex.New(geom), scorer, policy, features.WithWidth(14), features.WithGrid(grid))
		delayed, err := search.New(search.DefaultParams())
		So(err, ShouldBeNil)
		early, err := search.New(search.DefaultEarlyParams())
		So(err, ShouldBeNil)

		pipeline := service.NewPipeline(geom, ex, delayed, matching.New(200), policy,
			service.WithEarlySearch(early),
			service.WithSeparation(400),
		)
		svc := service.New(pipeline, service.WithWorkerCount(4), service.WithQueueSize(4))

		Convey("When the batch is run twice over the same events", func() {
			summary, err := svc.Run(ctx, service.NewSliceSource(append(events, events...)))

			Convey("Then duplicates are skipped and every event is stored", func() {
				So(err, ShouldBeNil)
				So(summary.Submitted, ShouldEqual, 12)
				So(summary.Duplicates, ShouldEqual, 12)
				So(summary.Failed, ShouldEqual, 0)
				So(summary.Stored, ShouldEqual, 12)
			})

			Convey("Then the stored totals match the truth in the input", func() {
				var trueN, trueE int
				for _, e := range events {
					for _, tg := range e.Taggables {
						switch tg.Type {
						case types.TaggableNeutron:
							trueN++
						case types.TaggableDecayElectron:
							trueE++
						}
					}
				}
				So(summary.Totals.TrueNeutrons, ShouldEqual, trueN)
				So(summary.Totals.TrueElectrons, ShouldEqual, trueE)
			})

			Convey("Then every stored candidate carries a label and a score", func() {
				top, err := svc.Store().TopN(ctx, 1_000)
				So(err, ShouldBeNil)
				for _, e := range top {
					So(e.Label, ShouldNotEqual, types.LabelUnset)
					So(e.Rank, ShouldBeGreaterThan, 0)
				}
			})
		})
	})
}
