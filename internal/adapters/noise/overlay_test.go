package noise_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/ntag/internal/adapters/noise"
	"github.com/okian/ntag/internal/domain/hitcluster"
	"github.com/okian/ntag/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// comb returns hits every step ns over [0, length].
func comb(length, step float64, channel uint32) []model.Hit {
	var hits []model.Hit
	for t := 0.0; t <= length; t += step {
		hits = append(hits, model.Hit{Time: t, Channel: channel, Charge: 1})
	}
	return hits
}

func TestOverlay(t *testing.T) {
	ctx := context.Background()

	Convey("Given two dense noise entries and a 2 µs window", t, func() {
		o, err := noise.New(
			[][]model.Hit{comb(10_000, 100, 1), comb(10_000, 100, 2)},
			noise.WithWindow(1_000, 3_000),
		)
		So(err, ShouldBeNil)

		Convey("When adding the first part to an empty event", func() {
			signal := hitcluster.New(nil)
			So(o.Add(ctx, signal), ShouldBeNil)

			Convey("Then the part is shifted into the window and flagged in-gate", func() {
				ts := signal.Times()
				So(ts, ShouldHaveLength, 20)
				So(ts[0], ShouldEqual, 1_000)
				So(ts[19], ShouldEqual, 2_900)
				h, _ := signal.At(0)
				So(h.IsInGate(), ShouldBeTrue)
			})
		})

		Convey("When adding to an event with signal hits", func() {
			signal := hitcluster.New([]model.Hit{{Time: 1_050, Channel: 9}})
			So(o.Add(ctx, signal), ShouldBeNil)

			Convey("Then the merged cluster is sorted", func() {
				So(signal.IsSorted(), ShouldBeTrue)
				So(signal.Len(), ShouldEqual, 21)
				h, _ := signal.At(1)
				So(h.Channel, ShouldEqual, 9)
			})
		})

		Convey("When five parts are used up", func() {
			for i := 0; i < 5; i++ {
				So(o.Add(ctx, hitcluster.New(nil)), ShouldBeNil)
			}
			entry, part := o.Position()
			So(entry, ShouldEqual, 0)
			So(part, ShouldEqual, 5)

			Convey("Then the next part comes from the next entry", func() {
				signal := hitcluster.New(nil)
				So(o.Add(ctx, signal), ShouldBeNil)
				h, _ := signal.At(0)
				So(h.Channel, ShouldEqual, 2)
			})

			Convey("Then the entries run out without repeat", func() {
				for i := 0; i < 5; i++ {
					So(o.Add(ctx, hitcluster.New(nil)), ShouldBeNil)
				}
				err := o.Add(ctx, hitcluster.New(nil))
				So(errors.Is(err, noise.ErrExhausted), ShouldBeTrue)
			})
		})
	})

	Convey("Given repeat and a density filter", t, func() {
		o, err := noise.New(
			[][]model.Hit{comb(10_000, 1_000, 1), comb(10_000, 100, 2)},
			noise.WithWindow(1_000, 3_000),
			noise.WithDensityRange(5, 20),
			noise.WithRepeat(true),
		)
		So(err, ShouldBeNil)

		Convey("Then sparse entries are skipped and the cursor wraps", func() {
			for i := 0; i < 12; i++ {
				signal := hitcluster.New(nil)
				So(o.Add(ctx, signal), ShouldBeNil)
				h, _ := signal.At(0)
				So(h.Channel, ShouldEqual, 2)
			}
		})
	})

	Convey("Given a deadtime", t, func() {
		o, _ := noise.New([][]model.Hit{comb(10_000, 100, 1)},
			noise.WithWindow(0, 2_000),
			noise.WithDeadtime(250),
		)

		Convey("Then hits closer than the deadtime are dropped", func() {
			signal := hitcluster.New(nil)
			So(o.Add(ctx, signal), ShouldBeNil)
			So(signal.Times(), ShouldResemble, []float64{0, 300, 600, 900, 1_200, 1_500, 1_800})
		})
	})

	Convey("Given degenerate inputs", t, func() {
		_, err := noise.New(nil, noise.WithWindow(5, 5))
		So(errors.Is(err, noise.ErrInvalidWindow), ShouldBeTrue)

		o, _ := noise.New([][]model.Hit{comb(100, 10, 1)}, noise.WithWindow(0, 2_000), noise.WithRepeat(true))
		err = o.Add(ctx, hitcluster.New(nil))
		So(errors.Is(err, noise.ErrExhausted), ShouldBeTrue)
	})
}
