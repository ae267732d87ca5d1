package hitcluster_test

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/okian/ntag/internal/domain/detector"
	"github.com/okian/ntag/internal/domain/hitcluster"
	"github.com/okian/ntag/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
	"gonum.org/v1/gonum/spatial/r3"
)

func hitsAt(times ...float64) []model.Hit {
	hits := make([]model.Hit, len(times))
	for i, t := range times {
		hits[i] = model.Hit{Time: t, Charge: 1, Channel: uint32(i)}
	}
	return hits
}

func uniform(n int, step float64) []model.Hit {
	times := make([]float64, n)
	for i := range times {
		times[i] = float64(i) * step
	}
	return hitsAt(times...)
}

func TestSort(t *testing.T) {
	Convey("Given hits appended out of order", t, func() {
		c := hitcluster.New(nil)
		c.Append(model.Hit{Time: 5, Channel: 1})
		c.Append(model.Hit{Time: 1, Channel: 2})
		c.Append(model.Hit{Time: 5, Channel: 3})
		c.Append(model.Hit{Time: 3, Channel: 4})

		Convey("Then time queries fail until sorted", func() {
			So(c.IsSorted(), ShouldBeFalse)
			_, err := c.Slice(0, 10)
			So(errors.Is(err, hitcluster.ErrUnsorted), ShouldBeTrue)
			_, err = c.LowerBound(1)
			So(errors.Is(err, hitcluster.ErrUnsorted), ShouldBeTrue)
			So(errors.Is(c.ApplyDeadtime(1), hitcluster.ErrUnsorted), ShouldBeTrue)
		})

		Convey("When sorted", func() {
			c.Sort()

			Convey("Then times are non-decreasing and ties keep insertion order", func() {
				So(c.IsSorted(), ShouldBeTrue)
				So(c.Times(), ShouldResemble, []float64{1, 3, 5, 5})
				h2, _ := c.At(2)
				h3, _ := c.At(3)
				So(h2.Channel, ShouldEqual, 1)
				So(h3.Channel, ShouldEqual, 3)
			})
		})
	})

	Convey("Given random hits", t, func() {
		r := rand.New(rand.NewSource(7))
		hits := make([]model.Hit, 500)
		for i := range hits {
			hits[i] = model.Hit{Time: math.Floor(r.Float64() * 1000)}
		}
		c := hitcluster.New(hits)
		c.Sort()

		Convey("Then every neighbour pair is ordered", func() {
			ts := c.Times()
			ok := true
			for i := 0; i+1 < len(ts); i++ {
				if ts[i] > ts[i+1] {
					ok = false
				}
			}
			So(ok, ShouldBeTrue)
		})
	})
}

func TestAppendCluster(t *testing.T) {
	Convey("Given a cluster with in-gate and out-of-gate hits", t, func() {
		other := hitcluster.New([]model.Hit{
			{Time: 1, Gate: model.InGate},
			{Time: 2},
			{Time: 3, Gate: model.InGate | 1},
		})
		c := hitcluster.New(nil)

		Convey("Then in-gate filtering keeps only flagged hits", func() {
			c.AppendCluster(other, true)
			So(c.Times(), ShouldResemble, []float64{1, 3})
		})

		Convey("Then unfiltered append keeps all", func() {
			c.AppendCluster(other, false)
			So(c.Len(), ShouldEqual, 3)
		})
	})
}

func TestSlice(t *testing.T) {
	Convey("Given 50 hits spaced 10 ns apart", t, func() {
		c := hitcluster.New(uniform(50, 10))
		c.Sort()

		Convey("Then a 200 ns window from hit 0 holds 20 hits", func() {
			w, err := c.Slice(0, 200)
			So(err, ShouldBeNil)
			So(w.Len(), ShouldEqual, 20)
			So(w.IsSorted(), ShouldBeTrue)
		})

		Convey("Then offset windows are half-open", func() {
			w, err := c.SliceOffsets(10, 75, 125)
			So(err, ShouldBeNil)
			So(w.Times(), ShouldResemble, []float64{180, 190, 200, 210, 220})
		})

		Convey("Then windows past the end are truncated", func() {
			w, err := c.Slice(45, 200)
			So(err, ShouldBeNil)
			So(w.Len(), ShouldEqual, 5)
		})

		Convey("Then a time-anchored range ignores the index", func() {
			w, err := c.SliceRange(100, -15, 15)
			So(err, ShouldBeNil)
			So(w.Times(), ShouldResemble, []float64{90, 100, 110})
		})

		Convey("Then out-of-range starts fail", func() {
			_, err := c.Slice(50, 200)
			So(errors.Is(err, hitcluster.ErrIndexOutOfRange), ShouldBeTrue)
			_, err = c.Slice(-1, 200)
			So(errors.Is(err, hitcluster.ErrIndexOutOfRange), ShouldBeTrue)
			_, err = c.At(99)
			So(errors.Is(err, hitcluster.ErrIndexOutOfRange), ShouldBeTrue)
		})

		Convey("Then bounds use binary search semantics", func() {
			lb, _ := c.LowerBound(100)
			ub, _ := c.UpperBound(100)
			So(lb, ShouldEqual, 10)
			So(ub, ShouldEqual, 11)
			i, err := c.Index(100)
			So(err, ShouldBeNil)
			So(i, ShouldEqual, 10)
			_, err = c.Index(105)
			So(errors.Is(err, hitcluster.ErrIndexOutOfRange), ShouldBeTrue)
		})
	})

	Convey("Given an empty cluster", t, func() {
		c := hitcluster.New(nil)

		Convey("Then slicing reports it", func() {
			_, err := c.Slice(0, 200)
			So(errors.Is(err, hitcluster.ErrEmpty), ShouldBeTrue)
		})
	})
}

func TestApplyDeadtime(t *testing.T) {
	Convey("Given hits at 0, 100, 1000 and 1050", t, func() {
		c := hitcluster.New(hitsAt(0, 100, 1000, 1050))

		Convey("When a 900 ns deadtime is applied", func() {
			So(c.ApplyDeadtime(900), ShouldBeNil)

			Convey("Then only hits at 0 and 1000 remain", func() {
				So(c.Times(), ShouldResemble, []float64{0, 1000})
			})
		})
	})

	Convey("Given dense random hits", t, func() {
		r := rand.New(rand.NewSource(3))
		hits := make([]model.Hit, 300)
		for i := range hits {
			hits[i] = model.Hit{Time: r.Float64() * 5000}
		}
		c := hitcluster.New(hits)
		c.Sort()
		before := c.Len()

		Convey("Then the result is no larger, sorted, and spaced by the deadtime", func() {
			So(c.ApplyDeadtime(50), ShouldBeNil)
			So(c.Len(), ShouldBeLessThanOrEqualTo, before)
			ts := c.Times()
			ok := true
			for i := 0; i+1 < len(ts); i++ {
				if ts[i+1]-ts[i] < 50 {
					ok = false
				}
			}
			So(ok, ShouldBeTrue)
		})
	})
}

func TestTransforms(t *testing.T) {
	geom := detector.Table{
		0: {X: 1000},
		1: {X: -1000},
		2: {Z: 500},
	}

	Convey("Given a sorted cluster", t, func() {
		c := hitcluster.New([]model.Hit{
			{Time: 10, Channel: 0},
			{Time: 20, Channel: 1},
			{Time: 30, Channel: 2},
		})

		Convey("Then Shift leaves the source untouched", func() {
			s := c.Shift(5)
			So(s.Times(), ShouldResemble, []float64{15, 25, 35})
			So(c.Times(), ShouldResemble, []float64{10, 20, 30})
		})

		Convey("When subtracting time of flight from a vertex near channel 1", func() {
			out, err := c.SubtractTOF(r3.Vec{X: -900}, geom)

			Convey("Then hits are corrected and re-sorted", func() {
				So(err, ShouldBeNil)
				So(out.IsSorted(), ShouldBeTrue)
				ts := out.Times()
				So(ts[0], ShouldAlmostEqual, 10-1900/detector.LightSpeedInWater, 1e-9)
				So(ts[2], ShouldAlmostEqual, 20-100/detector.LightSpeedInWater, 1e-9)
				h, _ := out.At(0)
				So(h.Channel, ShouldEqual, 0)
				So(c.Times(), ShouldResemble, []float64{10, 20, 30})
			})

			Convey("Then a second subtraction is relative to the new vertex only", func() {
				again, err := out.SubtractTOF(r3.Vec{}, geom)
				So(err, ShouldBeNil)
				direct, _ := c.SubtractTOF(r3.Vec{}, geom)
				for i, ts := range again.Times() {
					So(ts, ShouldAlmostEqual, direct.Times()[i], 1e-9)
				}
				v, ok := again.TOFVertex()
				So(ok, ShouldBeTrue)
				So(v, ShouldResemble, r3.Vec{})
				_, ok = c.TOFVertex()
				So(ok, ShouldBeFalse)
			})
		})

		Convey("Then unknown channels are reported", func() {
			c.Append(model.Hit{Time: 40, Channel: 9})
			_, err := c.SubtractTOF(r3.Vec{}, geom)
			So(errors.Is(err, hitcluster.ErrUnknownChannel), ShouldBeTrue)
			_, err = c.Directions(r3.Vec{}, geom)
			So(errors.Is(err, hitcluster.ErrUnknownChannel), ShouldBeTrue)
		})

		Convey("Then directions are unit vectors from the vertex", func() {
			dirs, err := c.Directions(r3.Vec{}, geom)
			So(err, ShouldBeNil)
			So(dirs, ShouldResemble, []r3.Vec{{X: 1}, {X: -1}, {Z: 1}})
			So(c.Charges(), ShouldResemble, []float64{0, 0, 0})
		})
	})
}
