package tagging_test

import (
	"errors"
	"testing"

	"github.com/okian/ntag/internal/domain/model"
	"github.com/okian/ntag/internal/domain/tagging"
	"github.com/okian/ntag/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func ptr(v float64) *float64 { return &v }

func fm(reconCT, n50, score float64) model.FeatureMap {
	return model.FeatureMap{
		model.FeatureReconCT: reconCT,
		model.FeatureN50:     n50,
		model.FeatureScore:   score,
	}
}

func TestCutPolicy(t *testing.T) {
	Convey("Given the cut policy", t, func() {
		p := tagging.CutPolicy{T0Min: 18000, N50Cut: 50, TimeCut: 20000, ScoreCut: 0.7}

		Convey("Then candidates before the search threshold are electrons", func() {
			So(p.Classify(fm(10, 5, 0.9)), ShouldEqual, types.TagElectron)
		})

		Convey("Then bright early delayed candidates are electrons", func() {
			So(p.Classify(fm(19, 60, 0.9)), ShouldEqual, types.TagElectron)
		})

		Convey("Then bright late candidates fall through to the score", func() {
			So(p.Classify(fm(25, 60, 0.9)), ShouldEqual, types.TagNeutron)
		})

		Convey("Then low scores are missed", func() {
			So(p.Classify(fm(25, 5, 0.7)), ShouldEqual, types.TagMissed)
		})

		Convey("Then an absent N50 is not electron-like by the N50 cut", func() {
			f := model.FeatureMap{model.FeatureReconCT: 19, model.FeatureScore: 0.1}
			So(p.Classify(f), ShouldEqual, types.TagMissed)
		})
	})
}

func TestScorePolicy(t *testing.T) {
	Convey("Given the score-only policy", t, func() {
		p := tagging.ScorePolicy{ScoreCut: 0.5}

		Convey("Then early-search candidates are electrons", func() {
			So(p.Classify(model.FeatureMap{model.FeatureReconCT: 2}), ShouldEqual, types.TagElectron)
			So(p.Classify(fm(30, -1, 0.9)), ShouldEqual, types.TagElectron)
		})

		Convey("Then the score decides the rest", func() {
			So(p.Classify(fm(30, 10, 0.51)), ShouldEqual, types.TagNeutron)
			So(p.Classify(fm(30, 10, 0.5)), ShouldEqual, types.TagMissed)
		})
	})
}

func TestNewPolicy(t *testing.T) {
	Convey("Given policy settings", t, func() {
		Convey("When separation is disabled", func() {
			p, err := tagging.NewPolicy(tagging.Settings{ScoreCut: 0.3})
			So(err, ShouldBeNil)
			So(p, ShouldResemble, tagging.ScorePolicy{ScoreCut: 0.3})
		})

		Convey("When separation is enabled with every cut", func() {
			p, err := tagging.NewPolicy(tagging.Settings{Separation: true, T0Min: 1, N50Cut: ptr(0), TimeCut: ptr(2), ScoreCut: 0.3})
			So(err, ShouldBeNil)
			So(p, ShouldResemble, tagging.CutPolicy{T0Min: 1, N50Cut: 0, TimeCut: 2, ScoreCut: 0.3})
		})

		Convey("When separation is enabled without a cut", func() {
			_, err := tagging.NewPolicy(tagging.Settings{Separation: true, N50Cut: ptr(50)})
			So(errors.Is(err, tagging.ErrMissingCut), ShouldBeTrue)
			_, err = tagging.NewPolicy(tagging.Settings{Separation: true, TimeCut: ptr(50)})
			So(errors.Is(err, tagging.ErrMissingCut), ShouldBeTrue)
		})
	})
}

func TestApplyIgnoresLabel(t *testing.T) {
	Convey("Given classified candidates", t, func() {
		p := tagging.ScorePolicy{ScoreCut: 0.5}
		cc := model.NewCandidateCluster(model.ClusterDelayed)
		for _, s := range []float64{0.9, 0.1} {
			c := model.NewCandidate(0)
			c.Features = fm(30, 10, s)
			cc.Append(c)
		}
		tagging.Apply(p, cc)
		before := []types.TagClass{cc.At(0).TagClass, cc.At(1).TagClass}

		Convey("When only labels change and the policy runs again", func() {
			cc.At(0).Label = types.LabelNoise
			cc.At(1).Label = types.LabelNGd
			tagging.Apply(p, cc)

			Convey("Then tag classes are unchanged", func() {
				So(before, ShouldResemble, []types.TagClass{types.TagNeutron, types.TagMissed})
				So([]types.TagClass{cc.At(0).TagClass, cc.At(1).TagClass}, ShouldResemble, before)
				So(cc.At(0).Features[model.FeatureTagClass], ShouldEqual, float64(types.TagNeutron))
			})
		})
	})
}
