package config_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/ntag/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func ptr(v float64) *float64 { return &v }

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should be valid", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
			convey.So(cfg.Input, convey.ShouldEqual, "-")
			convey.So(cfg.WorkerCount, convey.ShouldBeGreaterThan, 0)
			convey.So(cfg.SeparationScoreCut(), convey.ShouldEqual, 0.7)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New(context.Background())

		cases := []struct {
			name   string
			mutate func(*config.Config)
		}{
			{"log format", func(c *config.Config) { c.LogFormat = "xml" }},
			{"workers", func(c *config.Config) { c.WorkerCount = 0 }},
			{"queue", func(c *config.Config) { c.QueueSize = 0 }},
			{"nhits range", func(c *config.Config) { c.Search.NHitsMax = 1 }},
			{"t0 range", func(c *config.Config) { c.Search.T0Max = c.Search.T0Min - 1 }},
			{"early width", func(c *config.Config) { c.Early.TWidth = 0 }},
			{"match window", func(c *config.Config) { c.MatchWindow = 0 }},
			{"prune window", func(c *config.Config) { c.PruneWindow = -1 }},
			{"deadtime", func(c *config.Config) { c.Deadtime = -1 }},
			{"demo events", func(c *config.Config) { c.DemoEvents = -1 }},
			{"shrink rate", func(c *config.Config) { c.Vertex.ShrinkRate = 1 }},
			{"grid widths", func(c *config.Config) { c.Vertex.MinGridWidth = 1000 }},
			{"noise file", func(c *config.Config) { c.Noise.Enabled = true }},
			{"separation cuts", func(c *config.Config) { c.Separation = config.SeparationConfig{Enabled: true, N50Cut: ptr(1), TimeCut: ptr(1)} }},
		}

		for _, tc := range cases {
			convey.Convey("When the "+tc.name+" is wrong", func() {
				tc.mutate(cfg)
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}

		convey.Convey("When the early search is disabled its gates are not checked", func() {
			cfg.Early.Enabled = false
			cfg.Early.TWidth = 0
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When separation has every cut", func() {
			cfg.Separation = config.SeparationConfig{Enabled: true, N50Cut: ptr(0), TimeCut: ptr(0), ScoreCut: ptr(0)}
			convey.So(cfg.Validate(), convey.ShouldBeNil)
			convey.So(cfg.SeparationScoreCut(), convey.ShouldEqual, 0)
		})
	})
}
