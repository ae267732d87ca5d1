package main

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/ntag/internal/adapters/jsonl"
	"github.com/okian/ntag/internal/config"
	"github.com/okian/ntag/internal/domain/tagging"
	"github.com/okian/ntag/internal/simulate"
	"github.com/okian/ntag/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func countLines(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return -1
	}
	defer f.Close()
	n := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1<<20), 64<<20)
	for sc.Scan() {
		n++
	}
	return n
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.New(context.Background())
	cfg.WorkerCount = 2
	cfg.QueueSize = 8
	cfg.Output = filepath.Join(t.TempDir(), "results.jsonl")
	return cfg
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When configuration comes from the environment", func() {
			t.Setenv("NTAG_QUEUE_SIZE", "1000")
			t.Setenv("NTAG_WORKER_COUNT", "4")
			t.Setenv("NTAG_SEARCH__NHITS_MIN", "9")

			convey.Convey("Then it should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
				convey.So(cfg.Search.NHitsMin, convey.ShouldEqual, 9)
			})
		})

		convey.Convey("When the log format is unknown", func() {
			t.Setenv("NTAG_LOG_FORMAT", "xml")

			convey.Convey("Then configuration loading should fail", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestWiring(t *testing.T) {
	convey.Convey("Given the default configuration", t, func() {
		cfg := testConfig(t)

		convey.Convey("When no geometry file is set", func() {
			geom, err := loadGeometry(cfg)

			convey.Convey("Then the synthetic barrel is used", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(geom, convey.ShouldHaveLength, demoRings*demoPerRing+demoPerRing)
			})
		})

		convey.Convey("When a geometry file is set", func() {
			path := filepath.Join(t.TempDir(), "geom.csv")
			convey.So(os.WriteFile(path, []byte("# channel,x,y,z\n0,1690,0,0\n1,0,1690,0\n"), 0o600), convey.ShouldBeNil)
			cfg.GeometryFile = path
			geom, err := loadGeometry(cfg)

			convey.Convey("Then it is read from the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(geom, convey.ShouldHaveLength, 2)
			})
		})

		convey.Convey("When the pipeline is built", func() {
			geom, _ := loadGeometry(cfg)
			p, err := buildPipeline(cfg, geom, logger.Get())

			convey.Convey("Then every stage is wired", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(p, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When separation is enabled without cuts", func() {
			geom, _ := loadGeometry(cfg)
			cfg.Separation.Enabled = true
			_, err := buildPipeline(cfg, geom, logger.Get())

			convey.Convey("Then the pipeline is refused", func() {
				convey.So(errors.Is(err, tagging.ErrMissingCut), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the noise file is missing", func() {
			geom, _ := loadGeometry(cfg)
			cfg.Noise.Enabled = true
			cfg.Noise.File = filepath.Join(t.TempDir(), "absent.jsonl")
			_, err := buildPipeline(cfg, geom, logger.Get())

			convey.Convey("Then the pipeline is refused", func() {
				convey.So(errors.Is(err, os.ErrNotExist), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the classifier weights name an unknown input", func() {
			geom, _ := loadGeometry(cfg)
			cfg.Classifier.Weights = map[string]float64{"NoSuchFeature": 1}
			_, err := buildPipeline(cfg, geom, logger.Get())

			convey.Convey("Then the pipeline is refused", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestRun(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping batch run in short mode")
	}

	convey.Convey("Given a demo configuration", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		cfg := testConfig(t)
		cfg.DemoEvents = 3
		cfg.FeatureDump = filepath.Join(t.TempDir(), "features.jsonl")

		convey.Convey("When the batch runs", func() {
			err := run(ctx, cfg, logger.Get())

			convey.Convey("Then one result and one feature line are written per event", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(countLines(cfg.Output), convey.ShouldEqual, 3)
				convey.So(countLines(cfg.FeatureDump), convey.ShouldEqual, 4)
			})
		})
	})

	convey.Convey("Given an input file of events", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		cfg := testConfig(t)
		geom, err := loadGeometry(cfg)
		convey.So(err, convey.ShouldBeNil)

		cfg.Input = filepath.Join(t.TempDir(), "events.jsonl")
		f, err := os.Create(cfg.Input)
		convey.So(err, convey.ShouldBeNil)
		w := jsonl.NewWriter(f)
		gen := simulate.New(geom, simulate.WithSeed(11))
		for i := 0; i < 2; i++ {
			convey.So(w.Write(ctx, gen.Event(i)), convey.ShouldBeNil)
		}
		convey.So(w.Flush(), convey.ShouldBeNil)
		convey.So(f.Close(), convey.ShouldBeNil)

		convey.Convey("When the batch runs", func() {
			err := run(ctx, cfg, logger.Get())

			convey.Convey("Then every event has a result line", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(countLines(cfg.Output), convey.ShouldEqual, 2)
			})
		})
	})
}

func TestSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("Then a direct update should not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("Then the updater returns when its context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		})
	})
}
