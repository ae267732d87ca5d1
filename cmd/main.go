package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/ntag/internal/adapters/jsonl"
	"github.com/okian/ntag/internal/adapters/repository"
	app "github.com/okian/ntag/internal/app"
	"github.com/okian/ntag/internal/config"
	"github.com/okian/ntag/pkg/logger"
	"github.com/okian/ntag/pkg/metrics"
	"golang.org/x/sync/errgroup"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use fmt for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(2)
	}

	// Logs go to stderr so stdout stays free for results.
	if err := logger.InitWithWriter(os.Stderr, cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(2)
	}
	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, loggerInstance); err != nil {
		loggerInstance.Error(ctx, "ntag failed", logger.Error(err))
		os.Exit(1)
	}
}

// run processes one batch and serves metrics while it lasts.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	geom, err := loadGeometry(cfg)
	if err != nil {
		return err
	}
	pipeline, err := buildPipeline(cfg, geom, log)
	if err != nil {
		return err
	}

	out, err := openOutput(cfg.Output)
	if err != nil {
		return err
	}
	defer out.Close()
	results := jsonl.NewWriter(out)

	opts := []app.Option{
		app.WithLogger(log),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithStore(repository.NewTreapStore(repository.WithMaxResults(cfg.MaxResults))),
		app.WithSink(results),
	}

	var dump *jsonl.Writer
	if cfg.FeatureDump != "" {
		f, err := openOutput(cfg.FeatureDump)
		if err != nil {
			return err
		}
		defer f.Close()
		dump = jsonl.NewWriter(f)
		fd := app.NewFeatureDump(dump)
		if err := fd.WriteHeader(ctx); err != nil {
			return err
		}
		opts = append(opts, app.WithSink(fd))
	}

	src, closer, err := eventSource(ctx, cfg, geom)
	if err != nil {
		return err
	}
	defer closer.Close()

	svc := app.New(pipeline, opts...)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	if cfg.MetricsAddr != "" {
		g.Go(func() error { return serveMetrics(gctx, cfg.MetricsAddr, log) })
	}
	g.Go(func() error {
		startSystemMetricsUpdater(gctx)
		return nil
	})
	g.Go(func() error {
		// Ending the batch stops the metrics server and updater.
		defer cancel()
		summary, err := svc.Run(gctx, src)
		log.Info(ctx, "batch summary",
			logger.Int("stored", summary.Stored),
			logger.Int("taggedElectrons", summary.Totals.TaggedElectrons),
			logger.Int("trueElectrons", summary.Totals.TrueElectrons),
			logger.Int("taggedNeutrons", summary.Totals.TaggedNeutrons),
			logger.Int("trueNeutrons", summary.Totals.TrueNeutrons),
		)
		return err
	})
	runErr := g.Wait()

	if err := results.Flush(); err != nil {
		runErr = errors.Join(runErr, err)
	}
	if dump != nil {
		if err := dump.Flush(); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}
	return runErr
}

// serveMetrics exposes the custom registry until ctx is done.
func serveMetrics(ctx context.Context, addr string, log logger.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting metrics server", logger.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "metrics server shutdown failed", logger.Error(err))
	}
	return nil
}

// startSystemMetricsUpdater updates process metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	updateSystemMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
