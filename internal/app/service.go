// Package service wires the per-event pipeline into a batch driver: events
// are deduplicated, queued, processed in parallel by a worker pool and the
// results stored.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	eventqueue "github.com/okian/ntag/internal/adapters/mq/queue"
	workerpool "github.com/okian/ntag/internal/adapters/mq/worker"
	"github.com/okian/ntag/internal/adapters/repository"
	"github.com/okian/ntag/internal/domain/dedupe"
	"github.com/okian/ntag/internal/domain/model"
	"github.com/okian/ntag/pkg/logger"
	"github.com/okian/ntag/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// ErrNotStarted is returned when submitting to a service that is not running.
var ErrNotStarted = errors.New("service not started")

// EventSource yields events until io.EOF.
type EventSource interface {
	Next() (model.Event, error)
}

// Summary describes one Run.
type Summary struct {
	Submitted  int64          `json:"submitted"`
	Duplicates int64          `json:"duplicates"`
	Failed     int64          `json:"failed"`
	Stored     int            `json:"stored"`
	Totals     model.Counters `json:"totals"`
}

// Service drives many events through a Pipeline.
type Service struct {
	mu sync.RWMutex

	processor workerpool.Processor
	store     repository.Store
	sinks     []workerpool.Sink
	deduper   dedupe.Deduper
	queue     eventqueue.Queue
	pool      *workerpool.Pool

	workerCount int
	queueSize   int
	dedupeSize  int

	submitted  atomic.Int64
	duplicates atomic.Int64
	failed     atomic.Int64

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the duplicate-event guard.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithStore replaces the default in-memory result store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithSink adds a sink that receives every result after the store.
func WithSink(sink workerpool.Sink) Option {
	return func(s *Service) {
		if sink != nil {
			s.sinks = append(s.sinks, sink)
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a Service around processor.
func New(processor workerpool.Processor, opts ...Option) *Service {
	s := &Service{
		processor:   processor,
		workerCount: runtime.NumCPU(),
		queueSize:   1024,
		dedupeSize:  500_000,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// fanout stores a result in the repository and then every extra sink.
type fanout []workerpool.Sink

func (f fanout) Store(ctx context.Context, result model.Result) error { //nolint:gocritic // hugeParam: matches the worker Sink
	for _, sink := range f {
		if err := sink.Store(ctx, result); err != nil {
			return err
		}
	}
	metrics.RecordEventProcessed()
	return nil
}

// Start creates the queue and worker pool. Calling Start twice is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.processor == nil {
		return fmt.Errorf("service needs a processor")
	}

	if s.store == nil {
		s.store = repository.NewTreapStore()
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))

	sink := append(fanout{s.store}, s.sinks...)
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.processor, sink,
		workerpool.WithErrorHandler(s.onFailure),
	)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "ntag service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

func (s *Service) onFailure(ctx context.Context, eventID string, err error) {
	s.failed.Add(1)
	metrics.RecordEventFailed()
	// A failed event may be resubmitted.
	s.deduper.Unrecord(ctx, eventID)
}

// Submit queues an event, blocking while the queue is full. It returns false
// without error for an event ID already submitted. Events without an ID get
// a random one.
func (s *Service) Submit(ctx context.Context, e model.Event) (bool, error) { //nolint:gocritic // hugeParam: Event is the queue payload
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return false, ErrNotStarted
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if s.deduper.SeenAndRecord(ctx, e.ID) {
		s.duplicates.Add(1)
		metrics.RecordEventDuplicate()
		s.logger.Debug(ctx, "duplicate event skipped", logger.String("eventID", e.ID))
		return false, nil
	}
	if err := s.queue.EnqueueWait(ctx, e); err != nil {
		s.deduper.Unrecord(ctx, e.ID)
		return false, err
	}
	s.submitted.Add(1)
	return true, nil
}

// Run starts the service, submits every event from src, waits for all of
// them to be processed and stops. A Service runs at most once.
func (s *Service) Run(ctx context.Context, src EventSource) (Summary, error) {
	if err := s.Start(ctx); err != nil {
		return Summary{}, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			e, err := src.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("read event: %w", err)
			}
			if _, err := s.Submit(gctx, e); err != nil {
				return err
			}
		}
	})
	readErr := g.Wait()
	drainErr := s.pool.Drain(ctx)

	s.mu.Lock()
	s.started = false
	s.mu.Unlock()

	summary := s.Summary(ctx)
	s.logger.Info(ctx, "ntag run finished",
		logger.Int("submitted", int(summary.Submitted)),
		logger.Int("duplicates", int(summary.Duplicates)),
		logger.Int("failed", int(summary.Failed)),
		logger.Int("taggedNeutrons", summary.Totals.TaggedNeutrons),
		logger.Int("trueNeutrons", summary.Totals.TrueNeutrons),
	)
	return summary, errors.Join(readErr, drainErr)
}

// Stop stops intake and the workers without waiting for the queue to drain.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.started = false
	s.logger.Info(ctx, "stopping ntag service")
	return s.pool.Shutdown(ctx)
}

// Store returns the result store. It is nil before Start.
func (s *Service) Store() repository.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

// Summary returns counts so far.
func (s *Service) Summary(ctx context.Context) Summary {
	sum := Summary{
		Submitted:  s.submitted.Load(),
		Duplicates: s.duplicates.Load(),
		Failed:     s.failed.Load(),
	}
	if store := s.Store(); store != nil {
		sum.Stored = store.Count(ctx)
		sum.Totals = store.Totals(ctx)
	}
	return sum
}

// SliceSource serves events from memory.
type SliceSource struct {
	events []model.Event
	next   int
}

// NewSliceSource returns a source over events.
func NewSliceSource(events []model.Event) *SliceSource {
	return &SliceSource{events: events}
}

// Next implements EventSource.
func (s *SliceSource) Next() (model.Event, error) {
	if s.next >= len(s.events) {
		return model.Event{}, io.EOF
	}
	e := s.events[s.next]
	s.next++
	return e, nil
}
