// Package dedupe guards the batch driver against processing the same event
// twice.
package dedupe

import (
	"context"
	"sync"
)

const defaultMaxSize = 50000

// Deduper records event IDs that were accepted for processing.
type Deduper interface {
	// SeenAndRecord reports whether id was already recorded and records it
	// if not.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a failed event can be resubmitted.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// fifoDeduper keeps IDs in insertion order in a queue; the map holds the
// generation of each live ID so stale queue slots are skipped on eviction.
type fifoDeduper struct {
	mu      sync.Mutex
	maxSize int
	seen    map[string]uint64
	queue   []entry
	head    int
	gen     uint64
}

type entry struct {
	id  string
	gen uint64
}

// NewInMemoryDeduper returns a Deduper with FIFO eviction.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &fifoDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]uint64)
	return d
}

func (d *fifoDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	d.gen++
	d.seen[id] = d.gen
	if d.maxSize <= 0 {
		return false
	}
	for len(d.seen) > d.maxSize {
		d.evictOldest()
	}
	d.queue = append(d.queue, entry{id: id, gen: d.gen})
	d.compactIfStale()
	return false
}

// evictOldest drops the oldest live ID. Caller holds d.mu.
func (d *fifoDeduper) evictOldest() {
	for d.head < len(d.queue) {
		e := d.queue[d.head]
		d.queue[d.head] = entry{}
		d.head++
		if g, ok := d.seen[e.id]; ok && g == e.gen {
			delete(d.seen, e.id)
			break
		}
	}
	if d.head > len(d.queue)/2 {
		d.queue = append(d.queue[:0], d.queue[d.head:]...)
		d.head = 0
	}
}

func (d *fifoDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, id)
	d.compactIfStale()
}

// compactIfStale drops stale queue slots once the queue outgrows twice the
// bound. Caller holds d.mu.
func (d *fifoDeduper) compactIfStale() {
	if d.maxSize <= 0 || len(d.queue)-d.head <= 2*d.maxSize {
		return
	}
	live := d.queue[:0]
	for _, e := range d.queue[d.head:] {
		if g, ok := d.seen[e.id]; ok && g == e.gen {
			live = append(live, e)
		}
	}
	clear(d.queue[len(live):])
	d.queue = live
	d.head = 0
}

func (d *fifoDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
