// Package persist mirrors in-memory scene mutations into the durable store
// from a background goroutine. Writes are fire-and-forget: a failure is
// logged and counted, never retried, and never surfaces to the client whose
// command already succeeded in memory.
package persist

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"battlemat/server/internal/store"
)

// OpKind identifies which store call an op maps to.
type OpKind int

const (
	OpInsertBattlemap OpKind = iota
	OpUpdateBattlemap
	OpDeleteBattlemap
	OpInsertCover
	OpUpdateCover
	OpDeleteCover
)

func (k OpKind) String() string {
	switch k {
	case OpInsertBattlemap:
		return "insert-battlemap"
	case OpUpdateBattlemap:
		return "update-battlemap"
	case OpDeleteBattlemap:
		return "delete-battlemap"
	case OpInsertCover:
		return "insert-cover"
	case OpUpdateCover:
		return "update-cover"
	case OpDeleteCover:
		return "delete-cover"
	}
	return "unknown"
}

// Op is one queued row mutation. Battlemap and Cover are set for inserts and
// updates; ID for deletes.
type Op struct {
	Kind      OpKind
	Battlemap *store.BattlemapRow
	Cover     *store.CoverRow
	ID        string
}

// Config tunes the writer queue.
type Config struct {
	QueueSize        int
	DropWarnInterval time.Duration
}

// Stats counts the writer's lifetime activity for diagnostics.
type Stats struct {
	Enqueued   uint64 `json:"enqueued"`
	Applied    uint64 `json:"applied"`
	Failed     uint64 `json:"failed"`
	Dropped    uint64 `json:"dropped"`
	QueueDepth int    `json:"queueDepth"`
}

// Writer consumes a bounded op queue with a single goroutine, keeping the
// store eventually consistent with memory. Enqueue never blocks: when the
// queue is full the op is dropped and counted, with rate-limited warnings.
type Writer struct {
	store  store.Store
	queue  chan Op
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool

	dropWarnInterval time.Duration
	lastDropLog      atomic.Int64

	enqueued atomic.Uint64
	applied  atomic.Uint64
	failed   atomic.Uint64
	dropped  atomic.Uint64
}

// NewWriter starts the background worker over the given store.
func NewWriter(st store.Store, cfg Config, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 512
	}
	warnInterval := cfg.DropWarnInterval
	if warnInterval <= 0 {
		warnInterval = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Writer{
		store:            st,
		queue:            make(chan Op, queueSize),
		logger:           logger,
		ctx:              ctx,
		cancel:           cancel,
		dropWarnInterval: warnInterval,
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// Enqueue schedules an op, reporting false when it was dropped.
func (w *Writer) Enqueue(op Op) bool {
	if w == nil || w.closed.Load() {
		return false
	}
	select {
	case w.queue <- op:
		w.enqueued.Add(1)
		return true
	default:
		w.handleDrop(op)
		return false
	}
}

func (w *Writer) handleDrop(op Op) {
	w.dropped.Add(1)
	now := time.Now().UnixNano()
	next := w.lastDropLog.Load()
	if next == 0 || now >= next {
		if w.lastDropLog.CompareAndSwap(next, now+w.dropWarnInterval.Nanoseconds()) {
			w.logger.Warn("persistence queue full, dropping op",
				zap.String("op", op.Kind.String()),
				zap.Uint64("droppedTotal", w.dropped.Load()))
		}
	}
}

func (w *Writer) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			w.drain()
			return
		case op := <-w.queue:
			w.apply(op)
		}
	}
}

func (w *Writer) drain() {
	for {
		select {
		case op := <-w.queue:
			w.apply(op)
		default:
			return
		}
	}
}

func (w *Writer) apply(op Op) {
	var err error
	switch op.Kind {
	case OpInsertBattlemap:
		err = w.store.InsertBattlemap(context.Background(), *op.Battlemap)
	case OpUpdateBattlemap:
		err = w.store.UpdateBattlemap(context.Background(), *op.Battlemap)
	case OpDeleteBattlemap:
		err = w.store.DeleteBattlemap(context.Background(), op.ID)
	case OpInsertCover:
		err = w.store.InsertCover(context.Background(), *op.Cover)
	case OpUpdateCover:
		err = w.store.UpdateCover(context.Background(), *op.Cover)
	case OpDeleteCover:
		err = w.store.DeleteCover(context.Background(), op.ID)
	}
	if err != nil {
		w.failed.Add(1)
		w.logger.Error("persistence write failed",
			zap.String("op", op.Kind.String()),
			zap.Error(err))
		return
	}
	w.applied.Add(1)
}

// Close drains queued ops and stops the worker.
func (w *Writer) Close(ctx context.Context) error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats snapshots the lifetime counters.
func (w *Writer) Stats() Stats {
	return Stats{
		Enqueued:   w.enqueued.Load(),
		Applied:    w.applied.Load(),
		Failed:     w.failed.Load(),
		Dropped:    w.dropped.Load(),
		QueueDepth: len(w.queue),
	}
}
