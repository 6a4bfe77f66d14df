package tablestore

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BatchWriterConfig tunes the aggregator loop (spec §4.7).
type BatchWriterConfig struct {
	MaxConcurrency int
	MaxBatchSize   int
	RegularNap     time.Duration
	MaxNap         time.Duration
	NapShrinkStep  time.Duration

	// Actors is the pool user callbacks are posted to, round-robin, so a
	// slow or blocking user callback can never stall the aggregator loop or
	// another row's callback (spec §4.7/§5's "invoked on actors
	// exclusively"). If empty, NewBatchWriter allocates and owns a single
	// internal actor, closed alongside the writer.
	Actors []*Actor
}

// DefaultBatchWriterConfig mirrors the defaults the pack's async batch
// writer ships with. Actors is left empty; NewBatchWriter fills in an
// internally-owned actor.
func DefaultBatchWriterConfig() BatchWriterConfig {
	return BatchWriterConfig{
		MaxConcurrency: 32,
		MaxBatchSize:   200,
		RegularNap:     10 * time.Millisecond,
		MaxNap:         10 * time.Second,
		NapShrinkStep:  157 * time.Millisecond,
	}
}

func (c BatchWriterConfig) validate() error {
	if c.MaxConcurrency <= 0 || c.MaxBatchSize <= 0 || c.RegularNap <= 0 || c.MaxNap <= 0 || c.NapShrinkStep <= 0 {
		return newValidationError("batch writer config fields must all be positive")
	}
	if c.RegularNap <= time.Millisecond {
		return newValidationError("regular nap must be greater than 1ms")
	}
	if c.MaxNap < 2*c.RegularNap {
		return newValidationError("max nap must be at least 2x regular nap")
	}
	return nil
}

// nextNapAndConcurrency implements spec §4.7/§8's adaptive control loop.
func nextNapAndConcurrency(backoff bool, concurrency int, nap time.Duration, cfg BatchWriterConfig) (time.Duration, int) {
	if backoff {
		if concurrency > 1 {
			return nap, concurrency / 2
		}
		next := 2 * nap
		if next > cfg.MaxNap {
			next = cfg.MaxNap
		}
		return next, 1
	}
	if nap > cfg.RegularNap {
		shrunk := nap - cfg.NapShrinkStep
		if shrunk < cfg.RegularNap {
			shrunk = cfg.RegularNap
		}
		return shrunk, concurrency
	}
	next := concurrency + 1
	if next > cfg.MaxConcurrency {
		next = cfg.MaxConcurrency
	}
	return cfg.RegularNap, next
}

// batchItem is one queued single-row write, retained alongside its
// callback so results can be routed back per row (spec §4.7).
type batchItem struct {
	change RowChange
	cb     func(BatchWriteRowResult, error)
}

// BatchWriter aggregates single-row Put/Update/Delete calls into batched
// BatchWriteRow requests, adapting its batching cadence and fan-out to
// observed backpressure.
type BatchWriter struct {
	client *Client
	cfg    BatchWriterConfig

	actors    []*Actor
	ownActors bool
	nextActor uint64

	mu      sync.Mutex
	waiting []batchItem
	signal  chan struct{}

	ongoingRequests int32
	exit            chan struct{}
	exitOnce        sync.Once
	loopDone        chan struct{}
}

// NewBatchWriter starts a BatchWriter's aggregator goroutine against
// client.
func NewBatchWriter(client *Client, cfg BatchWriterConfig) (*BatchWriter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	actors := cfg.Actors
	ownActors := false
	if len(actors) == 0 {
		actors = []*Actor{NewActor(256)}
		ownActors = true
	}
	w := &BatchWriter{
		client:    client,
		cfg:       cfg,
		actors:    actors,
		ownActors: ownActors,
		signal:    make(chan struct{}, 1),
		exit:      make(chan struct{}),
		loopDone:  make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// dispatch posts fn to the next actor in round-robin order, per spec §5's
// "callbacks are posted round-robin" (mirroring the teacher C++'s
// mActorSelector atomic counter). Every user-facing callback this writer
// invokes after enqueue time goes through here, never directly from the
// goroutine that ran the batch's I/O.
func (w *BatchWriter) dispatch(fn func()) {
	n := atomic.AddUint64(&w.nextActor, 1)
	w.actors[int(n%uint64(len(w.actors)))].Post(fn)
}

func (w *BatchWriter) enqueue(rc RowChange, cb func(BatchWriteRowResult, error)) {
	w.mu.Lock()
	w.waiting = append(w.waiting, batchItem{change: rc, cb: cb})
	w.mu.Unlock()
	select {
	case w.signal <- struct{}{}:
	default:
	}
}

// PutRow queues a single-row put for the next batch cycle.
func (w *BatchWriter) PutRow(rc *RowPutChange, cb func(BatchWriteRowResult, error)) {
	if err := validateRowChange(rc); err != nil {
		cb(BatchWriteRowResult{}, err)
		return
	}
	w.enqueue(rc, cb)
}

// UpdateRow queues a single-row update for the next batch cycle.
func (w *BatchWriter) UpdateRow(rc *RowUpdateChange, cb func(BatchWriteRowResult, error)) {
	if err := validateRowChange(rc); err != nil {
		cb(BatchWriteRowResult{}, err)
		return
	}
	w.enqueue(rc, cb)
}

// DeleteRow queues a single-row delete for the next batch cycle.
func (w *BatchWriter) DeleteRow(rc *RowDeleteChange, cb func(BatchWriteRowResult, error)) {
	if err := validateRowChange(rc); err != nil {
		cb(BatchWriteRowResult{}, err)
		return
	}
	w.enqueue(rc, cb)
}

// Flush busy-waits until the waiting list is empty and no batch is
// in-flight (spec §4.7).
func (w *BatchWriter) Flush() {
	for {
		w.mu.Lock()
		empty := len(w.waiting) == 0
		w.mu.Unlock()
		if empty && atomic.LoadInt32(&w.ongoingRequests) == 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

// Close signals the aggregator to exit, waits for it to drain, then awaits
// any outstanding callbacks. If the writer allocated its own actor pool
// (Config.Actors was empty), that pool is closed too; a caller-supplied
// pool is left running since the caller owns its lifecycle.
func (w *BatchWriter) Close() {
	w.exitOnce.Do(func() {
		close(w.exit)
	})
	<-w.loopDone
	w.Flush()
	if w.ownActors {
		for _, a := range w.actors {
			a.Close()
		}
	}
}

func (w *BatchWriter) drainBatch(n int) []batchItem {
	w.mu.Lock()
	defer w.mu.Unlock()
	if n > len(w.waiting) {
		n = len(w.waiting)
	}
	batch := w.waiting[:n]
	w.waiting = w.waiting[n:]
	return batch
}

func (w *BatchWriter) requeueFront(items []batchItem) {
	w.mu.Lock()
	w.waiting = append(items, w.waiting...)
	w.mu.Unlock()
}

func (w *BatchWriter) loop() {
	defer close(w.loopDone)

	concurrency := w.cfg.MaxConcurrency
	nap := w.cfg.RegularNap

	for {
		select {
		case <-w.exit:
			w.mu.Lock()
			left := len(w.waiting)
			w.mu.Unlock()
			if left == 0 {
				return
			}
		case <-w.signal:
		case <-time.After(nap):
		}

		w.mu.Lock()
		pending := len(w.waiting)
		w.mu.Unlock()
		if pending == 0 {
			continue
		}

		backoff := w.runCycle(concurrency)
		nap, concurrency = nextNapAndConcurrency(backoff, concurrency, nap, w.cfg)
		w.client.logger.Debug("batch writer cycle done",
			zap.Bool("backoff", backoff), zap.Int("concurrency", concurrency), zap.Duration("nap", nap))
	}
}

// runCycle drains up to `concurrency` batches (each up to MaxBatchSize
// items) and fans them out concurrently, reporting whether any batch
// observed backoff-worthy behavior.
func (w *BatchWriter) runCycle(concurrency int) bool {
	var batches [][]batchItem
	for i := 0; i < concurrency; i++ {
		b := w.drainBatch(w.cfg.MaxBatchSize)
		if len(b) == 0 {
			break
		}
		batches = append(batches, b)
	}
	if len(batches) == 0 {
		return false
	}

	var backoffFlag int32
	g, _ := errgroup.WithContext(context.Background())
	for _, b := range batches {
		b := b
		atomic.AddInt32(&w.ongoingRequests, 1)
		g.Go(func() error {
			defer atomic.AddInt32(&w.ongoingRequests, -1)
			if w.runBatch(b) {
				atomic.StoreInt32(&backoffFlag, 1)
			}
			return nil
		})
	}
	_ = g.Wait()
	return backoffFlag != 0
}

// runBatch submits one BatchWriteRow request for items and routes results,
// returning whether the caller should back off (spec §4.7's per-row
// feedback rules). Every user callback is posted through w.dispatch, never
// invoked directly on the errgroup-spawned goroutine doing the batch's I/O
// (spec §5: "invoked on actors exclusively; must never block the event
// loop"). Client.BatchWriteRow already returns results aligned one-to-one
// with reqItems regardless of how it grouped rows by table/kind on the
// wire, so results[i] always corresponds to items[i] here.
func (w *BatchWriter) runBatch(items []batchItem) bool {
	reqItems := make([]BatchWriteRowItem, len(items))
	for i, it := range items {
		reqItems[i] = BatchWriteRowItem{Change: it.change}
	}

	var results []BatchWriteRowResult
	var callErr error
	done := make(chan struct{})
	w.client.BatchWriteRow(reqItems, func(r []BatchWriteRowResult, err error) {
		results, callErr = r, err
		close(done)
	})
	<-done

	if callErr != nil {
		if w.client.cfg.RetryPolicy.ShouldRetry(ActionBatchWriteRow, callErr) {
			w.client.logger.Warn("requeuing batch after call error", zap.Int("items", len(items)), zap.Error(callErr))
			w.requeueFront(items)
			return true
		}
		for _, it := range items {
			it := it
			w.dispatch(func() { it.cb(BatchWriteRowResult{}, callErr) })
		}
		return false
	}

	backoff := false
	var retryItems []batchItem
	for i, r := range results {
		if i >= len(items) {
			break
		}
		if r.OK {
			it, r := items[i], r
			w.dispatch(func() { it.cb(r, nil) })
			continue
		}
		rowErr := &Error{Code: r.ErrorCode, Message: r.ErrorMessage}
		if unconditionallyRetriableCodes[r.ErrorCode] || (r.ErrorCode == ErrCodeQuotaExhausted && r.ErrorMessage == quotaExhaustedMessage) {
			backoff = true
			retryItems = append(retryItems, items[i])
			continue
		}
		if idempotentOnlyRetriableCodes[r.ErrorCode] {
			retryItems = append(retryItems, items[i])
			continue
		}
		it, r := items[i], r
		w.dispatch(func() { it.cb(r, rowErr) })
	}
	if len(retryItems) > 0 {
		w.client.logger.Debug("requeuing rows for retry", zap.Int("rows", len(retryItems)), zap.Bool("backoff", backoff))
		w.requeueFront(retryItems)
	}
	return backoff
}
