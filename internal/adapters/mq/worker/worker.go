// Package worker defines worker contracts for asynchronous fingerprint
// backfill.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/okian/wallarena/internal/adapters/pixels"
	"github.com/okian/wallarena/internal/domain/fingerprint"
	"github.com/okian/wallarena/internal/domain/model"
	"github.com/okian/wallarena/pkg/logger"
	"github.com/okian/wallarena/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Job abstracts what workers read off the queue.
// Using the model.FingerprintJob type for consistency.
type Job = model.FingerprintJob

// BlobSource loads the raw image bytes for a wallpaper.
type BlobSource interface {
	Load(ctx context.Context, id string) ([]byte, error)
}

// Gridder turns image bytes into the grid the fingerprint engine reads.
type Gridder interface {
	Grid(data []byte) (fingerprint.Gray, error)
}

// Updater persists a computed fingerprint.
type Updater interface {
	SetFingerprint(ctx context.Context, id string, fp string) (bool, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes fingerprint jobs using the provided interfaces.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	// It will process any remaining jobs before stopping.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing fingerprint jobs.
type InMemoryWorker struct {
	queue   Queue
	blobs   BlobSource
	gridder Gridder
	updater Updater
	name    string

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, blobs BlobSource, gridder Gridder, updater Updater, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		blobs:    blobs,
		gridder:  gridder,
		updater:  updater,
		name:     "worker", // default name
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"), // will be updated by options
	}

	// Apply all options
	for _, opt := range opts {
		opt(w)
	}

	// Set up logger with worker name if not already set
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer func() {
		close(w.done)
	}()

	jobChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobChan:
			if !ok {
				// Channel closed, worker should stop
				return
			}

			// Process the job
			if err := w.processJob(ctx, job); err != nil {
				w.logger.Error(ctx, "error processing job", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	// Signal shutdown
	close(w.shutdown)

	// Wait for worker to finish or context to timeout
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processJob handles a single fingerprint job. Undecodable images are
// skipped so one bad upload never stalls a backfill batch.
func (w *InMemoryWorker) processJob(ctx context.Context, job Job) error {
	// Track overall processing latency
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordWorkerProcessingLatency(float64(latency))
	}()

	data, err := w.blobs.Load(ctx, job.ItemID)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "blob_error")
		w.logger.Error(ctx, "blob load failed for job",
			logger.String("itemID", job.ItemID),
			logger.Error(err),
		)
		return fmt.Errorf("failed to load blob for %s: %w", job.ItemID, err)
	}

	// Track fingerprint latency
	fpStart := time.Now()
	grid, err := w.gridder.Grid(data)
	if err != nil {
		metrics.RecordFingerprintFailure()
		metrics.RecordErrorByComponent("worker", "decode_error")
		if errors.Is(err, pixels.ErrUnsupportedFormat) {
			// Skip, don't fail: the item just stays unfingerprinted.
			w.logger.Warn(ctx, "skipping undecodable image",
				logger.String("itemID", job.ItemID),
				logger.Error(err),
			)
			return nil
		}
		return fmt.Errorf("failed to decode image for %s: %w", job.ItemID, err)
	}
	fp := fingerprint.FromGray(grid)
	metrics.RecordFingerprintLatency(float64(time.Since(fpStart).Milliseconds()))
	metrics.RecordFingerprintComputed()

	ok, err := w.updater.SetFingerprint(ctx, job.ItemID, fp)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "store_error")
		w.logger.Error(ctx, "fingerprint update failed for job",
			logger.String("itemID", job.ItemID),
			logger.Error(err),
		)
		return fmt.Errorf("fingerprint update failed: %w", err)
	}
	if !ok {
		// Wallpaper deleted while the job was in flight.
		w.logger.Debug(ctx, "wallpaper vanished before fingerprinting",
			logger.String("itemID", job.ItemID),
		)
	}

	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	// Shutdown control
	shutdown chan struct{}

	// Logging
	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, queue Queue, blobs BlobSource, gridder Gridder, updater Updater) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    queue,
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			queue,
			blobs,
			gridder,
			updater,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	// Initialize worker metrics
	metrics.UpdateWorkerActiveCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
}

// Stop gracefully stops all workers.
func (p *Pool) Stop() {
	// Signal shutdown to all workers
	close(p.shutdown)

	// Wait for all workers to finish
	for _, worker := range p.workers {
		select {
		case <-worker.done:
			// Worker finished
		case <-time.After(workerShutdownTimeout):
			// Worker timeout
		}
	}
}

// Shutdown gracefully shuts down the entire worker pool.
func (p *Pool) Shutdown(ctx context.Context) error {
	// First close the queue to stop new jobs
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	// Signal shutdown to all workers
	close(p.shutdown)

	// Wait for all workers to finish or context to timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	metrics.UpdateWorkerActiveCount(0)
	return nil
}
