package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/petfood-scanner/internal/common"
	"github.com/joseph-ayodele/petfood-scanner/internal/ocr"
	"github.com/joseph-ayodele/petfood-scanner/internal/pipeline"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// LabelProcessor is the work each queued job runs.
type LabelProcessor interface {
	ProcessLabel(ctx context.Context, path string) (pipeline.LabelResult, error)
}

// LabelQueue feeds label files to a fixed pool of workers.
type LabelQueue struct {
	proc    LabelProcessor
	logger  *slog.Logger
	workers int
	timeout time.Duration
	results chan<- Result

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	// Enqueue holds mu for reading while it sends; Shutdown closes stop to
	// wake blocked senders, then takes mu to close ch.
	mu       sync.RWMutex
	closed   bool
	stop     chan struct{}
	stopOnce sync.Once
}

// Result reports a finished job when WithResults is set.
type Result struct {
	Job   Job
	Label pipeline.LabelResult
	Err   error
}

type Option func(*LabelQueue)

func WithWorkers(n int) Option {
	return func(q *LabelQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *LabelQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *LabelQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithResults delivers every finished job on ch. Workers block on ch, so the
// reader must keep up.
func WithResults(ch chan<- Result) Option {
	return func(q *LabelQueue) { q.results = ch }
}

func NewLabelQueue(proc LabelProcessor, logger *slog.Logger, opts ...Option) *LabelQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &LabelQueue{
		proc:    proc,
		logger:  logger,
		workers: 2,
		timeout: 2 * time.Minute,
		ch:      make(chan Job, 256),
		stop:    make(chan struct{}),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *LabelQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					if job.TraceID != "" {
						ctx = common.WithRequestID(ctx, job.TraceID)
					}
					if job.ContentHash != "" {
						ctx = ocr.WithContentHash(ctx, job.ContentHash)
					}
					res, err := q.proc.ProcessLabel(ctx, job.Path)
					cancel()

					if err != nil {
						q.logger.Error("processing failed", "worker_id", workerID, "path", job.Path, "error", err)
					} else {
						q.logger.Info("processed label successfully", "worker_id", workerID, "path", job.Path, "job_id", res.JobID)
					}
					if q.results != nil {
						q.results <- Result{Job: job, Label: res, Err: err}
					}
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// Enqueue blocks while the queue is full until there is room, ctx ends, or
// the queue shuts down.
func (q *LabelQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued label for processing", "path", job.Path, "force", job.Force)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.stop:
		q.logger.Warn("enqueue abandoned: queue is shutting down", "path", job.Path)
		return ErrQueueClosed
	}
}

func (q *LabelQueue) Shutdown(ctx context.Context) {
	q.stopOnce.Do(func() { close(q.stop) })
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
