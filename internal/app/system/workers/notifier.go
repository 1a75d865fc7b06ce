// internal/app/system/workers/notifier.go
package workers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dalemusser/chitfund/internal/app/system/metrics"
	"go.uber.org/zap"
)

var errPanic = errors.New("job panicked")

// Job is one fire-and-forget unit of background work, for example a
// receipt email. Kind labels logs and metrics.
type Job struct {
	Kind string
	Run  func(ctx context.Context) error
}

// Notifier runs jobs on a fixed pool of goroutines fed by a bounded queue.
// Job failures are logged and counted; they never reach the request that
// enqueued the job.
type Notifier struct {
	log        *zap.Logger
	metrics    *metrics.Metrics
	workers    int
	jobTimeout time.Duration

	mu      sync.RWMutex
	queue   chan Job
	stopped bool
	wg      sync.WaitGroup
}

// NewNotifier creates a notifier with the given pool size, queue capacity
// and per-job timeout. Non-positive values fall back to 2 workers, 100
// slots and 30s.
func NewNotifier(logger *zap.Logger, m *metrics.Metrics, workers, queueSize int, jobTimeout time.Duration) *Notifier {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	if jobTimeout <= 0 {
		jobTimeout = 30 * time.Second
	}
	return &Notifier{
		log:        logger,
		metrics:    m,
		workers:    workers,
		jobTimeout: jobTimeout,
		queue:      make(chan Job, queueSize),
	}
}

// Start launches the worker goroutines.
func (n *Notifier) Start() {
	for i := 0; i < n.workers; i++ {
		n.wg.Add(1)
		go n.run()
	}
	n.log.Info("notifier started",
		zap.Int("workers", n.workers),
		zap.Int("queue_size", cap(n.queue)),
		zap.Duration("job_timeout", n.jobTimeout))
}

// Enqueue adds job without blocking. It returns false when the queue is
// full or the notifier has been stopped; the job is then dropped. A nil
// Notifier accepts nothing.
func (n *Notifier) Enqueue(job Job) bool {
	if n == nil {
		return false
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.stopped {
		n.drop(job, "stopped")
		return false
	}
	select {
	case n.queue <- job:
		return true
	default:
		n.drop(job, "queue full")
		return false
	}
}

// Stop refuses new jobs, lets the workers drain what is queued and waits
// for them, or until ctx is done.
func (n *Notifier) Stop(ctx context.Context) error {
	n.mu.Lock()
	if !n.stopped {
		n.stopped = true
		close(n.queue)
	}
	n.mu.Unlock()

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		n.log.Info("notifier stopped")
		return nil
	case <-ctx.Done():
		n.log.Warn("notifier stop timed out; pending jobs abandoned")
		return ctx.Err()
	}
}

func (n *Notifier) run() {
	defer n.wg.Done()
	for job := range n.queue {
		n.execute(job)
	}
}

func (n *Notifier) execute(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), n.jobTimeout)
	defer cancel()
	defer func() {
		if rec := recover(); rec != nil {
			n.log.Error("notification job panicked", zap.String("kind", job.Kind), zap.Any("panic", rec))
			n.metrics.NotificationResult(job.Kind, errPanic)
		}
	}()

	err := job.Run(ctx)
	n.metrics.NotificationResult(job.Kind, err)
	if err != nil {
		n.log.Warn("notification job failed", zap.String("kind", job.Kind), zap.Error(err))
	}
}

func (n *Notifier) drop(job Job, reason string) {
	n.metrics.NotificationDropped()
	n.log.Warn("notification dropped", zap.String("kind", job.Kind), zap.String("reason", reason))
}
