package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/picketer/pkg/logger"
	"github.com/charlesng35/picketer/pkg/metrics"
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 256
	defaultTimeout   = 30 * time.Second
)

// Func is a unit of background work. The context carries the task timeout and
// is never tied to the HTTP request that scheduled it.
type Func func(ctx context.Context) error

// Dispatcher schedules fire-and-forget side effects such as email and push
// delivery. Dispatch never blocks the caller and reports whether the task was
// accepted.
type Dispatcher interface {
	Dispatch(name string, fn Func) bool
}

// Options sizes a Pool.
type Options struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

type job struct {
	name string
	fn   Func
}

// Pool runs tasks on a fixed set of worker goroutines fed by a bounded queue.
type Pool struct {
	queue   chan job
	timeout time.Duration
	log     *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewPool starts the workers immediately.
func NewPool(opts Options) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	p := &Pool{
		queue:   make(chan job, opts.QueueSize),
		timeout: opts.Timeout,
		log:     logger.WithModule("tasks"),
	}
	for i := 0; i < opts.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Dispatch enqueues fn. A full queue or a pool that is shutting down drops the
// task with a warning instead of blocking.
func (p *Pool) Dispatch(name string, fn Func) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.drop(name, "shutting down")
		return false
	}

	select {
	case p.queue <- job{name: name, fn: fn}:
		return true
	default:
		p.drop(name, "queue full")
		return false
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish or for
// ctx to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("tasks: shutdown: %w", ctx.Err())
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for j := range p.queue {
		execute(p.log, p.timeout, j)
	}
}

func (p *Pool) drop(name, reason string) {
	metrics.BackgroundTasks.WithLabelValues(name, "dropped").Inc()
	p.log.Warn("background task dropped", zap.String("task", name), zap.String("reason", reason))
}

// Inline runs tasks synchronously on the calling goroutine. It suits tests and
// deployments configured without workers.
type Inline struct {
	Timeout time.Duration
}

// Dispatch runs fn before returning.
func (d Inline) Dispatch(name string, fn Func) bool {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	execute(logger.WithModule("tasks"), timeout, job{name: name, fn: fn})
	return true
}

func execute(log *zap.Logger, timeout time.Duration, j job) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	err := safeRun(ctx, j.fn)
	if err != nil {
		metrics.BackgroundTasks.WithLabelValues(j.name, "error").Inc()
		log.Error("background task failed",
			zap.String("task", j.name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return
	}
	metrics.BackgroundTasks.WithLabelValues(j.name, "ok").Inc()
}

func safeRun(ctx context.Context, fn Func) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}
