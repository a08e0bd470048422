// Package worker runs pipeline stages on a fixed pool of goroutines fed by
// a bounded queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/timmy/autodub/internal/logger"
)

var (
	ErrQueueFull  = errors.New("worker queue is full")
	ErrPoolClosed = errors.New("worker pool is stopped")
	ErrPanic      = errors.New("task panicked")
)

// Task is one unit of background work.
//
// Run does the work. Finish is always called afterwards with Run's error,
// or with an error wrapping ErrPanic if Run panicked.
type Task struct {
	Name   string
	Ctx    context.Context
	Run    func(ctx context.Context) error
	Finish func(ctx context.Context, err error)
}

// Config holds pool sizing.
type Config struct {
	Workers   int
	QueueSize int
}

// Stats is a point-in-time view of the pool.
type Stats struct {
	Workers   int   `json:"workers"`
	QueueSize int   `json:"queue_size"`
	Queued    int   `json:"queued"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Panicked  int64 `json:"panicked"`
	Rejected  int64 `json:"rejected"`
}

// Pool is a fixed set of workers reading from a buffered channel.
type Pool struct {
	cfg   Config
	tasks chan Task
	wg    sync.WaitGroup

	mu      sync.RWMutex
	started bool
	closed  bool

	active    atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	panicked  atomic.Int64
	rejected  atomic.Int64
}

// NewPool creates a pool. Call Start before submitting.
func NewPool(cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.Workers * 16
	}
	return &Pool{
		cfg:   cfg,
		tasks: make(chan Task, cfg.QueueSize),
	}
}

// Start launches the workers. Calling it twice is a no-op.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go func(workerID int) {
			defer p.wg.Done()
			p.worker(workerID)
		}(i)
	}
	logger.Info("Worker pool started: workers=%d queue=%d", p.cfg.Workers, p.cfg.QueueSize)
}

// Submit enqueues a task without blocking.
func (p *Pool) Submit(t Task) error {
	if t.Run == nil {
		return fmt.Errorf("task %q has no run function", t.Name)
	}
	if t.Ctx == nil {
		t.Ctx = context.Background()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.rejected.Add(1)
		return ErrPoolClosed
	}
	select {
	case p.tasks <- t:
		return nil
	default:
		p.rejected.Add(1)
		return ErrQueueFull
	}
}

// Stop closes the queue and waits for queued and in-flight tasks to finish,
// or for ctx to expire.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
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
		return fmt.Errorf("worker pool stop: %w", ctx.Err())
	}
}

// Stats returns current counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   p.cfg.Workers,
		QueueSize: p.cfg.QueueSize,
		Queued:    len(p.tasks),
		Active:    p.active.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Panicked:  p.panicked.Load(),
		Rejected:  p.rejected.Load(),
	}
}

func (p *Pool) worker(id int) {
	for t := range p.tasks {
		p.run(id, t)
	}
}

func (p *Pool) run(workerID int, t Task) {
	p.active.Add(1)
	defer p.active.Add(-1)

	ctx := logger.WithField(t.Ctx, "worker", workerID)
	start := time.Now()
	err := p.execute(ctx, t)

	entry := logger.With(logger.Fields{"task": t.Name}).WithDuration(time.Since(start).Milliseconds())
	if err != nil {
		p.failed.Add(1)
		entry.Warn(ctx, "Task %s failed: %v", t.Name, err)
	} else {
		p.completed.Add(1)
		entry.Debug(ctx, "Task %s finished", t.Name)
	}

	if t.Finish != nil {
		p.finish(ctx, t, err)
	}
}

func (p *Pool) execute(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.panicked.Add(1)
			logger.FromContext(ctx).WithField("stack", string(debug.Stack())).
				Errorf("Task %s panicked: %v", t.Name, r)
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return t.Run(ctx)
}

func (p *Pool) finish(ctx context.Context, t Task, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.CtxError(ctx, "Finish handler of %s panicked: %v", t.Name, r)
		}
	}()
	t.Finish(ctx, err)
}
