package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is a unit of background work. Its error is only logged.
type Task func(ctx context.Context) error

type job struct {
	name string
	fn   Task
}

// Queue runs tasks one at a time in submission order on a single goroutine.
// Submit never blocks; when the buffer is full the task is dropped and
// logged, since the caller is the hub's dispatch loop.
type Queue struct {
	name    string
	jobs    chan job
	timeout time.Duration
	log     *zap.Logger

	stopOnce sync.Once
	done     chan struct{}
}

func NewQueue(name string, size int, timeout time.Duration, log *zap.Logger) *Queue {
	if size <= 0 {
		size = 256
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Queue{
		name:    name,
		jobs:    make(chan job, size),
		timeout: timeout,
		log:     log.With(zap.String("queue", name)),
		done:    make(chan struct{}),
	}
}

// Submit enqueues fn. Reports false if the queue is full or stopped.
func (q *Queue) Submit(name string, fn Task) bool {
	select {
	case <-q.done:
		return false
	default:
	}
	select {
	case q.jobs <- job{name: name, fn: fn}:
		return true
	default:
		q.log.Warn("task dropped, queue full", zap.String("task", name))
		return false
	}
}

// Run drains the queue until ctx is cancelled or Stop is called. Tasks
// already queued when Stop is called are still executed.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-q.jobs:
			q.exec(ctx, j)
		case <-q.done:
			for {
				select {
				case j := <-q.jobs:
					q.exec(ctx, j)
				default:
					return
				}
			}
		}
	}
}

func (q *Queue) exec(ctx context.Context, j job) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("task panicked", zap.String("task", j.name), zap.Any("panic", r))
		}
	}()

	tctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	if err := j.fn(tctx); err != nil {
		q.log.Warn("task failed", zap.String("task", j.name), zap.Error(err))
	}
}

// Stop makes Run return once the queued tasks are drained.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() { close(q.done) })
}
