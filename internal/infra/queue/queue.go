package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is one background run. A nil return ends the task; an error
// schedules a retry until the attempt cap.
type Task func(ctx context.Context) error

type job struct {
	name    string
	task    Task
	attempt int
}

// Queue is a small in-process worker pool honoring the orchestrators'
// contract with their task queue: run-once-per-enqueue, retry with
// backoff up to a fixed attempt count.
type Queue struct {
	mu      sync.Mutex
	closed  bool
	jobs    chan job
	wg      sync.WaitGroup
	maxAttempts int
	backoff     time.Duration
	logger      *zap.Logger
}

func New(workers, maxAttempts int, backoff time.Duration, log *zap.Logger) *Queue {
	if workers <= 0 {
		workers = 4
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if log == nil {
		log = zap.NewNop()
	}
	q := &Queue{
		jobs:        make(chan job, 128),
		maxAttempts: maxAttempts,
		backoff:     backoff,
		logger:      log,
	}
	for i := 0; i < workers; i++ {
		go q.worker()
	}
	return q
}

// Enqueue schedules a task. Enqueues after Shutdown are dropped with a
// log line rather than panicking a request handler.
func (q *Queue) Enqueue(name string, t Task) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Warn("queue closed, dropping task", zap.String("task", name))
		return
	}
	q.wg.Add(1)
	q.mu.Unlock()

	q.jobs <- job{name: name, task: t, attempt: 1}
}

// Shutdown stops accepting work and waits for in-flight tasks (including
// scheduled retries) to drain, bounded by ctx.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		close(q.jobs)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) worker() {
	for j := range q.jobs {
		q.run(j)
	}
}

func (q *Queue) run(j job) {
	err := q.execute(j)
	if err == nil {
		q.wg.Done()
		return
	}

	if j.attempt >= q.maxAttempts {
		q.logger.Error("task exhausted retries",
			zap.String("task", j.name), zap.Int("attempts", j.attempt), zap.Error(err))
		q.wg.Done()
		return
	}

	q.logger.Warn("task failed, scheduling retry",
		zap.String("task", j.name), zap.Int("attempt", j.attempt), zap.Error(err))
	next := job{name: j.name, task: j.task, attempt: j.attempt + 1}
	// wg stays held across the backoff so Shutdown waits for the retry.
	time.AfterFunc(q.backoff, func() {
		q.jobs <- next
	})
}

func (q *Queue) execute(j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panic: %v", r)
		}
	}()
	return j.task(context.Background())
}
