// Package syncqueue dispatches persistence work (cache writes, remote
// calls) off the mutation path. The ledger store submits tasks and
// returns to its caller immediately; the queue's workers drain them in
// the background.
package syncqueue

import (
	"context"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	taskTracer      = otel.Tracer("centavo/syncqueue")
	taskMeter       = otel.Meter("centavo/syncqueue")
	taskDuration, _ = taskMeter.Float64Histogram("syncqueue.task.duration", metric.WithDescription("Task execution duration in seconds"), metric.WithUnit("s"))
	taskTotal, _    = taskMeter.Int64Counter("syncqueue.task.total", metric.WithDescription("Total tasks executed by status"))
	taskOverflow, _ = taskMeter.Int64Counter("syncqueue.task.overflow", metric.WithDescription("Tasks that bypassed the full queue"))
)

// Task is one unit of background persistence work. OnError, when set,
// receives the failure instead of it being only logged.
type Task struct {
	Description string
	Run         func(ctx context.Context) error
	OnError     func(err error)
}

// Queue is a bounded worker pool. Submit never blocks: when the buffer is
// full the task runs on its own goroutine so a slow backend cannot stall
// interactive mutations.
type Queue struct {
	workers  int
	timeout  time.Duration
	tasks    chan Task
	wg       sync.WaitGroup
	inflight sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// New creates a queue with the given worker count and buffer size.
func New(workers, buffer int) *Queue {
	if workers < 1 {
		workers = 2
	}
	if buffer < 1 {
		buffer = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		workers: workers,
		timeout: 60 * time.Second,
		tasks:   make(chan Task, buffer),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the worker goroutines.
func (q *Queue) Start() {
	for i := 1; i <= q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()

	for {
		select {
		case <-q.ctx.Done():
			return
		case task, ok := <-q.tasks:
			if !ok {
				return
			}
			q.runTask(id, task)
		}
	}
}

// Submit enqueues a task. Returns false when the task had to bypass the
// queue because the buffer was full.
func (q *Queue) Submit(task Task) bool {
	if task.Run == nil {
		return true
	}
	q.inflight.Add(1)
	select {
	case q.tasks <- task:
		return true
	default:
		taskOverflow.Add(q.ctx, 1)
		go q.runTask(0, task)
		return false
	}
}

func (q *Queue) runTask(workerID int, task Task) {
	defer q.inflight.Done()

	ctx, cancel := context.WithTimeout(q.ctx, q.timeout)
	defer cancel()

	ctx, span := taskTracer.Start(ctx, "syncqueue.task",
		trace.WithAttributes(
			attribute.Int("worker.id", workerID),
			attribute.String("task.description", task.Description),
		),
	)
	defer span.End()

	start := time.Now()
	err := task.Run(ctx)
	taskDuration.Record(ctx, time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		taskTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "error")))
		log.Printf("syncqueue: %s failed: %v", task.Description, err)
		if task.OnError != nil {
			task.OnError(err)
		}
		return
	}

	taskTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "ok")))
}

// Wait blocks until every submitted task has finished. Intended for tests
// and shutdown paths.
func (q *Queue) Wait() {
	q.inflight.Wait()
}

// Shutdown stops the workers, waiting up to timeout for in-flight tasks.
func (q *Queue) Shutdown(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		q.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		log.Printf("syncqueue: timed out waiting for in-flight tasks")
	}

	q.cancel()
	q.wg.Wait()
}
