package fs

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// workerPool is a fixed-size worker pool fed by a bounded queue, issuing
// the async I/O tasks the device schedules (§9 "Task Pool": "a systems
// implementation should use a fixed worker pool fed by a bounded queue to
// prevent unbounded concurrency under load"). Modeled on the teacher's
// taskrunner.go, which wraps golang.org/x/sync/errgroup the same way;
// unlike a plain errgroup, submit never blocks the issuing goroutine past
// the queue's capacity and a worker failure never cancels siblings, since
// each I/O's result is delivered through its own callback rather than
// through the group's error.
type workerPool struct {
	queue chan func()
	eg    *errgroup.Group
	done  chan struct{}
}

// newWorkerPool starts workers goroutines draining a queue of depth
// queueDepth. Submitted tasks run on a worker goroutine; Close waits for
// in-flight tasks to drain.
func newWorkerPool(ctx context.Context, workers, queueDepth int) *workerPool {
	if workers <= 0 {
		workers = 1
	}
	if queueDepth <= 0 {
		queueDepth = workers * 4
	}
	eg, _ := errgroup.WithContext(ctx)
	wp := &workerPool{
		queue: make(chan func(), queueDepth),
		eg:    eg,
		done:  make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		eg.Go(func() error {
			for task := range wp.queue {
				task()
			}
			return nil
		})
	}
	return wp
}

// submit enqueues task, blocking if the queue is at capacity.
func (wp *workerPool) submit(task func()) {
	wp.queue <- task
}

// close drains and stops the pool.
func (wp *workerPool) close() {
	close(wp.queue)
	wp.eg.Wait()
}
