// Package eventloop implements the single-threaded cooperative task
// queue every long-lived component drives internally (spec.md §5):
// tasks submitted to a Loop run serially, in submission order, on one
// dedicated goroutine, so blocking I/O in one task never stalls another
// component's queue. It also carries the two concurrency primitives the
// orchestrator's background flush and rollback-depth probe need:
// errgroup for a tracked background task and singleflight for
// collapsing concurrent identical reads.
package eventloop

import (
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Loop is a single-threaded task queue: Submit enqueues a task, which
// runs strictly after every task enqueued before it on the same Loop.
type Loop struct {
	tasks chan func()
	done  chan struct{}
}

// New starts a Loop backed by a channel of the given depth. A full
// queue makes Submit block, applying natural backpressure to the
// submitter rather than growing memory unbounded.
func New(queueDepth int) *Loop {
	l := &Loop{
		tasks: make(chan func(), queueDepth),
		done:  make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	for task := range l.tasks {
		task()
	}
	close(l.done)
}

// Submit enqueues task to run after every task submitted before it.
func (l *Loop) Submit(task func()) {
	l.tasks <- task
}

// SubmitWait enqueues task and blocks until it has actually run, for
// callers that need its side effects visible before proceeding.
func (l *Loop) SubmitWait(task func()) {
	done := make(chan struct{})
	l.tasks <- func() {
		task()
		close(done)
	}
	<-done
}

// Stop drains the queue — every task already submitted still runs —
// then joins the loop's goroutine. Submitting after Stop returns panics,
// matching a closed-channel send.
func (l *Loop) Stop() {
	close(l.tasks)
	<-l.done
}

// Background runs work outside a Loop's serial queue, for the one task
// that must not block it: the orchestrator's post-commit flush, which
// needs to run while the next block's validation already proceeds.
// Wait joins every Go'd function and returns the first error, matching
// the "one flush in flight" ordering spec.md §5 requires — callers
// still Wait before starting the next write.
type Background struct {
	g errgroup.Group
}

// Go runs fn on its own goroutine. Callers must Wait before the next Go
// that depends on fn having finished — Background does not serialize
// its tasks the way Loop does.
func (b *Background) Go(fn func() error) { b.g.Go(fn) }

// Wait blocks until every fn passed to Go has returned, surfacing the
// first non-nil error. A Background can be reused for further Go/Wait
// rounds once Wait returns.
func (b *Background) Wait() error { return b.g.Wait() }

// Collapsed deduplicates concurrent calls sharing a key into one
// execution, with every caller observing the same result — used for a
// read expensive enough to be worth collapsing under concurrent load
// (the orchestrator's L0-file-metadata rollback-depth probe).
type Collapsed struct {
	group singleflight.Group
}

func (c *Collapsed) Do(key string, fn func() (interface{}, error)) (interface{}, error) {
	v, err, _ := c.group.Do(key, fn)
	return v, err
}
