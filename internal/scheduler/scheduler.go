// Package scheduler implements the per-worker FIFO ready queue from
// spec.md §4.7: tasks are polled in notification order, a budgeted batch
// is drained before yielding back to the driver so I/O never starves under
// a flood of runnable tasks.
//
// Grounded on the teacher's queue/runner.go main loop shape (drain a batch
// of work, then service the ring) generalized from ublk's fixed per-queue
// iocmd batch to an arbitrary FIFO of task.Task values.
package scheduler

import (
	"sync"

	"github.com/ringloop/ringloop/internal/task"
)

// DefaultBatch is spec.md §4.7's "default 61 tasks" budget: the scheduler
// runs at most this many ready tasks before forcing a driver pass.
const DefaultBatch = 61

// Scheduler is a single worker's ready queue. Ready is safe to call from
// any goroutine (a cross-thread unpark eventually lands here, spec.md §5);
// RunBatch and Len are intended to be called only from the owning worker's
// control loop.
type Scheduler struct {
	mu    sync.Mutex
	ready []*task.Task
}

// New returns an empty scheduler.
func New() *Scheduler {
	return &Scheduler{}
}

// Ready enqueues t onto the FIFO. Implements task.Scheduler.
func (s *Scheduler) Ready(t *task.Task) {
	s.mu.Lock()
	s.ready = append(s.ready, t)
	s.mu.Unlock()
}

// Len reports the current queue depth, used by block_on's park-timeout
// decision (spec.md §4.7 step 4: "If the queue is non-empty, park with
// timeout 0").
func (s *Scheduler) Len() int {
	s.mu.Lock()
	n := len(s.ready)
	s.mu.Unlock()
	return n
}

func (s *Scheduler) pop() *task.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ready) == 0 {
		return nil
	}
	t := s.ready[0]
	s.ready[0] = nil
	s.ready = s.ready[1:]
	return t
}

// RunBatch drains up to budget ready tasks, running each to its next
// suspension point (spec.md §4.7 step 1). Returns how many tasks ran.
func (s *Scheduler) RunBatch(budget int) int {
	ran := 0
	for ran < budget {
		t := s.pop()
		if t == nil {
			break
		}
		t.Run()
		ran++
	}
	return ran
}

// Drain runs ready tasks until the queue is empty, including any task that
// is re-enqueued while the drain is running.
func (s *Scheduler) Drain() int {
	return s.RunBatch(1 << 30)
}
