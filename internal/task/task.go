// Package task implements the executor's unit of work: a cooperatively
// scheduled Task and its JoinHandle, grounded on
// original_source/monoio/src/task/{mod,join}.rs.
//
// monoio's Task is a poll-driven future compiled by the Rust compiler from
// async/await syntax; Go has no equivalent state-machine transform. The
// idiomatic Go translation keeps monoio's invariant — exactly one unit of
// user code runs at a time per worker, with no real concurrency between
// tasks — by running each task body on its own goroutine but handing
// control between the scheduler and the currently-running task goroutine
// over a pair of unbuffered channels: the scheduler never advances to the
// next ready task until the current one has yielded or finished. User code
// is then ordinary blocking Go (no hand-written Poll state machines),
// while the single-worker, no-preemption, no-stealing guarantee from
// spec.md §7 holds exactly as it does in monoio.
package task

import "sync/atomic"

// Scheduler is the minimal surface Task needs from its owning worker: a way
// to mark itself runnable again after an await unblocks.
type Scheduler interface {
	// Ready enqueues t onto the worker's FIFO ready queue. Called from a
	// waker, possibly from deep inside a driver's Park dispatch.
	Ready(t *Task)
}

// Task is the heap-allocated cell backing one spawned unit of work.
type Task struct {
	id        uint64
	sched     Scheduler
	resume    chan struct{}
	yielded   chan struct{}
	completed atomic.Bool
	result    any
	err       error
	joinWaker func()
	refs      atomic.Int32
}

// New allocates a task cell for body, wired to sched for wake delivery. The
// caller must call Start to begin executing body on its own goroutine.
func New(id uint64, sched Scheduler, body func() (any, error)) *Task {
	t := &Task{
		id:      id,
		sched:   sched,
		resume:  make(chan struct{}),
		yielded: make(chan struct{}),
	}
	t.refs.Store(2) // one for the scheduler's run queue, one for the JoinHandle
	go func() {
		<-t.resume
		result, err := body()
		t.result, t.err = result, err
		t.completed.Store(true)
		if t.joinWaker != nil {
			t.joinWaker()
		}
		t.yielded <- struct{}{}
	}()
	return t
}

// Run hands the baton to t's goroutine and blocks until it yields (awaiting
// something) or finishes. Called only from the scheduler's own goroutine.
func (t *Task) Run() {
	t.resume <- struct{}{}
	<-t.yielded
}

// Yield is called from inside the task's own goroutine (never the
// scheduler's) when it must suspend: it hands control back to Run and
// blocks until the scheduler resumes it via Run again.
func (t *Task) Yield() {
	t.yielded <- struct{}{}
	<-t.resume
}

// Wake re-enqueues t on its scheduler. Safe to call from any goroutine,
// including a driver's Park dispatch loop.
func (t *Task) Wake() {
	if !t.completed.Load() {
		t.sched.Ready(t)
	}
}

// Completed reports whether the task's body has returned.
func (t *Task) Completed() bool { return t.completed.Load() }

// Result returns the task's output once Completed is true.
func (t *Task) Result() (any, error) { return t.result, t.err }

// SetJoinWaker registers the waker a JoinHandle is parked on; invoked once,
// when the handle observes the task still running.
func (t *Task) SetJoinWaker(w func()) { t.joinWaker = w }

// Release decrements the task's reference count (scheduler queue +
// JoinHandle each hold one); intentionally a no-op beyond bookkeeping since
// Go's GC reclaims the cell once unreferenced — ported from monoio's
// Task::drop ref_dec/dealloc pair, which exists only because Rust tasks are
// manually allocated with Box/NonNull.
func (t *Task) Release() { t.refs.Add(-1) }
