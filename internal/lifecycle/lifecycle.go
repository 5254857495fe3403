// Package lifecycle implements the Op<T> lifecycle state machine from
// spec.md §4.1: each submitted operation owns a slab slot that reconciles
// submission, polling, kernel completion, and future-drop/cancellation
// without ever freeing a buffer the kernel may still reference.
//
// Ported directly from the teacher's source system's lifecycle design in
// original_source/monoio/src/driver/uring/lifecycle.rs (Lifecycle enum +
// its complete/poll_op/drop_op methods), which this module's spec.md is
// itself a distillation of. Go has no enum-with-payload or Waker type, so
// Slot.st is a closed Go interface implemented by four unexported
// state types, and Waker is a caller-supplied callback.
package lifecycle

import "github.com/ringloop/ringloop/internal/slab"

// Waker is called to notify a parked poller that a slot transitioned to
// Completed. Equivalent to Rust's std::task::Waker::wake.
type Waker func()

// Result is what a driver reports for a completed operation: a byte count
// or fd (err == nil) or a negative-result error (err != nil), plus
// completion flags (e.g. io_uring's cqe.flags).
type Result struct {
	N     int32
	Flags uint32
	Err   error
}

// state is the sum type from spec.md §3 "Lifecycle". Exactly one of these
// is active per slot at any time.
type state interface{ isState() }

type stateSubmitted struct{}

func (stateSubmitted) isState() {}

type stateWaiting struct{ waker Waker }

func (stateWaiting) isState() {}

// stateIgnored retains payload (anything implementing io.Closer-like
// ownership the caller abandoned — typically a buffer and/or a SharedFd
// clone) until the driver reports completion or cancel acknowledgement.
type stateIgnored struct{ payload any }

func (stateIgnored) isState() {}

type stateCompleted struct{ result Result }

func (stateCompleted) isState() {}

// Slot is a single entry in the Table. The zero value is not meaningful;
// slots are always created via Table.Submit.
type Slot struct {
	st state
}

// Table is the per-driver slab of in-flight operation lifecycles (spec.md
// §3 "the slab entry keyed by the op index"). Not safe for concurrent use;
// the owning driver runs single-threaded.
type Table struct {
	slots *slab.Slab[Slot]
}

// NewTable returns an empty lifecycle table.
func NewTable() *Table {
	return &Table{slots: slab.New[Slot]()}
}

// Submit allocates a new slot in state Submitted and returns its stable
// index (spec.md §4.1 "submit(payload) allocates a slab slot").
func (t *Table) Submit() int {
	return t.slots.Insert(Slot{st: stateSubmitted{}})
}

// Len reports how many slots are currently live (any state).
func (t *Table) Len() int { return t.slots.Len() }

// PollResult is returned by Poll: Ready carries the collected Result: exactly
// once, after which the slot no longer exists.
type PollResult struct {
	Ready  bool
	Result Result
}

// Poll inspects the slot at idx against a freshly observed waker, per
// spec.md §4.1's poll transition table. Panics if idx names an Ignored
// slot — the future cannot be polled after it has been dropped.
func (t *Table) Poll(idx int, waker Waker) PollResult {
	slot, ok := t.slots.Get(idx)
	if !ok {
		// Slot already removed: only reachable if the caller polls after
		// Ready was already returned once. Treat as a bug upstream.
		panic("lifecycle: poll on removed slot")
	}
	switch slot.st.(type) {
	case stateSubmitted:
		slot.st = stateWaiting{waker: waker}
		return PollResult{}
	case stateWaiting:
		slot.st = stateWaiting{waker: waker}
		return PollResult{}
	case stateIgnored:
		panic("lifecycle: poll on ignored slot")
	case stateCompleted:
		completed := slot.st.(stateCompleted)
		t.slots.Remove(idx)
		return PollResult{Ready: true, Result: completed.result}
	}
	panic("lifecycle: unreachable state")
}

// Complete is called by the driver when the kernel reports a CQE or a
// readiness-backend syscall resolves (spec.md §4.1 "Completion dispatch").
// Returns the waker the caller's driver loop must invoke, or nil if none
// (kept out-of-line so drivers can batch wakes outside any internal lock),
// and whether the slot was removed (an Ignored slot, now released).
func (t *Table) Complete(idx int, result Result) (wake Waker, removed bool) {
	slot, ok := t.slots.Get(idx)
	if !ok {
		return nil, false
	}
	switch s := slot.st.(type) {
	case stateSubmitted:
		slot.st = stateCompleted{result: result}
		return nil, false
	case stateWaiting:
		slot.st = stateCompleted{result: result}
		return s.waker, false
	case stateIgnored:
		t.slots.Remove(idx)
		return nil, true
	case stateCompleted:
		panic("lifecycle: complete on already-completed slot")
	}
	panic("lifecycle: unreachable state")
}

// Drop is called when an Op's future is dropped before completion (spec.md
// §4.1 "Dropping the future before completion"). payload, if non-nil, is
// retained until the kernel completes or acknowledges cancellation (the
// Ignored state) — this is invariant 1 from spec.md §8: a buffer is never
// freed while the kernel may still reference it. Returns true if the slot
// was already Completed and the caller should submit no cancel request (the
// result is simply discarded), false if an async-cancel should be issued.
func (t *Table) Drop(idx int, payload any) (alreadyDone bool) {
	slot, ok := t.slots.Get(idx)
	if !ok {
		return true
	}
	switch slot.st.(type) {
	case stateSubmitted, stateWaiting:
		slot.st = stateIgnored{payload: payload}
		return false
	case stateCompleted:
		t.slots.Remove(idx)
		return true
	case stateIgnored:
		panic("lifecycle: drop on already-ignored slot")
	}
	panic("lifecycle: unreachable state")
}

// Payload returns the retained payload of an Ignored slot, for drivers that
// need to inspect it (e.g. to extract a sockaddr buffer on an abandoned
// Accept). Returns nil, false if idx is not in the Ignored state.
func (t *Table) Payload(idx int) (any, bool) {
	slot, ok := t.slots.Get(idx)
	if !ok {
		return nil, false
	}
	ig, ok := slot.st.(stateIgnored)
	if !ok {
		return nil, false
	}
	return ig.payload, true
}
