package ringloop

import "sync"

// Canceller is an explicit, caller-held cancellation signal for an
// in-flight operation — distinct from spec.md §4.1's implicit
// drop-before-completion path (which only fires when a Go value actually
// becomes unreachable, not something a caller can trigger on demand).
// Grounded on spec.md §6 "cancel_handle()" and resolved here as a
// plain observer-list signal rather than a channel, since the awaiting
// task's own Wake is the only thing that needs to be notified.
type Canceller struct {
	mu       sync.Mutex
	canceled bool
	targets  []func()
}

// NewCanceller returns a not-yet-canceled Canceller.
func NewCanceller() *Canceller {
	return &Canceller{}
}

// Cancel marks c canceled and fires every target registered so far, exactly
// once each. Safe to call more than once; calls after the first are no-ops.
func (c *Canceller) Cancel() {
	c.mu.Lock()
	if c.canceled {
		c.mu.Unlock()
		return
	}
	c.canceled = true
	targets := c.targets
	c.targets = nil
	c.mu.Unlock()
	for _, fn := range targets {
		fn()
	}
}

// Canceled reports whether Cancel has run.
func (c *Canceller) Canceled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canceled
}

// Handle returns a new CancelHandle bound to c. A Canceller may back more
// than one in-flight operation's handle at once (spec.md §6 "one
// cancel_handle may be shared by a group of operations").
func (c *Canceller) Handle() *CancelHandle {
	return &CancelHandle{c: c}
}

// CancelHandle is the consumer side of a Canceller, threaded through
// submitCancelable. A nil *CancelHandle is valid and behaves as "never
// canceled" — the default for ops submitted via Submit rather than
// SubmitCancelable.
type CancelHandle struct {
	c *Canceller
}

// Canceled reports whether the owning Canceller has fired.
func (h *CancelHandle) Canceled() bool {
	if h == nil || h.c == nil {
		return false
	}
	return h.c.Canceled()
}

// register arranges for abort to run when the owning Canceller cancels,
// firing it immediately if that has already happened. abort is expected to
// both release the op's driver slot and reschedule the awaiting task.
func (h *CancelHandle) register(abort func()) {
	if h == nil || h.c == nil {
		return
	}
	c := h.c
	c.mu.Lock()
	if c.canceled {
		c.mu.Unlock()
		abort()
		return
	}
	c.targets = append(c.targets, abort)
	c.mu.Unlock()
}
