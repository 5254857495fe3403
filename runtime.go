// Package ringloop is the root façade: Builder/Runtime/block_on, spawn,
// sleep/timeout, cancellation handles, and the owned-buffer I/O contracts
// from spec.md §6. It wires together internal/driver (the completion/
// readiness backends), internal/scheduler (the ready queue) and
// internal/timer (the wheel) into the single-threaded worker loop spec.md
// §2 describes as "Control flow".
package ringloop

import (
	"errors"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/ringloop/ringloop/internal/affinity"
	"github.com/ringloop/ringloop/internal/driver"
	"github.com/ringloop/ringloop/internal/driver/legacy"
	uringdriver "github.com/ringloop/ringloop/internal/driver/uring"
	"github.com/ringloop/ringloop/internal/logging"
	"github.com/ringloop/ringloop/internal/scheduler"
	"github.com/ringloop/ringloop/internal/timer"
)

// minEntries is spec.md §6's "entries (SQ size, min 256, default 1024)".
const minEntries = 256

// defaultEntries is the builder's default submission-queue depth.
const defaultEntries = 1024

// Selector picks which driver backend a Runtime uses, spec.md §6 "driver
// selector ∈ {uring, legacy, fusion}".
type Selector int

const (
	// SelectorAuto probes the kernel and picks io_uring if the full
	// required opcode set (spec.md §4.2) is available, legacy otherwise.
	SelectorAuto Selector = iota
	SelectorUring
	SelectorLegacy
	// SelectorFusion is spec.md §6's third selector value. The spec never
	// details a distinct per-op uring/epoll fusion strategy beyond naming
	// it; this module treats it as a synonym for SelectorAuto (DESIGN.md
	// records this as a resolved Open Question) rather than inventing an
	// unspecified hybrid.
	SelectorFusion
)

// BlockingExecutor is the black-box thread pool spec.md §5 carves out of
// core scope ("the filesystem operations use io_uring ... or a blocking
// thread pool, out of core scope, treated as a black-box executor
// accepting closures"). A Builder may attach one; this module never
// constructs one itself.
type BlockingExecutor interface {
	Submit(func())
}

// Builder configures a Runtime before Build, spec.md §6's functional
// builder surface (entries/enable_timer/attach_thread_pool/selector),
// shaped like the teacher's DeviceParams/DefaultParams functional builder.
type Builder struct {
	entries          uint32
	enableTimer      bool
	selector         Selector
	threadPool       BlockingExecutor
	observer         Observer
	pinCPU           int
	pinCPUSet        bool
}

// NewBuilder returns a Builder with spec.md's defaults: 1024 entries, timer
// enabled, automatic driver selection.
func NewBuilder() *Builder {
	return &Builder{
		entries:     defaultEntries,
		enableTimer: true,
		selector:    SelectorAuto,
		observer:    NoOpObserver{},
	}
}

// WithEntries sets the completion backend's SQ/CQ depth. Values below 256
// are clamped up (spec.md §8 "Entries below 256 are clamped to 256").
func (b *Builder) WithEntries(n uint32) *Builder {
	if n < minEntries {
		n = minEntries
	}
	b.entries = n
	return b
}

// WithTimer enables or disables the timer wheel integration.
func (b *Builder) WithTimer(enabled bool) *Builder {
	b.enableTimer = enabled
	return b
}

// WithSelector overrides automatic driver backend selection.
func (b *Builder) WithSelector(s Selector) *Builder {
	b.selector = s
	return b
}

// WithThreadPool attaches a blocking executor to the Runtime. The Runtime
// only stores it; no operation in this module submits work to it.
func (b *Builder) WithThreadPool(p BlockingExecutor) *Builder {
	b.threadPool = p
	return b
}

// WithObserver installs a metrics Observer; NoOpObserver by default.
func (b *Builder) WithObserver(o Observer) *Builder {
	b.observer = o
	return b
}

// WithCPUPin pins the worker's OS thread to cpu once Build runs (spec.md
// §6 `utils` feature flag). Only takes effect on platforms with native CPU
// affinity support (internal/affinity).
func (b *Builder) WithCPUPin(cpu int) *Builder {
	b.pinCPU = cpu
	b.pinCPUSet = true
	return b
}

// Runtime owns one worker's driver, scheduler, timer wheel and thread-local
// state (spec.md §2 L5). Not safe for concurrent use from multiple
// goroutines except where explicitly documented (cross-thread unpark).
type Runtime struct {
	drv        driver.Driver
	kind       driver.Kind
	sched      *scheduler.Scheduler
	wheel      *timer.Wheel
	metrics    *Metrics
	observer   Observer
	threadPool BlockingExecutor
	origin     time.Time
	nextTaskID atomic.Uint64
	closed     bool
}

// Build constructs a Runtime, probing for io_uring unless the selector
// forces a specific backend (spec.md §4.2 "a driver selector at runtime
// picks the best available backend").
func (b *Builder) Build() (*Runtime, error) {
	if b.pinCPUSet {
		runtime.LockOSThread()
		if err := affinity.PinSelf(b.pinCPU); err != nil {
			logging.Default().With("runtime").Warnf("cpu pin failed: %v", err)
		}
	}

	kind := b.resolveKind()
	drv, actual, err := newDriver(kind, b.entries)
	if err != nil {
		return nil, WrapError("build", err)
	}

	rt := &Runtime{
		drv:        drv,
		kind:       actual,
		sched:      scheduler.New(),
		wheel:      timer.New(),
		metrics:    NewMetrics(),
		observer:   b.observer,
		threadPool: b.threadPool,
		origin:     time.Now(),
	}
	if !b.enableTimer {
		rt.wheel = nil
	}
	logging.Default().With("runtime").Infof("runtime built, backend=%s entries=%d", actual, b.entries)
	return rt, nil
}

func (b *Builder) resolveKind() Selector {
	return b.selector
}

func newDriver(sel Selector, entries uint32) (driver.Driver, driver.Kind, error) {
	switch sel {
	case SelectorUring:
		d, err := uringdriver.New(uringdriver.Config{Entries: entries})
		if err != nil {
			return nil, 0, err
		}
		return d, driver.KindUring, nil
	case SelectorLegacy:
		d, err := legacy.New()
		return d, driver.KindLegacy, err
	default: // SelectorAuto, SelectorFusion
		features := driver.Probe()
		if driver.Select(features) == driver.KindUring {
			d, err := uringdriver.New(uringdriver.Config{Entries: entries})
			if err == nil {
				return d, driver.KindUring, nil
			}
			logging.Default().With("runtime").Warnf("uring init failed (%v), falling back to legacy", err)
		}
		d, err := legacy.New()
		return d, driver.KindLegacy, err
	}
}

// Kind reports which backend this runtime selected.
func (rt *Runtime) Kind() driver.Kind { return rt.kind }

// Metrics returns the runtime's built-in metrics collector.
func (rt *Runtime) Metrics() *Metrics { return rt.metrics }

// Close releases the driver's kernel resources (the ring fd or epoll fd).
// Not safe to call while a BlockOn loop is still running on this Runtime.
func (rt *Runtime) Close() error {
	if rt.closed {
		return nil
	}
	rt.closed = true
	return rt.drv.Close()
}

// Context is the explicit handle threaded through task bodies and root-
// package helpers — the idiomatic-Go substitute for the thread-local
// CONTEXT cell spec.md §9 allows ("An implementation may use a
// thread-scoped variable or pass an explicit context; the behavior is
// identical"). Every spawned task gets its own Context referencing the
// same Runtime but its own task handle, so Await/Sleep/yield_now know
// which task to suspend and re-wake.
type Context struct {
	rt   *Runtime
	self selfTask
}

// selfTask is the minimal surface Context needs back from a running task:
// Yield to suspend until rewoken, Wake to reschedule. Satisfied by
// internal/task.Task; kept as an interface here so runtime.go doesn't
// import internal/task just for this field's type.
type selfTask interface {
	Yield()
	Wake()
}

// Runtime returns the owning Runtime.
func (c *Context) Runtime() *Runtime { return c.rt }

// awaitReady repeatedly calls poll, passing it a wake callback that
// reschedules the calling task, until poll reports true — translating
// spec.md's Future::poll loop into blocking control flow over the task
// system's Yield/Wake pair (internal/task's goroutine-baton model, see
// that package's doc comment).
func (c *Context) awaitReady(poll func(wake func()) bool) {
	for {
		if poll(func() { c.self.Wake() }) {
			return
		}
		c.self.Yield()
	}
}

// blockOnResult pairs a BlockOn body's output with its error. BlockOn itself
// collects the root task's output through Task.Result.
type blockOnResult[T any] struct {
	value T
	err   error
}

// ErrRuntimeClosed is returned by BlockOn if called on a closed Runtime.
var ErrRuntimeClosed = errors.New("ringloop: runtime is closed")

// BlockOn runs f to completion on rt, draining the ready queue, flushing
// and parking the driver, and advancing the timer wheel in between —
// spec.md §2's control-flow loop. It returns f's result once f's own
// Context-bound task completes. Only one BlockOn may run on a Runtime at a
// time; nesting is not supported (no work-stealing, no migration, per
// spec.md §1 Non-goals).
func BlockOn[T any](rt *Runtime, f func(ctx *Context) (T, error)) (T, error) {
	var zero T
	if rt.closed {
		return zero, ErrRuntimeClosed
	}

	ctx := &Context{rt: rt}
	t := newRootTask(rt, ctx, func() (any, error) {
		v, err := f(ctx)
		return v, err
	})
	ctx.self = t
	rt.sched.Ready(t)

	for {
		depth := rt.sched.Len()
		rt.observer.ObserveReadyQueueDepth(uint32(depth))
		ran := rt.sched.RunBatch(schedulerBatch)
		rt.metrics.TasksRun.Add(uint64(ran))
		for i := 0; i < ran; i++ {
			rt.observer.ObserveTaskRun()
		}

		if t.Completed() {
			raw, err := t.Result()
			var v T
			if raw != nil {
				v = raw.(T)
			}
			return v, err
		}

		if err := rt.drv.Flush(); err != nil {
			logging.Default().With("runtime").Debugf("flush: %v", err)
		}

		parkTimeout := rt.parkTimeout()
		if rt.sched.Len() > 0 {
			parkTimeout = 0
		}
		if err := rt.drv.Park(parkTimeout); err != nil {
			logging.Default().With("runtime").Debugf("park: %v", err)
		}

		rt.advanceTimers()
	}
}

const schedulerBatch = schedulerDefaultBatch

// schedulerDefaultBatch holds the same value as internal/scheduler.DefaultBatch
// as a separate constant; nothing in the code ties the two together.
const schedulerDefaultBatch = 61

// parkTimeout returns how long BlockOn may safely park in the driver: the
// time remaining until the timer wheel's next deadline, or -1 (park
// forever) if no timers are armed, per spec.md §4.5 "used to bound the
// driver park".
func (rt *Runtime) parkTimeout() time.Duration {
	if rt.wheel == nil {
		return -1
	}
	deadline, ok := rt.wheel.NextDeadline()
	if !ok {
		return -1
	}
	now := rt.wheel.Now()
	if deadline <= now {
		return 0
	}
	return time.Duration(deadline-now) * time.Millisecond
}

// advanceTimers moves the wheel to real-now and fires due entries,
// spec.md §2 "advance the clock and fire timers".
func (rt *Runtime) advanceTimers() {
	if rt.wheel == nil {
		return
	}
	nowTick := time.Since(rt.origin).Milliseconds()
	for _, waker := range rt.wheel.Advance(nowTick) {
		rt.observer.ObserveTimerFired()
		rt.metrics.RecordTimerFired()
		waker()
	}
}
