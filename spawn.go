package ringloop

import (
	"github.com/ringloop/ringloop/internal/task"
)

// newRootTask allocates the bootstrap task BlockOn drives. Kept separate
// from Spawn only because BlockOn doesn't go through the JoinHandle/metrics
// bookkeeping Spawn does — there is no handle to return for the future a
// caller is already blocked on.
func newRootTask(rt *Runtime, ctx *Context, body func() (any, error)) *task.Task {
	return task.New(rt.nextTaskID.Add(1), rt.sched, body)
}

// Spawn schedules f on ctx's Runtime and returns a JoinHandle for its
// output (spec.md §4.6/§6 "spawn(future) → JoinHandle"). f receives its
// own Context — spawned tasks do not inherit the spawner's Context value,
// only the same underlying Runtime, since each task needs its own
// Yield/Wake identity (spec.md §4.6 "Spawned tasks inherit the owner
// worker's id").
func Spawn[T any](ctx *Context, f func(ctx *Context) (T, error)) task.JoinHandle[T] {
	rt := ctx.rt
	taskCtx := &Context{rt: rt}
	t := task.New(rt.nextTaskID.Add(1), rt.sched, func() (any, error) {
		v, err := f(taskCtx)
		return v, err
	})
	taskCtx.self = t
	rt.observer.ObserveTaskSpawn()
	rt.metrics.RecordTaskSpawn()
	rt.sched.Ready(t)
	return task.NewJoinHandle[T](t)
}

// Await blocks the calling task (yielding it back to the scheduler between
// attempts) until h's task completes, then returns its output — the
// blocking-style counterpart of polling a JoinHandle (spec.md §4.6
// "JoinHandle poll").
func Await[T any](ctx *Context, h task.JoinHandle[T]) (T, error) {
	var value T
	var err error
	var ready bool
	ctx.awaitReady(func(wake func()) bool {
		value, err, ready = h.Poll(wake)
		return ready
	})
	return value, err
}

// YieldNow cooperatively yields the calling task back to the scheduler,
// spec.md §4.6/§6 "yield_now()". Per spec.md §8 invariant 5, looping this N
// times lets any other runnable task interleave at least once per call.
func YieldNow(ctx *Context) {
	yielded := false
	ctx.awaitReady(func(wake func()) bool {
		if yielded {
			return true
		}
		yielded = true
		wake()
		return false
	})
}
