package ringloop

import "time"

// Instant is a monotonic timestamp relative to a Runtime's own wheel
// origin, ported from original_source/monoio's time/clock.rs Instant
// wrapper so the timer wheel and Sleep share one time source instead of
// calling time.Now() ad hoc throughout the codebase.
type Instant struct {
	nanos int64
}

// Now returns the current Instant relative to rt's wheel origin.
func (rt *Runtime) Now() Instant {
	return Instant{nanos: time.Since(rt.origin).Nanoseconds()}
}

// Sub returns the duration elapsed between two Instants from the same
// Runtime.
func (a Instant) Sub(b Instant) time.Duration {
	return time.Duration(a.nanos - b.nanos)
}

// Elapsed returns how long has passed since i, measured against rt's clock.
func (i Instant) Elapsed(rt *Runtime) time.Duration {
	return rt.Now().Sub(i)
}

// millisCeil rounds d up to whole milliseconds, the wheel's tick
// resolution (spec.md §4.5/§9 "finer durations round up").
func millisCeil(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	ms := d / time.Millisecond
	if d%time.Millisecond != 0 {
		ms++
	}
	return int64(ms)
}

// Sleep suspends the calling task for at least d (spec.md §4.5 "sleep(d)
// arms an entry at now + d"). Duration zero yields once to the ready queue
// rather than returning synchronously (spec.md "Duration::ZERO wakes
// immediately"). With the timer disabled (Builder.WithTimer(false)), Sleep
// only yields once and returns without waiting for d.
//
// The poll closure below re-checks the deadline against the wheel's clock
// on every wake, so a wake from another source (a Timeout's leftover wheel
// entry, a signal relay) does not end the sleep early.
func Sleep(ctx *Context, d time.Duration) {
	rt := ctx.rt
	if rt.wheel == nil || d <= 0 {
		YieldNow(ctx)
		return
	}
	deadline := rt.wheel.Now() + millisCeil(d)
	armed := false
	ctx.awaitReady(func(wake func()) bool {
		if deadline <= rt.wheel.Now() {
			return true
		}
		if !armed {
			rt.wheel.Insert(deadline, wake)
			armed = true
		}
		return false
	})
}

// ErrTimedOut is returned by Timeout when d elapses before f completes.
var ErrTimedOut = NewError("timeout", ErrCodeTimeout, "deadline exceeded")

// Timeout races f against a Sleep(d), spec.md §6 "timeout(duration,
// future)" — a composite of select+sleep. If f's task hasn't completed
// when the sleep fires, Timeout returns ErrTimedOut; f's task is left
// running (there is no implicit cancellation of spawned work, spec.md
// §4.7 "Cancellation of a JoinHandle does not cancel the task"). With the
// timer disabled (Builder.WithTimer(false)), Timeout waits for f without a
// time limit.
func Timeout[T any](ctx *Context, d time.Duration, f func(ctx *Context) (T, error)) (T, error) {
	var zero T
	h := Spawn(ctx, f)

	rt := ctx.rt
	if rt.wheel == nil {
		return Await(ctx, h)
	}

	deadline := rt.wheel.Now() + millisCeil(d)
	armed := false
	var value T
	var ferr error
	var ready bool
	ctx.awaitReady(func(wake func()) bool {
		value, ferr, ready = h.Poll(wake)
		if ready {
			return true
		}
		if deadline <= rt.wheel.Now() {
			return true
		}
		if !armed {
			rt.wheel.Insert(deadline, wake)
			armed = true
		}
		return false
	})
	if ready {
		return value, ferr
	}
	return zero, ErrTimedOut
}
