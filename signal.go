package ringloop

import (
	"os"
	"os/signal"
)

// Notify relays sigs into a task-visible channel, waking ctx's task each
// time one arrives so a spawned task can select on it the way spec.md §6's
// `signal` feature flag ("Ctrl-C") requires. Grounded on the teacher's
// cmd/ublk-mem/main.go, which wires signal.Notify(sigCh,
// syscall.SIGINT, syscall.SIGTERM) directly onto a channel a goroutine
// blocks on; here that goroutine instead calls ctx.self.Wake() on every
// signal so the runtime's own scheduler, not a bare channel receive, is
// what resumes the waiting task.
//
// stop unregisters the relay and must be called once the caller no longer
// needs notifications, mirroring signal.Stop's contract.
func Notify(ctx *Context, sigs ...os.Signal) (ch <-chan struct{}, stop func()) {
	raw := make(chan os.Signal, 1)
	signal.Notify(raw, sigs...)

	relayed := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-raw:
				select {
				case relayed <- struct{}{}:
				default:
				}
				ctx.self.Wake()
			case <-done:
				return
			}
		}
	}()

	stopOnce := false
	return relayed, func() {
		if stopOnce {
			return
		}
		stopOnce = true
		signal.Stop(raw)
		close(done)
	}
}

// WaitSignal blocks the calling task until one of sigs arrives, returning a
// stop func the caller should invoke once done (spec.md §6 "signal
// (Ctrl-C)").
func WaitSignal(ctx *Context, sigs ...os.Signal) (stop func()) {
	ch, stop := Notify(ctx, sigs...)
	ctx.awaitReady(func(wake func()) bool {
		select {
		case <-ch:
			return true
		default:
			// The relay goroutine calls ctx.self.Wake() directly on
			// arrival rather than through this poll closure's wake, so
			// re-polling on the next scheduler pass observes ch non-empty
			// once Wake reschedules this task.
			return false
		}
	})
	return stop
}
