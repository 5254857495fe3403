package task

// JoinHandle observes a spawned task's completion and yields its typed
// result, the Go counterpart of monoio's JoinHandle<T>/Future impl.
// "Dropping" one without awaiting it — simply letting it go out of scope —
// does not cancel or affect the underlying task, matching the doc comment
// on join.rs.
type JoinHandle[T any] struct {
	t *Task
}

// NewJoinHandle wraps t, typed by its caller to the body's actual return
// type. Internal to the spawn machinery in the root package.
func NewJoinHandle[T any](t *Task) JoinHandle[T] {
	return JoinHandle[T]{t: t}
}

// IsFinished reports whether the task has completed, without blocking.
func (h JoinHandle[T]) IsFinished() bool { return h.t.Completed() }

// Poll mirrors monoio's Future impl for JoinHandle: Pending with waker
// registered if the task hasn't finished, Ready with the typed result
// otherwise. A task whose body panicked or returned a non-nil error
// surfaces err; a zero T and that err are returned together in that case.
func (h JoinHandle[T]) Poll(waker func()) (value T, err error, ready bool) {
	if !h.t.Completed() {
		h.t.SetJoinWaker(waker)
		return value, nil, false
	}
	raw, rerr := h.t.Result()
	if rerr != nil {
		return value, rerr, true
	}
	if raw == nil {
		return value, nil, true
	}
	return raw.(T), nil, true
}
