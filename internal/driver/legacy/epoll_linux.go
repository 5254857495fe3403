//go:build linux

// Package legacy implements the readiness backend: epoll plus synchronous
// per-op syscalls, selected when internal/driver.Probe finds no usable
// io_uring (old kernel, container seccomp filter, non-Linux). Grounded on
// golang.org/x/sys/unix (already the teacher's dependency, used there for
// ublk ioctls) for the epoll and syscall surface, and on
// original_source/monoio/src/driver/legacy/* for the readiness/waker shape.
package legacy

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ringloop/ringloop/internal/driver"
	"github.com/ringloop/ringloop/internal/lifecycle"
)

// Epoll is the readiness-backend Driver.
type Epoll struct {
	epfd  int
	table *lifecycle.Table
	mu    sync.Mutex
	ops   map[int]driver.Op
	ios   map[int]*scheduledIO // keyed by raw fd
	tq    timeoutQueue
}

// New opens an epoll instance.
func New() (*Epoll, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &Epoll{
		epfd:  fd,
		table: lifecycle.NewTable(),
		ops:   make(map[int]driver.Op),
		ios:   make(map[int]*scheduledIO),
	}, nil
}

func (e *Epoll) ioFor(fd int) *scheduledIO {
	io, ok := e.ios[fd]
	if !ok {
		io = &scheduledIO{}
		e.ios[fd] = io
		_ = unix.EpollCtl(e.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
			Events: unix.EPOLLIN | unix.EPOLLOUT | unix.EPOLLRDHUP,
			Fd:     int32(fd),
		})
	}
	return io
}

// Submit registers op, attempting it immediately; non-blocking-capable ops
// (socket I/O) that would block instead park a waker for the next Poll.
func (e *Epoll) Submit(op driver.Op) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	slot := e.table.Submit()
	if to, ok := op.(driver.TimeoutOp); ok {
		e.tq.push(slot, nowNanos()+to.NanosFromNow)
		e.ops[slot] = op
		return slot, nil
	}
	e.ops[slot] = op
	e.attempt(slot, op)
	return slot, nil
}

// attempt performs op's syscall once. On success or hard failure it
// completes the lifecycle slot directly; on EAGAIN it marks the fd's
// direction not ready and leaves the slot Submitted, so the next Poll
// registers a readiness waker that retries it.
func (e *Epoll) attempt(slot int, op driver.Op) {
	n, err, fd, dir := doSyscall(op)
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
		io := e.ioFor(fd)
		io.setReady(dir, false)
		return
	}
	e.finishSyscall(slot, op, n, err)
}

func (e *Epoll) finishSyscall(slot int, op driver.Op, n int32, err error) {
	result := lifecycle.Result{N: n, Err: err}
	if err == nil {
		applyInitialized(op, n)
	}
	waker, _ := e.table.Complete(slot, result)
	delete(e.ops, slot)
	if waker != nil {
		waker()
	}
}

// Poll retries op's syscall if it previously blocked, otherwise defers to
// the lifecycle table like the completion backend.
func (e *Epoll) Poll(slot int, waker lifecycle.Waker) lifecycle.PollResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	if op, live := e.ops[slot]; live {
		fd, dir, ok := fdAndDirection(op)
		if ok {
			io := e.ioFor(fd)
			if !io.isReady(dir) {
				io.register(dir, func() {
					e.mu.Lock()
					if op, still := e.ops[slot]; still {
						e.attempt(slot, op)
					}
					e.mu.Unlock()
					waker()
				})
				return lifecycle.PollResult{}
			}
		}
	}
	return e.table.Poll(slot, waker)
}

// Drop on the readiness backend is immediate: there is no kernel-side
// cancel to wait for, so the lifecycle's Ignored handshake completes in the
// same call rather than on a later Park (spec.md §4.5 "immediate on
// readiness backend").
func (e *Epoll) Drop(slot int, payload any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if op, ok := e.ops[slot]; ok {
		delete(e.ops, slot)
		if fd, dir, has := fdAndDirection(op); has {
			if io, ok := e.ios[fd]; ok {
				io.register(dir, nil)
			}
		}
	}
	e.tq.remove(slot)

	alreadyDone := e.table.Drop(slot, payload)
	if alreadyDone {
		return
	}
	waker, removed := e.table.Complete(slot, lifecycle.Result{Err: driver.ErrCanceled})
	if removed && waker != nil {
		waker()
	}
}

// Flush is a no-op: the readiness backend has nothing batched — every op
// either already ran synchronously in Submit or is parked on a waker.
func (e *Epoll) Flush() error { return nil }

// Park waits on epoll_wait, wakes ready fds' wakers, and fires any expired
// TimeoutOp slots.
func (e *Epoll) Park(timeout time.Duration) error {
	e.mu.Lock()
	waitMs := epollTimeoutMs(timeout, e.tq)
	e.mu.Unlock()

	var events [128]unix.EpollEvent
	n, err := unix.EpollWait(e.epfd, events[:], waitMs)
	if err != nil && err != unix.EINTR {
		return err
	}

	e.mu.Lock()
	var wakers []lifecycle.Waker
	for i := 0; i < n; i++ {
		ev := events[i]
		fd := int(ev.Fd)
		io, ok := e.ios[fd]
		if !ok {
			continue
		}
		readable := ev.Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR|unix.EPOLLRDHUP) != 0
		writable := ev.Events&(unix.EPOLLOUT|unix.EPOLLHUP|unix.EPOLLERR) != 0
		io.setReady(dirRead, io.readReady || readable)
		io.setReady(dirWrite, io.writeReady || writable)
		if readable && io.reader != nil {
			wakers = append(wakers, io.reader)
			io.reader = nil
		}
		if writable && io.writer != nil {
			wakers = append(wakers, io.writer)
			io.writer = nil
		}
	}

	for _, slot := range e.tq.popExpired(nowNanos()) {
		op := e.ops[slot]
		delete(e.ops, slot)
		waker, _ := e.table.Complete(slot, lifecycle.Result{})
		_ = op
		if waker != nil {
			wakers = append(wakers, waker)
		}
	}
	e.mu.Unlock()

	for _, w := range wakers {
		w()
	}
	return nil
}

// Close releases the epoll fd.
func (e *Epoll) Close() error {
	return unix.Close(e.epfd)
}

func epollTimeoutMs(requested time.Duration, tq timeoutQueue) int {
	ms := -1
	if requested >= 0 {
		ms = int(requested.Milliseconds())
	}
	if deadline, ok := tq.nextDeadline(); ok {
		remain := (deadline - nowNanos() + int64(time.Millisecond) - 1) / int64(time.Millisecond)
		if remain < 0 {
			remain = 0
		}
		if ms < 0 || int64(ms) > remain {
			ms = int(remain)
		}
	}
	return ms
}

var _ driver.Driver = (*Epoll)(nil)
