// Package sharedfd implements SharedFd: a reference-counted handle to an OS
// file descriptor that orders its close after the last clone is dropped and
// after every in-flight operation referencing it has been released by the
// kernel (spec.md §3 SharedFd, §9 "SharedFd close ordering").
//
// Grounded on the teacher's fd lifecycle in queue/runner.go (Runner dup()s
// the control fd per queue, tracks charDeviceFd, and closes it exactly once
// in Close) and on gaio's dupconn helper (RTradeLtd-gaio/aio_generic.go),
// generalized from a single owning struct into a clonable refcounted one.
package sharedfd

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/ringloop/ringloop/internal/logging"
)

// Closer abstracts how a fd is actually closed: directly (readiness
// backend, spec.md §4.4/§9) or via a submitted close op (completion
// backend, spec.md §4.3/§9, to preserve ordering against pending reads on
// the same fd within io_uring).
type Closer interface {
	CloseFd(fd int) error
}

// syscallCloser closes with a direct syscall; used by the readiness backend
// and as the default when no driver-specific closer is registered.
type syscallCloser struct{}

func (syscallCloser) CloseFd(fd int) error {
	return unix.Close(fd)
}

var defaultCloser Closer = syscallCloser{}

type shared struct {
	fd       int
	regToken int32 // driver registration index; -1 if not registered (uring backend)
	refs     atomic.Int64
	closer   Closer
	mu       sync.Mutex
	closed   bool
	pending  int // in-flight ops still referencing this fd
}

// SharedFd is a cheap-to-clone owning handle. The zero value is not usable;
// construct with New.
type SharedFd struct {
	s *shared
}

// New wraps fd in a SharedFd with one reference. closer may be nil to use a
// direct close(2) syscall.
func New(fd int, closer Closer) SharedFd {
	if closer == nil {
		closer = defaultCloser
	}
	s := &shared{fd: fd, regToken: -1, closer: closer}
	s.refs.Store(1)
	return SharedFd{s: s}
}

// RawFd returns the underlying descriptor. Valid only while at least one
// clone is held and Close has not completed.
func (f SharedFd) RawFd() int { return f.s.fd }

// RegistrationToken returns the driver registration index assigned under
// the readiness backend (spec.md §3 "optional registration index"), or -1
// if unregistered (always the case under the completion backend).
func (f SharedFd) RegistrationToken() int32 {
	return atomic.LoadInt32(&f.s.regToken)
}

// SetRegistrationToken records the readiness-backend registration index.
func (f SharedFd) SetRegistrationToken(tok int32) {
	atomic.StoreInt32(&f.s.regToken, tok)
}

// Clone returns a new handle sharing the same descriptor and bumps the
// refcount. Cheap: no syscall.
func (f SharedFd) Clone() SharedFd {
	f.s.refs.Add(1)
	return SharedFd{s: f.s}
}

// BeginOp records that an operation now references this fd's raw descriptor,
// delaying any close triggered by a concurrent Drop until EndOp is called.
func (f SharedFd) BeginOp() {
	f.s.mu.Lock()
	f.s.pending++
	f.s.mu.Unlock()
}

// EndOp records that a previously-begun operation released the descriptor.
// If this was the last reference and the last in-flight op, the fd is
// closed now (invariant 2, spec.md §8).
func (f SharedFd) EndOp() {
	f.s.mu.Lock()
	f.s.pending--
	shouldClose := f.s.pending == 0 && f.s.refs.Load() == 0 && !f.s.closed
	if shouldClose {
		f.s.closed = true
	}
	f.s.mu.Unlock()
	if shouldClose {
		f.doClose()
	}
}

// Drop releases one reference. When it's the last reference and no op is
// in flight, the descriptor is closed synchronously; otherwise the close is
// deferred to the op that brings pending to zero.
func (f SharedFd) Drop() {
	remaining := f.s.refs.Add(-1)
	if remaining > 0 {
		return
	}
	f.s.mu.Lock()
	shouldClose := f.s.pending == 0 && !f.s.closed
	if shouldClose {
		f.s.closed = true
	}
	f.s.mu.Unlock()
	if shouldClose {
		f.doClose()
	}
}

func (f SharedFd) doClose() {
	if err := f.s.closer.CloseFd(f.s.fd); err != nil {
		logging.Default().With("sharedfd").Debugf("close fd=%d failed: %v", f.s.fd, err)
	}
}

// Closed reports whether the descriptor has already been closed.
func (f SharedFd) Closed() bool {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.s.closed
}
