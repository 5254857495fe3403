// Package driver defines the Driver abstraction unifying the completion
// (io_uring) and readiness (epoll/kqueue/IOCP) backends under one operation
// contract, per spec.md §4.2.
//
// Grounded on the teacher's internal/uring.Ring interface (Submit/Prepare/
// Flush/WaitForCompletion) — driver.Driver generalizes that shape from
// ublk's fixed two-command vocabulary (ctrl cmd, io cmd) to the open
// opcode set spec.md §4.2 requires, and folds in a third backend-agnostic
// axis (readiness vs completion) that the teacher, talking to exactly one
// io_uring ring, never needed.
package driver

import (
	"time"

	"github.com/ringloop/ringloop/internal/lifecycle"
	"github.com/ringloop/ringloop/internal/sharedfd"
)

// OpCode names a submittable operation kind. The required set and optional
// set are exactly spec.md §4.2's lists.
type OpCode int

const (
	OpAccept OpCode = iota
	OpAsyncCancel
	OpClose
	OpConnect
	OpFsync
	OpOpenAt
	OpRead
	OpReadv
	OpRecv
	OpSend
	OpTimeout
	OpWrite
	OpWritev
	// Optional opcodes, listed in Optional below.
	OpSocket
	OpBind
	OpListen
	OpSplice
	OpMkDirAt
	OpUnlinkAt
	OpSymlinkAt
	OpRenameAt
)

func (c OpCode) String() string {
	switch c {
	case OpAccept:
		return "accept"
	case OpAsyncCancel:
		return "async_cancel"
	case OpClose:
		return "close"
	case OpConnect:
		return "connect"
	case OpFsync:
		return "fsync"
	case OpOpenAt:
		return "openat"
	case OpRead:
		return "read"
	case OpReadv:
		return "readv"
	case OpRecv:
		return "recv"
	case OpSend:
		return "send"
	case OpTimeout:
		return "timeout"
	case OpWrite:
		return "write"
	case OpWritev:
		return "writev"
	case OpSocket:
		return "socket"
	case OpBind:
		return "bind"
	case OpListen:
		return "listen"
	case OpSplice:
		return "splice"
	case OpMkDirAt:
		return "mkdirat"
	case OpUnlinkAt:
		return "unlinkat"
	case OpSymlinkAt:
		return "symlinkat"
	case OpRenameAt:
		return "renameat"
	default:
		return "unknown"
	}
}

// Required lists the opcodes a completion backend must support to be
// selected over the readiness fallback (spec.md §4.2).
var Required = []OpCode{
	OpAccept, OpAsyncCancel, OpClose, OpConnect, OpFsync, OpOpenAt,
	OpRead, OpReadv, OpRecv, OpSend, OpTimeout, OpWrite, OpWritev,
}

// Optional lists opcodes gated behind their own compile-time feature flags
// (spec.md §6): bind/listen/mkdirat/renameat/unlinkat/symlinkat/splice/socket.
var Optional = []OpCode{
	OpSocket, OpBind, OpListen, OpSplice, OpMkDirAt, OpUnlinkAt, OpSymlinkAt, OpRenameAt,
}

// Op is a submittable action payload. Concrete implementations (AcceptOp,
// ReadOp, ...) live in this package so both the uring and legacy backends
// can consume the same payload shapes (spec.md §3 "Operation (Op<T>)").
type Op interface {
	Code() OpCode
}

// FdOp is implemented by ops that reference a single SharedFd directly,
// letting Submit bracket the kernel's access with BeginOp/EndOp so a
// concurrent Drop on the last clone can't close the descriptor while this
// op is still in flight (spec.md §8 invariant 2).
type FdOp interface {
	OpFd() sharedfd.SharedFd
}

// Driver is the four-operation abstraction from spec.md §4.2.
type Driver interface {
	// Submit allocates a lifecycle slot and hands op to the backend.
	// Returns an error if the backend cannot accept op (on the uring
	// backend, when its submission queue stays full after a flush).
	Submit(op Op) (slot int, err error)

	// Poll delegates to the lifecycle state machine for slot.
	Poll(slot int, waker lifecycle.Waker) lifecycle.PollResult

	// Drop is called when an op's future is abandoned before completion.
	// payload is retained (lifecycle's Ignored state) until the backend can
	// prove the kernel is done with it: an async-cancel SQE's eventual CQE
	// on the completion backend, or — since readiness-backend syscalls are
	// always synchronous from the kernel's point of view — immediately on
	// the readiness backend (spec.md §4.5).
	Drop(slot int, payload any)

	// Flush pushes any batched-but-unsubmitted work to the kernel without
	// blocking (spec.md §4.3 "After every batch of user code, the driver
	// flushes pending SQEs"). A no-op for backends with nothing to batch.
	Flush() error

	// Park blocks the worker for up to timeout waiting for at least one
	// completion or an external unpark, then dispatches all completions
	// that arrived. timeout < 0 means block forever.
	Park(timeout time.Duration) error

	// Close releases backend resources (the ring fd, the epoll fd, ...).
	Close() error
}

// Kind identifies which backend a Driver instance is.
type Kind int

const (
	KindUring Kind = iota
	KindLegacy
)

func (k Kind) String() string {
	if k == KindUring {
		return "uring"
	}
	return "legacy"
}
