package driver

import (
	"github.com/ringloop/ringloop/internal/buffer"
	"github.com/ringloop/ringloop/internal/sharedfd"
)

// AcceptOp accepts a connection on a listening socket. SockAddr is scratch
// memory the kernel fills in; it must stay alive until completion, so the
// lifecycle.Table retains it via stateIgnored.payload if the future is
// dropped first (spec.md §6 "Accept").
type AcceptOp struct {
	Fd         sharedfd.SharedFd
	SockAddr   []byte
	SockAddrLn *uint32
	Flags      int
}

func (AcceptOp) Code() OpCode { return OpAccept }

func (o AcceptOp) OpFd() sharedfd.SharedFd { return o.Fd }

// ReadOp reads into Buf at Offset (-1 for the current stream position, i.e.
// a socket rather than a file).
type ReadOp struct {
	Fd     sharedfd.SharedFd
	Buf    buffer.WritableBuffer
	Offset int64
}

func (ReadOp) Code() OpCode { return OpRead }

func (o ReadOp) OpFd() sharedfd.SharedFd { return o.Fd }

// ReadvOp is the vectored counterpart of ReadOp.
type ReadvOp struct {
	Fd     sharedfd.SharedFd
	Bufs   buffer.VectoredWritable
	Offset int64
}

func (ReadvOp) Code() OpCode { return OpReadv }

func (o ReadvOp) OpFd() sharedfd.SharedFd { return o.Fd }

// WriteOp writes Buf's readable bytes at Offset.
type WriteOp struct {
	Fd     sharedfd.SharedFd
	Buf    buffer.ReadableBuffer
	Offset int64
}

func (WriteOp) Code() OpCode { return OpWrite }

func (o WriteOp) OpFd() sharedfd.SharedFd { return o.Fd }

// WritevOp is the vectored counterpart of WriteOp.
type WritevOp struct {
	Fd     sharedfd.SharedFd
	Bufs   buffer.VectoredReadable
	Offset int64
}

func (WritevOp) Code() OpCode { return OpWritev }

func (o WritevOp) OpFd() sharedfd.SharedFd { return o.Fd }

// SendOp sends Buf on a connected/datagram socket.
type SendOp struct {
	Fd    sharedfd.SharedFd
	Buf   buffer.ReadableBuffer
	Flags int
}

func (SendOp) Code() OpCode { return OpSend }

func (o SendOp) OpFd() sharedfd.SharedFd { return o.Fd }

// RecvOp receives into Buf from a connected/datagram socket.
type RecvOp struct {
	Fd    sharedfd.SharedFd
	Buf   buffer.WritableBuffer
	Flags int
}

func (RecvOp) Code() OpCode { return OpRecv }

func (o RecvOp) OpFd() sharedfd.SharedFd { return o.Fd }

// ConnectOp initiates a stream connect. Addr is the raw sockaddr the kernel
// reads during submission; unlike AcceptOp's SockAddr it need not outlive
// completion since the kernel only reads it once, synchronously, at submit
// time (per connect(2)/io_uring's IORING_OP_CONNECT contract).
type ConnectOp struct {
	Fd   sharedfd.SharedFd
	Addr []byte
}

func (ConnectOp) Code() OpCode { return OpConnect }

func (o ConnectOp) OpFd() sharedfd.SharedFd { return o.Fd }

// CloseOp closes Fd's underlying descriptor once the last SharedFd clone and
// the last in-flight op against it have released it.
type CloseOp struct {
	Fd sharedfd.SharedFd
}

func (CloseOp) Code() OpCode { return OpClose }

func (o CloseOp) OpFd() sharedfd.SharedFd { return o.Fd }

// FsyncOp flushes Fd's data (and metadata, if DataOnly is false) to storage.
type FsyncOp struct {
	Fd       sharedfd.SharedFd
	DataOnly bool
}

func (FsyncOp) Code() OpCode { return OpFsync }

func (o FsyncOp) OpFd() sharedfd.SharedFd { return o.Fd }

// OpenAtOp opens Path relative to DirFd (AT_FDCWD for an absolute/cwd-
// relative path) with the given flags and mode.
type OpenAtOp struct {
	DirFd int
	Path  string
	Flags int
	Mode  uint32
}

func (OpenAtOp) Code() OpCode { return OpOpenAt }

// TimeoutOp fires once after NanosFromNow elapses, independent of the timer
// wheel — used by the driver's own Park deadline and by fs/net ops that need
// a linked timeout (spec.md §7 "IORING_OP_LINK_TIMEOUT" equivalent is out of
// scope; this is a standalone timeout entry).
type TimeoutOp struct {
	NanosFromNow int64
}

func (TimeoutOp) Code() OpCode { return OpTimeout }

// AsyncCancelOp best-effort cancels the op at TargetSlot.
type AsyncCancelOp struct {
	TargetSlot int
}

func (AsyncCancelOp) Code() OpCode { return OpAsyncCancel }

// SocketOp creates a new socket (optional opcode, spec.md §6).
type SocketOp struct {
	Domain, Type, Protocol int
}

func (SocketOp) Code() OpCode { return OpSocket }

// SpliceOp moves bytes between two fds without a userspace round-trip
// (optional opcode, spec.md §6).
type SpliceOp struct {
	FdIn, FdOut     sharedfd.SharedFd
	OffIn, OffOut   int64
	Len             int
}

func (SpliceOp) Code() OpCode { return OpSplice }

// UnlinkAtOp removes Path relative to DirFd (optional opcode).
type UnlinkAtOp struct {
	DirFd int
	Path  string
	Dir   bool
}

func (UnlinkAtOp) Code() OpCode { return OpUnlinkAt }

// RenameAtOp renames OldPath (relative to OldDirFd) to NewPath (relative to
// NewDirFd), optional opcode.
type RenameAtOp struct {
	OldDirFd          int
	OldPath, NewPath  string
	NewDirFd          int
}

func (RenameAtOp) Code() OpCode { return OpRenameAt }

// MkDirAtOp creates a directory at Path relative to DirFd (optional opcode).
type MkDirAtOp struct {
	DirFd int
	Path  string
	Mode  uint32
}

func (MkDirAtOp) Code() OpCode { return OpMkDirAt }
