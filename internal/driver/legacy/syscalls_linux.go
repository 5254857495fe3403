//go:build linux

package legacy

import (
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ringloop/ringloop/internal/driver"
)

func nowNanos() int64 { return time.Now().UnixNano() }

// fdAndDirection reports which fd and readiness direction op depends on, if
// any (file ops and timeouts return ok=false: they never block on epoll).
func fdAndDirection(op driver.Op) (fd int, dir direction, ok bool) {
	switch o := op.(type) {
	case driver.AcceptOp:
		return o.Fd.RawFd(), dirRead, true
	case driver.ReadOp:
		return o.Fd.RawFd(), dirRead, true
	case driver.ReadvOp:
		return o.Fd.RawFd(), dirRead, true
	case driver.RecvOp:
		return o.Fd.RawFd(), dirRead, true
	case driver.WriteOp:
		return o.Fd.RawFd(), dirWrite, true
	case driver.WritevOp:
		return o.Fd.RawFd(), dirWrite, true
	case driver.SendOp:
		return o.Fd.RawFd(), dirWrite, true
	case driver.ConnectOp:
		return o.Fd.RawFd(), dirWrite, true
	default:
		return 0, 0, false
	}
}

// doSyscall performs op's one-shot, non-blocking syscall attempt. Returns
// unix.EAGAIN/EWOULDBLOCK via err when the caller should park on readiness.
func doSyscall(op driver.Op) (n int32, err error, fd int, dir direction) {
	switch o := op.(type) {
	case driver.AcceptOp:
		connFd, _, aerr := unix.Accept4(o.Fd.RawFd(), unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if aerr != nil {
			return 0, aerr, o.Fd.RawFd(), dirRead
		}
		return int32(connFd), nil, o.Fd.RawFd(), dirRead

	case driver.ReadOp:
		buf := o.Buf.Bytes()
		var got int
		var rerr error
		if o.Offset >= 0 {
			got, rerr = unix.Pread(o.Fd.RawFd(), buf, o.Offset)
		} else {
			got, rerr = unix.Read(o.Fd.RawFd(), buf)
		}
		return int32(got), rerr, o.Fd.RawFd(), dirRead

	case driver.WriteOp:
		buf := o.Buf.Bytes()
		var put int
		var werr error
		if o.Offset >= 0 {
			put, werr = unix.Pwrite(o.Fd.RawFd(), buf, o.Offset)
		} else {
			put, werr = unix.Write(o.Fd.RawFd(), buf)
		}
		return int32(put), werr, o.Fd.RawFd(), dirWrite

	case driver.SendOp:
		serr := unix.Send(o.Fd.RawFd(), o.Buf.Bytes(), o.Flags)
		if serr != nil {
			return 0, serr, o.Fd.RawFd(), dirWrite
		}
		return int32(len(o.Buf.Bytes())), nil, o.Fd.RawFd(), dirWrite

	case driver.RecvOp:
		got, _, _, _, rerr := unix.Recvmsg(o.Fd.RawFd(), o.Buf.Bytes(), nil, o.Flags)
		return int32(got), rerr, o.Fd.RawFd(), dirRead

	case driver.ConnectOp:
		sa := (*unix.RawSockaddrAny)(unsafe.Pointer(&o.Addr[0]))
		cerr := connectRaw(o.Fd.RawFd(), sa, len(o.Addr))
		return 0, cerr, o.Fd.RawFd(), dirWrite

	case driver.CloseOp:
		return 0, unix.Close(o.Fd.RawFd()), 0, 0

	case driver.FsyncOp:
		if o.DataOnly {
			return 0, unix.Fdatasync(o.Fd.RawFd()), 0, 0
		}
		return 0, unix.Fsync(o.Fd.RawFd()), 0, 0

	case driver.OpenAtOp:
		fd, oerr := unix.Openat(o.DirFd, o.Path, o.Flags, o.Mode)
		return int32(fd), oerr, 0, 0

	case driver.MkDirAtOp:
		return 0, unix.Mkdirat(o.DirFd, o.Path, o.Mode), 0, 0

	case driver.UnlinkAtOp:
		flags := 0
		if o.Dir {
			flags = unix.AT_REMOVEDIR
		}
		return 0, unix.Unlinkat(o.DirFd, o.Path, flags), 0, 0

	case driver.RenameAtOp:
		return 0, unix.Renameat(o.OldDirFd, o.OldPath, o.NewDirFd, o.NewPath), 0, 0

	case driver.SocketOp:
		fd, serr := unix.Socket(o.Domain, o.Type|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, o.Protocol)
		return int32(fd), serr, 0, 0

	case driver.SpliceOp:
		got, serr := spliceRaw(o)
		return int32(got), serr, 0, 0

	case driver.AsyncCancelOp:
		return 0, nil, 0, 0

	default:
		return 0, unix.ENOSYS, 0, 0
	}
}

func connectRaw(fd int, sa *unix.RawSockaddrAny, length int) error {
	switch length {
	case unix.SizeofSockaddrInet4:
		var addr unix.RawSockaddrInet4
		*(*unix.RawSockaddrInet4)(unsafe.Pointer(&addr)) = *(*unix.RawSockaddrInet4)(unsafe.Pointer(sa))
		return connectInet4(fd, &addr)
	default:
		var addr unix.RawSockaddrInet6
		*(*unix.RawSockaddrInet6)(unsafe.Pointer(&addr)) = *(*unix.RawSockaddrInet6)(unsafe.Pointer(sa))
		return connectInet6(fd, &addr)
	}
}

func connectInet4(fd int, addr *unix.RawSockaddrInet4) error {
	var sa unix.SockaddrInet4
	sa.Port = int(addr.Port>>8) | int(addr.Port&0xff)<<8
	copy(sa.Addr[:], addr.Addr[:])
	return unix.Connect(fd, &sa)
}

func connectInet6(fd int, addr *unix.RawSockaddrInet6) error {
	var sa unix.SockaddrInet6
	sa.Port = int(addr.Port>>8) | int(addr.Port&0xff)<<8
	copy(sa.Addr[:], addr.Addr[:])
	return unix.Connect(fd, &sa)
}

func spliceRaw(o driver.SpliceOp) (int, error) {
	var offIn, offOut *int64
	if o.OffIn >= 0 {
		offIn = &o.OffIn
	}
	if o.OffOut >= 0 {
		offOut = &o.OffOut
	}
	return unix.Splice(o.FdIn.RawFd(), offIn, o.FdOut.RawFd(), offOut, o.Len, unix.SPLICE_F_NONBLOCK|unix.SPLICE_F_MOVE)
}

// applyInitialized mirrors the uring backend's finalize: reflect the
// syscall's byte count into the op's owned buffer.
func applyInitialized(op driver.Op, n int32) {
	switch o := op.(type) {
	case driver.ReadOp:
		o.Buf.SetInitialized(int(n))
	case driver.RecvOp:
		o.Buf.SetInitialized(int(n))
	}
}
