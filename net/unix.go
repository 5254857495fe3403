package net

import (
	gonet "net"

	"golang.org/x/sys/unix"

	"github.com/ringloop/ringloop"
	"github.com/ringloop/ringloop/internal/buffer"
	"github.com/ringloop/ringloop/internal/driver"
	"github.com/ringloop/ringloop/internal/sharedfd"
)

// UnixListener accepts AF_UNIX SOCK_STREAM connections (spec.md §6 "Unix
// stream/listener ... analogous" to TCP). Unix datagram and Linux seqpacket
// sockets are deferred — see DESIGN.md for the scope decision.
type UnixListener struct {
	fd   sharedfd.SharedFd
	addr *gonet.UnixAddr
}

// ListenUnix binds and listens on a Unix domain stream socket at path.
func ListenUnix(path string, backlog int) (*UnixListener, error) {
	fd, err := newNonblockingSocket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, err
	}
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		unix.Close(fd)
		return nil, err
	}
	if backlog <= 0 {
		backlog = 128
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return &UnixListener{fd: wrapFd(fd), addr: &gonet.UnixAddr{Name: path, Net: "unix"}}, nil
}

// Addr returns the listener's bound path.
func (l *UnixListener) Addr() *gonet.UnixAddr { return l.addr }

// Accept waits for the next inbound connection.
func (l *UnixListener) Accept(ctx *ringloop.Context) (*UnixStream, *gonet.UnixAddr, error) {
	return l.accept(ctx, nil)
}

// AcceptCancelable behaves like Accept but resolves to ErrCanceled if
// cancel fires first.
func (l *UnixListener) AcceptCancelable(ctx *ringloop.Context, cancel *ringloop.CancelHandle) (*UnixStream, *gonet.UnixAddr, error) {
	return l.accept(ctx, cancel)
}

func (l *UnixListener) accept(ctx *ringloop.Context, cancel *ringloop.CancelHandle) (*UnixStream, *gonet.UnixAddr, error) {
	scratch, ln := newAcceptScratch()
	op := driver.AcceptOp{Fd: l.fd, SockAddr: scratch, SockAddrLn: ln}
	res, err := ringloop.SubmitCancelable(ctx, op, scratch, cancel)
	if err != nil {
		return nil, nil, err
	}
	if res.Err != nil {
		return nil, nil, ringloop.WrapError("accept", res.Err)
	}
	peer, _ := decodeUnixAddr(scratch[:*ln])
	return &UnixStream{fd: wrapFd(int(res.N))}, peer, nil
}

// Close stops accepting and releases the listening socket.
func (l *UnixListener) Close() error {
	l.fd.Drop()
	return nil
}

// UnixStream is a connected Unix domain stream socket.
type UnixStream struct {
	fd sharedfd.SharedFd
}

// DialUnix connects to the Unix domain stream socket at path.
func DialUnix(ctx *ringloop.Context, path string) (*UnixStream, error) {
	fd, err := newNonblockingSocket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, err
	}
	sfd := wrapFd(fd)
	raw, err := encodeUnixAddr(path)
	if err != nil {
		sfd.Drop()
		return nil, err
	}
	if _, err := ringloop.Submit(ctx, driver.ConnectOp{Fd: sfd, Addr: raw}); err != nil {
		sfd.Drop()
		return nil, err
	}
	return &UnixStream{fd: sfd}, nil
}

// ReadOwned implements ringloop.OwnedReader.
func (s *UnixStream) ReadOwned(ctx *ringloop.Context, buf []byte) (int, error) {
	pb := buffer.NewPlainBuffer(buf)
	res, err := ringloop.Submit(ctx, driver.ReadOp{Fd: s.fd, Buf: pb, Offset: -1})
	if err != nil {
		return 0, err
	}
	if res.Err != nil {
		return 0, ringloop.WrapError("read", res.Err)
	}
	return int(res.N), nil
}

// WriteOwned implements ringloop.OwnedWriter.
func (s *UnixStream) WriteOwned(ctx *ringloop.Context, buf []byte) (int, error) {
	pb := buffer.NewPlainBuffer(buf)
	res, err := ringloop.Submit(ctx, driver.WriteOp{Fd: s.fd, Buf: pb, Offset: -1})
	if err != nil {
		return 0, err
	}
	if res.Err != nil {
		return 0, ringloop.WrapError("write", res.Err)
	}
	return int(res.N), nil
}

// Split divides the stream into independent read/write halves.
func (s *UnixStream) Split() (ringloop.ReadHalf, ringloop.WriteHalf) {
	return ringloop.Split(s)
}

// Shutdown shuts down the read and/or write half.
func (s *UnixStream) Shutdown(how int) error {
	return unix.Shutdown(s.fd.RawFd(), how)
}

// Close releases the stream's descriptor.
func (s *UnixStream) Close() error {
	s.fd.Drop()
	return nil
}
