package net

import (
	gonet "net"
	"os"

	"golang.org/x/sys/unix"

	"github.com/ringloop/ringloop"
	"github.com/ringloop/ringloop/internal/buffer"
	"github.com/ringloop/ringloop/internal/driver"
	"github.com/ringloop/ringloop/internal/sharedfd"
)

// TCPListenOptions is spec.md §6's TCP listener bind option set.
type TCPListenOptions struct {
	ReuseAddr bool
	ReusePort bool
	Backlog   int
	SendBuf   int
	RecvBuf   int
	FastOpen  bool
}

// DefaultTCPListenOptions mirrors what a plain net.Listen gives you:
// address reuse on, a conventional backlog, no fast-open.
func DefaultTCPListenOptions() TCPListenOptions {
	return TCPListenOptions{ReuseAddr: true, Backlog: 128}
}

// TCPListener accepts connections via the runtime's driver (spec.md §6).
type TCPListener struct {
	fd   sharedfd.SharedFd
	addr *gonet.TCPAddr
}

// ListenTCP binds and listens on addr ("host:port"; port 0 picks an
// ephemeral port, as spec.md's S1 scenario relies on).
func ListenTCP(addr string, opts TCPListenOptions) (*TCPListener, error) {
	tcpAddr, err := gonet.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}
	fd, err := newNonblockingSocket(domainFor(tcpAddr.IP), unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, err
	}
	if err := setReuse(fd, opts.ReuseAddr, opts.ReusePort); err != nil {
		unix.Close(fd)
		return nil, err
	}
	if err := setBufSizes(fd, opts.SendBuf, opts.RecvBuf); err != nil {
		unix.Close(fd)
		return nil, err
	}
	backlog := opts.Backlog
	if backlog <= 0 {
		backlog = 128
	}
	if opts.FastOpen {
		_ = setTCPFastOpenListen(fd, backlog) // spec.md §9: silently degrades pre-4.11
	}
	if err := unix.Bind(fd, sockaddrInet(tcpAddr.IP, tcpAddr.Port)); err != nil {
		unix.Close(fd)
		return nil, err
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, err
	}
	local, err := localAddr(fd)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	return &TCPListener{fd: wrapFd(fd), addr: local}, nil
}

// Addr returns the address the listener is bound to.
func (l *TCPListener) Addr() *gonet.TCPAddr { return l.addr }

// Accept waits for and returns the next inbound connection along with the
// peer's address.
func (l *TCPListener) Accept(ctx *ringloop.Context) (*TCPStream, *gonet.TCPAddr, error) {
	return l.accept(ctx, nil)
}

// AcceptCancelable behaves like Accept but resolves to ErrCanceled if
// cancel fires first (spec.md §6 "cancelable accept accepting a
// CancelHandle", scenario S4).
func (l *TCPListener) AcceptCancelable(ctx *ringloop.Context, cancel *ringloop.CancelHandle) (*TCPStream, *gonet.TCPAddr, error) {
	return l.accept(ctx, cancel)
}

func (l *TCPListener) accept(ctx *ringloop.Context, cancel *ringloop.CancelHandle) (*TCPStream, *gonet.TCPAddr, error) {
	scratch, ln := newAcceptScratch()
	op := driver.AcceptOp{Fd: l.fd, SockAddr: scratch, SockAddrLn: ln}
	res, err := ringloop.SubmitCancelable(ctx, op, scratch, cancel)
	if err != nil {
		return nil, nil, err
	}
	if res.Err != nil {
		return nil, nil, ringloop.WrapError("accept", res.Err)
	}
	connFd := int(res.N)
	var peer *gonet.TCPAddr
	if ip, port, derr := decodeInetAddr(scratch[:*ln]); derr == nil {
		peer = &gonet.TCPAddr{IP: ip, Port: port}
	}
	return newTCPStream(wrapFd(connFd)), peer, nil
}

// Close stops accepting and releases the listening socket.
func (l *TCPListener) Close() error {
	l.fd.Drop()
	return nil
}

// TCPConnectOptions is spec.md §6's TCP stream connect option set.
type TCPConnectOptions struct {
	FastOpen bool
}

// TCPStream is a connected TCP socket exposing the owned-buffer read/write
// contract (spec.md §6).
type TCPStream struct {
	fd            sharedfd.SharedFd
	local, remote *gonet.TCPAddr
}

// DialTCP connects to addr.
func DialTCP(ctx *ringloop.Context, addr string, opts TCPConnectOptions) (*TCPStream, error) {
	tcpAddr, err := gonet.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}
	fd, err := newNonblockingSocket(domainFor(tcpAddr.IP), unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, err
	}
	if opts.FastOpen {
		_ = setTCPFastOpenConnect(fd) // spec.md §9: silently degrades pre-4.11
	}
	sfd := wrapFd(fd)
	raw := encodeInetAddr(tcpAddr.IP, tcpAddr.Port)
	if _, err := ringloop.Submit(ctx, driver.ConnectOp{Fd: sfd, Addr: raw}); err != nil {
		sfd.Drop()
		return nil, err
	}
	return newTCPStream(sfd), nil
}

func newTCPStream(fd sharedfd.SharedFd) *TCPStream {
	s := &TCPStream{fd: fd}
	s.local, _ = localAddr(fd.RawFd())
	s.remote, _ = peerAddr(fd.RawFd())
	return s
}

// ReadOwned implements ringloop.OwnedReader.
func (s *TCPStream) ReadOwned(ctx *ringloop.Context, buf []byte) (int, error) {
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
func (s *TCPStream) WriteOwned(ctx *ringloop.Context, buf []byte) (int, error) {
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

// ReadvOwned reads into bufs in one vectored operation.
func (s *TCPStream) ReadvOwned(ctx *ringloop.Context, bufs [][]byte) (int, error) {
	v := buffer.NewPlainVectored(bufs)
	res, err := ringloop.Submit(ctx, driver.ReadvOp{Fd: s.fd, Bufs: v, Offset: -1})
	if err != nil {
		return 0, err
	}
	if res.Err != nil {
		return 0, ringloop.WrapError("readv", res.Err)
	}
	return int(res.N), nil
}

// WritevOwned writes bufs in one vectored operation.
func (s *TCPStream) WritevOwned(ctx *ringloop.Context, bufs [][]byte) (int, error) {
	v := buffer.NewPlainVectored(bufs)
	res, err := ringloop.Submit(ctx, driver.WritevOp{Fd: s.fd, Bufs: v, Offset: -1})
	if err != nil {
		return 0, err
	}
	if res.Err != nil {
		return 0, ringloop.WrapError("writev", res.Err)
	}
	return int(res.N), nil
}

// Shutdown shuts down the read and/or write half per how (unix.SHUT_RD,
// SHUT_WR or SHUT_RDWR) — a synchronous syscall, since shutdown(2) never
// blocks.
func (s *TCPStream) Shutdown(how int) error {
	return unix.Shutdown(s.fd.RawFd(), how)
}

// Split divides the stream into independent read/write halves (spec.md §6
// "split into read/write halves").
func (s *TCPStream) Split() (ringloop.ReadHalf, ringloop.WriteHalf) {
	return ringloop.Split(s)
}

// SharedFd exposes the stream's underlying descriptor for callers that need
// to hand it to a driver op directly, such as ZeroCopy's splice pipeline.
func (s *TCPStream) SharedFd() sharedfd.SharedFd { return s.fd }

// LocalAddr returns the local endpoint.
func (s *TCPStream) LocalAddr() *gonet.TCPAddr { return s.local }

// RemoteAddr returns the peer endpoint.
func (s *TCPStream) RemoteAddr() *gonet.TCPAddr { return s.remote }

// IntoPollCompatible hands back a standard library net.Conn wrapping a
// duplicate of the stream's descriptor, for interop with readiness-based
// code that can't consume the owned-buffer contract (spec.md §6 "poll-mode
// conversion for compatibility"). The ringloop-owned TCPStream keeps
// working independently of the returned net.Conn's lifetime.
func (s *TCPStream) IntoPollCompatible() (gonet.Conn, error) {
	dupFd, err := unix.Dup(s.fd.RawFd())
	if err != nil {
		return nil, err
	}
	f := os.NewFile(uintptr(dupFd), "ringloop-tcp-stream")
	conn, err := gonet.FileConn(f)
	f.Close()
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Close releases the stream's descriptor.
func (s *TCPStream) Close() error {
	s.fd.Drop()
	return nil
}
