package net

import (
	gonet "net"

	"golang.org/x/sys/unix"

	"github.com/ringloop/ringloop/internal/sharedfd"
)

// newNonblockingSocket creates a non-blocking, close-on-exec socket of the
// given domain/type, the same flag pair
// internal/driver/legacy/syscalls_linux.go's doSyscall sets on its
// SocketOp/Accept4 paths, so fds this package hands to the driver behave
// consistently whether the driver ends up polling them via epoll or handing
// them straight to io_uring.
func newNonblockingSocket(domain, typ, proto int) (int, error) {
	return unix.Socket(domain, typ|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, proto)
}

// setReuse applies SO_REUSEADDR/SO_REUSEPORT, two of spec.md §6's TCP
// listener bind options.
func setReuse(fd int, reuseAddr, reusePort bool) error {
	if reuseAddr {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			return err
		}
	}
	if reusePort {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
			return err
		}
	}
	return nil
}

// setBufSizes applies SO_SNDBUF/SO_RCVBUF when non-zero.
func setBufSizes(fd, sendBuf, recvBuf int) error {
	if sendBuf > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, sendBuf); err != nil {
			return err
		}
	}
	if recvBuf > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, recvBuf); err != nil {
			return err
		}
	}
	return nil
}

// tcpFastOpenConnect is unix.TCP_FASTOPEN_CONNECT, not exposed by every
// golang.org/x/sys/unix build this module targets; the numeric value is
// stable across kernel versions (include/uapi/linux/tcp.h).
const tcpFastOpenConnect = 30

// setTCPFastOpenListen enables TFO on a listening socket with the given
// queue length hint.
func setTCPFastOpenListen(fd, queueLen int) error {
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_FASTOPEN, queueLen)
}

// setTCPFastOpenConnect enables TFO on a connecting socket (spec.md §9
// "Fast-open on connect is Linux-kernel-version-gated ... on older kernels
// silently degrades" — the caller swallows this call's error for exactly
// that reason).
func setTCPFastOpenConnect(fd int) error {
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, tcpFastOpenConnect, 1)
}

func sockaddrInet(ip gonet.IP, port int) unix.Sockaddr {
	if ip4 := ip.To4(); ip4 != nil {
		sa := &unix.SockaddrInet4{Port: port}
		copy(sa.Addr[:], ip4)
		return sa
	}
	ip6 := ip.To16()
	if ip6 == nil {
		ip6 = make([]byte, 16)
	}
	sa := &unix.SockaddrInet6{Port: port}
	copy(sa.Addr[:], ip6)
	return sa
}

// domainFor picks AF_INET/AF_INET6 for the listener/dialer socket() call.
func domainFor(ip gonet.IP) int {
	if ip != nil && ip.To4() != nil {
		return unix.AF_INET
	}
	return unix.AF_INET6
}

func wrapFd(fd int) sharedfd.SharedFd {
	return sharedfd.New(fd, nil)
}

// localAddr reads back the address the kernel assigned fd (used after
// bind(0) to discover the ephemeral port spec.md's S1 scenario relies on).
func localAddr(fd int) (*gonet.TCPAddr, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return nil, err
	}
	return sockaddrToTCPAddr(sa), nil
}

func peerAddr(fd int) (*gonet.TCPAddr, error) {
	sa, err := unix.Getpeername(fd)
	if err != nil {
		return nil, err
	}
	return sockaddrToTCPAddr(sa), nil
}

func sockaddrToTCPAddr(sa unix.Sockaddr) *gonet.TCPAddr {
	switch s := sa.(type) {
	case *unix.SockaddrInet4:
		ip := make(gonet.IP, 4)
		copy(ip, s.Addr[:])
		return &gonet.TCPAddr{IP: ip, Port: s.Port}
	case *unix.SockaddrInet6:
		ip := make(gonet.IP, 16)
		copy(ip, s.Addr[:])
		return &gonet.TCPAddr{IP: ip, Port: s.Port}
	default:
		return &gonet.TCPAddr{}
	}
}
