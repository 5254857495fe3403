// Package net provides TCP, UDP and Unix-domain socket types built on the
// runtime's owned-buffer driver ops, spec.md §6's "Network surface
// (externally visible contract only)". Address representation reuses the
// standard library's net.IP/net.TCPAddr/net.UnixAddr rather than inventing
// a parallel type, since spec.md §1 explicitly treats handshake/address
// parsing as out of scope for this module's own contribution.
package net

import (
	"unsafe"

	gonet "net"

	"golang.org/x/sys/unix"
)

// htons converts a host-order port into the network-order uint16 the raw
// sockaddr structs store, mirroring internal/driver/legacy/syscalls_linux.go's
// connectInet4/connectInet6 byte-swap (there done in the opposite direction,
// decoding a RawSockaddrInet4.Port back into a host-order int for
// unix.SockaddrInet4).
func htons(port int) uint16 {
	return uint16(port>>8) | uint16(port&0xff)<<8
}

func ntohs(port uint16) int {
	return int(port>>8) | int(port&0xff)<<8
}

// rawBytes reinterprets a pointer to a fixed-size C-layout struct as a
// standalone []byte copy, safe to hold past the struct's stack lifetime.
func rawBytes(ptr unsafe.Pointer, size int) []byte {
	src := unsafe.Slice((*byte)(ptr), size)
	out := make([]byte, size)
	copy(out, src)
	return out
}

// encodeInetAddr renders addr as a raw sockaddr_in/sockaddr_in6, the format
// driver.ConnectOp.Addr and the AcceptOp scratch buffer expect (spec.md §6,
// grounded on internal/driver/legacy/syscalls_linux.go's connectRaw).
func encodeInetAddr(ip gonet.IP, port int) []byte {
	if ip4 := ip.To4(); ip4 != nil {
		var sa unix.RawSockaddrInet4
		sa.Family = unix.AF_INET
		sa.Port = htons(port)
		copy(sa.Addr[:], ip4)
		return rawBytes(unsafe.Pointer(&sa), int(unsafe.Sizeof(sa)))
	}
	ip6 := ip.To16()
	if ip6 == nil {
		ip6 = make([]byte, 16)
	}
	var sa unix.RawSockaddrInet6
	sa.Family = unix.AF_INET6
	sa.Port = htons(port)
	copy(sa.Addr[:], ip6)
	return rawBytes(unsafe.Pointer(&sa), int(unsafe.Sizeof(sa)))
}

// decodeInetAddr parses the raw bytes the kernel fills into an Accept
// scratch buffer (or reads back from getsockname/getpeername) into an IP
// and port, dispatching on the family field exactly as
// internal/driver/legacy/syscalls_linux.go's connectRaw does on length.
func decodeInetAddr(raw []byte) (gonet.IP, int, error) {
	if len(raw) < 2 {
		return nil, 0, errShortSockaddr
	}
	family := *(*uint16)(unsafe.Pointer(&raw[0]))
	switch family {
	case unix.AF_INET:
		if len(raw) < int(unsafe.Sizeof(unix.RawSockaddrInet4{})) {
			return nil, 0, errShortSockaddr
		}
		sa := (*unix.RawSockaddrInet4)(unsafe.Pointer(&raw[0]))
		ip := make(gonet.IP, 4)
		copy(ip, sa.Addr[:])
		return ip, ntohs(sa.Port), nil
	default:
		if len(raw) < int(unsafe.Sizeof(unix.RawSockaddrInet6{})) {
			return nil, 0, errShortSockaddr
		}
		sa := (*unix.RawSockaddrInet6)(unsafe.Pointer(&raw[0]))
		ip := make(gonet.IP, 16)
		copy(ip, sa.Addr[:])
		return ip, ntohs(sa.Port), nil
	}
}

// acceptScratchSize is large enough for the bigger of sockaddr_in6 and
// sockaddr_un, so one scratch buffer shape serves AcceptOp across every
// address family this package supports.
const acceptScratchSize = 128

func newAcceptScratch() ([]byte, *uint32) {
	buf := make([]byte, acceptScratchSize)
	ln := uint32(len(buf))
	return buf, &ln
}

// encodeUnixAddr renders path as a raw sockaddr_un.
func encodeUnixAddr(path string) ([]byte, error) {
	var sa unix.RawSockaddrUnix
	if len(path) >= len(sa.Path) {
		return nil, errPathTooLong
	}
	sa.Family = unix.AF_UNIX
	for i := 0; i < len(path); i++ {
		sa.Path[i] = int8(path[i])
	}
	return rawBytes(unsafe.Pointer(&sa), int(unsafe.Sizeof(sa))), nil
}

func decodeUnixAddr(raw []byte) (*gonet.UnixAddr, error) {
	if len(raw) < 2 {
		return nil, errShortSockaddr
	}
	sa := (*unix.RawSockaddrUnix)(unsafe.Pointer(&raw[0]))
	n := 0
	for n < len(sa.Path) && sa.Path[n] != 0 {
		n++
	}
	b := make([]byte, n)
	for i := 0; i < n; i++ {
		b[i] = byte(sa.Path[i])
	}
	return &gonet.UnixAddr{Name: string(b), Net: "unix"}, nil
}
