package net

import (
	gonet "net"

	"golang.org/x/sys/unix"

	"github.com/ringloop/ringloop"
	"github.com/ringloop/ringloop/internal/buffer"
	"github.com/ringloop/ringloop/internal/driver"
	"github.com/ringloop/ringloop/internal/sharedfd"
)

// UDPOptions mirrors TCPListenOptions' reuse/buffer knobs for a UDP socket
// (spec.md §6 "UDP socket ... analogous").
type UDPOptions struct {
	ReuseAddr bool
	ReusePort bool
	SendBuf   int
	RecvBuf   int
}

// UDPSocket is a bound datagram socket. This module scopes the owned-buffer
// contract to the connected-peer case (Connect then Send/Recv): the driver
// only exposes Send/Recv, not sendmsg/recvmsg-with-address, so an
// unconnected multi-peer sendto/recvfrom surface is left out here — see
// DESIGN.md for the scope decision.
type UDPSocket struct {
	fd    sharedfd.SharedFd
	local *gonet.UDPAddr
}

// ListenUDP binds a UDP socket to addr.
func ListenUDP(addr string, opts UDPOptions) (*UDPSocket, error) {
	udpAddr, err := gonet.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	fd, err := newNonblockingSocket(domainFor(udpAddr.IP), unix.SOCK_DGRAM, 0)
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
	if err := unix.Bind(fd, sockaddrInet(udpAddr.IP, udpAddr.Port)); err != nil {
		unix.Close(fd)
		return nil, err
	}
	local, err := localAddr(fd)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	return &UDPSocket{fd: wrapFd(fd), local: &gonet.UDPAddr{IP: local.IP, Port: local.Port}}, nil
}

// Addr returns the socket's bound local address.
func (u *UDPSocket) Addr() *gonet.UDPAddr { return u.local }

// Connect fixes the socket's peer, after which SendOwned/RecvOwned behave
// like a connected stream's send/recv.
func (u *UDPSocket) Connect(peer *gonet.UDPAddr) error {
	return unix.Connect(u.fd.RawFd(), sockaddrFromUDP(peer))
}

func sockaddrFromUDP(addr *gonet.UDPAddr) unix.Sockaddr {
	sa := sockaddrInet(addr.IP, addr.Port)
	return sa
}

// SendOwned sends buf to the connected peer.
func (u *UDPSocket) SendOwned(ctx *ringloop.Context, buf []byte) (int, error) {
	pb := buffer.NewPlainBuffer(buf)
	res, err := ringloop.Submit(ctx, driver.SendOp{Fd: u.fd, Buf: pb})
	if err != nil {
		return 0, err
	}
	if res.Err != nil {
		return 0, ringloop.WrapError("send", res.Err)
	}
	return int(res.N), nil
}

// RecvOwned receives into buf from the connected peer.
func (u *UDPSocket) RecvOwned(ctx *ringloop.Context, buf []byte) (int, error) {
	pb := buffer.NewPlainBuffer(buf)
	res, err := ringloop.Submit(ctx, driver.RecvOp{Fd: u.fd, Buf: pb})
	if err != nil {
		return 0, err
	}
	if res.Err != nil {
		return 0, ringloop.WrapError("recv", res.Err)
	}
	return int(res.N), nil
}

// WriteOwned implements ringloop.OwnedWriter once Connect has fixed a peer.
func (u *UDPSocket) WriteOwned(ctx *ringloop.Context, buf []byte) (int, error) {
	return u.SendOwned(ctx, buf)
}

// ReadOwned implements ringloop.OwnedReader once Connect has fixed a peer.
func (u *UDPSocket) ReadOwned(ctx *ringloop.Context, buf []byte) (int, error) {
	return u.RecvOwned(ctx, buf)
}

// Close releases the socket.
func (u *UDPSocket) Close() error {
	u.fd.Drop()
	return nil
}
