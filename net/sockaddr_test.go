package net

import (
	gonet "net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeInet4RoundTrips(t *testing.T) {
	raw := encodeInetAddr(gonet.ParseIP("127.0.0.1"), 4242)
	ip, port, err := decodeInetAddr(raw)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", ip.To4().String())
	require.Equal(t, 4242, port)
}

func TestEncodeDecodeInet6RoundTrips(t *testing.T) {
	raw := encodeInetAddr(gonet.ParseIP("::1"), 9000)
	ip, port, err := decodeInetAddr(raw)
	require.NoError(t, err)
	require.Equal(t, "::1", ip.String())
	require.Equal(t, 9000, port)
}

func TestEncodeDecodeUnixAddrRoundTrips(t *testing.T) {
	raw, err := encodeUnixAddr("/tmp/ringloop-test.sock")
	require.NoError(t, err)
	addr, err := decodeUnixAddr(raw)
	require.NoError(t, err)
	require.Equal(t, "/tmp/ringloop-test.sock", addr.Name)
}

func TestEncodeUnixAddrRejectsOverlongPath(t *testing.T) {
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'a'
	}
	_, err := encodeUnixAddr(string(long))
	require.ErrorIs(t, err, errPathTooLong)
}

func TestHtonsNtohsRoundTrip(t *testing.T) {
	for _, port := range []int{0, 80, 4242, 65535} {
		require.Equal(t, port, ntohs(htons(port)))
	}
}
