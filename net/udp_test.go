package net

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ringloop/ringloop"
)

func TestUDPConnectedSendRecvLoopback(t *testing.T) {
	rt := newTestRuntime(t)

	server, err := ListenUDP("127.0.0.1:0", UDPOptions{})
	require.NoError(t, err)
	defer server.Close()

	client, err := ListenUDP("127.0.0.1:0", UDPOptions{})
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, server.Connect(client.Addr()))
	require.NoError(t, client.Connect(server.Addr()))

	_, err = ringloop.BlockOn(rt, func(ctx *ringloop.Context) (struct{}, error) {
		if _, werr := client.SendOwned(ctx, []byte("ping")); werr != nil {
			return struct{}{}, werr
		}
		buf := make([]byte, 4)
		n, rerr := server.RecvOwned(ctx, buf)
		if rerr != nil {
			return struct{}{}, rerr
		}
		require.Equal(t, "ping", string(buf[:n]))
		return struct{}{}, nil
	})
	require.NoError(t, err)
}
