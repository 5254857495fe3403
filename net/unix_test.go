package net

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ringloop/ringloop"
)

func TestUnixStreamEchoLoopback(t *testing.T) {
	rt := newTestRuntime(t)

	sockPath := filepath.Join(t.TempDir(), fmt.Sprintf("ringloop-%d.sock", os.Getpid()))
	ln, err := ListenUnix(sockPath, 0)
	require.NoError(t, err)
	defer ln.Close()

	_, err = ringloop.BlockOn(rt, func(ctx *ringloop.Context) (struct{}, error) {
		serverDone := ringloop.Spawn(ctx, func(ctx *ringloop.Context) (struct{}, error) {
			// The connecting client is unbound, so its peer address as seen
			// by accept(2) is the kernel's empty/unspecified sockaddr_un —
			// only the server's own ln.Addr() names sockPath.
			conn, _, aerr := ln.Accept(ctx)
			if aerr != nil {
				return struct{}{}, aerr
			}
			defer conn.Close()
			buf := make([]byte, 3)
			n, rerr := ringloop.ReadExact(ctx, conn, buf)
			if rerr != nil {
				return struct{}{}, rerr
			}
			_, werr := ringloop.WriteAll(ctx, conn, buf[:n])
			return struct{}{}, werr
		})

		client, derr := DialUnix(ctx, sockPath)
		if derr != nil {
			return struct{}{}, derr
		}
		defer client.Close()

		if _, werr := ringloop.WriteAll(ctx, client, []byte("hey")); werr != nil {
			return struct{}{}, werr
		}
		back := make([]byte, 3)
		if _, rerr := ringloop.ReadExact(ctx, client, back); rerr != nil {
			return struct{}{}, rerr
		}
		require.Equal(t, "hey", string(back))

		_, serr := ringloop.Await(ctx, serverDone)
		return struct{}{}, serr
	})
	require.NoError(t, err)
}
