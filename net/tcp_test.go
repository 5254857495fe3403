package net

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ringloop/ringloop"
)

func newTestRuntime(t *testing.T) *ringloop.Runtime {
	rt, err := ringloop.NewBuilder().WithSelector(ringloop.SelectorLegacy).Build()
	require.NoError(t, err)
	t.Cleanup(func() { rt.Close() })
	return rt
}

// TestTCPEchoLoopback grounds spec.md §8 scenario S1: server accepts,
// echoes an owned-buffer read/write back to the client.
func TestTCPEchoLoopback(t *testing.T) {
	rt := newTestRuntime(t)

	ln, err := ListenTCP("127.0.0.1:0", DefaultTCPListenOptions())
	require.NoError(t, err)
	defer ln.Close()

	_, err = ringloop.BlockOn(rt, func(ctx *ringloop.Context) (struct{}, error) {
		serverDone := ringloop.Spawn(ctx, func(ctx *ringloop.Context) (struct{}, error) {
			conn, _, aerr := ln.Accept(ctx)
			if aerr != nil {
				return struct{}{}, aerr
			}
			defer conn.Close()
			buf := make([]byte, 5)
			n, rerr := ringloop.ReadExact(ctx, conn, buf)
			if rerr != nil {
				return struct{}{}, rerr
			}
			_, werr := ringloop.WriteAll(ctx, conn, buf[:n])
			return struct{}{}, werr
		})

		client, derr := DialTCP(ctx, ln.Addr().String(), TCPConnectOptions{})
		if derr != nil {
			return struct{}{}, derr
		}
		defer client.Close()

		if _, werr := ringloop.WriteAll(ctx, client, []byte("hello")); werr != nil {
			return struct{}{}, werr
		}
		back := make([]byte, 5)
		if _, rerr := ringloop.ReadExact(ctx, client, back); rerr != nil {
			return struct{}{}, rerr
		}
		require.Equal(t, "hello", string(back))

		_, serr := ringloop.Await(ctx, serverDone)
		return struct{}{}, serr
	})
	require.NoError(t, err)
}

// TestCancelableAcceptTimesOutWithoutConnection grounds scenario S4: a
// cancelable accept races a sleep; when nothing connects, canceling the
// handle resolves the accept with ErrCanceled rather than hanging.
func TestCancelableAcceptTimesOutWithoutConnection(t *testing.T) {
	rt := newTestRuntime(t)

	ln, err := ListenTCP("127.0.0.1:0", DefaultTCPListenOptions())
	require.NoError(t, err)
	defer ln.Close()

	_, err = ringloop.BlockOn(rt, func(ctx *ringloop.Context) (struct{}, error) {
		canceller := ringloop.NewCanceller()
		acceptDone := ringloop.Spawn(ctx, func(ctx *ringloop.Context) (error, error) {
			_, _, aerr := ln.AcceptCancelable(ctx, canceller.Handle())
			return aerr, nil
		})

		ringloop.Sleep(ctx, 20*time.Millisecond)
		canceller.Cancel()

		aerr, _ := ringloop.Await(ctx, acceptDone)
		require.ErrorIs(t, aerr, ringloop.ErrCanceled)
		return struct{}{}, nil
	})
	require.NoError(t, err)
}

func TestListenTCPEphemeralPortIsResolved(t *testing.T) {
	ln, err := ListenTCP("127.0.0.1:0", DefaultTCPListenOptions())
	require.NoError(t, err)
	defer ln.Close()
	require.NotZero(t, ln.Addr().Port)
	require.Equal(t, "127.0.0.1", ln.Addr().IP.String())
}
