package net

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ringloop/ringloop"
)

// TestZeroCopyTransfersBytesBetweenTCPStreams grounds spec.md §8 scenario
// S6: zero_copy(&mut reader, &mut writer) on a TCP pair transfers N bytes.
// It wires up two independent TCP pairs, writes payload into the first
// pair's accepted side, splices those bytes into the second pair's dial
// side with ZeroCopy, and checks the second pair's accepted side observes
// the same payload.
func TestZeroCopyTransfersBytesBetweenTCPStreams(t *testing.T) {
	rt := newTestRuntime(t)
	const payload = "the quick brown fox jumps over the lazy dog"

	_, err := ringloop.BlockOn(rt, func(ctx *ringloop.Context) (struct{}, error) {
		ln1, lerr := ListenTCP("127.0.0.1:0", DefaultTCPListenOptions())
		if lerr != nil {
			return struct{}{}, lerr
		}
		defer ln1.Close()
		accept1 := ringloop.Spawn(ctx, func(ctx *ringloop.Context) (*TCPStream, error) {
			conn, _, err := ln1.Accept(ctx)
			return conn, err
		})
		c1, derr := DialTCP(ctx, ln1.Addr().String(), TCPConnectOptions{})
		if derr != nil {
			return struct{}{}, derr
		}
		if _, werr := ringloop.WriteAll(ctx, c1, []byte(payload)); werr != nil {
			return struct{}{}, werr
		}
		src, aerr := ringloop.Await(ctx, accept1)
		if aerr != nil {
			return struct{}{}, aerr
		}

		ln2, lerr2 := ListenTCP("127.0.0.1:0", DefaultTCPListenOptions())
		if lerr2 != nil {
			return struct{}{}, lerr2
		}
		defer ln2.Close()
		accept2 := ringloop.Spawn(ctx, func(ctx *ringloop.Context) (*TCPStream, error) {
			conn, _, err := ln2.Accept(ctx)
			return conn, err
		})
		dst, derr2 := DialTCP(ctx, ln2.Addr().String(), TCPConnectOptions{})
		if derr2 != nil {
			return struct{}{}, derr2
		}
		dstPeer, aerr2 := ringloop.Await(ctx, accept2)
		if aerr2 != nil {
			return struct{}{}, aerr2
		}

		n, zerr := ZeroCopy(ctx, dst, src, int64(len(payload)))
		if zerr != nil {
			return struct{}{}, zerr
		}
		require.EqualValues(t, len(payload), n)

		buf := make([]byte, len(payload))
		if _, rerr := ringloop.ReadExact(ctx, dstPeer, buf); rerr != nil {
			return struct{}{}, rerr
		}
		require.Equal(t, payload, string(buf))
		return struct{}{}, nil
	})
	require.NoError(t, err)
}
