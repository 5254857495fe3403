package sharedfd

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeCloser struct {
	closed atomic.Int32
	fd     atomic.Int64
}

func (c *fakeCloser) CloseFd(fd int) error {
	c.closed.Add(1)
	c.fd.Store(int64(fd))
	return nil
}

func TestDropLastReferenceClosesImmediately(t *testing.T) {
	c := &fakeCloser{}
	f := New(42, c)

	f.Drop()
	require.Equal(t, int32(1), c.closed.Load())
	require.Equal(t, int64(42), c.fd.Load())
	require.True(t, f.Closed())
}

func TestCloneKeepsFdOpenUntilAllDropped(t *testing.T) {
	c := &fakeCloser{}
	f := New(1, c)
	clone := f.Clone()

	f.Drop()
	require.Equal(t, int32(0), c.closed.Load(), "fd must stay open while a clone remains")

	clone.Drop()
	require.Equal(t, int32(1), c.closed.Load())
}

func TestCloseDeferredWhileOpPending(t *testing.T) {
	c := &fakeCloser{}
	f := New(7, c)

	f.BeginOp()
	f.Drop()
	require.Equal(t, int32(0), c.closed.Load(), "close must wait for the in-flight op")

	f.EndOp()
	require.Equal(t, int32(1), c.closed.Load(), "last EndOp after last Drop must close")
}

func TestRegistrationToken(t *testing.T) {
	f := New(1, &fakeCloser{})
	require.EqualValues(t, -1, f.RegistrationToken())
	f.SetRegistrationToken(5)
	require.EqualValues(t, 5, f.RegistrationToken())

	clone := f.Clone()
	require.EqualValues(t, 5, clone.RegistrationToken(), "clones observe the same registration state")
}
