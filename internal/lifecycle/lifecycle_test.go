package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubmitPollWaitingThenComplete(t *testing.T) {
	tbl := NewTable()
	idx := tbl.Submit()

	var woke bool
	res := tbl.Poll(idx, func() { woke = true })
	require.False(t, res.Ready, "first poll on Submitted must return Pending")

	waker, removed := tbl.Complete(idx, Result{N: 5})
	require.False(t, removed)
	require.NotNil(t, waker)
	waker()
	require.True(t, woke, "waker registered while Waiting must be invoked on completion")

	res = tbl.Poll(idx, func() {})
	require.True(t, res.Ready)
	require.EqualValues(t, 5, res.Result.N)
	require.Equal(t, 0, tbl.Len(), "slot must be removed once collected")
}

func TestCompleteBeforeAnyPoll(t *testing.T) {
	tbl := NewTable()
	idx := tbl.Submit()

	waker, removed := tbl.Complete(idx, Result{N: 1})
	require.Nil(t, waker, "no waker to invoke when completing a Submitted (never-polled) slot")
	require.False(t, removed)

	res := tbl.Poll(idx, func() {})
	require.True(t, res.Ready)
}

func TestDropBeforeCompletionRetainsPayloadUntilDriverCompletes(t *testing.T) {
	tbl := NewTable()
	idx := tbl.Submit()
	tbl.Poll(idx, func() {})

	payload := []byte("buffer-still-owned-by-kernel")
	alreadyDone := tbl.Drop(idx, payload)
	require.False(t, alreadyDone, "dropping a Waiting op must not report already-done")
	require.Equal(t, 1, tbl.Len(), "Ignored slot stays live until the kernel completes")

	got, ok := tbl.Payload(idx)
	require.True(t, ok)
	require.Equal(t, payload, got)

	// Kernel eventually completes: Ignored -> slot removed, buffer releasable.
	waker, removed := tbl.Complete(idx, Result{N: 0})
	require.Nil(t, waker)
	require.True(t, removed)
	require.Equal(t, 0, tbl.Len())
}

func TestDropAfterCompletionRemovesImmediately(t *testing.T) {
	tbl := NewTable()
	idx := tbl.Submit()
	tbl.Complete(idx, Result{N: 3})

	alreadyDone := tbl.Drop(idx, nil)
	require.True(t, alreadyDone)
	require.Equal(t, 0, tbl.Len())
}

func TestPollReplacesStaleWaker(t *testing.T) {
	tbl := NewTable()
	idx := tbl.Submit()

	var wake1, wake2 bool
	tbl.Poll(idx, func() { wake1 = true })
	tbl.Poll(idx, func() { wake2 = true })

	waker, _ := tbl.Complete(idx, Result{})
	waker()
	require.False(t, wake1, "stale waker from the first poll must not fire")
	require.True(t, wake2, "only the most recent waker should be invoked")
}

func TestPollOnIgnoredSlotPanics(t *testing.T) {
	tbl := NewTable()
	idx := tbl.Submit()
	tbl.Poll(idx, func() {})
	tbl.Drop(idx, nil)

	require.Panics(t, func() { tbl.Poll(idx, func() {}) })
}
