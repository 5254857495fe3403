package timer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEntryFiresOnExactDeadline(t *testing.T) {
	w := New()
	var fired bool
	w.Insert(10, func() { fired = true })

	wakers := w.Advance(9)
	require.Empty(t, wakers)
	require.False(t, fired)

	wakers = w.Advance(10)
	require.Len(t, wakers, 1)
	wakers[0]()
	require.True(t, fired)
}

func TestCancelPreventsFiring(t *testing.T) {
	w := New()
	fired := false
	e := w.Insert(5, func() { fired = true })
	w.Cancel(e)
	require.Equal(t, 0, w.Armed())

	wakers := w.Advance(100)
	require.Empty(t, wakers)
	require.False(t, fired)
}

func TestCancelTwiceIsSafe(t *testing.T) {
	w := New()
	e := w.Insert(5, func() {})
	w.Cancel(e)
	require.NotPanics(t, func() { w.Cancel(e) })
}

func TestNextDeadlineReportsSoonest(t *testing.T) {
	w := New()
	w.Insert(500, func() {})
	w.Insert(20, func() {})
	w.Insert(9000, func() {})

	d, ok := w.NextDeadline()
	require.True(t, ok)
	require.EqualValues(t, 20, d)
}

func TestNextDeadlineEmptyWheel(t *testing.T) {
	w := New()
	_, ok := w.NextDeadline()
	require.False(t, ok)
}

func TestCascadeFiresEntryPlacedInHigherLevel(t *testing.T) {
	w := New()
	// 5000ms exceeds level 0's 64ms range, so it lands in a higher level
	// and must cascade down as the clock approaches it.
	var fired bool
	w.Insert(5000, func() { fired = true })

	allWakers := []func(){}
	for tick := int64(1); tick <= 5000; tick++ {
		allWakers = append(allWakers, w.Advance(tick)...)
	}
	require.Len(t, allWakers, 1)
	allWakers[0]()
	require.True(t, fired)
}

func TestMultipleEntriesInSameTickAllFire(t *testing.T) {
	w := New()
	count := 0
	for i := 0; i < 5; i++ {
		w.Insert(30, func() { count++ })
	}
	wakers := w.Advance(30)
	require.Len(t, wakers, 5)
	for _, f := range wakers {
		f()
	}
	require.Equal(t, 5, count)
}
