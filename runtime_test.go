package ringloop

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	rt, err := NewBuilder().WithSelector(SelectorLegacy).Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func TestBuilderDefaults(t *testing.T) {
	b := NewBuilder()
	require.Equal(t, uint32(defaultEntries), b.entries)
	require.True(t, b.enableTimer)
	require.Equal(t, SelectorAuto, b.selector)
}

func TestBuilderClampsLowEntries(t *testing.T) {
	b := NewBuilder().WithEntries(8)
	require.Equal(t, uint32(minEntries), b.entries)
}

func TestBlockOnReturnsValue(t *testing.T) {
	rt := newTestRuntime(t)
	v, err := BlockOn(rt, func(ctx *Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestBlockOnPropagatesError(t *testing.T) {
	rt := newTestRuntime(t)
	boom := errors.New("boom")
	_, err := BlockOn(rt, func(ctx *Context) (int, error) {
		return 0, boom
	})
	require.ErrorIs(t, err, boom)
}

func TestBlockOnOnClosedRuntime(t *testing.T) {
	rt, err := NewBuilder().WithSelector(SelectorLegacy).Build()
	require.NoError(t, err)
	require.NoError(t, rt.Close())

	_, err = BlockOn(rt, func(ctx *Context) (int, error) { return 1, nil })
	require.ErrorIs(t, err, ErrRuntimeClosed)
}

func TestRuntimeKindMatchesSelector(t *testing.T) {
	rt := newTestRuntime(t)
	require.Equal(t, "legacy", rt.Kind().String())
}
