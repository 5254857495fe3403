package ringloop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMillisCeilRoundsUp(t *testing.T) {
	require.EqualValues(t, 0, millisCeil(0))
	require.EqualValues(t, 1, millisCeil(1*time.Microsecond))
	require.EqualValues(t, 5, millisCeil(5*time.Millisecond))
	require.EqualValues(t, 6, millisCeil(5*time.Millisecond+1))
}

func TestSleepElapsesAtLeastRequestedDuration(t *testing.T) {
	rt := newTestRuntime(t)
	var before, after Instant
	_, err := BlockOn(rt, func(ctx *Context) (int, error) {
		before = rt.Now()
		Sleep(ctx, 20*time.Millisecond)
		after = rt.Now()
		return 0, nil
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, after.Sub(before), 19*time.Millisecond)
}

func TestSleepZeroYieldsWithoutBlocking(t *testing.T) {
	rt := newTestRuntime(t)
	ran := false
	_, err := BlockOn(rt, func(ctx *Context) (int, error) {
		h := Spawn(ctx, func(ctx *Context) (int, error) {
			ran = true
			return 0, nil
		})
		Sleep(ctx, 0)
		_, err := Await(ctx, h)
		return 0, err
	})
	require.NoError(t, err)
	require.True(t, ran)
}

func TestTimeoutReturnsResultWhenFastEnough(t *testing.T) {
	rt := newTestRuntime(t)
	v, err := BlockOn(rt, func(ctx *Context) (int, error) {
		return Timeout(ctx, 200*time.Millisecond, func(ctx *Context) (int, error) {
			return 5, nil
		})
	})
	require.NoError(t, err)
	require.Equal(t, 5, v)
}

func TestTimeoutFiresBeforeSlowTask(t *testing.T) {
	rt := newTestRuntime(t)
	_, err := BlockOn(rt, func(ctx *Context) (int, error) {
		return Timeout(ctx, 10*time.Millisecond, func(ctx *Context) (int, error) {
			Sleep(ctx, 300*time.Millisecond)
			return 1, nil
		})
	})
	require.ErrorIs(t, err, ErrTimedOut)
}
