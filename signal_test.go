package ringloop

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNotifyRelaysSignalAndWakesTask(t *testing.T) {
	rt := newTestRuntime(t)

	v, err := BlockOn(rt, func(ctx *Context) (int, error) {
		ch, stop := Notify(ctx, syscall.SIGUSR2)
		defer stop()

		h := Spawn(ctx, func(ctx *Context) (int, error) {
			select {
			case <-ch:
				return 1, nil
			default:
			}
			proc, perr := os.FindProcess(os.Getpid())
			if perr != nil {
				return 0, perr
			}
			if serr := proc.Signal(syscall.SIGUSR2); serr != nil {
				return 0, serr
			}
			deadline := time.Now().Add(2 * time.Second)
			for {
				select {
				case <-ch:
					return 1, nil
				default:
				}
				if time.Now().After(deadline) {
					return 0, nil
				}
				YieldNow(ctx)
			}
		})
		return Await(ctx, h)
	})
	require.NoError(t, err)
	require.Equal(t, 1, v)
}
