package affinity

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPinSelfOnCPUZero(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("CPU affinity is linux-only; other platforms report ErrUnsupported")
	}
	err := PinSelf(0)
	require.NoError(t, err)
}

func TestPinUnsupportedPlatformReportsError(t *testing.T) {
	if runtime.GOOS == "linux" {
		t.Skip("linux has native affinity support")
	}
	require.ErrorIs(t, Pin([]int{0}), ErrUnsupported)
}
