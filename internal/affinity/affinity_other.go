//go:build !linux

package affinity

import "errors"

// ErrUnsupported is returned on platforms with no native CPU-affinity
// syscall this module wraps.
var ErrUnsupported = errors.New("affinity: not supported on this platform")

func pin(cpus []int) error {
	return ErrUnsupported
}
