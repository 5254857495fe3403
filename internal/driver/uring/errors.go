package uring

import (
	"fmt"
	"syscall"

	"github.com/ringloop/ringloop/internal/driver"
)

// errSubmissionQueueFull is returned by Submit when the SQ has no free
// entries even after a forced flush.
func errSubmissionQueueFull(op driver.OpCode) error {
	return fmt.Errorf("uring: submission queue full preparing %s", op)
}

// errnoResult converts a negative CQE res (a negated errno, per io_uring
// convention) into a syscall.Errno.
func errnoResult(res int32) error {
	return syscall.Errno(-res)
}
