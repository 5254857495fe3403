package driver

import "errors"

// ErrCanceled is the Result.Err value a driver reports when an op is
// canceled before the kernel (or, on the readiness backend, the syscall
// retry loop) produces a real completion.
var ErrCanceled = errors.New("driver: operation canceled")
