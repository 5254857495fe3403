// Package affinity pins the calling OS thread to a fixed set of CPUs, the
// `utils` feature flag from spec.md §6 ("CPU pinning").
//
// Grounded on the teacher's queue/runner.go ioLoop, which calls
// unix.SchedSetaffinity on its own thread before entering its io_uring
// wait loop so a queue's interrupts and completions stay on one core; this
// module needs exactly the same call; one worker per thread, pinned once
// at startup, never migrated.
package affinity

// Pin restricts the calling OS thread to the given CPU ids. The caller must
// have already locked itself to this OS thread (runtime.LockOSThread) —
// affinity set on a goroutine that the Go scheduler later migrates to a
// different thread has no lasting effect. Platforms without a native
// affinity syscall (anything but Linux) report ErrUnsupported.
func Pin(cpus []int) error {
	return pin(cpus)
}

// PinSelf pins the calling thread to a single CPU, the common case of one
// worker per core.
func PinSelf(cpu int) error {
	return pin([]int{cpu})
}
