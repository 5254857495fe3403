package driver

import "runtime"

// Features reports what a candidate backend actually supports on the
// running kernel, generalized from the teacher's internal/uring.Features
// (SQE128/CQE32/UringCmd/SQPOLL) from a fixed ublk-specific flag set to the
// open opcode vocabulary spec.md §4.2 defines.
type Features struct {
	IOUring   bool // io_uring() syscall usable at all
	SQPOLL    bool // kernel-side SQ polling thread
	Opcodes   map[OpCode]bool
}

// Supports reports whether every opcode in opcodes is available.
func (f Features) Supports(opcodes []OpCode) bool {
	for _, oc := range opcodes {
		if !f.Opcodes[oc] {
			return false
		}
	}
	return true
}

// Probe detects what the running kernel/OS can offer, the way the teacher's
// GetFeatures stubbed a fixed-feature probe ahead of wiring the real
// io_uring_register(IORING_REGISTER_PROBE) call. On Linux this in turn
// defers to probeLinux in probe_linux.go (built on the real giouring
// binding); off Linux every completion opcode is reported unsupported and
// Select always returns the legacy backend.
func Probe() Features {
	if runtime.GOOS != "linux" {
		return Features{Opcodes: map[OpCode]bool{}}
	}
	return probeLinux()
}

// Select picks the backend kind for the running system: io_uring's
// completion backend if it supports the full Required opcode set, otherwise
// the readiness (epoll) backend. Mirrors spec.md §4.2 "selection: at
// startup, the runtime probes for io_uring" and falls back automatically
// rather than failing construction.
func Select(f Features) Kind {
	if f.IOUring && f.Supports(Required) {
		return KindUring
	}
	return KindLegacy
}
