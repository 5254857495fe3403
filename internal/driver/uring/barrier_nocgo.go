//go:build linux && !cgo

package uring

// sfence/mfence degrade to Go's own memory model guarantees when cgo is
// disabled (CGO_ENABLED=0 builds): the sync/atomic operations already used
// around the SQ/CQ head and tail give the needed ordering on every
// architecture Go supports, just without the explicit x86 fence instruction.
func sfence() {}

func mfence() {}
