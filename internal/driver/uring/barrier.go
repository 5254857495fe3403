//go:build linux && cgo

package uring

/*
#include <stdint.h>

static inline void sfence_impl(void) {
    __asm__ __volatile__("sfence" ::: "memory");
}

static inline void mfence_impl(void) {
    __asm__ __volatile__("mfence" ::: "memory");
}
*/
import "C"

// sfence issues a store fence so every SQE write is globally visible before
// the SQ tail bump that hands them to the kernel becomes visible — relocated
// from the teacher's internal/uring/barrier.go, which existed for the same
// tail-publish reason against ublk's single fixed-depth ring.
func sfence() {
	C.sfence_impl()
}

// mfence issues a full memory fence, used around the CQ head update so a
// consumer never observes a head advance before the CQE read it guards.
func mfence() {
	C.mfence_impl()
}
