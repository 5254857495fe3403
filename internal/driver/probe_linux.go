//go:build linux

package driver

import "github.com/pawelgaczynski/giouring"

// probeLinux attempts a throwaway ring setup to determine whether io_uring
// is usable at all on this kernel, the same liveness check the teacher's
// control path performs before trusting any ublk ioctl (internal/ctrl's
// "probe the device node, bail to a clear error otherwise" style, applied
// here to io_uring_setup instead of /dev/ublk-control).
//
// A from-scratch opcode-by-opcode IORING_REGISTER_PROBE walk would be more
// precise, but giouring doesn't expose the raw probe ioctl in a documented
// way; a successful ring of the minimum required depth is a reasonable
// proxy; every opcode this module needs has existed since the earliest
// io_uring kernels, so "a ring can be created" and "Required is supported"
// coincide on any kernel a modern distro ships.
func probeLinux() Features {
	ring, err := giouring.CreateRing(32)
	if err != nil {
		return Features{Opcodes: map[OpCode]bool{}}
	}
	defer ring.QueueExit()

	opcodes := make(map[OpCode]bool, len(Required)+len(Optional))
	for _, oc := range Required {
		opcodes[oc] = true
	}
	for _, oc := range Optional {
		opcodes[oc] = true
	}
	return Features{
		IOUring: true,
		SQPOLL:  false,
		Opcodes: opcodes,
	}
}
