package net

import (
	"golang.org/x/sys/unix"

	"github.com/ringloop/ringloop"
	"github.com/ringloop/ringloop/internal/driver"
	"github.com/ringloop/ringloop/internal/sharedfd"
)

// FdSource is implemented by any owned I/O object that exposes its
// underlying descriptor, letting ZeroCopy splice bytes between two such
// objects without a userspace copy (spec.md §6 optional "zero_copy" via
// the splice opcode). Both *TCPStream and *fs.File satisfy it without
// either package importing the other.
type FdSource interface {
	SharedFd() sharedfd.SharedFd
}

const zeroCopyChunk = 64 * 1024

// ZeroCopy moves exactly n bytes from src to dst using splice(2) through an
// intermediate pipe, returning early with the bytes moved so far if src
// reaches EOF first. splice(2) requires one end of each call to be a pipe,
// so a direct src-to-dst splice is impossible when neither is a pipe (the
// common case: TCP stream to TCP stream, or file to socket) — the standard
// workaround, used by every userspace splice-based proxy, pipes through an
// anonymous pipe: splice src into the pipe, then splice the pipe into dst.
// Grounded on internal/driver/legacy/syscalls_linux.go's spliceRaw and the
// SpliceOp shape in internal/driver/op.go (spec.md §9's zero-copy sharp
// edge; "Linux, feature enabled" per spec.md §6's feature-flag table).
func ZeroCopy(ctx *ringloop.Context, dst, src FdSource, n int64) (int64, error) {
	fds, err := unix.Pipe2(unix.O_NONBLOCK | unix.O_CLOEXEC)
	if err != nil {
		return 0, ringloop.WrapError("pipe2", err)
	}
	readEnd := sharedfd.New(fds[0], nil)
	writeEnd := sharedfd.New(fds[1], nil)
	defer readEnd.Drop()
	defer writeEnd.Drop()

	var moved int64
	for moved < n {
		want := n - moved
		if want > zeroCopyChunk {
			want = zeroCopyChunk
		}

		in, err := ringloop.Submit(ctx, driver.SpliceOp{
			FdIn:   src.SharedFd(),
			OffIn:  -1,
			FdOut:  writeEnd,
			OffOut: -1,
			Len:    int(want),
		})
		if err != nil {
			return moved, err
		}
		if in.Err != nil {
			return moved, ringloop.WrapError("splice", in.Err)
		}
		if in.N == 0 {
			return moved, nil
		}

		staged := int(in.N)
		for staged > 0 {
			out, err := ringloop.Submit(ctx, driver.SpliceOp{
				FdIn:   readEnd,
				OffIn:  -1,
				FdOut:  dst.SharedFd(),
				OffOut: -1,
				Len:    staged,
			})
			if err != nil {
				return moved, err
			}
			if out.Err != nil {
				return moved, ringloop.WrapError("splice", out.Err)
			}
			if out.N == 0 {
				return moved, ringloop.ErrWriteZero
			}
			staged -= int(out.N)
			moved += int64(out.N)
		}
	}
	return moved, nil
}
