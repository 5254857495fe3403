package ringloop

import (
	"syscall"

	"github.com/ringloop/ringloop/internal/buffer"
	"github.com/ringloop/ringloop/internal/driver"
	"github.com/ringloop/ringloop/internal/lifecycle"
)

// ErrUnexpectedEOF is returned by ReadExact when the source reaches EOF
// before buf is filled (spec.md §7 "unexpected EOF").
var ErrUnexpectedEOF = NewError("read_exact", ErrCodeUnexpectedEOF, "unexpected EOF")

// ErrWriteZero is returned by WriteAll when a write op reports 0 bytes
// written without an error (spec.md §7 "write accepted 0 bytes").
var ErrWriteZero = NewError("write_all", ErrCodeWriteZero, "write accepted 0 bytes")

// Submit hands op to ctx's Runtime driver and blocks the calling task until
// the kernel (or readiness syscall) completes it, retrying transparently on
// EINTR (spec.md §4 "operations transparently retry on EINTR rather than
// surfacing it to the caller"). Exported so net and fs — separate packages
// within this module — can submit driver ops through the same lifecycle
// path root-package helpers use.
func Submit(ctx *Context, op driver.Op) (lifecycle.Result, error) {
	rt := ctx.rt
	for {
		res, err := submitOnce(ctx, op)
		if err != nil {
			return lifecycle.Result{}, err
		}
		if res.Err == syscall.EINTR {
			rt.observer.ObserveSubmit()
			continue
		}
		return res, nil
	}
}

func submitOnce(ctx *Context, op driver.Op) (lifecycle.Result, error) {
	rt := ctx.rt
	if fo, ok := op.(driver.FdOp); ok {
		fo.OpFd().BeginOp()
		defer fo.OpFd().EndOp()
	}
	slot, err := rt.drv.Submit(op)
	if err != nil {
		return lifecycle.Result{}, WrapError("submit", err)
	}
	rt.observer.ObserveSubmit()
	rt.metrics.RecordSubmit()

	start := rt.Now()
	var res lifecycle.Result
	ctx.awaitReady(func(wake func()) bool {
		pr := rt.drv.Poll(slot, wake)
		if pr.Ready {
			res = pr.Result
		}
		return pr.Ready
	})

	isRead := op.Code() == driver.OpRead || op.Code() == driver.OpReadv || op.Code() == driver.OpRecv
	latencyNs := uint64(rt.Now().Sub(start).Nanoseconds())
	bytes := uint64(0)
	if res.N > 0 {
		bytes = uint64(res.N)
	}
	rt.observer.ObserveComplete(bytes, latencyNs, isRead, res.Err)
	rt.metrics.RecordComplete(bytes, latencyNs, isRead, res.Err)
	return res, nil
}

// SubmitCancelable behaves like Submit but additionally races the op
// against cancel. If cancel fires before the op completes, the driver slot
// is dropped (spec.md §4.1 "Dropping the future before completion" path,
// triggered explicitly rather than by GC) and SubmitCancelable returns
// ErrCanceled. payload is whatever must stay alive until the kernel
// acknowledges the drop — typically the op's own buffer.
func SubmitCancelable(ctx *Context, op driver.Op, payload any, cancel *CancelHandle) (lifecycle.Result, error) {
	if cancel == nil {
		return Submit(ctx, op)
	}
	rt := ctx.rt
	if fo, ok := op.(driver.FdOp); ok {
		fo.OpFd().BeginOp()
		defer fo.OpFd().EndOp()
	}
	slot, err := rt.drv.Submit(op)
	if err != nil {
		return lifecycle.Result{}, WrapError("submit", err)
	}
	rt.observer.ObserveSubmit()
	rt.metrics.RecordSubmit()

	canceled := false
	cancel.register(func() {
		rt.drv.Drop(slot, payload)
		rt.metrics.RecordCancel()
		rt.observer.ObserveCancel()
		canceled = true
		ctx.self.Wake()
	})

	var res lifecycle.Result
	ctx.awaitReady(func(wake func()) bool {
		if canceled {
			return true
		}
		pr := rt.drv.Poll(slot, wake)
		if pr.Ready {
			res = pr.Result
		}
		return pr.Ready
	})
	if canceled {
		return lifecycle.Result{}, ErrCanceled
	}
	if res.Err == syscall.EINTR {
		return SubmitCancelable(ctx, op, payload, cancel)
	}
	return res, nil
}

// OwnedReader is satisfied by any handle that can read into a caller-
// supplied buffer through a submitted driver op, spec.md §6's owned-buffer
// I/O contract (as opposed to io.Reader's borrowed-slice contract, which
// can't express "this memory must not move while the kernel holds it").
type OwnedReader interface {
	ReadOwned(ctx *Context, buf []byte) (n int, err error)
}

// OwnedWriter is the write counterpart of OwnedReader.
type OwnedWriter interface {
	WriteOwned(ctx *Context, buf []byte) (n int, err error)
}

// ReadExact reads exactly len(buf) bytes from r, returning ErrUnexpectedEOF
// if the source closes before buf is filled (spec.md §6 "read_exact").
func ReadExact(ctx *Context, r OwnedReader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.ReadOwned(ctx, buf[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, ErrUnexpectedEOF
		}
	}
	return total, nil
}

// WriteAll writes every byte of buf to w, returning ErrWriteZero if a write
// op reports 0 bytes without an error (spec.md §6 "write_all").
func WriteAll(ctx *Context, w OwnedWriter, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := w.WriteOwned(ctx, buf[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, ErrWriteZero
		}
	}
	return total, nil
}

// copyBufSize is the staging buffer size Copy pulls from internal/buffer's
// pool — matches that pool's 32KB bucket, sized for per-operation
// scratch rather than bulk transfer (spec.md doesn't mandate a size; chosen
// to keep a single Copy call from monopolizing the pool's larger buckets
// that Accept/Read callers also draw from).
const copyBufSize = 32 * 1024

// Copy streams bytes from src to dst until src reports EOF (n == 0, err ==
// nil), returning the total byte count, spec.md §6 "copy(reader, writer)".
func Copy(ctx *Context, dst OwnedWriter, src OwnedReader) (int64, error) {
	buf := buffer.Get(copyBufSize)
	defer buffer.Put(buf)

	var total int64
	for {
		n, err := src.ReadOwned(ctx, buf)
		if n > 0 {
			if _, werr := WriteAll(ctx, dst, buf[:n]); werr != nil {
				return total, werr
			}
			total += int64(n)
		}
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}
	}
}
