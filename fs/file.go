// Package fs implements spec.md §6's filesystem surface: File open/create,
// read_at/write_at/readv/writev, metadata, sync_all/sync_data, close, plus
// the optional directory helpers gated by opcode availability with a
// syscall fallback.
package fs

import (
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ringloop/ringloop"
	"github.com/ringloop/ringloop/internal/buffer"
	"github.com/ringloop/ringloop/internal/driver"
	"github.com/ringloop/ringloop/internal/sharedfd"
)

// File is an open file descriptor driven through the runtime's driver.
type File struct {
	fd   sharedfd.SharedFd
	name string
}

// Open opens path read-only.
func Open(ctx *ringloop.Context, path string) (*File, error) {
	return OpenFile(ctx, path, os.O_RDONLY, 0)
}

// Create truncates (or creates) path for reading and writing.
func Create(ctx *ringloop.Context, path string) (*File, error) {
	return OpenFile(ctx, path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
}

// OpenFile opens path with the given os.O_* flags and, for O_CREATE, mode.
func OpenFile(ctx *ringloop.Context, path string, flags int, mode uint32) (*File, error) {
	op := driver.OpenAtOp{DirFd: unix.AT_FDCWD, Path: path, Flags: flags, Mode: mode}
	res, err := ringloop.Submit(ctx, op)
	if err != nil {
		return nil, err
	}
	if res.Err != nil {
		return nil, ringloop.WrapError("openat", res.Err)
	}
	return &File{fd: sharedfd.New(int(res.N), nil), name: path}, nil
}

// Name returns the path the file was opened with.
func (f *File) Name() string { return f.name }

// SharedFd exposes the file's underlying descriptor for callers that need
// to hand it to a driver op directly, such as ZeroCopy's splice pipeline.
func (f *File) SharedFd() sharedfd.SharedFd { return f.fd }

// ReadAt reads into buf starting at offset, implementing spec.md §6's
// read_at.
func (f *File) ReadAt(ctx *ringloop.Context, buf []byte, offset int64) (int, error) {
	pb := buffer.NewPlainBuffer(buf)
	res, err := ringloop.Submit(ctx, driver.ReadOp{Fd: f.fd, Buf: pb, Offset: offset})
	if err != nil {
		return 0, err
	}
	if res.Err != nil {
		return 0, ringloop.WrapError("read_at", res.Err)
	}
	return int(res.N), nil
}

// WriteAt writes buf starting at offset, implementing spec.md §6's
// write_at.
func (f *File) WriteAt(ctx *ringloop.Context, buf []byte, offset int64) (int, error) {
	pb := buffer.NewPlainBuffer(buf)
	res, err := ringloop.Submit(ctx, driver.WriteOp{Fd: f.fd, Buf: pb, Offset: offset})
	if err != nil {
		return 0, err
	}
	if res.Err != nil {
		return 0, ringloop.WrapError("write_at", res.Err)
	}
	return int(res.N), nil
}

// ReadvAt reads into bufs in one vectored operation starting at offset.
func (f *File) ReadvAt(ctx *ringloop.Context, bufs [][]byte, offset int64) (int, error) {
	v := buffer.NewPlainVectored(bufs)
	res, err := ringloop.Submit(ctx, driver.ReadvOp{Fd: f.fd, Bufs: v, Offset: offset})
	if err != nil {
		return 0, err
	}
	if res.Err != nil {
		return 0, ringloop.WrapError("readv", res.Err)
	}
	return int(res.N), nil
}

// WritevAt writes bufs in one vectored operation starting at offset.
func (f *File) WritevAt(ctx *ringloop.Context, bufs [][]byte, offset int64) (int, error) {
	v := buffer.NewPlainVectored(bufs)
	res, err := ringloop.Submit(ctx, driver.WritevOp{Fd: f.fd, Bufs: v, Offset: offset})
	if err != nil {
		return 0, err
	}
	if res.Err != nil {
		return 0, ringloop.WrapError("writev", res.Err)
	}
	return int(res.N), nil
}

// SyncAll flushes data and metadata to storage (spec.md §6 sync_all).
func (f *File) SyncAll(ctx *ringloop.Context) error {
	return f.sync(ctx, false)
}

// SyncData flushes data only, where the filesystem distinguishes it from
// metadata (spec.md §6 sync_data).
func (f *File) SyncData(ctx *ringloop.Context) error {
	return f.sync(ctx, true)
}

func (f *File) sync(ctx *ringloop.Context, dataOnly bool) error {
	res, err := ringloop.Submit(ctx, driver.FsyncOp{Fd: f.fd, DataOnly: dataOnly})
	if err != nil {
		return err
	}
	if res.Err != nil {
		return ringloop.WrapError("fsync", res.Err)
	}
	return nil
}

// Metadata is the subset of os.FileInfo spec.md §6's metadata call exposes.
type Metadata struct {
	Size    int64
	Mode    os.FileMode
	ModTime time.Time
	IsDir   bool
}

// Metadata stats the open file. fstat(2) never blocks on regular files and
// has no io_uring statx requirement in spec.md §6, so this is a direct
// syscall rather than a submitted op.
func (f *File) Metadata() (Metadata, error) {
	var st unix.Stat_t
	if err := unix.Fstat(f.fd.RawFd(), &st); err != nil {
		return Metadata{}, ringloop.WrapError("fstat", err)
	}
	return Metadata{
		Size:    st.Size,
		Mode:    os.FileMode(st.Mode & 0o7777),
		ModTime: time.Unix(st.Mtim.Sec, st.Mtim.Nsec),
		IsDir:   st.Mode&unix.S_IFMT == unix.S_IFDIR,
	}, nil
}

// Close releases the file's descriptor.
func (f *File) Close() error {
	f.fd.Drop()
	return nil
}
