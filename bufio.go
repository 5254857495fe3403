package ringloop

import (
	"io"

	"github.com/ringloop/ringloop/internal/buffer"
)

// defaultBufSize is BufReader/BufWriter's default internal buffer size,
// matched to internal/buffer's smallest pool bucket so Get/Put always hit
// the pool rather than falling through to a one-off allocation.
const defaultBufSize = 4096

// BufReader wraps an OwnedReader with an internal staging buffer, reducing
// small reads to the owning op's syscall/SQE overhead — spec.md §6
// "BufReader/BufWriter wrap the owned-buffer primitives with familiar
// buffering". Grounded on the teacher's buffer pooling scheme
// (internal/buffer, itself ported from the teacher's internal/queue/pool.go
// bucket pool) rather than stdlib bufio, since the underlying reads still
// have to go through ReadOwned's driver submission path.
type BufReader struct {
	src  OwnedReader
	buf  []byte
	r, w int
}

// NewBufReader wraps src with a default-sized buffer.
func NewBufReader(src OwnedReader) *BufReader {
	return NewBufReaderSize(src, defaultBufSize)
}

// NewBufReaderSize wraps src with a buffer of at least size bytes.
func NewBufReaderSize(src OwnedReader, size int) *BufReader {
	if size <= 0 {
		size = defaultBufSize
	}
	return &BufReader{src: src, buf: buffer.Get(size)}
}

func (b *BufReader) fill(ctx *Context) error {
	if b.r > 0 {
		copy(b.buf, b.buf[b.r:b.w])
		b.w -= b.r
		b.r = 0
	}
	n, err := b.src.ReadOwned(ctx, b.buf[b.w:])
	b.w += n
	if n == 0 && err == nil {
		return io.EOF
	}
	return err
}

// ReadOwned implements OwnedReader, satisfying ReadExact/Copy directly.
// Reads larger than the internal buffer bypass it entirely, matching
// stdlib bufio.Reader's "large read" fast path.
func (b *BufReader) ReadOwned(ctx *Context, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if b.r == b.w {
		if len(p) >= len(b.buf) {
			return b.src.ReadOwned(ctx, p)
		}
		if err := b.fill(ctx); err != nil {
			return 0, err
		}
	}
	n := copy(p, b.buf[b.r:b.w])
	b.r += n
	return n, nil
}

// ReadByte reads a single buffered byte, blocking on a refill if the
// buffer is empty.
func (b *BufReader) ReadByte(ctx *Context) (byte, error) {
	for b.r == b.w {
		if err := b.fill(ctx); err != nil {
			return 0, err
		}
	}
	c := b.buf[b.r]
	b.r++
	return c, nil
}

// Buffered returns the number of bytes currently held in the internal
// buffer, not yet returned to a caller.
func (b *BufReader) Buffered() int { return b.w - b.r }

// Release returns the internal buffer to the pool. The BufReader must not
// be used afterward.
func (b *BufReader) Release() {
	if b.buf != nil {
		buffer.Put(b.buf)
		b.buf = nil
	}
}

// BufWriter wraps an OwnedWriter with an internal staging buffer, batching
// small writes into fewer WriteOwned calls (spec.md §6).
type BufWriter struct {
	dst OwnedWriter
	buf []byte
	n   int
}

// NewBufWriter wraps dst with a default-sized buffer.
func NewBufWriter(dst OwnedWriter) *BufWriter {
	return NewBufWriterSize(dst, defaultBufSize)
}

// NewBufWriterSize wraps dst with a buffer of at least size bytes.
func NewBufWriterSize(dst OwnedWriter, size int) *BufWriter {
	if size <= 0 {
		size = defaultBufSize
	}
	return &BufWriter{dst: dst, buf: buffer.Get(size)}
}

// WriteOwned implements OwnedWriter, buffering p until Flush or the
// internal buffer fills.
func (b *BufWriter) WriteOwned(ctx *Context, p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		if b.n == len(b.buf) {
			if err := b.Flush(ctx); err != nil {
				return written, err
			}
		}
		n := copy(b.buf[b.n:], p)
		b.n += n
		written += n
		p = p[n:]
	}
	return written, nil
}

// Flush pushes any buffered bytes to dst via WriteAll.
func (b *BufWriter) Flush(ctx *Context) error {
	if b.n == 0 {
		return nil
	}
	_, err := WriteAll(ctx, b.dst, b.buf[:b.n])
	b.n = 0
	return err
}

// Buffered returns the number of bytes currently staged, not yet flushed.
func (b *BufWriter) Buffered() int { return b.n }

// Release returns the internal buffer to the pool. Callers must Flush
// first if staged bytes still need to reach dst.
func (b *BufWriter) Release() {
	if b.buf != nil {
		buffer.Put(b.buf)
		b.buf = nil
	}
}
