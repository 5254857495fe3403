package ringloop

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// Fakes shared by io_test.go, bufio_test.go and split_test.go: minimal
// OwnedReader/OwnedWriter implementations over an in-memory slice, standing
// in for a real driver-backed stream so these tests exercise ReadExact/
// WriteAll/Copy/BufReader/BufWriter/Split without a Runtime.

type sliceReader struct {
	data []byte
	pos  int
}

// ReadOwned returns 0, nil at EOF, matching the owned-buffer convention the
// driver-backed Read/Recv ops use (spec.md §6).
func (r *sliceReader) ReadOwned(ctx *Context, buf []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, nil
	}
	n := copy(buf, r.data[r.pos:])
	r.pos += n
	return n, nil
}

type sliceWriter struct {
	data []byte
}

func (w *sliceWriter) WriteOwned(ctx *Context, buf []byte) (int, error) {
	w.data = append(w.data, buf...)
	return len(buf), nil
}

// partialReader hands back its chunks one ReadOwned call at a time,
// regardless of how large the caller's buffer is, to exercise ReadExact's
// accumulate-across-calls loop.
type partialReader struct {
	chunks [][]byte
	i      int
}

func (r *partialReader) ReadOwned(ctx *Context, buf []byte) (int, error) {
	if r.i >= len(r.chunks) {
		return 0, nil
	}
	n := copy(buf, r.chunks[r.i])
	r.i++
	return n, nil
}

type zeroWriter struct{}

func (zeroWriter) WriteOwned(ctx *Context, buf []byte) (int, error) { return 0, nil }

type errReader struct{ err error }

func (r errReader) ReadOwned(ctx *Context, buf []byte) (int, error) { return 0, r.err }

func TestReadExactAssemblesAcrossPartialReads(t *testing.T) {
	r := &partialReader{chunks: [][]byte{[]byte("ab"), []byte("cd"), []byte("ef")}}
	buf := make([]byte, 6)
	n, err := ReadExact(nil, r, buf)
	require.NoError(t, err)
	require.Equal(t, 6, n)
	require.Equal(t, "abcdef", string(buf))
}

func TestReadExactReturnsUnexpectedEOF(t *testing.T) {
	r := &sliceReader{data: []byte("ab")}
	buf := make([]byte, 4)
	_, err := ReadExact(nil, r, buf)
	require.ErrorIs(t, err, ErrUnexpectedEOF)
}

func TestReadExactPropagatesUnderlyingError(t *testing.T) {
	boom := errors.New("boom")
	_, err := ReadExact(nil, errReader{err: boom}, make([]byte, 4))
	require.ErrorIs(t, err, boom)
}

func TestWriteAllWritesEverything(t *testing.T) {
	w := &sliceWriter{}
	n, err := WriteAll(nil, w, []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(w.data))
}

func TestWriteAllReturnsWriteZero(t *testing.T) {
	_, err := WriteAll(nil, zeroWriter{}, []byte("x"))
	require.ErrorIs(t, err, ErrWriteZero)
}

func TestCopyStreamsUntilEOF(t *testing.T) {
	const text = "the quick brown fox"
	r := &sliceReader{data: []byte(text)}
	w := &sliceWriter{}
	n, err := Copy(nil, w, r)
	require.NoError(t, err)
	require.EqualValues(t, len(text), n)
	require.Equal(t, text, string(w.data))
}

func TestCopyPropagatesReadError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Copy(nil, &sliceWriter{}, errReader{err: boom})
	require.ErrorIs(t, err, boom)
}
