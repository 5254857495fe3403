package ringloop

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

type countingReader struct {
	data  []byte
	pos   int
	calls int
}

func (r *countingReader) ReadOwned(ctx *Context, buf []byte) (int, error) {
	r.calls++
	if r.pos >= len(r.data) {
		return 0, nil
	}
	n := copy(buf, r.data[r.pos:])
	r.pos += n
	return n, nil
}

func TestBufReaderServesMultipleReadsFromOneFill(t *testing.T) {
	r := &countingReader{data: []byte("hello world")}
	br := NewBufReaderSize(r, 8)
	defer br.Release()

	out := make([]byte, 0, 11)
	buf := make([]byte, 3)
	for len(out) < 11 {
		n, err := br.ReadOwned(nil, buf)
		require.NoError(t, err)
		out = append(out, buf[:n]...)
	}
	require.Equal(t, "hello world", string(out))
	require.Less(t, r.calls, 11, "buffering should cost fewer underlying reads than output bytes")
}

func TestBufReaderLargeReadBypassesBuffer(t *testing.T) {
	r := &sliceReader{data: []byte("hello world")}
	br := NewBufReaderSize(r, 4)
	defer br.Release()

	buf := make([]byte, 11)
	n, err := br.ReadOwned(nil, buf)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(buf[:n]))
}

func TestBufReaderReadByteReturnsEOF(t *testing.T) {
	r := &sliceReader{data: []byte("a")}
	br := NewBufReaderSize(r, 4)
	defer br.Release()

	b, err := br.ReadByte(nil)
	require.NoError(t, err)
	require.Equal(t, byte('a'), b)

	_, err = br.ReadByte(nil)
	require.ErrorIs(t, err, io.EOF)
}

func TestBufWriterBatchesUntilFlush(t *testing.T) {
	w := &sliceWriter{}
	bw := NewBufWriterSize(w, 8)
	defer bw.Release()

	n, err := bw.WriteOwned(nil, []byte("ab"))
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Empty(t, w.data)

	require.NoError(t, bw.Flush(nil))
	require.Equal(t, "ab", string(w.data))
}

func TestBufWriterFlushesAutomaticallyWhenFull(t *testing.T) {
	w := &sliceWriter{}
	bw := NewBufWriterSize(w, 4)
	defer bw.Release()

	_, err := bw.WriteOwned(nil, []byte("abcdef"))
	require.NoError(t, err)
	require.Equal(t, "abcd", string(w.data))
	require.Equal(t, 2, bw.Buffered())

	require.NoError(t, bw.Flush(nil))
	require.Equal(t, "abcdef", string(w.data))
}
