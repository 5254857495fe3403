package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ringloop/ringloop"
)

func TestMkdirRemoveDirRoundTrip(t *testing.T) {
	rt := newTestRuntime(t)
	dir := filepath.Join(t.TempDir(), "child")

	_, err := ringloop.BlockOn(rt, func(ctx *ringloop.Context) (struct{}, error) {
		if merr := Mkdir(ctx, dir, 0o755); merr != nil {
			return struct{}{}, merr
		}
		info, serr := os.Stat(dir)
		if serr != nil {
			return struct{}{}, serr
		}
		require.True(t, info.IsDir())
		return struct{}{}, RemoveDir(ctx, dir)
	})
	require.NoError(t, err)
	_, statErr := os.Stat(dir)
	require.True(t, os.IsNotExist(statErr))
}

func TestRenameMovesFile(t *testing.T) {
	rt := newTestRuntime(t)
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "old.txt")
	newPath := filepath.Join(dir, "new.txt")
	require.NoError(t, os.WriteFile(oldPath, []byte("x"), 0o644))

	_, err := ringloop.BlockOn(rt, func(ctx *ringloop.Context) (struct{}, error) {
		return struct{}{}, Rename(ctx, oldPath, newPath)
	})
	require.NoError(t, err)
	_, statErr := os.Stat(oldPath)
	require.True(t, os.IsNotExist(statErr))
	data, err := os.ReadFile(newPath)
	require.NoError(t, err)
	require.Equal(t, "x", string(data))
}

func TestRemoveFileDeletes(t *testing.T) {
	rt := newTestRuntime(t)
	path := filepath.Join(t.TempDir(), "gone.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := ringloop.BlockOn(rt, func(ctx *ringloop.Context) (struct{}, error) {
		return struct{}{}, RemoveFile(ctx, path)
	})
	require.NoError(t, err)
	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr))
}

func TestSymlinkPointsAtTarget(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target.txt")
	link := filepath.Join(dir, "link.txt")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	require.NoError(t, Symlink(target, link))
	resolved, err := os.Readlink(link)
	require.NoError(t, err)
	require.Equal(t, target, resolved)
}
