package workspace_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thepwagner/clrm/errdefs"
	"github.com/thepwagner/clrm/workspace"
)

func newWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	ws, err := workspace.New(logr.Discard(), t.TempDir())
	require.NoError(t, err)
	return ws
}

func TestWorkspace_Create(t *testing.T) {
	ws := newWorkspace(t)
	ctx := context.Background()

	layout, err := ws.Create(ctx, "base")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(ws.CurrentDir(), "base"), layout.Root)
	assert.NoError(t, layout.Check())
	assert.Equal(t, filepath.Join(layout.Root, "meta", "pickle_jar.bin"), layout.PickleJar())

	// Leftovers from an aborted run are dropped.
	stale := filepath.Join(layout.FsDir(), "stale")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0600))
	layout, err = ws.Create(ctx, "base")
	require.NoError(t, err)
	assert.NoFileExists(t, stale)
}

func TestLayout_Check(t *testing.T) {
	assert.True(t, errdefs.IsContext(workspace.Layout{}.Check()))

	root := t.TempDir()
	l := workspace.Layout{Root: root}
	assert.True(t, errdefs.IsContext(l.Check()))

	for _, d := range []string{l.FsDir(), l.MetaDir(), l.BootDir()} {
		require.NoError(t, os.Mkdir(d, 0755))
	}
	require.NoError(t, os.WriteFile(l.CacheDir(), nil, 0600))
	assert.True(t, errdefs.IsContext(l.Check()))
}

func TestWorkspace_StoreRestore(t *testing.T) {
	ws := newWorkspace(t)
	ctx := context.Background()

	assert.False(t, ws.Stored("base"))
	_, err := ws.Restore(ctx, "base")
	assert.True(t, errdefs.IsContext(err))

	layout, err := ws.Create(ctx, "base")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(layout.FsDir(), "etc"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(layout.FsDir(), "etc", "hostname"), []byte("base\n"), 0644))

	require.NoError(t, ws.Store(ctx, "base"))
	assert.True(t, ws.Stored("base"))
	assert.NoDirExists(t, layout.Root)

	restored, err := ws.Restore(ctx, "base")
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(restored.FsDir(), "etc", "hostname"))
	require.NoError(t, err)
	assert.Equal(t, "base\n", string(b))
	assert.True(t, ws.Stored("base"))

	require.NoError(t, ws.Discard(ctx, "base"))
	assert.False(t, ws.Stored("base"))
}

func TestWorkspace_Store_Uninitialized(t *testing.T) {
	ws := newWorkspace(t)
	err := ws.Store(context.Background(), "missing")
	assert.True(t, errdefs.IsContext(err))
}

func TestWorkspace_Clear(t *testing.T) {
	ws := newWorkspace(t)
	ctx := context.Background()

	_, err := ws.Create(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, ws.Store(ctx, "a"))
	_, err = ws.Create(ctx, "b")
	require.NoError(t, err)

	require.NoError(t, ws.ClearCurrent(ctx))
	assert.NoDirExists(t, ws.Layout("b").Root)
	assert.True(t, ws.Stored("a"))

	require.NoError(t, ws.Clear(ctx))
	assert.False(t, ws.Stored("a"))
	assert.DirExists(t, ws.StorageDir())
}

func TestCopyTree(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "copy")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "a", "b"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a", "b", "c"), []byte("c"), 0640))
	require.NoError(t, os.Symlink("a/b/c", filepath.Join(src, "link")))

	require.NoError(t, workspace.CopyTree(context.Background(), src, dst))

	fi, err := os.Stat(filepath.Join(dst, "a", "b", "c"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0640), fi.Mode().Perm())
	target, err := os.Readlink(filepath.Join(dst, "link"))
	require.NoError(t, err)
	assert.Equal(t, "a/b/c", target)
}
