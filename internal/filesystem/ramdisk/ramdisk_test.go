package ramdisk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/S1riyS/ghost-vfs/internal/pkg/kerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddFileCreatesParents(t *testing.T) {
	r := New()

	id, err := r.AddFile("/apps/shell/shell.bin", []byte("bin"))
	require.NoError(t, err)

	apps, ok := r.FindChild(RootID, "apps")
	require.True(t, ok)
	assert.Equal(t, EntryFolder, apps.Type)

	shell, ok := r.FindChild(apps.ID, "shell")
	require.True(t, ok)

	bin, ok := r.FindChild(shell.ID, "shell.bin")
	require.True(t, ok)
	assert.Equal(t, id, bin.ID)
	assert.Equal(t, int64(3), bin.Length())
	assert.Equal(t, 4, r.Len())
}

func TestAddRejectsInvalid(t *testing.T) {
	r := New()
	file, err := r.AddFile("/etc/motd", nil)
	require.NoError(t, err)

	_, err = r.AddFile("/etc/motd", nil)
	assert.ErrorIs(t, err, kerrors.ErrExists)

	_, err = r.CreateFile(file, "x", nil)
	assert.ErrorIs(t, err, kerrors.ErrNotDirectory)

	_, err = r.CreateFolder(RootID, "a/b")
	assert.ErrorIs(t, err, kerrors.ErrInvalidPath)

	_, err = r.CreateFolder(1234, "x")
	assert.ErrorIs(t, err, kerrors.ErrNotFound)

	_, err = r.MkdirAll("/etc/motd/sub")
	assert.ErrorIs(t, err, kerrors.ErrNotDirectory)
}

func TestChildAtKeepsInsertionOrder(t *testing.T) {
	r := New()
	for _, name := range []string{"c", "a", "b"} {
		_, err := r.CreateFolder(RootID, name)
		require.NoError(t, err)
	}

	var names []string
	for i := 0; ; i++ {
		e, ok := r.ChildAt(RootID, i)
		if !ok {
			break
		}
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"c", "a", "b"}, names)

	_, ok := r.ChildAt(RootID, -1)
	assert.False(t, ok)
}

func TestFileDataIsCopied(t *testing.T) {
	r := New()
	data := []byte("abc")
	id, err := r.CreateFile(RootID, "f", data)
	require.NoError(t, err)

	data[0] = 'X'
	e, ok := r.FindByID(id)
	require.True(t, ok)
	assert.Equal(t, "abc", string(e.Data))
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "motd.txt")
	require.NoError(t, os.WriteFile(src, []byte("from disk"), 0o644))

	manifest := filepath.Join(dir, "ramdisk.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte(`
folders:
  - /tmp
files:
  - path: /apps/shell/shell.bin
    content: "shell"
  - path: /etc/motd
    source: `+src+`
`), 0o644))

	r, err := LoadManifest(manifest)
	require.NoError(t, err)

	_, ok := r.FindChild(RootID, "tmp")
	assert.True(t, ok)

	etc, ok := r.FindChild(RootID, "etc")
	require.True(t, ok)
	motd, ok := r.FindChild(etc.ID, "motd")
	require.True(t, ok)
	assert.Equal(t, "from disk", string(motd.Data))

	_, err = LoadManifest(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	_, err = ParseManifest([]byte("files: ["))
	assert.Error(t, err)
}
