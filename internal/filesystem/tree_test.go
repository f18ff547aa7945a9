package filesystem

import (
	"strings"
	"sync"
	"testing"

	"github.com/S1riyS/ghost-vfs/internal/models"
	"github.com/S1riyS/ghost-vfs/internal/pkg/kerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcatAsAbsolutePath(t *testing.T) {
	tests := []struct {
		name string
		base string
		in   string
		want string
		err  error
	}{
		{name: "absolute input", base: "/apps", in: "/etc/motd", want: "/etc/motd"},
		{name: "relative input", base: "/apps", in: "shell/shell.bin", want: "/apps/shell/shell.bin"},
		{name: "base with separator", base: "/apps/", in: "shell", want: "/apps/shell"},
		{name: "root base", base: "/", in: "apps", want: "/apps"},
		{name: "relative base", base: "apps", in: "shell", err: kerrors.ErrInvalidPath},
		{name: "too long", base: "/", in: strings.Repeat("a", models.PathMax), err: kerrors.ErrPathTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConcatAsAbsolutePath(tt.base, tt.in)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateNodeAndLookup(t *testing.T) {
	tree := NewTree()

	a := tree.CreateNode()
	b := tree.CreateNode()
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Nil(t, a.Parent())

	got, err := tree.NodeByID(a.ID())
	require.NoError(t, err)
	assert.Same(t, a, got)

	_, err = tree.NodeByID(9999)
	assert.ErrorIs(t, err, kerrors.ErrNotFound)
}

func TestFindExisting(t *testing.T) {
	tree := NewTree()
	apps, err := tree.materialize(tree.Root(), &DiscoveredEntry{Name: "apps", PhysID: 1, Type: models.NodeTypeFolder}, "apps")
	require.NoError(t, err)

	parent, child, current, err := tree.FindExisting("/")
	require.NoError(t, err)
	assert.Same(t, tree.Root(), parent)
	assert.Same(t, tree.Root(), child)
	assert.Empty(t, current)

	parent, child, current, err = tree.FindExisting("/apps")
	require.NoError(t, err)
	assert.Same(t, tree.Root(), parent)
	assert.Same(t, apps, child)
	assert.Equal(t, "apps", current)

	parent, child, current, err = tree.FindExisting("/apps/shell/shell.bin")
	require.NoError(t, err)
	assert.Same(t, apps, parent)
	assert.Nil(t, child)
	assert.Equal(t, "shell", current)

	_, _, _, err = tree.FindExisting("apps")
	assert.ErrorIs(t, err, kerrors.ErrInvalidPath)
}

func TestRealPath(t *testing.T) {
	tree := NewTree()
	apps, err := tree.materialize(tree.Root(), &DiscoveredEntry{Name: "apps", PhysID: 1, Type: models.NodeTypeFolder}, "")
	require.NoError(t, err)
	bin, err := tree.materialize(apps, &DiscoveredEntry{Name: "shell.bin", PhysID: 2, Type: models.NodeTypeFile}, "")
	require.NoError(t, err)

	assert.Equal(t, "/", tree.RealPath(tree.Root()))
	assert.Equal(t, "/apps", tree.RealPath(apps))
	assert.Equal(t, "/apps/shell.bin", tree.RealPath(bin))
}

func TestMaterializeRejectsInvalidEntries(t *testing.T) {
	tree := NewTree()
	file, err := tree.materialize(tree.Root(), &DiscoveredEntry{Name: "motd", Type: models.NodeTypeFile}, "")
	require.NoError(t, err)

	tests := []struct {
		name   string
		parent *Node
		entry  *DiscoveredEntry
		expect string
		err    error
	}{
		{name: "nil entry", parent: tree.Root(), err: kerrors.ErrInvalidPath},
		{name: "name with separator", parent: tree.Root(), entry: &DiscoveredEntry{Name: "a/b", Type: models.NodeTypeFile}, err: kerrors.ErrInvalidPath},
		{name: "unexpected name", parent: tree.Root(), entry: &DiscoveredEntry{Name: "etc", Type: models.NodeTypeFolder}, expect: "apps", err: kerrors.ErrInvalidPath},
		{name: "mountpoint type", parent: tree.Root(), entry: &DiscoveredEntry{Name: "mnt", Type: models.NodeTypeMountpoint}, err: kerrors.ErrInvalidPath},
		{name: "below a file", parent: file, entry: &DiscoveredEntry{Name: "x", Type: models.NodeTypeFile}, err: kerrors.ErrNotDirectory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tree.materialize(tt.parent, tt.entry, tt.expect)
			assert.ErrorIs(t, err, tt.err)
		})
	}
	assert.Equal(t, 1, tree.Root().ChildCount())
}

func TestMaterializeConcurrentSameName(t *testing.T) {
	tree := NewTree()

	const workers = 16
	nodes := make([]*Node, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := tree.materialize(tree.Root(), &DiscoveredEntry{Name: "apps", PhysID: 1, Type: models.NodeTypeFolder}, "apps")
			assert.NoError(t, err)
			nodes[i] = n
		}()
	}
	wg.Wait()

	for _, n := range nodes {
		assert.Same(t, nodes[0], n)
	}
	assert.Equal(t, 2, tree.Len())
}

func TestMount(t *testing.T) {
	tree := NewTree()

	n, err := tree.mount("pipes", 7, nil)
	require.NoError(t, err)
	assert.Equal(t, models.NodeTypeMountpoint, n.Type())
	assert.Equal(t, models.PhysID(7), n.PhysID())
	assert.Same(t, tree.Root(), n.Parent())

	_, err = tree.mount("pipes", 8, nil)
	assert.ErrorIs(t, err, kerrors.ErrExists)

	_, err = tree.mount("", 8, nil)
	assert.ErrorIs(t, err, kerrors.ErrInvalidPath)
}

func TestDescriptorTable(t *testing.T) {
	fds := newDescriptorTable()

	first := fds.open(1, 10, OpenFlagRead, -1, 0)
	second := fds.open(1, 11, OpenFlagRead, -1, 0)
	assert.Equal(t, models.FD(3), first)
	assert.Equal(t, models.FD(4), second)

	// another process has its own numbering
	assert.Equal(t, models.FD(3), fds.open(2, 10, OpenFlagRead, -1, 0))

	require.True(t, fds.close(1, first))
	assert.False(t, fds.close(1, first))
	assert.Equal(t, models.FD(5), fds.open(1, 12, OpenFlagRead, -1, 0), "closed numbers are not reused")

	// explicit numbers replace the existing mapping
	fd := fds.open(1, 13, OpenFlagWrite, second, 42)
	assert.Equal(t, second, fd)
	d, err := fds.get(1, second)
	require.NoError(t, err)
	assert.Equal(t, models.NodeID(13), d.NodeID)
	assert.Equal(t, int64(42), d.Offset())

	_, err = fds.get(1, 99)
	assert.ErrorIs(t, err, kerrors.ErrInvalidDescriptor)

	assert.Equal(t, 2, fds.removeProcess(1))
	_, err = fds.get(1, second)
	assert.ErrorIs(t, err, kerrors.ErrInvalidDescriptor)
}

func TestHandlerCompletesOnce(t *testing.T) {
	var b handlerBase
	b.arm(5)
	assert.Equal(t, models.TransactionID(5), b.PendingTransaction())
	assert.False(t, b.Finished())

	assert.True(t, b.complete())
	assert.False(t, b.complete())
	assert.True(t, b.Finished())

	b.arm(6)
	assert.Equal(t, models.TransactionID(5), b.PendingTransaction(), "finished handlers are not re-armed")
}
