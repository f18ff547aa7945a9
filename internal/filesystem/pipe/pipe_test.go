package pipe_test

import (
	"context"
	"testing"

	"github.com/S1riyS/ghost-vfs/internal/filesystem"
	"github.com/S1riyS/ghost-vfs/internal/filesystem/pipe"
	"github.com/S1riyS/ghost-vfs/internal/filesystem/ramdisk"
	"github.com/S1riyS/ghost-vfs/internal/models"
	"github.com/S1riyS/ghost-vfs/internal/tasking"
	"github.com/S1riyS/ghost-vfs/internal/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	fs     *filesystem.Filesystem
	pipes  *pipe.Delegate
	thread *tasking.Thread
}

func newFixture(t *testing.T, capacity int) *fixture {
	t.Helper()

	ctx := context.Background()
	store := transaction.NewStore()
	fs := filesystem.New(ctx, store)
	fs.Initialize(ramdisk.NewDelegate(ctx, store, ramdisk.New()))

	tk := tasking.New(ctx, 1, 0)
	kernel := tk.CreateProcess(models.SecurityLevelKernel, "/").Main()

	pipes := pipe.NewDelegate(ctx, store, capacity)
	mount, status := fs.CreateDelegate(kernel, pipe.MountName, 0, pipes)
	require.Equal(t, models.RegisterAsDelegateSuccessful, status)
	require.NoError(t, fs.SetPipeProvider(mount, pipes))

	return &fixture{
		fs:     fs,
		pipes:  pipes,
		thread: tk.CreateProcess(models.SecurityLevelUser, "/").Main(),
	}
}

func (f *fixture) write(t *testing.T, fd models.FD, data string) *models.WriteCall {
	t.Helper()
	call := &models.WriteCall{FD: fd, Buffer: []byte(data), Length: int64(len(data))}
	require.Nil(t, f.fs.Write(f.thread, filesystem.NewWriteHandler(call)))
	return call
}

func (f *fixture) read(t *testing.T, fd models.FD, n int) *models.ReadCall {
	t.Helper()
	call := &models.ReadCall{FD: fd, Buffer: make([]byte, n), Length: int64(n)}
	require.Nil(t, f.fs.Read(f.thread, filesystem.NewReadHandler(call)))
	return call
}

func TestPipeRoundTrip(t *testing.T) {
	f := newFixture(t, 8)

	wfd, rfd, status := f.fs.Pipe(f.thread.Process.ID)
	require.Equal(t, models.PipeSuccessful, status)
	assert.NotEqual(t, wfd, rfd)

	w := f.write(t, wfd, "hello")
	require.Equal(t, models.WriteSuccessful, w.Status)
	assert.Equal(t, int64(5), w.Result)

	r := f.read(t, rfd, 3)
	require.Equal(t, models.ReadSuccessful, r.Status)
	assert.Equal(t, "hel", string(r.Buffer[:r.Result]))

	r = f.read(t, rfd, 16)
	require.Equal(t, models.ReadSuccessful, r.Status)
	assert.Equal(t, "lo", string(r.Buffer[:r.Result]))

	r = f.read(t, rfd, 16)
	assert.Equal(t, models.ReadBusy, r.Status)
	assert.Equal(t, int64(-1), r.Result)
}

func TestPipeBoundedCapacity(t *testing.T) {
	f := newFixture(t, 4)

	wfd, _, status := f.fs.Pipe(f.thread.Process.ID)
	require.Equal(t, models.PipeSuccessful, status)

	w := f.write(t, wfd, "abcdef")
	require.Equal(t, models.WriteSuccessful, w.Status)
	assert.Equal(t, int64(4), w.Result)

	w = f.write(t, wfd, "g")
	assert.Equal(t, models.WriteBusy, w.Status)

	length := &models.LengthCall{FD: wfd}
	require.Nil(t, f.fs.LengthOfDescriptor(f.thread, length))
	assert.Equal(t, models.LengthSuccessful, length.Status)
	assert.Equal(t, int64(4), length.Length)
}

func TestPipesAreListedAndDiscoverable(t *testing.T) {
	f := newFixture(t, 0)

	for i := 0; i < 2; i++ {
		_, _, status := f.fs.Pipe(f.thread.Process.ID)
		require.Equal(t, models.PipeSuccessful, status)
	}

	d := f.fs.NewDiscoveryHandler("/pipes/2")
	require.Nil(t, f.fs.Discover(f.thread, d))
	require.Equal(t, models.DiscoverySuccessful, d.Status)
	assert.Equal(t, models.NodeTypePipe, d.Node.Type())

	d = f.fs.NewDiscoveryHandler("/pipes/7")
	require.Nil(t, f.fs.Discover(f.thread, d))
	assert.Equal(t, models.DiscoveryNotFound, d.Status)

	dir := &models.OpenDirectoryCall{Path: "/pipes"}
	require.Nil(t, f.fs.Discover(f.thread, f.fs.NewOpenDirectoryHandler(dir.Path, dir)))
	require.Equal(t, models.OpenDirectorySuccessful, dir.Status)

	var names []string
	for {
		call := &models.ReadDirectoryCall{Iterator: dir.Iterator}
		require.Nil(t, f.fs.ReadDirectory(f.thread, filesystem.NewReadDirectoryHandler(call)))
		if call.Status != models.ReadDirectorySuccessful {
			assert.Equal(t, models.ReadDirectoryEndOfData, call.Status)
			break
		}
		names = append(names, dir.Iterator.Entry.Name)
	}
	assert.Equal(t, []string{"1", "2"}, names)
}

func TestPipeWithoutProvider(t *testing.T) {
	ctx := context.Background()
	fs := filesystem.New(ctx, transaction.NewStore())

	_, _, status := fs.Pipe(1)
	assert.Equal(t, models.PipeError, status)
}
