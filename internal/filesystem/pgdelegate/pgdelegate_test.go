package pgdelegate_test

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/S1riyS/ghost-vfs/internal/filesystem"
	"github.com/S1riyS/ghost-vfs/internal/filesystem/pgdelegate"
	"github.com/S1riyS/ghost-vfs/internal/filesystem/ramdisk"
	"github.com/S1riyS/ghost-vfs/internal/models"
	"github.com/S1riyS/ghost-vfs/internal/repository"
	"github.com/S1riyS/ghost-vfs/internal/tasking"
	"github.com/S1riyS/ghost-vfs/internal/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rootIno = repository.VolumeRootIno

// memDB is an in-memory stand-in for the postgres repositories.
type memDB struct {
	mu       sync.Mutex
	inodes   map[int64]*models.Inode
	entries  map[int64][]models.Dirent
	contents map[int64][]byte
	nextIno  int64

	contentReads atomic.Int32
}

func newMemDB() *memDB {
	return &memDB{
		inodes:   map[int64]*models.Inode{rootIno: {Ino: rootIno, Volume: "test", Type: models.StoredTypeDir}},
		entries:  make(map[int64][]models.Dirent),
		contents: make(map[int64][]byte),
		nextIno:  rootIno + 1,
	}
}

func (db *memDB) add(parent int64, name string, typ models.StoredType, data string) int64 {
	db.mu.Lock()
	defer db.mu.Unlock()

	ino := db.nextIno
	db.nextIno++
	db.inodes[ino] = &models.Inode{Ino: ino, Volume: "test", Type: typ, Size: int64(len(data))}
	db.entries[parent] = append(db.entries[parent], models.Dirent{Name: name, Ino: ino, Type: typ})
	sort.Slice(db.entries[parent], func(i, j int) bool {
		return db.entries[parent][i].Name < db.entries[parent][j].Name
	})
	if typ == models.StoredTypeFile {
		db.contents[ino] = []byte(data)
	}
	return ino
}

func (db *memDB) repositories() pgdelegate.Repositories {
	return pgdelegate.Repositories{
		Volumes:     volumes{db},
		Directories: directories{db},
		Inodes:      inodes{db},
		Contents:    contents{db},
		Tx:          noTx{},
	}
}

type volumes struct{ db *memDB }

func (v volumes) Get(_ context.Context, name string) (*models.Volume, error) {
	return &models.Volume{Name: name, RootIno: rootIno}, nil
}

func (v volumes) GetOrCreate(ctx context.Context, name string) (*models.Volume, error) {
	return v.Get(ctx, name)
}

type directories struct{ db *memDB }

func (d directories) Lookup(_ context.Context, _ string, parent int64, name string) (*models.Dirent, error) {
	d.db.mu.Lock()
	defer d.db.mu.Unlock()
	for _, e := range d.db.entries[parent] {
		if e.Name == name {
			return &e, nil
		}
	}
	return nil, nil
}

func (d directories) GetEntryByOffset(_ context.Context, _ string, parent int64, offset uint64) (*models.Dirent, error) {
	d.db.mu.Lock()
	defer d.db.mu.Unlock()
	entries := d.db.entries[parent]
	if offset >= uint64(len(entries)) {
		return nil, nil
	}
	e := entries[offset]
	return &e, nil
}

type inodes struct{ db *memDB }

func (i inodes) Get(_ context.Context, _ string, ino int64) (*models.Inode, error) {
	i.db.mu.Lock()
	defer i.db.mu.Unlock()
	inode, ok := i.db.inodes[ino]
	if !ok {
		return nil, nil
	}
	cp := *inode
	return &cp, nil
}

func (i inodes) UpdateSize(_ context.Context, _ string, ino int64, size int64) error {
	i.db.mu.Lock()
	defer i.db.mu.Unlock()
	i.db.inodes[ino].Size = size
	return nil
}

type contents struct{ db *memDB }

func (c contents) Get(_ context.Context, _ string, ino int64) ([]byte, error) {
	c.db.contentReads.Add(1)
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	return append([]byte{}, c.db.contents[ino]...), nil
}

func (c contents) Set(_ context.Context, _ string, ino int64, data []byte) error {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	c.db.contents[ino] = append([]byte(nil), data...)
	return nil
}

type noTx struct{}

func (noTx) WithinTransaction(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type harness struct {
	db     *memDB
	fs     *filesystem.Filesystem
	pg     *pgdelegate.Delegate
	tk     *tasking.Tasking
	thread *tasking.Thread
}

func newHarness(t *testing.T, cfg pgdelegate.Config, runWorkers bool) *harness {
	t.Helper()

	ctx := context.Background()
	store := transaction.NewStore()
	tk := tasking.New(ctx, 2, 5*time.Millisecond)
	store.Watch(func(models.TransactionID, models.TransactionStatus) { tk.Wake() })

	fs := filesystem.New(ctx, store)
	fs.Initialize(ramdisk.NewDelegate(ctx, store, ramdisk.New()))

	db := newMemDB()
	cfg.Volume = "test"
	pg, err := pgdelegate.New(ctx, store, db.repositories(), cfg)
	require.NoError(t, err)

	kernel := tk.CreateProcess(models.SecurityLevelKernel, "/").Main()
	_, status := fs.CreateDelegate(kernel, "db", pg.RootPhysID(), pg)
	require.Equal(t, models.RegisterAsDelegateSuccessful, status)

	runCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = tk.Run(runCtx)
	}()
	if runWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pg.Run(runCtx)
		}()
	}
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})

	return &harness{
		db:     db,
		fs:     fs,
		pg:     pg,
		tk:     tk,
		thread: tk.CreateProcess(models.SecurityLevelUser, "/").Main(),
	}
}

func (h *harness) wait(t *testing.T, p *filesystem.Pending) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.fs.Wait(ctx, h.thread, p))
}

func (h *harness) open(t *testing.T, path string) models.FD {
	t.Helper()
	call := &models.OpenCall{Path: path}
	h.wait(t, h.fs.Discover(h.thread, h.fs.NewOpenHandler(path, call)))
	require.Equal(t, models.OpenSuccessful, call.Status)
	return call.FD
}

func (h *harness) read(t *testing.T, fd models.FD, n int) *models.ReadCall {
	t.Helper()
	call := &models.ReadCall{FD: fd, Buffer: make([]byte, n), Length: int64(n)}
	h.wait(t, h.fs.Read(h.thread, filesystem.NewReadHandler(call)))
	return call
}

func TestChunkedRead(t *testing.T) {
	h := newHarness(t, pgdelegate.Config{ChunkSize: 3}, true)
	docs := h.db.add(rootIno, "docs", models.StoredTypeDir, "")
	h.db.add(docs, "readme", models.StoredTypeFile, "0123456789")

	fd := h.open(t, "/db/docs/readme")

	call := h.read(t, fd, 8)
	require.Equal(t, models.ReadSuccessful, call.Status)
	assert.Equal(t, int64(8), call.Result)
	assert.Equal(t, "01234567", string(call.Buffer))

	call = h.read(t, fd, 8)
	require.Equal(t, models.ReadSuccessful, call.Status)
	assert.Equal(t, "89", string(call.Buffer[:call.Result]))

	call = h.read(t, fd, 8)
	assert.Equal(t, models.ReadSuccessful, call.Status)
	assert.Equal(t, int64(0), call.Result)

	assert.Equal(t, int32(1), h.db.contentReads.Load(), "content is cached between chunks")
}

func TestWriteSplicesContent(t *testing.T) {
	h := newHarness(t, pgdelegate.Config{}, true)
	ino := h.db.add(rootIno, "notes", models.StoredTypeFile, "abcdef")

	fd := h.open(t, "/db/notes")
	h.read(t, fd, 2)

	write := &models.WriteCall{FD: fd, Buffer: []byte("XYZZY"), Length: 2}
	h.wait(t, h.fs.Write(h.thread, filesystem.NewWriteHandler(write)))
	require.Equal(t, models.WriteSuccessful, write.Status)
	assert.Equal(t, int64(2), write.Result)

	h.db.mu.Lock()
	assert.Equal(t, "abXYef", string(h.db.contents[ino]))
	h.db.mu.Unlock()

	rest := h.read(t, fd, 16)
	assert.Equal(t, "ef", string(rest.Buffer[:rest.Result]))

	// appending past the end grows the inode
	grow := &models.WriteCall{FD: fd, Buffer: []byte("gh"), Length: 2}
	h.wait(t, h.fs.Write(h.thread, filesystem.NewWriteHandler(grow)))
	require.Equal(t, models.WriteSuccessful, grow.Status)

	length := &models.LengthCall{FD: fd}
	h.wait(t, h.fs.LengthOfDescriptor(h.thread, length))
	assert.Equal(t, models.LengthSuccessful, length.Status)
	assert.Equal(t, int64(8), length.Length)

	fresh := h.open(t, "/db/notes")
	all := h.read(t, fresh, 16)
	assert.Equal(t, "abXYefgh", string(all.Buffer[:all.Result]))
}

func TestWriteToFolderNotSupported(t *testing.T) {
	h := newHarness(t, pgdelegate.Config{}, true)
	h.db.add(rootIno, "dir", models.StoredTypeDir, "")

	fd := h.open(t, "/db/dir")
	call := &models.WriteCall{FD: fd, Buffer: []byte("x"), Length: 1}
	h.wait(t, h.fs.Write(h.thread, filesystem.NewWriteHandler(call)))
	assert.Equal(t, models.WriteNotSupported, call.Status)
}

func TestReadDirectorySortedByName(t *testing.T) {
	h := newHarness(t, pgdelegate.Config{}, true)
	for _, name := range []string{"c.txt", "a.txt", "b"} {
		typ := models.StoredTypeFile
		if name == "b" {
			typ = models.StoredTypeDir
		}
		h.db.add(rootIno, name, typ, "")
	}

	dir := &models.OpenDirectoryCall{Path: "/db"}
	h.wait(t, h.fs.Discover(h.thread, h.fs.NewOpenDirectoryHandler(dir.Path, dir)))
	require.Equal(t, models.OpenDirectorySuccessful, dir.Status)

	var entries []models.DirectoryEntry
	for {
		call := &models.ReadDirectoryCall{Iterator: dir.Iterator}
		h.wait(t, h.fs.ReadDirectory(h.thread, filesystem.NewReadDirectoryHandler(call)))
		if call.Status != models.ReadDirectorySuccessful {
			assert.Equal(t, models.ReadDirectoryEndOfData, call.Status)
			break
		}
		entries = append(entries, dir.Iterator.Entry)
	}

	require.Len(t, entries, 3)
	assert.Equal(t, "a.txt", entries[0].Name)
	assert.Equal(t, "b", entries[1].Name)
	assert.Equal(t, models.NodeTypeFolder, entries[1].Type)
	assert.Equal(t, "c.txt", entries[2].Name)
}

func TestStatAndMissing(t *testing.T) {
	h := newHarness(t, pgdelegate.Config{}, true)
	h.db.add(rootIno, "data.bin", models.StoredTypeFile, "12345")

	call := &models.StatCall{Path: "/db/data.bin"}
	h.wait(t, h.fs.Discover(h.thread, h.fs.NewStatHandler(call.Path, call)))
	require.Equal(t, models.StatSuccessful, call.Status)
	assert.Equal(t, int64(5), call.Attributes.Length)

	open := &models.OpenCall{Path: "/db/nothing"}
	h.wait(t, h.fs.Discover(h.thread, h.fs.NewOpenHandler(open.Path, open)))
	assert.Equal(t, models.OpenNotFound, open.Status)
}

func TestFullQueueReportsBusy(t *testing.T) {
	h := newHarness(t, pgdelegate.Config{QueueSize: 1}, false)
	h.db.add(rootIno, "a", models.StoredTypeFile, "")
	h.db.add(rootIno, "b", models.StoredTypeFile, "")

	// without workers the first request stays queued
	first := &models.OpenCall{Path: "/db/a"}
	p := h.fs.Discover(h.thread, h.fs.NewOpenHandler(first.Path, first))
	require.NotNil(t, p)

	other := h.tk.CreateProcess(models.SecurityLevelUser, "/").Main()
	second := &models.OpenCall{Path: "/db/b"}
	require.Nil(t, h.fs.Discover(other, h.fs.NewOpenHandler(second.Path, second)))
	assert.Equal(t, models.OpenError, second.Status)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, h.fs.Wait(ctx, h.thread, p))
	assert.Equal(t, models.OpenError, first.Status)
	assert.Equal(t, models.FD(-1), first.FD)
}
