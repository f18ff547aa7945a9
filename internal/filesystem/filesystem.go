// Package filesystem is the kernel side of the virtual filesystem: the node
// tree, descriptor tables and the transaction handlers that drive delegate
// operations to completion.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/S1riyS/ghost-vfs/internal/models"
	"github.com/S1riyS/ghost-vfs/internal/pkg/kerrors"
	"github.com/S1riyS/ghost-vfs/internal/tasking"
	"github.com/S1riyS/ghost-vfs/internal/transaction"
	"github.com/S1riyS/ghost-vfs/pkg/logging"
	"github.com/S1riyS/ghost-vfs/pkg/logging/slogext"
)

// PipeProvider allocates the backing buffer of a new anonymous pipe and
// describes it as an entry of its mountpoint.
type PipeProvider interface {
	CreatePipe() (DiscoveredEntry, error)
}

type Filesystem struct {
	logger *slog.Logger
	store  *transaction.Store
	tree   *Tree
	fds    *descriptorTable

	mu         sync.RWMutex
	pipes      PipeProvider
	pipesMount *Node
}

func New(ctx context.Context, store *transaction.Store) *Filesystem {
	return &Filesystem{
		logger: logging.GetComponentLogger(ctx, "filesystem"),
		store:  store,
		tree:   NewTree(),
		fds:    newDescriptorTable(),
	}
}

// Initialize binds the delegate that serves the root of the tree.
func (fs *Filesystem) Initialize(root Delegate) {
	fs.tree.setRootDelegate(root)
	fs.logger.Info("Filesystem initialized")
}

func (fs *Filesystem) Store() *transaction.Store {
	return fs.store
}

func (fs *Filesystem) Tree() *Tree {
	return fs.tree
}

func (fs *Filesystem) CreateNode() *Node {
	return fs.tree.CreateNode()
}

func (fs *Filesystem) NodeByID(id models.NodeID) (*Node, error) {
	return fs.tree.NodeByID(id)
}

func (fs *Filesystem) FindExisting(path string) (parent, child *Node, current string, err error) {
	return fs.tree.FindExisting(path)
}

func (fs *Filesystem) RealPath(n *Node) string {
	return fs.tree.RealPath(n)
}

// CreateDelegate mounts d below the root under name. Only kernel level
// processes may register delegates.
func (fs *Filesystem) CreateDelegate(thread *tasking.Thread, name string, physMountpointID models.PhysID, d Delegate) (models.NodeID, models.RegisterAsDelegateStatus) {
	if thread.Process.SecurityLevel != models.SecurityLevelKernel {
		fs.logger.Warn("Delegate registration denied",
			slog.String("name", name),
			slog.Any("pid", thread.Process.ID),
		)
		return 0, models.RegisterAsDelegateFailedPermission
	}

	n, err := fs.tree.mount(name, physMountpointID, d)
	switch {
	case errors.Is(err, kerrors.ErrExists):
		return 0, models.RegisterAsDelegateFailedExisting
	case err != nil:
		fs.logger.Error("Failed to mount delegate", slog.String("name", name), slogext.Err(err))
		return 0, models.RegisterAsDelegateError
	}

	fs.logger.Info("Delegate registered",
		slog.String("name", name),
		slog.Any("mountpoint", n.ID()),
		slog.Any("phys", physMountpointID),
	)
	return n.ID(), models.RegisterAsDelegateSuccessful
}

// SetPipeProvider selects the mountpoint whose delegate backs anonymous
// pipes.
func (fs *Filesystem) SetPipeProvider(mountpoint models.NodeID, p PipeProvider) error {
	const op = "filesystem.Filesystem.SetPipeProvider"

	n, err := fs.tree.NodeByID(mountpoint)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n.Type() != models.NodeTypeMountpoint {
		return fmt.Errorf("%s: node %d: %w", op, mountpoint, kerrors.ErrNotDirectory)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.pipes = p
	fs.pipesMount = n
	return nil
}

// Open maps a descriptor for node into process pid. A negative fd picks
// the next unused number.
func (fs *Filesystem) Open(pid models.PID, node *Node, flags int32, fd models.FD) models.FD {
	return fs.fds.open(pid, node.ID(), flags, fd, 0)
}

func (fs *Filesystem) NodeForDescriptor(pid models.PID, fd models.FD) (*Node, *Descriptor, error) {
	const op = "filesystem.Filesystem.NodeForDescriptor"

	d, err := fs.fds.get(pid, fd)
	if err != nil {
		return nil, nil, err
	}
	n, err := fs.tree.NodeByID(d.NodeID)
	if err != nil {
		// descriptors always point at live nodes
		fs.logger.Error("Descriptor refers to a missing node", slog.Any("fd", fd), slogext.Err(err))
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	return n, d, nil
}

func (fs *Filesystem) Close(pid models.PID, fd models.FD) models.CloseStatus {
	if !fs.fds.close(pid, fd) {
		return models.CloseInvalidDescriptor
	}
	return models.CloseSuccessful
}

// CloneFD copies a descriptor of one process into another. The clone
// starts at the source's current offset.
func (fs *Filesystem) CloneFD(sourcePID models.PID, sourceFD models.FD, targetPID models.PID, targetFD models.FD) (models.FD, models.CloneFDStatus) {
	d, err := fs.fds.get(sourcePID, sourceFD)
	if err != nil {
		return -1, models.CloneFDError
	}
	fd := fs.fds.open(targetPID, d.NodeID, d.Flags, targetFD, d.Offset())
	return fd, models.CloneFDSuccessful
}

// Pipe creates an anonymous pipe and opens both of its ends in pid.
func (fs *Filesystem) Pipe(pid models.PID) (writeFD, readFD models.FD, status models.PipeStatus) {
	fs.mu.RLock()
	provider, mount := fs.pipes, fs.pipesMount
	fs.mu.RUnlock()

	if provider == nil {
		fs.logger.Warn("Pipe requested without a pipe provider")
		return -1, -1, models.PipeError
	}

	entry, err := provider.CreatePipe()
	if err != nil {
		fs.logger.Error("Failed to create pipe", slogext.Err(err))
		return -1, -1, models.PipeError
	}
	node, err := fs.tree.materialize(mount, &entry, "")
	if err != nil {
		fs.logger.Error("Pipe provider reported an invalid entry", slogext.Err(err))
		return -1, -1, models.PipeError
	}

	writeFD = fs.Open(pid, node, OpenFlagWrite, -1)
	readFD = fs.Open(pid, node, OpenFlagRead, -1)
	return writeFD, readFD, models.PipeSuccessful
}

// ProcessClosed drops every descriptor of a terminated process.
func (fs *Filesystem) ProcessClosed(pid models.PID) {
	n := fs.fds.removeProcess(pid)
	fs.logger.Debug("Process descriptors released", slog.Any("pid", pid), slog.Int("count", n))
}

// Read starts the read described by h's call block.
func (fs *Filesystem) Read(thread *tasking.Thread, h *ReadHandler) *Pending {
	call := h.call

	node, fd, err := fs.NodeForDescriptor(thread.Process.ID, call.FD)
	if err != nil {
		h.report(models.ReadInvalidDescriptor, -1)
		return nil
	}
	d := fs.tree.delegateFor(node)
	if d == nil {
		fs.logger.Error("No delegate serves node", slog.Any("node", node.ID()))
		h.report(models.ReadError, -1)
		return nil
	}

	h.node = node
	h.delegate = d
	h.fd = fd
	h.length = clampLength(call.Length, len(call.Buffer))
	h.buffer = call.Buffer[:h.length]

	id := d.RequestRead(thread, node, h.length, h.buffer, fd, h)
	return fs.advance(thread, h, id)
}

// Write starts the write described by h's call block.
func (fs *Filesystem) Write(thread *tasking.Thread, h *WriteHandler) *Pending {
	call := h.call

	node, fd, err := fs.NodeForDescriptor(thread.Process.ID, call.FD)
	if err != nil {
		h.report(models.WriteInvalidDescriptor, -1)
		return nil
	}
	d := fs.tree.delegateFor(node)
	if d == nil {
		fs.logger.Error("No delegate serves node", slog.Any("node", node.ID()))
		h.report(models.WriteError, -1)
		return nil
	}

	h.node = node
	h.delegate = d
	h.fd = fd
	h.length = clampLength(call.Length, len(call.Buffer))
	h.buffer = call.Buffer[:h.length]

	id := d.RequestWrite(thread, node, h.length, h.buffer, fd, h)
	return fs.advance(thread, h, id)
}

// GetLength asks the delegate of node for its length.
func (fs *Filesystem) GetLength(thread *tasking.Thread, node *Node, h *GetLengthHandler) *Pending {
	d := fs.tree.delegateFor(node)
	if d == nil {
		fs.logger.Error("No delegate serves node", slog.Any("node", node.ID()))
		h.report(models.LengthError, 0)
		return nil
	}

	h.node = node
	h.delegate = d

	id := d.RequestGetLength(thread, node, h)
	return fs.advance(thread, h, id)
}

// LengthOfDescriptor queries the length of the node behind call.FD.
func (fs *Filesystem) LengthOfDescriptor(thread *tasking.Thread, call *models.LengthCall) *Pending {
	h := NewLengthHandler(call)

	node, _, err := fs.NodeForDescriptor(thread.Process.ID, call.FD)
	if err != nil {
		h.report(models.LengthInvalidDescriptor, 0)
		return nil
	}
	return fs.GetLength(thread, node, h)
}

func (fs *Filesystem) Fstat(thread *tasking.Thread, call *models.FstatCall) *Pending {
	node, _, err := fs.NodeForDescriptor(thread.Process.ID, call.FD)
	if err != nil {
		call.Attributes = models.StatAttributes{}
		call.Status = models.StatError
		return nil
	}

	call.Attributes = models.StatAttributes{NodeID: node.ID(), Type: node.Type()}
	return fs.GetLength(thread, node, NewFstatHandler(call))
}

// ReadDirectory reads the entry at the iterator's position.
func (fs *Filesystem) ReadDirectory(thread *tasking.Thread, h *ReadDirectoryHandler) *Pending {
	it := h.call.Iterator
	if it == nil {
		h.report(models.ReadDirectoryError)
		return nil
	}

	node, err := fs.tree.NodeByID(it.NodeID)
	if err != nil || !node.IsDirectory() {
		fs.logger.Warn("Directory iterator refers to an invalid node", slog.Any("node", it.NodeID))
		h.report(models.ReadDirectoryError)
		return nil
	}
	d := fs.tree.delegateFor(node)
	if d == nil {
		fs.logger.Error("No delegate serves node", slog.Any("node", node.ID()))
		h.report(models.ReadDirectoryError)
		return nil
	}

	h.fs = fs
	h.node = node
	h.delegate = d
	h.position = it.Position

	id := d.RequestReadDirectory(thread, node, it.Position, h)
	return fs.advance(thread, h, id)
}

func clampLength(length int64, size int) int64 {
	if length < 0 {
		return 0
	}
	if length > int64(size) {
		return int64(size)
	}
	return length
}
