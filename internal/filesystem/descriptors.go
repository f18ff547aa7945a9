package filesystem

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/S1riyS/ghost-vfs/internal/models"
	"github.com/S1riyS/ghost-vfs/internal/pkg/kerrors"
)

const (
	OpenFlagRead  int32 = 1 << 0
	OpenFlagWrite int32 = 1 << 1

	firstFD models.FD = 3
)

// Descriptor is the kernel side of an open file.
type Descriptor struct {
	ID     models.FD
	NodeID models.NodeID
	Flags  int32

	offset atomic.Int64
}

func (d *Descriptor) Offset() int64 {
	return d.offset.Load()
}

func (d *Descriptor) SetOffset(off int64) {
	d.offset.Store(off)
}

// Advance moves the offset by n bytes and returns the new offset.
func (d *Descriptor) Advance(n int64) int64 {
	return d.offset.Add(n)
}

type processDescriptors struct {
	next models.FD
	fds  map[models.FD]*Descriptor
}

type descriptorTable struct {
	mu    sync.Mutex
	procs map[models.PID]*processDescriptors
}

func newDescriptorTable() *descriptorTable {
	return &descriptorTable{procs: make(map[models.PID]*processDescriptors)}
}

func (t *descriptorTable) processLocked(pid models.PID) *processDescriptors {
	p, ok := t.procs[pid]
	if !ok {
		p = &processDescriptors{next: firstFD, fds: make(map[models.FD]*Descriptor)}
		t.procs[pid] = p
	}
	return p
}

// open maps a descriptor for node into pid. A negative fd allocates the
// next unused number; an explicit fd replaces whatever was mapped there.
// Allocated numbers are never handed out twice within a process.
func (t *descriptorTable) open(pid models.PID, nodeID models.NodeID, flags int32, fd models.FD, offset int64) models.FD {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.processLocked(pid)
	if fd < 0 {
		fd = p.next
	}
	if fd >= p.next {
		p.next = fd + 1
	}

	d := &Descriptor{ID: fd, NodeID: nodeID, Flags: flags}
	d.offset.Store(offset)
	p.fds[fd] = d
	return fd
}

func (t *descriptorTable) get(pid models.PID, fd models.FD) (*Descriptor, error) {
	const op = "filesystem.descriptorTable.get"

	t.mu.Lock()
	defer t.mu.Unlock()

	if p, ok := t.procs[pid]; ok {
		if d, ok := p.fds[fd]; ok {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%s: pid %d fd %d: %w", op, pid, fd, kerrors.ErrInvalidDescriptor)
}

func (t *descriptorTable) close(pid models.PID, fd models.FD) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.procs[pid]
	if !ok {
		return false
	}
	if _, ok := p.fds[fd]; !ok {
		return false
	}
	delete(p.fds, fd)
	return true
}

func (t *descriptorTable) removeProcess(pid models.PID) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.procs[pid]
	if !ok {
		return 0
	}
	delete(t.procs, pid)
	return len(p.fds)
}
