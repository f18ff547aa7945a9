// Package ramdisk serves a read-only in-memory image through the
// filesystem delegate protocol.
package ramdisk

import (
	"fmt"
	"strings"
	"sync"

	"github.com/S1riyS/ghost-vfs/internal/models"
	"github.com/S1riyS/ghost-vfs/internal/pkg/kerrors"
)

// RootID is the physical id of the image root.
const RootID models.PhysID = 0

type EntryType uint8

const (
	EntryFolder EntryType = iota
	EntryFile
)

// Entry is one file or folder of the image. Entries are immutable once
// added.
type Entry struct {
	ID     models.PhysID
	Parent models.PhysID
	Name   string
	Type   EntryType
	Data   []byte

	children []models.PhysID
}

func (e *Entry) Length() int64 {
	return int64(len(e.Data))
}

func (e *Entry) NodeType() models.NodeType {
	if e.Type == EntryFile {
		return models.NodeTypeFile
	}
	return models.NodeTypeFolder
}

type Ramdisk struct {
	mu      sync.RWMutex
	next    models.PhysID
	entries map[models.PhysID]*Entry
}

func New() *Ramdisk {
	return &Ramdisk{
		next: RootID + 1,
		entries: map[models.PhysID]*Entry{
			RootID: {ID: RootID, Parent: RootID, Type: EntryFolder},
		},
	}
}

func (r *Ramdisk) Root() *Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[RootID]
}

func (r *Ramdisk) FindByID(id models.PhysID) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

func (r *Ramdisk) FindChild(parent models.PhysID, name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findChildLocked(parent, name)
}

func (r *Ramdisk) findChildLocked(parent models.PhysID, name string) (*Entry, bool) {
	p, ok := r.entries[parent]
	if !ok {
		return nil, false
	}
	for _, id := range p.children {
		if c := r.entries[id]; c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// ChildAt returns the child at position in insertion order.
func (r *Ramdisk) ChildAt(parent models.PhysID, position int) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.entries[parent]
	if !ok || position < 0 || position >= len(p.children) {
		return nil, false
	}
	return r.entries[p.children[position]], true
}

func (r *Ramdisk) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Ramdisk) CreateFolder(parent models.PhysID, name string) (models.PhysID, error) {
	return r.add(parent, name, EntryFolder, nil)
}

// CreateFile adds a file holding a copy of data.
func (r *Ramdisk) CreateFile(parent models.PhysID, name string, data []byte) (models.PhysID, error) {
	return r.add(parent, name, EntryFile, append([]byte(nil), data...))
}

func (r *Ramdisk) add(parent models.PhysID, name string, typ EntryType, data []byte) (models.PhysID, error) {
	const op = "ramdisk.Ramdisk.add"

	if name == "" || name == "." || name == ".." || strings.Contains(name, "/") {
		return 0, fmt.Errorf("%s: name %q: %w", op, name, kerrors.ErrInvalidPath)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.entries[parent]
	if !ok {
		return 0, fmt.Errorf("%s: parent %d: %w", op, parent, kerrors.ErrNotFound)
	}
	if p.Type != EntryFolder {
		return 0, fmt.Errorf("%s: parent %d: %w", op, parent, kerrors.ErrNotDirectory)
	}
	if _, exists := r.findChildLocked(parent, name); exists {
		return 0, fmt.Errorf("%s: %q: %w", op, name, kerrors.ErrExists)
	}

	e := &Entry{ID: r.next, Parent: parent, Name: name, Type: typ, Data: data}
	r.next++
	r.entries[e.ID] = e
	p.children = append(p.children, e.ID)
	return e.ID, nil
}

// MkdirAll creates every missing folder of an absolute path and returns
// the id of the last one.
func (r *Ramdisk) MkdirAll(path string) (models.PhysID, error) {
	const op = "ramdisk.Ramdisk.MkdirAll"

	id := RootID
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		if e, ok := r.FindChild(id, seg); ok {
			if e.Type != EntryFolder {
				return 0, fmt.Errorf("%s: %q: %w", op, path, kerrors.ErrNotDirectory)
			}
			id = e.ID
			continue
		}
		next, err := r.CreateFolder(id, seg)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		id = next
	}
	return id, nil
}

// AddFile stores data at an absolute path, creating parent folders.
func (r *Ramdisk) AddFile(path string, data []byte) (models.PhysID, error) {
	const op = "ramdisk.Ramdisk.AddFile"

	i := strings.LastIndex(path, "/")
	if i < 0 {
		return 0, fmt.Errorf("%s: %q: %w", op, path, kerrors.ErrInvalidPath)
	}
	parent, err := r.MkdirAll(path[:i])
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	id, err := r.CreateFile(parent, path[i+1:], data)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}
