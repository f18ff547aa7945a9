// Package pipe keeps anonymous pipes in kernel memory and serves them
// below their mountpoint.
package pipe

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/S1riyS/ghost-vfs/internal/filesystem"
	"github.com/S1riyS/ghost-vfs/internal/models"
	"github.com/S1riyS/ghost-vfs/internal/tasking"
	"github.com/S1riyS/ghost-vfs/internal/transaction"
	"github.com/S1riyS/ghost-vfs/pkg/logging"
	"github.com/S1riyS/ghost-vfs/pkg/logging/slogext"
)

// DefaultCapacity is the buffer size of a pipe in bytes.
const DefaultCapacity = 4096

// MountName is where the kernel mounts the pipe delegate.
const MountName = "pipes"

type pipe struct {
	id   models.PhysID
	name string
	buf  []byte
}

// Delegate serves bounded byte pipes. Reads on an empty pipe and writes on
// a full one report Busy; callers retry.
type Delegate struct {
	logger   *slog.Logger
	store    *transaction.Store
	capacity int

	mu    sync.Mutex
	next  models.PhysID
	pipes map[models.PhysID]*pipe
	order []models.PhysID
}

var (
	_ filesystem.Delegate     = (*Delegate)(nil)
	_ filesystem.PipeProvider = (*Delegate)(nil)
)

func NewDelegate(ctx context.Context, store *transaction.Store, capacity int) *Delegate {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Delegate{
		logger:   logging.GetComponentLogger(ctx, "pipe"),
		store:    store,
		capacity: capacity,
		next:     1,
		pipes:    make(map[models.PhysID]*pipe),
	}
}

// CreatePipe allocates an empty pipe.
func (d *Delegate) CreatePipe() (filesystem.DiscoveredEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p := &pipe{id: d.next, name: strconv.FormatUint(uint64(d.next), 10)}
	d.next++
	d.pipes[p.id] = p
	d.order = append(d.order, p.id)

	d.logger.Debug("Pipe created", slog.Any("phys", p.id))
	return entryOf(p), nil
}

// Buffered returns the number of unread bytes in a pipe.
func (d *Delegate) Buffered(id models.PhysID) (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pipes[id]
	if !ok {
		return 0, false
	}
	return len(p.buf), true
}

func entryOf(p *pipe) filesystem.DiscoveredEntry {
	return filesystem.DiscoveredEntry{Name: p.name, PhysID: p.id, Type: models.NodeTypePipe}
}

func (d *Delegate) finish(id models.TransactionID) {
	if err := d.store.SetStatus(id, models.TransactionFinished); err != nil {
		d.logger.Error("Failed to finish transaction", slog.Any("transaction", id), slogext.Err(err))
	}
}

func (d *Delegate) lookup(name string) (*pipe, bool) {
	for _, id := range d.order {
		if p := d.pipes[id]; p.name == name {
			return p, true
		}
	}
	return nil, false
}

func (d *Delegate) RequestDiscovery(_ *tasking.Thread, parent *filesystem.Node, child string, h *filesystem.DiscoveryHandler) models.TransactionID {
	id := d.store.Next()

	d.mu.Lock()
	p, ok := d.lookup(child)
	d.mu.Unlock()

	if ok && parent.Type() == models.NodeTypeMountpoint {
		e := entryOf(p)
		h.Entry = &e
		h.Status = models.DiscoverySuccessful
	} else {
		h.Status = models.DiscoveryNotFound
	}

	d.finish(id)
	return id
}

func (d *Delegate) FinishDiscovery(*tasking.Thread, *filesystem.DiscoveryHandler) {}

func (d *Delegate) RequestRead(_ *tasking.Thread, node *filesystem.Node, length int64, buffer []byte, _ *filesystem.Descriptor, h *filesystem.ReadHandler) models.TransactionID {
	id := d.store.Next()

	d.mu.Lock()
	p, ok := d.pipes[node.PhysID()]
	switch {
	case !ok:
		h.Status = models.ReadInvalidDescriptor
	case length == 0:
		h.Result = 0
		h.Status = models.ReadSuccessful
	case len(p.buf) == 0:
		h.Status = models.ReadBusy
	default:
		n := copy(buffer[:length], p.buf)
		p.buf = append(p.buf[:0], p.buf[n:]...)
		h.Result = int64(n)
		h.Status = models.ReadSuccessful
	}
	d.mu.Unlock()

	d.finish(id)
	return id
}

func (d *Delegate) FinishRead(*tasking.Thread, *filesystem.ReadHandler) {}

func (d *Delegate) RequestWrite(_ *tasking.Thread, node *filesystem.Node, length int64, buffer []byte, _ *filesystem.Descriptor, h *filesystem.WriteHandler) models.TransactionID {
	id := d.store.Next()

	d.mu.Lock()
	p, ok := d.pipes[node.PhysID()]
	switch {
	case !ok:
		h.Status = models.WriteInvalidDescriptor
	case length == 0:
		h.Result = 0
		h.Status = models.WriteSuccessful
	case len(p.buf) >= d.capacity:
		h.Status = models.WriteBusy
	default:
		n := min(int(length), d.capacity-len(p.buf))
		p.buf = append(p.buf, buffer[:n]...)
		h.Result = int64(n)
		h.Status = models.WriteSuccessful
	}
	d.mu.Unlock()

	d.finish(id)
	return id
}

func (d *Delegate) FinishWrite(*tasking.Thread, *filesystem.WriteHandler) {}

func (d *Delegate) RequestGetLength(_ *tasking.Thread, node *filesystem.Node, h *filesystem.GetLengthHandler) models.TransactionID {
	id := d.store.Next()

	if n, ok := d.Buffered(node.PhysID()); ok {
		h.Length = int64(n)
		h.Status = models.LengthSuccessful
	} else if node.Type() == models.NodeTypeMountpoint {
		h.Length = 0
		h.Status = models.LengthSuccessful
	} else {
		h.Status = models.LengthNotFound
	}

	d.finish(id)
	return id
}

func (d *Delegate) FinishGetLength(*tasking.Thread, *filesystem.GetLengthHandler) {}

// RequestReadDirectory lists pipes in creation order.
func (d *Delegate) RequestReadDirectory(_ *tasking.Thread, node *filesystem.Node, position int, h *filesystem.ReadDirectoryHandler) models.TransactionID {
	id := d.store.Next()

	d.mu.Lock()
	switch {
	case node.Type() != models.NodeTypeMountpoint:
		h.Status = models.ReadDirectoryError
	case position < 0 || position >= len(d.order):
		h.Status = models.ReadDirectoryEndOfData
	default:
		e := entryOf(d.pipes[d.order[position]])
		h.Entry = &e
		h.Status = models.ReadDirectorySuccessful
	}
	d.mu.Unlock()

	d.finish(id)
	return id
}

func (d *Delegate) FinishReadDirectory(*tasking.Thread, *filesystem.ReadDirectoryHandler) {}
