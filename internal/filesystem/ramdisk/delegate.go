package ramdisk

import (
	"context"
	"log/slog"

	"github.com/S1riyS/ghost-vfs/internal/filesystem"
	"github.com/S1riyS/ghost-vfs/internal/models"
	"github.com/S1riyS/ghost-vfs/internal/tasking"
	"github.com/S1riyS/ghost-vfs/internal/transaction"
	"github.com/S1riyS/ghost-vfs/pkg/logging"
	"github.com/S1riyS/ghost-vfs/pkg/logging/slogext"
)

type repeatable interface {
	WantsRepeatTransaction() bool
	RepeatedTransaction() models.TransactionID
}

// Delegate answers every request synchronously. The node a request is
// about carries the physical id of a ramdisk entry; the root and
// mountpoints served by this delegate map to their mount entry.
type Delegate struct {
	logger *slog.Logger
	store  *transaction.Store
	disk   *Ramdisk
}

var _ filesystem.Delegate = (*Delegate)(nil)

func NewDelegate(ctx context.Context, store *transaction.Store, disk *Ramdisk) *Delegate {
	return &Delegate{
		logger: logging.GetComponentLogger(ctx, "ramdisk"),
		store:  store,
		disk:   disk,
	}
}

func (d *Delegate) Ramdisk() *Ramdisk {
	return d.disk
}

func (d *Delegate) begin(h repeatable) models.TransactionID {
	if h.WantsRepeatTransaction() {
		return h.RepeatedTransaction()
	}
	return d.store.Next()
}

func (d *Delegate) finish(id models.TransactionID) {
	if err := d.store.SetStatus(id, models.TransactionFinished); err != nil {
		d.logger.Error("Failed to finish transaction", slog.Any("transaction", id), slogext.Err(err))
	}
}

func entryOf(e *Entry) *filesystem.DiscoveredEntry {
	return &filesystem.DiscoveredEntry{Name: e.Name, PhysID: e.ID, Type: e.NodeType()}
}

func (d *Delegate) RequestDiscovery(_ *tasking.Thread, parent *filesystem.Node, child string, h *filesystem.DiscoveryHandler) models.TransactionID {
	id := d.store.Next()

	if e, ok := d.disk.FindChild(parent.PhysID(), child); ok {
		h.Entry = entryOf(e)
		h.Status = models.DiscoverySuccessful
	} else {
		h.Status = models.DiscoveryNotFound
	}

	d.finish(id)
	return id
}

func (d *Delegate) FinishDiscovery(*tasking.Thread, *filesystem.DiscoveryHandler) {}

// RequestRead copies max(0, min(length, L-offset)) bytes and advances the
// descriptor by the same amount.
func (d *Delegate) RequestRead(_ *tasking.Thread, node *filesystem.Node, length int64, buffer []byte, fd *filesystem.Descriptor, h *filesystem.ReadHandler) models.TransactionID {
	id := d.begin(h)

	e, ok := d.disk.FindByID(node.PhysID())
	if !ok {
		h.Status = models.ReadInvalidDescriptor
		d.finish(id)
		return id
	}

	offset := fd.Offset()
	n := min(length, e.Length()-offset)
	if n > 0 {
		copy(buffer[:n], e.Data[offset:offset+n])
		fd.Advance(n)
	} else {
		n = 0
	}

	h.Result = n
	h.Status = models.ReadSuccessful
	d.finish(id)
	return id
}

func (d *Delegate) FinishRead(*tasking.Thread, *filesystem.ReadHandler) {}

// RequestWrite always fails: the image is read-only.
func (d *Delegate) RequestWrite(_ *tasking.Thread, _ *filesystem.Node, _ int64, _ []byte, _ *filesystem.Descriptor, h *filesystem.WriteHandler) models.TransactionID {
	id := d.begin(h)
	h.Status = models.WriteNotSupported
	d.finish(id)
	return id
}

func (d *Delegate) FinishWrite(*tasking.Thread, *filesystem.WriteHandler) {}

func (d *Delegate) RequestGetLength(_ *tasking.Thread, node *filesystem.Node, h *filesystem.GetLengthHandler) models.TransactionID {
	id := d.store.Next()

	if e, ok := d.disk.FindByID(node.PhysID()); ok {
		h.Length = e.Length()
		h.Status = models.LengthSuccessful
	} else {
		h.Length = 0
		h.Status = models.LengthNotFound
	}

	d.finish(id)
	return id
}

func (d *Delegate) FinishGetLength(*tasking.Thread, *filesystem.GetLengthHandler) {}

func (d *Delegate) RequestReadDirectory(_ *tasking.Thread, node *filesystem.Node, position int, h *filesystem.ReadDirectoryHandler) models.TransactionID {
	id := d.store.Next()

	if _, ok := d.disk.FindByID(node.PhysID()); !ok {
		h.Status = models.ReadDirectoryError
	} else if e, ok := d.disk.ChildAt(node.PhysID(), position); ok {
		h.Entry = entryOf(e)
		h.Status = models.ReadDirectorySuccessful
	} else {
		h.Status = models.ReadDirectoryEndOfData
	}

	d.finish(id)
	return id
}

func (d *Delegate) FinishReadDirectory(*tasking.Thread, *filesystem.ReadDirectoryHandler) {}
