package filesystem

import (
	"log/slog"

	"github.com/S1riyS/ghost-vfs/internal/models"
	"github.com/S1riyS/ghost-vfs/internal/tasking"
	"github.com/S1riyS/ghost-vfs/pkg/logging/slogext"
)

// ReadDirectoryHandler reads the entry at one position of a directory.
// Delegates fill Status and Entry; the engine materializes Child.
type ReadDirectoryHandler struct {
	handlerBase

	Status models.ReadDirectoryStatus
	Entry  *DiscoveredEntry
	Child  *Node

	call *models.ReadDirectoryCall

	fs       *Filesystem
	node     *Node
	delegate Delegate
	position int
}

func NewReadDirectoryHandler(call *models.ReadDirectoryCall) *ReadDirectoryHandler {
	return &ReadDirectoryHandler{Status: models.ReadDirectoryError, call: call}
}

func (h *ReadDirectoryHandler) repeat(thread *tasking.Thread) models.TransactionID {
	return h.delegate.RequestReadDirectory(thread, h.node, h.position, h)
}

func (h *ReadDirectoryHandler) finish(thread *tasking.Thread) *Pending {
	if h.delegate != nil {
		h.delegate.FinishReadDirectory(thread, h)
	}

	if h.Status == models.ReadDirectorySuccessful {
		child, err := h.fs.tree.materialize(h.node, h.Entry, "")
		if err != nil {
			h.fs.logger.Warn("Delegate reported an invalid directory entry",
				slog.Any("node", h.node.ID()),
				slog.Int("position", h.position),
				slogext.Err(err),
			)
			h.Status = models.ReadDirectoryError
		} else {
			h.Child = child
		}
	}

	h.report(h.Status)
	return nil
}

func (h *ReadDirectoryHandler) abort(_ *tasking.Thread, _ error) {
	h.abandoned.Store(true)
	h.report(models.ReadDirectoryError)
}

func (h *ReadDirectoryHandler) report(status models.ReadDirectoryStatus) {
	if !h.complete() || h.call == nil {
		return
	}

	h.call.Status = status
	if status == models.ReadDirectorySuccessful {
		it := h.call.Iterator
		it.Entry = models.DirectoryEntry{
			Name:   h.Child.Name(),
			NodeID: h.Child.ID(),
			Type:   h.Child.Type(),
		}
		it.Position++
	}
}
