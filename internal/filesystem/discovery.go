package filesystem

import (
	"log/slog"

	"github.com/S1riyS/ghost-vfs/internal/models"
	"github.com/S1riyS/ghost-vfs/internal/tasking"
	"github.com/S1riyS/ghost-vfs/pkg/logging/slogext"
)

// DiscoverAbsolutePath resolves path into h.Node, asking delegates for
// every segment that is not materialized yet. It returns true when
// resolution is complete, successful or not, and false when h waits for
// the transaction in h.PendingTransaction().
//
// There are no symbolic links in the tree, so followSymlinks only travels
// with the handler.
func (fs *Filesystem) DiscoverAbsolutePath(thread *tasking.Thread, path string, h *DiscoveryHandler, followSymlinks bool) bool {
	h.followSymlinks = followSymlinks

	for {
		parent, child, segment, err := fs.tree.FindExisting(path)
		if err != nil {
			fs.logger.Debug("Path rejected", slog.String("path", path), slogext.Err(err))
			h.Status = models.DiscoveryError
			return true
		}
		if child != nil {
			h.Node = child
			h.Status = models.DiscoverySuccessful
			return true
		}
		if !parent.IsDirectory() {
			h.Status = models.DiscoveryNotFound
			return true
		}

		d := fs.tree.delegateFor(parent)
		if d == nil {
			fs.logger.Error("No delegate serves node", slog.Any("node", parent.ID()), slog.String("path", path))
			h.Status = models.DiscoveryError
			return true
		}

		h.parent = parent
		h.segment = segment
		h.delegate = d
		h.Status = models.DiscoveryError
		h.Entry = nil

		id := d.RequestDiscovery(thread, parent, segment, h)
		status, err := fs.store.Status(id)
		if err != nil {
			fs.logger.Error("Delegate returned an unknown transaction",
				slog.String("path", path),
				slog.Any("transaction", id),
				slogext.Err(err),
			)
			h.Status = models.DiscoveryError
			return true
		}
		h.arm(id)
		if status != models.TransactionFinished {
			return false
		}
		if !fs.completeDiscoveryStep(thread, h) {
			return true
		}
	}
}

// completeDiscoveryStep finishes the outstanding segment request and
// materializes its entry. It reports whether the walk can go on.
func (fs *Filesystem) completeDiscoveryStep(thread *tasking.Thread, h *DiscoveryHandler) bool {
	h.delegate.FinishDiscovery(thread, h)
	if h.Status != models.DiscoverySuccessful {
		return false
	}

	if _, err := fs.tree.materialize(h.parent, h.Entry, h.segment); err != nil {
		fs.logger.Warn("Delegate reported an invalid entry",
			slog.String("path", h.path),
			slog.String("segment", h.segment),
			slogext.Err(err),
		)
		h.Status = models.DiscoveryError
		return false
	}
	return true
}

// Discover starts resolving h's path. A nil result means the afterwork
// already ran; otherwise the caller waits on the returned step.
func (fs *Filesystem) Discover(thread *tasking.Thread, h *DiscoveryHandler) *Pending {
	if fs.DiscoverAbsolutePath(thread, h.path, h, h.followSymlinks) {
		return h.performAfterwork(thread, h.Status)
	}
	return fs.advance(thread, h, h.pending)
}
