package filesystem

import (
	"log/slog"

	"github.com/S1riyS/ghost-vfs/internal/models"
	"github.com/S1riyS/ghost-vfs/internal/tasking"
	"github.com/S1riyS/ghost-vfs/pkg/logging/slogext"
)

// afterwork writes the outcome of a discovery into the originating call.
// It may start a follow-up transaction and return it.
type afterwork func(thread *tasking.Thread, h *DiscoveryHandler, status models.DiscoveryStatus) *Pending

// DiscoveryHandler resolves an absolute path segment by segment. Delegates
// fill Status and Entry for the segment they were asked about.
type DiscoveryHandler struct {
	handlerBase

	Status models.DiscoveryStatus
	Entry  *DiscoveredEntry

	// Node is the resolved node once Status is successful.
	Node *Node

	fs             *Filesystem
	path           string
	followSymlinks bool

	// outstanding segment request
	parent   *Node
	segment  string
	delegate Delegate

	afterwork afterwork
}

func (fs *Filesystem) newDiscoveryHandler(path string, followSymlinks bool, aw afterwork) *DiscoveryHandler {
	return &DiscoveryHandler{
		Status:         models.DiscoveryError,
		fs:             fs,
		path:           path,
		followSymlinks: followSymlinks,
		afterwork:      aw,
	}
}

// NewDiscoveryHandler resolves path without producing a call result. The
// outcome is read from Status and Node.
func (fs *Filesystem) NewDiscoveryHandler(path string) *DiscoveryHandler {
	return fs.newDiscoveryHandler(path, true, nil)
}

// NewOpenHandler opens the node at path for the thread's process.
func (fs *Filesystem) NewOpenHandler(path string, call *models.OpenCall) *DiscoveryHandler {
	return fs.newDiscoveryHandler(path, true, func(thread *tasking.Thread, h *DiscoveryHandler, status models.DiscoveryStatus) *Pending {
		switch status {
		case models.DiscoverySuccessful:
			call.FD = fs.Open(thread.Process.ID, h.Node, call.Flags, -1)
			call.Status = models.OpenSuccessful
		case models.DiscoveryNotFound:
			call.FD = -1
			call.Status = models.OpenNotFound
		default:
			call.FD = -1
			call.Status = models.OpenError
		}
		return nil
	})
}

// NewOpenDirectoryHandler prepares a directory iterator for path.
func (fs *Filesystem) NewOpenDirectoryHandler(path string, call *models.OpenDirectoryCall) *DiscoveryHandler {
	return fs.newDiscoveryHandler(path, true, func(_ *tasking.Thread, h *DiscoveryHandler, status models.DiscoveryStatus) *Pending {
		switch {
		case status == models.DiscoverySuccessful && h.Node.IsDirectory():
			call.Iterator = &models.DirectoryIterator{NodeID: h.Node.ID()}
			call.Status = models.OpenDirectorySuccessful
		case status == models.DiscoveryNotFound:
			call.Status = models.OpenDirectoryNotFound
		default:
			call.Status = models.OpenDirectoryError
		}
		return nil
	})
}

// NewStatHandler resolves path and then queries the node's length.
func (fs *Filesystem) NewStatHandler(path string, call *models.StatCall) *DiscoveryHandler {
	return fs.newDiscoveryHandler(path, call.FollowSymlinks, func(thread *tasking.Thread, h *DiscoveryHandler, status models.DiscoveryStatus) *Pending {
		switch status {
		case models.DiscoverySuccessful:
			call.Attributes = models.StatAttributes{NodeID: h.Node.ID(), Type: h.Node.Type()}
			return fs.GetLength(thread, h.Node, fs.newStatLengthHandler(&call.Attributes, &call.Status))
		case models.DiscoveryNotFound:
			call.Status = models.StatNotFound
		default:
			call.Status = models.StatError
		}
		return nil
	})
}

// NewLengthByPathHandler resolves path and then queries the node's length.
func (fs *Filesystem) NewLengthByPathHandler(path string, call *models.LengthCall) *DiscoveryHandler {
	return fs.newDiscoveryHandler(path, call.FollowSymlinks, func(thread *tasking.Thread, h *DiscoveryHandler, status models.DiscoveryStatus) *Pending {
		switch status {
		case models.DiscoverySuccessful:
			return fs.GetLength(thread, h.Node, NewLengthHandler(call))
		case models.DiscoveryNotFound:
			call.Length = 0
			call.Status = models.LengthNotFound
		default:
			call.Length = 0
			call.Status = models.LengthError
		}
		return nil
	})
}

func (h *DiscoveryHandler) Path() string {
	return h.path
}

// performAfterwork runs the variant's completion step exactly once.
func (h *DiscoveryHandler) performAfterwork(thread *tasking.Thread, status models.DiscoveryStatus) *Pending {
	if !h.complete() {
		h.fs.logger.Warn("Discovery afterwork requested twice", slog.String("path", h.path))
		return nil
	}
	if h.afterwork == nil {
		return nil
	}
	return h.afterwork(thread, h, status)
}

func (h *DiscoveryHandler) repeat(thread *tasking.Thread) models.TransactionID {
	return h.delegate.RequestDiscovery(thread, h.parent, h.segment, h)
}

func (h *DiscoveryHandler) finish(thread *tasking.Thread) *Pending {
	if h.fs.completeDiscoveryStep(thread, h) {
		if !h.fs.DiscoverAbsolutePath(thread, h.path, h, h.followSymlinks) {
			return &Pending{op: h, id: h.pending}
		}
	}
	return h.performAfterwork(thread, h.Status)
}

func (h *DiscoveryHandler) abort(thread *tasking.Thread, err error) {
	h.abandoned.Store(true)
	h.fs.logger.Warn("Discovery aborted", slog.String("path", h.path), slogext.Err(err))
	h.performAfterwork(thread, models.DiscoveryError)
}
