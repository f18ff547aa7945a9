package filesystem

import (
	"github.com/S1riyS/ghost-vfs/internal/models"
	"github.com/S1riyS/ghost-vfs/internal/tasking"
)

// WriteHandler tracks one logical write. Result is the number of bytes
// taken from the buffer so far.
type WriteHandler struct {
	handlerBase

	Status models.WriteStatus
	Result int64

	call *models.WriteCall

	node     *Node
	delegate Delegate
	fd       *Descriptor
	length   int64
	buffer   []byte
}

func NewWriteHandler(call *models.WriteCall) *WriteHandler {
	return &WriteHandler{Status: models.WriteError, call: call}
}

func (h *WriteHandler) Descriptor() *Descriptor {
	return h.fd
}

func (h *WriteHandler) repeat(thread *tasking.Thread) models.TransactionID {
	return h.delegate.RequestWrite(thread, h.node, h.length, h.buffer, h.fd, h)
}

func (h *WriteHandler) finish(thread *tasking.Thread) *Pending {
	if h.delegate != nil {
		h.delegate.FinishWrite(thread, h)
	}
	h.report(h.Status, h.Result)
	return nil
}

func (h *WriteHandler) abort(_ *tasking.Thread, _ error) {
	h.abandoned.Store(true)
	h.report(models.WriteError, -1)
}

func (h *WriteHandler) report(status models.WriteStatus, result int64) {
	if !h.complete() || h.call == nil {
		return
	}
	if status != models.WriteSuccessful {
		result = -1
	}
	h.call.Status = status
	h.call.Result = result
}
