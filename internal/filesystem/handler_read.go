package filesystem

import (
	"github.com/S1riyS/ghost-vfs/internal/models"
	"github.com/S1riyS/ghost-vfs/internal/tasking"
)

// ReadHandler tracks one logical read. Result is the number of bytes
// copied into the buffer so far; multi-step delegates accumulate it.
type ReadHandler struct {
	handlerBase

	Status models.ReadStatus
	Result int64

	call *models.ReadCall

	node     *Node
	delegate Delegate
	fd       *Descriptor
	length   int64
	buffer   []byte
}

func NewReadHandler(call *models.ReadCall) *ReadHandler {
	return &ReadHandler{Status: models.ReadError, call: call}
}

func (h *ReadHandler) Descriptor() *Descriptor {
	return h.fd
}

func (h *ReadHandler) repeat(thread *tasking.Thread) models.TransactionID {
	return h.delegate.RequestRead(thread, h.node, h.length, h.buffer, h.fd, h)
}

func (h *ReadHandler) finish(thread *tasking.Thread) *Pending {
	if h.delegate != nil {
		h.delegate.FinishRead(thread, h)
	}
	h.report(h.Status, h.Result)
	return nil
}

func (h *ReadHandler) abort(_ *tasking.Thread, _ error) {
	h.abandoned.Store(true)
	h.report(models.ReadError, -1)
}

func (h *ReadHandler) report(status models.ReadStatus, result int64) {
	if !h.complete() || h.call == nil {
		return
	}
	if status != models.ReadSuccessful {
		result = -1
	}
	h.call.Status = status
	h.call.Result = result
}
