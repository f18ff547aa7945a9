package filesystem

import (
	"github.com/S1riyS/ghost-vfs/internal/models"
	"github.com/S1riyS/ghost-vfs/internal/tasking"
)

type GetLengthHandler struct {
	handlerBase

	Status models.LengthStatus
	Length int64

	node     *Node
	delegate Delegate
	done     func(status models.LengthStatus, length int64)
}

// NewLengthHandler reports into a length call. A nil call leaves the result
// on the handler only.
func NewLengthHandler(call *models.LengthCall) *GetLengthHandler {
	h := &GetLengthHandler{Status: models.LengthError}
	if call != nil {
		h.done = func(status models.LengthStatus, length int64) {
			call.Status = status
			call.Length = length
		}
	}
	return h
}

// NewFstatHandler fills stat attributes for an open descriptor.
func NewFstatHandler(call *models.FstatCall) *GetLengthHandler {
	return &GetLengthHandler{
		Status: models.LengthError,
		done: func(status models.LengthStatus, length int64) {
			call.Attributes.Length = length
			if status == models.LengthSuccessful {
				call.Status = models.StatSuccessful
			} else {
				call.Status = models.StatError
			}
		},
	}
}

func (fs *Filesystem) newStatLengthHandler(attrs *models.StatAttributes, out *models.StatStatus) *GetLengthHandler {
	return &GetLengthHandler{
		Status: models.LengthError,
		done: func(status models.LengthStatus, length int64) {
			attrs.Length = length
			if status == models.LengthSuccessful {
				*out = models.StatSuccessful
			} else {
				*out = models.StatError
			}
		},
	}
}

func (h *GetLengthHandler) repeat(thread *tasking.Thread) models.TransactionID {
	return h.delegate.RequestGetLength(thread, h.node, h)
}

func (h *GetLengthHandler) finish(thread *tasking.Thread) *Pending {
	if h.delegate != nil {
		h.delegate.FinishGetLength(thread, h)
	}
	h.report(h.Status, h.Length)
	return nil
}

func (h *GetLengthHandler) abort(_ *tasking.Thread, _ error) {
	h.abandoned.Store(true)
	h.report(models.LengthError, 0)
}

func (h *GetLengthHandler) report(status models.LengthStatus, length int64) {
	if !h.complete() {
		return
	}
	if status != models.LengthSuccessful {
		length = 0
	}
	if h.done != nil {
		h.done(status, length)
	}
}
