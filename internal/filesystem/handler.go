package filesystem

import (
	"sync/atomic"

	"github.com/S1riyS/ghost-vfs/internal/models"
	"github.com/S1riyS/ghost-vfs/internal/tasking"
)

type handlerPhase uint8

const (
	phaseCreated handlerPhase = iota
	phasePending
	phaseFinished
)

// handlerBase is the resumable state shared by all transaction handlers.
// A handler may pass through several pending phases but finishes once.
type handlerBase struct {
	phase   handlerPhase
	pending models.TransactionID

	wantsRepeat bool
	repeated    models.TransactionID

	abandoned atomic.Bool
}

func (b *handlerBase) base() *handlerBase {
	return b
}

// WantsRepeatTransaction reports whether the next request continues the
// transaction returned by RepeatedTransaction.
func (b *handlerBase) WantsRepeatTransaction() bool {
	return b.wantsRepeat
}

func (b *handlerBase) RepeatedTransaction() models.TransactionID {
	return b.repeated
}

// PendingTransaction is the transaction the handler currently waits for.
func (b *handlerBase) PendingTransaction() models.TransactionID {
	return b.pending
}

// Abandoned reports that the requester stopped waiting. Asynchronous
// delegates should not touch the requester's buffers any more.
func (b *handlerBase) Abandoned() bool {
	return b.abandoned.Load()
}

func (b *handlerBase) Finished() bool {
	return b.phase == phaseFinished
}

func (b *handlerBase) arm(id models.TransactionID) {
	if b.phase == phaseFinished {
		return
	}
	b.phase = phasePending
	b.pending = id
}

func (b *handlerBase) requestRepeat(id models.TransactionID) {
	b.wantsRepeat = true
	b.repeated = id
}

// complete moves the handler to its terminal phase. It returns false when
// the handler already finished.
func (b *handlerBase) complete() bool {
	if b.phase == phaseFinished {
		return false
	}
	b.phase = phaseFinished
	b.wantsRepeat = false
	return true
}

// Operation is a logical filesystem operation that can be resumed when the
// transaction it waits for leaves the pending state.
type Operation interface {
	base() *handlerBase
	// repeat re-issues the current step under the same transaction id.
	repeat(thread *tasking.Thread) models.TransactionID
	// finish runs once the transaction is finished. It returns the next
	// pending step of a chained operation, or nil when the operation is done.
	finish(thread *tasking.Thread) *Pending
	// abort writes a failure result when the operation cannot continue.
	abort(thread *tasking.Thread, err error)
}

// Pending is an operation waiting for a transaction. A nil *Pending means
// the operation completed and its result has been written.
type Pending struct {
	op Operation
	id models.TransactionID
}

func (p *Pending) Transaction() models.TransactionID {
	return p.id
}
