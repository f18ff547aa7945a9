package filesystem

import (
	"context"
	"log/slog"

	"github.com/S1riyS/ghost-vfs/internal/models"
	"github.com/S1riyS/ghost-vfs/internal/tasking"
	"github.com/S1riyS/ghost-vfs/pkg/logging/slogext"
)

// TransactionWaiter parks a thread until its operation completes. For
// chained operations the same waiter moves on to the next transaction.
type TransactionWaiter struct {
	fs *Filesystem
	op Operation
	id models.TransactionID
}

func (w *TransactionWaiter) Name() string {
	return "vfs-transaction"
}

func (w *TransactionWaiter) CheckWaiting(thread *tasking.Thread) bool {
	status, err := w.fs.store.Status(w.id)
	if err == nil && status == models.TransactionPending {
		return true
	}

	next := w.fs.advance(thread, w.op, w.id)
	if next == nil {
		return false
	}
	w.op = next.op
	w.id = next.id
	return true
}

// Wait suspends thread until p completes. When ctx ends first the
// operation is aborted and its call block receives a failure result.
func (fs *Filesystem) Wait(ctx context.Context, thread *tasking.Thread, p *Pending) error {
	if p == nil {
		return nil
	}

	w := &TransactionWaiter{fs: fs, op: p.op, id: p.id}
	if err := thread.Suspend(ctx, w); err != nil {
		fs.logger.Warn("Wait on transaction failed",
			slog.Any("tid", thread.ID),
			slog.Any("transaction", w.id),
			slogext.Err(err),
		)
		w.op.abort(thread, err)
		return err
	}
	return nil
}

// advance drives op from transaction id until it has to wait again. It
// returns nil once the operation has written its result.
func (fs *Filesystem) advance(thread *tasking.Thread, op Operation, id models.TransactionID) *Pending {
	for {
		status, err := fs.store.Status(id)
		if err != nil {
			fs.logger.Error("Lost track of transaction", slog.Any("transaction", id), slogext.Err(err))
			op.abort(thread, err)
			return nil
		}

		op.base().arm(id)
		switch status {
		case models.TransactionPending:
			return &Pending{op: op, id: id}

		case models.TransactionRepeat:
			if err := fs.store.SetStatus(id, models.TransactionPending); err != nil {
				fs.logger.Error("Cannot re-arm transaction", slog.Any("transaction", id), slogext.Err(err))
				op.abort(thread, err)
				return nil
			}
			b := op.base()
			b.requestRepeat(id)
			next := op.repeat(thread)
			b.wantsRepeat = false
			if next != id {
				fs.logger.Warn("Delegate did not reuse the repeated transaction",
					slog.Any("repeated", id),
					slog.Any("returned", next),
				)
			}
			id = next

		default:
			p := op.finish(thread)
			if p == nil {
				return nil
			}
			op = p.op
			id = p.id
		}
	}
}
