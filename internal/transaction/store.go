// Package transaction tracks the status of in-flight delegate transactions.
package transaction

import (
	"fmt"
	"sync"

	"github.com/S1riyS/ghost-vfs/internal/models"
	"github.com/S1riyS/ghost-vfs/internal/pkg/kerrors"
)

// Store is the process-wide transaction table. Ids are issued strictly
// increasing and are never reused.
type Store struct {
	mu       sync.Mutex
	next     models.TransactionID
	statuses map[models.TransactionID]models.TransactionStatus

	watchMu  sync.RWMutex
	watchers []func(models.TransactionID, models.TransactionStatus)
}

func NewStore() *Store {
	return &Store{
		next:     1,
		statuses: make(map[models.TransactionID]models.TransactionStatus),
	}
}

// Next issues a fresh transaction in the pending state.
func (s *Store) Next() models.TransactionID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next
	s.next++
	s.statuses[id] = models.TransactionPending
	return id
}

// SetStatus transitions a transaction. Finished is terminal.
func (s *Store) SetStatus(id models.TransactionID, status models.TransactionStatus) error {
	const op = "transaction.Store.SetStatus"

	s.mu.Lock()
	current, ok := s.statuses[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%s: id %d: %w", op, id, kerrors.ErrUnknownTransaction)
	}
	if current == models.TransactionFinished {
		s.mu.Unlock()
		return fmt.Errorf("%s: id %d: %w", op, id, kerrors.ErrAlreadyFinished)
	}
	s.statuses[id] = status
	s.mu.Unlock()

	s.notify(id, status)
	return nil
}

// Status returns the status of an issued transaction. An unknown id is an
// engine bug, callers log it and fail the operation.
func (s *Store) Status(id models.TransactionID) (models.TransactionStatus, error) {
	const op = "transaction.Store.Status"

	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.statuses[id]
	if !ok {
		return 0, fmt.Errorf("%s: id %d: %w", op, id, kerrors.ErrUnknownTransaction)
	}
	return status, nil
}

// Len returns the number of issued transactions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.statuses)
}

// Watch registers fn to be called after every status transition. fn runs
// on the goroutine that changed the status and must not block.
func (s *Store) Watch(fn func(models.TransactionID, models.TransactionStatus)) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	s.watchers = append(s.watchers, fn)
}

func (s *Store) notify(id models.TransactionID, status models.TransactionStatus) {
	s.watchMu.RLock()
	defer s.watchMu.RUnlock()
	for _, fn := range s.watchers {
		fn(id, status)
	}
}
