package transaction

import (
	"sync"
	"testing"

	"github.com/S1riyS/ghost-vfs/internal/models"
	"github.com/S1riyS/ghost-vfs/internal/pkg/kerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextIsStrictlyIncreasing(t *testing.T) {
	s := NewStore()

	prev := s.Next()
	for i := 0; i < 100; i++ {
		id := s.Next()
		assert.Greater(t, id, prev)
		prev = id
	}
	assert.Equal(t, 101, s.Len())
}

func TestNextConcurrentUnique(t *testing.T) {
	s := NewStore()

	const workers, perWorker = 8, 200
	ids := make(chan models.TransactionID, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				ids <- s.Next()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[models.TransactionID]bool)
	for id := range ids {
		require.False(t, seen[id], "id %d issued twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, workers*perWorker)
}

func TestStatusTransitions(t *testing.T) {
	s := NewStore()
	id := s.Next()

	status, err := s.Status(id)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionPending, status)

	require.NoError(t, s.SetStatus(id, models.TransactionRepeat))
	require.NoError(t, s.SetStatus(id, models.TransactionPending))
	require.NoError(t, s.SetStatus(id, models.TransactionFinished))

	err = s.SetStatus(id, models.TransactionPending)
	assert.ErrorIs(t, err, kerrors.ErrAlreadyFinished)

	status, err = s.Status(id)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionFinished, status)
}

func TestUnknownTransaction(t *testing.T) {
	s := NewStore()

	_, err := s.Status(42)
	assert.ErrorIs(t, err, kerrors.ErrUnknownTransaction)

	err = s.SetStatus(42, models.TransactionFinished)
	assert.ErrorIs(t, err, kerrors.ErrUnknownTransaction)
}

func TestWatch(t *testing.T) {
	s := NewStore()

	var got []models.TransactionStatus
	s.Watch(func(_ models.TransactionID, status models.TransactionStatus) {
		got = append(got, status)
	})

	id := s.Next()
	require.NoError(t, s.SetStatus(id, models.TransactionRepeat))
	require.NoError(t, s.SetStatus(id, models.TransactionFinished))
	_ = s.SetStatus(id, models.TransactionPending)

	assert.Equal(t, []models.TransactionStatus{models.TransactionRepeat, models.TransactionFinished}, got)
}
