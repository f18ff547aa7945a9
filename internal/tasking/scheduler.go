package tasking

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/S1riyS/ghost-vfs/internal/models"
)

// Scheduler is one core's view of the suspended threads assigned to it.
// Waiters are polled on every tick and whenever Wake is called.
type Scheduler struct {
	core   int
	poll   time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	waiting map[models.TID]*Thread

	wake chan struct{}
}

func newScheduler(core int, poll time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		core:    core,
		poll:    poll,
		logger:  logger.With(slog.Int("core", core)),
		waiting: make(map[models.TID]*Thread),
		wake:    make(chan struct{}, 1),
	}
}

func (s *Scheduler) Core() int {
	return s.core
}

// Wake requests a pass without waiting for the next tick.
func (s *Scheduler) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Waiting returns the number of suspended threads on this core.
func (s *Scheduler) Waiting() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.waiting)
}

func (s *Scheduler) add(t *Thread) {
	s.mu.Lock()
	s.waiting[t.ID] = t
	s.mu.Unlock()

	s.logger.Debug("Thread suspended", slog.Any("tid", t.ID), slog.String("waiter", t.waiterName()))
	s.Wake()
}

func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-s.wake:
		}
		s.pass()
	}
}

func (s *Scheduler) pass() {
	s.mu.Lock()
	threads := make([]*Thread, 0, len(s.waiting))
	for _, t := range s.waiting {
		threads = append(threads, t)
	}
	s.mu.Unlock()

	for _, t := range threads {
		if t.check() {
			continue
		}

		s.mu.Lock()
		// the thread may already be suspended on a new waiter
		if !t.IsWaiting() {
			delete(s.waiting, t.ID)
		}
		s.mu.Unlock()

		s.logger.Debug("Thread resumed", slog.Any("tid", t.ID))
	}
}
