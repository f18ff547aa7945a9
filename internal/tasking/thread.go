package tasking

import (
	"context"
	"errors"
	"sync"

	"github.com/S1riyS/ghost-vfs/internal/models"
)

var (
	ErrAlreadyWaiting = errors.New("tasking: thread already has a waiter")
	ErrNoSuchProcess  = errors.New("tasking: no such process")
)

// Waiter decides when a suspended thread may run again.
type Waiter interface {
	// CheckWaiting is called by the scheduler on every pass while the thread
	// is suspended. Returning false resumes the thread.
	CheckWaiting(thread *Thread) bool
	Name() string
}

type Process struct {
	ID            models.PID
	SecurityLevel models.SecurityLevel

	mu         sync.RWMutex
	workingDir string
	main       *Thread
}

func (p *Process) WorkingDirectory() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.workingDir
}

func (p *Process) SetWorkingDirectory(dir string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.workingDir = dir
}

func (p *Process) Main() *Thread {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.main
}

type Thread struct {
	ID      models.TID
	Process *Process

	core *Scheduler

	mu      sync.Mutex
	waiter  Waiter
	resumed chan struct{}
}

func (t *Thread) IsWaiting() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.waiter != nil
}

// Suspend parks the calling goroutine until w reports that the thread can
// continue. A thread has at most one waiter. When ctx ends first the
// waiter is detached and ctx.Err() is returned; a waiter that completed
// concurrently wins and Suspend returns nil.
func (t *Thread) Suspend(ctx context.Context, w Waiter) error {
	t.mu.Lock()
	if t.waiter != nil {
		t.mu.Unlock()
		return ErrAlreadyWaiting
	}
	resumed := make(chan struct{})
	t.waiter = w
	t.resumed = resumed
	t.mu.Unlock()

	t.core.add(t)

	select {
	case <-resumed:
		return nil
	case <-ctx.Done():
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.waiter != w {
		return nil
	}
	t.waiter = nil
	t.resumed = nil
	return ctx.Err()
}

// check runs one scheduling opportunity and reports whether the thread is
// still waiting. The waiter runs with the thread lock held, so it must not
// call back into Suspend or IsWaiting.
func (t *Thread) check() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.waiter == nil {
		return false
	}
	if t.waiter.CheckWaiting(t) {
		return true
	}

	t.waiter = nil
	close(t.resumed)
	t.resumed = nil
	return false
}

func (t *Thread) waiterName() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.waiter == nil {
		return ""
	}
	return t.waiter.Name()
}
