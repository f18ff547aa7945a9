// Package tasking is the minimal process and thread model the VFS engine
// needs: threads that can be suspended on a waiter and per-core schedulers
// that poll those waiters.
package tasking

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/S1riyS/ghost-vfs/internal/models"
	"github.com/S1riyS/ghost-vfs/pkg/logging"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultCores        = 2
	DefaultPollInterval = 10 * time.Millisecond
)

type Tasking struct {
	logger *slog.Logger
	cores  []*Scheduler

	mu        sync.RWMutex
	nextPID   models.PID
	nextTID   models.TID
	nextCore  int
	processes map[models.PID]*Process
	threads   map[models.TID]*Thread

	closedHooks []func(models.PID)
}

func New(ctx context.Context, cores int, poll time.Duration) *Tasking {
	if cores <= 0 {
		cores = DefaultCores
	}
	if poll <= 0 {
		poll = DefaultPollInterval
	}

	logger := logging.GetComponentLogger(ctx, "tasking")

	t := &Tasking{
		logger:    logger,
		nextPID:   1,
		nextTID:   1,
		processes: make(map[models.PID]*Process),
		threads:   make(map[models.TID]*Thread),
	}
	for i := 0; i < cores; i++ {
		t.cores = append(t.cores, newScheduler(i, poll, logger))
	}
	return t
}

// Run drives every core until ctx is done.
func (t *Tasking) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, core := range t.cores {
		core := core
		g.Go(func() error {
			return core.Run(ctx)
		})
	}
	return g.Wait()
}

// Wake nudges every core to re-check its waiters.
func (t *Tasking) Wake() {
	for _, core := range t.cores {
		core.Wake()
	}
}

func (t *Tasking) Cores() []*Scheduler {
	return t.cores
}

// CreateProcess creates a process together with its main thread.
func (t *Tasking) CreateProcess(level models.SecurityLevel, workingDir string) *Process {
	t.mu.Lock()
	p := &Process{
		ID:            t.nextPID,
		SecurityLevel: level,
		workingDir:    workingDir,
	}
	t.nextPID++
	t.processes[p.ID] = p
	t.mu.Unlock()

	main := t.CreateThread(p)
	p.mu.Lock()
	p.main = main
	p.mu.Unlock()

	t.logger.Debug("Process created", slog.Any("pid", p.ID), slog.Any("level", level))
	return p
}

// CreateThread adds a thread to p, assigning cores round robin.
func (t *Tasking) CreateThread(p *Process) *Thread {
	t.mu.Lock()
	defer t.mu.Unlock()

	th := &Thread{
		ID:      t.nextTID,
		Process: p,
		core:    t.cores[t.nextCore%len(t.cores)],
	}
	t.nextTID++
	t.nextCore++
	t.threads[th.ID] = th
	return th
}

// ExitThread forgets a thread that is not waiting.
func (t *Tasking) ExitThread(th *Thread) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.threads, th.ID)
}

func (t *Tasking) Thread(id models.TID) (*Thread, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	th, ok := t.threads[id]
	return th, ok
}

func (t *Tasking) Process(pid models.PID) (*Process, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.processes[pid]
	return p, ok
}

// OnProcessClosed registers fn to run after a process is killed.
func (t *Tasking) OnProcessClosed(fn func(models.PID)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closedHooks = append(t.closedHooks, fn)
}

func (t *Tasking) KillProcess(pid models.PID) error {
	const op = "tasking.Tasking.KillProcess"

	t.mu.Lock()
	if _, ok := t.processes[pid]; !ok {
		t.mu.Unlock()
		return fmt.Errorf("%s: pid %d: %w", op, pid, ErrNoSuchProcess)
	}
	delete(t.processes, pid)
	for id, th := range t.threads {
		if th.Process.ID == pid {
			delete(t.threads, id)
		}
	}
	hooks := append([]func(models.PID){}, t.closedHooks...)
	t.mu.Unlock()

	for _, fn := range hooks {
		fn(pid)
	}

	t.logger.Debug("Process killed", slog.Any("pid", pid))
	return nil
}
