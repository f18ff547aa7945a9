// Package pgdelegate serves a postgres volume through the delegate
// protocol. It behaves like a user-space driver: requests are queued for
// worker goroutines and their completion is only visible through the
// transaction store.
package pgdelegate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/S1riyS/ghost-vfs/internal/filesystem"
	"github.com/S1riyS/ghost-vfs/internal/models"
	"github.com/S1riyS/ghost-vfs/internal/pkg/kerrors"
	"github.com/S1riyS/ghost-vfs/internal/repository"
	"github.com/S1riyS/ghost-vfs/internal/tasking"
	"github.com/S1riyS/ghost-vfs/internal/transaction"
	"github.com/S1riyS/ghost-vfs/pkg/database/postgresql"
	"github.com/S1riyS/ghost-vfs/pkg/logging"
	"github.com/S1riyS/ghost-vfs/pkg/logging/slogext"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultWorkers   = 4
	DefaultQueueSize = 64
	DefaultChunkSize = 4096
	DefaultCacheTTL  = 30 * time.Second

	// outcomes of abandoned transactions are dropped after this long
	pendingTTL = time.Minute
)

type Repositories struct {
	Volumes     repository.VolumeRepository
	Directories repository.DirectoryRepository
	Inodes      repository.InodeRepository
	Contents    repository.ContentRepository
	Tx          postgresql.Transactor
}

type Config struct {
	Volume    string
	Workers   int
	QueueSize int
	ChunkSize int64
	CacheTTL  time.Duration
}

type job func(ctx context.Context)

// pending is the delegate side of one transaction. Workers fill it; apply
// runs in the matching Finish call and is the only code that writes to
// the handler.
type pending struct {
	// read destination, set on the engine side
	buffer []byte
	length int64
	offset int64
	fd     *filesystem.Descriptor

	// bytes gathered so far by a chunked read
	data []byte

	apply func()
}

type Delegate struct {
	logger *slog.Logger
	store  *transaction.Store
	repos  Repositories
	cfg    Config

	volume  string
	rootIno int64

	jobs    chan job
	content *ttlcache.Cache[int64, []byte]
	pending *ttlcache.Cache[models.TransactionID, *pending]
}

var _ filesystem.Delegate = (*Delegate)(nil)

// New opens (or creates) the configured volume. Requests are only served
// once Run is started.
func New(ctx context.Context, store *transaction.Store, repos Repositories, cfg Config) (*Delegate, error) {
	const op = "pgdelegate.New"

	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}

	v, err := repos.Volumes.GetOrCreate(ctx, cfg.Volume)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	d := &Delegate{
		logger:  logging.GetComponentLogger(ctx, "pgdelegate").With(slog.String("volume", v.Name)),
		store:   store,
		repos:   repos,
		cfg:     cfg,
		volume:  v.Name,
		rootIno: v.RootIno,
		jobs:    make(chan job, cfg.QueueSize),
		content: ttlcache.New[int64, []byte](
			ttlcache.WithTTL[int64, []byte](cfg.CacheTTL),
			ttlcache.WithDisableTouchOnHit[int64, []byte](),
		),
		pending: ttlcache.New[models.TransactionID, *pending](
			ttlcache.WithTTL[models.TransactionID, *pending](pendingTTL),
		),
	}
	return d, nil
}

// RootPhysID is the physical id to mount the volume with.
func (d *Delegate) RootPhysID() models.PhysID {
	return models.PhysID(d.rootIno)
}

// Run executes queued requests until ctx is done.
func (d *Delegate) Run(ctx context.Context) error {
	go d.content.Start()
	go d.pending.Start()
	defer d.content.Stop()
	defer d.pending.Stop()

	d.logger.Info("Delegate workers started", slog.Int("workers", d.cfg.Workers))

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < d.cfg.Workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case j := <-d.jobs:
					j(ctx)
				}
			}
		})
	}
	return g.Wait()
}

type repeatable interface {
	WantsRepeatTransaction() bool
	RepeatedTransaction() models.TransactionID
	Abandoned() bool
}

func (d *Delegate) begin(h repeatable) models.TransactionID {
	if h.WantsRepeatTransaction() {
		return h.RepeatedTransaction()
	}
	return d.store.Next()
}

func (d *Delegate) setStatus(id models.TransactionID, status models.TransactionStatus) {
	if err := d.store.SetStatus(id, status); err != nil {
		d.logger.Error("Failed to update transaction", slog.Any("transaction", id), slogext.Err(err))
	}
}

// submit queues fn for the workers. When the queue is full, busy is
// applied at once and the transaction finishes.
func (d *Delegate) submit(id models.TransactionID, p *pending, h repeatable, fn func(ctx context.Context, p *pending) models.TransactionStatus, busy func()) {
	d.pending.Set(id, p, ttlcache.DefaultTTL)

	j := func(ctx context.Context) {
		if h.Abandoned() {
			d.pending.Delete(id)
			d.setStatus(id, models.TransactionFinished)
			return
		}
		d.setStatus(id, fn(ctx, p))
	}

	select {
	case d.jobs <- j:
	default:
		d.logger.Warn("Request queue is full", slog.Any("transaction", id))
		p.apply = busy
		d.setStatus(id, models.TransactionFinished)
	}
}

// complete runs and forgets the outcome of a transaction.
func (d *Delegate) complete(id models.TransactionID) bool {
	item := d.pending.Get(id)
	if item == nil {
		return false
	}
	d.pending.Delete(id)

	p := item.Value()
	if p.apply == nil {
		return false
	}
	p.apply()
	return true
}

// data returns the content of an inode, cached until written.
func (d *Delegate) data(ctx context.Context, ino int64) ([]byte, error) {
	if item := d.content.Get(ino); item != nil {
		return item.Value(), nil
	}

	data, err := d.repos.Contents.Get(ctx, d.volume, ino)
	if err != nil {
		return nil, err
	}
	d.content.Set(ino, data, ttlcache.DefaultTTL)
	return data, nil
}

func (d *Delegate) ino(node *filesystem.Node) int64 {
	return int64(node.PhysID())
}

func direntEntry(e *models.Dirent) *filesystem.DiscoveredEntry {
	return &filesystem.DiscoveredEntry{Name: e.Name, PhysID: models.PhysID(e.Ino), Type: e.Type.NodeType()}
}

func (d *Delegate) RequestDiscovery(_ *tasking.Thread, parent *filesystem.Node, child string, h *filesystem.DiscoveryHandler) models.TransactionID {
	id := d.store.Next()
	parentIno := d.ino(parent)

	d.submit(id, &pending{}, h, func(ctx context.Context, p *pending) models.TransactionStatus {
		dirent, err := d.repos.Directories.Lookup(ctx, d.volume, parentIno, child)
		switch {
		case err != nil:
			d.logger.Error("Lookup failed", slog.String("name", child), slogext.Err(err))
			p.apply = func() { h.Status = models.DiscoveryError }
		case dirent == nil:
			p.apply = func() { h.Status = models.DiscoveryNotFound }
		default:
			entry := direntEntry(dirent)
			p.apply = func() {
				h.Entry = entry
				h.Status = models.DiscoverySuccessful
			}
		}
		return models.TransactionFinished
	}, func() { h.Status = models.DiscoveryBusy })

	return id
}

func (d *Delegate) FinishDiscovery(_ *tasking.Thread, h *filesystem.DiscoveryHandler) {
	if !d.complete(h.PendingTransaction()) {
		h.Status = models.DiscoveryError
	}
}

// RequestRead gathers the requested range in chunks. Every chunk but the
// last ends the step with a repeat; the bytes reach the caller's buffer
// in FinishRead.
func (d *Delegate) RequestRead(_ *tasking.Thread, node *filesystem.Node, length int64, buffer []byte, fd *filesystem.Descriptor, h *filesystem.ReadHandler) models.TransactionID {
	id := d.begin(h)
	ino := d.ino(node)

	var p *pending
	if item := d.pending.Get(id); h.WantsRepeatTransaction() && item != nil {
		p = item.Value()
	} else {
		p = &pending{buffer: buffer, length: length, offset: fd.Offset(), fd: fd}
	}

	d.submit(id, p, h, func(ctx context.Context, p *pending) models.TransactionStatus {
		content, err := d.data(ctx, ino)
		if err != nil {
			d.logger.Error("Read failed", slog.Int64("ino", ino), slogext.Err(err))
			p.apply = func() { h.Status = models.ReadError }
			return models.TransactionFinished
		}

		start := p.offset + int64(len(p.data))
		n := min(d.cfg.ChunkSize, p.length-int64(len(p.data)), int64(len(content))-start)
		if n > 0 {
			p.data = append(p.data, content[start:start+n]...)
		}
		if n > 0 && int64(len(p.data)) < p.length {
			return models.TransactionRepeat
		}

		p.apply = func() {
			copied := copy(p.buffer, p.data)
			p.fd.Advance(int64(copied))
			h.Result = int64(copied)
			h.Status = models.ReadSuccessful
		}
		return models.TransactionFinished
	}, func() { h.Status = models.ReadBusy })

	return id
}

func (d *Delegate) FinishRead(_ *tasking.Thread, h *filesystem.ReadHandler) {
	if !d.complete(h.PendingTransaction()) {
		h.Status = models.ReadError
	}
}

// RequestWrite splices the buffer into the stored content at the
// descriptor offset and updates the inode size.
func (d *Delegate) RequestWrite(_ *tasking.Thread, node *filesystem.Node, length int64, buffer []byte, fd *filesystem.Descriptor, h *filesystem.WriteHandler) models.TransactionID {
	id := d.begin(h)
	ino := d.ino(node)
	offset := fd.Offset()
	data := append([]byte(nil), buffer[:length]...)

	d.submit(id, &pending{fd: fd}, h, func(ctx context.Context, p *pending) models.TransactionStatus {
		err := d.repos.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
			inode, err := d.repos.Inodes.Get(ctx, d.volume, ino)
			if err != nil {
				return err
			}
			if inode == nil {
				return kerrors.ErrNotFound
			}
			if inode.Type == models.StoredTypeDir {
				return kerrors.ErrNotSupported
			}

			content, err := d.repos.Contents.Get(ctx, d.volume, ino)
			if err != nil {
				return err
			}
			content = splice(content, offset, data)

			if err := d.repos.Contents.Set(ctx, d.volume, ino, content); err != nil {
				return err
			}
			return d.repos.Inodes.UpdateSize(ctx, d.volume, ino, int64(len(content)))
		})
		d.content.Delete(ino)

		switch {
		case errors.Is(err, kerrors.ErrNotSupported):
			p.apply = func() { h.Status = models.WriteNotSupported }
		case err != nil:
			d.logger.Error("Write failed", slog.Int64("ino", ino), slogext.Err(err))
			p.apply = func() { h.Status = models.WriteError }
		default:
			n := int64(len(data))
			p.apply = func() {
				p.fd.Advance(n)
				h.Result = n
				h.Status = models.WriteSuccessful
			}
		}
		return models.TransactionFinished
	}, func() { h.Status = models.WriteBusy })

	return id
}

func (d *Delegate) FinishWrite(_ *tasking.Thread, h *filesystem.WriteHandler) {
	if !d.complete(h.PendingTransaction()) {
		h.Status = models.WriteError
	}
}

func (d *Delegate) RequestGetLength(_ *tasking.Thread, node *filesystem.Node, h *filesystem.GetLengthHandler) models.TransactionID {
	id := d.store.Next()
	ino := d.ino(node)

	d.submit(id, &pending{}, h, func(ctx context.Context, p *pending) models.TransactionStatus {
		inode, err := d.repos.Inodes.Get(ctx, d.volume, ino)
		switch {
		case err != nil:
			d.logger.Error("Inode lookup failed", slog.Int64("ino", ino), slogext.Err(err))
			p.apply = func() { h.Status = models.LengthError }
		case inode == nil:
			p.apply = func() {
				h.Length = 0
				h.Status = models.LengthNotFound
			}
		default:
			size := inode.Size
			p.apply = func() {
				h.Length = size
				h.Status = models.LengthSuccessful
			}
		}
		return models.TransactionFinished
	}, func() { h.Status = models.LengthError })

	return id
}

func (d *Delegate) FinishGetLength(_ *tasking.Thread, h *filesystem.GetLengthHandler) {
	if !d.complete(h.PendingTransaction()) {
		h.Status = models.LengthError
	}
}

func (d *Delegate) RequestReadDirectory(_ *tasking.Thread, node *filesystem.Node, position int, h *filesystem.ReadDirectoryHandler) models.TransactionID {
	id := d.store.Next()
	ino := d.ino(node)

	d.submit(id, &pending{}, h, func(ctx context.Context, p *pending) models.TransactionStatus {
		if position < 0 {
			p.apply = func() { h.Status = models.ReadDirectoryError }
			return models.TransactionFinished
		}

		dirent, err := d.repos.Directories.GetEntryByOffset(ctx, d.volume, ino, uint64(position))
		switch {
		case err != nil:
			d.logger.Error("Directory read failed", slog.Int64("ino", ino), slogext.Err(err))
			p.apply = func() { h.Status = models.ReadDirectoryError }
		case dirent == nil:
			p.apply = func() { h.Status = models.ReadDirectoryEndOfData }
		default:
			entry := direntEntry(dirent)
			p.apply = func() {
				h.Entry = entry
				h.Status = models.ReadDirectorySuccessful
			}
		}
		return models.TransactionFinished
	}, func() { h.Status = models.ReadDirectoryError })

	return id
}

func (d *Delegate) FinishReadDirectory(_ *tasking.Thread, h *filesystem.ReadDirectoryHandler) {
	if !d.complete(h.PendingTransaction()) {
		h.Status = models.ReadDirectoryError
	}
}

// splice writes data into content at offset, zero filling any gap.
func splice(content []byte, offset int64, data []byte) []byte {
	end := offset + int64(len(data))
	if end > int64(len(content)) {
		grown := make([]byte, end)
		copy(grown, content)
		content = grown
	}
	copy(content[offset:end], data)
	return content
}
