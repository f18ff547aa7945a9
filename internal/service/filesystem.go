package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/S1riyS/ghost-vfs/internal/filesystem"
	"github.com/S1riyS/ghost-vfs/internal/models"
	"github.com/S1riyS/ghost-vfs/internal/tasking"
	"github.com/S1riyS/ghost-vfs/pkg/logging"
	"github.com/S1riyS/ghost-vfs/pkg/logging/slogext"
)

// FileSystemService runs syscalls on behalf of a thread. Every method
// returns once the call block is populated. A non-nil error means the
// wait was cut short; the block then carries the failure result.
type FileSystemService interface {
	Open(ctx context.Context, thread *tasking.Thread, call *models.OpenCall) error
	Read(ctx context.Context, thread *tasking.Thread, call *models.ReadCall) error
	Write(ctx context.Context, thread *tasking.Thread, call *models.WriteCall) error
	Close(ctx context.Context, thread *tasking.Thread, call *models.CloseCall) error
	Length(ctx context.Context, thread *tasking.Thread, call *models.LengthCall) error
	Stat(ctx context.Context, thread *tasking.Thread, call *models.StatCall) error
	Fstat(ctx context.Context, thread *tasking.Thread, call *models.FstatCall) error
	OpenDirectory(ctx context.Context, thread *tasking.Thread, call *models.OpenDirectoryCall) error
	ReadDirectory(ctx context.Context, thread *tasking.Thread, call *models.ReadDirectoryCall) error
	CloneFD(ctx context.Context, thread *tasking.Thread, call *models.CloneFDCall) error
	Pipe(ctx context.Context, thread *tasking.Thread, call *models.PipeCall) error
	RegisterAsDelegate(ctx context.Context, thread *tasking.Thread, call *models.RegisterAsDelegateCall, d filesystem.Delegate) error
}

type fileSystemService struct {
	fs      *filesystem.Filesystem
	timeout time.Duration
}

func NewFileSystemService(fs *filesystem.Filesystem, timeout time.Duration) FileSystemService {
	return &fileSystemService{fs: fs, timeout: timeout}
}

// wait suspends thread until p completes or the wait timeout passes.
func (s *fileSystemService) wait(ctx context.Context, thread *tasking.Thread, p *filesystem.Pending) error {
	if p == nil {
		return nil
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.fs.Wait(ctx, thread, p)
}

// absolute resolves path against the working directory of thread's process.
func absolute(thread *tasking.Thread, path string) (string, error) {
	return filesystem.ConcatAsAbsolutePath(thread.Process.WorkingDirectory(), path)
}

func (s *fileSystemService) Open(ctx context.Context, thread *tasking.Thread, call *models.OpenCall) error {
	const op = "service.fileSystemService.Open"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("Open", slog.String("path", call.Path), slog.Any("pid", thread.Process.ID))

	path, err := absolute(thread, call.Path)
	if err != nil {
		logger.Debug("Invalid path", slogext.Err(err))
		call.FD = -1
		call.Status = models.OpenError
		return nil
	}

	if err := s.wait(ctx, thread, s.fs.Discover(thread, s.fs.NewOpenHandler(path, call))); err != nil {
		logger.Warn("Open did not complete", slog.String("path", path), slogext.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	logger.Debug("Open finished", slog.String("path", path), slog.Any("fd", call.FD), slog.Any("status", call.Status))
	return nil
}

func (s *fileSystemService) Read(ctx context.Context, thread *tasking.Thread, call *models.ReadCall) error {
	const op = "service.fileSystemService.Read"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("Read", slog.Any("fd", call.FD), slog.Int64("length", call.Length))

	if err := s.wait(ctx, thread, s.fs.Read(thread, filesystem.NewReadHandler(call))); err != nil {
		logger.Warn("Read did not complete", slog.Any("fd", call.FD), slogext.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *fileSystemService) Write(ctx context.Context, thread *tasking.Thread, call *models.WriteCall) error {
	const op = "service.fileSystemService.Write"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("Write", slog.Any("fd", call.FD), slog.Int64("length", call.Length))

	if err := s.wait(ctx, thread, s.fs.Write(thread, filesystem.NewWriteHandler(call))); err != nil {
		logger.Warn("Write did not complete", slog.Any("fd", call.FD), slogext.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *fileSystemService) Close(_ context.Context, thread *tasking.Thread, call *models.CloseCall) error {
	call.Status = s.fs.Close(thread.Process.ID, call.FD)
	return nil
}

// Length queries by path, or by descriptor when Path is empty.
func (s *fileSystemService) Length(ctx context.Context, thread *tasking.Thread, call *models.LengthCall) error {
	const op = "service.fileSystemService.Length"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	var p *filesystem.Pending
	if call.Path == "" {
		p = s.fs.LengthOfDescriptor(thread, call)
	} else {
		path, err := absolute(thread, call.Path)
		if err != nil {
			logger.Debug("Invalid path", slogext.Err(err))
			call.Length = 0
			call.Status = models.LengthError
			return nil
		}
		p = s.fs.Discover(thread, s.fs.NewLengthByPathHandler(path, call))
	}

	if err := s.wait(ctx, thread, p); err != nil {
		logger.Warn("Length did not complete", slogext.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *fileSystemService) Stat(ctx context.Context, thread *tasking.Thread, call *models.StatCall) error {
	const op = "service.fileSystemService.Stat"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	path, err := absolute(thread, call.Path)
	if err != nil {
		logger.Debug("Invalid path", slogext.Err(err))
		call.Status = models.StatError
		return nil
	}

	if err := s.wait(ctx, thread, s.fs.Discover(thread, s.fs.NewStatHandler(path, call))); err != nil {
		logger.Warn("Stat did not complete", slog.String("path", path), slogext.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *fileSystemService) Fstat(ctx context.Context, thread *tasking.Thread, call *models.FstatCall) error {
	const op = "service.fileSystemService.Fstat"

	if err := s.wait(ctx, thread, s.fs.Fstat(thread, call)); err != nil {
		logging.GetLoggerFromContextWithOp(ctx, op).Warn("Fstat did not complete", slogext.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *fileSystemService) OpenDirectory(ctx context.Context, thread *tasking.Thread, call *models.OpenDirectoryCall) error {
	const op = "service.fileSystemService.OpenDirectory"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	path, err := absolute(thread, call.Path)
	if err != nil {
		logger.Debug("Invalid path", slogext.Err(err))
		call.Status = models.OpenDirectoryError
		return nil
	}

	if err := s.wait(ctx, thread, s.fs.Discover(thread, s.fs.NewOpenDirectoryHandler(path, call))); err != nil {
		logger.Warn("OpenDirectory did not complete", slog.String("path", path), slogext.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *fileSystemService) ReadDirectory(ctx context.Context, thread *tasking.Thread, call *models.ReadDirectoryCall) error {
	const op = "service.fileSystemService.ReadDirectory"

	if err := s.wait(ctx, thread, s.fs.ReadDirectory(thread, filesystem.NewReadDirectoryHandler(call))); err != nil {
		logging.GetLoggerFromContextWithOp(ctx, op).Warn("ReadDirectory did not complete", slogext.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *fileSystemService) CloneFD(ctx context.Context, _ *tasking.Thread, call *models.CloneFDCall) error {
	const op = "service.fileSystemService.CloneFD"

	call.Result, call.Status = s.fs.CloneFD(call.SourcePID, call.SourceFD, call.TargetPID, call.TargetFD)
	logging.GetLoggerFromContextWithOp(ctx, op).Debug("CloneFD",
		slog.Any("source_pid", call.SourcePID),
		slog.Any("source_fd", call.SourceFD),
		slog.Any("target_pid", call.TargetPID),
		slog.Any("result", call.Result))
	return nil
}

func (s *fileSystemService) Pipe(_ context.Context, thread *tasking.Thread, call *models.PipeCall) error {
	call.WriteFD, call.ReadFD, call.Status = s.fs.Pipe(thread.Process.ID)
	return nil
}

func (s *fileSystemService) RegisterAsDelegate(ctx context.Context, thread *tasking.Thread, call *models.RegisterAsDelegateCall, d filesystem.Delegate) error {
	const op = "service.fileSystemService.RegisterAsDelegate"

	call.MountpointID, call.Status = s.fs.CreateDelegate(thread, call.Name, call.PhysMountpointID, d)
	logging.GetLoggerFromContextWithOp(ctx, op).Info("Delegate registration",
		slog.String("name", call.Name),
		slog.Any("mountpoint", call.MountpointID),
		slog.Any("status", call.Status))
	return nil
}
