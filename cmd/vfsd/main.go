package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/S1riyS/ghost-vfs/internal/config"
	"github.com/S1riyS/ghost-vfs/internal/filesystem"
	"github.com/S1riyS/ghost-vfs/internal/filesystem/pgdelegate"
	"github.com/S1riyS/ghost-vfs/internal/filesystem/pipe"
	"github.com/S1riyS/ghost-vfs/internal/filesystem/ramdisk"
	"github.com/S1riyS/ghost-vfs/internal/handler"
	"github.com/S1riyS/ghost-vfs/internal/middleware"
	"github.com/S1riyS/ghost-vfs/internal/models"
	"github.com/S1riyS/ghost-vfs/internal/repository"
	"github.com/S1riyS/ghost-vfs/internal/service"
	"github.com/S1riyS/ghost-vfs/internal/tasking"
	"github.com/S1riyS/ghost-vfs/internal/transaction"
	"github.com/S1riyS/ghost-vfs/pkg/database/postgresql"
	"github.com/S1riyS/ghost-vfs/pkg/logging"
	"github.com/S1riyS/ghost-vfs/pkg/logging/slogext"
	"github.com/S1riyS/ghost-vfs/pkg/logging/slogpretty"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

const (
	envLocal = "local"

	defaultConfigPath = "configs/config.yaml"
	shutdownTimeout   = 5 * time.Second
)

func main() {
	flagSet := pflag.NewFlagSet("vfsd", pflag.ContinueOnError)
	configPath := flagSet.StringP("config", "c", defaultConfigPath, "path to the YAML config")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg := config.MustLoad(*configPath)

	logger := setupLogger(cfg.App.Env)

	// Root context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.MakeContextWithLogger(ctx, logger)

	if err := run(ctx, cfg); err != nil {
		logger.Error("Kernel stopped with error", slogext.Err(err))
		os.Exit(1)
	}
	logger.Info("Kernel stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	const op = "main.run"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	// Kernel core
	store := transaction.NewStore()
	tk := tasking.New(ctx, cfg.Kernel.Cores, cfg.Kernel.PollInterval)
	store.Watch(func(models.TransactionID, models.TransactionStatus) { tk.Wake() })

	disk, err := loadRamdisk(cfg.Ramdisk)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	fs := filesystem.New(ctx, store)
	fs.Initialize(ramdisk.NewDelegate(ctx, store, disk))
	tk.OnProcessClosed(fs.ProcessClosed)

	kernel := tk.CreateProcess(models.SecurityLevelKernel, "/").Main()

	// Pipes
	pipes := pipe.NewDelegate(ctx, store, cfg.Pipe.Capacity)
	mount, status := fs.CreateDelegate(kernel, pipe.MountName, 0, pipes)
	if status != models.RegisterAsDelegateSuccessful {
		return fmt.Errorf("%s: mount %s: status %d", op, pipe.MountName, status)
	}
	if err := fs.SetPipeProvider(mount, pipes); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return tk.Run(ctx)
	})

	// Database volume
	if cfg.Database.Enabled {
		pg, err := setupDatabase(ctx, cfg.Database, store)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if _, status := fs.CreateDelegate(kernel, cfg.Database.Mountpoint, pg.RootPhysID(), pg); status != models.RegisterAsDelegateSuccessful {
			return fmt.Errorf("%s: mount %s: status %d", op, cfg.Database.Mountpoint, status)
		}
		g.Go(func() error {
			return pg.Run(ctx)
		})
		logger.Info("Database volume mounted", slog.String("mountpoint", cfg.Database.Mountpoint))
	}

	// HTTP gateway
	svc := service.NewFileSystemService(fs, cfg.Kernel.WaitTimeout)
	h := handler.NewHandler(svc, tk)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      withLogger(ctx, middleware.RequestIDMiddleware(mux)),
		ReadTimeout:  cfg.App.DefaultTimeout,
		WriteTimeout: cfg.App.DefaultTimeout + cfg.Kernel.WaitTimeout,
	}

	g.Go(func() error {
		logger.Info("Gateway listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func loadRamdisk(cfg config.RamdiskConfig) (*ramdisk.Ramdisk, error) {
	if cfg.Manifest == "" {
		return ramdisk.New(), nil
	}
	return ramdisk.LoadManifest(cfg.Manifest)
}

func setupDatabase(ctx context.Context, cfg config.DatabaseConfig, store *transaction.Store) (*pgdelegate.Delegate, error) {
	const op = "main.setupDatabase"

	db := postgresql.MustNewClient(ctx, cfg)

	tables := repository.NewTables(cfg.Schema)
	if err := repository.Migrate(ctx, db, tables); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	repos := pgdelegate.Repositories{
		Volumes:     repository.NewVolumeRepository(db, tables),
		Directories: repository.NewDirectoryRepository(db, tables),
		Inodes:      repository.NewInodeRepository(db, tables),
		Contents:    repository.NewContentRepository(db, tables),
		Tx:          postgresql.NewTransactor(db),
	}

	return pgdelegate.New(ctx, store, repos, pgdelegate.Config{
		Volume:    cfg.Volume,
		Workers:   cfg.Workers,
		QueueSize: cfg.QueueSize,
		ChunkSize: cfg.ChunkSize,
		CacheTTL:  cfg.CacheTTL,
	})
}

// withLogger makes the root logger available to request contexts.
func withLogger(ctx context.Context, next http.Handler) http.Handler {
	logger := logging.GetLoggerFromContext(ctx)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(logging.MakeContextWithLogger(r.Context(), logger)))
	})
}

func setupLogger(env string) *slog.Logger {
	if env != envLocal {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return setupPrettySlog()
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}
