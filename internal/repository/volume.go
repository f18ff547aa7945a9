package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/S1riyS/ghost-vfs/internal/models"
	"github.com/S1riyS/ghost-vfs/pkg/database/postgresql"
	"github.com/S1riyS/ghost-vfs/pkg/logging"
	"github.com/S1riyS/ghost-vfs/pkg/logging/slogext"
	"github.com/jackc/pgx/v5"
)

const (
	VolumeRootIno  = 1000
	VolumeRootMode = 0777
)

type VolumeRepository interface {
	Get(ctx context.Context, name string) (*models.Volume, error)
	GetOrCreate(ctx context.Context, name string) (*models.Volume, error)
}

type volumeRepository struct {
	db     postgresql.Client
	tables Tables
}

func NewVolumeRepository(db postgresql.Client, tables Tables) VolumeRepository {
	return &volumeRepository{db: db, tables: tables}
}

func (r *volumeRepository) Get(ctx context.Context, name string) (*models.Volume, error) {
	const op = "repository.volumeRepository.Get"

	query := `
		SELECT name, root_ino, next_ino, created_at
		FROM ` + r.tables.Volumes + `
		WHERE name = $1
	`

	var v models.Volume
	db := postgresql.GetDBClient(ctx, r.db)
	err := db.QueryRow(ctx, query, name).Scan(
		&v.Name,
		&v.RootIno,
		&v.NextIno,
		&v.CreateAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &v, nil
}

// GetOrCreate returns the volume, creating it with an empty root folder
// on first use.
func (r *volumeRepository) GetOrCreate(ctx context.Context, name string) (*models.Volume, error) {
	const op = "repository.volumeRepository.GetOrCreate"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	v, err := r.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if v != nil {
		return v, nil
	}

	err = postgresql.WithTransaction(ctx, r.db, func(ctx context.Context) error {
		v, err = r.Get(ctx, name)
		if err != nil {
			return err
		}
		if v != nil {
			return nil
		}

		volumeQuery := `
			INSERT INTO ` + r.tables.Volumes + ` (name, root_ino, next_ino)
			VALUES ($1, $2, $3)
			ON CONFLICT (name) DO NOTHING
		`
		db := postgresql.GetDBClient(ctx, r.db)
		_, err = db.Exec(ctx, volumeQuery, name, VolumeRootIno, VolumeRootIno+1)
		if err != nil {
			return err
		}

		inodeQuery := `
			INSERT INTO ` + r.tables.Inodes + ` (volume, ino, type, mode, size)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (volume, ino) DO NOTHING
		`
		_, err = db.Exec(ctx, inodeQuery,
			name,
			VolumeRootIno,
			int16(models.StoredTypeDir),
			VolumeRootMode,
			0, // size
		)
		return err
	})
	if err != nil {
		logger.Error("Failed to create volume", slogext.Err(err), "volume", name)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return r.Get(ctx, name)
}
