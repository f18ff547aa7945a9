package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/S1riyS/ghost-vfs/internal/models"
	"github.com/S1riyS/ghost-vfs/pkg/database/postgresql"
	"github.com/jackc/pgx/v5"
)

type InodeRepository interface {
	Get(ctx context.Context, volume string, ino int64) (*models.Inode, error)
	UpdateSize(ctx context.Context, volume string, ino int64, size int64) error
}

type inodeRepository struct {
	db     postgresql.Client
	tables Tables
}

func NewInodeRepository(db postgresql.Client, tables Tables) InodeRepository {
	return &inodeRepository{db: db, tables: tables}
}

func (r *inodeRepository) Get(ctx context.Context, volume string, ino int64) (*models.Inode, error) {
	const op = "repository.inodeRepository.Get"

	query := `
		SELECT ino, volume, type, mode, size
		FROM ` + r.tables.Inodes + `
		WHERE volume = $1 AND ino = $2
	`

	var inode models.Inode
	db := postgresql.GetDBClient(ctx, r.db)
	err := db.QueryRow(ctx, query, volume, ino).Scan(
		&inode.Ino,
		&inode.Volume,
		&inode.Type,
		&inode.Mode,
		&inode.Size,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &inode, nil
}

func (r *inodeRepository) UpdateSize(ctx context.Context, volume string, ino int64, size int64) error {
	const op = "repository.inodeRepository.UpdateSize"

	query := `
		UPDATE ` + r.tables.Inodes + `
		SET size = $1, updated_at = NOW()
		WHERE volume = $2 AND ino = $3
	`

	db := postgresql.GetDBClient(ctx, r.db)
	_, err := db.Exec(ctx, query, size, volume, ino)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
