package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/S1riyS/ghost-vfs/pkg/database/postgresql"
	"github.com/jackc/pgx/v5"
)

type ContentRepository interface {
	Get(ctx context.Context, volume string, ino int64) ([]byte, error)
	Set(ctx context.Context, volume string, ino int64, data []byte) error
}

type contentRepository struct {
	db     postgresql.Client
	tables Tables
}

func NewContentRepository(db postgresql.Client, tables Tables) ContentRepository {
	return &contentRepository{db: db, tables: tables}
}

// Get returns the stored bytes, empty for inodes without content.
func (r *contentRepository) Get(ctx context.Context, volume string, ino int64) ([]byte, error) {
	const op = "repository.contentRepository.Get"

	query := `
		SELECT data
		FROM ` + r.tables.Contents + `
		WHERE volume = $1 AND ino = $2
	`

	var data []byte
	db := postgresql.GetDBClient(ctx, r.db)
	err := db.QueryRow(ctx, query, volume, ino).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []byte{}, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return data, nil
}

func (r *contentRepository) Set(ctx context.Context, volume string, ino int64, data []byte) error {
	const op = "repository.contentRepository.Set"

	query := `
		INSERT INTO ` + r.tables.Contents + ` (volume, ino, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (volume, ino)
		DO UPDATE SET data = EXCLUDED.data
	`

	db := postgresql.GetDBClient(ctx, r.db)
	_, err := db.Exec(ctx, query, volume, ino, data)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
