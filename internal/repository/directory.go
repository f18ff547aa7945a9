package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/S1riyS/ghost-vfs/internal/models"
	"github.com/S1riyS/ghost-vfs/pkg/database/postgresql"
	"github.com/jackc/pgx/v5"
)

type DirectoryRepository interface {
	// Lookup returns nil when parentIno has no entry called name.
	Lookup(ctx context.Context, volume string, parentIno int64, name string) (*models.Dirent, error)
	// GetEntryByOffset returns nil past the last entry. Entries are ordered
	// by name.
	GetEntryByOffset(ctx context.Context, volume string, parentIno int64, offset uint64) (*models.Dirent, error)
}

type directoryRepository struct {
	db     postgresql.Client
	tables Tables
}

func NewDirectoryRepository(db postgresql.Client, tables Tables) DirectoryRepository {
	return &directoryRepository{db: db, tables: tables}
}

func (r *directoryRepository) Lookup(ctx context.Context, volume string, parentIno int64, name string) (*models.Dirent, error) {
	const op = "repository.directoryRepository.Lookup"

	query := `
		SELECT de.name, de.ino, i.type
		FROM ` + r.tables.Entries + ` de
		JOIN ` + r.tables.Inodes + ` i ON de.volume = i.volume AND de.ino = i.ino
		WHERE de.volume = $1 AND de.parent_ino = $2 AND de.name = $3
	`

	return r.scanOne(ctx, op, query, volume, parentIno, name)
}

func (r *directoryRepository) GetEntryByOffset(ctx context.Context, volume string, parentIno int64, offset uint64) (*models.Dirent, error) {
	const op = "repository.directoryRepository.GetEntryByOffset"

	query := `
		SELECT de.name, de.ino, i.type
		FROM ` + r.tables.Entries + ` de
		JOIN ` + r.tables.Inodes + ` i ON de.volume = i.volume AND de.ino = i.ino
		WHERE de.volume = $1 AND de.parent_ino = $2
		ORDER BY de.name
		LIMIT 1 OFFSET $3
	`

	return r.scanOne(ctx, op, query, volume, parentIno, offset)
}

func (r *directoryRepository) scanOne(ctx context.Context, op, query string, args ...any) (*models.Dirent, error) {
	var dirent models.Dirent
	var nodeType int16
	db := postgresql.GetDBClient(ctx, r.db)
	err := db.QueryRow(ctx, query, args...).Scan(&dirent.Name, &dirent.Ino, &nodeType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	dirent.Type = models.StoredType(nodeType)
	return &dirent, nil
}
