package repository

import (
	"context"
	"fmt"

	"github.com/S1riyS/ghost-vfs/pkg/database/postgresql"
	"github.com/lib/pq"
)

// Tables holds the quoted, schema qualified table names.
type Tables struct {
	Volumes  string
	Inodes   string
	Entries  string
	Contents string
}

func NewTables(schema string) Tables {
	qualify := func(name string) string {
		if schema == "" {
			return pq.QuoteIdentifier(name)
		}
		return pq.QuoteIdentifier(schema) + "." + pq.QuoteIdentifier(name)
	}
	return Tables{
		Volumes:  qualify("volumes"),
		Inodes:   qualify("inodes"),
		Entries:  qualify("directory_entries"),
		Contents: qualify("file_contents"),
	}
}

// Migrate creates the tables if they do not exist yet.
func Migrate(ctx context.Context, db postgresql.Client, t Tables) error {
	const op = "repository.Migrate"

	statements := []string{
		`CREATE TABLE IF NOT EXISTS ` + t.Volumes + ` (
			name       TEXT PRIMARY KEY,
			root_ino   BIGINT NOT NULL,
			next_ino   BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS ` + t.Inodes + ` (
			volume     TEXT NOT NULL,
			ino        BIGINT NOT NULL,
			type       SMALLINT NOT NULL,
			mode       INTEGER NOT NULL,
			size       BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (volume, ino)
		)`,
		`CREATE TABLE IF NOT EXISTS ` + t.Entries + ` (
			volume     TEXT NOT NULL,
			parent_ino BIGINT NOT NULL,
			name       TEXT NOT NULL,
			ino        BIGINT NOT NULL,
			PRIMARY KEY (volume, parent_ino, name)
		)`,
		`CREATE TABLE IF NOT EXISTS ` + t.Contents + ` (
			volume TEXT NOT NULL,
			ino    BIGINT NOT NULL,
			data   BYTEA NOT NULL,
			PRIMARY KEY (volume, ino)
		)`,
	}

	return postgresql.WithTransaction(ctx, db, func(ctx context.Context) error {
		tx := postgresql.GetDBClient(ctx, db)
		for _, stmt := range statements {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		}
		return nil
	})
}
