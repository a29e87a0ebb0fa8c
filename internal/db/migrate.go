package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrationLockID serializes concurrent migrators through a transaction-scoped advisory lock.
const migrationLockID = 7_420_113

// Migrate applies embedded migrations, each file at most once, in name order.
// It returns the names of the files applied by this call.
func (db *DB) Migrate(ctx context.Context) ([]string, error) {
	if _, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name       TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return nil, fmt.Errorf("failed to ensure migration table: %w", err)
	}

	files, err := migrationFiles(migrationFS)
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, name := range files {
		content, err := fs.ReadFile(migrationFS, "migrations/"+name)
		if err != nil {
			return applied, fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		ran := false
		err = db.WithTx(ctx, func(q *Queries) error {
			if _, err := q.q.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLockID); err != nil {
				return fmt.Errorf("failed to take migration lock: %w", err)
			}

			var exists bool
			if err := q.q.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)`, name,
			).Scan(&exists); err != nil {
				return fmt.Errorf("failed to check migration %s: %w", name, err)
			}
			if exists {
				return nil
			}

			if _, err := q.q.Exec(ctx, string(content)); err != nil {
				return fmt.Errorf("failed to apply migration %s: %w", name, err)
			}
			if _, err := q.q.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
				return fmt.Errorf("failed to record migration %s: %w", name, err)
			}
			ran = true
			return nil
		})
		if err != nil {
			return applied, err
		}
		if ran {
			applied = append(applied, name)
		}
	}

	return applied, nil
}

func migrationFiles(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
