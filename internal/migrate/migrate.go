// Package migrate applies numbered SQL migrations from an embedded filesystem.
package migrate

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
)

// Executor runs migration statements against a database.
type Executor interface {
	// Exec runs the first migration, which creates the migration_version table.
	Exec(ctx context.Context, sql string) error
	// GetVersion returns the current migration version, or 0 if none have been applied.
	GetVersion(ctx context.Context) (int, error)
	// SetVersion runs a migration and records its version in the same transaction.
	SetVersion(ctx context.Context, migrationSQL string, version int) error
	AcquireLock(ctx context.Context) error
	ReleaseLock(ctx context.Context) error
}

// Runner applies the migrations in the "migrations" directory of a
// filesystem. Files are named "<version>_<name>.sql", e.g. "1_create_results.sql".
type Runner struct {
	executor Executor
	fsys     fs.FS
}

func New(executor Executor, fsys fs.FS) *Runner {
	return &Runner{
		executor: executor,
		fsys:     fsys,
	}
}

// Migration is a single numbered SQL script.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrations returns the migrations in version order.
func (r *Runner) Migrations() ([]Migration, error) {
	entries, err := fs.ReadDir(r.fsys, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}
	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		version, name, err := parseFilename(entry.Name())
		if err != nil {
			return nil, err
		}
		sql, err := fs.ReadFile(r.fsys, path.Join("migrations", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", entry.Name(), err)
		}
		migrations = append(migrations, Migration{Version: version, Name: name, SQL: strings.TrimSpace(string(sql))})
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

// Migrate applies every migration newer than the current version.
func (r *Runner) Migrate(ctx context.Context) (err error) {
	if err = r.executor.AcquireLock(ctx); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	defer func() {
		_ = r.executor.ReleaseLock(ctx)
	}()

	current, err := r.executor.GetVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	migrations, err := r.Migrations()
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		apply := func() error { return r.executor.SetVersion(ctx, m.SQL, m.Version) }
		if m.Version == 1 {
			apply = func() error { return r.executor.Exec(ctx, m.SQL) }
		}
		if err = apply(); err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", m.Version, m.Name, err)
		}
	}
	return nil
}

func parseFilename(filename string) (version int, name string, err error) {
	versionText, nameText, ok := strings.Cut(strings.TrimSuffix(filename, ".sql"), "_")
	if !ok {
		return 0, "", fmt.Errorf("invalid migration filename %q: expected <version>_<name>.sql", filename)
	}
	version, err = strconv.Atoi(versionText)
	if err != nil {
		return 0, "", fmt.Errorf("invalid version in migration filename %q: %w", filename, err)
	}
	return version, strings.ReplaceAll(nameText, "_", " "), nil
}
