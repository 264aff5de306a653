package rqliteresults

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	rqlitehttp "github.com/rqlite/rqlite-go-http"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type executor struct {
	client          *rqlitehttp.Client
	timeout         time.Duration
	readConsistency rqlitehttp.ReadConsistencyLevel
}

func (e *executor) execute(ctx context.Context, stmts rqlitehttp.SQLStatements) error {
	opts := &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Wait:        true,
		Timeout:     e.timeout,
	}
	qr, err := e.client.Execute(ctx, stmts, opts)
	if err != nil {
		return err
	}
	errs := make([]error, len(qr.Results))
	for i, result := range qr.Results {
		if result.Error != "" {
			errs[i] = fmt.Errorf("sql execution failed: index %d: %s", i, result.Error)
		}
	}
	return errors.Join(errs...)
}

// statements splits a migration script into its statements, which are sent
// to rqlite separately. Scripts must not contain semicolons in literals.
func statements(script string) rqlitehttp.SQLStatements {
	var stmts rqlitehttp.SQLStatements
	for _, sql := range strings.Split(script, ";") {
		if sql = strings.TrimSpace(sql); sql != "" {
			stmts = append(stmts, rqlitehttp.SQLStatement{SQL: sql})
		}
	}
	return stmts
}

func (e *executor) Exec(ctx context.Context, sql string) error {
	return e.execute(ctx, statements(sql))
}

func (e *executor) GetVersion(ctx context.Context) (int, error) {
	opts := &rqlitehttp.QueryOptions{
		Timeout: e.timeout,
		Level:   e.readConsistency,
	}
	q := rqlitehttp.SQLStatement{
		SQL: "select coalesce(max(version), 0) from migration_version",
	}
	qr, err := e.client.Query(ctx, rqlitehttp.SQLStatements{q}, opts)
	if err != nil {
		return 0, err
	}
	if len(qr.Results) != 1 {
		return 0, fmt.Errorf("expected 1 result, got %d", len(qr.Results))
	}
	if qr.Results[0].Error != "" {
		if strings.Contains(qr.Results[0].Error, "no such table") {
			return 0, nil
		}
		return 0, fmt.Errorf("%s", qr.Results[0].Error)
	}
	if len(qr.Results[0].Values) != 1 || len(qr.Results[0].Values[0]) != 1 {
		return 0, fmt.Errorf("expected a single value, got %v", qr.Results[0].Values)
	}
	version, err := int64Of(qr.Results[0].Values[0][0])
	return int(version), err
}

func (e *executor) SetVersion(ctx context.Context, migrationSQL string, version int) error {
	stmts := append(statements(migrationSQL), rqlitehttp.SQLStatement{
		SQL:         "insert into migration_version (version) values (:version)",
		NamedParams: map[string]any{"version": version},
	})
	return e.execute(ctx, stmts)
}

// AcquireLock fails if another process holds the lock.
func (e *executor) AcquireLock(ctx context.Context) error {
	err := e.Exec(ctx, `create table if not exists migration_lock (
  id integer primary key check (id = 1),
  locked_at text not null
)`)
	if err != nil {
		return fmt.Errorf("failed to create migration_lock table: %w", err)
	}
	opts := &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Wait:        true,
		Timeout:     e.timeout,
	}
	stmt := rqlitehttp.SQLStatement{
		SQL: "insert or ignore into migration_lock (id, locked_at) values (1, datetime('now'))",
	}
	qr, err := e.client.Execute(ctx, rqlitehttp.SQLStatements{stmt}, opts)
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if len(qr.Results) != 1 {
		return fmt.Errorf("failed to acquire migration lock: expected 1 result, got %d", len(qr.Results))
	}
	if qr.Results[0].Error != "" {
		return fmt.Errorf("failed to acquire migration lock: %s", qr.Results[0].Error)
	}
	if qr.Results[0].RowsAffected == 0 {
		return fmt.Errorf("failed to acquire migration lock: already held")
	}
	return nil
}

func (e *executor) ReleaseLock(ctx context.Context) error {
	if err := e.Exec(ctx, "delete from migration_lock where id = 1"); err != nil {
		return fmt.Errorf("failed to release migration lock: %w", err)
	}
	return nil
}
