package postgresresults

import (
	"context"
	"embed"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationLockID = 2001

// undefinedTable is the Postgres error code for a missing relation.
const undefinedTable = "42P01"

// executor holds one connection for the duration of a migration, because
// advisory locks belong to the session that took them.
type executor struct {
	pool *pgxpool.Pool
	conn *pgxpool.Conn
}

func (e *executor) Exec(ctx context.Context, sql string) error {
	_, err := e.pool.Exec(ctx, sql)
	return err
}

func (e *executor) GetVersion(ctx context.Context) (int, error) {
	var version int
	err := e.pool.QueryRow(ctx, "select coalesce(max(version), 0) from migration_version").Scan(&version)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
			return 0, nil
		}
		return 0, err
	}
	return version, nil
}

func (e *executor) SetVersion(ctx context.Context, migrationSQL string, version int) (err error) {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()
	if _, err = tx.Exec(ctx, migrationSQL); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, "insert into migration_version (version) values ($1)", version); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (e *executor) AcquireLock(ctx context.Context) (err error) {
	if e.conn, err = e.pool.Acquire(ctx); err != nil {
		return err
	}
	if _, err = e.conn.Exec(ctx, "select pg_advisory_lock($1)", migrationLockID); err != nil {
		e.conn.Release()
		e.conn = nil
	}
	return err
}

func (e *executor) ReleaseLock(ctx context.Context) error {
	if e.conn == nil {
		return nil
	}
	defer func() {
		e.conn.Release()
		e.conn = nil
	}()
	_, err := e.conn.Exec(ctx, "select pg_advisory_unlock($1)", migrationLockID)
	return err
}
