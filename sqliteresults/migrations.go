package sqliteresults

import (
	"context"
	"embed"
	"strings"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// executor applies migrations. SQLite serialises writers, so there is no
// separate migration lock.
type executor struct {
	pool *sqlitex.Pool
}

func (e *executor) Exec(ctx context.Context, sql string) error {
	conn, err := e.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer e.pool.Put(conn)
	return sqlitex.ExecScript(conn, sql)
}

func (e *executor) GetVersion(ctx context.Context) (version int, err error) {
	conn, err := e.pool.Take(ctx)
	if err != nil {
		return 0, err
	}
	defer e.pool.Put(conn)
	err = sqlitex.Execute(conn, "select coalesce(max(version), 0) from migration_version", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			version = int(stmt.ColumnInt64(0))
			return nil
		},
	})
	if err != nil && strings.Contains(err.Error(), "no such table") {
		return 0, nil
	}
	return version, err
}

func (e *executor) SetVersion(ctx context.Context, migrationSQL string, version int) (err error) {
	conn, err := e.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer e.pool.Put(conn)
	defer sqlitex.Transaction(conn)(&err)
	if err = sqlitex.ExecScript(conn, migrationSQL); err != nil {
		return err
	}
	return sqlitex.Execute(conn, "insert into migration_version (version) values (:version)", &sqlitex.ExecOptions{
		Named: map[string]any{":version": version},
	})
}

func (e *executor) AcquireLock(ctx context.Context) error { return nil }
func (e *executor) ReleaseLock(ctx context.Context) error { return nil }
