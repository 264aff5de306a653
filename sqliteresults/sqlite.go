// Package sqliteresults stores experiment results in SQLite.
package sqliteresults

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/a-h/localcluster"
	"github.com/a-h/localcluster/internal/migrate"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// timeFormat sorts lexically in time order.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

func New(pool *sqlitex.Pool) *Store {
	return &Store{
		Pool: pool,
		Now:  time.Now,
	}
}

type Store struct {
	Pool *sqlitex.Pool
	Now  func() time.Time
}

var _ localcluster.Store = (*Store)(nil)

func (s *Store) SetNow(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	s.Now = now
}

func (s *Store) Init(ctx context.Context) error {
	if err := migrate.New(&executor{pool: s.Pool}, migrationsFS).Migrate(ctx); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	return nil
}

type SQLStatement struct {
	SQL         string
	NamedParams map[string]any
}

// Mutate runs the statements in a single transaction.
func (s *Store) Mutate(ctx context.Context, stmts []SQLStatement) (err error) {
	conn, err := s.Pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.Pool.Put(conn)
	defer sqlitex.Transaction(conn)(&err)

	errs := make([]error, len(stmts))
	for i, stmt := range stmts {
		if execErr := sqlitex.Execute(conn, stmt.SQL, &sqlitex.ExecOptions{Named: stmt.NamedParams}); execErr != nil {
			errs[i] = fmt.Errorf("mutate: index %d: %w", i, execErr)
		}
	}
	return errors.Join(errs...)
}

func (s *Store) createRunStatement(runID string) SQLStatement {
	return SQLStatement{
		SQL: `insert or ignore into runs (id, created) values (:id, :created);`,
		NamedParams: map[string]any{
			":id":      runID,
			":created": s.Now().UTC().Format(timeFormat),
		},
	}
}

func measurementParams(params map[string]any, prefix string, m localcluster.Measurement) map[string]any {
	params[":"+prefix+"_time"] = m.TimeMillis
	params[":"+prefix+"_size"] = m.ClusterSize
	params[":"+prefix+"_symdiff"] = m.SymmetricDifference
	return params
}

func (s *Store) PutTrial(ctx context.Context, t localcluster.Trial) error {
	params := map[string]any{
		":run_id": t.RunID,
		":seq":    t.Seq,
		":k":      t.K,
	}
	measurementParams(params, "disk", t.Disk)
	measurementParams(params, "mem", t.Mem)
	stmts := []SQLStatement{
		s.createRunStatement(t.RunID),
		{
			SQL: `insert or replace into trials (run_id, seq, k, disk_time, disk_size, disk_symdiff, mem_time, mem_size, mem_symdiff)
values (:run_id, :seq, :k, :disk_time, :disk_size, :disk_symdiff, :mem_time, :mem_size, :mem_symdiff);`,
			NamedParams: params,
		},
	}
	if err := s.Mutate(ctx, stmts); err != nil {
		return fmt.Errorf("puttrial: %w", err)
	}
	return nil
}

func (s *Store) PutAggregate(ctx context.Context, a localcluster.Aggregate) error {
	params := map[string]any{
		":run_id": a.RunID,
		":k":      a.K,
	}
	measurementParams(params, "disk", a.Disk)
	measurementParams(params, "mem", a.Mem)
	stmts := []SQLStatement{
		s.createRunStatement(a.RunID),
		{
			SQL: `insert or replace into aggregates (run_id, k, disk_time, disk_size, disk_symdiff, mem_time, mem_size, mem_symdiff)
values (:run_id, :k, :disk_time, :disk_size, :disk_symdiff, :mem_time, :mem_size, :mem_symdiff);`,
			NamedParams: params,
		},
	}
	if err := s.Mutate(ctx, stmts); err != nil {
		return fmt.Errorf("putaggregate: %w", err)
	}
	return nil
}

func (s *Store) query(ctx context.Context, sql string, args map[string]any, f func(stmt *sqlite.Stmt) error) error {
	conn, err := s.Pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.Pool.Put(conn)
	return sqlitex.Execute(conn, sql, &sqlitex.ExecOptions{Named: args, ResultFunc: f})
}

func measurementOf(stmt *sqlite.Stmt, prefix string) localcluster.Measurement {
	return localcluster.Measurement{
		TimeMillis:          stmt.GetInt64(prefix + "_time"),
		ClusterSize:         stmt.GetInt64(prefix + "_size"),
		SymmetricDifference: stmt.GetInt64(prefix + "_symdiff"),
	}
}

func (s *Store) Trials(ctx context.Context, runID string) (trials []localcluster.Trial, err error) {
	sql := `select run_id, seq, k, disk_time, disk_size, disk_symdiff, mem_time, mem_size, mem_symdiff from trials where run_id = :run_id order by seq;`
	err = s.query(ctx, sql, map[string]any{":run_id": runID}, func(stmt *sqlite.Stmt) error {
		trials = append(trials, localcluster.Trial{
			RunID: stmt.GetText("run_id"),
			Seq:   int(stmt.GetInt64("seq")),
			K:     int(stmt.GetInt64("k")),
			Disk:  measurementOf(stmt, "disk"),
			Mem:   measurementOf(stmt, "mem"),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("trials: %w", err)
	}
	return trials, nil
}

func (s *Store) Aggregates(ctx context.Context, runID string) (aggregates []localcluster.Aggregate, err error) {
	sql := `select run_id, k, disk_time, disk_size, disk_symdiff, mem_time, mem_size, mem_symdiff from aggregates where run_id = :run_id order by k;`
	err = s.query(ctx, sql, map[string]any{":run_id": runID}, func(stmt *sqlite.Stmt) error {
		aggregates = append(aggregates, localcluster.Aggregate{
			RunID: stmt.GetText("run_id"),
			K:     int(stmt.GetInt64("k")),
			Disk:  measurementOf(stmt, "disk"),
			Mem:   measurementOf(stmt, "mem"),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("aggregates: %w", err)
	}
	return aggregates, nil
}

func (s *Store) LatestRun(ctx context.Context) (r localcluster.Run, ok bool, err error) {
	sql := `select id, created from runs order by created desc, id desc limit 1;`
	err = s.query(ctx, sql, nil, func(stmt *sqlite.Stmt) error {
		created, err := time.Parse(timeFormat, stmt.GetText("created"))
		if err != nil {
			return fmt.Errorf("error parsing created time: %w", err)
		}
		r = localcluster.Run{ID: stmt.GetText("id"), Created: created}
		ok = true
		return nil
	})
	if err != nil {
		return localcluster.Run{}, false, fmt.Errorf("latestrun: %w", err)
	}
	return r, ok, nil
}
