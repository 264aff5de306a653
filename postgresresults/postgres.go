// Package postgresresults stores experiment results in PostgreSQL.
package postgresresults

import (
	"context"
	"fmt"
	"time"

	"github.com/a-h/localcluster"
	"github.com/a-h/localcluster/internal/migrate"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	Pool *pgxpool.Pool
	Now  func() time.Time
}

var _ localcluster.Store = (*Store)(nil)

type SQLStatement struct {
	SQL         string
	NamedParams pgx.NamedArgs
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{
		Pool: pool,
		Now:  time.Now,
	}
}

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

// Mutate runs the statements in a single transaction.
func (s *Store) Mutate(ctx context.Context, stmts []SQLStatement) (err error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("mutate: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()
	for i, stmt := range stmts {
		if _, err = tx.Exec(ctx, stmt.SQL, stmt.NamedParams); err != nil {
			return fmt.Errorf("mutate: index %d: %w", i, err)
		}
	}
	return nil
}

func (s *Store) createRunStatement(runID string) SQLStatement {
	return SQLStatement{
		SQL: `insert into runs (id, created) values (@id, @created) on conflict (id) do nothing;`,
		NamedParams: pgx.NamedArgs{
			"id":      runID,
			"created": s.Now().UTC(),
		},
	}
}

func measurementArgs(args pgx.NamedArgs, prefix string, m localcluster.Measurement) {
	args[prefix+"_time"] = m.TimeMillis
	args[prefix+"_size"] = m.ClusterSize
	args[prefix+"_symdiff"] = m.SymmetricDifference
}

func (s *Store) PutTrial(ctx context.Context, t localcluster.Trial) error {
	args := pgx.NamedArgs{
		"run_id": t.RunID,
		"seq":    t.Seq,
		"k":      t.K,
	}
	measurementArgs(args, "disk", t.Disk)
	measurementArgs(args, "mem", t.Mem)
	stmts := []SQLStatement{
		s.createRunStatement(t.RunID),
		{
			SQL: `insert into trials (run_id, seq, k, disk_time, disk_size, disk_symdiff, mem_time, mem_size, mem_symdiff)
values (@run_id, @seq, @k, @disk_time, @disk_size, @disk_symdiff, @mem_time, @mem_size, @mem_symdiff)
on conflict (run_id, seq) do update set
  k = excluded.k,
  disk_time = excluded.disk_time, disk_size = excluded.disk_size, disk_symdiff = excluded.disk_symdiff,
  mem_time = excluded.mem_time, mem_size = excluded.mem_size, mem_symdiff = excluded.mem_symdiff;`,
			NamedParams: args,
		},
	}
	if err := s.Mutate(ctx, stmts); err != nil {
		return fmt.Errorf("puttrial: %w", err)
	}
	return nil
}

func (s *Store) PutAggregate(ctx context.Context, a localcluster.Aggregate) error {
	args := pgx.NamedArgs{
		"run_id": a.RunID,
		"k":      a.K,
	}
	measurementArgs(args, "disk", a.Disk)
	measurementArgs(args, "mem", a.Mem)
	stmts := []SQLStatement{
		s.createRunStatement(a.RunID),
		{
			SQL: `insert into aggregates (run_id, k, disk_time, disk_size, disk_symdiff, mem_time, mem_size, mem_symdiff)
values (@run_id, @k, @disk_time, @disk_size, @disk_symdiff, @mem_time, @mem_size, @mem_symdiff)
on conflict (run_id, k) do update set
  disk_time = excluded.disk_time, disk_size = excluded.disk_size, disk_symdiff = excluded.disk_symdiff,
  mem_time = excluded.mem_time, mem_size = excluded.mem_size, mem_symdiff = excluded.mem_symdiff;`,
			NamedParams: args,
		},
	}
	if err := s.Mutate(ctx, stmts); err != nil {
		return fmt.Errorf("putaggregate: %w", err)
	}
	return nil
}

func (s *Store) Trials(ctx context.Context, runID string) (trials []localcluster.Trial, err error) {
	sql := `select run_id, seq, k, disk_time, disk_size, disk_symdiff, mem_time, mem_size, mem_symdiff from trials where run_id = @run_id order by seq;`
	rows, err := s.Pool.Query(ctx, sql, pgx.NamedArgs{"run_id": runID})
	if err != nil {
		return nil, fmt.Errorf("trials: query: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t localcluster.Trial
		err = rows.Scan(&t.RunID, &t.Seq, &t.K,
			&t.Disk.TimeMillis, &t.Disk.ClusterSize, &t.Disk.SymmetricDifference,
			&t.Mem.TimeMillis, &t.Mem.ClusterSize, &t.Mem.SymmetricDifference)
		if err != nil {
			return nil, fmt.Errorf("trials: scan: %w", err)
		}
		trials = append(trials, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("trials: rows: %w", err)
	}
	return trials, nil
}

func (s *Store) Aggregates(ctx context.Context, runID string) (aggregates []localcluster.Aggregate, err error) {
	sql := `select run_id, k, disk_time, disk_size, disk_symdiff, mem_time, mem_size, mem_symdiff from aggregates where run_id = @run_id order by k;`
	rows, err := s.Pool.Query(ctx, sql, pgx.NamedArgs{"run_id": runID})
	if err != nil {
		return nil, fmt.Errorf("aggregates: query: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a localcluster.Aggregate
		err = rows.Scan(&a.RunID, &a.K,
			&a.Disk.TimeMillis, &a.Disk.ClusterSize, &a.Disk.SymmetricDifference,
			&a.Mem.TimeMillis, &a.Mem.ClusterSize, &a.Mem.SymmetricDifference)
		if err != nil {
			return nil, fmt.Errorf("aggregates: scan: %w", err)
		}
		aggregates = append(aggregates, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("aggregates: rows: %w", err)
	}
	return aggregates, nil
}

func (s *Store) LatestRun(ctx context.Context) (r localcluster.Run, ok bool, err error) {
	rows, err := s.Pool.Query(ctx, `select id, created from runs order by created desc, id desc limit 1;`)
	if err != nil {
		return r, false, fmt.Errorf("latestrun: query: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err = rows.Scan(&r.ID, &r.Created); err != nil {
			return r, false, fmt.Errorf("latestrun: scan: %w", err)
		}
		ok = true
	}
	if err = rows.Err(); err != nil {
		return r, false, fmt.Errorf("latestrun: rows: %w", err)
	}
	return r, ok, nil
}
