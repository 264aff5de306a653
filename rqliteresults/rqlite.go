// Package rqliteresults stores experiment results in rqlite.
package rqliteresults

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/a-h/localcluster"
	"github.com/a-h/localcluster/internal/migrate"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
)

// timeFormat sorts lexically in time order.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

func New(client *rqlitehttp.Client) *Store {
	return &Store{
		Client:          client,
		Timeout:         time.Second * 10,
		ReadConsistency: rqlitehttp.ReadConsistencyLevelStrong,
		Now:             time.Now,
	}
}

type Store struct {
	Client          *rqlitehttp.Client
	Timeout         time.Duration
	ReadConsistency rqlitehttp.ReadConsistencyLevel
	Now             func() time.Time
}

var _ localcluster.Store = (*Store)(nil)

func (s *Store) SetNow(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	s.Now = now
}

func (s *Store) Init(ctx context.Context) error {
	e := &executor{
		client:          s.Client,
		timeout:         s.Timeout,
		readConsistency: s.ReadConsistency,
	}
	if err := migrate.New(e, migrationsFS).Migrate(ctx); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	return nil
}

// Mutate runs the statements in a single transaction.
func (s *Store) Mutate(ctx context.Context, stmts rqlitehttp.SQLStatements) (rowsAffected []int64, err error) {
	opts := &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Wait:        true,
		Timeout:     s.Timeout,
	}
	qr, err := s.Client.Execute(ctx, stmts, opts)
	if err != nil {
		return nil, fmt.Errorf("mutate: %w", err)
	}
	rowsAffected = make([]int64, len(stmts))
	errs := make([]error, len(stmts))
	for i, result := range qr.Results {
		if result.Error != "" {
			errs[i] = fmt.Errorf("mutate: index %d: %s", i, result.Error)
			continue
		}
		if i < len(rowsAffected) {
			rowsAffected[i] = result.RowsAffected
		}
	}
	return rowsAffected, errors.Join(errs...)
}

// Query runs read statements and returns the rows of each.
func (s *Store) Query(ctx context.Context, stmts rqlitehttp.SQLStatements) (outputs [][][]any, err error) {
	opts := &rqlitehttp.QueryOptions{
		Timeout: s.Timeout,
		Level:   s.ReadConsistency,
	}
	qr, err := s.Client.Query(ctx, stmts, opts)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	if len(qr.Results) != len(stmts) {
		return nil, fmt.Errorf("query: expected %d results, got %d", len(stmts), len(qr.Results))
	}
	outputs = make([][][]any, len(qr.Results))
	for i, result := range qr.Results {
		if result.Error != "" {
			return nil, fmt.Errorf("query: index %d: %s", i, result.Error)
		}
		outputs[i] = result.Values
	}
	return outputs, nil
}

func (s *Store) createRunStatement(runID string) rqlitehttp.SQLStatement {
	return rqlitehttp.SQLStatement{
		SQL: `insert or ignore into runs (id, created) values (:id, :created);`,
		NamedParams: map[string]any{
			"id":      runID,
			"created": s.Now().UTC().Format(timeFormat),
		},
	}
}

func measurementParams(params map[string]any, prefix string, m localcluster.Measurement) {
	params[prefix+"_time"] = m.TimeMillis
	params[prefix+"_size"] = m.ClusterSize
	params[prefix+"_symdiff"] = m.SymmetricDifference
}

func (s *Store) PutTrial(ctx context.Context, t localcluster.Trial) error {
	params := map[string]any{
		"run_id": t.RunID,
		"seq":    t.Seq,
		"k":      t.K,
	}
	measurementParams(params, "disk", t.Disk)
	measurementParams(params, "mem", t.Mem)
	stmts := rqlitehttp.SQLStatements{
		s.createRunStatement(t.RunID),
		{
			SQL: `insert or replace into trials (run_id, seq, k, disk_time, disk_size, disk_symdiff, mem_time, mem_size, mem_symdiff)
values (:run_id, :seq, :k, :disk_time, :disk_size, :disk_symdiff, :mem_time, :mem_size, :mem_symdiff);`,
			NamedParams: params,
		},
	}
	if _, err := s.Mutate(ctx, stmts); err != nil {
		return fmt.Errorf("puttrial: %w", err)
	}
	return nil
}

func (s *Store) PutAggregate(ctx context.Context, a localcluster.Aggregate) error {
	params := map[string]any{
		"run_id": a.RunID,
		"k":      a.K,
	}
	measurementParams(params, "disk", a.Disk)
	measurementParams(params, "mem", a.Mem)
	stmts := rqlitehttp.SQLStatements{
		s.createRunStatement(a.RunID),
		{
			SQL: `insert or replace into aggregates (run_id, k, disk_time, disk_size, disk_symdiff, mem_time, mem_size, mem_symdiff)
values (:run_id, :k, :disk_time, :disk_size, :disk_symdiff, :mem_time, :mem_size, :mem_symdiff);`,
			NamedParams: params,
		},
	}
	if _, err := s.Mutate(ctx, stmts); err != nil {
		return fmt.Errorf("putaggregate: %w", err)
	}
	return nil
}

func (s *Store) Trials(ctx context.Context, runID string) (trials []localcluster.Trial, err error) {
	stmts := rqlitehttp.SQLStatements{
		{
			SQL:         `select run_id, seq, k, disk_time, disk_size, disk_symdiff, mem_time, mem_size, mem_symdiff from trials where run_id = :run_id order by seq;`,
			NamedParams: map[string]any{"run_id": runID},
		},
	}
	outputs, err := s.Query(ctx, stmts)
	if err != nil {
		return nil, fmt.Errorf("trials: %w", err)
	}
	for _, values := range outputs[0] {
		t, err := newTrialFromValues(values)
		if err != nil {
			return nil, fmt.Errorf("trials: %w", err)
		}
		trials = append(trials, t)
	}
	return trials, nil
}

func (s *Store) Aggregates(ctx context.Context, runID string) (aggregates []localcluster.Aggregate, err error) {
	stmts := rqlitehttp.SQLStatements{
		{
			SQL:         `select run_id, k, disk_time, disk_size, disk_symdiff, mem_time, mem_size, mem_symdiff from aggregates where run_id = :run_id order by k;`,
			NamedParams: map[string]any{"run_id": runID},
		},
	}
	outputs, err := s.Query(ctx, stmts)
	if err != nil {
		return nil, fmt.Errorf("aggregates: %w", err)
	}
	for _, values := range outputs[0] {
		a, err := newAggregateFromValues(values)
		if err != nil {
			return nil, fmt.Errorf("aggregates: %w", err)
		}
		aggregates = append(aggregates, a)
	}
	return aggregates, nil
}

func (s *Store) LatestRun(ctx context.Context) (r localcluster.Run, ok bool, err error) {
	stmts := rqlitehttp.SQLStatements{
		{SQL: `select id, created from runs order by created desc, id desc limit 1;`},
	}
	outputs, err := s.Query(ctx, stmts)
	if err != nil {
		return r, false, fmt.Errorf("latestrun: %w", err)
	}
	if len(outputs[0]) == 0 {
		return r, false, nil
	}
	values := outputs[0][0]
	if len(values) != 2 {
		return r, false, fmt.Errorf("latestrun: expected 2 columns, got %d", len(values))
	}
	if r.ID, ok = values[0].(string); !ok {
		return r, false, fmt.Errorf("latestrun: id: expected string, got %T", values[0])
	}
	created, ok := values[1].(string)
	if !ok {
		return r, false, fmt.Errorf("latestrun: created: expected string, got %T", values[1])
	}
	if r.Created, err = time.Parse(timeFormat, created); err != nil {
		return r, false, fmt.Errorf("latestrun: failed to parse created time: %w", err)
	}
	return r, true, nil
}

func newTrialFromValues(values []any) (t localcluster.Trial, err error) {
	if len(values) != 9 {
		return t, fmt.Errorf("row: expected 9 columns, got %d", len(values))
	}
	var ok bool
	if t.RunID, ok = values[0].(string); !ok {
		return t, fmt.Errorf("row: run_id: expected string, got %T", values[0])
	}
	ints, err := int64sOf(values[1:])
	if err != nil {
		return t, err
	}
	t.Seq, t.K = int(ints[0]), int(ints[1])
	t.Disk = measurementOf(ints[2:5])
	t.Mem = measurementOf(ints[5:8])
	return t, nil
}

func newAggregateFromValues(values []any) (a localcluster.Aggregate, err error) {
	if len(values) != 8 {
		return a, fmt.Errorf("row: expected 8 columns, got %d", len(values))
	}
	var ok bool
	if a.RunID, ok = values[0].(string); !ok {
		return a, fmt.Errorf("row: run_id: expected string, got %T", values[0])
	}
	ints, err := int64sOf(values[1:])
	if err != nil {
		return a, err
	}
	a.K = int(ints[0])
	a.Disk = measurementOf(ints[1:4])
	a.Mem = measurementOf(ints[4:7])
	return a, nil
}

func measurementOf(v []int64) localcluster.Measurement {
	return localcluster.Measurement{
		TimeMillis:          v[0],
		ClusterSize:         v[1],
		SymmetricDifference: v[2],
	}
}

func int64sOf(values []any) ([]int64, error) {
	ints := make([]int64, len(values))
	for i, v := range values {
		n, err := int64Of(v)
		if err != nil {
			return nil, fmt.Errorf("row: column %d: %w", i+1, err)
		}
		ints[i] = n
	}
	return ints, nil
}

// int64Of converts a JSON number from rqlite.
func int64Of(v any) (int64, error) {
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("expected float64, got %T", v)
	}
	return int64(f), nil
}
