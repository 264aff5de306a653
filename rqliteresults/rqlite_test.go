package rqliteresults

import (
	"context"
	"os"
	"testing"

	"github.com/a-h/localcluster/tests"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
)

func TestRqlite(t *testing.T) {
	url := os.Getenv("RQLITE_URL")
	if url == "" {
		t.Skip("RQLITE_URL not set, e.g. http://localhost:4001")
	}
	client := rqlitehttp.NewClient(url, nil)
	if user := os.Getenv("RQLITE_USER"); user != "" {
		client.SetBasicAuth(user, os.Getenv("RQLITE_PASSWORD"))
	}

	store := New(client)
	reset := rqlitehttp.SQLStatements{
		{SQL: "drop table if exists trials"},
		{SQL: "drop table if exists aggregates"},
		{SQL: "drop table if exists runs"},
		{SQL: "drop table if exists migration_version"},
		{SQL: "drop table if exists migration_lock"},
	}
	if _, err := store.Mutate(context.Background(), reset); err != nil {
		t.Fatalf("failed to reset database: %v", err)
	}
	tests.Run(t, store)
}

func TestValueConversion(t *testing.T) {
	trial, err := newTrialFromValues([]any{"run", 3.0, 10.0, 40.0, 1002.0, 4.0, 300.0, 1001.0, 5.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trial.RunID != "run" || trial.Seq != 3 || trial.K != 10 {
		t.Errorf("unexpected trial %+v", trial)
	}
	if trial.Disk.TimeMillis != 40 || trial.Mem.ClusterSize != 1001 || trial.Mem.SymmetricDifference != 5 {
		t.Errorf("unexpected measurements %+v", trial)
	}
	if _, err := newTrialFromValues([]any{"run", "3"}); err == nil {
		t.Error("expected an error for a short row")
	}
	if _, err := newAggregateFromValues([]any{"run", "10", 1.0, 1.0, 1.0, 1.0, 1.0, 1.0}); err == nil {
		t.Error("expected an error for a non-numeric k")
	}
	agg, err := newAggregateFromValues([]any{"run", 20.0, 1.0, 2.0, 3.0, 4.0, 5.0, 6.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if agg.K != 20 || agg.Disk.SymmetricDifference != 3 || agg.Mem.TimeMillis != 4 {
		t.Errorf("unexpected aggregate %+v", agg)
	}
}

func TestStatements(t *testing.T) {
	stmts := statements("create table a (id integer);\n\ncreate index a_id on a (id);\n")
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(stmts))
	}
	if stmts[1].SQL != "create index a_id on a (id)" {
		t.Errorf("unexpected statement %q", stmts[1].SQL)
	}
	if len(statements("  \n")) != 0 {
		t.Error("expected no statements for an empty script")
	}
}
