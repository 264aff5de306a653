package tests

import (
	"context"
	"testing"
	"time"

	"github.com/a-h/localcluster"
)

func newRunsTest(ctx context.Context, store localcluster.Store) func(t *testing.T) {
	return func(t *testing.T) {
		defer store.SetNow(nil)

		t.Run("An empty store has no latest run", func(t *testing.T) {
			_, ok, err := store.LatestRun(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok {
				t.Error("expected no run")
			}
		})
		t.Run("The latest run is the most recently created", func(t *testing.T) {
			// Far in the future, so that runs written by other tests are older.
			older := time.Date(2100, time.January, 1, 0, 0, 0, 0, time.UTC)
			newer := older.Add(90 * time.Minute)

			store.SetNow(fixedTime(newer))
			if err := store.PutAggregate(ctx, localcluster.Aggregate{RunID: "runs/newer", K: 10}); err != nil {
				t.Fatalf("failed to put aggregate: %v", err)
			}
			store.SetNow(fixedTime(older))
			if err := store.PutTrial(ctx, localcluster.Trial{RunID: "runs/older", K: 10}); err != nil {
				t.Fatalf("failed to put trial: %v", err)
			}

			r, ok, err := store.LatestRun(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !ok {
				t.Fatal("expected a run")
			}
			if r.ID != "runs/newer" {
				t.Errorf("expected run %q, got %q", "runs/newer", r.ID)
			}
			if !r.Created.Equal(newer) {
				t.Errorf("expected created %v, got %v", newer, r.Created)
			}
		})
		t.Run("Writing to a run keeps its created time", func(t *testing.T) {
			store.SetNow(fixedTime(time.Date(2200, time.January, 1, 0, 0, 0, 0, time.UTC)))
			if err := store.PutTrial(ctx, localcluster.Trial{RunID: "runs/older", Seq: 1, K: 10}); err != nil {
				t.Fatalf("failed to put trial: %v", err)
			}
			r, _, err := store.LatestRun(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.ID != "runs/newer" {
				t.Errorf("expected run %q to still be the latest, got %q", "runs/newer", r.ID)
			}
		})
	}
}
