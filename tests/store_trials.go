package tests

import (
	"context"
	"testing"

	"github.com/a-h/localcluster"
)

func newTrialsTest(ctx context.Context, store localcluster.Store) func(t *testing.T) {
	return func(t *testing.T) {
		t.Run("Can put and list trials in sequence order", func(t *testing.T) {
			expected := []localcluster.Trial{
				{RunID: "trials/a", Seq: 0, K: 10, Disk: measurement(31), Mem: measurement(12)},
				{RunID: "trials/a", Seq: 1, K: 10, Disk: measurement(29), Mem: measurement(14)},
				{RunID: "trials/a", Seq: 2, K: 20, Disk: measurement(35), Mem: measurement(22)},
			}
			// Written out of order, to check the ordering.
			for _, i := range []int{2, 0, 1} {
				if err := store.PutTrial(ctx, expected[i]); err != nil {
					t.Fatalf("failed to put trial: %v", err)
				}
			}
			actual, err := store.Trials(ctx, "trials/a")
			if err != nil {
				t.Fatalf("unexpected error getting trials: %v", err)
			}
			if len(actual) != len(expected) {
				t.Fatalf("expected %d trials, got %d", len(expected), len(actual))
			}
			for i := range expected {
				if actual[i] != expected[i] {
					t.Errorf("trial %d: expected %+v, got %+v", i, expected[i], actual[i])
				}
			}
		})
		t.Run("Putting a trial again replaces it", func(t *testing.T) {
			trial := localcluster.Trial{RunID: "trials/b", Seq: 0, K: 10, Disk: measurement(1), Mem: measurement(2)}
			if err := store.PutTrial(ctx, trial); err != nil {
				t.Fatalf("failed to put trial: %v", err)
			}
			trial.Disk = measurement(3)
			if err := store.PutTrial(ctx, trial); err != nil {
				t.Fatalf("failed to put trial: %v", err)
			}
			actual, err := store.Trials(ctx, "trials/b")
			if err != nil {
				t.Fatalf("unexpected error getting trials: %v", err)
			}
			if len(actual) != 1 || actual[0] != trial {
				t.Errorf("expected [%+v], got %+v", trial, actual)
			}
		})
		t.Run("Unknown runs have no trials", func(t *testing.T) {
			actual, err := store.Trials(ctx, "trials/missing")
			if err != nil {
				t.Fatalf("unexpected error getting trials: %v", err)
			}
			if len(actual) != 0 {
				t.Errorf("expected no trials, got %+v", actual)
			}
		})
	}
}
