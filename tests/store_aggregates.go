package tests

import (
	"context"
	"testing"

	"github.com/a-h/localcluster"
)

func newAggregatesTest(ctx context.Context, store localcluster.Store) func(t *testing.T) {
	return func(t *testing.T) {
		t.Run("Can put and list aggregates in k order", func(t *testing.T) {
			expected := []localcluster.Aggregate{
				{RunID: "aggregates/a", K: 10, Disk: measurement(30), Mem: measurement(13)},
				{RunID: "aggregates/a", K: 20, Disk: measurement(34), Mem: measurement(21)},
				{RunID: "aggregates/a", K: 100, Disk: measurement(36), Mem: measurement(120)},
			}
			for _, i := range []int{1, 2, 0} {
				if err := store.PutAggregate(ctx, expected[i]); err != nil {
					t.Fatalf("failed to put aggregate: %v", err)
				}
			}
			actual, err := store.Aggregates(ctx, "aggregates/a")
			if err != nil {
				t.Fatalf("unexpected error getting aggregates: %v", err)
			}
			if len(actual) != len(expected) {
				t.Fatalf("expected %d aggregates, got %d", len(expected), len(actual))
			}
			for i := range expected {
				if actual[i] != expected[i] {
					t.Errorf("aggregate %d: expected %+v, got %+v", i, expected[i], actual[i])
				}
			}
		})
		t.Run("Runs are kept apart", func(t *testing.T) {
			other := localcluster.Aggregate{RunID: "aggregates/b", K: 10, Disk: measurement(1), Mem: measurement(1)}
			if err := store.PutAggregate(ctx, other); err != nil {
				t.Fatalf("failed to put aggregate: %v", err)
			}
			actual, err := store.Aggregates(ctx, "aggregates/b")
			if err != nil {
				t.Fatalf("unexpected error getting aggregates: %v", err)
			}
			if len(actual) != 1 || actual[0] != other {
				t.Errorf("expected [%+v], got %+v", other, actual)
			}
		})
	}
}
