// Package tests is a conformance suite run against every localcluster.Store.
package tests

import (
	"context"
	"testing"
	"time"

	"github.com/a-h/localcluster"
)

// Run runs the suite against an empty store. The store is initialised first.
func Run(t *testing.T, store localcluster.Store) {
	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Run("Init is idempotent", func(t *testing.T) {
		if err := store.Init(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	// The empty store test must run before anything is written.
	t.Run("Runs", newRunsTest(ctx, store))
	t.Run("Trials", newTrialsTest(ctx, store))
	t.Run("Aggregates", newAggregatesTest(ctx, store))
}

func measurement(n int64) localcluster.Measurement {
	return localcluster.Measurement{TimeMillis: n, ClusterSize: 1000 + n, SymmetricDifference: n % 7}
}

func fixedTime(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
