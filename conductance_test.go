package localcluster_test

import (
	"context"
	"math"
	"testing"

	"github.com/a-h/localcluster"
)

func TestConductance(t *testing.T) {
	ctx := context.Background()
	g := twoCliques()

	tests := []struct {
		name     string
		set      []int64
		expected float64
	}{
		{name: "One clique", set: []int64{0, 1, 2, 3, 4}, expected: 1.0 / 21},
		{name: "Single vertex", set: []int64{0}, expected: 1},
		{name: "Whole graph", set: []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, expected: 0},
		{name: "Duplicates are ignored", set: []int64{0, 0, 1, 2, 3, 4}, expected: 1.0 / 21},
		{name: "Empty set", set: nil, expected: 0},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			actual, err := localcluster.Conductance(ctx, g, test.set)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(actual-test.expected) > 1e-12 {
				t.Errorf("expected %v, got %v", test.expected, actual)
			}
		})
	}
}

func TestSymmetricDifference(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []int64
		expected int
	}{
		{name: "Identical", a: []int64{1, 2, 3}, b: []int64{3, 2, 1}, expected: 0},
		{name: "Disjoint", a: []int64{1, 2}, b: []int64{3}, expected: 3},
		{name: "Overlapping", a: []int64{1, 2, 3}, b: []int64{2, 3, 4, 5}, expected: 3},
		{name: "Empty", a: nil, b: []int64{1}, expected: 1},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if actual := localcluster.SymmetricDifference(test.a, test.b); actual != test.expected {
				t.Errorf("expected %d, got %d", test.expected, actual)
			}
		})
	}
}

func TestFractionOutside(t *testing.T) {
	if f := localcluster.FractionOutside([]int64{1, 2, 3, 4}, []int64{1, 2, 9}); f != 0.5 {
		t.Errorf("expected 0.5, got %v", f)
	}
	if f := localcluster.FractionOutside(nil, []int64{1}); f != 0 {
		t.Errorf("expected 0 for an empty set, got %v", f)
	}
}
