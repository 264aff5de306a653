package localcluster

import (
	"context"
	"fmt"
)

// Conductance returns cut(S)/vol(S) for the vertex set S.
//
// An empty set, or one with no volume, has conductance 0.
func Conductance(ctx context.Context, g LocalGraph, set []int64) (float64, error) {
	inSet := make(map[int64]bool, len(set))
	for _, v := range set {
		inSet[v] = true
	}
	var vol, cut float64
	for v := range inSet {
		d, err := g.Degree(ctx, v)
		if err != nil {
			return 0, fmt.Errorf("conductance: %w", err)
		}
		vol += d
		edges, err := g.Neighbors(ctx, v)
		if err != nil {
			return 0, fmt.Errorf("conductance: %w", err)
		}
		for _, e := range edges {
			if !inSet[e.To] {
				cut += e.Weight
			}
		}
	}
	if vol == 0 {
		return 0, nil
	}
	return cut / vol, nil
}

// SymmetricDifference returns |a \ b| + |b \ a|. Duplicates are ignored.
func SymmetricDifference(a, b []int64) int {
	inA, inB := toSet(a), toSet(b)
	var n int
	for v := range inA {
		if !inB[v] {
			n++
		}
	}
	for v := range inB {
		if !inA[v] {
			n++
		}
	}
	return n
}

// FractionOutside returns the fraction of a that is not in b.
func FractionOutside(a, b []int64) float64 {
	inA, inB := toSet(a), toSet(b)
	if len(inA) == 0 {
		return 0
	}
	var outside int
	for v := range inA {
		if !inB[v] {
			outside++
		}
	}
	return float64(outside) / float64(len(inA))
}

func toSet(vs []int64) map[int64]bool {
	m := make(map[int64]bool, len(vs))
	for _, v := range vs {
		m[v] = true
	}
	return m
}
