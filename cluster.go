package localcluster

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// DefaultLocality is the teleport probability used by LocalCluster. It should
// be a little larger than the conductance of the cluster being looked for.
const DefaultLocality = 0.01

// ErrInvalidVolume is returned when the target volume of a cluster is not positive.
var ErrInvalidVolume = errors.New("target volume must be positive")

// LocalCluster finds a cluster of roughly targetVolume volume around seed.
//
// The returned vertices are in sweep order, seed first in most cases. Only the
// neighborhood of the seed is ever queried.
func LocalCluster(ctx context.Context, g LocalGraph, seed int64, targetVolume float64) ([]int64, error) {
	if targetVolume <= 0 {
		return nil, fmt.Errorf("local cluster: %w: got %v", ErrInvalidVolume, targetVolume)
	}
	return ACL(ctx, g, seed, DefaultLocality, 1/targetVolume)
}

// ACL runs the Andersen-Chung-Lang local clustering algorithm: an approximate
// personalised PageRank vector from seed, followed by a sweep set cut.
func ACL(ctx context.Context, g LocalGraph, seed int64, alpha, epsilon float64) ([]int64, error) {
	cg := newCachedGraph(g)
	d, err := cg.Degree(ctx, seed)
	if err != nil {
		return nil, fmt.Errorf("acl: %w", err)
	}
	if d == 0 {
		return []int64{seed}, nil
	}
	p, _, err := ApproximatePageRank(ctx, cg, map[int64]float64{seed: 1}, alpha, epsilon)
	if err != nil {
		return nil, fmt.Errorf("acl: %w", err)
	}
	cluster, err := SweepSet(ctx, cg, p)
	if err != nil {
		return nil, fmt.Errorf("acl: %w", err)
	}
	return cluster, nil
}

// ApproximatePageRank computes an approximate personalised PageRank vector p,
// and the residual r, for the lazy random walk on g.
//
// alpha is the teleport probability and epsilon the approximation error. On
// return every vertex u satisfies r(u) < epsilon * deg(u).
func ApproximatePageRank(ctx context.Context, g LocalGraph, seed map[int64]float64, alpha, epsilon float64) (p, r map[int64]float64, err error) {
	if alpha <= 0 || alpha > 1 {
		return nil, nil, fmt.Errorf("approximate pagerank: alpha must be in (0, 1], got %v", alpha)
	}
	if epsilon <= 0 {
		return nil, nil, fmt.Errorf("approximate pagerank: epsilon must be positive, got %v", epsilon)
	}
	cg := newCachedGraph(g)

	p = make(map[int64]float64)
	r = make(map[int64]float64, len(seed))
	var queue []int64
	queued := make(map[int64]bool)
	for v, mass := range seed {
		r[v] = mass
	}
	// Deterministic start order.
	for _, v := range sortedKeys(seed) {
		queue = append(queue, v)
		queued[v] = true
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		u := queue[0]
		queue = queue[1:]
		queued[u] = false

		du, err := cg.Degree(ctx, u)
		if err != nil {
			return nil, nil, err
		}
		if du == 0 {
			// Nowhere for the walk to go.
			p[u] += r[u]
			delete(r, u)
			continue
		}
		if r[u] < epsilon*du {
			continue
		}

		edges, err := cg.Neighbors(ctx, u)
		if err != nil {
			return nil, nil, err
		}
		touched := make([]int64, 0, len(edges))
		for _, e := range edges {
			touched = append(touched, e.To)
		}
		if err := cg.prefetchDegrees(ctx, touched); err != nil {
			return nil, nil, err
		}

		ru := r[u]
		p[u] += alpha * ru
		r[u] = (1 - alpha) * ru / 2
		spread := (1 - alpha) * ru / (2 * du)
		for _, e := range edges {
			r[e.To] += spread * e.Weight
		}

		for _, v := range append(touched, u) {
			if queued[v] {
				continue
			}
			dv, err := cg.Degree(ctx, v)
			if err != nil {
				return nil, nil, err
			}
			if dv == 0 || r[v] >= epsilon*dv {
				queue = append(queue, v)
				queued[v] = true
			}
		}
	}
	return p, r, nil
}

// SweepSet orders the support of vec by vec(v)/deg(v) and returns the prefix
// of that order with the lowest conductance.
//
// Conductance is cut(S)/vol(S), or cut(S)/min(vol(S), vol(V)-vol(S)) when g
// implements Volumer.
func SweepSet(ctx context.Context, g LocalGraph, vec map[int64]float64) ([]int64, error) {
	cg := newCachedGraph(g)
	support := make([]int64, 0, len(vec))
	for v, x := range vec {
		if x > 0 {
			support = append(support, v)
		}
	}
	if err := cg.prefetchDegrees(ctx, support); err != nil {
		return nil, fmt.Errorf("sweep set: %w", err)
	}

	type scored struct {
		v     int64
		score float64
	}
	order := make([]scored, 0, len(support))
	for _, v := range support {
		d := cg.degrees[v]
		if d == 0 {
			continue
		}
		order = append(order, scored{v: v, score: vec[v] / d})
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].score != order[j].score {
			return order[i].score > order[j].score
		}
		return order[i].v < order[j].v
	})
	if len(order) == 0 {
		return nil, nil
	}

	total, hasTotal, err := totalVolume(ctx, cg.g)
	if err != nil {
		return nil, fmt.Errorf("sweep set: %w", err)
	}

	inSet := make(map[int64]bool, len(order))
	var vol, cut float64
	best, bestConductance := len(order)-1, 0.0
	found := false
	for i, s := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		inSet[s.v] = true
		vol += cg.degrees[s.v]
		edges, err := cg.Neighbors(ctx, s.v)
		if err != nil {
			return nil, fmt.Errorf("sweep set: %w", err)
		}
		for _, e := range edges {
			if e.To == s.v {
				continue
			}
			if inSet[e.To] {
				cut -= e.Weight
			} else {
				cut += e.Weight
			}
		}
		denominator := vol
		if hasTotal {
			denominator = min(vol, total-vol)
		}
		if denominator <= 0 {
			continue
		}
		conductance := cut / denominator
		if !found || conductance < bestConductance {
			best, bestConductance, found = i, conductance, true
		}
	}

	cluster := make([]int64, best+1)
	for i := range cluster {
		cluster[i] = order[i].v
	}
	return cluster, nil
}

func sortedKeys(m map[int64]float64) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
