package localcluster

import (
	"context"
	"fmt"
)

// Edge is a weighted, undirected edge seen from the From vertex.
type Edge struct {
	From   int64   `json:"from"`
	To     int64   `json:"to"`
	Weight float64 `json:"weight"`
}

// LocalGraph is a graph that can only be queried one vertex at a time.
//
// Implementations must treat vertices they don't know about as isolated:
// degree 0 and no neighbors.
type LocalGraph interface {
	// Degree returns the weighted degree of v.
	Degree(ctx context.Context, v int64) (float64, error)
	// Neighbors returns the edges incident to v. Each edge has From == v.
	Neighbors(ctx context.Context, v int64) ([]Edge, error)
}

// DegreeBatcher is implemented by graphs that can look up many degrees in one
// round trip, e.g. a remote database.
type DegreeBatcher interface {
	Degrees(ctx context.Context, vs []int64) ([]float64, error)
}

// Volumer is implemented by graphs that know their total volume without a
// full scan.
type Volumer interface {
	Volume(ctx context.Context) (float64, error)
}

// Local hides any optional interfaces of g, such as Volumer, so that the
// clustering only sees what a purely local graph would provide. Use it to
// compare backends that don't all know their volume.
func Local(g LocalGraph) LocalGraph {
	return localOnly{g}
}

type localOnly struct {
	g LocalGraph
}

func (l localOnly) Degree(ctx context.Context, v int64) (float64, error) {
	return l.g.Degree(ctx, v)
}

func (l localOnly) Neighbors(ctx context.Context, v int64) ([]Edge, error) {
	return l.g.Neighbors(ctx, v)
}

func totalVolume(ctx context.Context, g LocalGraph) (total float64, ok bool, err error) {
	if cg, isCached := g.(*cachedGraph); isCached {
		g = cg.g
	}
	v, ok := g.(Volumer)
	if !ok {
		return 0, false, nil
	}
	total, err = v.Volume(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("volume: %w", err)
	}
	return total, true, nil
}

// Degrees returns the degrees of vs, using a single batch call if g supports it.
func Degrees(ctx context.Context, g LocalGraph, vs []int64) ([]float64, error) {
	if b, ok := g.(DegreeBatcher); ok {
		degrees, err := b.Degrees(ctx, vs)
		if err != nil {
			return nil, err
		}
		if len(degrees) != len(vs) {
			return nil, fmt.Errorf("degrees: expected %d results, got %d", len(vs), len(degrees))
		}
		return degrees, nil
	}
	degrees := make([]float64, len(vs))
	for i, v := range vs {
		d, err := g.Degree(ctx, v)
		if err != nil {
			return nil, err
		}
		degrees[i] = d
	}
	return degrees, nil
}

// cachedGraph memoises degree and neighbor lookups. The clustering algorithms
// revisit the same vertices many times, and each lookup may be a disk seek or
// a database query.
type cachedGraph struct {
	g         LocalGraph
	degrees   map[int64]float64
	neighbors map[int64][]Edge
}

func newCachedGraph(g LocalGraph) *cachedGraph {
	if cg, ok := g.(*cachedGraph); ok {
		return cg
	}
	return &cachedGraph{
		g:         g,
		degrees:   make(map[int64]float64),
		neighbors: make(map[int64][]Edge),
	}
}

func (cg *cachedGraph) Degree(ctx context.Context, v int64) (float64, error) {
	if d, ok := cg.degrees[v]; ok {
		return d, nil
	}
	d, err := cg.g.Degree(ctx, v)
	if err != nil {
		return 0, fmt.Errorf("degree of %d: %w", v, err)
	}
	cg.degrees[v] = d
	return d, nil
}

func (cg *cachedGraph) Neighbors(ctx context.Context, v int64) ([]Edge, error) {
	if edges, ok := cg.neighbors[v]; ok {
		return edges, nil
	}
	edges, err := cg.g.Neighbors(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("neighbors of %d: %w", v, err)
	}
	cg.neighbors[v] = edges
	return edges, nil
}

// prefetchDegrees loads the degrees of any uncached vertices in vs. Each
// vertex is requested once, even when vs repeats it, as it does for the
// endpoints of parallel edges.
func (cg *cachedGraph) prefetchDegrees(ctx context.Context, vs []int64) error {
	var missing []int64
	requested := make(map[int64]bool, len(vs))
	for _, v := range vs {
		if _, ok := cg.degrees[v]; ok || requested[v] {
			continue
		}
		requested[v] = true
		missing = append(missing, v)
	}
	if len(missing) == 0 {
		return nil
	}
	degrees, err := Degrees(ctx, cg.g, missing)
	if err != nil {
		return fmt.Errorf("prefetch degrees: %w", err)
	}
	for i, v := range missing {
		cg.degrees[v] = degrees[i]
	}
	return nil
}
