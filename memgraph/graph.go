// Package memgraph is an in-memory weighted undirected graph that satisfies
// localcluster.LocalGraph.
package memgraph

import (
	"context"
	"sort"

	"github.com/a-h/localcluster"
	"gonum.org/v1/gonum/graph/simple"
)

// Graph wraps a gonum weighted undirected graph. gonum does not allow
// self-loops, so they are kept alongside.
//
// Graph is not safe for concurrent mutation.
type Graph struct {
	g      *simple.WeightedUndirectedGraph
	loops  map[int64]float64
	volume float64
	dirty  bool
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		g:     simple.NewWeightedUndirectedGraph(0, 0),
		loops: make(map[int64]float64),
	}
}

// AddVertex adds v with no edges. It is a no-op if v exists.
func (g *Graph) AddVertex(v int64) {
	if g.g.Node(v) == nil {
		g.g.AddNode(simple.Node(v))
	}
}

// SetEdge sets the weight of the undirected edge u-v, replacing any existing weight.
func (g *Graph) SetEdge(u, v int64, weight float64) {
	g.dirty = true
	if u == v {
		g.AddVertex(u)
		g.loops[u] = weight
		return
	}
	g.g.SetWeightedEdge(g.g.NewWeightedEdge(simple.Node(u), simple.Node(v), weight))
}

// HasVertex reports whether v has been added to the graph.
func (g *Graph) HasVertex(v int64) bool {
	return g.g.Node(v) != nil
}

// Order returns the number of vertices.
func (g *Graph) Order() int {
	return g.g.Nodes().Len()
}

// Vertices returns all vertex ids in ascending order.
func (g *Graph) Vertices() []int64 {
	nodes := g.g.Nodes()
	ids := make([]int64, 0, nodes.Len())
	for nodes.Next() {
		ids = append(ids, nodes.Node().ID())
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Degree returns the weighted degree of v. A self-loop counts once.
func (g *Graph) Degree(_ context.Context, v int64) (float64, error) {
	return g.degree(v), nil
}

func (g *Graph) degree(v int64) float64 {
	if g.g.Node(v) == nil {
		return 0
	}
	d := g.loops[v]
	neighbors := g.g.From(v)
	for neighbors.Next() {
		w, _ := g.g.Weight(v, neighbors.Node().ID())
		d += w
	}
	return d
}

// Neighbors returns the edges of v in ascending order of the other endpoint.
func (g *Graph) Neighbors(_ context.Context, v int64) ([]localcluster.Edge, error) {
	if g.g.Node(v) == nil {
		return nil, nil
	}
	var edges []localcluster.Edge
	if w, ok := g.loops[v]; ok {
		edges = append(edges, localcluster.Edge{From: v, To: v, Weight: w})
	}
	neighbors := g.g.From(v)
	for neighbors.Next() {
		u := neighbors.Node().ID()
		w, _ := g.g.Weight(v, u)
		edges = append(edges, localcluster.Edge{From: v, To: u, Weight: w})
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].To < edges[j].To })
	return edges, nil
}

// Volume returns the sum of all degrees.
func (g *Graph) Volume(_ context.Context) (float64, error) {
	if g.dirty {
		var vol float64
		nodes := g.g.Nodes()
		for nodes.Next() {
			vol += g.degree(nodes.Node().ID())
		}
		g.volume = vol
		g.dirty = false
	}
	return g.volume, nil
}
