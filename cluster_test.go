package localcluster_test

import (
	"context"
	"errors"
	"math"
	"sort"
	"testing"

	"github.com/a-h/localcluster"
	"github.com/a-h/localcluster/memgraph"
)

// twoCliques returns two 5-cliques, 0-4 and 5-9, joined by the edge 4-5.
func twoCliques() *memgraph.Graph {
	g := memgraph.New()
	for _, offset := range []int64{0, 5} {
		for i := int64(0); i < 5; i++ {
			for j := i + 1; j < 5; j++ {
				g.SetEdge(offset+i, offset+j, 1)
			}
		}
	}
	g.SetEdge(4, 5, 1)
	return g
}

// countingGraph counts calls to the underlying graph.
type countingGraph struct {
	localcluster.LocalGraph
	degreeCalls    int
	neighborsCalls int
}

func (cg *countingGraph) Degree(ctx context.Context, v int64) (float64, error) {
	cg.degreeCalls++
	return cg.LocalGraph.Degree(ctx, v)
}

func (cg *countingGraph) Neighbors(ctx context.Context, v int64) ([]localcluster.Edge, error) {
	cg.neighborsCalls++
	return cg.LocalGraph.Neighbors(ctx, v)
}

func sorted(vs []int64) []int64 {
	out := append([]int64(nil), vs...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func equal(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// multigraph is a batching graph that allows parallel edges. Like a Cypher
// aggregation, its Degrees call returns one row per distinct id.
type multigraph struct {
	adjacency map[int64][]localcluster.Edge
	repeated  []int64
}

func newMultigraph(edges ...[2]int64) *multigraph {
	g := &multigraph{adjacency: make(map[int64][]localcluster.Edge)}
	for _, e := range edges {
		g.adjacency[e[0]] = append(g.adjacency[e[0]], localcluster.Edge{From: e[0], To: e[1], Weight: 1})
		g.adjacency[e[1]] = append(g.adjacency[e[1]], localcluster.Edge{From: e[1], To: e[0], Weight: 1})
	}
	return g
}

func (g *multigraph) Degree(ctx context.Context, v int64) (float64, error) {
	return float64(len(g.adjacency[v])), nil
}

func (g *multigraph) Neighbors(ctx context.Context, v int64) ([]localcluster.Edge, error) {
	return g.adjacency[v], nil
}

func (g *multigraph) Degrees(ctx context.Context, vs []int64) ([]float64, error) {
	seen := make(map[int64]bool, len(vs))
	var degrees []float64
	for _, v := range vs {
		if seen[v] {
			g.repeated = append(g.repeated, v)
			continue
		}
		seen[v] = true
		degrees = append(degrees, float64(len(g.adjacency[v])))
	}
	return degrees, nil
}

func TestApproximatePageRank(t *testing.T) {
	ctx := context.Background()
	g := twoCliques()
	const alpha, epsilon = 0.1, 1e-4

	p, r, err := localcluster.ApproximatePageRank(ctx, g, map[int64]float64{0: 1}, alpha, epsilon)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("Residuals are below the threshold", func(t *testing.T) {
		for v, rv := range r {
			d, _ := g.Degree(ctx, v)
			if rv >= epsilon*d {
				t.Errorf("vertex %d: residual %v is not below %v", v, rv, epsilon*d)
			}
		}
	})
	t.Run("Probability mass is conserved", func(t *testing.T) {
		var total float64
		for _, pv := range p {
			total += pv
		}
		for _, rv := range r {
			total += rv
		}
		if math.Abs(total-1) > 1e-9 {
			t.Errorf("expected total mass 1, got %v", total)
		}
	})
	t.Run("The seed has the most mass", func(t *testing.T) {
		for v, pv := range p {
			if v != 0 && pv >= p[0] {
				t.Errorf("vertex %d has mass %v, not less than the seed's %v", v, pv, p[0])
			}
		}
	})
	t.Run("Parallel edges are fetched once per endpoint", func(t *testing.T) {
		g := newMultigraph([2]int64{0, 1}, [2]int64{0, 1}, [2]int64{0, 2}, [2]int64{1, 2})
		p, r, err := localcluster.ApproximatePageRank(ctx, g, map[int64]float64{0: 1}, alpha, epsilon)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(g.repeated) > 0 {
			t.Errorf("expected each vertex to be requested once per batch, repeated %v", g.repeated)
		}
		var total float64
		for _, pv := range p {
			total += pv
		}
		for _, rv := range r {
			total += rv
		}
		if math.Abs(total-1) > 1e-9 {
			t.Errorf("expected total mass 1, got %v", total)
		}
	})
	t.Run("Invalid parameters are rejected", func(t *testing.T) {
		if _, _, err := localcluster.ApproximatePageRank(ctx, g, map[int64]float64{0: 1}, 0, epsilon); err == nil {
			t.Error("expected error for alpha=0")
		}
		if _, _, err := localcluster.ApproximatePageRank(ctx, g, map[int64]float64{0: 1}, alpha, 0); err == nil {
			t.Error("expected error for epsilon=0")
		}
	})
}

func TestACL(t *testing.T) {
	ctx := context.Background()

	t.Run("Finds the clique containing the seed", func(t *testing.T) {
		g := twoCliques()
		cluster, err := localcluster.ACL(ctx, g, 1, 0.1, 1e-4)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if expected := []int64{0, 1, 2, 3, 4}; !equal(sorted(cluster), expected) {
			t.Errorf("expected %v, got %v", expected, cluster)
		}
		cluster, err = localcluster.ACL(ctx, g, 8, 0.1, 1e-4)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if expected := []int64{5, 6, 7, 8, 9}; !equal(sorted(cluster), expected) {
			t.Errorf("expected %v, got %v", expected, cluster)
		}
	})
	t.Run("The seed comes first in sweep order", func(t *testing.T) {
		cluster, err := localcluster.ACL(ctx, twoCliques(), 2, 0.1, 1e-4)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cluster) == 0 || cluster[0] != 2 {
			t.Errorf("expected the seed first, got %v", cluster)
		}
	})
	t.Run("An isolated seed is its own cluster", func(t *testing.T) {
		g := twoCliques()
		g.AddVertex(42)
		cluster, err := localcluster.ACL(ctx, g, 42, 0.1, 1e-4)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !equal(cluster, []int64{42}) {
			t.Errorf("expected [42], got %v", cluster)
		}
	})
	t.Run("Lookups are cached", func(t *testing.T) {
		cg := &countingGraph{LocalGraph: localcluster.Local(twoCliques())}
		if _, err := localcluster.ACL(ctx, cg, 0, 0.1, 1e-4); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cg.degreeCalls > 10 {
			t.Errorf("expected at most one degree lookup per vertex, got %d", cg.degreeCalls)
		}
		if cg.neighborsCalls > 10 {
			t.Errorf("expected at most one neighbor lookup per vertex, got %d", cg.neighborsCalls)
		}
	})
}

func TestLocalCluster(t *testing.T) {
	ctx := context.Background()

	t.Run("Rejects non-positive volumes", func(t *testing.T) {
		for _, volume := range []float64{0, -1} {
			_, err := localcluster.LocalCluster(ctx, twoCliques(), 0, volume)
			if !errors.Is(err, localcluster.ErrInvalidVolume) {
				t.Errorf("volume %v: expected ErrInvalidVolume, got %v", volume, err)
			}
		}
	})
	t.Run("Returns the seed", func(t *testing.T) {
		cluster, err := localcluster.LocalCluster(ctx, twoCliques(), 3, 100)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var found bool
		for _, v := range cluster {
			found = found || v == 3
		}
		if !found {
			t.Errorf("expected the seed in %v", cluster)
		}
	})
	t.Run("Respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := localcluster.LocalCluster(ctx, twoCliques(), 0, 100); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestSweepSet(t *testing.T) {
	ctx := context.Background()
	g := twoCliques()

	t.Run("Picks the lowest conductance prefix", func(t *testing.T) {
		vec := map[int64]float64{
			0: 0.5, 1: 0.5, 2: 0.5, 3: 0.5, 4: 0.6,
			5: 0.05, 6: 0.01,
		}
		cluster, err := localcluster.SweepSet(ctx, g, vec)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if expected := []int64{0, 1, 2, 3, 4}; !equal(sorted(cluster), expected) {
			t.Errorf("expected %v, got %v", expected, cluster)
		}
	})
	t.Run("An empty vector gives an empty cluster", func(t *testing.T) {
		cluster, err := localcluster.SweepSet(ctx, g, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cluster) != 0 {
			t.Errorf("expected no vertices, got %v", cluster)
		}
	})
}
