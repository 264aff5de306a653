package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/a-h/localcluster"
	"github.com/a-h/localcluster/memgraph"
	"github.com/a-h/localcluster/neo4jgraph"
)

type fakeNode struct {
	labels     []string
	properties map[string]any
}

type fakeMovieGraph struct {
	*memgraph.Graph
	nodes       map[int64]fakeNode
	propertyErr error
	closeErr    error
	closeCalls  int
}

func (f *fakeMovieGraph) QueryID(ctx context.Context, property string, value any) (int64, bool, error) {
	for id, n := range f.nodes {
		if n.properties[property] == value {
			return id, true, nil
		}
	}
	return 0, false, nil
}

func (f *fakeMovieGraph) QueryNodeLabels(ctx context.Context, id int64) ([]string, error) {
	return f.nodes[id].labels, nil
}

func (f *fakeMovieGraph) QueryProperty(ctx context.Context, id int64, property string) (any, bool, error) {
	if f.propertyErr != nil {
		return nil, false, f.propertyErr
	}
	v, ok := f.nodes[id].properties[property]
	return v, ok, nil
}

func (f *fakeMovieGraph) Close(ctx context.Context) error {
	f.closeCalls++
	return f.closeErr
}

// newFakeMovieGraph returns two groups of five nodes, each fully connected,
// joined by a single relationship between nodes 4 and 5.
func newFakeMovieGraph() *fakeMovieGraph {
	g := memgraph.New()
	for _, offset := range []int64{0, 5} {
		for i := int64(0); i < 5; i++ {
			for j := i + 1; j < 5; j++ {
				g.SetEdge(offset+i, offset+j, 1)
			}
		}
	}
	g.SetEdge(4, 5, 1)
	nodes := map[int64]fakeNode{
		0: {labels: []string{"Movie"}, properties: map[string]any{"title": "The Matrix"}},
		1: {labels: []string{"Person"}, properties: map[string]any{"name": "Keanu Reeves"}},
		2: {labels: []string{"Person", "Actor"}, properties: map[string]any{"name": "Carrie-Anne Moss"}},
		3: {labels: []string{"Studio"}, properties: map[string]any{"name": "Warner Bros."}},
		4: {labels: []string{"Movie"}, properties: map[string]any{"title": "The Matrix Reloaded"}},
	}
	for i := int64(5); i < 10; i++ {
		nodes[i] = fakeNode{labels: []string{"Person"}, properties: map[string]any{"name": fmt.Sprintf("Person %d", i)}}
	}
	return &fakeMovieGraph{Graph: g, nodes: nodes}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPrintMovieCluster(t *testing.T) {
	ctx := context.Background()

	t.Run("Prints the movies and people of the cluster", func(t *testing.T) {
		g := newFakeMovieGraph()
		open := func(context.Context, neo4jgraph.Config) (movieGraph, error) { return g, nil }
		var out bytes.Buffer
		if err := printMovieCluster(ctx, open, neo4jgraph.Config{}, "The Matrix", 100, &out, discardLogger()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cluster, err := localcluster.LocalCluster(ctx, newFakeMovieGraph(), 0, 100)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var expected []string
		for _, v := range cluster {
			n := g.nodes[v]
			switch {
			case n.labels[0] == "Movie":
				expected = append(expected, "Movie: "+n.properties["title"].(string))
			case n.labels[0] == "Person":
				expected = append(expected, "Person: "+n.properties["name"].(string))
			}
		}
		actual := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
		if strings.Join(actual, "\n") != strings.Join(expected, "\n") {
			t.Errorf("expected:\n%s\ngot:\n%s", strings.Join(expected, "\n"), out.String())
		}
		if strings.Contains(out.String(), "Warner") {
			t.Error("expected nodes that are neither movies nor people to be skipped")
		}
		if g.closeCalls != 1 {
			t.Errorf("expected the connection to be closed once, got %d", g.closeCalls)
		}
	})
	t.Run("Missing movies are an error", func(t *testing.T) {
		g := newFakeMovieGraph()
		open := func(context.Context, neo4jgraph.Config) (movieGraph, error) { return g, nil }
		var out bytes.Buffer
		err := printMovieCluster(ctx, open, neo4jgraph.Config{}, "Cats", 100, &out, discardLogger())
		var notFound *MovieNotFoundError
		if !errors.As(err, &notFound) {
			t.Fatalf("expected a MovieNotFoundError, got %v", err)
		}
		if err.Error() != `couldn't find a movie titled "Cats"` {
			t.Errorf("unexpected message %q", err.Error())
		}
		if out.Len() != 0 {
			t.Errorf("expected no output, got %q", out.String())
		}
		if g.closeCalls != 1 {
			t.Errorf("expected the connection to be closed once, got %d", g.closeCalls)
		}
	})
	t.Run("Query failures are returned after closing the connection", func(t *testing.T) {
		expected := errors.New("session expired")
		g := newFakeMovieGraph()
		g.propertyErr = expected
		open := func(context.Context, neo4jgraph.Config) (movieGraph, error) { return g, nil }
		err := printMovieCluster(ctx, open, neo4jgraph.Config{}, "The Matrix", 100, io.Discard, discardLogger())
		if !errors.Is(err, expected) {
			t.Errorf("expected %v, got %v", expected, err)
		}
		if g.closeCalls != 1 {
			t.Errorf("expected the connection to be closed once, got %d", g.closeCalls)
		}
	})
	t.Run("Close failures are joined to the result", func(t *testing.T) {
		expected := errors.New("broken pipe")
		g := newFakeMovieGraph()
		g.closeErr = expected
		open := func(context.Context, neo4jgraph.Config) (movieGraph, error) { return g, nil }
		err := printMovieCluster(ctx, open, neo4jgraph.Config{}, "Cats", 100, io.Discard, discardLogger())
		if !errors.Is(err, expected) {
			t.Errorf("expected %v, got %v", expected, err)
		}
		var notFound *MovieNotFoundError
		if !errors.As(err, &notFound) {
			t.Errorf("expected the MovieNotFoundError to be kept, got %v", err)
		}
		if g.closeCalls != 1 {
			t.Errorf("expected the connection to be closed once, got %d", g.closeCalls)
		}
	})
	t.Run("Connection failures are returned", func(t *testing.T) {
		expected := errors.New("connection refused")
		open := func(context.Context, neo4jgraph.Config) (movieGraph, error) { return nil, expected }
		err := printMovieCluster(ctx, open, neo4jgraph.Config{}, "The Matrix", 100, io.Discard, discardLogger())
		if !errors.Is(err, expected) {
			t.Errorf("expected %v, got %v", expected, err)
		}
	})
}
