package adjlist

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/a-h/localcluster/memgraph"
)

// ReadEdgeList reads lines of "u v" or "u v w" into memory. Missing weights
// default to 1.
func ReadEdgeList(r io.Reader) (*memgraph.Graph, error) {
	g := memgraph.New()
	scanner := bufio.NewScanner(r)
	var lineNumber int
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if IsComment(line) {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 && len(fields) != 3 {
			return nil, fmt.Errorf("edge list: line %d: expected 2 or 3 fields, got %d", lineNumber, len(fields))
		}
		u, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("edge list: line %d: %w", lineNumber, err)
		}
		v, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("edge list: line %d: %w", lineNumber, err)
		}
		w := 1.0
		if len(fields) == 3 {
			if w, err = strconv.ParseFloat(fields[2], 64); err != nil {
				return nil, fmt.Errorf("edge list: line %d: %w", lineNumber, err)
			}
		}
		g.SetEdge(u, v, w)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("edge list: %w", err)
	}
	return g, nil
}

// ConvertEdgeList converts the edge list at src into a sorted adjacency list at dst.
func ConvertEdgeList(src, dst string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	g, err := ReadEdgeList(f)
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}
	return writeFile(dst, g)
}

// Shuffle writes a copy of the adjacency list at src to dst with the vertices
// randomly relabelled. It returns the permutation applied, from old id to new id.
//
// The new ids are the old ids reordered, so a graph on 0..n-1 stays on 0..n-1.
func Shuffle(src, dst string, rng *rand.Rand) (perm map[int64]int64, err error) {
	g, err := Load(src)
	if err != nil {
		return nil, err
	}
	ctx := context.Background()
	vertices := g.Vertices()
	targets := make([]int64, len(vertices))
	copy(targets, vertices)
	rng.Shuffle(len(targets), func(i, j int) { targets[i], targets[j] = targets[j], targets[i] })
	perm = make(map[int64]int64, len(vertices))
	for i, v := range vertices {
		perm[v] = targets[i]
	}
	shuffled := memgraph.New()
	for _, v := range vertices {
		shuffled.AddVertex(perm[v])
		edges, err := g.Neighbors(ctx, v)
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			if e.To < v {
				continue
			}
			shuffled.SetEdge(perm[e.From], perm[e.To], e.Weight)
		}
	}
	if err = writeFile(dst, shuffled); err != nil {
		return nil, err
	}
	return perm, nil
}

// writeFile writes g to a temporary file next to path and renames it into
// place, so that a partially written file never has the final name.
func writeFile(path string, g *memgraph.Graph) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()
	if err = Write(f, g); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}
