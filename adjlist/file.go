package adjlist

import (
	"context"
	"fmt"
	"os"

	"github.com/a-h/localcluster"
	"github.com/a-h/localcluster/internal/linesearch"
)

// File is a graph backed by a sorted adjacency list on disk. Each query seeks
// to the vertex's line with a binary search, so only the lines of vertices
// that are visited are ever read.
//
// File is not safe for concurrent use.
type File struct {
	f        *os.File
	searcher *linesearch.Searcher
	cache    map[int64][]localcluster.Edge
}

// Open opens the adjacency list at path. Close must be called to release the file.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &File{
		f:        f,
		searcher: linesearch.New(f, info.Size(), parseID),
		cache:    make(map[int64][]localcluster.Edge),
	}, nil
}

// Close closes the underlying file.
func (af *File) Close() error {
	return af.f.Close()
}

// Neighbors returns the edges of v, or none if v has no line in the file.
func (af *File) Neighbors(ctx context.Context, v int64) ([]localcluster.Edge, error) {
	if edges, ok := af.cache[v]; ok {
		return edges, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	line, ok, err := af.searcher.Find(v)
	if err != nil {
		return nil, fmt.Errorf("adjacency list: find %d: %w", v, err)
	}
	var edges []localcluster.Edge
	if ok {
		if _, edges, err = ParseContentLine(line); err != nil {
			return nil, err
		}
	}
	af.cache[v] = edges
	return edges, nil
}

// Degree returns the sum of the weights of the edges of v.
func (af *File) Degree(ctx context.Context, v int64) (float64, error) {
	edges, err := af.Neighbors(ctx, v)
	if err != nil {
		return 0, err
	}
	var d float64
	for _, e := range edges {
		d += e.Weight
	}
	return d, nil
}

// MaxNodeID returns the vertex on the last content line of a sorted adjacency
// list, or -1 if there are no content lines.
func MaxNodeID(path string) (int64, error) {
	af, err := Open(path)
	if err != nil {
		return 0, err
	}
	defer af.Close()
	line, ok, err := af.searcher.Last()
	if err != nil {
		return 0, fmt.Errorf("max node id: %w", err)
	}
	if !ok {
		return -1, nil
	}
	v, _, err := ParseContentLine(line)
	if err != nil {
		return 0, fmt.Errorf("max node id: %w", err)
	}
	return v, nil
}
