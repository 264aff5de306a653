// Package adjlist reads and writes graphs in the adjacency list format:
//
//	# comment
//	0: 1 1 2 0.5
//	1: 0 1
//	2: 0 0.5
//
// Each content line lists a vertex, then pairs of neighbor and edge weight.
// Lines beginning with '#' or '/' are comments. Content lines must be sorted
// by vertex id for the file to be opened on disk.
package adjlist

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/a-h/localcluster"
	"github.com/a-h/localcluster/memgraph"
)

// IsComment reports whether the line is a comment or blank.
func IsComment(line string) bool {
	line = strings.TrimSpace(line)
	return line == "" || line[0] == '#' || line[0] == '/'
}

// ParseContentLine parses a line such as "0: 1 1 2 0.5".
func ParseContentLine(line string) (v int64, edges []localcluster.Edge, err error) {
	head, tail, ok := strings.Cut(line, ":")
	if !ok {
		return 0, nil, fmt.Errorf("adjacency list: missing ':' in line %q", line)
	}
	v, err = strconv.ParseInt(strings.TrimSpace(head), 10, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("adjacency list: invalid vertex in line %q: %w", line, err)
	}
	fields := strings.Fields(tail)
	if len(fields)%2 != 0 {
		return 0, nil, fmt.Errorf("adjacency list: odd number of neighbor fields in line %q", line)
	}
	edges = make([]localcluster.Edge, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		to, err := strconv.ParseInt(fields[i], 10, 64)
		if err != nil {
			return 0, nil, fmt.Errorf("adjacency list: invalid neighbor %q of vertex %d: %w", fields[i], v, err)
		}
		w, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return 0, nil, fmt.Errorf("adjacency list: invalid weight %q of edge %d-%d: %w", fields[i+1], v, to, err)
		}
		edges = append(edges, localcluster.Edge{From: v, To: to, Weight: w})
	}
	return v, edges, nil
}

// FormatContentLine is the inverse of ParseContentLine.
func FormatContentLine(v int64, edges []localcluster.Edge) string {
	var sb strings.Builder
	sb.WriteString(strconv.FormatInt(v, 10))
	sb.WriteByte(':')
	for _, e := range edges {
		sb.WriteByte(' ')
		sb.WriteString(strconv.FormatInt(e.To, 10))
		sb.WriteByte(' ')
		sb.WriteString(strconv.FormatFloat(e.Weight, 'g', -1, 64))
	}
	return sb.String()
}

// parseID returns the vertex of a content line without parsing its neighbors.
func parseID(line string) (int64, bool) {
	if IsComment(line) {
		return 0, false
	}
	head, _, ok := strings.Cut(line, ":")
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseInt(strings.TrimSpace(head), 10, 64)
	return v, err == nil
}

// Read loads an adjacency list into memory.
func Read(r io.Reader) (*memgraph.Graph, error) {
	g := memgraph.New()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	var lineNumber int
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if IsComment(line) {
			continue
		}
		v, edges, err := ParseContentLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNumber, err)
		}
		g.AddVertex(v)
		for _, e := range edges {
			g.SetEdge(e.From, e.To, e.Weight)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("adjacency list: %w", err)
	}
	return g, nil
}

// Load reads the adjacency list file at path into memory.
func Load(path string) (*memgraph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	g, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Write writes g as an adjacency list, one line per vertex in ascending order.
func Write(w io.Writer, g *memgraph.Graph) error {
	bw := bufio.NewWriter(w)
	for _, v := range g.Vertices() {
		edges, _ := g.Neighbors(context.Background(), v)
		if _, err := bw.WriteString(FormatContentLine(v, edges) + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
