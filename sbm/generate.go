// Package sbm generates stochastic block model graphs, and compares on-disk
// and in-memory local clustering of them.
package sbm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/a-h/localcluster/adjlist"
)

// WriteEdgeList samples a stochastic block model and writes it as an edge
// list of "u v 1" lines. Vertices are numbered block by block, so block i
// holds the sizes[i] vertices after those of the blocks before it.
//
// Each pair of vertices in the same block is joined with probability p, and
// each pair in different blocks with probability q. There are no self-loops.
func WriteEdgeList(ctx context.Context, w io.Writer, sizes []int, p, q float64, rng *rand.Rand) error {
	if p < 0 || p > 1 || q < 0 || q > 1 {
		return fmt.Errorf("sbm: probabilities must be in [0, 1], got p=%v q=%v", p, q)
	}
	offsets := make([]int64, len(sizes)+1)
	for i, size := range sizes {
		if size < 0 {
			return fmt.Errorf("sbm: block %d has negative size %d", i, size)
		}
		offsets[i+1] = offsets[i] + int64(size)
	}
	bw := bufio.NewWriter(w)
	var written int
	emit := func(u, v int64) error {
		written++
		if written%(1<<16) == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		buf := strconv.AppendInt(nil, u, 10)
		buf = append(buf, ' ')
		buf = strconv.AppendInt(buf, v, 10)
		buf = append(buf, " 1\n"...)
		_, err := bw.Write(buf)
		return err
	}

	for i := range sizes {
		start := offsets[i]
		err := samplePairs(int64(sizes[i]), p, rng, func(u, v int64) error {
			return emit(start+u, start+v)
		})
		if err != nil {
			return err
		}
	}

	// Sample from all pairs, and drop those within a block, which were drawn above.
	block := func(v int64) int {
		return sort.Search(len(sizes), func(i int) bool { return offsets[i+1] > v })
	}
	err := samplePairs(offsets[len(sizes)], q, rng, func(u, v int64) error {
		if block(u) == block(v) {
			return nil
		}
		return emit(u, v)
	})
	if err != nil {
		return err
	}
	return bw.Flush()
}

// samplePairs calls f for each pair u < v of n vertices independently with
// probability p, skipping ahead by geometrically distributed gaps so that the
// cost is proportional to the number of pairs chosen.
func samplePairs(n int64, p float64, rng *rand.Rand, f func(u, v int64) error) error {
	if p <= 0 || n < 2 {
		return nil
	}
	logq := math.Log(1 - p)
	v, w := int64(1), int64(-1)
	for v < n {
		skip := int64(0)
		if p < 1 {
			skip = int64(math.Floor(math.Log(1-rng.Float64()) / logq))
		}
		w += 1 + skip
		for w >= v && v < n {
			w -= v
			v++
		}
		if v < n {
			if err := f(w, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// DefaultGenerateKs returns 10 to 90, 100 to 900, 1000 to 9000 and 10000 to
// 90000 in steps of the order of magnitude, then 100000.
func DefaultGenerateKs() []int {
	return ks(10, 100, 1000, 10000)
}

func ks(ordersOfMagnitude ...int) []int {
	var ks []int
	for _, om := range ordersOfMagnitude {
		for i := 1; i < 10; i++ {
			ks = append(ks, i*om)
		}
	}
	return append(ks, 10*ordersOfMagnitude[len(ordersOfMagnitude)-1])
}

// GenerateConfig configures Generate.
type GenerateConfig struct {
	// Dir is where the graphs are written.
	Dir string
	// Ks is the number of clusters of each graph. Defaults to DefaultGenerateKs.
	Ks []int
	// ClusterSize is the number of vertices in each cluster. Defaults to 1000.
	ClusterSize int
	// P is the probability of an edge within a cluster. Defaults to 0.01.
	P float64
	// QScale is divided by k to give the probability of an edge between
	// clusters. Defaults to 0.001. Set a negative value for no edges between
	// clusters.
	QScale float64
	Rand   *rand.Rand
	Logger *slog.Logger
}

func (c *GenerateConfig) setDefaults() {
	if len(c.Ks) == 0 {
		c.Ks = DefaultGenerateKs()
	}
	if c.ClusterSize == 0 {
		c.ClusterSize = 1000
	}
	if c.P == 0 {
		c.P = 0.01
	}
	if c.QScale == 0 {
		c.QScale = 0.001
	}
	if c.QScale < 0 {
		c.QScale = 0
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// EdgeListPath is the edge list of the graph with k clusters.
func EdgeListPath(dir string, k int) string {
	return filepath.Join(dir, fmt.Sprintf("k%d.el", k))
}

// AdjacencyListPath is the adjacency list of the graph with k clusters.
func AdjacencyListPath(dir string, k int) string {
	return filepath.Join(dir, fmt.Sprintf("k%d.al", k))
}

// ShuffledPath is the relabelled adjacency list of the graph with k clusters.
func ShuffledPath(dir string, k int) string {
	return filepath.Join(dir, fmt.Sprintf("k%dshuffled.al", k))
}

// Generate writes, for each k, a graph of k clusters each with conductance of
// about 0.1, as an edge list and as an adjacency list.
func Generate(ctx context.Context, cfg GenerateConfig) error {
	cfg.setDefaults()
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	for _, k := range cfg.Ks {
		if err := ctx.Err(); err != nil {
			return err
		}
		q := cfg.QScale / float64(k)
		log := cfg.Logger.With(slog.Int("k", k))

		log.Info("Generating edge list", slog.Float64("p", cfg.P), slog.Float64("q", q))
		el := EdgeListPath(cfg.Dir, k)
		if err := writeEdgeListFile(ctx, el, k, cfg.ClusterSize, cfg.P, q, cfg.Rand); err != nil {
			return fmt.Errorf("generate k=%d: %w", k, err)
		}

		log.Info("Converting to adjacency list")
		if err := adjlist.ConvertEdgeList(el, AdjacencyListPath(cfg.Dir, k)); err != nil {
			return fmt.Errorf("generate k=%d: %w", k, err)
		}
	}
	return nil
}

func writeEdgeListFile(ctx context.Context, path string, k, clusterSize int, p, q float64, rng *rand.Rand) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	sizes := make([]int, k)
	for i := range sizes {
		sizes[i] = clusterSize
	}
	return WriteEdgeList(ctx, f, sizes, p, q, rng)
}
