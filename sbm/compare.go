package sbm

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/a-h/localcluster"
	"github.com/a-h/localcluster/adjlist"
)

// DefaultCompareKs returns 10 to 90, 100 to 900 and 1000 to 9000 in steps of
// the order of magnitude, then 10000.
func DefaultCompareKs() []int {
	return ks(10, 100, 1000)
}

// CompareConfig configures Compare.
type CompareConfig struct {
	// Dir holds the adjacency lists written by Generate.
	Dir string
	// Ks defaults to DefaultCompareKs.
	Ks []int
	// ClusterSize must match the value the graphs were generated with. Defaults to 1000.
	ClusterSize int
	// Trials is the number of clusters of each graph to look for. Defaults to 10.
	Trials int
	// TargetVolume is passed to LocalCluster. Defaults to 20000.
	TargetVolume float64
	// Sink receives each trial, and the aggregate of every k. Optional.
	Sink localcluster.Sink
	// RunID identifies the results.
	RunID  string
	Rand   *rand.Rand
	Logger *slog.Logger
}

func (c *CompareConfig) setDefaults() {
	if len(c.Ks) == 0 {
		c.Ks = DefaultCompareKs()
	}
	if c.ClusterSize == 0 {
		c.ClusterSize = 1000
	}
	if c.Trials == 0 {
		c.Trials = 10
	}
	if c.TargetVolume == 0 {
		c.TargetVolume = 20000
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Compare times local clustering of each generated graph with the graph left
// on disk, and with the graph loaded into memory.
//
// Each graph is shuffled first, so that a cluster is not stored contiguously
// on disk.
func Compare(ctx context.Context, cfg CompareConfig) ([]localcluster.Aggregate, error) {
	cfg.setDefaults()
	var aggregates []localcluster.Aggregate
	var seq int
	for _, k := range cfg.Ks {
		if cfg.Trials > k {
			return nil, fmt.Errorf("compare k=%d: %d trials need at least as many clusters", k, cfg.Trials)
		}
		log := cfg.Logger.With(slog.Int("k", k))

		log.Info("Shuffling adjacency list")
		shuffled := ShuffledPath(cfg.Dir, k)
		perm, err := adjlist.Shuffle(AdjacencyListPath(cfg.Dir, k), shuffled, cfg.Rand)
		if err != nil {
			return nil, fmt.Errorf("compare k=%d: shuffle: %w", k, err)
		}

		trials := make([]localcluster.Trial, 0, cfg.Trials)
		for i := 0; i < cfg.Trials; i++ {
			first := int64(cfg.ClusterSize * i)
			seed, ok := perm[first]
			if !ok {
				return nil, fmt.Errorf("compare k=%d: vertex %d has no edges", k, first)
			}
			// Vertices without edges were dropped from the adjacency list, and
			// can't be in any cluster.
			truth := make([]int64, 0, cfg.ClusterSize)
			for v := first; v < first+int64(cfg.ClusterSize); v++ {
				if u, ok := perm[v]; ok {
					truth = append(truth, u)
				}
			}

			disk, err := measure(ctx, truth, func() ([]int64, error) {
				return clusterOnDisk(ctx, shuffled, seed, cfg.TargetVolume)
			})
			if err != nil {
				return nil, fmt.Errorf("compare k=%d: on disk: %w", k, err)
			}
			mem, err := measure(ctx, truth, func() ([]int64, error) {
				return clusterInMemory(ctx, shuffled, seed, cfg.TargetVolume)
			})
			if err != nil {
				return nil, fmt.Errorf("compare k=%d: in memory: %w", k, err)
			}

			trial := localcluster.Trial{RunID: cfg.RunID, Seq: seq, K: k, Disk: disk, Mem: mem}
			seq++
			log.Debug("Completed trial", slog.Int("seq", trial.Seq), slog.Int64("diskTime", disk.TimeMillis), slog.Int64("memTime", mem.TimeMillis))
			if cfg.Sink != nil {
				if err = cfg.Sink.PutTrial(ctx, trial); err != nil {
					return nil, fmt.Errorf("compare k=%d: %w", k, err)
				}
			}
			trials = append(trials, trial)
		}

		agg, err := localcluster.AggregateOf(trials)
		if err != nil {
			return nil, fmt.Errorf("compare k=%d: %w", k, err)
		}
		log.Info("Compared on disk and in memory clustering", slog.Int64("diskTime", agg.Disk.TimeMillis), slog.Int64("memTime", agg.Mem.TimeMillis))
		if cfg.Sink != nil {
			if err = cfg.Sink.PutAggregate(ctx, agg); err != nil {
				return nil, fmt.Errorf("compare k=%d: %w", k, err)
			}
		}
		aggregates = append(aggregates, agg)
	}
	return aggregates, nil
}

func measure(ctx context.Context, truth []int64, cluster func() ([]int64, error)) (m localcluster.Measurement, err error) {
	if err = ctx.Err(); err != nil {
		return m, err
	}
	start := time.Now()
	c, err := cluster()
	if err != nil {
		return m, err
	}
	m.TimeMillis = time.Since(start).Milliseconds()
	m.ClusterSize = int64(len(c))
	m.SymmetricDifference = int64(localcluster.SymmetricDifference(c, truth))
	return m, nil
}

func clusterOnDisk(ctx context.Context, path string, seed int64, targetVolume float64) ([]int64, error) {
	g, err := adjlist.Open(path)
	if err != nil {
		return nil, err
	}
	defer g.Close()
	return localcluster.LocalCluster(ctx, g, seed, targetVolume)
}

func clusterInMemory(ctx context.Context, path string, seed int64, targetVolume float64) ([]int64, error) {
	g, err := adjlist.Load(path)
	if err != nil {
		return nil, err
	}
	// Hide the total volume, so both graphs run the same sweep.
	return localcluster.LocalCluster(ctx, localcluster.Local(g), seed, targetVolume)
}
