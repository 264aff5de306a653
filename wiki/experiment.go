package wiki

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/a-h/localcluster"
)

// Namer returns the name of a vertex.
type Namer interface {
	Lookup(id int64) (string, error)
}

// DefaultVolumes are the target volumes clustered by Experiment.
func DefaultVolumes() []float64 {
	return []float64{100, 1000, 2000, 10000}
}

// ExperimentConfig configures Experiment.
type ExperimentConfig struct {
	Graph localcluster.LocalGraph
	Names Namer
	// Volumes defaults to DefaultVolumes.
	Volumes []float64
	// Category is an optional ground truth cluster to compare each result with.
	Category []int64
	Out      io.Writer
	Logger   *slog.Logger
}

// Experiment finds a cluster around seed for each of the configured volumes,
// and prints its pages and conductance.
func Experiment(ctx context.Context, cfg ExperimentConfig, seed int64) error {
	if len(cfg.Volumes) == 0 {
		cfg.Volumes = DefaultVolumes()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	seedName, err := cfg.Names.Lookup(seed)
	if err != nil {
		return fmt.Errorf("experiment: %w", err)
	}
	for _, volume := range cfg.Volumes {
		fmt.Fprintf(cfg.Out, "Clustering from '%s' with volume %v\n", seedName, volume)
		cluster, err := localcluster.LocalCluster(ctx, cfg.Graph, seed, volume)
		if err != nil {
			return fmt.Errorf("experiment: %w", err)
		}
		cfg.Logger.Debug("Found cluster", slog.Float64("volume", volume), slog.Int("size", len(cluster)))
		for _, v := range cluster {
			name, err := cfg.Names.Lookup(v)
			if err != nil {
				return fmt.Errorf("experiment: %w", err)
			}
			fmt.Fprintf(cfg.Out, "%d %s\n", v, name)
		}
		fmt.Fprintln(cfg.Out)

		conductance, err := localcluster.Conductance(ctx, cfg.Graph, cluster)
		if err != nil {
			return fmt.Errorf("experiment: %w", err)
		}
		fmt.Fprintf(cfg.Out, "Conductance: %.6g\n", conductance)
		if cfg.Category != nil {
			fmt.Fprintf(cfg.Out, "Symmetric difference: %d\n", localcluster.SymmetricDifference(cluster, cfg.Category))
			fmt.Fprintf(cfg.Out, "Fraction outside category: %.6g\n", localcluster.FractionOutside(cluster, cfg.Category))
		}
		fmt.Fprintln(cfg.Out)
	}
	return nil
}
