package main

import (
	"context"
	"log/slog"

	"github.com/a-h/localcluster/sbm"
)

type SBMGenerateCommand struct {
	Dir         string  `help:"Directory to write the graphs to." default:"sbm"`
	Ks          []int   `help:"Numbers of clusters, defaults to 10 to 100000."`
	ClusterSize int     `help:"Number of vertices in each cluster." default:"1000"`
	P           float64 `help:"Probability of an edge within a cluster." default:"0.01"`
	QScale      float64 `help:"Divided by k to give the probability of an edge between clusters." default:"0.001"`
	Seed        uint64  `help:"Random seed, 0 for a random seed." default:"0"`
}

func (c *SBMGenerateCommand) Run(ctx context.Context, g GlobalFlags) error {
	return sbm.Generate(ctx, sbm.GenerateConfig{
		Dir:         c.Dir,
		Ks:          c.Ks,
		ClusterSize: c.ClusterSize,
		P:           c.P,
		QScale:      c.QScale,
		Rand:        newRand(c.Seed),
		Logger:      slog.Default(),
	})
}
