package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/a-h/localcluster/adjlist"
	"github.com/a-h/localcluster/wiki"
)

type WikiClusterCommand struct {
	Dir      string    `help:"Directory containing the wiki-topcats files." default:"wiki"`
	Volumes  []float64 `help:"Target volumes, defaults to 100, 1000, 2000 and 10000."`
	Category string    `help:"Compare each cluster with the pages of this category."`
	Vertex   int64     `arg:"" help:"Id of the page to start from."`
}

func (c *WikiClusterCommand) Run(ctx context.Context, g GlobalFlags) error {
	graphPath, namesPath, categoriesPath := wiki.Paths(c.Dir)

	maxID, err := adjlist.MaxNodeID(graphPath)
	if err != nil {
		return err
	}
	if c.Vertex < 0 || c.Vertex > maxID {
		return fmt.Errorf("vertex %d is not in the graph, ids run from 0 to %d", c.Vertex, maxID)
	}

	graph, err := adjlist.Open(graphPath)
	if err != nil {
		return err
	}
	defer graph.Close()

	names, err := wiki.OpenPageNames(namesPath)
	if err != nil {
		return err
	}
	defer names.Close()

	var category []int64
	if c.Category != "" {
		if category, err = wiki.LoadCategory(categoriesPath, c.Category); err != nil {
			return fmt.Errorf("failed to load category: %w", err)
		}
		slog.Info("Loaded category", slog.String("category", c.Category), slog.Int("pages", len(category)))
	}

	return wiki.Experiment(ctx, wiki.ExperimentConfig{
		Graph:    graph,
		Names:    names,
		Volumes:  c.Volumes,
		Category: category,
		Out:      os.Stdout,
		Logger:   slog.Default(),
	}, c.Vertex)
}
