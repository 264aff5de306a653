package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/a-h/localcluster"
	"github.com/a-h/localcluster/neo4jgraph"
)

type MoviesCommand struct {
	URI      string `help:"Neo4j URI, defaults to the NEO4J_URI environment variable."`
	User     string `help:"Neo4j user, defaults to the NEO4J_USER environment variable."`
	Password string `help:"Neo4j password, defaults to the NEO4J_PASSWORD environment variable."`
	Volume   int    `help:"Target volume of the cluster." default:"100"`
	Title    string `arg:"" help:"Title of the movie to start from."`
}

func (c *MoviesCommand) Run(ctx context.Context, g GlobalFlags) error {
	cfg, err := neo4jgraph.ResolveConfig(neo4jgraph.Config{URI: c.URI, User: c.User, Password: c.Password}, os.LookupEnv)
	if err != nil {
		return err
	}
	open := func(ctx context.Context, cfg neo4jgraph.Config) (movieGraph, error) {
		return neo4jgraph.Open(ctx, cfg)
	}
	return printMovieCluster(ctx, open, cfg, c.Title, float64(c.Volume), os.Stdout, slog.Default())
}

// MovieNotFoundError is returned when no movie has the requested title.
type MovieNotFoundError struct {
	Title string
}

func (e *MovieNotFoundError) Error() string {
	return fmt.Sprintf("couldn't find a movie titled %q", e.Title)
}

type movieGraph interface {
	localcluster.LocalGraph
	QueryID(ctx context.Context, property string, value any) (id int64, ok bool, err error)
	QueryNodeLabels(ctx context.Context, id int64) ([]string, error)
	QueryProperty(ctx context.Context, id int64, property string) (value any, ok bool, err error)
	Close(ctx context.Context) error
}

func printMovieCluster(ctx context.Context, open func(context.Context, neo4jgraph.Config) (movieGraph, error), cfg neo4jgraph.Config, title string, volume float64, w io.Writer, log *slog.Logger) (err error) {
	g, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := g.Close(ctx); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close connection: %w", closeErr))
		}
	}()

	id, ok, err := g.QueryID(ctx, "title", title)
	if err != nil {
		return err
	}
	if !ok {
		return &MovieNotFoundError{Title: title}
	}

	cluster, err := localcluster.LocalCluster(ctx, g, id, volume)
	if err != nil {
		return fmt.Errorf("failed to find cluster: %w", err)
	}
	log.Info("Found cluster", slog.String("title", title), slog.Int("size", len(cluster)))

	for _, v := range cluster {
		labels, err := g.QueryNodeLabels(ctx, v)
		if err != nil {
			return err
		}
		var kind, property string
		switch {
		case slices.Contains(labels, "Movie"):
			kind, property = "Movie", "title"
		case slices.Contains(labels, "Person"):
			kind, property = "Person", "name"
		default:
			log.Debug("Skipping node", slog.Int64("id", v), slog.Any("labels", labels))
			continue
		}
		value, _, err := g.QueryProperty(ctx, v, property)
		if err != nil {
			return err
		}
		if _, err = fmt.Fprintf(w, "%s: %v\n", kind, value); err != nil {
			return err
		}
	}
	return nil
}
