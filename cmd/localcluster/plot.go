package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"

	"github.com/a-h/localcluster"
	"github.com/a-h/localcluster/chart"
	"github.com/a-h/localcluster/resultcsv"
)

type PlotCommand struct {
	CSV   string `help:"Aggregate results to plot." default:"sbm/aggregate_results.csv"`
	Out   string `help:"Write the chart to a file instead of opening it, the format is taken from the extension, e.g. results.png, results.svg, results.pdf."`
	RunID string `name:"run" help:"Run to plot when reading from a result store, defaults to the latest run."`
}

func (c *PlotCommand) Run(ctx context.Context, g GlobalFlags) error {
	store, err := g.ResultStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	aggregates, err := c.aggregates(ctx, store)
	if err != nil {
		return err
	}
	p, err := chart.New(aggregates)
	if err != nil {
		return err
	}
	if c.Out != "" {
		return chart.Save(p, c.Out)
	}

	f, err := os.CreateTemp("", "localcluster-*.png")
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	if err = chart.Write(p, f, "png"); err != nil {
		f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("failed to write chart file: %w", err)
	}
	slog.Info("Opening chart", slog.String("path", f.Name()))
	return viewer(f.Name()).Run()
}

func (c *PlotCommand) aggregates(ctx context.Context, store localcluster.Store) ([]localcluster.Aggregate, error) {
	if store == nil {
		return resultcsv.ReadAggregatesFile(c.CSV)
	}
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	runID := c.RunID
	if runID == "" {
		run, ok, err := store.LatestRun(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("no runs found in the result store")
		}
		runID = run.ID
	}
	aggregates, err := store.Aggregates(ctx, runID)
	if err != nil {
		return nil, err
	}
	if len(aggregates) == 0 {
		return nil, fmt.Errorf("no aggregate results found for run %q", runID)
	}
	return aggregates, nil
}

// viewer opens path in the desktop's default image viewer.
func viewer(path string) *exec.Cmd {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", path)
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", path)
	default:
		return exec.Command("xdg-open", path)
	}
}
