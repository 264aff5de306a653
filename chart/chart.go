// Package chart plots the running time of on-disk and in-memory local
// clustering against the size of the graph.
package chart

import (
	"fmt"
	"image/color"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/a-h/localcluster"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Size of the figure, sized for a single column of a paper.
const (
	Width  = 3.25 * vg.Inch
	Height = 2.75 * vg.Inch
)

// Each cluster has a thousand vertices, so k clusters is k thousand vertices,
// or k/1000 million. Times are in milliseconds.
const (
	nodesScale = 0.001
	timeScale  = 0.001
)

// Series returns the on-disk and in-memory running times in seconds, against
// the number of vertices in millions, ordered by k.
func Series(aggregates []localcluster.Aggregate) (disk, mem plotter.XYs) {
	sorted := make([]localcluster.Aggregate, len(aggregates))
	copy(sorted, aggregates)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].K < sorted[j].K })
	disk = make(plotter.XYs, len(sorted))
	mem = make(plotter.XYs, len(sorted))
	for i, a := range sorted {
		x := float64(a.K) * nodesScale
		disk[i] = plotter.XY{X: x, Y: float64(a.Disk.TimeMillis) * timeScale}
		mem[i] = plotter.XY{X: x, Y: float64(a.Mem.TimeMillis) * timeScale}
	}
	return disk, mem
}

// New creates the chart.
func New(aggregates []localcluster.Aggregate) (*plot.Plot, error) {
	if len(aggregates) == 0 {
		return nil, fmt.Errorf("chart: no results to plot")
	}
	diskXYs, memXYs := Series(aggregates)

	p := plot.New()
	p.X.Label.Text = "Number of nodes (millions)"
	p.Y.Label.Text = "Running time (s)"
	p.Legend.Top = true
	p.Legend.Left = true

	disk, err := plotter.NewLine(diskXYs)
	if err != nil {
		return nil, fmt.Errorf("chart: on disk: %w", err)
	}
	disk.LineStyle.Width = vg.Points(3)
	disk.LineStyle.Color = color.RGBA{R: 255, A: 255}

	mem, err := plotter.NewLine(memXYs)
	if err != nil {
		return nil, fmt.Errorf("chart: in memory: %w", err)
	}
	mem.LineStyle.Width = vg.Points(3)
	mem.LineStyle.Color = color.RGBA{B: 255, A: 255}
	mem.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}

	p.Add(disk, mem)
	p.Legend.Add("On disk", disk)
	p.Legend.Add("In memory", mem)
	return p, nil
}

// Save writes the chart to path, in the format given by its extension.
func Save(p *plot.Plot, path string) error {
	if filepath.Ext(path) == "" {
		return fmt.Errorf("chart: %q has no extension to choose the format from", path)
	}
	if err := p.Save(Width, Height, path); err != nil {
		return fmt.Errorf("chart: %w", err)
	}
	return nil
}

// Write writes the chart to w in the given format, e.g. "png" or "svg".
func Write(p *plot.Plot, w io.Writer, format string) error {
	wt, err := p.WriterTo(Width, Height, strings.ToLower(format))
	if err != nil {
		return fmt.Errorf("chart: %w", err)
	}
	if _, err = wt.WriteTo(w); err != nil {
		return fmt.Errorf("chart: %w", err)
	}
	return nil
}
