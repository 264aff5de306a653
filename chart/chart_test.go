package chart

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/a-h/localcluster"
)

func aggregate(k int, disk, mem int64) localcluster.Aggregate {
	return localcluster.Aggregate{
		K:    k,
		Disk: localcluster.Measurement{TimeMillis: disk},
		Mem:  localcluster.Measurement{TimeMillis: mem},
	}
}

func TestSeries(t *testing.T) {
	disk, mem := Series([]localcluster.Aggregate{aggregate(2000, 900, 800), aggregate(1000, 500, 200)})
	if len(disk) != 2 || len(mem) != 2 {
		t.Fatalf("expected 2 points per series, got %d and %d", len(disk), len(mem))
	}
	near := func(a, b float64) bool { return math.Abs(a-b) < 1e-9 }
	if !near(disk[0].X, 1) || !near(disk[0].Y, 0.5) {
		t.Errorf("expected the first on disk point to be (1, 0.5), got %v", disk[0])
	}
	if !near(mem[0].X, 1) || !near(mem[0].Y, 0.2) {
		t.Errorf("expected the first in memory point to be (1, 0.2), got %v", mem[0])
	}
	if !near(disk[1].X, 2) || !near(mem[1].Y, 0.8) {
		t.Errorf("unexpected second points %v and %v", disk[1], mem[1])
	}
}

func TestNew(t *testing.T) {
	t.Run("Requires results", func(t *testing.T) {
		if _, err := New(nil); err == nil {
			t.Error("expected an error")
		}
	})
	p, err := New([]localcluster.Aggregate{aggregate(10, 30, 20), aggregate(100, 300, 250)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.X.Label.Text != "Number of nodes (millions)" || p.Y.Label.Text != "Running time (s)" {
		t.Errorf("unexpected labels %q and %q", p.X.Label.Text, p.Y.Label.Text)
	}
	t.Run("Write", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Write(p, &buf, "png"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
			t.Error("expected a PNG")
		}
	})
	t.Run("Save", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "results.svg")
		if err := Save(p, path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if info, err := os.Stat(path); err != nil || info.Size() == 0 {
			t.Errorf("expected a non-empty file, got %v", err)
		}
		if err := Save(p, filepath.Join(t.TempDir(), "results")); err == nil {
			t.Error("expected an error without an extension")
		}
	})
}
