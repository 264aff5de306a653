package wiki

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/a-h/localcluster/memgraph"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestPageNames(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 1000; i++ {
		fmt.Fprintf(&sb, "%d Page number %d\n", i, i)
	}
	pn, err := OpenPageNames(writeFile(t, PageNamesFile, sb.String()))
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}
	defer pn.Close()

	for _, id := range []int64{0, 1, 499, 999} {
		name, err := pn.Lookup(id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if expected := fmt.Sprintf("Page number %d", id); name != expected {
			t.Errorf("expected %q, got %q", expected, name)
		}
	}
	if _, err := pn.Lookup(1000); !errors.Is(err, ErrPageNotFound) {
		t.Errorf("expected ErrPageNotFound, got %v", err)
	}
}

func TestCategory(t *testing.T) {
	content := "Category:Buprestoidea; 301 302 303\nCategory:Empty; \nCategory:People_from_Worcester; 1 2  7\n"

	tests := []struct {
		name      string
		category  string
		expected  []int64
		expectErr error
	}{
		{name: "With prefix", category: "Category:Buprestoidea", expected: []int64{301, 302, 303}},
		{name: "Without prefix", category: "People_from_Worcester", expected: []int64{1, 2, 7}},
		{name: "No pages", category: "Empty", expected: []int64{}},
		{name: "Missing", category: "Nope", expectErr: ErrCategoryNotFound},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ids, err := Category(strings.NewReader(content), test.category)
			if test.expectErr != nil {
				if !errors.Is(err, test.expectErr) {
					t.Fatalf("expected %v, got %v", test.expectErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if fmt.Sprint(ids) != fmt.Sprint(test.expected) {
				t.Errorf("expected %v, got %v", test.expected, ids)
			}
		})
	}
}

type mapNamer map[int64]string

func (m mapNamer) Lookup(id int64) (string, error) {
	name, ok := m[id]
	if !ok {
		return "", ErrPageNotFound
	}
	return name, nil
}

func TestExperiment(t *testing.T) {
	g := memgraph.New()
	names := mapNamer{}
	for _, offset := range []int64{0, 5} {
		for i := int64(0); i < 5; i++ {
			names[offset+i] = fmt.Sprintf("Page %d", offset+i)
			for j := i + 1; j < 5; j++ {
				g.SetEdge(offset+i, offset+j, 1)
			}
		}
	}
	g.SetEdge(4, 5, 1)

	var out bytes.Buffer
	err := Experiment(context.Background(), ExperimentConfig{
		Graph:    g,
		Names:    names,
		Volumes:  []float64{1000},
		Category: []int64{0, 1, 2, 3, 4, 5},
		Out:      &out,
	}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(out.String(), "\n")
	if lines[0] != "Clustering from 'Page 0' with volume 1000" {
		t.Errorf("unexpected header %q", lines[0])
	}
	members := lines[1:6]
	sort.Strings(members)
	for i, line := range members {
		if expected := fmt.Sprintf("%d Page %d", i, i); line != expected {
			t.Errorf("expected %q, got %q", expected, line)
		}
	}
	expected := []string{
		"",
		"Conductance: 0.047619",
		"Symmetric difference: 1",
		"Fraction outside category: 0",
		"",
		"",
	}
	if actual := lines[6:]; strings.Join(actual, "\n") != strings.Join(expected, "\n") {
		t.Errorf("expected %q, got %q", expected, actual)
	}
}

func TestExperimentUnknownSeed(t *testing.T) {
	err := Experiment(context.Background(), ExperimentConfig{Graph: memgraph.New(), Names: mapNamer{}, Out: &bytes.Buffer{}}, 3)
	if !errors.Is(err, ErrPageNotFound) {
		t.Errorf("expected ErrPageNotFound, got %v", err)
	}
}
