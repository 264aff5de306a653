// Package wiki runs local clustering experiments on the Wikipedia "topcats"
// hyperlink graph.
package wiki

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/a-h/localcluster/internal/linesearch"
)

const (
	GraphFile     = "wiki-topcats.al"
	PageNamesFile = "wiki-topcats-page-names.txt"
	CategoryFile  = "wiki-topcats-categories.txt"
)

// Paths returns the graph, page names and category files within dir.
func Paths(dir string) (graph, pageNames, categories string) {
	return filepath.Join(dir, GraphFile), filepath.Join(dir, PageNamesFile), filepath.Join(dir, CategoryFile)
}

var ErrPageNotFound = errors.New("page not found")

// PageNames looks up page names in a file of "<id> <name>" lines sorted by id.
//
// PageNames is not safe for concurrent use.
type PageNames struct {
	f        *os.File
	searcher *linesearch.Searcher
}

func OpenPageNames(path string) (*PageNames, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("page names: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("page names: %w", err)
	}
	return &PageNames{
		f:        f,
		searcher: linesearch.New(f, info.Size(), parsePageID),
	}, nil
}

func parsePageID(line string) (int64, bool) {
	field, _, ok := strings.Cut(line, " ")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(field, 10, 64)
	return id, err == nil
}

// Lookup returns the name of the page with the given id.
func (pn *PageNames) Lookup(id int64) (string, error) {
	line, ok, err := pn.searcher.Find(id)
	if err != nil {
		return "", fmt.Errorf("page names: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("page %d: %w", id, ErrPageNotFound)
	}
	_, name, _ := strings.Cut(line, " ")
	return name, nil
}

func (pn *PageNames) Close() error {
	return pn.f.Close()
}
