package wiki

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

var ErrCategoryNotFound = errors.New("category not found")

const categoryPrefix = "Category:"

// Category returns the pages in the named category, reading lines such as
// "Category:Buprestoidea; 301 302 303". The "Category:" prefix of name is optional.
func Category(r io.Reader, name string) ([]int64, error) {
	name = strings.TrimPrefix(name, categoryPrefix)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		head, tail, ok := strings.Cut(scanner.Text(), ";")
		if !ok || strings.TrimPrefix(head, categoryPrefix) != name {
			continue
		}
		fields := strings.Fields(tail)
		ids := make([]int64, len(fields))
		for i, field := range fields {
			id, err := strconv.ParseInt(field, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("category %q: invalid page id %q: %w", name, field, err)
			}
			ids[i] = id
		}
		return ids, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}
	return nil, fmt.Errorf("%q: %w", name, ErrCategoryNotFound)
}

// LoadCategory reads the named category from the file at path.
func LoadCategory(path, name string) ([]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}
	defer f.Close()
	return Category(f, name)
}
