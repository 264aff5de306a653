// Package linesearch finds lines in files that are sorted by a leading integer
// id, without reading the whole file.
package linesearch

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// ParseFunc returns the id of a line. Lines that should be skipped, such as
// comments, return ok=false.
type ParseFunc func(line string) (id int64, ok bool)

// Searcher binary searches a sorted file by seeking.
type Searcher struct {
	r     io.ReaderAt
	size  int64
	parse ParseFunc
}

// New creates a Searcher over size bytes of r.
func New(r io.ReaderAt, size int64, parse ParseFunc) *Searcher {
	return &Searcher{r: r, size: size, parse: parse}
}

// Find returns the line with the given id, without its line ending.
func (s *Searcher) Find(id int64) (line string, ok bool, err error) {
	// The id of the first content line starting at or after an offset is
	// non-decreasing in the offset, so search for the first offset whose
	// line id is >= id.
	lo, hi := int64(0), s.size
	for lo < hi {
		mid := lo + (hi-lo)/2
		lineID, _, found, err := s.contentLineFrom(mid)
		if err != nil {
			return "", false, err
		}
		if !found || lineID >= id {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	lineID, line, found, err := s.contentLineFrom(lo)
	if err != nil {
		return "", false, err
	}
	if !found || lineID != id {
		return "", false, nil
	}
	return line, true, nil
}

// Last returns the final content line of the file.
func (s *Searcher) Last() (line string, ok bool, err error) {
	// Find the start of the last content line by walking back over lines.
	end := s.size
	for end > 0 {
		start, err := s.lineStartBefore(end)
		if err != nil {
			return "", false, err
		}
		_, line, found, err := s.contentLineFrom(start)
		if err != nil {
			return "", false, err
		}
		if found {
			return line, true, nil
		}
		end = start
	}
	return "", false, nil
}

// contentLineFrom returns the first content line that starts at or after pos.
func (s *Searcher) contentLineFrom(pos int64) (id int64, line string, ok bool, err error) {
	start, err := s.lineStartFrom(pos)
	if err != nil {
		return 0, "", false, err
	}
	if start >= s.size {
		return 0, "", false, nil
	}
	br := bufio.NewReader(io.NewSectionReader(s.r, start, s.size-start))
	for {
		text, readErr := br.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return 0, "", false, readErr
		}
		text = strings.TrimRight(text, "\r\n")
		if id, ok := s.parse(text); ok {
			return id, text, true, nil
		}
		if readErr != nil {
			return 0, "", false, nil
		}
	}
}

// lineStartFrom returns the offset of the first line that starts at or after pos.
func (s *Searcher) lineStartFrom(pos int64) (int64, error) {
	if pos <= 0 {
		return 0, nil
	}
	if pos >= s.size {
		return s.size, nil
	}
	// A line starts at pos if the previous byte is a newline.
	br := bufio.NewReader(io.NewSectionReader(s.r, pos-1, s.size-(pos-1)))
	skipped, err := br.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			return s.size, nil
		}
		return 0, err
	}
	return pos - 1 + int64(len(skipped)), nil
}

// lineStartBefore returns the start offset of the line that ends just before end.
func (s *Searcher) lineStartBefore(end int64) (int64, error) {
	const chunk = 4096
	// Skip the newline that terminates the previous line.
	pos := end - 1
	if pos > 0 {
		b := make([]byte, 1)
		if _, err := s.r.ReadAt(b, pos); err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
		if b[0] != '\n' {
			pos = end
		}
	}
	buf := make([]byte, chunk)
	for pos > 0 {
		from := max(pos-chunk, 0)
		n, err := s.r.ReadAt(buf[:pos-from], from)
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
		if i := strings.LastIndexByte(string(buf[:n]), '\n'); i >= 0 {
			return from + int64(i) + 1, nil
		}
		pos = from
	}
	return 0, nil
}
