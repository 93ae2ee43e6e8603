// Package shape turns hierarchical query results into flat rows: it discovers
// the column paths a result set realizes, projects each record onto them, and
// summarizes child collections as row-count markers.
package shape

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/qshape/qshape/internal/record"
)

// MaxDepth bounds how deep discovery follows nested records.
const MaxDepth = 64

// ErrTooDeep is returned when records nest beyond MaxDepth.
var ErrTooDeep = errors.New("record nesting exceeds discovery depth")

var markerPattern = regexp.MustCompile(`^\d+ rows?$`)

// Marker formats the row-count marker shown in place of a child collection.
// The plural suffix is part of the format, even for 0 and 1.
func Marker(n int) string {
	return fmt.Sprintf("%d rows", n)
}

// IsMarker reports whether s looks like a row-count marker.
func IsMarker(s string) bool {
	return markerPattern.MatchString(s)
}

// IsMarkerValue reports whether v is a string scalar holding a marker.
func IsMarkerValue(v record.Value) bool {
	s, ok := v.Scalar().(string)
	return ok && IsMarker(s)
}

// Label turns a column path into a display label.
func Label(path string) string {
	return strings.ReplaceAll(path, record.PathSeparator, " ")
}

// column is a node in the discovery tree. Children keep first-seen order, so
// flattening the tree yields related paths next to each other.
type column struct {
	name     string
	children []*column
	index    map[string]*column
}

func (c *column) child(name string) *column {
	if c.index == nil {
		c.index = make(map[string]*column)
	}
	if n, ok := c.index[name]; ok {
		return n
	}
	n := &column{name: name}
	c.index[name] = n
	c.children = append(c.children, n)
	return n
}

// DiscoverPaths returns every column path realized by records, deduplicated,
// in display order.
func DiscoverPaths(records []*record.Record) ([]string, error) {
	root := &column{}
	for _, rec := range records {
		if err := collect(root, rec, 0); err != nil {
			return nil, err
		}
	}

	var paths []string
	seen := make(map[string]bool)
	flattenTree(root, nil, func(path string) {
		if !seen[path] {
			seen[path] = true
			paths = append(paths, path)
		}
	})
	return paths, nil
}

// DiscoverColumns discovers column paths and keeps only those named in
// requested, preserving discovery order. Matching is case-sensitive.
func DiscoverColumns(records []*record.Record, requested []string) ([]string, error) {
	paths, err := DiscoverPaths(records)
	if err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(requested))
	for _, r := range requested {
		want[r] = true
	}
	out := make([]string, 0, len(requested))
	for _, p := range paths {
		if want[p] {
			out = append(out, p)
		}
	}
	return out, nil
}

func collect(parent *column, rec *record.Record, depth int) error {
	if depth > MaxDepth {
		return ErrTooDeep
	}
	var err error
	rec.Each(func(name string, v record.Value) {
		if err != nil {
			return
		}
		node := parent.child(name)
		if strings.Contains(name, record.PathSeparator) {
			return
		}
		if nested, ok := v.Record(); ok {
			err = collect(node, nested, depth+1)
		}
	})
	return err
}

func flattenTree(c *column, prefix []string, emit func(string)) {
	for _, child := range c.children {
		path := append(prefix[:len(prefix):len(prefix)], child.name)
		if len(child.children) > 0 {
			flattenTree(child, path, emit)
			continue
		}
		emit(strings.Join(path, record.PathSeparator))
	}
}

// MergeColumns appends the columns of next not already in base.
func MergeColumns(base, next []string) []string {
	seen := make(map[string]bool, len(base))
	for _, c := range base {
		seen[c] = true
	}
	out := base
	for _, c := range next {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
