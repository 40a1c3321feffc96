// Package catalog holds the fixed set of product classes the service knows.
package catalog

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Background is the reserved label detectors emit for "no object". It is
// never part of a catalog.
const Background = "background"

// ErrDuplicateClass is returned when two labels normalize to the same class.
var ErrDuplicateClass = errors.New("duplicate class")

// ErrEmpty is returned when no classes remain after filtering.
var ErrEmpty = errors.New("empty catalog")

// Catalog is an immutable, ordered set of lower-cased class names.
type Catalog struct {
	names []string
	index map[string]int
}

// Normalize returns the canonical form of a class name.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// New builds a catalog from names in definition order. Blank names and the
// background sentinel are dropped.
func New(names ...string) (*Catalog, error) {
	c := &Catalog{index: make(map[string]int, len(names))}
	for _, raw := range names {
		n := Normalize(raw)
		if n == "" || n == Background {
			continue
		}
		if _, dup := c.index[n]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateClass, n)
		}
		c.index[n] = len(c.names)
		c.names = append(c.names, n)
	}
	if len(c.names) == 0 {
		return nil, ErrEmpty
	}
	return c, nil
}

// ReadLabels returns the raw lines of a label file, one label per line.
// Line positions are kept since detectors address labels by index.
func ReadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer f.Close()
	var labels []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		labels = append(labels, strings.TrimSpace(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	return labels, nil
}

// Names returns the classes in definition order. The slice is a copy.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Len returns the number of classes.
func (c *Catalog) Len() int { return len(c.names) }

// Contains reports whether name (already normalized) is a catalog class.
func (c *Catalog) Contains(name string) bool {
	_, ok := c.index[name]
	return ok
}
