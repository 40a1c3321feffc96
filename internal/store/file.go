package store

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/fairyhunter13/pantry-inventory-service/internal/catalog"
	"github.com/fairyhunter13/pantry-inventory-service/internal/obs"
)

// File is a ConstraintStore backed by a CSV file. Writes replace the file
// atomically, so readers inside or outside the process only ever see a
// complete table.
type File struct {
	path string
	cat  *catalog.Catalog

	mu sync.RWMutex
}

// NewFile returns a store persisting to path for the classes in cat.
func NewFile(path string, cat *catalog.Catalog) *File {
	return &File{path: path, cat: cat}
}

// Path returns the backing file location.
func (s *File) Path() string { return s.path }

// Initialize writes a table with every catalog class at 0 if the file does
// not exist.
func (s *File) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat constraints: %w", err)
	}
	rows := s.defaultRows()
	if err := s.writeRows(rows); err != nil {
		return err
	}
	obs.Logger.Info("constraints_initialized", "path", s.path, "classes", len(rows))
	return nil
}

// LoadAll reads the table. Rows for classes outside the catalog are kept on
// disk but not returned.
func (s *File) LoadAll(ctx context.Context) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	rows, err := s.readRows()
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		if s.cat.Contains(r.class) {
			out[r.class] = r.value
		}
	}
	return out, nil
}

// Set replaces the row for class. A class without a row is left absent and
// reported with ErrNoRow.
func (s *File) Set(ctx context.Context, class string, value int) error {
	if !s.cat.Contains(class) {
		return fmt.Errorf("%w: %q", ErrUnknownClass, class)
	}
	if value < 0 {
		return fmt.Errorf("%w: %d is negative", ErrInvalidConstraint, value)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.readRows()
	if err != nil {
		return err
	}
	found := false
	for i := range rows {
		if rows[i].class == class {
			rows[i].value = value
			found = true
		}
	}
	if !found {
		obs.Logger.Warn("constraint_row_missing", "class", class, "path", s.path)
		return fmt.Errorf("%w: %q", ErrNoRow, class)
	}
	return s.writeRows(rows)
}

func (s *File) readRows() ([]row, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s.defaultRows(), nil
		}
		return nil, fmt.Errorf("read constraints: %w", err)
	}
	return parseRows(bytes.NewReader(data))
}

func (s *File) defaultRows() []row {
	rows := make([]row, 0, s.cat.Len())
	for _, name := range s.cat.Names() {
		rows = append(rows, row{class: name})
	}
	return rows
}

func parseRows(r io.Reader) ([]row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: missing header", ErrMalformedStore)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedStore, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	if len(header) != len(Header) {
		return nil, fmt.Errorf("%w: header %v, want %v", ErrMalformedStore, header, Header)
	}
	for i := range Header {
		if strings.TrimSpace(header[i]) != Header[i] {
			return nil, fmt.Errorf("%w: header %v, want %v", ErrMalformedStore, header, Header)
		}
	}

	var rows []row
	seen := make(map[string]bool)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedStore, err)
		}
		if len(rec) != len(Header) {
			return nil, fmt.Errorf("%w: line %d has %d fields", ErrMalformedStore, line, len(rec))
		}
		class := catalog.Normalize(rec[0])
		v, err := strconv.Atoi(strings.TrimSpace(rec[1]))
		if err != nil || v < 0 {
			return nil, fmt.Errorf("%w: line %d: constraint %q is not a non-negative integer", ErrMalformedStore, line, rec[1])
		}
		if seen[class] {
			return nil, fmt.Errorf("%w: line %d: duplicate class %q", ErrMalformedStore, line, class)
		}
		seen[class] = true
		rows = append(rows, row{class: class, value: v})
	}
	return rows, nil
}

// writeRows replaces the file through a temp file in the same directory.
func (s *File) writeRows(rows []row) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	tmpName := tmp.Name()
	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}

	w := csv.NewWriter(tmp)
	if err := w.Write(Header); err != nil {
		return fail(err)
	}
	for _, r := range rows {
		if err := w.Write([]string{r.class, strconv.Itoa(r.value)}); err != nil {
			return fail(err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	return nil
}
