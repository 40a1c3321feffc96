package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/fairyhunter13/pantry-inventory-service/internal/catalog"
)

// Memory is an in-process ConstraintStore with the same contract as File.
// It backs tests and ephemeral runs.
type Memory struct {
	cat *catalog.Catalog

	mu          sync.RWMutex
	rows        []row
	initialized bool
	// loadErr, when set, is returned by LoadAll and Set to mimic a corrupt
	// backing table.
	loadErr error
}

// NewMemory returns an uninitialized in-memory store for cat.
func NewMemory(cat *catalog.Catalog) *Memory {
	return &Memory{cat: cat}
}

// Initialize seeds zero rows on first use.
func (m *Memory) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initialized {
		return nil
	}
	m.rows = m.rows[:0]
	for _, name := range m.cat.Names() {
		m.rows = append(m.rows, row{class: name})
	}
	m.initialized = true
	return nil
}

// LoadAll returns a copy of the table.
func (m *Memory) LoadAll(ctx context.Context) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make(map[string]int, len(m.rows))
	for _, r := range m.rows {
		if m.cat.Contains(r.class) {
			out[r.class] = r.value
		}
	}
	if !m.initialized {
		for _, name := range m.cat.Names() {
			out[name] = 0
		}
	}
	return out, nil
}

// Set replaces the value for class. A class without a row yields ErrNoRow.
func (m *Memory) Set(ctx context.Context, class string, value int) error {
	if !m.cat.Contains(class) {
		return fmt.Errorf("%w: %q", ErrUnknownClass, class)
	}
	if value < 0 {
		return fmt.Errorf("%w: %d is negative", ErrInvalidConstraint, value)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return m.loadErr
	}
	if !m.initialized {
		for _, name := range m.cat.Names() {
			m.rows = append(m.rows, row{class: name})
		}
		m.initialized = true
	}
	for i := range m.rows {
		if m.rows[i].class == class {
			m.rows[i].value = value
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrNoRow, class)
}

// Corrupt makes subsequent LoadAll and Set calls fail with ErrMalformedStore.
// Passing an empty reason clears the condition.
func (m *Memory) Corrupt(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if reason == "" {
		m.loadErr = nil
		return
	}
	m.loadErr = fmt.Errorf("%w: %s", ErrMalformedStore, reason)
}

// Remove drops the row for class, leaving the table as a hand edit would.
func (m *Memory) Remove(class string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rows[:0]
	for _, r := range m.rows {
		if r.class != class {
			kept = append(kept, r)
		}
	}
	m.rows = kept
}
