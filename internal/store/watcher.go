package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fairyhunter13/pantry-inventory-service/internal/obs"
	"github.com/fsnotify/fsnotify"
)

// Watch event kinds reported to OnEvent and the metrics counter.
const (
	EventChanged   = "changed"
	EventMalformed = "malformed"
	EventRemoved   = "removed"
)

// Watcher re-validates the constraint file whenever something outside the
// process (or the store itself) rewrites it. The directory is watched rather
// than the file because atomic replacement swaps the inode.
type Watcher struct {
	path     string
	store    ConstraintStore
	debounce time.Duration
	fsw      *fsnotify.Watcher

	// OnEvent, when set, is called after every debounced change with one of
	// the Event* kinds.
	OnEvent func(kind string)
}

// NewWatcher starts watching the directory containing path.
func NewWatcher(path string, st ConstraintStore, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	return &Watcher{path: filepath.Clean(path), store: st, debounce: debounce, fsw: fsw}, nil
}

// Run processes file events until ctx is done. It closes the underlying
// watcher on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	var (
		timer   *time.Timer
		fire    <-chan time.Time
		removed bool
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			// Renames of the temp file show up as Create on the target.
			removed = ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Create)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			obs.Logger.Warn("constraints_watch_error", "error", err)
		case <-fire:
			fire = nil
			w.check(ctx, removed)
		}
	}
}

func (w *Watcher) check(ctx context.Context, removed bool) {
	kind := EventChanged
	if removed {
		kind = EventRemoved
		obs.Logger.Warn("constraints_file_removed", "path", w.path)
	} else if _, err := w.store.LoadAll(ctx); err != nil {
		if errors.Is(err, ErrMalformedStore) {
			kind = EventMalformed
			obs.Logger.Warn("constraints_file_malformed", "path", w.path, "error", err)
		} else {
			obs.Logger.Warn("constraints_file_unreadable", "path", w.path, "error", err)
			return
		}
	} else {
		obs.Logger.Info("constraints_file_changed", "path", w.path)
	}
	obs.ConstraintFileEvents.WithLabelValues(kind).Inc()
	if w.OnEvent != nil {
		w.OnEvent(kind)
	}
}
