// Package inventory merges detected stock, stored constraints and live prices
// into inventory snapshots.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fairyhunter13/pantry-inventory-service/internal/catalog"
	"github.com/fairyhunter13/pantry-inventory-service/internal/detect"
	"github.com/fairyhunter13/pantry-inventory-service/internal/model"
	"github.com/fairyhunter13/pantry-inventory-service/internal/obs"
	"github.com/fairyhunter13/pantry-inventory-service/internal/store"
	"golang.org/x/sync/errgroup"
)

// Errors surfaced to callers of the reconciler.
var (
	// ErrUnknownClass is returned when a class is not in the catalog.
	ErrUnknownClass = store.ErrUnknownClass
	// ErrInvalidConstraint covers negative updates and a corrupt constraint
	// store found while building a snapshot.
	ErrInvalidConstraint = store.ErrInvalidConstraint
	// ErrNoRow is returned by UpdateConstraint when the class has no stored
	// row. Nothing is written.
	ErrNoRow = store.ErrNoRow
	// ErrDetectorInconsistency means the detector reported a class the
	// catalog does not know. It points at a model/label mismatch.
	ErrDetectorInconsistency = errors.New("detector inconsistency")
)

// PriceLookup resolves quotes for a batch of product names.
type PriceLookup interface {
	LookupBatch(ctx context.Context, names []string) (map[string]model.Quote, error)
}

// Reconciler builds snapshots for a fixed catalog.
type Reconciler struct {
	cat      *catalog.Catalog
	store    store.ConstraintStore
	prices   PriceLookup
	detector detect.Detector
	seq      Sequencer
	now      func() time.Time
}

// New initializes the constraint store for cat and returns a Reconciler.
func New(ctx context.Context, cat *catalog.Catalog, st store.ConstraintStore, prices PriceLookup, det detect.Detector) (*Reconciler, error) {
	if err := st.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initialize constraints: %w", err)
	}
	return &Reconciler{
		cat:      cat,
		store:    st,
		prices:   prices,
		detector: det,
		now:      time.Now,
	}, nil
}

// Catalog returns the catalog the reconciler serves.
func (r *Reconciler) Catalog() *catalog.Catalog { return r.cat }

// LastSequence returns the sequence number of the latest successful snapshot,
// 0 before the first one.
func (r *Reconciler) LastSequence() uint64 { return r.seq.Last() }

// Snapshot returns one record per catalog class, in catalog order. Constraint
// loading, price lookup and detection run concurrently; nothing is returned
// until all three have finished.
func (r *Reconciler) Snapshot(ctx context.Context) (model.Inventory, error) {
	start := time.Now()
	inv, err := r.snapshot(ctx)
	obs.SnapshotDuration.Observe(time.Since(start).Seconds())
	result := snapshotResult(ctx, err)
	obs.Snapshots.WithLabelValues(result).Inc()
	if err != nil {
		obs.Logger.Error("snapshot_failed", "result", result, "error", err)
		return model.Inventory{}, err
	}
	obs.Logger.Info("snapshot_complete",
		"sequence", inv.Sequence,
		"records", inv.Len(),
		"total_demand", inv.TotalDemand(),
		"latency_ms", float64(time.Since(start).Microseconds())/1000.0,
	)
	return inv, nil
}

func (r *Reconciler) snapshot(ctx context.Context) (model.Inventory, error) {
	names := r.cat.Names()
	var (
		constraints map[string]int
		quotes      map[string]model.Quote
		counts      map[string]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := r.loadConstraints(gctx)
		constraints = c
		return err
	})
	g.Go(func() error {
		q, err := r.prices.LookupBatch(gctx, names)
		if err != nil {
			return fmt.Errorf("lookup prices: %w", err)
		}
		quotes = q
		return nil
	})
	g.Go(func() error {
		c, err := r.countDetections(gctx)
		counts = c
		return err
	})
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return model.Inventory{}, fmt.Errorf("snapshot: %w", ctxErr)
		}
		return model.Inventory{}, err
	}

	inv := model.Inventory{
		Sequence: r.seq.Next(),
		TakenAt:  r.now().UTC(),
		Records:  make([]model.ProductRecord, 0, len(names)),
	}
	for _, name := range names {
		rec := model.NewRecord(name)
		rec.Constraint = constraints[name]
		rec.Amount = counts[name]
		if q, ok := quotes[name]; ok {
			rec.ApplyQuote(q)
		}
		inv.Records = append(inv.Records, rec)
	}
	return inv, nil
}

func (r *Reconciler) loadConstraints(ctx context.Context) (map[string]int, error) {
	c, err := r.store.LoadAll(ctx)
	if err == nil {
		return c, nil
	}
	if errors.Is(err, store.ErrMalformedStore) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConstraint, err)
	}
	return nil, fmt.Errorf("load constraints: %w", err)
}

func (r *Reconciler) countDetections(ctx context.Context) (map[string]int, error) {
	frame, err := r.detector.CaptureFrame(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture frame: %w", err)
	}
	ids, err := r.detector.Detect(ctx, frame)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	counts := make(map[string]int, r.cat.Len())
	for _, id := range ids {
		desc, err := r.detector.DescribeClass(id)
		if err != nil {
			return nil, fmt.Errorf("%w: class id %d: %v", ErrDetectorInconsistency, id, err)
		}
		name := catalog.Normalize(desc)
		if !r.cat.Contains(name) {
			return nil, fmt.Errorf("%w: class id %d (%q) is not in the catalog", ErrDetectorInconsistency, id, desc)
		}
		counts[name]++
	}
	obs.Logger.Debug("frame_counted", "frame_id", frame.ID, "detections", len(ids))
	return counts, nil
}

// UpdateConstraint sets the minimum stock for class. Store errors are
// returned unchanged.
func (r *Reconciler) UpdateConstraint(ctx context.Context, class string, value int) error {
	class = catalog.Normalize(class)
	err := r.store.Set(ctx, class, value)
	result := "ok"
	switch {
	case err == nil:
		obs.Logger.Info("constraint_updated", "class", class, "constraint", value)
	case errors.Is(err, ErrUnknownClass):
		result = "unknown_class"
	case errors.Is(err, ErrInvalidConstraint):
		result = "invalid_constraint"
	case errors.Is(err, ErrNoRow):
		result = "no_row"
	case errors.Is(err, store.ErrMalformedStore):
		result = "malformed_store"
	case errors.Is(err, store.ErrStoreWrite):
		result = "write_failed"
		obs.Logger.Error("constraint_write_failed", "class", class, "error", err)
	default:
		result = "error"
	}
	obs.ConstraintUpdates.WithLabelValues(result).Inc()
	return err
}

// Constraint is one persisted policy entry.
type Constraint struct {
	Class      string `json:"class"`
	Constraint int    `json:"constraint"`
}

// Constraints returns the stored constraint of every catalog class in catalog
// order. Classes without a stored row report 0.
func (r *Reconciler) Constraints(ctx context.Context) ([]Constraint, error) {
	c, err := r.loadConstraints(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Constraint, 0, r.cat.Len())
	for _, name := range r.cat.Names() {
		out = append(out, Constraint{Class: name, Constraint: c[name]})
	}
	return out, nil
}

func snapshotResult(ctx context.Context, err error) string {
	switch {
	case err == nil:
		return "ok"
	case ctx.Err() != nil:
		return "timeout"
	case errors.Is(err, ErrInvalidConstraint):
		return "invalid_constraints"
	case errors.Is(err, ErrDetectorInconsistency):
		return "detector_inconsistency"
	default:
		return "error"
	}
}
