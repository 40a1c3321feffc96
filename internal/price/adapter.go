// Package price looks up current market prices for catalog products.
package price

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/fairyhunter13/pantry-inventory-service/internal/model"
	"github.com/fairyhunter13/pantry-inventory-service/internal/obs"
	"golang.org/x/sync/errgroup"
)

// Source queries an external price listing for one product name.
type Source interface {
	Query(ctx context.Context, name string) ([]model.Quote, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, name string) ([]model.Quote, error)

// Query calls f.
func (f SourceFunc) Query(ctx context.Context, name string) ([]model.Quote, error) {
	return f(ctx, name)
}

// ErrNoOffers is reported when a source returns no usable candidates.
var ErrNoOffers = errors.New("no offers")

// Lookup results used for logging and metrics.
const (
	resultOK      = "ok"
	resultEmpty   = "empty"
	resultError   = "error"
	resultTimeout = "timeout"
)

// Adapter turns a Source into a batch lookup that never fails per item.
type Adapter struct {
	src         Source
	timeout     time.Duration
	concurrency int
}

// NewAdapter returns an Adapter. timeout bounds each individual query and
// concurrency caps in-flight queries; non-positive values pick defaults.
func NewAdapter(src Source, timeout time.Duration, concurrency int) *Adapter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Adapter{src: src, timeout: timeout, concurrency: concurrency}
}

// LookupBatch returns the cheapest quote for every name, or model.Unavailable
// where the lookup failed. The only error is the caller's context ending, in
// which case no mapping is returned.
func (a *Adapter) LookupBatch(ctx context.Context, names []string) (map[string]model.Quote, error) {
	quotes := make([]model.Quote, len(names))
	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, name := range names {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			quotes[i] = a.Lookup(ctx, name)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]model.Quote, len(names))
	for i, name := range names {
		out[name] = quotes[i]
	}
	return out, nil
}

type queryResult struct {
	offers []model.Quote
	err    error
}

// Lookup queries one name under the per-call timeout. A source that ignores
// its context is abandoned once the timeout fires.
func (a *Adapter) Lookup(ctx context.Context, name string) model.Quote {
	cctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	done := make(chan queryResult, 1)
	go func() {
		offers, err := a.src.Query(cctx, name)
		done <- queryResult{offers: offers, err: err}
	}()

	var res queryResult
	select {
	case res = <-done:
	case <-cctx.Done():
		res = queryResult{err: cctx.Err()}
	}

	if res.err == nil {
		if q, ok := Cheapest(res.offers); ok {
			obs.PriceLookups.WithLabelValues(resultOK).Inc()
			obs.Logger.Debug("price_lookup_ok", "product", name, "price", q.Price, "currency", q.Currency)
			return q
		}
		res.err = ErrNoOffers
	}

	result := resultError
	switch {
	case errors.Is(res.err, ErrNoOffers):
		result = resultEmpty
	case errors.Is(res.err, context.DeadlineExceeded):
		result = resultTimeout
	}
	obs.PriceLookups.WithLabelValues(result).Inc()
	if ctx.Err() == nil {
		obs.Logger.Warn("price_lookup_failed", "product", name, "result", result, "error", res.err)
	}
	return model.Unavailable
}

// Cheapest returns the lowest-priced valid offer. Ties keep the earliest
// offer. Offers with a negative or non-finite price are ignored.
func Cheapest(offers []model.Quote) (model.Quote, bool) {
	best, found := model.Unavailable, false
	for _, o := range offers {
		if o.Price < 0 || math.IsNaN(o.Price) || math.IsInf(o.Price, 0) {
			continue
		}
		if !found || o.Price < best.Price {
			best, found = o, true
		}
	}
	return best, found
}
