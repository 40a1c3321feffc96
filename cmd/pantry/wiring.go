package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fairyhunter13/pantry-inventory-service/internal/catalog"
	"github.com/fairyhunter13/pantry-inventory-service/internal/config"
	"github.com/fairyhunter13/pantry-inventory-service/internal/detect"
	"github.com/fairyhunter13/pantry-inventory-service/internal/inventory"
	"github.com/fairyhunter13/pantry-inventory-service/internal/price"
	"github.com/fairyhunter13/pantry-inventory-service/internal/price/trolley"
	"github.com/fairyhunter13/pantry-inventory-service/internal/store"
)

type deps struct {
	catalog    *catalog.Catalog
	store      *store.File
	prices     *price.Adapter
	reconciler *inventory.Reconciler
}

func newPrices(cfg config.Config) *price.Adapter {
	src := trolley.New(cfg.PriceSourceURL, trolley.NewClient(cfg.PriceTimeout), cfg.PriceUserAgent, cfg.PriceMaxBodyBytes)
	return price.NewAdapter(src, cfg.PriceTimeout, cfg.PriceConcurrency)
}

// build wires the reconciler from cfg. Detector class ids index the raw label
// list, background slot included.
func build(ctx context.Context, cfg config.Config) (*deps, error) {
	labels, err := catalog.ReadLabels(cfg.LabelsPath)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.New(labels...)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", cfg.LabelsPath, err)
	}
	st := store.NewFile(cfg.ConstraintsPath, cat)
	prices := newPrices(cfg)
	det := detect.NewRemote(cfg.DetectorURL, &http.Client{Timeout: cfg.DetectorTimeout}, cfg.DetectorThreshold, labels)
	rec, err := inventory.New(ctx, cat, st, prices, det)
	if err != nil {
		return nil, err
	}
	return &deps{catalog: cat, store: st, prices: prices, reconciler: rec}, nil
}
