// Package model defines domain types used by the service.
package model

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a price offer for one product. The zero value is the
// unavailable sentinel.
type Quote struct {
	Link     string  `json:"link"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
}

// Unavailable is the quote used when no offer could be found.
var Unavailable = Quote{}

// Available reports whether q carries a real offer.
func (q Quote) Available() bool { return q != Unavailable }

// ProductRecord is one entry in an inventory snapshot.
type ProductRecord struct {
	Name       string  `json:"name"`
	Amount     int     `json:"amount"`
	Constraint int     `json:"constraint"`
	Price      float64 `json:"price"`
	Currency   string  `json:"currency"`
	Link       string  `json:"link"`
}

// NewRecord returns an empty record for name.
func NewRecord(name string) ProductRecord {
	return ProductRecord{Name: name}
}

// ApplyQuote copies the offer fields of q into the record.
func (r *ProductRecord) ApplyQuote(q Quote) {
	r.Link = q.Link
	r.Price = q.Price
	r.Currency = q.Currency
}

// Demand returns the units needed to reach the constraint. Surplus stock
// yields zero.
func (r ProductRecord) Demand() int {
	if d := r.Constraint - r.Amount; d > 0 {
		return d
	}
	return 0
}

// TotalCost returns demand * price rounded to cents, half to even. The float
// product is expanded to its exact decimal value before rounding, so a price
// such as 2.675 (stored just below the tie) rounds down.
func (r ProductRecord) TotalCost() float64 {
	product := float64(r.Demand()) * r.Price
	exact, err := decimal.NewFromString(strconv.FormatFloat(product, 'f', 30, 64))
	if err != nil {
		return 0
	}
	f, _ := exact.RoundBank(2).Float64()
	return f
}

// Inventory is an ordered snapshot of product records. Records appear in
// catalog order.
type Inventory struct {
	Sequence uint64          `json:"sequence"`
	TakenAt  time.Time       `json:"taken_at"`
	Records  []ProductRecord `json:"records"`
}

// Get returns the record for name.
func (inv Inventory) Get(name string) (ProductRecord, bool) {
	for _, r := range inv.Records {
		if r.Name == name {
			return r, true
		}
	}
	return ProductRecord{}, false
}

// Len returns the number of records.
func (inv Inventory) Len() int { return len(inv.Records) }

// TotalDemand sums demand across records.
func (inv Inventory) TotalDemand() int {
	total := 0
	for _, r := range inv.Records {
		total += r.Demand()
	}
	return total
}

// TotalCost sums the per-record costs. Each record is already rounded, the
// sum is rounded again to drop float noise.
func (inv Inventory) TotalCost() float64 {
	sum := decimal.Zero
	for _, r := range inv.Records {
		sum = sum.Add(decimal.NewFromFloat(r.TotalCost()))
	}
	f, _ := sum.Round(2).Float64()
	return f
}
