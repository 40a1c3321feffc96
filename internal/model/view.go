package model

import "time"

// RecordView is the wire form of a ProductRecord with derived values filled in.
type RecordView struct {
	ProductRecord
	Demand    int     `json:"demand"`
	TotalCost float64 `json:"total_cost"`
}

// InventoryView is the wire form of an Inventory.
type InventoryView struct {
	Sequence    uint64       `json:"sequence"`
	TakenAt     time.Time    `json:"taken_at"`
	Records     []RecordView `json:"records"`
	TotalDemand int          `json:"total_demand"`
	TotalCost   float64      `json:"total_cost"`
}

// View computes derived values for r.
func (r ProductRecord) View() RecordView {
	return RecordView{ProductRecord: r, Demand: r.Demand(), TotalCost: r.TotalCost()}
}

// View computes derived values for every record and the totals.
func (inv Inventory) View() InventoryView {
	out := InventoryView{
		Sequence:    inv.Sequence,
		TakenAt:     inv.TakenAt,
		Records:     make([]RecordView, 0, len(inv.Records)),
		TotalDemand: inv.TotalDemand(),
		TotalCost:   inv.TotalCost(),
	}
	for _, r := range inv.Records {
		out.Records = append(out.Records, r.View())
	}
	return out
}
