package models

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// StockDelta is a signed ledger adjustment for one material.
type StockDelta struct {
	MaterialId int             `json:"material_id"`
	Delta      decimal.Decimal `json:"delta"`
}

// NetStockDeltas computes the ledger adjustments for replacing oldLines with
// newLines on a sub-order: per material, sum(old required weight) minus
// sum(new required weight). Positive deltas return weight to the ledger,
// negative deltas withdraw it, so posting the result yields the
// restock-then-withdraw effect of an edit in a single step. Materials whose
// old and new totals match net out and are omitted. The result is ordered by
// material id so lock acquisition and posting are deterministic.
func NetStockDeltas(oldLines, newLines []*SubOrderMaterial) []StockDelta {
	net := make(map[int]decimal.Decimal)
	for _, line := range oldLines {
		net[line.MaterialId] = net[line.MaterialId].Add(line.RequiredWeight)
	}
	for _, line := range newLines {
		net[line.MaterialId] = net[line.MaterialId].Sub(line.RequiredWeight)
	}

	ids := make([]int, 0, len(net))
	for id, delta := range net {
		if delta.IsZero() {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)

	deltas := make([]StockDelta, 0, len(ids))
	for _, id := range ids {
		deltas = append(deltas, StockDelta{MaterialId: id, Delta: net[id]})
	}
	return deltas
}

// ShortfallWarning flags a material whose total demand from this sub-order
// exceeds what the ledger can cover. It never blocks the save: the
// reservation still goes through and the ledger may go negative.
// OnHandWeight is the pre-save balance, RequiredWeight the sub-order's total
// new demand on the material.
type ShortfallWarning struct {
	MaterialId     int             `json:"material_id"`
	MaterialName   string          `json:"material_name"`
	OnHandWeight   decimal.Decimal `json:"on_hand_weight"`
	RequiredWeight decimal.Decimal `json:"required_weight"`
}

func (w ShortfallWarning) Message() string {
	return fmt.Sprintf("insufficient stock for %s: on hand %s, required %s; order saved but inventory needs restocking",
		w.MaterialName, w.OnHandWeight, w.RequiredWeight)
}

// CheckShortfalls performs the point-in-time insufficiency check per
// material. onHand must be the pre-save balances, which still include this
// sub-order's own prior reservations, so the cover for a material is on-hand
// plus the old demand: a material warns when its new total demand exceeds
// that. Aggregating by material (not by line id) means re-pointing a line at
// a different material counts as brand-new demand on the target material.
// Demand equal to the cover is not a shortfall; one unit over is. Materials
// missing from onHand are skipped here; the posting path logs them as no-ops.
func CheckShortfalls(onHand map[int]decimal.Decimal, oldLines, newLines []*SubOrderMaterial) []ShortfallWarning {
	oldDemand := make(map[int]decimal.Decimal, len(oldLines))
	for _, line := range oldLines {
		oldDemand[line.MaterialId] = oldDemand[line.MaterialId].Add(line.RequiredWeight)
	}
	newDemand := make(map[int]decimal.Decimal, len(newLines))
	names := make(map[int]string, len(newLines))
	for _, line := range newLines {
		newDemand[line.MaterialId] = newDemand[line.MaterialId].Add(line.RequiredWeight)
		names[line.MaterialId] = line.MaterialName
	}

	ids := make([]int, 0, len(newDemand))
	for id := range newDemand {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var warnings []ShortfallWarning
	for _, id := range ids {
		balance, ok := onHand[id]
		if !ok {
			continue
		}
		cover := balance.Add(oldDemand[id])
		if newDemand[id].GreaterThan(cover) {
			warnings = append(warnings, ShortfallWarning{
				MaterialId:     id,
				MaterialName:   names[id],
				OnHandWeight:   balance,
				RequiredWeight: newDemand[id],
			})
		}
	}
	return warnings
}
