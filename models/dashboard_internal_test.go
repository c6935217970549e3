package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestGroupOrders_NestsSubOrdersAndLines(t *testing.T) {
	clients := []*Client{{ID: 1, Name: "Steelworks"}}
	orders := []*Order{
		{ID: 10, Name: "Gate", ClientId: 1, Status: WorkStatusActive, Priority: PriorityHigh},
		{ID: 11, Name: "Fence", ClientId: 1, Status: WorkStatusActive, Priority: PriorityLow},
	}
	subOrders := []*SubOrder{
		{ID: 20, OrderId: 10, Name: "Frame"},
		{ID: 21, OrderId: 10, Name: "Hinges"},
	}
	lines := []*SubOrderMaterial{
		{ID: 30, SubOrderId: 20, MaterialId: 5, MaterialName: "Steel 3mm", RequiredWeight: decimal.NewFromInt(40)},
		{ID: 31, SubOrderId: 20, MaterialId: 6, MaterialName: "Steel 5mm", RequiredWeight: decimal.NewFromInt(10)},
		{ID: 32, SubOrderId: 21, MaterialId: 5, MaterialName: "Steel 3mm", RequiredWeight: decimal.NewFromInt(2)},
	}

	views := groupOrders(orders, subOrders, lines, clients)
	if len(views) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(views))
	}

	gate := views[0]
	if gate.ClientName != "Steelworks" {
		t.Fatalf("expected client name resolved, got %q", gate.ClientName)
	}
	if len(gate.SubOrders) != 2 {
		t.Fatalf("expected 2 sub-orders under Gate, got %d", len(gate.SubOrders))
	}
	if len(gate.SubOrders[0].Materials) != 2 || len(gate.SubOrders[1].Materials) != 1 {
		t.Fatalf("lines grouped wrong: %d / %d", len(gate.SubOrders[0].Materials), len(gate.SubOrders[1].Materials))
	}
	if !gate.TotalWeight.Equal(decimal.NewFromInt(52)) {
		t.Fatalf("expected Gate total weight 52, got %s", gate.TotalWeight)
	}

	fence := views[1]
	if fence.SubOrders == nil || len(fence.SubOrders) != 0 {
		t.Fatalf("childless order must get an empty slice, got %v", fence.SubOrders)
	}
	if !fence.TotalWeight.IsZero() {
		t.Fatalf("expected Fence total weight 0, got %s", fence.TotalWeight)
	}
}

// The nested view must carry exactly the rows it was built from: flattening
// the view's usage lines back out and diffing against the source rows nets to
// zero for every material.
func TestGroupOrders_RoundTripsUsageLines(t *testing.T) {
	orders := []*Order{{ID: 1, ClientId: 1}}
	subOrders := []*SubOrder{{ID: 2, OrderId: 1}, {ID: 3, OrderId: 1}}
	lines := []*SubOrderMaterial{
		{ID: 40, SubOrderId: 2, MaterialId: 1, RequiredWeight: decimal.NewFromInt(7)},
		{ID: 41, SubOrderId: 2, MaterialId: 2, RequiredWeight: decimal.NewFromInt(13)},
		{ID: 42, SubOrderId: 3, MaterialId: 1, RequiredWeight: decimal.NewFromInt(5)},
	}

	views := groupOrders(orders, subOrders, lines, nil)

	var flattened []*SubOrderMaterial
	for _, order := range views {
		for _, subOrder := range order.SubOrders {
			for _, usage := range subOrder.Materials {
				flattened = append(flattened, &SubOrderMaterial{
					ID:             usage.ID,
					MaterialId:     usage.MaterialId,
					RequiredWeight: usage.RequiredWeight,
				})
			}
		}
	}

	if deltas := NetStockDeltas(lines, flattened); len(deltas) != 0 {
		t.Fatalf("view dropped or altered usage lines: %v", deltas)
	}
}

func TestGroupClients_EmptyContactsIsEmptySlice(t *testing.T) {
	clients := []*Client{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}
	contacts := []*ClientContact{
		{ID: 9, ClientId: 2, Type: ContactTypePhone, Value: "+380501112233"},
	}

	views := groupClients(clients, contacts)
	if len(views) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(views))
	}
	if views[0].Contacts == nil || len(views[0].Contacts) != 0 {
		t.Fatalf("contactless client must get an empty slice, got %v", views[0].Contacts)
	}
	if len(views[1].Contacts) != 1 || views[1].Contacts[0].ID != 9 {
		t.Fatalf("contacts grouped wrong: %v", views[1].Contacts)
	}
}

func TestMapMaterials_LowStockThreshold(t *testing.T) {
	materials := []*Material{
		{ID: 1, Name: "Bolt", Weight: decimal.NewFromInt(10)},
		{ID: 2, Name: "Sheet", Weight: decimal.NewFromFloat(10.5)},
		{ID: 3, Name: "Rod", Weight: decimal.NewFromInt(-4)},
	}

	byName := make(map[string]*MaterialView)
	for _, v := range mapMaterials(materials) {
		byName[v.Name] = v
	}

	if !byName["Bolt"].LowStock {
		t.Fatalf("weight at the threshold counts as low stock")
	}
	if byName["Sheet"].LowStock {
		t.Fatalf("weight above the threshold is not low stock")
	}
	if !byName["Rod"].LowStock {
		t.Fatalf("negative weight is low stock")
	}
}
