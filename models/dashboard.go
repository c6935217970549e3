package models

import (
	"context"
	"sort"
	"time"

	"github.com/ferrodesk/workshop_backend/config"
	"github.com/shopspring/decimal"
)

// Dashboard is the nested snapshot the frontend renders from. It is rebuilt
// from flat rows on every request; nothing here is stored.
type Dashboard struct {
	Orders    []*OrderView    `json:"orders"`
	Clients   []*ClientView   `json:"clients"`
	Inventory []*MaterialView `json:"inventory"`
}

type OrderView struct {
	ID           int              `json:"id"`
	Name         string           `json:"name"`
	Status       WorkStatus       `json:"status"`
	Priority     Priority         `json:"priority"`
	ClientId     int              `json:"client_id"`
	ClientName   string           `json:"client_name"`
	DeliveryDate *time.Time       `json:"delivery_date"`
	Notes        string           `json:"notes"`
	TotalWeight  decimal.Decimal  `json:"total_weight"`
	SubOrders    []*SubOrderView  `json:"sub_orders"`
	CreatedAt    time.Time        `json:"created_at"`
}

type SubOrderView struct {
	ID           int                  `json:"id"`
	Name         string               `json:"name"`
	Type         string               `json:"type"`
	Quantity     string               `json:"quantity"`
	Parameters   string               `json:"parameters"`
	Status       WorkStatus           `json:"status"`
	Notes        string               `json:"notes"`
	ImageUrl     string               `json:"image_url"`
	DeliveryDate *time.Time           `json:"delivery_date"`
	Materials    []*MaterialUsageView `json:"materials"`
}

type MaterialUsageView struct {
	ID             int             `json:"id"`
	MaterialId     int             `json:"material_id"`
	MaterialName   string          `json:"material_name"`
	RequiredWeight decimal.Decimal `json:"required_weight"`
}

type ClientView struct {
	ID       int              `json:"id"`
	Name     string           `json:"name"`
	Contacts []*ClientContact `json:"contacts"`
}

type MaterialView struct {
	ID       int             `json:"id"`
	Name     string          `json:"name"`
	Weight   decimal.Decimal `json:"weight"`
	Unit     string          `json:"unit"`
	ImageUrl string          `json:"image_url"`
	LowStock bool            `json:"low_stock"`
}

// LoadDashboard fetches every collection in flat form and assembles the
// nested view. Grouping stays in pure helpers so it can be tested without a
// database.
func LoadDashboard(ctx context.Context) (*Dashboard, error) {
	db := config.GetDB()

	var orders []*Order
	if err := db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	var subOrders []*SubOrder
	if err := db.WithContext(ctx).Order("id").Find(&subOrders).Error; err != nil {
		return nil, err
	}
	var lines []*SubOrderMaterial
	if err := db.WithContext(ctx).Order("id").Find(&lines).Error; err != nil {
		return nil, err
	}
	var clients []*Client
	if err := db.WithContext(ctx).Order("name").Find(&clients).Error; err != nil {
		return nil, err
	}
	var contacts []*ClientContact
	if err := db.WithContext(ctx).Order("id").Find(&contacts).Error; err != nil {
		return nil, err
	}
	materials, err := ListMaterials(ctx)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Orders:    groupOrders(orders, subOrders, lines, clients),
		Clients:   groupClients(clients, contacts),
		Inventory: mapMaterials(materials),
	}, nil
}

func groupOrders(orders []*Order, subOrders []*SubOrder, lines []*SubOrderMaterial, clients []*Client) []*OrderView {
	linesBySubOrder := make(map[int][]*MaterialUsageView)
	for _, line := range lines {
		linesBySubOrder[line.SubOrderId] = append(linesBySubOrder[line.SubOrderId], &MaterialUsageView{
			ID:             line.ID,
			MaterialId:     line.MaterialId,
			MaterialName:   line.MaterialName,
			RequiredWeight: line.RequiredWeight,
		})
	}

	subOrdersByOrder := make(map[int][]*SubOrderView)
	for _, subOrder := range subOrders {
		materials := linesBySubOrder[subOrder.ID]
		if materials == nil {
			materials = []*MaterialUsageView{}
		}
		subOrdersByOrder[subOrder.OrderId] = append(subOrdersByOrder[subOrder.OrderId], &SubOrderView{
			ID:           subOrder.ID,
			Name:         subOrder.Name,
			Type:         subOrder.Type,
			Quantity:     subOrder.Quantity,
			Parameters:   subOrder.Parameters,
			Status:       subOrder.Status,
			Notes:        subOrder.Notes,
			ImageUrl:     subOrder.ImageUrl,
			DeliveryDate: subOrder.DeliveryDate,
			Materials:    materials,
		})
	}

	clientNames := make(map[int]string, len(clients))
	for _, client := range clients {
		clientNames[client.ID] = client.Name
	}

	views := make([]*OrderView, 0, len(orders))
	for _, order := range orders {
		children := subOrdersByOrder[order.ID]
		if children == nil {
			children = []*SubOrderView{}
		}
		views = append(views, &OrderView{
			ID:           order.ID,
			Name:         order.Name,
			Status:       order.Status,
			Priority:     order.Priority,
			ClientId:     order.ClientId,
			ClientName:   clientNames[order.ClientId],
			DeliveryDate: order.DeliveryDate,
			Notes:        order.Notes,
			TotalWeight:  sumUsage(children),
			SubOrders:    children,
			CreatedAt:    order.CreatedAt,
		})
	}
	return views
}

func sumUsage(subOrders []*SubOrderView) decimal.Decimal {
	total := decimal.Zero
	for _, subOrder := range subOrders {
		for _, line := range subOrder.Materials {
			total = total.Add(line.RequiredWeight)
		}
	}
	return total
}

func groupClients(clients []*Client, contacts []*ClientContact) []*ClientView {
	contactsByClient := make(map[int][]*ClientContact)
	for _, contact := range contacts {
		contactsByClient[contact.ClientId] = append(contactsByClient[contact.ClientId], contact)
	}

	views := make([]*ClientView, 0, len(clients))
	for _, client := range clients {
		grouped := contactsByClient[client.ID]
		if grouped == nil {
			grouped = []*ClientContact{}
		}
		views = append(views, &ClientView{
			ID:       client.ID,
			Name:     client.Name,
			Contacts: grouped,
		})
	}
	return views
}

func mapMaterials(materials []*Material) []*MaterialView {
	views := make([]*MaterialView, 0, len(materials))
	for _, material := range materials {
		views = append(views, &MaterialView{
			ID:       material.ID,
			Name:     material.Name,
			Weight:   material.Weight,
			Unit:     material.Unit,
			ImageUrl: material.ImageUrl,
			LowStock: material.Weight.LessThanOrEqual(LowStockThreshold),
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Name < views[j].Name })
	return views
}
