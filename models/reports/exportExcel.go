package reports

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ferrodesk/workshop_backend/config"
	"github.com/ferrodesk/workshop_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type inventoryRow struct {
	Id            int             `gorm:"column:id"`
	Name          string          `gorm:"column:name"`
	Weight        decimal.Decimal `gorm:"column:weight"`
	Unit          string          `gorm:"column:unit"`
	ReservedTotal decimal.Decimal `gorm:"column:reserved_total"`
}

func getInventoryReport(ctx context.Context) ([]*inventoryRow, error) {

	sql := `
SELECT
    inventory.id,
    inventory.name,
    inventory.weight,
    inventory.unit,
    COALESCE(SUM(sub_order_materials.required_weight), 0) AS reserved_total
FROM
    inventory
    LEFT JOIN sub_order_materials ON sub_order_materials.material_id = inventory.id
GROUP BY
    inventory.id, inventory.name, inventory.weight, inventory.unit
ORDER BY
    inventory.name;
`

	var records []*inventoryRow
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql).Scan(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

// ExportInventoryExcel streams the current stock sheet: balance on hand plus
// the weight that open sub-orders currently hold.
func ExportInventoryExcel(ctx context.Context, w http.ResponseWriter) error {

	data, err := getInventoryReport(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	sheet := "Sheet1"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	f.SetCellValue(sheet, "A1", "Material")
	f.SetCellValue(sheet, "B1", "OnHand")
	f.SetCellValue(sheet, "C1", "Unit")
	f.SetCellValue(sheet, "D1", "Reserved")

	for i, d := range data {
		f.SetCellValue(sheet, "A"+fmt.Sprint(i+2), d.Name)
		f.SetCellValue(sheet, "B"+fmt.Sprint(i+2), d.Weight.InexactFloat64())
		f.SetCellValue(sheet, "C"+fmt.Sprint(i+2), d.Unit)
		f.SetCellValue(sheet, "D"+fmt.Sprint(i+2), d.ReservedTotal.InexactFloat64())
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=inventory.xlsx")
	return f.Write(w)
}

type orderRow struct {
	Id           int              `gorm:"column:id"`
	Name         string           `gorm:"column:name"`
	Status       string           `gorm:"column:status"`
	Priority     string           `gorm:"column:priority"`
	ClientName   *string          `gorm:"column:client_name"`
	DeliveryDate *time.Time       `gorm:"column:delivery_date"`
	SubOrders    int              `gorm:"column:sub_order_count"`
	TotalWeight  *decimal.Decimal `gorm:"column:total_weight"`
}

func getOrdersReport(ctx context.Context) ([]*orderRow, error) {

	sql := `
SELECT
    orders.id,
    orders.name,
    orders.status,
    orders.priority,
    clients.name AS client_name,
    orders.delivery_date,
    COUNT(sub_orders.id) AS sub_order_count,
    orders.total_weight
FROM
    orders
    LEFT JOIN clients ON clients.id = orders.client_id
    LEFT JOIN sub_orders ON sub_orders.order_id = orders.id
GROUP BY
    orders.id, orders.name, orders.status, orders.priority,
    clients.name, orders.delivery_date, orders.total_weight
ORDER BY
    orders.created_at DESC;
`

	var records []*orderRow
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql).Scan(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

// ExportOrdersExcel streams one row per order with its client and the weight
// the order's usage lines add up to.
func ExportOrdersExcel(ctx context.Context, w http.ResponseWriter) error {

	data, err := getOrdersReport(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	sheet := "Sheet1"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	f.SetCellValue(sheet, "A1", "Order")
	f.SetCellValue(sheet, "B1", "Client")
	f.SetCellValue(sheet, "C1", "Status")
	f.SetCellValue(sheet, "D1", "Priority")
	f.SetCellValue(sheet, "E1", "DeliveryDate")
	f.SetCellValue(sheet, "F1", "SubOrders")
	f.SetCellValue(sheet, "G1", "TotalWeight")

	for i, d := range data {
		row := fmt.Sprint(i + 2)
		f.SetCellValue(sheet, "A"+row, d.Name)
		f.SetCellValue(sheet, "B"+row, utils.DereferencePtr(d.ClientName, ""))
		f.SetCellValue(sheet, "C"+row, d.Status)
		f.SetCellValue(sheet, "D"+row, d.Priority)
		if d.DeliveryDate != nil {
			f.SetCellValue(sheet, "E"+row, d.DeliveryDate.Format("2006-01-02"))
		}
		f.SetCellValue(sheet, "F"+row, d.SubOrders)
		f.SetCellValue(sheet, "G"+row, utils.DereferencePtr(d.TotalWeight).InexactFloat64())
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=orders.xlsx")
	return f.Write(w)
}
