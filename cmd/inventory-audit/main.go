// inventory-audit scans for two kinds of drift between the usage lines and
// the stock balances:
//
//   - orphaned usage lines whose parent sub-order no longer exists (their
//     reserved weight was never returned to stock)
//   - materials whose on-hand weight went negative
//
// By default it only reports. With -fix it returns the orphaned weight to
// stock, records the movements, and deletes the orphaned lines in one
// transaction per material. Negative balances are reported only; they are a
// deliberate backorder state and need a human decision.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//   go run ./cmd/inventory-audit [-fix]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/ferrodesk/workshop_backend/config"
	"github.com/ferrodesk/workshop_backend/models"
	"github.com/ferrodesk/workshop_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type orphanRow struct {
	Id             int             `gorm:"column:id"`
	SubOrderId     int             `gorm:"column:sub_order_id"`
	MaterialId     int             `gorm:"column:material_id"`
	MaterialName   string          `gorm:"column:material_name"`
	RequiredWeight decimal.Decimal `gorm:"column:required_weight"`
}

func main() {
	fix := flag.Bool("fix", false, "return orphaned reserved weight to stock and delete the orphaned lines")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	ctx = utils.SetUserIdInContext(ctx, 0)
	ctx = utils.SetUserNameInContext(ctx, "InventoryAudit")

	var orphans []orphanRow
	if err := db.WithContext(ctx).Raw(`
SELECT som.id, som.sub_order_id, som.material_id, som.material_name, som.required_weight
FROM sub_order_materials som
LEFT JOIN sub_orders ON sub_orders.id = som.sub_order_id
WHERE sub_orders.id IS NULL
ORDER BY som.material_id, som.id`).Scan(&orphans).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to scan for orphaned usage lines: %v\n", err)
		os.Exit(1)
	}

	var negatives []*models.Material
	if err := db.WithContext(ctx).Where("weight < 0").Order("id").Find(&negatives).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to scan for negative balances: %v\n", err)
		os.Exit(1)
	}

	for _, m := range negatives {
		fmt.Printf("NEGATIVE  material=%d %q on_hand=%s %s\n", m.ID, m.Name, m.Weight.String(), m.Unit)
	}
	for _, o := range orphans {
		fmt.Printf("ORPHAN    line=%d sub_order=%d material=%d %q reserved=%s\n",
			o.Id, o.SubOrderId, o.MaterialId, o.MaterialName, o.RequiredWeight.String())
	}
	if len(orphans) == 0 && len(negatives) == 0 {
		fmt.Println("inventory is consistent")
		return
	}

	if !*fix {
		fmt.Printf("found %d orphaned line(s), %d negative balance(s); rerun with -fix to return orphaned weight\n",
			len(orphans), len(negatives))
		return
	}

	fixed := 0
	for _, o := range orphans {
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := models.ReturnOrphanedLine(tx, ctx, o.Id, o.MaterialId, o.RequiredWeight); err != nil {
				return err
			}
			return nil
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to fix line %d: %v\n", o.Id, err)
			os.Exit(1)
		}
		fixed++
	}
	fmt.Printf("returned weight for %d orphaned line(s)\n", fixed)
}
