package models

import (
	"context"
	"sort"
	"time"

	"github.com/bsm/redislock"
	"github.com/ferrodesk/workshop_backend/config"
	"github.com/ferrodesk/workshop_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LowStockThreshold is the on-hand weight at or below which the dashboard
// flags a material as running out.
var LowStockThreshold = decimal.NewFromInt(10)

// Material is an inventory row. Weight is the current on-hand balance; it is
// mutated only through ledger adjustments or direct edits. Negative balances
// are permitted (backorder) and surfaced as warnings by callers.
type Material struct {
	ID        int             `gorm:"primary_key" json:"id"`
	Name      string          `gorm:"size:100;not null" json:"name" binding:"required"`
	Weight    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"weight"`
	Unit      string          `gorm:"size:20;not null;default:'kg'" json:"unit"`
	ImageUrl  string          `gorm:"size:2048" json:"image_url"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Material) TableName() string {
	return "inventory"
}

type NewMaterial struct {
	Name     string          `json:"name" binding:"required"`
	Weight   decimal.Decimal `json:"weight"`
	Unit     string          `json:"unit"`
	ImageUrl string          `json:"image_url"`
}

func (input *NewMaterial) validate(ctx context.Context, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Material](ctx, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateUnique[Material](ctx, "name", input.Name, id); err != nil {
		return NewValidationError(err.Error())
	}
	if input.Weight.IsNegative() {
		return NewValidationError("weight cannot be negative")
	}
	return nil
}

func CreateMaterial(ctx context.Context, input *NewMaterial) (*Material, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	unit := input.Unit
	if unit == "" {
		unit = "kg"
	}
	material := Material{
		Name:     input.Name,
		Weight:   input.Weight,
		Unit:     unit,
		ImageUrl: input.ImageUrl,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&material).Error; err != nil {
		return nil, err
	}
	clearMaterialCache()

	recordAction(ctx, "material.create", material.Name, LogLevelInfo)
	return &material, nil
}

func UpdateMaterial(ctx context.Context, id int, input *NewMaterial) (*Material, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	material, err := utils.FetchModel[Material](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(material).Updates(map[string]interface{}{
		"Name":     input.Name,
		"Weight":   input.Weight,
		"Unit":     input.Unit,
		"ImageUrl": input.ImageUrl,
	}).Error
	if err != nil {
		return nil, err
	}
	clearMaterialCache()

	recordAction(ctx, "material.update", material.Name, LogLevelInfo)
	return material, nil
}

// DeleteMaterial refuses to remove a material that still backs live
// reservations; orphaned usage lines would silently detach from the ledger.
func DeleteMaterial(ctx context.Context, id int) error {
	material, err := utils.FetchModel[Material](ctx, id)
	if err != nil {
		return err
	}

	refs, err := utils.ResourceCountWhere[SubOrderMaterial](ctx, "material_id = ?", id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return NewValidationError("material is still reserved by sub-orders")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(&Material{}, id).Error; err != nil {
		return err
	}
	clearMaterialCache()

	recordAction(ctx, "material.delete", material.Name, LogLevelInfo)
	return nil
}

// ListMaterials reads the inventory set, redis first, caching the result.
func ListMaterials(ctx context.Context) ([]*Material, error) {
	results, err := utils.RetrieveRedisList[Material]()
	if err != nil {
		return nil, err
	}
	if results == nil {
		results, err = utils.FetchAllModels[Material](ctx)
		if err != nil {
			return nil, err
		}
		if err := utils.StoreRedisList[Material](results); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// GetOnHand returns the current on-hand weight.
// (may return RecordNotFound)
func GetOnHand(ctx context.Context, id int) (decimal.Decimal, error) {
	material, err := utils.FetchModel[Material](ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return material.Weight, nil
}

// lockMaterials takes FOR UPDATE row locks on the given materials, in id order
// to keep lock acquisition deterministic across concurrent saves. Materials
// that do not exist are simply absent from the returned map.
func lockMaterials(tx *gorm.DB, ctx context.Context, ids []int) (map[int]*Material, error) {
	unqIds := utils.UniqueSlice(ids)
	sort.Ints(unqIds)

	locked := make(map[int]*Material, len(unqIds))
	if len(unqIds) == 0 {
		return locked, nil
	}

	var materials []*Material
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", unqIds).
		Order("id").
		Find(&materials).Error; err != nil {
		return nil, err
	}
	for _, m := range materials {
		locked[m.ID] = m
	}
	return locked, nil
}

// applyStockDeltas posts the net ledger adjustments inside the caller's
// transaction. Rows must already be locked via lockMaterials. A delta against
// a missing material is a logged no-op; a negative resulting balance is
// permitted and logged as a warning.
func applyStockDeltas(tx *gorm.DB, ctx context.Context, locked map[int]*Material, deltas []StockDelta, docType string, docId int) error {
	logger := config.GetLogger()

	for _, d := range deltas {
		if d.Delta.IsZero() {
			continue
		}
		material, ok := locked[d.MaterialId]
		if !ok {
			config.LogWarn(logger, "material.go", "applyStockDeltas", docType,
				map[string]interface{}{"material_id": d.MaterialId, "delta": d.Delta},
				"stock adjustment against unknown material skipped")
			continue
		}

		if err := tx.WithContext(ctx).Exec(
			"UPDATE inventory SET weight = weight + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
			d.Delta, material.ID).Error; err != nil {
			return err
		}
		if err := appendMovement(tx, ctx, material.ID, d.Delta, docType, docId); err != nil {
			return err
		}

		material.Weight = material.Weight.Add(d.Delta)
		if material.Weight.IsNegative() {
			config.LogWarn(logger, "material.go", "applyStockDeltas", docType,
				map[string]interface{}{"material_id": material.ID, "weight": material.Weight},
				"on-hand weight went negative")
		}
	}
	return nil
}

// AdjustStock is the manual restock/correction entry point: positive delta
// restocks, negative withdraws. Unlike document postings, which skip unknown
// materials as logged no-ops, a manual adjustment of a non-existent material
// is reported to the caller as not found.
func AdjustStock(ctx context.Context, materialId int, delta decimal.Decimal, docType string, docId int) (*Material, error) {
	lock := acquireInventoryLock(ctx)
	if lock != nil {
		defer lock.Release(ctx)
	}

	db := config.GetDB()
	tx := db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	locked, err := lockMaterials(tx, ctx, []int{materialId})
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if locked[materialId] == nil {
		tx.Rollback()
		return nil, utils.ErrorRecordNotFound
	}
	if err := applyStockDeltas(tx, ctx, locked, []StockDelta{{MaterialId: materialId, Delta: delta}}, docType, docId); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	clearMaterialCache()

	material := locked[materialId]
	if material != nil {
		recordAction(ctx, "inventory.adjust", material.Name+" "+delta.String(), LogLevelInfo)
	}
	return material, nil
}

// ReturnOrphanedLine puts a dangling usage line's reserved weight back on
// hand and deletes the line. Used by the audit tool for lines whose parent
// sub-order is gone.
func ReturnOrphanedLine(tx *gorm.DB, ctx context.Context, lineId int, materialId int, weight decimal.Decimal) error {
	locked, err := lockMaterials(tx, ctx, []int{materialId})
	if err != nil {
		return err
	}
	deltas := []StockDelta{{MaterialId: materialId, Delta: weight}}
	if err := applyStockDeltas(tx, ctx, locked, deltas, MovementDocTypeAudit, lineId); err != nil {
		return err
	}
	if err := tx.WithContext(ctx).Delete(&SubOrderMaterial{}, lineId).Error; err != nil {
		return err
	}
	clearMaterialCache()
	return nil
}

// acquireInventoryLock serializes whole-save critical sections across
// processes. Redis is a best-effort optimization: correctness does not depend
// on it, the row locks in lockMaterials do the real work.
func acquireInventoryLock(ctx context.Context) *redislock.Lock {
	locker := config.GetRedisLock()
	if locker == nil {
		return nil
	}
	lock, err := locker.Obtain(ctx, "lock:inventory", 10*time.Second, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 20),
	})
	if err != nil {
		config.LogWarn(config.GetLogger(), "material.go", "acquireInventoryLock", "redislock", nil,
			"could not obtain inventory lock; proceeding with row locks only")
		return nil
	}
	return lock
}

func clearMaterialCache() {
	if err := utils.RemoveRedisList[Material](); err != nil {
		config.LogError(config.GetLogger(), "material.go", "clearMaterialCache", "redis", nil, err)
	}
}
