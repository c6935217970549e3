package models

import (
	"context"
	"time"

	"github.com/ferrodesk/workshop_backend/config"
	"github.com/ferrodesk/workshop_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SubOrder is owned exclusively by one Order. Its material lines are live
// reservations against the inventory ledger: every save nets out the old
// lines against the new ones and posts the difference, and deletion returns
// everything still held.
type SubOrder struct {
	ID           int                 `gorm:"primary_key" json:"id"`
	OrderId      int                 `gorm:"index;not null" json:"order_id"`
	Name         string              `gorm:"size:100;not null" json:"name" binding:"required"`
	Type         string              `gorm:"size:100" json:"type"`
	Quantity     string              `gorm:"size:100" json:"quantity"`
	Parameters   string              `gorm:"type:text" json:"parameters"`
	Status       WorkStatus          `gorm:"type:enum('Active','InProgress','Completed','Suspended');default:'Active'" json:"status"`
	Notes        string              `gorm:"type:text" json:"notes"`
	ImageUrl     string              `gorm:"size:2048" json:"image_url"`
	DeliveryDate *time.Time          `json:"delivery_date"`
	Materials    []*SubOrderMaterial `gorm:"foreignKey:SubOrderId" json:"materials"`
	CreatedAt    time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSubOrder struct {
	Name         string                 `json:"name" binding:"required"`
	Type         string                 `json:"type"`
	Quantity     string                 `json:"quantity"`
	Parameters   string                 `json:"parameters"`
	Status       WorkStatus             `json:"status"`
	Notes        string                 `json:"notes"`
	ImageUrl     string                 `json:"image_url"`
	DeliveryDate *time.Time             `json:"delivery_date"`
	Materials    []*NewSubOrderMaterial `json:"materials"`
}

func (input *NewSubOrder) validate() error {
	if input.Status == "" {
		input.Status = WorkStatusActive
	}
	if !input.Status.IsValid() {
		return NewValidationError("invalid status")
	}
	for _, line := range input.Materials {
		if !line.RequiredWeight.IsPositive() {
			return NewValidationError("required weight must be greater than zero")
		}
	}
	return nil
}

// SaveSubOrder creates (id == 0) or updates a sub-order together with its
// material lines, posting the net reservation deltas to the ledger in the
// same transaction. Returned warnings are non-fatal: a shortfall never blocks
// the save.
func SaveSubOrder(ctx context.Context, orderId int, id int, input *NewSubOrder) (*SubOrder, []ShortfallWarning, error) {
	if err := input.validate(); err != nil {
		return nil, nil, err
	}
	if err := utils.ValidateResourceId[Order](ctx, orderId); err != nil {
		return nil, nil, err
	}
	if len(input.Materials) > 0 {
		inputIds := make([]int, 0, len(input.Materials))
		for _, line := range input.Materials {
			inputIds = append(inputIds, line.MaterialId)
		}
		if err := utils.ValidateResourcesId[Material](ctx, inputIds); err != nil {
			return nil, nil, NewValidationError("material not found")
		}
	}

	lock := acquireInventoryLock(ctx)
	if lock != nil {
		defer lock.Release(ctx)
	}

	db := config.GetDB()
	tx := db.Begin()
	if tx.Error != nil {
		return nil, nil, tx.Error
	}

	var subOrder SubOrder
	var oldLines []*SubOrderMaterial
	if id > 0 {
		if err := tx.WithContext(ctx).Where("order_id = ?", orderId).First(&subOrder, id).Error; err != nil {
			tx.Rollback()
			return nil, nil, utils.ErrorRecordNotFound
		}
		if err := tx.WithContext(ctx).Model(&subOrder).Updates(map[string]interface{}{
			"Name":         input.Name,
			"Type":         input.Type,
			"Quantity":     input.Quantity,
			"Parameters":   input.Parameters,
			"Status":       input.Status,
			"Notes":        input.Notes,
			"ImageUrl":     input.ImageUrl,
			"DeliveryDate": input.DeliveryDate,
		}).Error; err != nil {
			tx.Rollback()
			return nil, nil, err
		}
		if err := tx.WithContext(ctx).Where("sub_order_id = ?", id).Find(&oldLines).Error; err != nil {
			tx.Rollback()
			return nil, nil, err
		}
	} else {
		subOrder = SubOrder{
			OrderId:      orderId,
			Name:         input.Name,
			Type:         input.Type,
			Quantity:     input.Quantity,
			Parameters:   input.Parameters,
			Status:       input.Status,
			Notes:        input.Notes,
			ImageUrl:     input.ImageUrl,
			DeliveryDate: input.DeliveryDate,
		}
		if err := tx.WithContext(ctx).Create(&subOrder).Error; err != nil {
			tx.Rollback()
			return nil, nil, err
		}
	}

	// Lock every material this save touches before reading balances: the
	// shortfall check must see the on-hand weight as of before this save's
	// deltas, and the rows must not move under us until commit.
	materialIds := make([]int, 0, len(oldLines)+len(input.Materials))
	for _, line := range oldLines {
		materialIds = append(materialIds, line.MaterialId)
	}
	for _, line := range input.Materials {
		materialIds = append(materialIds, line.MaterialId)
	}
	locked, err := lockMaterials(tx, ctx, materialIds)
	if err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	newLines := make([]*SubOrderMaterial, 0, len(input.Materials))
	for _, line := range input.Materials {
		material, ok := locked[line.MaterialId]
		if !ok {
			tx.Rollback()
			return nil, nil, NewValidationError("material not found")
		}
		newLines = append(newLines, &SubOrderMaterial{
			ID:             line.ID,
			SubOrderId:     subOrder.ID,
			MaterialId:     line.MaterialId,
			MaterialName:   material.Name,
			RequiredWeight: line.RequiredWeight,
		})
	}

	onHand := make(map[int]decimal.Decimal, len(locked))
	for matId, material := range locked {
		onHand[matId] = material.Weight
	}
	warnings := CheckShortfalls(onHand, oldLines, newLines)

	deltas := NetStockDeltas(oldLines, newLines)
	if err := applyStockDeltas(tx, ctx, locked, deltas, MovementDocTypeSubOrder, subOrder.ID); err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	if err := ReplaceAssociation(ctx, tx, derefLines(newLines), "sub_order_id = ?", subOrder.ID); err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	// Re-read the lines so freshly inserted rows come back with their ids;
	// the caller diff-edits against these without a full reload.
	var savedLines []*SubOrderMaterial
	if err := tx.WithContext(ctx).Where("sub_order_id = ?", subOrder.ID).Order("id").Find(&savedLines).Error; err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	if err := refreshOrderTotalWeight(tx, ctx, orderId); err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, nil, err
	}
	clearMaterialCache()

	subOrder.Materials = savedLines
	recordAction(ctx, "suborder.save", subOrder.Name, LogLevelInfo)
	for _, w := range warnings {
		config.LogWarn(config.GetLogger(), "subOrder.go", "SaveSubOrder", "shortfall", w, w.Message())
		recordAction(ctx, "suborder.shortfall", w.Message(), LogLevelWarning)
	}
	return &subOrder, warnings, nil
}

// DeleteSubOrder returns every live reservation to the ledger before removing
// the sub-order and its lines.
func DeleteSubOrder(ctx context.Context, id int) error {
	subOrder, err := utils.FetchModel[SubOrder](ctx, id)
	if err != nil {
		return err
	}

	lock := acquireInventoryLock(ctx)
	if lock != nil {
		defer lock.Release(ctx)
	}

	db := config.GetDB()
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	if err := deleteSubOrderTx(tx, ctx, subOrder); err != nil {
		tx.Rollback()
		return err
	}
	if err := refreshOrderTotalWeight(tx, ctx, subOrder.OrderId); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return err
	}
	clearMaterialCache()

	recordAction(ctx, "suborder.delete", subOrder.Name, LogLevelInfo)
	return nil
}

// deleteSubOrderTx runs inside the caller's transaction so order cascades and
// single deletes share one path; reservations always come back to the ledger
// before the rows go away.
func deleteSubOrderTx(tx *gorm.DB, ctx context.Context, subOrder *SubOrder) error {
	var lines []*SubOrderMaterial
	if err := tx.WithContext(ctx).Where("sub_order_id = ?", subOrder.ID).Find(&lines).Error; err != nil {
		return err
	}

	materialIds := make([]int, 0, len(lines))
	for _, line := range lines {
		materialIds = append(materialIds, line.MaterialId)
	}
	locked, err := lockMaterials(tx, ctx, materialIds)
	if err != nil {
		return err
	}

	deltas := NetStockDeltas(lines, nil)
	if err := applyStockDeltas(tx, ctx, locked, deltas, MovementDocTypeSubOrder, subOrder.ID); err != nil {
		return err
	}

	if err := tx.WithContext(ctx).Where("sub_order_id = ?", subOrder.ID).Delete(&SubOrderMaterial{}).Error; err != nil {
		return err
	}
	return tx.WithContext(ctx).Delete(&SubOrder{}, subOrder.ID).Error
}

// refreshOrderTotalWeight recomputes the order's denormalized total from its
// live reservation lines.
func refreshOrderTotalWeight(tx *gorm.DB, ctx context.Context, orderId int) error {
	return tx.WithContext(ctx).Exec(`
		UPDATE orders SET total_weight = (
			SELECT SUM(som.required_weight)
			FROM sub_order_materials som
			JOIN sub_orders so ON so.id = som.sub_order_id
			WHERE so.order_id = ?
		), updated_at = CURRENT_TIMESTAMP WHERE id = ?`, orderId, orderId).Error
}

func derefLines(lines []*SubOrderMaterial) []SubOrderMaterial {
	out := make([]SubOrderMaterial, 0, len(lines))
	for _, line := range lines {
		out = append(out, *line)
	}
	return out
}
