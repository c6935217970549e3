package models

import (
	"context"
	"time"

	"github.com/ferrodesk/workshop_backend/config"
	"github.com/ferrodesk/workshop_backend/utils"
	"github.com/shopspring/decimal"
)

// Order owns its sub-orders (composition); the client link is a weak
// reference by id. TotalWeight is denormalized from the live reservation
// lines and refreshed on every sub-order save/delete.
type Order struct {
	ID           int              `gorm:"primary_key" json:"id"`
	Name         string           `gorm:"size:100;not null" json:"name" binding:"required"`
	Status       WorkStatus       `gorm:"type:enum('Active','InProgress','Completed','Suspended');default:'Active'" json:"status"`
	Priority     Priority         `gorm:"type:enum('Low','Medium','High');default:'Medium'" json:"priority"`
	ClientId     int              `gorm:"index;not null" json:"client_id"`
	DeliveryDate *time.Time       `json:"delivery_date"`
	Notes        string           `gorm:"type:text" json:"notes"`
	TotalWeight  *decimal.Decimal `gorm:"type:decimal(20,4)" json:"total_weight"`
	SubOrders    []*SubOrder      `gorm:"foreignKey:OrderId" json:"sub_orders"`
	CreatedAt    time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewOrder struct {
	Name         string     `json:"name" binding:"required"`
	Status       WorkStatus `json:"status"`
	Priority     Priority   `json:"priority"`
	ClientId     int        `json:"client_id" binding:"required"`
	DeliveryDate *time.Time `json:"delivery_date"`
	Notes        string     `json:"notes"`
}

func (input *NewOrder) validate(ctx context.Context, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Order](ctx, id); err != nil {
			return err
		}
	}
	if input.Status == "" {
		input.Status = WorkStatusActive
	}
	if !input.Status.IsValid() {
		return NewValidationError("invalid status")
	}
	if input.Priority == "" {
		input.Priority = PriorityMedium
	}
	if !input.Priority.IsValid() {
		return NewValidationError("invalid priority")
	}
	if err := utils.ValidateResourceId[Client](ctx, input.ClientId); err != nil {
		return NewValidationError("client not found")
	}
	return nil
}

func CreateOrder(ctx context.Context, input *NewOrder) (*Order, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	order := Order{
		Name:         input.Name,
		Status:       input.Status,
		Priority:     input.Priority,
		ClientId:     input.ClientId,
		DeliveryDate: input.DeliveryDate,
		Notes:        input.Notes,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&order).Error; err != nil {
		return nil, err
	}

	recordAction(ctx, "order.create", order.Name, LogLevelInfo)
	return &order, nil
}

func UpdateOrder(ctx context.Context, id int, input *NewOrder) (*Order, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	order, err := utils.FetchModel[Order](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(order).Updates(map[string]interface{}{
		"Name":         input.Name,
		"Status":       input.Status,
		"Priority":     input.Priority,
		"ClientId":     input.ClientId,
		"DeliveryDate": input.DeliveryDate,
		"Notes":        input.Notes,
	}).Error
	if err != nil {
		return nil, err
	}

	recordAction(ctx, "order.update", order.Name, LogLevelInfo)
	return order, nil
}

// DeleteOrder cascades: every sub-order first returns its live reservations
// to the ledger, then its lines and row go, then the order row itself.
func DeleteOrder(ctx context.Context, id int) error {
	order, err := utils.FetchModel[Order](ctx, id)
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

	var subOrders []*SubOrder
	if err := tx.WithContext(ctx).Where("order_id = ?", id).Find(&subOrders).Error; err != nil {
		tx.Rollback()
		return err
	}
	for _, subOrder := range subOrders {
		if err := deleteSubOrderTx(tx, ctx, subOrder); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.WithContext(ctx).Delete(&Order{}, id).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return err
	}
	clearMaterialCache()

	recordAction(ctx, "order.delete", order.Name, LogLevelInfo)
	return nil
}
