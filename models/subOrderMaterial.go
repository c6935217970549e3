package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubOrderMaterial is one reservation line: requiredWeight units of the
// referenced material are held out of the ledger on behalf of the sub-order.
// MaterialName is a snapshot taken when the line is saved; later inventory
// renames do not rewrite it.
type SubOrderMaterial struct {
	ID             int             `gorm:"primary_key" json:"id"`
	SubOrderId     int             `gorm:"index;not null" json:"sub_order_id"`
	MaterialId     int             `gorm:"index;not null" json:"material_id"`
	MaterialName   string          `gorm:"size:100;not null" json:"material_name"`
	RequiredWeight decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"required_weight"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (m SubOrderMaterial) GetId() int {
	return m.ID
}

func (m SubOrderMaterial) fillable() map[string]interface{} {
	return map[string]interface{}{
		"MaterialId":     m.MaterialId,
		"MaterialName":   m.MaterialName,
		"RequiredWeight": m.RequiredWeight,
	}
}

type NewSubOrderMaterial struct {
	HasId
	MaterialId     int             `json:"material_id" binding:"required"`
	RequiredWeight decimal.Decimal `json:"required_weight"`
}
