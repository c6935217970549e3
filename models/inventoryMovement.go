package models

import (
	"context"
	"time"

	"github.com/ferrodesk/workshop_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InventoryMovement is the append-only audit trail behind the mutable on-hand
// balance: one row per signed ledger adjustment, referencing the document that
// caused it.
type InventoryMovement struct {
	ID            string          `gorm:"size:36;primary_key" json:"id"` // uuid
	MaterialId    int             `gorm:"index:idx_inv_move_item_date,priority:1;not null" json:"material_id"`
	QtyDelta      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty_delta"`
	DocType       string          `gorm:"size:20;not null" json:"doc_type"` // SO, ADJ, AUD
	DocId         int             `gorm:"index" json:"doc_id"`
	CreatedAt     time.Time       `gorm:"autoCreateTime;index:idx_inv_move_item_date,priority:2" json:"created_at"`
	CorrelationId string          `gorm:"size:64;index" json:"correlation_id"`
}

func appendMovement(tx *gorm.DB, ctx context.Context, materialId int, delta decimal.Decimal, docType string, docId int) error {
	movement := InventoryMovement{
		ID:            uuid.NewString(),
		MaterialId:    materialId,
		QtyDelta:      delta,
		DocType:       docType,
		DocId:         docId,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	return tx.WithContext(ctx).Create(&movement).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}
