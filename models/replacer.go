package models

import (
	"context"
	"slices"

	"gorm.io/gorm"
)

type Identifier interface {
	GetId() int
}

type HasId struct {
	ID int `json:"id"`
}

func (h HasId) GetId() int {
	return h.ID
}

// SubOrderMaterial, ClientContact
type Replacer interface {
	Identifier
	fillable() map[string]interface{}
}

// ReplaceAssociation diff-upserts a one-to-many association: rows present in
// input with a known id are updated, rows without one are inserted, and rows
// matched by cond but absent from input are deleted. Replaces the source's
// delete-all-then-reinsert so concurrent edits to untouched rows survive.
func ReplaceAssociation[T Replacer](ctx context.Context,
	tx *gorm.DB, input []T, cond string, vars ...interface{}) error {

	var v T
	var validIds []int
	if err := tx.WithContext(ctx).
		Model(&v).
		Where(cond, vars...).
		Pluck("id", &validIds).Error; err != nil {
		return err
	}

	var updates []T
	var inserts []T

	for _, assoc := range input {
		if assoc.GetId() > 0 {
			// if id exists and is valid
			if index := slices.Index(validIds, assoc.GetId()); index >= 0 {
				updates = append(updates, assoc)
				// remove id from slice which will be cleared after
				validIds = append(validIds[:index], validIds[index+1:]...)
				continue
			}
		}
		inserts = append(inserts, assoc)
	}

	if len(inserts) > 0 {
		if err := tx.WithContext(ctx).Omit("id").Create(&inserts).Error; err != nil {
			return err
		}
	}
	for _, update := range updates {
		var currentValue T
		// fetch before updating
		if err := tx.WithContext(ctx).First(&currentValue, update.GetId()).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Model(&currentValue).Updates(update.fillable()).Error; err != nil {
			return err
		}
	}
	// delete ids left/not included in input
	if len(validIds) > 0 {
		if err := tx.WithContext(ctx).Where("id IN ?", validIds).Delete(&v).Error; err != nil {
			return err
		}
	}
	return nil
}
