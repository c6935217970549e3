package models

import (
	"context"
	"time"

	"github.com/ferrodesk/workshop_backend/config"
	"github.com/ferrodesk/workshop_backend/utils"
)

type Client struct {
	ID        int              `gorm:"primary_key" json:"id"`
	Name      string           `gorm:"size:100;not null" json:"name" binding:"required"`
	Contacts  []*ClientContact `gorm:"foreignKey:ClientId" json:"contacts"`
	CreatedAt time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewClient struct {
	Name     string              `json:"name" binding:"required"`
	Contacts []*NewClientContact `json:"contacts"`
}

func (input *NewClient) validate(ctx context.Context, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Client](ctx, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateUnique[Client](ctx, "name", input.Name, id); err != nil {
		return NewValidationError(err.Error())
	}
	return nil
}

// SaveClient creates (id == 0) or updates a client. Contacts are diff-upserted
// against the persisted set: edited rows update in place, new rows insert,
// rows absent from the input are deleted. Blank contact values never persist.
func SaveClient(ctx context.Context, id int, input *NewClient) (*Client, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	var client Client
	if id > 0 {
		if err := tx.WithContext(ctx).First(&client, id).Error; err != nil {
			tx.Rollback()
			return nil, utils.ErrorRecordNotFound
		}
		if err := tx.WithContext(ctx).Model(&client).Updates(map[string]interface{}{
			"Name": input.Name,
		}).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	} else {
		client = Client{Name: input.Name}
		if err := tx.WithContext(ctx).Create(&client).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	contacts, err := mapNewContacts(input.Contacts, client.ID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := ReplaceAssociation(ctx, tx, contacts, "client_id = ?", client.ID); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	recordAction(ctx, "client.save", client.Name, LogLevelInfo)
	return &client, nil
}

// DeleteClient removes the client and its contacts. Orders keep their weak
// client reference; they are not touched.
func DeleteClient(ctx context.Context, id int) error {
	client, err := utils.FetchModel[Client](ctx, id)
	if err != nil {
		return err
	}

	db := config.GetDB()
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	if err := tx.WithContext(ctx).Where("client_id = ?", id).Delete(&ClientContact{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.WithContext(ctx).Delete(&Client{}, id).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return err
	}

	recordAction(ctx, "client.delete", client.Name, LogLevelInfo)
	return nil
}
