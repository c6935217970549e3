package models

import (
	"strings"
	"time"

	"github.com/ferrodesk/workshop_backend/utils"
)

type ClientContact struct {
	ID        int         `gorm:"primary_key" json:"id"`
	ClientId  int         `gorm:"index;not null" json:"client_id"`
	Type      ContactType `gorm:"type:enum('phone','email');default:'phone'" json:"type"`
	Value     string      `gorm:"size:255;not null" json:"value"`
	CreatedAt time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c ClientContact) GetId() int {
	return c.ID
}

func (c ClientContact) fillable() map[string]interface{} {
	return map[string]interface{}{
		"Type":  c.Type,
		"Value": c.Value,
	}
}

type NewClientContact struct {
	HasId
	Type  ContactType `json:"type"`
	Value string      `json:"value"`
}

// mapNewContacts drops blank entries (a half-filled contact row in the form is
// ignored, not an error) and validates the rest by type.
func mapNewContacts(input []*NewClientContact, clientId int) ([]ClientContact, error) {
	contacts := make([]ClientContact, 0, len(input))
	for _, i := range input {
		value := strings.TrimSpace(i.Value)
		if value == "" {
			continue
		}
		if !i.Type.IsValid() {
			return nil, NewValidationError("invalid contact type")
		}
		switch i.Type {
		case ContactTypePhone:
			if err := utils.ValidatePhoneNumber(value, utils.CountryCode); err != nil {
				return nil, NewValidationError("invalid phone number: " + value)
			}
		case ContactTypeEmail:
			if !utils.IsValidEmail(value) {
				return nil, NewValidationError("invalid email address: " + value)
			}
		}
		contacts = append(contacts, ClientContact{
			ID:       i.ID,
			ClientId: clientId,
			Type:     i.Type,
			Value:    value,
		})
	}
	return contacts, nil
}
