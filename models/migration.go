package models

import "github.com/ferrodesk/workshop_backend/config"

// MigrateTable creates or updates every table the backend owns. Order matters
// only for readability; gorm resolves the columns independently.
func MigrateTable() error {
	db := config.GetDB()
	return db.AutoMigrate(
		&User{},
		&Client{},
		&ClientContact{},
		&Material{},
		&InventoryMovement{},
		&Order{},
		&SubOrder{},
		&SubOrderMaterial{},
		&ActivityLog{},
	)
}
