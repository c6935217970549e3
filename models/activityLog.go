package models

import (
	"context"
	"time"

	"github.com/ferrodesk/workshop_backend/config"
	"github.com/ferrodesk/workshop_backend/utils"
)

// ActivityLog is the append-only action trail shown in the dashboard's logs
// tab. The sink is best-effort: a failed insert is logged and swallowed, a
// business operation never fails because its log row did not land.
type ActivityLog struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Action    string    `gorm:"size:100;not null" json:"action"`
	Details   string    `gorm:"type:text" json:"details"`
	UserId    int       `gorm:"index" json:"user_id"`
	UserName  string    `gorm:"size:100" json:"user_name"`
	Level     LogLevel  `gorm:"type:enum('info','warning','error');default:'info'" json:"level"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (ActivityLog) TableName() string {
	return "logs"
}

func recordAction(ctx context.Context, action string, details string, level LogLevel) {
	userId, _ := utils.GetUserIdFromContext(ctx)
	userName, _ := utils.GetUserNameFromContext(ctx)
	entry := ActivityLog{
		Action:   action,
		Details:  details,
		UserId:   userId,
		UserName: userName,
		Level:    level,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&entry).Error; err != nil {
		config.LogError(config.GetLogger(), "activityLog.go", "recordAction", action, entry, err)
	}
}

func ListRecentLogs(ctx context.Context, limit int) ([]*ActivityLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var entries []*ActivityLog
	db := config.GetDB()
	if err := db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
