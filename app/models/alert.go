package models

import (
	"time"

	"gorm.io/gorm"
)

// Alert is a site-wide or targeted announcement shown to users until dismissed.
type Alert struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Title     string         `gorm:"type:varchar(200);not null" json:"title"`
	Body      string         `gorm:"type:text" json:"body"`
	IsActive  bool           `gorm:"default:true;index" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// AlertRead marks an alert as dismissed by a user. Unique per
// (alert_id, user_id); inserting a duplicate is a no-op, not an error.
type AlertRead struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	AlertID uint      `gorm:"not null;index:ux_alert_reads_alert_user,unique,priority:1" json:"alert_id"`
	UserID  uint      `gorm:"not null;index:ux_alert_reads_alert_user,unique,priority:2;index" json:"user_id"`
	ReadAt  time.Time `gorm:"autoCreateTime" json:"read_at"`
}
