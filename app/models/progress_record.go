package models

import "time"

// ProgressRecord keeps the current watch state per user and content item.
// Unique per (user_id, content_id); every save fully replaces the previous
// values, no history is kept. Completed reflects the latest save only and may
// revert when a later, shorter view is recorded.
type ProgressRecord struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;index:ux_progress_user_content,unique,priority:1;index" json:"user_id"`
	ContentID      uint      `gorm:"not null;index:ux_progress_user_content,unique,priority:2" json:"content_id"`
	ElapsedSeconds int       `gorm:"not null;default:0" json:"elapsed_seconds"`
	TotalSeconds   int       `gorm:"not null;default:0" json:"total_seconds"`
	Percent        int       `gorm:"not null;default:0" json:"percent"`
	Completed      bool      `gorm:"not null;default:false;index" json:"completed"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}
