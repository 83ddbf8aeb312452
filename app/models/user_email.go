package models

import "time"

// UserEmail stores alternate email addresses observed for a user from payment
// events (e.g. privacy-relay addresses that differ from the login email).
// Recorded addresses widen future identity resolution by email.
type UserEmail struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:ux_user_emails_user_email,unique,priority:1" json:"user_id"`
	Email     string    `gorm:"type:varchar(200);not null;index:ux_user_emails_user_email,unique,priority:2;index" json:"email"`
	Source    string    `gorm:"type:varchar(20);not null;default:'payment'" json:"source"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
