package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	ProductTypeVideo  = "video"
	ProductTypeCourse = "course"
)

// Product is a purchasable catalog entry (single video or full course).
type Product struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Title       string         `gorm:"type:varchar(200);not null" json:"title" validate:"required,min=1,max=200"`
	Slug        string         `gorm:"type:varchar(200);uniqueIndex" json:"slug"`
	Type        string         `gorm:"type:varchar(20);not null;default:'video'" json:"type" validate:"oneof=video course"`
	PriceCents  int64          `gorm:"default:0" json:"price_cents"`
	Currency    string         `gorm:"type:varchar(8);default:'eur'" json:"currency"`
	IsPublished bool           `gorm:"default:false;index" json:"is_published"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
