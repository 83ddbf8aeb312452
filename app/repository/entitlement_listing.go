package repository

import (
	"context"

	"github.com/MartinWeidner/CourseFox/app/models"
	"gorm.io/gorm"
)

// entitlementListing implements the EntitlementListing interface
type entitlementListing struct {
	db *gorm.DB
}

// NewEntitlementListing creates the admin-facing entitlement reader.
func NewEntitlementListing(db *gorm.DB) EntitlementListing {
	return &entitlementListing{db: db}
}

// ListRecent returns grants newest first, joined with their owners. Grants
// belonging to soft-deleted or hidden users are filtered out.
func (l *entitlementListing) ListRecent(ctx context.Context, offset, limit int) ([]EntitlementWithUser, error) {
	if limit <= 0 {
		limit = 50
	}
	var grants []models.Entitlement
	err := l.db.WithContext(ctx).
		Joins("JOIN users ON users.id = entitlements.user_id").
		Where("users.deleted_at IS NULL AND users.hidden = ?", false).
		Order("entitlements.granted_at DESC, entitlements.id DESC").
		Offset(offset).Limit(limit).
		Find(&grants).Error
	if err != nil {
		return nil, err
	}

	out := make([]EntitlementWithUser, 0, len(grants))
	for _, g := range grants {
		var user models.User
		if err := l.db.WithContext(ctx).First(&user, g.UserID).Error; err != nil {
			return nil, err
		}
		out = append(out, EntitlementWithUser{Entitlement: g, User: user})
	}
	return out, nil
}

func (l *entitlementListing) ListByUser(ctx context.Context, userID uint) ([]models.Entitlement, error) {
	var grants []models.Entitlement
	err := l.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("granted_at DESC, id DESC").
		Find(&grants).Error
	return grants, err
}
