package entitlement

import (
	"context"

	"github.com/MartinWeidner/CourseFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the ledger. Every call runs under
// the caller's context so store deadlines are bounded.
type Repository interface {
	InsertGrantIfNotExists(ctx context.Context, grant *models.Entitlement) (bool, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Entitlement, error)
	CountActive(ctx context.Context, userID, productID uint) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates an entitlement repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// InsertGrantIfNotExists performs a single conditional insert against the
// unique (user_id, product_id, source_event_id) index. Concurrent deliveries
// of the same event race on the index, not on application code; exactly one
// insert wins and all others read back the stored row.
func (r *gormRepository) InsertGrantIfNotExists(ctx context.Context, grant *models.Entitlement) (bool, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "product_id"},
			{Name: "source_event_id"},
		},
		DoNothing: true,
	}).Create(grant)
	if tx.Error != nil {
		return false, tx.Error
	}

	created := tx.RowsAffected > 0
	if !created {
		// Ensure the caller sees the stored row, not the zero-valued insert.
		if err := r.db.WithContext(ctx).
			Where("user_id = ? AND product_id = ? AND source_event_id = ?",
				grant.UserID, grant.ProductID, grant.SourceEventID).
			First(grant).Error; err != nil {
			return false, err
		}
	}
	return created, nil
}

func (r *gormRepository) ListByUser(ctx context.Context, userID uint) ([]models.Entitlement, error) {
	var grants []models.Entitlement
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("granted_at DESC, id DESC").
		Find(&grants).Error
	return grants, err
}

func (r *gormRepository) CountActive(ctx context.Context, userID, productID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Entitlement{}).
		Where("user_id = ? AND product_id = ? AND revoked_at IS NULL", userID, productID).
		Count(&count).Error
	return count, err
}
