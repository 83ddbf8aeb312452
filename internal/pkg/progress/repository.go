package progress

import (
	"context"

	"github.com/MartinWeidner/CourseFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the progress tracker. Every call
// runs under the caller's context so store deadlines are bounded.
type Repository interface {
	UpsertProgress(ctx context.Context, rec *models.ProgressRecord) error
	GetProgress(ctx context.Context, userID, contentID uint) (*models.ProgressRecord, error)
	ListByUser(ctx context.Context, userID uint) ([]models.ProgressRecord, error)
	InsertAlertReadIfNotExists(ctx context.Context, alertID, userID uint) (bool, error)
	InsertCommentReadIfNotExists(ctx context.Context, commentID, userID uint) (bool, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a progress repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// UpsertProgress fully replaces the stored state for (user_id, content_id).
// No merge with the prior row, no history.
func (r *gormRepository) UpsertProgress(ctx context.Context, rec *models.ProgressRecord) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "content_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"elapsed_seconds",
			"total_seconds",
			"percent",
			"completed",
			"updated_at",
		}),
	}).Create(rec).Error
}

func (r *gormRepository) GetProgress(ctx context.Context, userID, contentID uint) (*models.ProgressRecord, error) {
	var rec models.ProgressRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND content_id = ?", userID, contentID).First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *gormRepository) ListByUser(ctx context.Context, userID uint) ([]models.ProgressRecord, error) {
	var recs []models.ProgressRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&recs).Error
	return recs, err
}

func (r *gormRepository) InsertAlertReadIfNotExists(ctx context.Context, alertID, userID uint) (bool, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "alert_id"},
			{Name: "user_id"},
		},
		DoNothing: true,
	}).Create(&models.AlertRead{AlertID: alertID, UserID: userID})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) InsertCommentReadIfNotExists(ctx context.Context, commentID, userID uint) (bool, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "comment_id"},
			{Name: "user_id"},
		},
		DoNothing: true,
	}).Create(&models.CommentRead{CommentID: commentID, UserID: userID})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
