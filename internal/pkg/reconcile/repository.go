package reconcile

import (
	"context"
	"time"

	"github.com/MartinWeidner/CourseFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the ingestion pipeline. Every
// call runs under the caller's context so store deadlines are bounded.
type Repository interface {
	CreateEventIfNotExists(ctx context.Context, event *models.PaymentEvent) (bool, *models.PaymentEvent, error)
	MarkProcessed(ctx context.Context, id uint, outcome, processingError string) error
	MarkPending(ctx context.Context, id uint, outcome, processingError string) error
	GetByProviderEventID(ctx context.Context, provider, providerEventID string) (*models.PaymentEvent, error)
	ListPending(ctx context.Context, limit int) ([]models.PaymentEvent, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a pipeline repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// CreateEventIfNotExists is the atomic dedup gate: a conditional insert on the
// unique (provider, provider_event_id) index. It reports whether this call
// inserted the row and always returns the stored row, so a losing concurrent
// delivery can see the winner's processing state.
func (r *gormRepository) CreateEventIfNotExists(ctx context.Context, event *models.PaymentEvent) (bool, *models.PaymentEvent, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.PaymentEvent
	if err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkProcessed(ctx context.Context, id uint, outcome, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"outcome":          outcome,
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.WithContext(ctx).Model(&models.PaymentEvent{}).Where("id = ?", id).Updates(updates).Error
}

// MarkPending records an intermediate outcome (unresolved, conflict) without
// setting processed_at, keeping the event eligible for re-delivery and
// visible in the operator queue.
func (r *gormRepository) MarkPending(ctx context.Context, id uint, outcome, processingError string) error {
	updates := map[string]interface{}{
		"outcome":          outcome,
		"processing_error": processingError,
	}
	return r.db.WithContext(ctx).Model(&models.PaymentEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) GetByProviderEventID(ctx context.Context, provider, providerEventID string) (*models.PaymentEvent, error) {
	var event models.PaymentEvent
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_event_id = ?", provider, providerEventID).
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *gormRepository) ListPending(ctx context.Context, limit int) ([]models.PaymentEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []models.PaymentEvent
	err := r.db.WithContext(ctx).
		Where("processed_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}
