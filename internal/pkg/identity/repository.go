package identity

import (
	"context"

	"github.com/MartinWeidner/CourseFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides the identity lookups used by the resolver. All lookups
// go through GORM's default scopes, so soft-deleted users are never returned.
// Every call runs under the caller's context so store deadlines are bounded.
type Repository interface {
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByAlternateEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByCustomerID(ctx context.Context, provider, customerID string) (*models.User, error)
	RecordAlternateEmail(ctx context.Context, userID uint, email string) error
	UpsertPaymentCustomer(ctx context.Context, userID uint, provider, customerID, email string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates an identity repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	// Emails are stored normalized; fold the stored side anyway to survive
	// rows written before normalization was enforced.
	if err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", models.NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) GetUserByAlternateEmail(ctx context.Context, email string) (*models.User, error) {
	var alt models.UserEmail
	if err := r.db.WithContext(ctx).
		Where("email = ?", models.NormalizeEmail(email)).First(&alt).Error; err != nil {
		return nil, err
	}
	return r.GetUserByID(ctx, alt.UserID)
}

func (r *gormRepository) GetUserByCustomerID(ctx context.Context, provider, customerID string) (*models.User, error) {
	var pc models.PaymentCustomer
	if err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_customer_id = ?", provider, customerID).
		First(&pc).Error; err != nil {
		return nil, err
	}
	return r.GetUserByID(ctx, pc.UserID)
}

func (r *gormRepository) RecordAlternateEmail(ctx context.Context, userID uint, email string) error {
	alt := &models.UserEmail{
		UserID: userID,
		Email:  models.NormalizeEmail(email),
		Source: "payment",
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "email"},
		},
		DoNothing: true,
	}).Create(alt).Error
}

func (r *gormRepository) UpsertPaymentCustomer(ctx context.Context, userID uint, provider, customerID, email string) error {
	pc := &models.PaymentCustomer{
		UserID:             userID,
		Provider:           provider,
		ProviderCustomerID: customerID,
		Email:              models.NormalizeEmail(email),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_customer_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id",
			"email",
			"updated_at",
		}),
	}).Create(pc).Error
}
