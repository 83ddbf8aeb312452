package repository

import (
	"context"

	"github.com/MartinWeidner/CourseFox/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
	SetHidden(ctx context.Context, id uint, hidden bool) error
	List(ctx context.Context, offset, limit int) ([]models.User, error)
	Count(ctx context.Context) (int64, error)
}

// ProductRepository defines the interface for product catalog operations
type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	GetBySlug(ctx context.Context, slug string) (*models.Product, error)
	ListPublished(ctx context.Context) ([]models.Product, error)
	Update(ctx context.Context, product *models.Product) error
}

// EntitlementListing provides admin-facing read access to grants, filtered to
// visible users.
type EntitlementListing interface {
	ListRecent(ctx context.Context, offset, limit int) ([]EntitlementWithUser, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Entitlement, error)
}

// EntitlementWithUser pairs a grant with its owner for admin views.
type EntitlementWithUser struct {
	Entitlement models.Entitlement
	User        models.User
}

// Repositories struct holds all repository instances
type Repositories struct {
	User        UserRepository
	Product     ProductRepository
	Entitlement EntitlementListing
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:        NewUserRepository(db),
		Product:     NewProductRepository(db),
		Entitlement: NewEntitlementListing(db),
	}
}
