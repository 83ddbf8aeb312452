package entitlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MartinWeidner/CourseFox/app/models"
	"github.com/MartinWeidner/CourseFox/internal/pkg/cache"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ledger is the durable record of purchase grants. All writes go through a
// conditional insert so that re-delivery of the same payment event can never
// produce a second grant.
type Ledger struct {
	repo Repository

	// AccessCacheTTL enables short-lived Redis caching of HasAccess results
	// when non-zero. Zero disables caching (used by tests).
	AccessCacheTTL time.Duration
}

// NewLedger creates a ledger from an injected repository.
func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo}
}

// NewLedgerFromDB creates a ledger from a GORM DB handle with access caching.
func NewLedgerFromDB(db *gorm.DB) *Ledger {
	return &Ledger{repo: NewRepository(db), AccessCacheTTL: 60 * time.Second}
}

// Grant records a purchase grant for (userID, productID, eventID). It returns
// created=false without side effects when the identical grant already exists.
func (l *Ledger) Grant(ctx context.Context, userID, productID uint, eventID string) (bool, error) {
	if userID == 0 || productID == 0 || eventID == "" {
		return false, errors.New("user_id, product_id and event_id are required")
	}

	grant := &models.Entitlement{
		UserID:        userID,
		ProductID:     productID,
		SourceEventID: eventID,
		Source:        models.GrantSourceEvent,
	}
	created, err := l.repo.InsertGrantIfNotExists(ctx, grant)
	if err != nil {
		return false, err
	}
	if created && l.AccessCacheTTL > 0 {
		_ = cache.Delete(accessCacheKey(userID, productID))
	}
	return created, nil
}

// GrantManual records an administrative grant as a degenerate event with a
// synthetic event id, so it obeys the same uniqueness discipline. Returns the
// synthetic id for the audit trail.
func (l *Ledger) GrantManual(ctx context.Context, userID, productID, adminID uint) (string, bool, error) {
	if userID == 0 || productID == 0 {
		return "", false, errors.New("user_id and product_id are required")
	}

	eventID := "manual:" + uuid.NewString()
	grant := &models.Entitlement{
		UserID:        userID,
		ProductID:     productID,
		SourceEventID: eventID,
		Source:        models.GrantSourceManual,
		GrantedByID:   adminID,
	}
	created, err := l.repo.InsertGrantIfNotExists(ctx, grant)
	if err != nil {
		return "", false, err
	}
	if created && l.AccessCacheTTL > 0 {
		_ = cache.Delete(accessCacheKey(userID, productID))
	}
	return eventID, created, nil
}

// ListGrants returns all grants for a user, newest first.
func (l *Ledger) ListGrants(ctx context.Context, userID uint) ([]models.Entitlement, error) {
	if userID == 0 {
		return nil, errors.New("user_id is required")
	}
	return l.repo.ListByUser(ctx, userID)
}

// HasAccess reports whether the user holds at least one non-revoked grant for
// the product.
func (l *Ledger) HasAccess(ctx context.Context, userID, productID uint) (bool, error) {
	if userID == 0 || productID == 0 {
		return false, nil
	}

	key := accessCacheKey(userID, productID)
	if l.AccessCacheTTL > 0 {
		if v, err := cache.Get(key); err == nil {
			return v == "1", nil
		}
	}

	count, err := l.repo.CountActive(ctx, userID, productID)
	if err != nil {
		return false, err
	}
	has := count > 0
	if l.AccessCacheTTL > 0 {
		v := "0"
		if has {
			v = "1"
		}
		_ = cache.Set(key, v, l.AccessCacheTTL)
	}
	return has, nil
}

func accessCacheKey(userID, productID uint) string {
	return fmt.Sprintf("entitlement:access:%d:%d", userID, productID)
}
