package identity

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/MartinWeidner/CourseFox/app/models"
	"gorm.io/gorm"
)

// Outcome classifies a resolution attempt. Unresolved and Conflict are not
// errors; both are routed to manual review by the caller.
type Outcome string

const (
	OutcomeResolved   Outcome = "resolved"
	OutcomeUnresolved Outcome = "unresolved"
	OutcomeConflict   Outcome = "conflict"
)

// Match signals which lookup produced the identity.
const (
	MatchedByReference = "client_reference"
	MatchedByCustomer  = "customer_id"
	MatchedByEmail     = "email"
)

// ResolveInput carries the buyer identifiers reported by a payment event.
type ResolveInput struct {
	Provider          string
	BuyerEmail        string
	CustomerID        string
	ClientReferenceID string
}

// Resolution is the typed outcome of a resolve call. User is nil unless
// Outcome is OutcomeResolved.
type Resolution struct {
	User      *models.User
	Outcome   Outcome
	MatchedBy string
}

// Resolver maps loosely-structured buyer signals to a canonical local user.
type Resolver struct {
	repo Repository
}

// NewResolver creates a resolver from an injected repository.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// NewResolverFromDB creates a resolver from a GORM DB handle.
func NewResolverFromDB(db *gorm.DB) *Resolver {
	return NewResolver(NewRepository(db))
}

// Resolve applies the resolution order: client reference id, then recorded
// provider customer id, then case-folded email against primary and alternate
// addresses. A valid client reference that disagrees with an email match for a
// different user is a hard conflict, never silently decided.
//
// On success the resolver records the buyer email as an alternate address and
// the provider customer id as a payment linkage when either is not yet known,
// so future deliveries match on the stronger signals.
func (r *Resolver) Resolve(ctx context.Context, in ResolveInput) (Resolution, error) {
	refUser, err := r.lookupByReference(ctx, in.ClientReferenceID)
	if err != nil {
		return Resolution{Outcome: OutcomeUnresolved}, err
	}
	emailUser, err := r.lookupByEmail(ctx, in.BuyerEmail)
	if err != nil {
		return Resolution{Outcome: OutcomeUnresolved}, err
	}

	if refUser != nil {
		if emailUser != nil && emailUser.ID != refUser.ID {
			return Resolution{Outcome: OutcomeConflict}, nil
		}
		return r.resolved(ctx, refUser, MatchedByReference, in)
	}

	custUser, err := r.lookupByCustomerID(ctx, in.Provider, in.CustomerID)
	if err != nil {
		return Resolution{Outcome: OutcomeUnresolved}, err
	}
	if custUser != nil {
		return r.resolved(ctx, custUser, MatchedByCustomer, in)
	}

	if emailUser != nil {
		return r.resolved(ctx, emailUser, MatchedByEmail, in)
	}

	return Resolution{Outcome: OutcomeUnresolved}, nil
}

func (r *Resolver) resolved(ctx context.Context, user *models.User, matchedBy string, in ResolveInput) (Resolution, error) {
	if email := models.NormalizeEmail(in.BuyerEmail); email != "" && email != models.NormalizeEmail(user.Email) {
		if err := r.repo.RecordAlternateEmail(ctx, user.ID, email); err != nil {
			return Resolution{Outcome: OutcomeUnresolved}, err
		}
	}
	if cust := strings.TrimSpace(in.CustomerID); cust != "" {
		if err := r.repo.UpsertPaymentCustomer(ctx, user.ID, in.Provider, cust, in.BuyerEmail); err != nil {
			return Resolution{Outcome: OutcomeUnresolved}, err
		}
	}
	return Resolution{User: user, Outcome: OutcomeResolved, MatchedBy: matchedBy}, nil
}

func (r *Resolver) lookupByReference(ctx context.Context, ref string) (*models.User, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(ref, 10, 64)
	if err != nil || id == 0 {
		// A reference the client did not set to a local user id is ignored,
		// not treated as a failure.
		return nil, nil
	}
	user, err := r.repo.GetUserByID(ctx, uint(id))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Resolver) lookupByCustomerID(ctx context.Context, provider, customerID string) (*models.User, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, nil
	}
	user, err := r.repo.GetUserByCustomerID(ctx, provider, customerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Resolver) lookupByEmail(ctx context.Context, email string) (*models.User, error) {
	if models.NormalizeEmail(email) == "" {
		return nil, nil
	}
	user, err := r.repo.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	user, err = r.repo.GetUserByAlternateEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
