package reconcile

import (
	"context"
	"errors"

	"github.com/MartinWeidner/CourseFox/app/models"
	"github.com/MartinWeidner/CourseFox/internal/pkg/entitlement"
	"github.com/MartinWeidner/CourseFox/internal/pkg/identity"
	"gorm.io/gorm"
)

// Outcome values returned by Process in addition to the stored event
// outcomes.
const (
	OutcomeDeduplicated = "deduplicated"
)

// IdentityResolver is the pipeline's view of the identity package.
type IdentityResolver interface {
	Resolve(ctx context.Context, in identity.ResolveInput) (identity.Resolution, error)
}

// GrantLedger is the pipeline's view of the entitlement ledger.
type GrantLedger interface {
	Grant(ctx context.Context, userID, productID uint, eventID string) (bool, error)
}

// Result classifies what a delivery did. GrantCreated distinguishes a fresh
// grant from an idempotent replay that found the grant already present.
type Result struct {
	Outcome      string
	UserID       uint
	GrantCreated bool
}

// Pipeline drives a payment event from receipt to a terminal outcome:
// dedup gate, identity resolution, conditional grant. Every step is safe to
// re-run for the same event id.
type Pipeline struct {
	repo     Repository
	resolver IdentityResolver
	ledger   GrantLedger
}

// NewPipeline creates a pipeline from injected collaborators.
func NewPipeline(repo Repository, resolver IdentityResolver, ledger GrantLedger) *Pipeline {
	return &Pipeline{repo: repo, resolver: resolver, ledger: ledger}
}

// NewPipelineFromDB wires the pipeline against a GORM DB handle.
func NewPipelineFromDB(db *gorm.DB) *Pipeline {
	return NewPipeline(NewRepository(db), identity.NewResolverFromDB(db), entitlement.NewLedgerFromDB(db))
}

// Process ingests one delivery of a checkout event. The conditional insert of
// the event row happens before any other side effect; a redelivery of a fully
// processed event stops there. A redelivery of a pending event re-drives
// resolution, which is safe because the grant itself is a conditional insert.
//
// A returned error means transient failure: the event is NOT marked processed
// and the caller should answer non-2xx so the provider redelivers.
func (p *Pipeline) Process(ctx context.Context, ev *CheckoutEvent, rawPayload []byte) (Result, error) {
	if ev == nil || ev.EventID == "" {
		return Result{}, errors.New("event id is required")
	}

	record := &models.PaymentEvent{
		Provider:          models.PaymentProviderStripe,
		ProviderEventID:   ev.EventID,
		EventType:         ev.EventType,
		BuyerEmail:        ev.BuyerEmail,
		CustomerID:        ev.CustomerID,
		ClientReferenceID: ev.ClientReferenceID,
		ProductID:         ev.ProductID,
		PaymentStatus:     ev.PaymentStatus,
		AmountTotal:       ev.AmountTotal,
		Currency:          ev.Currency,
		PayloadJSON:       string(rawPayload),
		Outcome:           models.EventOutcomePending,
	}

	created, stored, err := p.repo.CreateEventIfNotExists(ctx, record)
	if err != nil {
		return Result{}, err
	}
	if !created && stored.IsProcessed() {
		return Result{Outcome: OutcomeDeduplicated}, nil
	}

	return p.drive(ctx, stored)
}

// Retry re-drives a pending event, typically from the operator queue.
// A fully processed event is reported as deduplicated, not an error.
func (p *Pipeline) Retry(ctx context.Context, provider, providerEventID string) (Result, error) {
	stored, err := p.repo.GetByProviderEventID(ctx, provider, providerEventID)
	if err != nil {
		return Result{}, err
	}
	if stored.IsProcessed() {
		return Result{Outcome: OutcomeDeduplicated}, nil
	}
	return p.drive(ctx, stored)
}

// ListPending returns the operator-visible queue of events that were seen but
// have not reached a terminal outcome.
func (p *Pipeline) ListPending(ctx context.Context, limit int) ([]models.PaymentEvent, error) {
	return p.repo.ListPending(ctx, limit)
}

func (p *Pipeline) drive(ctx context.Context, stored *models.PaymentEvent) (Result, error) {
	ev := &CheckoutEvent{PaymentStatus: stored.PaymentStatus}
	if !ev.IsPaymentSuccess() {
		if err := p.repo.MarkProcessed(ctx, stored.ID, models.EventOutcomeIgnored, ""); err != nil {
			return Result{}, err
		}
		return Result{Outcome: models.EventOutcomeIgnored}, nil
	}

	resolution, err := p.resolver.Resolve(ctx, identity.ResolveInput{
		Provider:          stored.Provider,
		BuyerEmail:        stored.BuyerEmail,
		CustomerID:        stored.CustomerID,
		ClientReferenceID: stored.ClientReferenceID,
	})
	if err != nil {
		// Transient resolver failure: leave the event pending so the
		// provider's retry (or an operator) can re-drive it.
		return Result{}, err
	}

	switch resolution.Outcome {
	case identity.OutcomeConflict:
		if err := p.repo.MarkPending(ctx, stored.ID, models.EventOutcomeConflict,
			"client reference and buyer email match different users"); err != nil {
			return Result{}, err
		}
		return Result{Outcome: models.EventOutcomeConflict}, nil

	case identity.OutcomeUnresolved:
		if err := p.repo.MarkPending(ctx, stored.ID, models.EventOutcomeUnresolved, ""); err != nil {
			return Result{}, err
		}
		return Result{Outcome: models.EventOutcomeUnresolved}, nil
	}

	grantCreated, err := p.ledger.Grant(ctx, resolution.User.ID, stored.ProductID, stored.ProviderEventID)
	if err != nil {
		return Result{}, err
	}
	if err := p.repo.MarkProcessed(ctx, stored.ID, models.EventOutcomeGranted, ""); err != nil {
		// The grant is durable; the processed marker is not. Surface the
		// failure so the delivery is retried, where the grant replay is a
		// no-op and the marker gets another chance.
		return Result{}, err
	}
	return Result{Outcome: models.EventOutcomeGranted, UserID: resolution.User.ID, GrantCreated: grantCreated}, nil
}
