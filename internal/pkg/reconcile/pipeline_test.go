package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/MartinWeidner/CourseFox/app/models"
	"github.com/MartinWeidner/CourseFox/internal/pkg/identity"
	"gorm.io/gorm"
)

// fakeEventRepo is an in-memory Repository honoring the unique
// (provider, provider_event_id) constraint.
type fakeEventRepo struct {
	events    map[string]*models.PaymentEvent
	nextID    uint
	markErr   error
	createErr error
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: map[string]*models.PaymentEvent{}}
}

func eventKey(provider, providerEventID string) string {
	return provider + "/" + providerEventID
}

func (f *fakeEventRepo) CreateEventIfNotExists(ctx context.Context, event *models.PaymentEvent) (bool, *models.PaymentEvent, error) {
	if err := ctx.Err(); err != nil {
		return false, nil, err
	}
	if f.createErr != nil {
		return false, nil, f.createErr
	}
	key := eventKey(event.Provider, event.ProviderEventID)
	if stored, ok := f.events[key]; ok {
		cp := *stored
		return false, &cp, nil
	}
	f.nextID++
	cp := *event
	cp.ID = f.nextID
	f.events[key] = &cp
	out := cp
	return true, &out, nil
}

func (f *fakeEventRepo) MarkProcessed(_ context.Context, id uint, outcome, processingError string) error {
	if f.markErr != nil {
		return f.markErr
	}
	ev := f.byID(id)
	if ev == nil {
		return gorm.ErrRecordNotFound
	}
	now := time.Now()
	ev.Outcome = outcome
	ev.ProcessedAt = &now
	ev.ProcessingError = processingError
	return nil
}

func (f *fakeEventRepo) MarkPending(_ context.Context, id uint, outcome, processingError string) error {
	ev := f.byID(id)
	if ev == nil {
		return gorm.ErrRecordNotFound
	}
	ev.Outcome = outcome
	ev.ProcessingError = processingError
	return nil
}

func (f *fakeEventRepo) GetByProviderEventID(_ context.Context, provider, providerEventID string) (*models.PaymentEvent, error) {
	stored, ok := f.events[eventKey(provider, providerEventID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *stored
	return &cp, nil
}

func (f *fakeEventRepo) ListPending(_ context.Context, limit int) ([]models.PaymentEvent, error) {
	var out []models.PaymentEvent
	for _, ev := range f.events {
		if ev.ProcessedAt == nil {
			out = append(out, *ev)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeEventRepo) byID(id uint) *models.PaymentEvent {
	for _, ev := range f.events {
		if ev.ID == id {
			return ev
		}
	}
	return nil
}

type fakeResolver struct {
	resolution identity.Resolution
	err        error
	calls      int
}

func (f *fakeResolver) Resolve(_ context.Context, _ identity.ResolveInput) (identity.Resolution, error) {
	f.calls++
	if f.err != nil {
		return identity.Resolution{Outcome: identity.OutcomeUnresolved}, f.err
	}
	return f.resolution, nil
}

// fakeLedger honors the unique grant triple, like the real one.
type fakeLedger struct {
	grants map[string]bool
	err    error
	calls  int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{grants: map[string]bool{}}
}

func (f *fakeLedger) Grant(_ context.Context, userID, productID uint, eventID string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	key := fmt.Sprintf("%d/%d/%s", userID, productID, eventID)
	if f.grants[key] {
		return false, nil
	}
	f.grants[key] = true
	return true, nil
}

func resolvedAs(userID uint) identity.Resolution {
	return identity.Resolution{
		User:      &models.User{ID: userID, Email: "buyer@example.com"},
		Outcome:   identity.OutcomeResolved,
		MatchedBy: identity.MatchedByEmail,
	}
}

func paidEvent(eventID string) *CheckoutEvent {
	return &CheckoutEvent{
		EventID:       eventID,
		EventType:     "checkout.session.completed",
		BuyerEmail:    "buyer@example.com",
		CustomerID:    "cus_ABC",
		ProductID:     7,
		PaymentStatus: PaymentStatusPaid,
		AmountTotal:   1999,
		Currency:      "eur",
	}
}

func TestPipelineProcessGrantsOnce(t *testing.T) {
	repo := newFakeEventRepo()
	resolver := &fakeResolver{resolution: resolvedAs(42)}
	ledger := newFakeLedger()
	p := NewPipeline(repo, resolver, ledger)
	ctx := context.Background()

	res, err := p.Process(ctx, paidEvent("evt_1"), []byte(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != models.EventOutcomeGranted {
		t.Fatalf("outcome = %q, want granted", res.Outcome)
	}
	if !res.GrantCreated || res.UserID != 42 {
		t.Fatalf("result = %+v, want fresh grant for user 42", res)
	}

	// redelivery of a fully processed event stops at the dedup gate
	res, err = p.Process(ctx, paidEvent("evt_1"), []byte(`{}`))
	if err != nil {
		t.Fatalf("unexpected error on redelivery: %v", err)
	}
	if res.Outcome != OutcomeDeduplicated {
		t.Fatalf("outcome = %q, want deduplicated", res.Outcome)
	}
	if ledger.calls != 1 {
		t.Fatalf("ledger called %d times, want 1", ledger.calls)
	}
	if resolver.calls != 1 {
		t.Fatalf("resolver called %d times, want 1", resolver.calls)
	}
}

func TestPipelineProcessIgnoresNonSuccess(t *testing.T) {
	for _, status := range []string{PaymentStatusUnpaid, PaymentStatusRefunded, PaymentStatusFailed, ""} {
		repo := newFakeEventRepo()
		resolver := &fakeResolver{resolution: resolvedAs(42)}
		ledger := newFakeLedger()
		p := NewPipeline(repo, resolver, ledger)

		ev := paidEvent("evt_" + status)
		ev.PaymentStatus = status
		res, err := p.Process(context.Background(), ev, []byte(`{}`))
		if err != nil {
			t.Fatalf("status %q: unexpected error: %v", status, err)
		}
		if res.Outcome != models.EventOutcomeIgnored {
			t.Fatalf("status %q: outcome = %q, want ignored", status, res.Outcome)
		}
		if resolver.calls != 0 || ledger.calls != 0 {
			t.Fatalf("status %q: resolver/ledger must not run for ignored events", status)
		}

		stored, err := repo.GetByProviderEventID(context.Background(), models.PaymentProviderStripe, ev.EventID)
		if err != nil {
			t.Fatalf("status %q: event not stored: %v", status, err)
		}
		if !stored.IsProcessed() {
			t.Fatalf("status %q: ignored events must be marked processed", status)
		}
	}
}

func TestPipelineProcessUnresolvedStaysPending(t *testing.T) {
	repo := newFakeEventRepo()
	resolver := &fakeResolver{resolution: identity.Resolution{Outcome: identity.OutcomeUnresolved}}
	ledger := newFakeLedger()
	p := NewPipeline(repo, resolver, ledger)
	ctx := context.Background()

	res, err := p.Process(ctx, paidEvent("evt_unres"), []byte(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != models.EventOutcomeUnresolved {
		t.Fatalf("outcome = %q, want unresolved", res.Outcome)
	}

	stored, _ := repo.GetByProviderEventID(context.Background(), models.PaymentProviderStripe, "evt_unres")
	if stored.IsProcessed() {
		t.Fatalf("unresolved events must stay pending")
	}
	pending, _ := p.ListPending(ctx, 0)
	if len(pending) != 1 {
		t.Fatalf("pending queue has %d events, want 1", len(pending))
	}

	// the user registers, then a redelivery resolves and grants
	resolver.resolution = resolvedAs(42)
	res, err = p.Process(ctx, paidEvent("evt_unres"), []byte(`{}`))
	if err != nil {
		t.Fatalf("unexpected error on redelivery: %v", err)
	}
	if res.Outcome != models.EventOutcomeGranted || !res.GrantCreated {
		t.Fatalf("result = %+v, want fresh grant after redelivery", res)
	}
	stored, _ = repo.GetByProviderEventID(context.Background(), models.PaymentProviderStripe, "evt_unres")
	if !stored.IsProcessed() || stored.Outcome != models.EventOutcomeGranted {
		t.Fatalf("stored = outcome %q processed %v, want granted/processed", stored.Outcome, stored.IsProcessed())
	}
}

func TestPipelineProcessConflictGoesToReview(t *testing.T) {
	repo := newFakeEventRepo()
	resolver := &fakeResolver{resolution: identity.Resolution{Outcome: identity.OutcomeConflict}}
	ledger := newFakeLedger()
	p := NewPipeline(repo, resolver, ledger)

	res, err := p.Process(context.Background(), paidEvent("evt_conf"), []byte(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != models.EventOutcomeConflict {
		t.Fatalf("outcome = %q, want conflict", res.Outcome)
	}
	if ledger.calls != 0 {
		t.Fatalf("conflicting events must never grant")
	}

	stored, _ := repo.GetByProviderEventID(context.Background(), models.PaymentProviderStripe, "evt_conf")
	if stored.IsProcessed() {
		t.Fatalf("conflicting events must stay pending for review")
	}
	if stored.ProcessingError == "" {
		t.Fatalf("conflict should record a processing error for the operator")
	}
}

func TestPipelineProcessResolverFailureIsTransient(t *testing.T) {
	repo := newFakeEventRepo()
	resolver := &fakeResolver{err: errors.New("db down")}
	ledger := newFakeLedger()
	p := NewPipeline(repo, resolver, ledger)
	ctx := context.Background()

	if _, err := p.Process(ctx, paidEvent("evt_tx"), []byte(`{}`)); err == nil {
		t.Fatalf("expected transient error to propagate")
	}

	stored, err := repo.GetByProviderEventID(context.Background(), models.PaymentProviderStripe, "evt_tx")
	if err != nil {
		t.Fatalf("event must be stored even when resolution fails: %v", err)
	}
	if stored.IsProcessed() {
		t.Fatalf("failed events must stay pending for redelivery")
	}

	// redelivery succeeds once the resolver recovers
	resolver.err = nil
	resolver.resolution = resolvedAs(42)
	res, err := p.Process(ctx, paidEvent("evt_tx"), []byte(`{}`))
	if err != nil {
		t.Fatalf("unexpected error after recovery: %v", err)
	}
	if res.Outcome != models.EventOutcomeGranted {
		t.Fatalf("outcome = %q, want granted after recovery", res.Outcome)
	}
}

func TestPipelineProcessMarkerFailureStillRetryable(t *testing.T) {
	repo := newFakeEventRepo()
	resolver := &fakeResolver{resolution: resolvedAs(42)}
	ledger := newFakeLedger()
	p := NewPipeline(repo, resolver, ledger)
	ctx := context.Background()

	repo.markErr = errors.New("db down")
	if _, err := p.Process(ctx, paidEvent("evt_mark"), []byte(`{}`)); err == nil {
		t.Fatalf("expected marker failure to propagate")
	}
	if len(ledger.grants) != 1 {
		t.Fatalf("grant must be durable even when the marker write fails")
	}

	// the redelivery replays the grant as a no-op and lands the marker
	repo.markErr = nil
	res, err := p.Process(ctx, paidEvent("evt_mark"), []byte(`{}`))
	if err != nil {
		t.Fatalf("unexpected error on redelivery: %v", err)
	}
	if res.Outcome != models.EventOutcomeGranted {
		t.Fatalf("outcome = %q, want granted", res.Outcome)
	}
	if res.GrantCreated {
		t.Fatalf("redelivery must not create a second grant")
	}
	if len(ledger.grants) != 1 {
		t.Fatalf("grants = %d, want exactly 1", len(ledger.grants))
	}
}

func TestPipelineRetry(t *testing.T) {
	repo := newFakeEventRepo()
	resolver := &fakeResolver{resolution: identity.Resolution{Outcome: identity.OutcomeUnresolved}}
	ledger := newFakeLedger()
	p := NewPipeline(repo, resolver, ledger)
	ctx := context.Background()

	if _, err := p.Process(ctx, paidEvent("evt_retry"), []byte(`{}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resolver.resolution = resolvedAs(42)
	res, err := p.Retry(ctx, models.PaymentProviderStripe, "evt_retry")
	if err != nil {
		t.Fatalf("unexpected retry error: %v", err)
	}
	if res.Outcome != models.EventOutcomeGranted || !res.GrantCreated {
		t.Fatalf("result = %+v, want fresh grant on retry", res)
	}

	// retrying a processed event is a dedup, not an error
	res, err = p.Retry(ctx, models.PaymentProviderStripe, "evt_retry")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != OutcomeDeduplicated {
		t.Fatalf("outcome = %q, want deduplicated", res.Outcome)
	}

	// retrying an unknown event surfaces the lookup error
	if _, err := p.Retry(ctx, models.PaymentProviderStripe, "evt_unknown"); err == nil {
		t.Fatalf("expected error for unknown event")
	}
}

func TestPipelineProcessCanceledContext(t *testing.T) {
	repo := newFakeEventRepo()
	resolver := &fakeResolver{resolution: resolvedAs(42)}
	ledger := newFakeLedger()
	p := NewPipeline(repo, resolver, ledger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Process(ctx, paidEvent("evt_cancel"), []byte(`{}`)); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(repo.events) != 0 {
		t.Fatalf("canceled context must not store the event")
	}
	if resolver.calls != 0 || ledger.calls != 0 {
		t.Fatalf("resolver/ledger must not run after cancellation")
	}
}

func TestPipelineProcessRequiresEventID(t *testing.T) {
	p := NewPipeline(newFakeEventRepo(), &fakeResolver{}, newFakeLedger())
	if _, err := p.Process(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for nil event")
	}
	if _, err := p.Process(context.Background(), &CheckoutEvent{}, nil); err == nil {
		t.Fatalf("expected error for missing event id")
	}
}
