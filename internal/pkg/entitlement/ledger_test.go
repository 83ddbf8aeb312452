package entitlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/MartinWeidner/CourseFox/app/models"
)

// fakeGrantRepo honors the unique (user_id, product_id, source_event_id)
// triple the way the real conditional insert does.
type fakeGrantRepo struct {
	grants    map[string]models.Entitlement
	nextID    uint
	insertErr error
}

func newFakeGrantRepo() *fakeGrantRepo {
	return &fakeGrantRepo{grants: map[string]models.Entitlement{}}
}

func grantKey(g *models.Entitlement) string {
	return fmt.Sprintf("%d/%d/%s", g.UserID, g.ProductID, g.SourceEventID)
}

func (f *fakeGrantRepo) InsertGrantIfNotExists(ctx context.Context, grant *models.Entitlement) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if f.insertErr != nil {
		return false, f.insertErr
	}
	key := grantKey(grant)
	if stored, ok := f.grants[key]; ok {
		*grant = stored
		return false, nil
	}
	f.nextID++
	grant.ID = f.nextID
	f.grants[key] = *grant
	return true, nil
}

func (f *fakeGrantRepo) ListByUser(_ context.Context, userID uint) ([]models.Entitlement, error) {
	var out []models.Entitlement
	for _, g := range f.grants {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGrantRepo) CountActive(_ context.Context, userID, productID uint) (int64, error) {
	var n int64
	for _, g := range f.grants {
		if g.UserID == userID && g.ProductID == productID && g.RevokedAt == nil {
			n++
		}
	}
	return n, nil
}

func TestLedgerGrantIdempotent(t *testing.T) {
	repo := newFakeGrantRepo()
	l := NewLedger(repo)
	ctx := context.Background()

	created, err := l.Grant(ctx, 42, 7, "evt_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Fatalf("expected first grant to be created")
	}

	created, err = l.Grant(ctx, 42, 7, "evt_1")
	if err != nil {
		t.Fatalf("unexpected error on replay: %v", err)
	}
	if created {
		t.Fatalf("replay of the same event must not create a second grant")
	}
	if len(repo.grants) != 1 {
		t.Fatalf("grants = %d, want 1", len(repo.grants))
	}
}

func TestLedgerGrantRepurchase(t *testing.T) {
	repo := newFakeGrantRepo()
	l := NewLedger(repo)
	ctx := context.Background()

	if _, err := l.Grant(ctx, 42, 7, "evt_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// a distinct provider event is a genuine repurchase and may coexist
	created, err := l.Grant(ctx, 42, 7, "evt_2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Fatalf("expected distinct event to create a second grant")
	}
	if len(repo.grants) != 2 {
		t.Fatalf("grants = %d, want 2", len(repo.grants))
	}

	grants, err := l.ListGrants(ctx, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(grants) != 2 {
		t.Fatalf("ListGrants = %d grants, want 2", len(grants))
	}
}

func TestLedgerGrantValidation(t *testing.T) {
	l := NewLedger(newFakeGrantRepo())
	ctx := context.Background()

	tests := []struct {
		userID    uint
		productID uint
		eventID   string
	}{
		{userID: 0, productID: 7, eventID: "evt_1"},
		{userID: 42, productID: 0, eventID: "evt_1"},
		{userID: 42, productID: 7, eventID: ""},
	}
	for _, tt := range tests {
		if _, err := l.Grant(ctx, tt.userID, tt.productID, tt.eventID); err == nil {
			t.Fatalf("Grant(%d, %d, %q): expected validation error", tt.userID, tt.productID, tt.eventID)
		}
	}
}

func TestLedgerGrantManual(t *testing.T) {
	repo := newFakeGrantRepo()
	l := NewLedger(repo)
	ctx := context.Background()

	eventID, created, err := l.GrantManual(ctx, 42, 7, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Fatalf("expected manual grant to be created")
	}
	if !strings.HasPrefix(eventID, "manual:") {
		t.Fatalf("synthetic event id = %q, want manual: prefix", eventID)
	}

	stored := repo.grants[fmt.Sprintf("42/7/%s", eventID)]
	if stored.Source != models.GrantSourceManual {
		t.Fatalf("source = %q, want manual", stored.Source)
	}
	if stored.GrantedByID != 1 {
		t.Fatalf("granted_by = %d, want admin 1", stored.GrantedByID)
	}

	// a second manual grant gets a fresh synthetic id and coexists
	secondID, created, err := l.GrantManual(ctx, 42, 7, 1)
	if err != nil || !created {
		t.Fatalf("second manual grant: created=%v err=%v", created, err)
	}
	if secondID == eventID {
		t.Fatalf("synthetic event ids must be unique")
	}
}

func TestLedgerHasAccess(t *testing.T) {
	repo := newFakeGrantRepo()
	l := NewLedger(repo)
	ctx := context.Background()

	has, err := l.HasAccess(ctx, 42, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if has {
		t.Fatalf("expected no access before any grant")
	}

	if _, err := l.Grant(ctx, 42, 7, "evt_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	has, err = l.HasAccess(ctx, 42, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !has {
		t.Fatalf("expected access after grant")
	}

	// another product stays locked
	if has, _ := l.HasAccess(ctx, 42, 8); has {
		t.Fatalf("expected no access to unrelated product")
	}
	// zero ids never have access
	if has, _ := l.HasAccess(ctx, 0, 7); has {
		t.Fatalf("expected no access for zero user id")
	}
}

func TestLedgerHasAccessIgnoresRevoked(t *testing.T) {
	repo := newFakeGrantRepo()
	l := NewLedger(repo)
	ctx := context.Background()

	if _, err := l.Grant(ctx, 42, 7, "evt_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for key, g := range repo.grants {
		now := g.GrantedAt
		g.RevokedAt = &now
		repo.grants[key] = g
	}

	if has, _ := l.HasAccess(ctx, 42, 7); has {
		t.Fatalf("expected revoked grant to not confer access")
	}
}

func TestLedgerGrantPropagatesRepoError(t *testing.T) {
	repo := newFakeGrantRepo()
	repo.insertErr = errors.New("db down")
	l := NewLedger(repo)

	if _, err := l.Grant(context.Background(), 42, 7, "evt_1"); err == nil {
		t.Fatalf("expected repository error to propagate")
	}
}

func TestLedgerGrantCanceledContext(t *testing.T) {
	repo := newFakeGrantRepo()
	l := NewLedger(repo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := l.Grant(ctx, 42, 7, "evt_1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(repo.grants) != 0 {
		t.Fatalf("canceled context must not persist a grant")
	}
}
