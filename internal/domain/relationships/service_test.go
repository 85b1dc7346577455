package relationships

import (
	"context"
	"strings"
	"testing"
	"time"

	"pro-client-access/internal/domain/catalog"
	"pro-client-access/internal/ports/auth"
)

// -------------------------
// Fakes (in-memory)
// -------------------------

type nopTx struct{}

func (nopTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type testRepo struct {
	byID map[string]Relationship
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Relationship{}}
}

func (r *testRepo) Create(ctx context.Context, rel Relationship) error {
	r.byID[rel.ID] = rel
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Relationship, error) {
	rel, ok := r.byID[id]
	if !ok {
		return Relationship{}, ErrNotFound
	}
	return rel, nil
}

func (r *testRepo) FindOpenByEmail(ctx context.Context, professionalID, email string) (Relationship, error) {
	for _, rel := range r.byID {
		if rel.ProfessionalID == professionalID && strings.EqualFold(rel.ClientEmail, email) && rel.Status != StatusEnded {
			return rel, nil
		}
	}
	return Relationship{}, ErrNotFound
}

func (r *testRepo) FindActiveBetween(ctx context.Context, professionalID, clientID string) (Relationship, error) {
	for _, rel := range r.byID {
		if rel.ProfessionalID == professionalID && rel.ClientID == clientID && rel.Status == StatusActive {
			return rel, nil
		}
	}
	return Relationship{}, ErrNotFound
}

func (r *testRepo) ListActiveByProfessional(ctx context.Context, professionalID string) ([]Relationship, error) {
	out := make([]Relationship, 0)
	for _, rel := range r.byID {
		if rel.ProfessionalID == professionalID && rel.Status == StatusActive {
			out = append(out, rel)
		}
	}
	return out, nil
}

func (r *testRepo) ListByClient(ctx context.Context, clientID string) ([]Relationship, error) {
	out := make([]Relationship, 0)
	for _, rel := range r.byID {
		if rel.ClientID == clientID {
			out = append(out, rel)
		}
	}
	return out, nil
}

func (r *testRepo) Activate(ctx context.Context, id, clientID string, at time.Time) error {
	rel, ok := r.byID[id]
	if !ok || rel.Status != StatusPending {
		return ErrInvalidState
	}
	rel.Status = StatusActive
	rel.ClientID = clientID
	rel.AcceptedAt = &at
	r.byID[id] = rel
	return nil
}

func (r *testRepo) End(ctx context.Context, id string, at time.Time) error {
	rel, ok := r.byID[id]
	if !ok || rel.Status != StatusActive {
		return ErrInvalidState
	}
	rel.Status = StatusEnded
	rel.EndedAt = &at
	r.byID[id] = rel
	return nil
}

func (r *testRepo) Delete(ctx context.Context, id string) error {
	delete(r.byID, id)
	return nil
}

// testRevoker cuenta las cascadas para verificar que End revoca adentro
// de la transacción.
type testRevoker struct {
	calls   int
	lastRel string
	revoke  int
}

func (g *testRevoker) RevokeAllForRelationship(ctx context.Context, relationshipID string, at time.Time) (int, error) {
	g.calls++
	g.lastRel = relationshipID
	return g.revoke, nil
}

// -------------------------
// Setup
// -------------------------

func seedRel(repo *testRepo, id string, status Status) Relationship {
	rel := Relationship{
		ID:             id,
		ProfessionalID: "pro-1",
		ClientID:       "client-1",
		ClientEmail:    "client@example.com",
		Role:           catalog.RoleTrainer,
		Status:         status,
		InvitedAt:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	repo.byID[id] = rel
	return rel
}

// -------------------------
// Tests
// -------------------------

func TestService_End_RevokesGrantsInSameTx(t *testing.T) {
	repo := newTestRepo()
	seedRel(repo, "rel-1", StatusActive)
	revoker := &testRevoker{revoke: 3}
	svc := NewService(repo, revoker, nopTx{}, Options{})
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	rel, err := svc.End(context.Background(), auth.Claims{UserID: "client-1"}, "rel-1")
	if err != nil {
		t.Fatalf("End error: %v", err)
	}
	if rel.Status != StatusEnded {
		t.Fatalf("expected ended, got %s", rel.Status)
	}
	if rel.EndedAt == nil || !rel.EndedAt.Equal(now) {
		t.Fatalf("expected ended_at = now")
	}
	if revoker.calls != 1 || revoker.lastRel != "rel-1" {
		t.Fatalf("expected cascading revoke for rel-1, got calls=%d rel=%s", revoker.calls, revoker.lastRel)
	}

	stored := repo.byID["rel-1"]
	if stored.Status != StatusEnded {
		t.Fatalf("expected stored relationship ended")
	}
}

func TestService_End_EitherPartyCanEnd(t *testing.T) {
	repo := newTestRepo()
	seedRel(repo, "rel-1", StatusActive)
	svc := NewService(repo, &testRevoker{}, nopTx{}, Options{})

	if _, err := svc.End(context.Background(), auth.Claims{UserID: "pro-1"}, "rel-1"); err != nil {
		t.Fatalf("expected professional to end, got %v", err)
	}
}

func TestService_End_ForbiddenForNonParty(t *testing.T) {
	repo := newTestRepo()
	seedRel(repo, "rel-1", StatusActive)
	revoker := &testRevoker{}
	svc := NewService(repo, revoker, nopTx{}, Options{})

	if _, err := svc.End(context.Background(), auth.Claims{UserID: "intruso"}, "rel-1"); err != ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if revoker.calls != 0 {
		t.Fatalf("expected no cascade on forbidden")
	}
}

func TestService_End_RequiresActive(t *testing.T) {
	repo := newTestRepo()
	seedRel(repo, "rel-p", StatusPending)
	seedRel(repo, "rel-e", StatusEnded)
	svc := NewService(repo, &testRevoker{}, nopTx{}, Options{})
	claims := auth.Claims{UserID: "client-1"}

	if _, err := svc.End(context.Background(), claims, "rel-p"); err != ErrInvalidState {
		t.Fatalf("expected ErrInvalidState for pending, got %v", err)
	}
	if _, err := svc.End(context.Background(), claims, "rel-e"); err != ErrInvalidState {
		t.Fatalf("expected ErrInvalidState for ended, got %v", err)
	}
}

func TestService_End_LostRace(t *testing.T) {
	repo := newTestRepo()
	seedRel(repo, "rel-1", StatusActive)
	revoker := &testRevoker{}
	svc := NewService(repo, revoker, nopTx{}, Options{})

	// otra request la termina entre el check y el CAS
	rel := repo.byID["rel-1"]
	original := svc.now
	svc.now = func() time.Time {
		// el fake repo no simula concurrencia; la forzamos acá
		rel.Status = StatusEnded
		repo.byID["rel-1"] = rel
		return original()
	}

	if _, err := svc.End(context.Background(), auth.Claims{UserID: "client-1"}, "rel-1"); err != ErrInvalidState {
		t.Fatalf("expected ErrInvalidState on lost race, got %v", err)
	}
	if revoker.calls != 0 {
		t.Fatalf("expected no cascade when CAS fails")
	}
}

func TestService_GetByID_PartiesAndAdminOnly(t *testing.T) {
	repo := newTestRepo()
	seedRel(repo, "rel-1", StatusActive)
	svc := NewService(repo, &testRevoker{}, nopTx{}, Options{})

	for _, userID := range []string{"pro-1", "client-1"} {
		if _, err := svc.GetByID(context.Background(), auth.Claims{UserID: userID}, "rel-1"); err != nil {
			t.Fatalf("expected party %s to read, got %v", userID, err)
		}
	}
	if _, err := svc.GetByID(context.Background(), auth.Claims{UserID: "admin", Admin: true}, "rel-1"); err != nil {
		t.Fatalf("expected admin to read, got %v", err)
	}
	if _, err := svc.GetByID(context.Background(), auth.Claims{UserID: "otro"}, "rel-1"); err != ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.GetByID(context.Background(), auth.Claims{UserID: "pro-1"}, "nope"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestService_ListForProfessional_ActiveOnly(t *testing.T) {
	repo := newTestRepo()
	seedRel(repo, "rel-a", StatusActive)
	seedRel(repo, "rel-p", StatusPending)
	seedRel(repo, "rel-e", StatusEnded)
	svc := NewService(repo, &testRevoker{}, nopTx{}, Options{})

	rels, err := svc.ListForProfessional(context.Background(), auth.Claims{UserID: "pro-1"})
	if err != nil {
		t.Fatalf("ListForProfessional error: %v", err)
	}
	if len(rels) != 1 || rels[0].ID != "rel-a" {
		t.Fatalf("expected only the active relationship, got %#v", rels)
	}
}

func TestService_ListForClient_IncludesHistory(t *testing.T) {
	repo := newTestRepo()
	seedRel(repo, "rel-a", StatusActive)
	seedRel(repo, "rel-e", StatusEnded)
	svc := NewService(repo, &testRevoker{}, nopTx{}, Options{})

	rels, err := svc.ListForClient(context.Background(), auth.Claims{UserID: "client-1"})
	if err != nil {
		t.Fatalf("ListForClient error: %v", err)
	}
	if len(rels) != 2 {
		t.Fatalf("expected active + ended in history, got %d", len(rels))
	}
}
