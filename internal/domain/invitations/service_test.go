package invitations

import (
	"context"
	"strings"
	"testing"
	"time"

	"pro-client-access/internal/domain/catalog"
	"pro-client-access/internal/domain/relationships"
	"pro-client-access/internal/ports/auth"
)

// -------------------------
// Fakes (in-memory)
// -------------------------

type nopTx struct{}

func (nopTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type testRels struct {
	byID map[string]relationships.Relationship
}

func newTestRels() *testRels {
	return &testRels{byID: map[string]relationships.Relationship{}}
}

func (r *testRels) Create(ctx context.Context, rel relationships.Relationship) error {
	r.byID[rel.ID] = rel
	return nil
}

func (r *testRels) GetByID(ctx context.Context, id string) (relationships.Relationship, error) {
	rel, ok := r.byID[id]
	if !ok {
		return relationships.Relationship{}, relationships.ErrNotFound
	}
	return rel, nil
}

func (r *testRels) FindOpenByEmail(ctx context.Context, professionalID, email string) (relationships.Relationship, error) {
	for _, rel := range r.byID {
		if rel.ProfessionalID == professionalID &&
			rel.Status != relationships.StatusEnded &&
			strings.EqualFold(rel.ClientEmail, email) {
			return rel, nil
		}
	}
	return relationships.Relationship{}, relationships.ErrNotFound
}

func (r *testRels) FindActiveBetween(ctx context.Context, professionalID, clientID string) (relationships.Relationship, error) {
	for _, rel := range r.byID {
		if rel.Status == relationships.StatusActive &&
			rel.ProfessionalID == professionalID && rel.ClientID == clientID {
			return rel, nil
		}
	}
	return relationships.Relationship{}, relationships.ErrNotFound
}

func (r *testRels) ListActiveByProfessional(ctx context.Context, professionalID string) ([]relationships.Relationship, error) {
	out := make([]relationships.Relationship, 0)
	for _, rel := range r.byID {
		if rel.Status == relationships.StatusActive && rel.ProfessionalID == professionalID {
			out = append(out, rel)
		}
	}
	return out, nil
}

func (r *testRels) ListByClient(ctx context.Context, clientID string) ([]relationships.Relationship, error) {
	out := make([]relationships.Relationship, 0)
	for _, rel := range r.byID {
		if rel.ClientID == clientID {
			out = append(out, rel)
		}
	}
	return out, nil
}

func (r *testRels) Activate(ctx context.Context, id, clientID string, at time.Time) error {
	rel, ok := r.byID[id]
	if !ok {
		return relationships.ErrNotFound
	}
	if rel.Status != relationships.StatusPending {
		return relationships.ErrInvalidState
	}
	rel.Status = relationships.StatusActive
	rel.ClientID = clientID
	rel.AcceptedAt = &at
	r.byID[id] = rel
	return nil
}

func (r *testRels) End(ctx context.Context, id string, at time.Time) error {
	rel, ok := r.byID[id]
	if !ok {
		return relationships.ErrNotFound
	}
	if rel.Status != relationships.StatusActive {
		return relationships.ErrInvalidState
	}
	rel.Status = relationships.StatusEnded
	rel.EndedAt = &at
	r.byID[id] = rel
	return nil
}

func (r *testRels) Delete(ctx context.Context, id string) error {
	delete(r.byID, id)
	return nil
}

type testInvRepo struct {
	byID      map[string]Invitation
	byHash    map[string]string
	requested map[string][]RequestedPermission
}

func newTestInvRepo() *testInvRepo {
	return &testInvRepo{
		byID:      map[string]Invitation{},
		byHash:    map[string]string{},
		requested: map[string][]RequestedPermission{},
	}
}

func (r *testInvRepo) Create(ctx context.Context, inv Invitation, perms []RequestedPermission) error {
	r.byID[inv.ID] = inv
	r.byHash[inv.TokenHash] = inv.ID
	r.requested[inv.ID] = perms
	return nil
}

func (r *testInvRepo) GetByTokenHash(ctx context.Context, hash string) (Invitation, error) {
	id, ok := r.byHash[hash]
	if !ok {
		return Invitation{}, ErrTokenNotFound
	}
	return r.byID[id], nil
}

func (r *testInvRepo) ListRequested(ctx context.Context, invitationID string) ([]RequestedPermission, error) {
	return r.requested[invitationID], nil
}

func (r *testInvRepo) MarkAccepted(ctx context.Context, id string, at time.Time) error {
	inv, ok := r.byID[id]
	if !ok {
		return ErrTokenNotFound
	}
	if inv.Status != StatusPending {
		return ErrAlreadyAccepted
	}
	inv.Status = StatusAccepted
	inv.AcceptedAt = &at
	r.byID[id] = inv
	return nil
}

func (r *testInvRepo) MarkExpired(ctx context.Context, id string) error {
	inv, ok := r.byID[id]
	if !ok {
		return ErrTokenNotFound
	}
	if inv.Status != StatusPending {
		return ErrAlreadyAccepted
	}
	inv.Status = StatusExpired
	r.byID[id] = inv
	return nil
}

func (r *testInvRepo) ListStalePending(ctx context.Context, before time.Time, limit int) ([]Invitation, error) {
	out := make([]Invitation, 0)
	for _, inv := range r.byID {
		if inv.Status == StatusPending && before.After(inv.ExpiresAt) {
			out = append(out, inv)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

type testCatalog struct {
	bySlug map[string]catalog.Definition
}

func newTestCatalog() *testCatalog {
	c := &testCatalog{bySlug: map[string]catalog.Definition{}}
	add := func(slug string, cat catalog.Category, t catalog.PermissionType, exclusive, verif bool) {
		c.bySlug[slug] = catalog.Definition{
			Slug: slug, Category: cat, Type: t,
			Exclusive: exclusive, Enabled: true, RequiresVerification: verif,
		}
	}
	add(catalog.SlugViewWorkouts, catalog.CategoryWorkouts, catalog.TypeRead, false, false)
	add(catalog.SlugLogWorkouts, catalog.CategoryWorkouts, catalog.TypeWrite, false, false)
	add(catalog.SlugViewWeight, catalog.CategoryWeight, catalog.TypeRead, false, false)
	add(catalog.SlugViewCheckins, catalog.CategoryCheckins, catalog.TypeRead, false, false)
	add(catalog.SlugViewNutrition, catalog.CategoryNutrition, catalog.TypeRead, false, false)
	add(catalog.SlugLogNutrition, catalog.CategoryNutrition, catalog.TypeWrite, false, false)
	add(catalog.SlugViewFasting, catalog.CategoryFasting, catalog.TypeRead, false, false)
	add(catalog.SlugSetNutritionTargets, catalog.CategoryNutrition, catalog.TypeWrite, true, false)
	add(catalog.SlugAssignTrainingPlan, catalog.CategoryWorkouts, catalog.TypeWrite, true, true)
	return c
}

func (c *testCatalog) Definition(ctx context.Context, slug string) (catalog.Definition, error) {
	d, ok := c.bySlug[slug]
	if !ok {
		return catalog.Definition{}, catalog.ErrNotFound
	}
	return d, nil
}

type seededGrant struct {
	RelationshipID string
	ClientID       string
	Slug           string
	Granted        bool
}

type testLedger struct {
	seeds       []seededGrant
	heldByOther map[string]bool // slug -> otro profesional lo tiene
}

func newTestLedger() *testLedger {
	return &testLedger{heldByOther: map[string]bool{}}
}

func (l *testLedger) SeedGrant(ctx context.Context, relationshipID, clientID, slug, grantedBy string, at time.Time, granted bool) error {
	l.seeds = append(l.seeds, seededGrant{
		RelationshipID: relationshipID,
		ClientID:       clientID,
		Slug:           slug,
		Granted:        granted,
	})
	return nil
}

func (l *testLedger) ExclusiveHeldByOther(ctx context.Context, clientID, slug, excludeRelationshipID string) (bool, error) {
	return l.heldByOther[slug], nil
}

func (l *testLedger) seedFor(slug string) (seededGrant, bool) {
	for _, s := range l.seeds {
		if s.Slug == slug {
			return s, true
		}
	}
	return seededGrant{}, false
}

// -------------------------
// Setup
// -------------------------

type fixture struct {
	svc    *Service
	rels   *testRels
	repo   *testInvRepo
	ledger *testLedger
	cat    *testCatalog
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		rels:   newTestRels(),
		repo:   newTestInvRepo(),
		ledger: newTestLedger(),
		cat:    newTestCatalog(),
		now:    time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.repo, f.rels, f.ledger, f.cat, nopTx{}, Options{})
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) invite(t *testing.T, extra ...string) Created {
	t.Helper()
	created, err := f.svc.CreateInvitation(context.Background(), auth.Claims{UserID: "pro-1"}, CreateInput{
		Email: "Client@Example.com",
		Role:  catalog.RoleTrainer,
		Slugs: extra,
	})
	if err != nil {
		t.Fatalf("CreateInvitation error: %v", err)
	}
	return created
}

var clientClaims = auth.Claims{UserID: "client-1", Email: "client@example.com"}

// -------------------------
// Tests
// -------------------------

func TestService_CreateInvitation_CreatesPendingRelationship(t *testing.T) {
	f := newFixture(t)

	created := f.invite(t)

	if created.Token == "" {
		t.Fatalf("expected raw token returned once")
	}
	if created.Invitation.Email != "client@example.com" {
		t.Fatalf("expected lowercased email, got %s", created.Invitation.Email)
	}
	if created.Invitation.ExpiresAt != f.now.Add(DefaultTTL) {
		t.Fatalf("expected 7 day expiry")
	}
	if created.Invitation.TokenHash != HashToken(created.Token) {
		t.Fatalf("expected persisted hash of token")
	}

	rel, err := f.rels.GetByID(context.Background(), created.Invitation.RelationshipID)
	if err != nil {
		t.Fatalf("relationship not created: %v", err)
	}
	if rel.Status != relationships.StatusPending {
		t.Fatalf("expected pending relationship, got %s", rel.Status)
	}
	if rel.ClientID != "" {
		t.Fatalf("client id must stay empty until redeem")
	}
}

func TestService_CreateInvitation_DuplicateRelationship(t *testing.T) {
	f := newFixture(t)
	f.invite(t)

	_, err := f.svc.CreateInvitation(context.Background(), auth.Claims{UserID: "pro-1"}, CreateInput{
		Email: "client@example.com",
		Role:  catalog.RoleCoach,
	})
	if err != ErrDuplicateRelationship {
		t.Fatalf("expected ErrDuplicateRelationship, got %v", err)
	}
}

func TestService_CreateInvitation_InvalidRole(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateInvitation(context.Background(), auth.Claims{UserID: "pro-1"}, CreateInput{
		Email: "client@example.com",
		Role:  catalog.RoleType("wizard"),
	})
	if err != ErrInvalidRole {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestService_CreateInvitation_RejectsBadExtraSlugs(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.CreateInvitation(context.Background(), auth.Claims{UserID: "pro-1"}, CreateInput{
		Email: "a@b.com", Role: catalog.RoleTrainer, Slugs: []string{"no_such"},
	}); err != ErrUnknownPermission {
		t.Fatalf("expected ErrUnknownPermission, got %v", err)
	}

	// deshabilitado
	d := f.cat.bySlug[catalog.SlugSetNutritionTargets]
	d.Enabled = false
	f.cat.bySlug[catalog.SlugSetNutritionTargets] = d
	if _, err := f.svc.CreateInvitation(context.Background(), auth.Claims{UserID: "pro-1"}, CreateInput{
		Email: "a@b.com", Role: catalog.RoleTrainer, Slugs: []string{catalog.SlugSetNutritionTargets},
	}); err != ErrPermissionDisabled {
		t.Fatalf("expected ErrPermissionDisabled, got %v", err)
	}

	// redundante: ya viene en el bundle del trainer
	if _, err := f.svc.CreateInvitation(context.Background(), auth.Claims{UserID: "pro-1"}, CreateInput{
		Email: "a@b.com", Role: catalog.RoleTrainer, Slugs: []string{catalog.SlugViewWorkouts},
	}); err != ErrRedundantPermission {
		t.Fatalf("expected ErrRedundantPermission, got %v", err)
	}
}

func TestService_CreateInvitation_VerificationGate(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateInvitation(context.Background(), auth.Claims{UserID: "pro-1"}, CreateInput{
		Email: "a@b.com", Role: catalog.RoleTrainer, Slugs: []string{catalog.SlugAssignTrainingPlan},
	})
	if err != ErrVerificationRequired {
		t.Fatalf("expected ErrVerificationRequired, got %v", err)
	}

	// con credencial verificada pasa
	if _, err := f.svc.CreateInvitation(context.Background(), auth.Claims{UserID: "pro-1", Verified: true}, CreateInput{
		Email: "a@b.com", Role: catalog.RoleTrainer, Slugs: []string{catalog.SlugAssignTrainingPlan},
	}); err != nil {
		t.Fatalf("expected verified professional to pass, got %v", err)
	}
}

func TestService_RedeemInvitation_ActivatesAndSeedsBundle(t *testing.T) {
	f := newFixture(t)
	created := f.invite(t, catalog.SlugSetNutritionTargets)

	rel, err := f.svc.RedeemInvitation(context.Background(), clientClaims, created.Token)
	if err != nil {
		t.Fatalf("RedeemInvitation error: %v", err)
	}
	if rel.Status != relationships.StatusActive {
		t.Fatalf("expected active relationship, got %s", rel.Status)
	}
	if rel.ClientID != "client-1" {
		t.Fatalf("expected client id set on redeem")
	}

	// bundle del trainer + el extra pedido
	want := append(catalog.DefaultBundle(catalog.RoleTrainer), catalog.SlugSetNutritionTargets)
	for _, slug := range want {
		s, ok := f.ledger.seedFor(slug)
		if !ok {
			t.Fatalf("expected seeded grant for %s", slug)
		}
		if !s.Granted {
			t.Fatalf("expected %s granted, got pending", slug)
		}
	}
}

func TestService_RedeemInvitation_EmailMismatch(t *testing.T) {
	f := newFixture(t)
	created := f.invite(t)

	_, err := f.svc.RedeemInvitation(context.Background(), auth.Claims{
		UserID: "client-2", Email: "other@example.com",
	}, created.Token)
	if err != ErrEmailMismatch {
		t.Fatalf("expected ErrEmailMismatch, got %v", err)
	}
}

func TestService_RedeemInvitation_LazyExpiry(t *testing.T) {
	f := newFixture(t)
	created := f.invite(t)

	f.now = f.now.Add(DefaultTTL + time.Hour)

	_, err := f.svc.RedeemInvitation(context.Background(), clientClaims, created.Token)
	if err != ErrExpired {
		t.Fatalf("expected ErrExpired, got %v", err)
	}

	// la invitación queda expired y la relación pending desaparece
	inv := f.repo.byID[created.Invitation.ID]
	if inv.Status != StatusExpired {
		t.Fatalf("expected invitation flipped to expired, got %s", inv.Status)
	}
	if _, err := f.rels.GetByID(context.Background(), created.Invitation.RelationshipID); err == nil {
		t.Fatalf("expected pending relationship deleted on expiry")
	}
}

func TestService_RedeemInvitation_DoubleRedeem(t *testing.T) {
	f := newFixture(t)
	created := f.invite(t)

	if _, err := f.svc.RedeemInvitation(context.Background(), clientClaims, created.Token); err != nil {
		t.Fatalf("Redeem #1 error: %v", err)
	}
	if _, err := f.svc.RedeemInvitation(context.Background(), clientClaims, created.Token); err != ErrAlreadyAccepted {
		t.Fatalf("expected ErrAlreadyAccepted on second redeem, got %v", err)
	}
}

func TestService_RedeemInvitation_AliasEmailsSamePair(t *testing.T) {
	f := newFixture(t)

	// el mismo profesional invitó al mismo usuario a dos emails distintos;
	// el check por email de la emisión no ve el par
	invA, err := f.svc.CreateInvitation(context.Background(), auth.Claims{UserID: "pro-1"}, CreateInput{
		Email: "alias-a@example.com", Role: catalog.RoleTrainer,
	})
	if err != nil {
		t.Fatalf("CreateInvitation A error: %v", err)
	}
	invB, err := f.svc.CreateInvitation(context.Background(), auth.Claims{UserID: "pro-1"}, CreateInput{
		Email: "alias-b@example.com", Role: catalog.RoleCoach,
	})
	if err != nil {
		t.Fatalf("CreateInvitation B error: %v", err)
	}

	if _, err := f.svc.RedeemInvitation(context.Background(), auth.Claims{
		UserID: "client-1", Email: "alias-a@example.com",
	}, invA.Token); err != nil {
		t.Fatalf("Redeem A error: %v", err)
	}

	// el segundo canje rompería la unicidad por par: pierde con conflicto
	_, err = f.svc.RedeemInvitation(context.Background(), auth.Claims{
		UserID: "client-1", Email: "alias-b@example.com",
	}, invB.Token)
	if err != ErrDuplicateRelationship {
		t.Fatalf("expected ErrDuplicateRelationship, got %v", err)
	}

	// y no deja estado a medias: invitación y relación B siguen pending
	if inv := f.repo.byID[invB.Invitation.ID]; inv.Status != StatusPending {
		t.Fatalf("expected invitation B untouched, got %s", inv.Status)
	}
	rel, err := f.rels.GetByID(context.Background(), invB.Invitation.RelationshipID)
	if err != nil {
		t.Fatalf("relationship B missing: %v", err)
	}
	if rel.Status != relationships.StatusPending || rel.ClientID != "" {
		t.Fatalf("expected relationship B still pending without client, got %s/%q", rel.Status, rel.ClientID)
	}
}

func TestService_RedeemInvitation_UnknownToken(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.RedeemInvitation(context.Background(), clientClaims, "bogus"); err != ErrTokenNotFound {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestService_RedeemInvitation_ExclusiveHeldByOther_SeedsPending(t *testing.T) {
	f := newFixture(t)
	created := f.invite(t, catalog.SlugSetNutritionTargets)

	// otro profesional ya tiene el exclusivo: en el canje no se desplaza
	f.ledger.heldByOther[catalog.SlugSetNutritionTargets] = true

	if _, err := f.svc.RedeemInvitation(context.Background(), clientClaims, created.Token); err != nil {
		t.Fatalf("RedeemInvitation error: %v", err)
	}

	s, ok := f.ledger.seedFor(catalog.SlugSetNutritionTargets)
	if !ok {
		t.Fatalf("expected ledger row for exclusive slug")
	}
	if s.Granted {
		t.Fatalf("expected exclusive slug seeded as pending, not granted")
	}

	// el resto del bundle sí se otorga
	if s, _ := f.ledger.seedFor(catalog.SlugViewWorkouts); !s.Granted {
		t.Fatalf("expected bundle slug granted")
	}
}

func TestService_RedeemInvitation_SkipsDisabledSlug(t *testing.T) {
	f := newFixture(t)
	created := f.invite(t, catalog.SlugSetNutritionTargets)

	// kill switch después de emitida la invitación
	d := f.cat.bySlug[catalog.SlugSetNutritionTargets]
	d.Enabled = false
	f.cat.bySlug[catalog.SlugSetNutritionTargets] = d

	if _, err := f.svc.RedeemInvitation(context.Background(), clientClaims, created.Token); err != nil {
		t.Fatalf("RedeemInvitation error: %v", err)
	}
	if _, ok := f.ledger.seedFor(catalog.SlugSetNutritionTargets); ok {
		t.Fatalf("expected disabled slug skipped on redeem")
	}
}

func TestService_ExpireStale_SweepsPending(t *testing.T) {
	f := newFixture(t)
	created := f.invite(t)

	f.now = f.now.Add(DefaultTTL + time.Minute)

	if n := f.svc.ExpireStale(context.Background(), 10); n != 1 {
		t.Fatalf("expected 1 expired, got %d", n)
	}
	if inv := f.repo.byID[created.Invitation.ID]; inv.Status != StatusExpired {
		t.Fatalf("expected invitation expired, got %s", inv.Status)
	}

	// segunda pasada: nada para barrer
	if n := f.svc.ExpireStale(context.Background(), 10); n != 0 {
		t.Fatalf("expected 0 expired on second sweep, got %d", n)
	}
}
