package access

import (
	"context"
	"testing"

	"pro-client-access/internal/domain/catalog"
	"pro-client-access/internal/domain/relationships"
	"pro-client-access/internal/ports/auth"
)

// -------------------------
// Fakes (in-memory)
// -------------------------

type testRels struct {
	rels []relationships.Relationship
}

func (r *testRels) FindActiveBetween(ctx context.Context, professionalID, clientID string) (relationships.Relationship, error) {
	for _, rel := range r.rels {
		if rel.ProfessionalID == professionalID && rel.ClientID == clientID && rel.Status == relationships.StatusActive {
			return rel, nil
		}
	}
	return relationships.Relationship{}, relationships.ErrNotFound
}

func (r *testRels) ListActiveByProfessional(ctx context.Context, professionalID string) ([]relationships.Relationship, error) {
	out := make([]relationships.Relationship, 0)
	for _, rel := range r.rels {
		if rel.ProfessionalID == professionalID && rel.Status == relationships.StatusActive {
			out = append(out, rel)
		}
	}
	return out, nil
}

// testGrants marca qué relaciones tienen algún read slug granted.
type testGrants struct {
	granted map[string]bool // relationshipID -> true
}

func (g *testGrants) AnyGranted(ctx context.Context, relationshipID string, slugs []string) (bool, error) {
	return len(slugs) > 0 && g.granted[relationshipID], nil
}

type testCatalog struct {
	readSlugs map[catalog.Category][]string
}

func (c *testCatalog) ReadSlugs(ctx context.Context, cat catalog.Category) ([]string, error) {
	return c.readSlugs[cat], nil
}

type testHolders struct {
	holder relationships.Relationship
	err    error
}

func (h *testHolders) FindExclusiveHolder(ctx context.Context, clientID, slug string) (relationships.Relationship, error) {
	if h.err != nil {
		return relationships.Relationship{}, h.err
	}
	return h.holder, nil
}

type testCache struct {
	store map[string]bool
	gets  int
	hits  int
	sets  int
}

func (c *testCache) GetDecision(ctx context.Context, key string) (bool, bool) {
	c.gets++
	v, ok := c.store[key]
	if ok {
		c.hits++
	}
	return v, ok
}

func (c *testCache) SetDecision(ctx context.Context, key string, allowed bool) {
	c.sets++
	c.store[key] = allowed
}

// -------------------------
// Setup
// -------------------------

func activeRel(id, pro, client string, role catalog.RoleType) relationships.Relationship {
	return relationships.Relationship{
		ID: id, ProfessionalID: pro, ClientID: client,
		Role: role, Status: relationships.StatusActive,
	}
}

func newFixture(granted map[string]bool) (*Service, *testRels) {
	rels := &testRels{rels: []relationships.Relationship{
		activeRel("rel-1", "pro-1", "client-1", catalog.RoleTrainer),
	}}
	cat := &testCatalog{readSlugs: map[catalog.Category][]string{
		catalog.CategoryWorkouts: {"view_workouts"},
		catalog.CategoryWeight:   {"view_weight"},
	}}
	svc := NewService(rels, &testGrants{granted: granted}, cat, &testHolders{err: ErrNotFound}, Options{})
	return svc, rels
}

// -------------------------
// Tests
// -------------------------

func TestService_CanView_NoActiveRelationship(t *testing.T) {
	svc, _ := newFixture(map[string]bool{"rel-1": true})

	allowed, err := svc.CanView(context.Background(), "pro-2", "client-1", catalog.CategoryWorkouts, "")
	if err != nil {
		t.Fatalf("CanView error: %v", err)
	}
	if allowed {
		t.Fatalf("expected no access without active relationship")
	}
}

func TestService_CanView_GrantedSlug(t *testing.T) {
	svc, _ := newFixture(map[string]bool{"rel-1": true})

	allowed, err := svc.CanView(context.Background(), "pro-1", "client-1", catalog.CategoryWorkouts, "")
	if err != nil {
		t.Fatalf("CanView error: %v", err)
	}
	if !allowed {
		t.Fatalf("expected access with granted read slug")
	}
}

func TestService_CanView_NoGrant(t *testing.T) {
	svc, _ := newFixture(map[string]bool{})

	allowed, err := svc.CanView(context.Background(), "pro-1", "client-1", catalog.CategoryWeight, "")
	if err != nil {
		t.Fatalf("CanView error: %v", err)
	}
	if allowed {
		t.Fatalf("expected no access without grants")
	}
}

func TestService_CanView_ProfileAlwaysVisible(t *testing.T) {
	// perfil es default-visible: relación activa alcanza, sin grants
	svc, _ := newFixture(map[string]bool{})

	allowed, err := svc.CanView(context.Background(), "pro-1", "client-1", catalog.CategoryProfile, "")
	if err != nil {
		t.Fatalf("CanView error: %v", err)
	}
	if !allowed {
		t.Fatalf("expected profile visible on any active relationship")
	}
}

func TestService_CanView_RoleFilter(t *testing.T) {
	svc, _ := newFixture(map[string]bool{"rel-1": true})

	allowed, err := svc.CanView(context.Background(), "pro-1", "client-1", catalog.CategoryWorkouts, catalog.RoleTrainer)
	if err != nil {
		t.Fatalf("CanView error: %v", err)
	}
	if !allowed {
		t.Fatalf("expected access with matching role")
	}

	allowed, err = svc.CanView(context.Background(), "pro-1", "client-1", catalog.CategoryWorkouts, catalog.RoleNutritionist)
	if err != nil {
		t.Fatalf("CanView error: %v", err)
	}
	if allowed {
		t.Fatalf("expected role mismatch to deny")
	}
}

func TestService_CanView_InvalidInput(t *testing.T) {
	svc, _ := newFixture(nil)

	if _, err := svc.CanView(context.Background(), "", "client-1", catalog.CategoryWorkouts, ""); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.CanView(context.Background(), "pro-1", "client-1", "no_such", ""); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput for bad category, got %v", err)
	}
	if _, err := svc.CanView(context.Background(), "pro-1", "client-1", catalog.CategoryWorkouts, "plomero"); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput for bad role, got %v", err)
	}
}

func TestService_CanView_UsesDecisionCache(t *testing.T) {
	rels := &testRels{rels: []relationships.Relationship{
		activeRel("rel-1", "pro-1", "client-1", catalog.RoleTrainer),
	}}
	cat := &testCatalog{readSlugs: map[catalog.Category][]string{
		catalog.CategoryWorkouts: {"view_workouts"},
	}}
	cache := &testCache{store: map[string]bool{}}
	svc := NewService(rels, &testGrants{granted: map[string]bool{"rel-1": true}}, cat, &testHolders{err: ErrNotFound}, Options{Cache: cache})

	for i := 0; i < 3; i++ {
		allowed, err := svc.CanView(context.Background(), "pro-1", "client-1", catalog.CategoryWorkouts, "")
		if err != nil {
			t.Fatalf("CanView #%d error: %v", i, err)
		}
		if !allowed {
			t.Fatalf("CanView #%d expected allowed", i)
		}
	}

	if cache.sets != 1 {
		t.Fatalf("expected a single cache fill, got %d", cache.sets)
	}
	if cache.hits != 2 {
		t.Fatalf("expected two cache hits, got %d", cache.hits)
	}
}

func TestService_AccessibleClients(t *testing.T) {
	rels := &testRels{rels: []relationships.Relationship{
		activeRel("rel-1", "pro-1", "client-1", catalog.RoleTrainer),
		activeRel("rel-2", "pro-1", "client-2", catalog.RoleNutritionist),
		// pending: todavía sin ClientID
		{ID: "rel-3", ProfessionalID: "pro-1", ClientEmail: "x@y.com", Role: catalog.RoleTrainer, Status: relationships.StatusPending},
	}}
	svc := NewService(rels, &testGrants{}, &testCatalog{}, &testHolders{err: ErrNotFound}, Options{})

	ids, err := svc.AccessibleClients(context.Background(), "pro-1", "")
	if err != nil {
		t.Fatalf("AccessibleClients error: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 clients, got %#v", ids)
	}

	ids, err = svc.AccessibleClients(context.Background(), "pro-1", catalog.RoleTrainer)
	if err != nil {
		t.Fatalf("AccessibleClients error: %v", err)
	}
	if len(ids) != 1 || ids[0] != "client-1" {
		t.Fatalf("expected only trainer clients, got %#v", ids)
	}
}

func TestService_AccessibleClients_DeduplicatesClients(t *testing.T) {
	// un cliente puede tener dos relaciones activas con el mismo
	// profesional bajo roles distintos: el listado es un set de IDs
	rels := &testRels{rels: []relationships.Relationship{
		activeRel("rel-1", "pro-1", "client-1", catalog.RoleTrainer),
		activeRel("rel-2", "pro-1", "client-1", catalog.RoleNutritionist),
		activeRel("rel-3", "pro-1", "client-2", catalog.RoleTrainer),
	}}
	svc := NewService(rels, &testGrants{}, &testCatalog{}, &testHolders{err: ErrNotFound}, Options{})

	ids, err := svc.AccessibleClients(context.Background(), "pro-1", "")
	if err != nil {
		t.Fatalf("AccessibleClients error: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected each client once, got %#v", ids)
	}
	seen := map[string]int{}
	for _, id := range ids {
		seen[id]++
	}
	if seen["client-1"] != 1 || seen["client-2"] != 1 {
		t.Fatalf("expected {client-1, client-2}, got %#v", ids)
	}
}

func TestService_ExclusiveHolder_Authorization(t *testing.T) {
	holder := activeRel("rel-1", "pro-1", "client-1", catalog.RoleNutritionist)
	rels := &testRels{rels: []relationships.Relationship{holder}}
	svc := NewService(rels, &testGrants{}, &testCatalog{}, &testHolders{holder: holder}, Options{})

	// el propio cliente
	if _, err := svc.ExclusiveHolder(context.Background(), auth.Claims{UserID: "client-1"}, "client-1", "set_nutrition_targets"); err != nil {
		t.Fatalf("expected client to query, got %v", err)
	}
	// admin
	if _, err := svc.ExclusiveHolder(context.Background(), auth.Claims{UserID: "a", Admin: true}, "client-1", "set_nutrition_targets"); err != nil {
		t.Fatalf("expected admin to query, got %v", err)
	}
	// profesional con relación activa
	rel, err := svc.ExclusiveHolder(context.Background(), auth.Claims{UserID: "pro-1"}, "client-1", "set_nutrition_targets")
	if err != nil {
		t.Fatalf("expected related professional to query, got %v", err)
	}
	if rel.ID != "rel-1" {
		t.Fatalf("expected rel-1 as holder, got %s", rel.ID)
	}
	// un tercero no
	if _, err := svc.ExclusiveHolder(context.Background(), auth.Claims{UserID: "pro-9"}, "client-1", "set_nutrition_targets"); err != ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestService_ExclusiveHolder_NoHolder(t *testing.T) {
	rels := &testRels{rels: []relationships.Relationship{
		activeRel("rel-1", "pro-1", "client-1", catalog.RoleNutritionist),
	}}
	svc := NewService(rels, &testGrants{}, &testCatalog{}, &testHolders{err: ErrNotFound}, Options{})

	if _, err := svc.ExclusiveHolder(context.Background(), auth.Claims{UserID: "client-1"}, "client-1", "set_nutrition_targets"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
