package memory

import (
	"context"
	"sort"
	"sync"

	"pro-client-access/internal/domain/grants"
	"pro-client-access/internal/domain/relationships"
)

type grantsRepo struct {
	mu       sync.RWMutex
	byKey    map[string]grants.ClientPermission // relationshipID + "/" + slug
	requests map[string]grants.PermissionRequest
	rels     *RelationshipsRepo
}

// NewGrantsRepo necesita el repo de relaciones: ExclusiveHolders filtra
// por relación activa (en postgres es un join).
func NewGrantsRepo(rels *RelationshipsRepo) grants.Repository {
	return &grantsRepo{
		byKey:    make(map[string]grants.ClientPermission),
		requests: make(map[string]grants.PermissionRequest),
		rels:     rels,
	}
}

func key(relationshipID, slug string) string {
	return relationshipID + "/" + slug
}

func (r *grantsRepo) Get(ctx context.Context, relationshipID, slug string) (grants.ClientPermission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cp, ok := r.byKey[key(relationshipID, slug)]
	if !ok {
		return grants.ClientPermission{}, grants.ErrNotFound
	}
	return cp, nil
}

func (r *grantsRepo) Upsert(ctx context.Context, cp grants.ClientPermission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cp.RelationshipID == "" || cp.Slug == "" {
		return grants.ErrInvalidInput
	}
	r.byKey[key(cp.RelationshipID, cp.Slug)] = cp
	return nil
}

func (r *grantsRepo) ListByRelationship(ctx context.Context, relationshipID string) ([]grants.ClientPermission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]grants.ClientPermission, 0)
	for _, cp := range r.byKey {
		if cp.RelationshipID == relationshipID {
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (r *grantsRepo) ListGranted(ctx context.Context, relationshipID string) ([]grants.ClientPermission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]grants.ClientPermission, 0)
	for _, cp := range r.byKey {
		if cp.RelationshipID == relationshipID && cp.Status == grants.StatusGranted {
			out = append(out, cp)
		}
	}
	return out, nil
}

func (r *grantsRepo) ExclusiveHolders(ctx context.Context, clientID, slug string) ([]grants.Holder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]grants.Holder, 0)
	for _, cp := range r.byKey {
		if cp.ClientID != clientID || cp.Slug != slug || cp.Status != grants.StatusGranted {
			continue
		}
		rel, err := r.rels.GetByID(ctx, cp.RelationshipID)
		if err != nil || rel.Status != relationships.StatusActive {
			continue
		}
		out = append(out, grants.Holder{Permission: cp, Relationship: rel})
	}

	// más reciente primero: granted_at, desempate created_at
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Permission, out[j].Permission
		if a.GrantedAt != nil && b.GrantedAt != nil && !a.GrantedAt.Equal(*b.GrantedAt) {
			return a.GrantedAt.After(*b.GrantedAt)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return out, nil
}

func (r *grantsRepo) AnyGranted(ctx context.Context, relationshipID string, slugs []string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, slug := range slugs {
		if cp, ok := r.byKey[key(relationshipID, slug)]; ok && cp.Status == grants.StatusGranted {
			return true, nil
		}
	}
	return false, nil
}

func (r *grantsRepo) CreateRequest(ctx context.Context, pr grants.PermissionRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if pr.ID == "" {
		return grants.ErrInvalidInput
	}
	r.requests[pr.ID] = pr
	return nil
}

func (r *grantsRepo) GetRequest(ctx context.Context, id string) (grants.PermissionRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pr, ok := r.requests[id]
	if !ok {
		return grants.PermissionRequest{}, grants.ErrNotFound
	}
	return pr, nil
}

func (r *grantsRepo) UpdateRequest(ctx context.Context, pr grants.PermissionRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.requests[pr.ID]; !ok {
		return grants.ErrNotFound
	}
	r.requests[pr.ID] = pr
	return nil
}

func (r *grantsRepo) ListRequestsByRelationship(ctx context.Context, relationshipID string) ([]grants.PermissionRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]grants.PermissionRequest, 0)
	for _, pr := range r.requests {
		if pr.RelationshipID == relationshipID {
			out = append(out, pr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *grantsRepo) FindPendingRequest(ctx context.Context, relationshipID, slug string) (grants.PermissionRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, pr := range r.requests {
		if pr.RelationshipID == relationshipID && pr.Slug == slug && pr.Status == grants.RequestPending {
			return pr, nil
		}
	}
	return grants.PermissionRequest{}, grants.ErrNotFound
}
