package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"pro-client-access/internal/domain/relationships"
)

type RelationshipsRepo struct {
	mu   sync.RWMutex
	byID map[string]relationships.Relationship
}

func NewRelationshipsRepo() *RelationshipsRepo {
	return &RelationshipsRepo{
		byID: make(map[string]relationships.Relationship),
	}
}

func (r *RelationshipsRepo) Create(ctx context.Context, rel relationships.Relationship) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rel.ID == "" {
		return relationships.ErrInvalidInput
	}
	if _, exists := r.byID[rel.ID]; exists {
		return relationships.ErrInvalidState
	}
	r.byID[rel.ID] = rel
	return nil
}

func (r *RelationshipsRepo) GetByID(ctx context.Context, id string) (relationships.Relationship, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rel, ok := r.byID[id]
	if !ok {
		return relationships.Relationship{}, relationships.ErrNotFound
	}
	return rel, nil
}

func (r *RelationshipsRepo) FindOpenByEmail(ctx context.Context, professionalID, email string) (relationships.Relationship, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rel := range r.byID {
		if rel.ProfessionalID != professionalID || rel.Status == relationships.StatusEnded {
			continue
		}
		if strings.EqualFold(rel.ClientEmail, email) {
			return rel, nil
		}
	}
	return relationships.Relationship{}, relationships.ErrNotFound
}

func (r *RelationshipsRepo) FindActiveBetween(ctx context.Context, professionalID, clientID string) (relationships.Relationship, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rel := range r.byID {
		if rel.Status == relationships.StatusActive &&
			rel.ProfessionalID == professionalID &&
			rel.ClientID == clientID {
			return rel, nil
		}
	}
	return relationships.Relationship{}, relationships.ErrNotFound
}

func (r *RelationshipsRepo) ListActiveByProfessional(ctx context.Context, professionalID string) ([]relationships.Relationship, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]relationships.Relationship, 0)
	for _, rel := range r.byID {
		if rel.Status == relationships.StatusActive && rel.ProfessionalID == professionalID {
			out = append(out, rel)
		}
	}
	return out, nil
}

func (r *RelationshipsRepo) ListByClient(ctx context.Context, clientID string) ([]relationships.Relationship, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]relationships.Relationship, 0)
	for _, rel := range r.byID {
		if rel.ClientID == clientID {
			out = append(out, rel)
		}
	}
	return out, nil
}

// Activate: compare-and-set pending -> active.
func (r *RelationshipsRepo) Activate(ctx context.Context, id, clientID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

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

// End: compare-and-set active -> ended.
func (r *RelationshipsRepo) End(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

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

func (r *RelationshipsRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.byID, id)
	return nil
}
