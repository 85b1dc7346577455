package memory

import (
	"context"
	"sync"
	"time"

	"pro-client-access/internal/domain/invitations"
)

type invitationsRepo struct {
	mu        sync.RWMutex
	byID      map[string]invitations.Invitation
	byHash    map[string]string // token hash -> invitation id
	requested map[string][]invitations.RequestedPermission
}

func NewInvitationsRepo() invitations.Repository {
	return &invitationsRepo{
		byID:      make(map[string]invitations.Invitation),
		byHash:    make(map[string]string),
		requested: make(map[string][]invitations.RequestedPermission),
	}
}

func (r *invitationsRepo) Create(ctx context.Context, inv invitations.Invitation, perms []invitations.RequestedPermission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if inv.ID == "" || inv.TokenHash == "" {
		return invitations.ErrInvalidInput
	}
	r.byID[inv.ID] = inv
	r.byHash[inv.TokenHash] = inv.ID
	if len(perms) > 0 {
		r.requested[inv.ID] = append([]invitations.RequestedPermission(nil), perms...)
	}
	return nil
}

func (r *invitationsRepo) GetByTokenHash(ctx context.Context, hash string) (invitations.Invitation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byHash[hash]
	if !ok {
		return invitations.Invitation{}, invitations.ErrTokenNotFound
	}
	return r.byID[id], nil
}

func (r *invitationsRepo) ListRequested(ctx context.Context, invitationID string) ([]invitations.RequestedPermission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]invitations.RequestedPermission(nil), r.requested[invitationID]...), nil
}

// MarkAccepted: compare-and-set sobre pending. El doble submit del mismo
// token pierde acá.
func (r *invitationsRepo) MarkAccepted(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inv, ok := r.byID[id]
	if !ok {
		return invitations.ErrTokenNotFound
	}
	if inv.Status != invitations.StatusPending {
		return invitations.ErrAlreadyAccepted
	}
	inv.Status = invitations.StatusAccepted
	inv.AcceptedAt = &at
	r.byID[id] = inv
	return nil
}

func (r *invitationsRepo) MarkExpired(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inv, ok := r.byID[id]
	if !ok {
		return invitations.ErrTokenNotFound
	}
	if inv.Status != invitations.StatusPending {
		return invitations.ErrAlreadyAccepted
	}
	inv.Status = invitations.StatusExpired
	r.byID[id] = inv
	return nil
}

func (r *invitationsRepo) ListStalePending(ctx context.Context, before time.Time, limit int) ([]invitations.Invitation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]invitations.Invitation, 0)
	for _, inv := range r.byID {
		if inv.Status == invitations.StatusPending && before.After(inv.ExpiresAt) {
			out = append(out, inv)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}
