package invitations

import (
	"context"
	"time"
)

type Repository interface {
	// Create persiste la invitación junto con sus permisos pedidos.
	Create(ctx context.Context, inv Invitation, perms []RequestedPermission) error

	GetByTokenHash(ctx context.Context, hash string) (Invitation, error)
	ListRequested(ctx context.Context, invitationID string) ([]RequestedPermission, error)

	// MarkAccepted es compare-and-set sobre status=pending; si la fila ya
	// no está pending el adapter devuelve ErrAlreadyAccepted. Es lo que
	// hace seguro el doble submit del mismo token.
	MarkAccepted(ctx context.Context, id string, at time.Time) error

	// MarkExpired flip a expired (también CAS sobre pending).
	MarkExpired(ctx context.Context, id string) error

	// ListStalePending lista invitaciones pending vencidas para el sweep
	// best-effort del janitor.
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]Invitation, error)
}
