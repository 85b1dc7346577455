package relationships

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, r Relationship) error
	GetByID(ctx context.Context, id string) (Relationship, error)

	// FindOpenByEmail busca una relación no-ended del profesional con ese
	// email (case-insensitive). Sostiene la invariante de unicidad al
	// emitir invitaciones.
	FindOpenByEmail(ctx context.Context, professionalID, email string) (Relationship, error)

	FindActiveBetween(ctx context.Context, professionalID, clientID string) (Relationship, error)
	ListActiveByProfessional(ctx context.Context, professionalID string) ([]Relationship, error)
	ListByClient(ctx context.Context, clientID string) ([]Relationship, error)

	// Activate es un compare-and-set: solo pasa pending -> active. Si la
	// fila ya no está pending devuelve ErrInvalidState.
	Activate(ctx context.Context, id, clientID string, at time.Time) error

	// End es un compare-and-set: solo pasa active -> ended.
	End(ctx context.Context, id string, at time.Time) error

	// Delete elimina una relación que nunca pasó de pending (invitación
	// expirada: se trata como si jamás hubiera existido).
	Delete(ctx context.Context, id string) error
}
