package invitations

import (
	"time"

	"pro-client-access/internal/domain/catalog"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusExpired  Status = "expired"
)

// DefaultTTL: una invitación vale 7 días desde su emisión.
const DefaultTTL = 7 * 24 * time.Hour

// Invitation es el token canjeable que crea la relación. Solo se persiste
// el hash del token; el valor crudo se muestra una única vez al emisor.
type Invitation struct {
	ID             string
	ProfessionalID string
	RelationshipID string
	Email          string
	Role           catalog.RoleType
	TokenHash      string
	Status         Status

	CreatedAt  time.Time
	ExpiresAt  time.Time
	AcceptedAt *time.Time
}

func (i Invitation) ExpiredAt(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// RequestedPermission es un permiso extra (fuera del bundle del rol) que
// el profesional pide aprobar junto con la invitación.
type RequestedPermission struct {
	InvitationID string
	Slug         string
	RequestedBy  string
}
