package relationships

import (
	"time"

	"pro-client-access/internal/domain/catalog"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusEnded   Status = "ended" // terminal
)

// Relationship es el pairing profesional-cliente con su propio ciclo de
// vida, independiente de los permisos concretos.
//
// Mientras la invitación está pendiente solo conocemos el email del
// cliente; ClientID se completa al aceptar. Invariante: por cada par
// (professional, client) hay a lo sumo una relación no-ended a la vez.
type Relationship struct {
	ID             string
	ProfessionalID string
	ClientID       string
	ClientEmail    string
	Role           catalog.RoleType
	Status         Status

	InvitedAt  time.Time
	AcceptedAt *time.Time
	EndedAt    *time.Time
}

// Party reporta si el user participa de la relación.
func (r Relationship) Party(userID string) bool {
	return userID != "" && (userID == r.ProfessionalID || userID == r.ClientID)
}
