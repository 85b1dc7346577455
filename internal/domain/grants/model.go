package grants

import (
	"time"

	"pro-client-access/internal/domain/relationships"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusGranted Status = "granted"
	StatusRevoked Status = "revoked"
)

// Quién resolvió el grant. "system" queda para flujos internos (p.ej.
// migraciones); hoy los caminos normales son client y admin.
const (
	ByClient = "client"
	ByAdmin  = "admin"
	BySystem = "system"
)

// ClientPermission es una entrada del grant ledger: una fila por
// (relationship, slug). Re-otorgar después de revocar flipea el status
// sobre la misma fila, no duplica.
type ClientPermission struct {
	ID             string
	RelationshipID string
	// ClientID denormalizado para el lookup del resolver de exclusividad.
	ClientID string
	Slug     string
	Status   Status

	GrantedBy string
	GrantedAt *time.Time
	RevokedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestDenied   RequestStatus = "denied"
)

// PermissionRequest es el pedido post-aceptación sobre una relación ya
// activa (distinto del permiso extra que viaja en la invitación).
type PermissionRequest struct {
	ID             string
	RelationshipID string
	Slug           string
	Notes          string
	Status         RequestStatus

	CreatedAt  time.Time
	UpdatedAt  time.Time
	ResolvedAt *time.Time
}

// Holder junta la fila del ledger con su relación; es lo que devuelve el
// resolver de exclusividad.
type Holder struct {
	Permission   ClientPermission
	Relationship relationships.Relationship
}
