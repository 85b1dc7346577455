// Package queue define los eventos de ciclo de vida que este servicio
// publica para colaboradores externos (notificaciones, auditoría).
// La entrega es best-effort: un publish fallido nunca corta el request.
package queue

import (
	"context"
	"time"
)

const (
	QueueRelationshipActivated = "relationship.activated"
	QueueRelationshipEnded     = "relationship.ended"
	QueueGrantChanged          = "grant.changed"
)

type RelationshipActivatedEvent struct {
	RelationshipID string    `json:"relationship_id"`
	ProfessionalID string    `json:"professional_id"`
	ClientID       string    `json:"client_id"`
	Role           string    `json:"role"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type RelationshipEndedEvent struct {
	RelationshipID string    `json:"relationship_id"`
	ProfessionalID string    `json:"professional_id"`
	ClientID       string    `json:"client_id"`
	EndedBy        string    `json:"ended_by"`
	RevokedGrants  int       `json:"revoked_grants"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type GrantChangedEvent struct {
	RelationshipID string    `json:"relationship_id"`
	ClientID       string    `json:"client_id"`
	Slug           string    `json:"slug"`
	Status         string    `json:"status"`
	ChangedBy      string    `json:"changed_by"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type Publisher interface {
	PublishRelationshipActivated(ctx context.Context, ev RelationshipActivatedEvent) error
	PublishRelationshipEnded(ctx context.Context, ev RelationshipEndedEvent) error
	PublishGrantChanged(ctx context.Context, ev GrantChangedEvent) error
}
