package relationships

import (
	"context"
	"errors"
	"strings"
	"time"

	"pro-client-access/internal/platform/logger"
	"pro-client-access/internal/ports/auth"
	"pro-client-access/internal/queue"
	"pro-client-access/internal/storage"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")

	// ErrInvalidState: operación contra una relación que no está en el
	// estado requerido (p.ej. terminar una relación ya ended).
	ErrInvalidState = errors.New("invalid state")
)

// GrantRevoker revoca en cascada los grants de una relación. Lo implementa
// el servicio de grants; acá es interfaz para no crear ciclo de imports.
type GrantRevoker interface {
	RevokeAllForRelationship(ctx context.Context, relationshipID string, at time.Time) (int, error)
}

// AccessCache invalida decisiones cacheadas de un cliente. Puede ser nil.
type AccessCache interface {
	InvalidateClient(ctx context.Context, clientID string)
}

type Service struct {
	repo   Repository
	grants GrantRevoker
	tx     storage.TxManager
	events queue.Publisher // puede ser nil
	cache  AccessCache     // puede ser nil
	log    logger.Logger
	now    func() time.Time
}

// Options agrupa colaboradores opcionales (mismo criterio que router.Options).
type Options struct {
	Events queue.Publisher
	Cache  AccessCache
	Log    logger.Logger
}

func NewService(repo Repository, grants GrantRevoker, tx storage.TxManager, opts Options) *Service {
	l := opts.Log
	if l == nil {
		l = logger.Nop()
	}
	return &Service{
		repo:   repo,
		grants: grants,
		tx:     tx,
		events: opts.Events,
		cache:  opts.Cache,
		log:    l,
		now:    time.Now,
	}
}

// GetByID expone la relación solo a sus partes (o admin).
func (s *Service) GetByID(ctx context.Context, claims auth.Claims, id string) (Relationship, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Relationship{}, ErrInvalidInput
	}

	rel, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Relationship{}, ErrNotFound
	}
	if !claims.Admin && !rel.Party(claims.UserID) {
		return Relationship{}, ErrForbidden
	}
	return rel, nil
}

// ListForProfessional devuelve las relaciones activas del caller como
// profesional. Nunca incluye pending ni ended.
func (s *Service) ListForProfessional(ctx context.Context, claims auth.Claims) ([]Relationship, error) {
	if strings.TrimSpace(claims.UserID) == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListActiveByProfessional(ctx, claims.UserID)
}

// ListForClient devuelve todas las relaciones del caller como cliente
// (incluye ended, para que la UI muestre historial).
func (s *Service) ListForClient(ctx context.Context, claims auth.Claims) ([]Relationship, error) {
	if strings.TrimSpace(claims.UserID) == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByClient(ctx, claims.UserID)
}

// End termina una relación activa. Cualquiera de las dos partes puede.
// En la misma transacción se revocan todos los grants otorgados: una
// relación nunca queda ended con grants activos visibles.
func (s *Service) End(ctx context.Context, claims auth.Claims, id string) (Relationship, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Relationship{}, ErrInvalidInput
	}

	rel, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Relationship{}, ErrNotFound
	}
	if !claims.Admin && !rel.Party(claims.UserID) {
		return Relationship{}, ErrForbidden
	}
	if rel.Status != StatusActive {
		return Relationship{}, ErrInvalidState
	}

	now := s.now().UTC()
	var revoked int

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		// compare-and-set: si otra request la terminó primero, falla acá
		if err := s.repo.End(ctx, rel.ID, now); err != nil {
			return err
		}
		n, err := s.grants.RevokeAllForRelationship(ctx, rel.ID, now)
		if err != nil {
			return err
		}
		revoked = n
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidState) {
			return Relationship{}, ErrInvalidState
		}
		return Relationship{}, err
	}

	rel.Status = StatusEnded
	rel.EndedAt = &now

	if s.cache != nil && rel.ClientID != "" {
		s.cache.InvalidateClient(ctx, rel.ClientID)
	}
	if s.events != nil {
		endedBy := "client"
		if claims.UserID == rel.ProfessionalID {
			endedBy = "professional"
		} else if claims.Admin && !rel.Party(claims.UserID) {
			endedBy = "admin"
		}
		if err := s.events.PublishRelationshipEnded(ctx, queue.RelationshipEndedEvent{
			RelationshipID: rel.ID,
			ProfessionalID: rel.ProfessionalID,
			ClientID:       rel.ClientID,
			EndedBy:        endedBy,
			RevokedGrants:  revoked,
			OccurredAt:     now,
		}); err != nil {
			s.log.Warn("publish relationship.ended failed", map[string]any{
				"relationship_id": rel.ID, "err": err.Error(),
			})
		}
	}

	s.log.Info("relationship ended", map[string]any{
		"relationship_id": rel.ID, "revoked_grants": revoked,
	})
	return rel, nil
}
