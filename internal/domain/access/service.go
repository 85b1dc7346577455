// Package access es la superficie de consulta que consume el resto de la
// aplicación: ¿puede el profesional P ver el dominio D del cliente C?
// Nunca muta estado y nunca expone relaciones que no estén activas.
package access

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pro-client-access/internal/domain/catalog"
	"pro-client-access/internal/domain/relationships"
	"pro-client-access/internal/platform/logger"
	"pro-client-access/internal/ports/auth"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

type RelationshipReader interface {
	FindActiveBetween(ctx context.Context, professionalID, clientID string) (relationships.Relationship, error)
	ListActiveByProfessional(ctx context.Context, professionalID string) ([]relationships.Relationship, error)
}

type GrantReader interface {
	AnyGranted(ctx context.Context, relationshipID string, slugs []string) (bool, error)
}

type Catalog interface {
	ReadSlugs(ctx context.Context, c catalog.Category) ([]string, error)
}

// HolderFinder es el resolver de exclusividad (lo implementa grants.Service).
type HolderFinder interface {
	FindExclusiveHolder(ctx context.Context, clientID, slug string) (relationships.Relationship, error)
}

// DecisionCache cachea decisiones booleanas con TTL corto. Puede ser nil:
// este path es read-hot (se consulta en casi todos los dashboards).
type DecisionCache interface {
	GetDecision(ctx context.Context, key string) (allowed bool, ok bool)
	SetDecision(ctx context.Context, key string, allowed bool)
}

type Service struct {
	rels    RelationshipReader
	grants  GrantReader
	catalog Catalog
	holders HolderFinder
	cache   DecisionCache // puede ser nil
	log     logger.Logger
}

type Options struct {
	Cache DecisionCache
	Log   logger.Logger
}

func NewService(rels RelationshipReader, grants GrantReader, cat Catalog, holders HolderFinder, opts Options) *Service {
	l := opts.Log
	if l == nil {
		l = logger.Nop()
	}
	return &Service{
		rels:    rels,
		grants:  grants,
		catalog: cat,
		holders: holders,
		cache:   opts.Cache,
		log:     l,
	}
}

// CanView decide si el profesional puede leer la categoría del cliente.
// requiredRole filtra además por tipo de relación ("" = cualquiera).
func (s *Service) CanView(ctx context.Context, professionalID, clientID string, cat catalog.Category, requiredRole catalog.RoleType) (bool, error) {
	professionalID = strings.TrimSpace(professionalID)
	clientID = strings.TrimSpace(clientID)
	if professionalID == "" || clientID == "" || !catalog.ValidCategory(cat) {
		return false, ErrInvalidInput
	}
	if requiredRole != "" && !catalog.ValidRole(requiredRole) {
		return false, ErrInvalidInput
	}

	// la key arranca con el clientID para poder invalidar por cliente
	key := fmt.Sprintf("%s:%s:%s:%s", clientID, professionalID, cat, requiredRole)
	if s.cache != nil {
		if allowed, ok := s.cache.GetDecision(ctx, key); ok {
			return allowed, nil
		}
	}

	allowed, err := s.canView(ctx, professionalID, clientID, cat, requiredRole)
	if err != nil {
		return false, err
	}
	if s.cache != nil {
		s.cache.SetDecision(ctx, key, allowed)
	}
	return allowed, nil
}

func (s *Service) canView(ctx context.Context, professionalID, clientID string, cat catalog.Category, requiredRole catalog.RoleType) (bool, error) {
	rel, err := s.rels.FindActiveBetween(ctx, professionalID, clientID)
	if err != nil {
		return false, nil // sin relación activa no hay acceso, no es error
	}
	if requiredRole != "" && rel.Role != requiredRole {
		return false, nil
	}
	if catalog.DefaultVisible(cat) {
		return true, nil
	}

	slugs, err := s.catalog.ReadSlugs(ctx, cat)
	if err != nil {
		return false, err
	}
	if len(slugs) == 0 {
		return false, nil
	}
	return s.grants.AnyGranted(ctx, rel.ID, slugs)
}

// AccessibleClients enumera los clientes visibles del profesional para
// scopear listados. Jamás incluye relaciones pending ni ended.
func (s *Service) AccessibleClients(ctx context.Context, professionalID string, requiredRole catalog.RoleType) ([]string, error) {
	professionalID = strings.TrimSpace(professionalID)
	if professionalID == "" {
		return nil, ErrInvalidInput
	}
	if requiredRole != "" && !catalog.ValidRole(requiredRole) {
		return nil, ErrInvalidInput
	}

	rels, err := s.rels.ListActiveByProfessional(ctx, professionalID)
	if err != nil {
		return nil, err
	}

	// es un set: un cliente con más de una relación activa sale una vez
	out := make([]string, 0, len(rels))
	seen := make(map[string]struct{}, len(rels))
	for _, rel := range rels {
		if rel.Status != relationships.StatusActive || rel.ClientID == "" {
			continue
		}
		if requiredRole != "" && rel.Role != requiredRole {
			continue
		}
		if _, ok := seen[rel.ClientID]; ok {
			continue
		}
		seen[rel.ClientID] = struct{}{}
		out = append(out, rel.ClientID)
	}
	return out, nil
}

// ExclusiveHolder responde "quién maneja hoy este permiso exclusivo del
// cliente". Lo puede preguntar el propio cliente, un admin, o un
// profesional con relación activa con ese cliente.
func (s *Service) ExclusiveHolder(ctx context.Context, claims auth.Claims, clientID, slug string) (relationships.Relationship, error) {
	clientID = strings.TrimSpace(clientID)
	slug = strings.TrimSpace(slug)
	if clientID == "" || slug == "" {
		return relationships.Relationship{}, ErrInvalidInput
	}

	if claims.UserID != clientID && !claims.Admin {
		if _, err := s.rels.FindActiveBetween(ctx, claims.UserID, clientID); err != nil {
			return relationships.Relationship{}, ErrForbidden
		}
	}

	rel, err := s.holders.FindExclusiveHolder(ctx, clientID, slug)
	if err != nil {
		return relationships.Relationship{}, ErrNotFound
	}
	return rel, nil
}
