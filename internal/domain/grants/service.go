package grants

import (
	"context"
	"errors"
	"strings"
	"time"

	"pro-client-access/internal/domain/catalog"
	"pro-client-access/internal/domain/relationships"
	"pro-client-access/internal/platform/logger"
	"pro-client-access/internal/ports/auth"
	"pro-client-access/internal/queue"
	"pro-client-access/internal/storage"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")

	ErrUnknownPermission  = errors.New("unknown permission")
	ErrPermissionDisabled = errors.New("permission disabled")

	// ErrExclusivityConflict: otro profesional activo ya tiene el grant
	// exclusivo y el caller no pidió desplazamiento.
	ErrExclusivityConflict = errors.New("exclusivity conflict")

	ErrVerificationRequired = errors.New("professional verification required")
)

// RelationshipReader es lo mínimo que grants necesita de relationships.
type RelationshipReader interface {
	GetByID(ctx context.Context, id string) (relationships.Relationship, error)
}

// Catalog resuelve definiciones (lo implementa catalog.Service).
type Catalog interface {
	Definition(ctx context.Context, slug string) (catalog.Definition, error)
}

// AccessCache invalida decisiones cacheadas de un cliente. Puede ser nil.
type AccessCache interface {
	InvalidateClient(ctx context.Context, clientID string)
}

type Service struct {
	repo    Repository
	rels    RelationshipReader
	catalog Catalog
	tx      storage.TxManager
	events  queue.Publisher // puede ser nil
	cache   AccessCache     // puede ser nil
	log     logger.Logger
	now     func() time.Time
}

type Options struct {
	Events queue.Publisher
	Cache  AccessCache
	Log    logger.Logger
}

func NewService(repo Repository, rels RelationshipReader, cat Catalog, tx storage.TxManager, opts Options) *Service {
	l := opts.Log
	if l == nil {
		l = logger.Nop()
	}
	return &Service{
		repo:    repo,
		rels:    rels,
		catalog: cat,
		tx:      tx,
		events:  opts.Events,
		cache:   opts.Cache,
		log:     l,
		now:     time.Now,
	}
}

// Grant otorga un permiso sobre una relación activa. Para slugs
// exclusivos la arbitración corre adentro de la transacción: o falla con
// ErrExclusivityConflict, o (con displace) revoca al holder anterior y
// otorga al nuevo como un swap atómico — nunca dos commits separados.
func (s *Service) Grant(ctx context.Context, claims auth.Claims, relationshipID, slug string, displace bool) (ClientPermission, error) {
	rel, def, err := s.resolveGrantTarget(ctx, relationshipID, slug)
	if err != nil {
		return ClientPermission{}, err
	}

	// El grant lo resuelve el cliente dueño de los datos (o un admin).
	grantedBy := ByClient
	if claims.UserID != rel.ClientID {
		if !claims.Admin {
			return ClientPermission{}, ErrForbidden
		}
		grantedBy = ByAdmin
	}

	now := s.now().UTC()
	var cp ClientPermission
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		cp, err = s.grantLocked(ctx, rel, def, grantedBy, displace, now)
		return err
	})
	if err != nil {
		return ClientPermission{}, err
	}

	s.afterGrantChange(ctx, rel, slug, string(StatusGranted), grantedBy, now)
	return cp, nil
}

// Revoke es idempotente: revocar algo no otorgado es éxito sin efecto.
func (s *Service) Revoke(ctx context.Context, claims auth.Claims, relationshipID, slug string) error {
	relationshipID = strings.TrimSpace(relationshipID)
	slug = strings.TrimSpace(slug)
	if relationshipID == "" || slug == "" {
		return ErrInvalidInput
	}

	rel, err := s.rels.GetByID(ctx, relationshipID)
	if err != nil {
		return ErrNotFound
	}
	if !claims.Admin && !rel.Party(claims.UserID) {
		return ErrForbidden
	}

	now := s.now().UTC()
	changed := false
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		cp, err := s.repo.Get(ctx, relationshipID, slug)
		if err != nil {
			// no-op solo cuando nunca se otorgó; un error transitorio del
			// repo tiene que llegar al caller, no disfrazarse de éxito
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return err
		}
		if cp.Status == StatusRevoked {
			return nil
		}
		cp.Status = StatusRevoked
		cp.RevokedAt = &now
		cp.UpdatedAt = now
		changed = true
		return s.repo.Upsert(ctx, cp)
	})
	if err != nil {
		return err
	}

	if changed {
		s.afterGrantChange(ctx, rel, slug, string(StatusRevoked), claims.UserID, now)
	}
	return nil
}

// RevokeAllForRelationship corre dentro de la transacción del caller
// (relationships.End): la relación nunca queda ended con grants activos.
func (s *Service) RevokeAllForRelationship(ctx context.Context, relationshipID string, at time.Time) (int, error) {
	granted, err := s.repo.ListGranted(ctx, relationshipID)
	if err != nil {
		return 0, err
	}
	for i := range granted {
		cp := granted[i]
		cp.Status = StatusRevoked
		cp.RevokedAt = &at
		cp.UpdatedAt = at
		if err := s.repo.Upsert(ctx, cp); err != nil {
			return 0, err
		}
	}
	return len(granted), nil
}

// ListByRelationship expone el ledger a las partes de la relación.
func (s *Service) ListByRelationship(ctx context.Context, claims auth.Claims, relationshipID string) ([]ClientPermission, error) {
	rel, err := s.rels.GetByID(ctx, strings.TrimSpace(relationshipID))
	if err != nil {
		return nil, ErrNotFound
	}
	if !claims.Admin && !rel.Party(claims.UserID) {
		return nil, ErrForbidden
	}
	return s.repo.ListByRelationship(ctx, rel.ID)
}

// RequestPermission: pedido del profesional sobre una relación ya activa.
func (s *Service) RequestPermission(ctx context.Context, claims auth.Claims, relationshipID, slug, notes string) (PermissionRequest, error) {
	rel, def, err := s.resolveGrantTarget(ctx, relationshipID, slug)
	if err != nil {
		return PermissionRequest{}, err
	}
	if claims.UserID != rel.ProfessionalID && !claims.Admin {
		return PermissionRequest{}, ErrForbidden
	}
	if def.RequiresVerification && !claims.Verified && !claims.Admin {
		return PermissionRequest{}, ErrVerificationRequired
	}

	// pedir algo ya otorgado o ya pedido no tiene sentido
	if cp, err := s.repo.Get(ctx, rel.ID, slug); err == nil && cp.Status == StatusGranted {
		return PermissionRequest{}, ErrInvalidState
	}
	if _, err := s.repo.FindPendingRequest(ctx, rel.ID, slug); err == nil {
		return PermissionRequest{}, ErrInvalidState
	}

	now := s.now().UTC()
	pr := PermissionRequest{
		ID:             uuid.NewString(),
		RelationshipID: rel.ID,
		Slug:           slug,
		Notes:          strings.TrimSpace(notes),
		Status:         RequestPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.CreateRequest(ctx, pr); err != nil {
		return PermissionRequest{}, err
	}

	s.log.Info("permission requested", map[string]any{
		"relationship_id": rel.ID, "slug": slug,
	})
	return pr, nil
}

// ApproveRequest: el cliente aprueba un pedido pending. El grant y la
// resolución del pedido comparten transacción.
func (s *Service) ApproveRequest(ctx context.Context, claims auth.Claims, requestID string, displace bool) (ClientPermission, error) {
	pr, err := s.repo.GetRequest(ctx, strings.TrimSpace(requestID))
	if err != nil {
		return ClientPermission{}, ErrNotFound
	}
	if pr.Status != RequestPending {
		return ClientPermission{}, ErrInvalidState
	}

	rel, def, err := s.resolveGrantTarget(ctx, pr.RelationshipID, pr.Slug)
	if err != nil {
		return ClientPermission{}, err
	}
	grantedBy := ByClient
	if claims.UserID != rel.ClientID {
		if !claims.Admin {
			return ClientPermission{}, ErrForbidden
		}
		grantedBy = ByAdmin
	}

	now := s.now().UTC()
	var cp ClientPermission
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		cp, err = s.grantLocked(ctx, rel, def, grantedBy, displace, now)
		if err != nil {
			return err
		}
		pr.Status = RequestApproved
		pr.UpdatedAt = now
		pr.ResolvedAt = &now
		return s.repo.UpdateRequest(ctx, pr)
	})
	if err != nil {
		return ClientPermission{}, err
	}

	s.afterGrantChange(ctx, rel, pr.Slug, string(StatusGranted), grantedBy, now)
	return cp, nil
}

func (s *Service) DenyRequest(ctx context.Context, claims auth.Claims, requestID string) (PermissionRequest, error) {
	pr, err := s.repo.GetRequest(ctx, strings.TrimSpace(requestID))
	if err != nil {
		return PermissionRequest{}, ErrNotFound
	}
	rel, err := s.rels.GetByID(ctx, pr.RelationshipID)
	if err != nil {
		return PermissionRequest{}, ErrNotFound
	}
	if claims.UserID != rel.ClientID && !claims.Admin {
		return PermissionRequest{}, ErrForbidden
	}
	if pr.Status != RequestPending {
		return PermissionRequest{}, ErrInvalidState
	}

	now := s.now().UTC()
	pr.Status = RequestDenied
	pr.UpdatedAt = now
	pr.ResolvedAt = &now
	if err := s.repo.UpdateRequest(ctx, pr); err != nil {
		return PermissionRequest{}, err
	}
	return pr, nil
}

func (s *Service) ListRequests(ctx context.Context, claims auth.Claims, relationshipID string) ([]PermissionRequest, error) {
	rel, err := s.rels.GetByID(ctx, strings.TrimSpace(relationshipID))
	if err != nil {
		return nil, ErrNotFound
	}
	if !claims.Admin && !rel.Party(claims.UserID) {
		return nil, ErrForbidden
	}
	return s.repo.ListRequestsByRelationship(ctx, rel.ID)
}

// FindExclusiveHolder devuelve la relación activa que hoy tiene el grant
// exclusivo del cliente. Es un lookup puro, no una rutina de reparación:
// si la invariante está rota (más de un granted) gana el granted_at más
// reciente y se loguea la violación de integridad — nunca se ignora en
// silencio, nunca se le tira el error al usuario final.
func (s *Service) FindExclusiveHolder(ctx context.Context, clientID, slug string) (relationships.Relationship, error) {
	clientID = strings.TrimSpace(clientID)
	slug = strings.TrimSpace(slug)
	if clientID == "" || slug == "" {
		return relationships.Relationship{}, ErrInvalidInput
	}

	holders, err := s.repo.ExclusiveHolders(ctx, clientID, slug)
	if err != nil {
		return relationships.Relationship{}, err
	}
	if len(holders) == 0 {
		return relationships.Relationship{}, ErrNotFound
	}
	if len(holders) > 1 {
		s.log.Error("exclusivity integrity violation", map[string]any{
			"client_id": clientID,
			"slug":      slug,
			"holders":   len(holders),
			"winner":    holders[0].Relationship.ID,
		})
	}
	return holders[0].Relationship, nil
}

// SeedGrant escribe una fila del ledger durante el canje de invitación
// (corre dentro de la transacción del canje). Implementa invitations.Ledger.
func (s *Service) SeedGrant(ctx context.Context, relationshipID, clientID, slug, grantedBy string, at time.Time, granted bool) error {
	cp := ClientPermission{
		ID:             uuid.NewString(),
		RelationshipID: relationshipID,
		ClientID:       clientID,
		Slug:           slug,
		Status:         StatusPending,
		GrantedBy:      grantedBy,
		CreatedAt:      at,
		UpdatedAt:      at,
	}
	if granted {
		cp.Status = StatusGranted
		cp.GrantedAt = &at
	}
	return s.repo.Upsert(ctx, cp)
}

// ExclusiveHeldByOther implementa invitations.Ledger.
func (s *Service) ExclusiveHeldByOther(ctx context.Context, clientID, slug, excludeRelationshipID string) (bool, error) {
	holders, err := s.repo.ExclusiveHolders(ctx, clientID, slug)
	if err != nil {
		return false, err
	}
	for _, h := range holders {
		if h.Permission.RelationshipID != excludeRelationshipID {
			return true, nil
		}
	}
	return false, nil
}

// grantLocked es el núcleo del otorgamiento; siempre corre con la
// transacción en el ctx (las filas exclusivas quedan bloqueadas).
func (s *Service) grantLocked(ctx context.Context, rel relationships.Relationship, def catalog.Definition, grantedBy string, displace bool, now time.Time) (ClientPermission, error) {
	if def.Exclusive {
		holders, err := s.repo.ExclusiveHolders(ctx, rel.ClientID, def.Slug)
		if err != nil {
			return ClientPermission{}, err
		}
		for _, h := range holders {
			if h.Permission.RelationshipID == rel.ID {
				continue
			}
			if !displace {
				return ClientPermission{}, ErrExclusivityConflict
			}
			// swap atómico: el holder anterior cae en el mismo commit
			prev := h.Permission
			prev.Status = StatusRevoked
			prev.RevokedAt = &now
			prev.UpdatedAt = now
			if err := s.repo.Upsert(ctx, prev); err != nil {
				return ClientPermission{}, err
			}
		}
	}

	cp, err := s.repo.Get(ctx, rel.ID, def.Slug)
	if err != nil {
		cp = ClientPermission{
			ID:             uuid.NewString(),
			RelationshipID: rel.ID,
			ClientID:       rel.ClientID,
			Slug:           def.Slug,
			CreatedAt:      now,
		}
	}
	cp.Status = StatusGranted
	cp.GrantedBy = grantedBy
	cp.GrantedAt = &now
	cp.RevokedAt = nil
	cp.UpdatedAt = now

	if err := s.repo.Upsert(ctx, cp); err != nil {
		return ClientPermission{}, err
	}
	return cp, nil
}

func (s *Service) resolveGrantTarget(ctx context.Context, relationshipID, slug string) (relationships.Relationship, catalog.Definition, error) {
	relationshipID = strings.TrimSpace(relationshipID)
	slug = strings.TrimSpace(slug)
	if relationshipID == "" || slug == "" {
		return relationships.Relationship{}, catalog.Definition{}, ErrInvalidInput
	}

	rel, err := s.rels.GetByID(ctx, relationshipID)
	if err != nil {
		return relationships.Relationship{}, catalog.Definition{}, ErrNotFound
	}
	if rel.Status != relationships.StatusActive {
		return relationships.Relationship{}, catalog.Definition{}, ErrInvalidState
	}

	def, err := s.catalog.Definition(ctx, slug)
	if err != nil {
		return relationships.Relationship{}, catalog.Definition{}, ErrUnknownPermission
	}
	if !def.Enabled {
		return relationships.Relationship{}, catalog.Definition{}, ErrPermissionDisabled
	}
	return rel, def, nil
}

func (s *Service) afterGrantChange(ctx context.Context, rel relationships.Relationship, slug, status, changedBy string, at time.Time) {
	if s.cache != nil && rel.ClientID != "" {
		s.cache.InvalidateClient(ctx, rel.ClientID)
	}
	if s.events != nil {
		if err := s.events.PublishGrantChanged(ctx, queue.GrantChangedEvent{
			RelationshipID: rel.ID,
			ClientID:       rel.ClientID,
			Slug:           slug,
			Status:         status,
			ChangedBy:      changedBy,
			OccurredAt:     at,
		}); err != nil {
			s.log.Warn("publish grant.changed failed", map[string]any{
				"relationship_id": rel.ID, "slug": slug, "err": err.Error(),
			})
		}
	}
}
