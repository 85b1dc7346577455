package invitations

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
	ErrInvalidRole  = errors.New("invalid role type")

	// ErrDuplicateRelationship: ya existe una relación no-ended del
	// profesional con ese email (al emitir) o con ese cliente (al canjear).
	ErrDuplicateRelationship = errors.New("duplicate relationship")

	ErrUnknownPermission  = errors.New("unknown permission")
	ErrPermissionDisabled = errors.New("permission disabled")

	// ErrRedundantPermission: el slug ya viene en el bundle del rol;
	// pedirlo explícito sería un ask redundante para el cliente.
	ErrRedundantPermission = errors.New("permission already implied by role")

	ErrVerificationRequired = errors.New("professional verification required")

	ErrTokenNotFound   = errors.New("token not found")
	ErrExpired         = errors.New("invitation expired")
	ErrEmailMismatch   = errors.New("email mismatch")
	ErrAlreadyAccepted = errors.New("invitation already accepted")
)

// Catalog resuelve definiciones de permisos (lo implementa catalog.Service).
type Catalog interface {
	Definition(ctx context.Context, slug string) (catalog.Definition, error)
}

// Ledger escribe filas del grant ledger durante el canje. Lo implementa el
// servicio de grants; interfaz local para no acoplar los paquetes.
type Ledger interface {
	SeedGrant(ctx context.Context, relationshipID, clientID, slug, grantedBy string, at time.Time, granted bool) error
	ExclusiveHeldByOther(ctx context.Context, clientID, slug, excludeRelationshipID string) (bool, error)
}

// AccessCache invalida decisiones cacheadas de un cliente. Puede ser nil.
type AccessCache interface {
	InvalidateClient(ctx context.Context, clientID string)
}

type Service struct {
	repo    Repository
	rels    relationships.Repository
	ledger  Ledger
	catalog Catalog
	tx      storage.TxManager
	events  queue.Publisher // puede ser nil
	cache   AccessCache     // puede ser nil
	log     logger.Logger
	ttl     time.Duration
	now     func() time.Time
}

type Options struct {
	Events queue.Publisher
	Cache  AccessCache
	Log    logger.Logger
	TTL    time.Duration
}

func NewService(repo Repository, rels relationships.Repository, ledger Ledger, cat Catalog, tx storage.TxManager, opts Options) *Service {
	l := opts.Log
	if l == nil {
		l = logger.Nop()
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		repo:    repo,
		rels:    rels,
		ledger:  ledger,
		catalog: cat,
		tx:      tx,
		events:  opts.Events,
		cache:   opts.Cache,
		log:     l,
		ttl:     ttl,
		now:     time.Now,
	}
}

type CreateInput struct {
	Email string
	Role  catalog.RoleType
	// Slugs extra fuera del bundle del rol que el cliente deberá aprobar.
	Slugs []string
}

type Created struct {
	Invitation Invitation
	// Token crudo: se devuelve una única vez, nunca más recuperable.
	Token string
}

// CreateInvitation emite el token y crea atómicamente la relación pending.
func (s *Service) CreateInvitation(ctx context.Context, claims auth.Claims, in CreateInput) (Created, error) {
	proID := strings.TrimSpace(claims.UserID)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if proID == "" {
		return Created{}, ErrInvalidInput
	}
	if email == "" || !strings.Contains(email, "@") {
		return Created{}, ErrInvalidInput
	}
	if !catalog.ValidRole(in.Role) {
		return Created{}, ErrInvalidRole
	}

	// Unicidad: una sola relación no-ended por par (profesional, email).
	if _, err := s.rels.FindOpenByEmail(ctx, proID, email); err == nil {
		return Created{}, ErrDuplicateRelationship
	}

	slugs, err := s.validateExtraSlugs(ctx, claims, in.Role, in.Slugs)
	if err != nil {
		return Created{}, err
	}

	raw, hash, err := NewToken()
	if err != nil {
		return Created{}, err
	}

	now := s.now().UTC()
	rel := relationships.Relationship{
		ID:             uuid.NewString(),
		ProfessionalID: proID,
		ClientEmail:    email,
		Role:           in.Role,
		Status:         relationships.StatusPending,
		InvitedAt:      now,
	}
	inv := Invitation{
		ID:             uuid.NewString(),
		ProfessionalID: proID,
		RelationshipID: rel.ID,
		Email:          email,
		Role:           in.Role,
		TokenHash:      hash,
		Status:         StatusPending,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.ttl),
	}
	perms := make([]RequestedPermission, 0, len(slugs))
	for _, slug := range slugs {
		perms = append(perms, RequestedPermission{
			InvitationID: inv.ID,
			Slug:         slug,
			RequestedBy:  proID,
		})
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.rels.Create(ctx, rel); err != nil {
			return err
		}
		return s.repo.Create(ctx, inv, perms)
	})
	if err != nil {
		return Created{}, err
	}

	s.log.Info("invitation created", map[string]any{
		"invitation_id": inv.ID, "professional_id": proID, "role": string(in.Role),
	})
	return Created{Invitation: inv, Token: raw}, nil
}

// RedeemInvitation canjea el token. Todo o nada: relación activa,
// invitación aceptada y grants escritos en una sola transacción.
func (s *Service) RedeemInvitation(ctx context.Context, claims auth.Claims, rawToken string) (relationships.Relationship, error) {
	clientID := strings.TrimSpace(claims.UserID)
	if clientID == "" || strings.TrimSpace(rawToken) == "" {
		return relationships.Relationship{}, ErrInvalidInput
	}

	inv, err := s.repo.GetByTokenHash(ctx, HashToken(rawToken))
	if err != nil {
		return relationships.Relationship{}, ErrTokenNotFound
	}

	switch inv.Status {
	case StatusAccepted:
		return relationships.Relationship{}, ErrAlreadyAccepted
	case StatusExpired:
		return relationships.Relationship{}, ErrExpired
	}

	now := s.now().UTC()

	// Expiración lazy: al detectarla acá se flipea el status y se borra
	// la relación pending (como si nunca hubiera existido).
	if inv.ExpiredAt(now) {
		if err := s.expireOne(ctx, inv); err != nil {
			s.log.Warn("lazy expire failed", map[string]any{
				"invitation_id": inv.ID, "err": err.Error(),
			})
		}
		return relationships.Relationship{}, ErrExpired
	}

	if !strings.EqualFold(strings.TrimSpace(claims.Email), inv.Email) {
		return relationships.Relationship{}, ErrEmailMismatch
	}

	rel, err := s.rels.GetByID(ctx, inv.RelationshipID)
	if err != nil {
		return relationships.Relationship{}, ErrTokenNotFound
	}
	if rel.Status != relationships.StatusPending {
		return relationships.Relationship{}, ErrAlreadyAccepted
	}

	requested, err := s.repo.ListRequested(ctx, inv.ID)
	if err != nil {
		return relationships.Relationship{}, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		// Unicidad por par: el mismo cliente pudo recibir invitaciones del
		// mismo profesional a dos emails distintos; el check por email de
		// la emisión no alcanza. Corre antes de cualquier escritura (el
		// TxManager de memoria no hace rollback).
		if _, err := s.rels.FindActiveBetween(ctx, rel.ProfessionalID, clientID); err == nil {
			return ErrDuplicateRelationship
		}
		// CAS sobre pending: el segundo submit del mismo token pierde acá.
		if err := s.repo.MarkAccepted(ctx, inv.ID, now); err != nil {
			return err
		}
		if err := s.rels.Activate(ctx, rel.ID, clientID, now); err != nil {
			return err
		}
		return s.seedGrants(ctx, rel, inv, requested, clientID, now)
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyAccepted) || errors.Is(err, relationships.ErrInvalidState) {
			return relationships.Relationship{}, ErrAlreadyAccepted
		}
		return relationships.Relationship{}, err
	}

	rel.Status = relationships.StatusActive
	rel.ClientID = clientID
	rel.AcceptedAt = &now

	if s.cache != nil {
		s.cache.InvalidateClient(ctx, clientID)
	}
	if s.events != nil {
		if err := s.events.PublishRelationshipActivated(ctx, queue.RelationshipActivatedEvent{
			RelationshipID: rel.ID,
			ProfessionalID: rel.ProfessionalID,
			ClientID:       clientID,
			Role:           string(rel.Role),
			OccurredAt:     now,
		}); err != nil {
			s.log.Warn("publish relationship.activated failed", map[string]any{
				"relationship_id": rel.ID, "err": err.Error(),
			})
		}
	}

	s.log.Info("invitation redeemed", map[string]any{
		"invitation_id": inv.ID, "relationship_id": rel.ID,
	})
	return rel, nil
}

// ExpireStale flipea invitaciones pending vencidas. Best-effort: la
// corrección no depende de este sweep (el canje expira lazy igual).
func (s *Service) ExpireStale(ctx context.Context, limit int) int {
	if limit <= 0 {
		limit = 100
	}
	stale, err := s.repo.ListStalePending(ctx, s.now().UTC(), limit)
	if err != nil {
		s.log.Warn("stale sweep list failed", map[string]any{"err": err.Error()})
		return 0
	}

	expired := 0
	for _, inv := range stale {
		if err := s.expireOne(ctx, inv); err != nil {
			s.log.Warn("stale sweep expire failed", map[string]any{
				"invitation_id": inv.ID, "err": err.Error(),
			})
			continue
		}
		expired++
	}
	if expired > 0 {
		s.log.Info("stale invitations expired", map[string]any{"count": expired})
	}
	return expired
}

func (s *Service) expireOne(ctx context.Context, inv Invitation) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repo.MarkExpired(ctx, inv.ID); err != nil {
			// otra request la flipeó primero; nada que hacer
			if errors.Is(err, ErrAlreadyAccepted) {
				return nil
			}
			return err
		}
		return s.rels.Delete(ctx, inv.RelationshipID)
	})
}

func (s *Service) seedGrants(ctx context.Context, rel relationships.Relationship, inv Invitation, requested []RequestedPermission, clientID string, now time.Time) error {
	slugs := catalog.DefaultBundle(rel.Role)
	for _, p := range requested {
		slugs = append(slugs, p.Slug)
	}

	seen := make(map[string]struct{}, len(slugs))
	for _, slug := range slugs {
		if _, ok := seen[slug]; ok {
			continue
		}
		seen[slug] = struct{}{}

		def, err := s.catalog.Definition(ctx, slug)
		if err != nil || !def.Enabled {
			// deshabilitado después de emitir la invitación: el kill
			// switch del catálogo gana, no se otorga
			s.log.Warn("skipping disabled permission on redeem", map[string]any{
				"invitation_id": inv.ID, "slug": slug,
			})
			continue
		}

		granted := true
		if def.Exclusive {
			held, err := s.ledger.ExclusiveHeldByOther(ctx, clientID, slug, rel.ID)
			if err != nil {
				return err
			}
			// otro profesional ya lo tiene: queda pending, sin
			// desplazamiento silencioso en el canje
			if held {
				granted = false
			}
		}
		if err := s.ledger.SeedGrant(ctx, rel.ID, clientID, slug, "client", now, granted); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) validateExtraSlugs(ctx context.Context, claims auth.Claims, role catalog.RoleType, in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))

	for _, raw := range in {
		slug := strings.TrimSpace(raw)
		if slug == "" {
			continue
		}
		if _, ok := seen[slug]; ok {
			continue
		}
		seen[slug] = struct{}{}

		def, err := s.catalog.Definition(ctx, slug)
		if err != nil {
			return nil, ErrUnknownPermission
		}
		if !def.Enabled {
			return nil, ErrPermissionDisabled
		}
		if catalog.InDefaultBundle(role, slug) {
			return nil, ErrRedundantPermission
		}
		if def.RequiresVerification && !claims.Verified && !claims.Admin {
			return nil, ErrVerificationRequired
		}
		out = append(out, slug)
	}
	return out, nil
}
