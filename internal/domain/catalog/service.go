package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"pro-client-access/internal/ports/auth"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrDisabled     = errors.New("permission disabled")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type CreateInput struct {
	Slug                 string
	Category             Category
	Type                 PermissionType
	Exclusive            bool
	RequiresVerification bool
}

// Create agrega una definición al catálogo. Solo admins.
func (s *Service) Create(ctx context.Context, claims auth.Claims, in CreateInput) (Definition, error) {
	if !claims.Admin {
		return Definition{}, ErrForbidden
	}

	slug := strings.TrimSpace(in.Slug)
	if slug == "" || !ValidCategory(in.Category) || !ValidPermissionType(in.Type) {
		return Definition{}, ErrInvalidInput
	}
	if _, err := s.repo.GetBySlug(ctx, slug); err == nil {
		// ya existe: el catálogo no duplica slugs
		return Definition{}, ErrInvalidInput
	}

	now := s.now().UTC()
	d := Definition{
		Slug:                 slug,
		Category:             in.Category,
		Type:                 in.Type,
		Exclusive:            in.Exclusive,
		Enabled:              true,
		RequiresVerification: in.RequiresVerification,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.repo.Save(ctx, d); err != nil {
		return Definition{}, err
	}
	return d, nil
}

// SetEnabled es el kill switch. Las definiciones nunca se borran.
func (s *Service) SetEnabled(ctx context.Context, claims auth.Claims, slug string, enabled bool) (Definition, error) {
	if !claims.Admin {
		return Definition{}, ErrForbidden
	}

	d, err := s.repo.GetBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return Definition{}, ErrNotFound
	}
	if d.Enabled == enabled {
		return d, nil
	}

	d.Enabled = enabled
	d.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, d); err != nil {
		return Definition{}, err
	}
	return d, nil
}

func (s *Service) List(ctx context.Context) ([]Definition, error) {
	return s.repo.List(ctx)
}

// Definition busca un slug sin filtrar por enabled; el caller decide.
func (s *Service) Definition(ctx context.Context, slug string) (Definition, error) {
	d, err := s.repo.GetBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return Definition{}, ErrNotFound
	}
	return d, nil
}

// ReadSlugs devuelve los slugs read habilitados de una categoría.
func (s *Service) ReadSlugs(ctx context.Context, c Category) ([]string, error) {
	defs, err := s.repo.ListEnabledByCategory(ctx, c, TypeRead)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.Slug)
	}
	return out, nil
}
