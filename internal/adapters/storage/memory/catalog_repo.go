package memory

import (
	"context"
	"sort"
	"sync"

	"pro-client-access/internal/domain/catalog"
)

type catalogRepo struct {
	mu     sync.RWMutex
	bySlug map[string]catalog.Definition
}

func NewCatalogRepo() catalog.Repository {
	return &catalogRepo{
		bySlug: make(map[string]catalog.Definition),
	}
}

func (r *catalogRepo) Save(ctx context.Context, d catalog.Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d.Slug == "" {
		return catalog.ErrInvalidInput
	}
	r.bySlug[d.Slug] = d
	return nil
}

func (r *catalogRepo) GetBySlug(ctx context.Context, slug string) (catalog.Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.bySlug[slug]
	if !ok {
		return catalog.Definition{}, catalog.ErrNotFound
	}
	return d, nil
}

func (r *catalogRepo) List(ctx context.Context) ([]catalog.Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]catalog.Definition, 0, len(r.bySlug))
	for _, d := range r.bySlug {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (r *catalogRepo) ListEnabledByCategory(ctx context.Context, c catalog.Category, t catalog.PermissionType) ([]catalog.Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]catalog.Definition, 0)
	for _, d := range r.bySlug {
		if d.Enabled && d.Category == c && d.Type == t {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}
