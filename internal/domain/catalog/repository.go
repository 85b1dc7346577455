package catalog

import "context"

type Repository interface {
	// Save hace upsert por slug.
	Save(ctx context.Context, d Definition) error
	GetBySlug(ctx context.Context, slug string) (Definition, error)
	List(ctx context.Context) ([]Definition, error)
	// ListEnabledByCategory devuelve solo definiciones habilitadas.
	ListEnabledByCategory(ctx context.Context, c Category, t PermissionType) ([]Definition, error)
}
