package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"pro-client-access/internal/domain/catalog"
)

type CatalogRepo struct {
	db *sql.DB
}

func NewCatalogRepo(db *sql.DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

func (r *CatalogRepo) Save(ctx context.Context, d catalog.Definition) error {
	_, err := q(ctx, r.db).ExecContext(ctx, `
		INSERT INTO permission_definitions (
			slug, category, type, exclusive, enabled, requires_verification,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (slug) DO UPDATE SET
			category = EXCLUDED.category,
			type = EXCLUDED.type,
			exclusive = EXCLUDED.exclusive,
			enabled = EXCLUDED.enabled,
			requires_verification = EXCLUDED.requires_verification,
			updated_at = EXCLUDED.updated_at
	`,
		d.Slug,
		string(d.Category),
		string(d.Type),
		d.Exclusive,
		d.Enabled,
		d.RequiresVerification,
		d.CreatedAt,
		d.UpdatedAt,
	)
	return err
}

func (r *CatalogRepo) GetBySlug(ctx context.Context, slug string) (catalog.Definition, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return catalog.Definition{}, catalog.ErrNotFound
	}

	row := q(ctx, r.db).QueryRowContext(ctx, `
		SELECT slug, category, type, exclusive, enabled, requires_verification,
		       created_at, updated_at
		FROM permission_definitions
		WHERE slug = $1
	`, slug)
	return scanDefinition(row)
}

func (r *CatalogRepo) List(ctx context.Context) ([]catalog.Definition, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx, `
		SELECT slug, category, type, exclusive, enabled, requires_verification,
		       created_at, updated_at
		FROM permission_definitions
		ORDER BY slug
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDefinitions(rows)
}

func (r *CatalogRepo) ListEnabledByCategory(ctx context.Context, c catalog.Category, t catalog.PermissionType) ([]catalog.Definition, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx, `
		SELECT slug, category, type, exclusive, enabled, requires_verification,
		       created_at, updated_at
		FROM permission_definitions
		WHERE enabled AND category = $1 AND type = $2
		ORDER BY slug
	`, string(c), string(t))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDefinitions(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDefinition(row rowScanner) (catalog.Definition, error) {
	var d catalog.Definition
	var cat, typ string
	err := row.Scan(
		&d.Slug, &cat, &typ, &d.Exclusive, &d.Enabled, &d.RequiresVerification,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Definition{}, catalog.ErrNotFound
	}
	if err != nil {
		return catalog.Definition{}, err
	}
	d.Category = catalog.Category(cat)
	d.Type = catalog.PermissionType(typ)
	return d, nil
}

func collectDefinitions(rows *sql.Rows) ([]catalog.Definition, error) {
	out := make([]catalog.Definition, 0)
	for rows.Next() {
		d, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
