package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"pro-client-access/internal/domain/catalog"
	"pro-client-access/internal/domain/grants"
	"pro-client-access/internal/domain/relationships"
)

type GrantsRepo struct {
	db *sql.DB
}

func NewGrantsRepo(db *sql.DB) *GrantsRepo {
	return &GrantsRepo{db: db}
}

const permissionCols = `
	id, relationship_id, client_id, slug, status,
	granted_by, granted_at, revoked_at, created_at, updated_at`

func (r *GrantsRepo) Get(ctx context.Context, relationshipID, slug string) (grants.ClientPermission, error) {
	row := q(ctx, r.db).QueryRowContext(ctx, `
		SELECT `+permissionCols+`
		FROM client_permissions
		WHERE relationship_id = $1 AND slug = $2
	`, relationshipID, slug)
	return scanPermission(row)
}

func (r *GrantsRepo) Upsert(ctx context.Context, cp grants.ClientPermission) error {
	_, err := q(ctx, r.db).ExecContext(ctx, `
		INSERT INTO client_permissions (
			id, relationship_id, client_id, slug, status,
			granted_by, granted_at, revoked_at, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (relationship_id, slug) DO UPDATE SET
			client_id = EXCLUDED.client_id,
			status = EXCLUDED.status,
			granted_by = EXCLUDED.granted_by,
			granted_at = EXCLUDED.granted_at,
			revoked_at = EXCLUDED.revoked_at,
			updated_at = EXCLUDED.updated_at
	`,
		cp.ID,
		cp.RelationshipID,
		cp.ClientID,
		cp.Slug,
		string(cp.Status),
		cp.GrantedBy,
		toNullTime(cp.GrantedAt),
		toNullTime(cp.RevokedAt),
		cp.CreatedAt,
		cp.UpdatedAt,
	)
	return err
}

func (r *GrantsRepo) ListByRelationship(ctx context.Context, relationshipID string) ([]grants.ClientPermission, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx, `
		SELECT `+permissionCols+`
		FROM client_permissions
		WHERE relationship_id = $1
		ORDER BY slug
	`, relationshipID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPermissions(rows)
}

func (r *GrantsRepo) ListGranted(ctx context.Context, relationshipID string) ([]grants.ClientPermission, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx, `
		SELECT `+permissionCols+`
		FROM client_permissions
		WHERE relationship_id = $1 AND status = 'granted'
		ORDER BY slug
	`, relationshipID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPermissions(rows)
}

// ExclusiveHolders: filas granted del slug sobre relaciones activas del
// cliente, más reciente primero. Dentro de una transacción toma antes un
// advisory lock transaccional por (cliente, slug). Un FOR UPDATE acá no
// alcanza: con cero holders no hay fila que bloquear, y el perdedor de la
// carrera no vería la fila insertada por el ganador. Con el lock, el
// segundo grant espera el commit del primero y relee estado fresco.
func (r *GrantsRepo) ExclusiveHolders(ctx context.Context, clientID, slug string) ([]grants.Holder, error) {
	if inTx(ctx) {
		if _, err := q(ctx, r.db).ExecContext(ctx,
			`SELECT pg_advisory_xact_lock(hashtext($1))`,
			clientID+"/"+slug,
		); err != nil {
			return nil, err
		}
	}

	query := `
		SELECT cp.id, cp.relationship_id, cp.client_id, cp.slug, cp.status,
		       cp.granted_by, cp.granted_at, cp.revoked_at, cp.created_at, cp.updated_at,
		       r.id, r.professional_id, r.client_id, r.client_email, r.role, r.status,
		       r.invited_at, r.accepted_at, r.ended_at
		FROM client_permissions cp
		JOIN relationships r ON r.id = cp.relationship_id
		WHERE cp.client_id = $1 AND cp.slug = $2
		  AND cp.status = 'granted' AND r.status = 'active'
		ORDER BY cp.granted_at DESC, cp.created_at DESC`

	rows, err := q(ctx, r.db).QueryContext(ctx, query, clientID, slug)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]grants.Holder, 0)
	for rows.Next() {
		var h grants.Holder
		var status string
		var grantedAt, revokedAt sql.NullTime
		var relClientID sql.NullString
		var relRole, relStatus string
		var acceptedAt, endedAt sql.NullTime

		if err := rows.Scan(
			&h.Permission.ID, &h.Permission.RelationshipID, &h.Permission.ClientID,
			&h.Permission.Slug, &status,
			&h.Permission.GrantedBy, &grantedAt, &revokedAt,
			&h.Permission.CreatedAt, &h.Permission.UpdatedAt,
			&h.Relationship.ID, &h.Relationship.ProfessionalID, &relClientID,
			&h.Relationship.ClientEmail, &relRole, &relStatus,
			&h.Relationship.InvitedAt, &acceptedAt, &endedAt,
		); err != nil {
			return nil, err
		}

		h.Permission.Status = grants.Status(status)
		h.Permission.GrantedAt = fromNullTime(grantedAt)
		h.Permission.RevokedAt = fromNullTime(revokedAt)
		h.Relationship.ClientID = relClientID.String
		h.Relationship.Role = catalog.RoleType(relRole)
		h.Relationship.Status = relationships.Status(relStatus)
		h.Relationship.AcceptedAt = fromNullTime(acceptedAt)
		h.Relationship.EndedAt = fromNullTime(endedAt)
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *GrantsRepo) AnyGranted(ctx context.Context, relationshipID string, slugs []string) (bool, error) {
	if len(slugs) == 0 {
		return false, nil
	}

	// placeholders $2..$n para el IN
	args := make([]any, 0, len(slugs)+1)
	args = append(args, relationshipID)
	ph := make([]string, 0, len(slugs))
	for i, slug := range slugs {
		args = append(args, slug)
		ph = append(ph, "$"+strconv.Itoa(i+2))
	}

	var exists bool
	err := q(ctx, r.db).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM client_permissions
			WHERE relationship_id = $1 AND status = 'granted'
			  AND slug IN (`+strings.Join(ph, ",")+`)
		)
	`, args...).Scan(&exists)
	return exists, err
}

func (r *GrantsRepo) CreateRequest(ctx context.Context, pr grants.PermissionRequest) error {
	_, err := q(ctx, r.db).ExecContext(ctx, `
		INSERT INTO permission_requests (
			id, relationship_id, slug, notes, status,
			created_at, updated_at, resolved_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		pr.ID,
		pr.RelationshipID,
		pr.Slug,
		pr.Notes,
		string(pr.Status),
		pr.CreatedAt,
		pr.UpdatedAt,
		toNullTime(pr.ResolvedAt),
	)
	return err
}

func (r *GrantsRepo) GetRequest(ctx context.Context, id string) (grants.PermissionRequest, error) {
	row := q(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, relationship_id, slug, notes, status,
		       created_at, updated_at, resolved_at
		FROM permission_requests
		WHERE id = $1
	`, id)
	return scanRequest(row)
}

func (r *GrantsRepo) UpdateRequest(ctx context.Context, pr grants.PermissionRequest) error {
	res, err := q(ctx, r.db).ExecContext(ctx, `
		UPDATE permission_requests
		SET notes = $2, status = $3, updated_at = $4, resolved_at = $5
		WHERE id = $1
	`,
		pr.ID,
		pr.Notes,
		string(pr.Status),
		pr.UpdatedAt,
		toNullTime(pr.ResolvedAt),
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return grants.ErrNotFound
	}
	return nil
}

func (r *GrantsRepo) ListRequestsByRelationship(ctx context.Context, relationshipID string) ([]grants.PermissionRequest, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx, `
		SELECT id, relationship_id, slug, notes, status,
		       created_at, updated_at, resolved_at
		FROM permission_requests
		WHERE relationship_id = $1
		ORDER BY created_at
	`, relationshipID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]grants.PermissionRequest, 0)
	for rows.Next() {
		pr, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

func (r *GrantsRepo) FindPendingRequest(ctx context.Context, relationshipID, slug string) (grants.PermissionRequest, error) {
	row := q(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, relationship_id, slug, notes, status,
		       created_at, updated_at, resolved_at
		FROM permission_requests
		WHERE relationship_id = $1 AND slug = $2 AND status = 'pending'
		LIMIT 1
	`, relationshipID, slug)
	return scanRequest(row)
}

func scanPermission(row rowScanner) (grants.ClientPermission, error) {
	var cp grants.ClientPermission
	var status string
	var grantedAt, revokedAt sql.NullTime

	err := row.Scan(
		&cp.ID, &cp.RelationshipID, &cp.ClientID, &cp.Slug, &status,
		&cp.GrantedBy, &grantedAt, &revokedAt, &cp.CreatedAt, &cp.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return grants.ClientPermission{}, grants.ErrNotFound
	}
	if err != nil {
		return grants.ClientPermission{}, err
	}

	cp.Status = grants.Status(status)
	cp.GrantedAt = fromNullTime(grantedAt)
	cp.RevokedAt = fromNullTime(revokedAt)
	return cp, nil
}

func collectPermissions(rows *sql.Rows) ([]grants.ClientPermission, error) {
	out := make([]grants.ClientPermission, 0)
	for rows.Next() {
		cp, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, rows.Err()
}

func scanRequest(row rowScanner) (grants.PermissionRequest, error) {
	var pr grants.PermissionRequest
	var status string
	var resolvedAt sql.NullTime

	err := row.Scan(
		&pr.ID, &pr.RelationshipID, &pr.Slug, &pr.Notes, &status,
		&pr.CreatedAt, &pr.UpdatedAt, &resolvedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return grants.PermissionRequest{}, grants.ErrNotFound
	}
	if err != nil {
		return grants.PermissionRequest{}, err
	}

	pr.Status = grants.RequestStatus(status)
	pr.ResolvedAt = fromNullTime(resolvedAt)
	return pr, nil
}
