package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"pro-client-access/internal/domain/catalog"
	"pro-client-access/internal/domain/relationships"
)

type RelationshipsRepo struct {
	db *sql.DB
}

func NewRelationshipsRepo(db *sql.DB) *RelationshipsRepo {
	return &RelationshipsRepo{db: db}
}

const relationshipCols = `
	id, professional_id, client_id, client_email, role, status,
	invited_at, accepted_at, ended_at`

func (r *RelationshipsRepo) Create(ctx context.Context, rel relationships.Relationship) error {
	_, err := q(ctx, r.db).ExecContext(ctx, `
		INSERT INTO relationships (
			id, professional_id, client_id, client_email, role, status,
			invited_at, accepted_at, ended_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		rel.ID,
		rel.ProfessionalID,
		nullString(rel.ClientID),
		rel.ClientEmail,
		string(rel.Role),
		string(rel.Status),
		rel.InvitedAt,
		toNullTime(rel.AcceptedAt),
		toNullTime(rel.EndedAt),
	)
	return err
}

func (r *RelationshipsRepo) GetByID(ctx context.Context, id string) (relationships.Relationship, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return relationships.Relationship{}, relationships.ErrNotFound
	}

	row := q(ctx, r.db).QueryRowContext(ctx, `
		SELECT `+relationshipCols+`
		FROM relationships
		WHERE id = $1
	`, id)
	return scanRelationship(row)
}

func (r *RelationshipsRepo) FindOpenByEmail(ctx context.Context, professionalID, email string) (relationships.Relationship, error) {
	row := q(ctx, r.db).QueryRowContext(ctx, `
		SELECT `+relationshipCols+`
		FROM relationships
		WHERE professional_id = $1
		  AND lower(client_email) = lower($2)
		  AND status <> 'ended'
		LIMIT 1
	`, professionalID, email)
	return scanRelationship(row)
}

func (r *RelationshipsRepo) FindActiveBetween(ctx context.Context, professionalID, clientID string) (relationships.Relationship, error) {
	row := q(ctx, r.db).QueryRowContext(ctx, `
		SELECT `+relationshipCols+`
		FROM relationships
		WHERE professional_id = $1 AND client_id = $2 AND status = 'active'
		LIMIT 1
	`, professionalID, clientID)
	return scanRelationship(row)
}

func (r *RelationshipsRepo) ListActiveByProfessional(ctx context.Context, professionalID string) ([]relationships.Relationship, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx, `
		SELECT `+relationshipCols+`
		FROM relationships
		WHERE professional_id = $1 AND status = 'active'
		ORDER BY accepted_at DESC
	`, professionalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRelationships(rows)
}

func (r *RelationshipsRepo) ListByClient(ctx context.Context, clientID string) ([]relationships.Relationship, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx, `
		SELECT `+relationshipCols+`
		FROM relationships
		WHERE client_id = $1
		ORDER BY invited_at DESC
	`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRelationships(rows)
}

// Activate: el WHERE status='pending' es el compare-and-set. Cero filas
// afectadas significa que otra request activó (o expiró) primero.
func (r *RelationshipsRepo) Activate(ctx context.Context, id, clientID string, at time.Time) error {
	res, err := q(ctx, r.db).ExecContext(ctx, `
		UPDATE relationships
		SET client_id = $2, status = 'active', accepted_at = $3
		WHERE id = $1 AND status = 'pending'
	`, id, clientID, at)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return relationships.ErrInvalidState
	}
	return nil
}

// End: compare-and-set active -> ended.
func (r *RelationshipsRepo) End(ctx context.Context, id string, at time.Time) error {
	res, err := q(ctx, r.db).ExecContext(ctx, `
		UPDATE relationships
		SET status = 'ended', ended_at = $2
		WHERE id = $1 AND status = 'active'
	`, id, at)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return relationships.ErrInvalidState
	}
	return nil
}

func (r *RelationshipsRepo) Delete(ctx context.Context, id string) error {
	_, err := q(ctx, r.db).ExecContext(ctx, `
		DELETE FROM relationships WHERE id = $1 AND status = 'pending'
	`, id)
	return err
}

func scanRelationship(row rowScanner) (relationships.Relationship, error) {
	var rel relationships.Relationship
	var clientID sql.NullString
	var role, status string
	var acceptedAt, endedAt sql.NullTime

	err := row.Scan(
		&rel.ID, &rel.ProfessionalID, &clientID, &rel.ClientEmail,
		&role, &status, &rel.InvitedAt, &acceptedAt, &endedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return relationships.Relationship{}, relationships.ErrNotFound
	}
	if err != nil {
		return relationships.Relationship{}, err
	}

	rel.ClientID = clientID.String
	rel.Role = catalog.RoleType(role)
	rel.Status = relationships.Status(status)
	rel.AcceptedAt = fromNullTime(acceptedAt)
	rel.EndedAt = fromNullTime(endedAt)
	return rel, nil
}

func collectRelationships(rows *sql.Rows) ([]relationships.Relationship, error) {
	out := make([]relationships.Relationship, 0)
	for rows.Next() {
		rel, err := scanRelationship(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
