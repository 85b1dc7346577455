package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"pro-client-access/internal/domain/catalog"
	"pro-client-access/internal/domain/invitations"
)

type InvitationsRepo struct {
	db *sql.DB
}

func NewInvitationsRepo(db *sql.DB) *InvitationsRepo {
	return &InvitationsRepo{db: db}
}

const invitationCols = `
	id, professional_id, relationship_id, email, role, token_hash, status,
	created_at, expires_at, accepted_at`

func (r *InvitationsRepo) Create(ctx context.Context, inv invitations.Invitation, perms []invitations.RequestedPermission) error {
	qr := q(ctx, r.db)
	_, err := qr.ExecContext(ctx, `
		INSERT INTO invitations (
			id, professional_id, relationship_id, email, role, token_hash, status,
			created_at, expires_at, accepted_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		inv.ID,
		inv.ProfessionalID,
		inv.RelationshipID,
		inv.Email,
		string(inv.Role),
		inv.TokenHash,
		string(inv.Status),
		inv.CreatedAt,
		inv.ExpiresAt,
		toNullTime(inv.AcceptedAt),
	)
	if err != nil {
		return err
	}

	for _, p := range perms {
		if _, err := qr.ExecContext(ctx, `
			INSERT INTO invitation_permissions (invitation_id, slug, requested_by)
			VALUES ($1,$2,$3)
		`, p.InvitationID, p.Slug, p.RequestedBy); err != nil {
			return err
		}
	}
	return nil
}

func (r *InvitationsRepo) GetByTokenHash(ctx context.Context, hash string) (invitations.Invitation, error) {
	row := q(ctx, r.db).QueryRowContext(ctx, `
		SELECT `+invitationCols+`
		FROM invitations
		WHERE token_hash = $1
	`, hash)
	return scanInvitation(row)
}

func (r *InvitationsRepo) ListRequested(ctx context.Context, invitationID string) ([]invitations.RequestedPermission, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx, `
		SELECT invitation_id, slug, requested_by
		FROM invitation_permissions
		WHERE invitation_id = $1
		ORDER BY slug
	`, invitationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]invitations.RequestedPermission, 0)
	for rows.Next() {
		var p invitations.RequestedPermission
		if err := rows.Scan(&p.InvitationID, &p.Slug, &p.RequestedBy); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkAccepted: compare-and-set sobre pending. Cero filas afectadas
// significa doble submit del mismo token.
func (r *InvitationsRepo) MarkAccepted(ctx context.Context, id string, at time.Time) error {
	res, err := q(ctx, r.db).ExecContext(ctx, `
		UPDATE invitations
		SET status = 'accepted', accepted_at = $2
		WHERE id = $1 AND status = 'pending'
	`, id, at)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return invitations.ErrAlreadyAccepted
	}
	return nil
}

func (r *InvitationsRepo) MarkExpired(ctx context.Context, id string) error {
	res, err := q(ctx, r.db).ExecContext(ctx, `
		UPDATE invitations
		SET status = 'expired'
		WHERE id = $1 AND status = 'pending'
	`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return invitations.ErrAlreadyAccepted
	}
	return nil
}

func (r *InvitationsRepo) ListStalePending(ctx context.Context, before time.Time, limit int) ([]invitations.Invitation, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx, `
		SELECT `+invitationCols+`
		FROM invitations
		WHERE status = 'pending' AND expires_at < $1
		ORDER BY expires_at
		LIMIT $2
	`, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]invitations.Invitation, 0)
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func scanInvitation(row rowScanner) (invitations.Invitation, error) {
	var inv invitations.Invitation
	var role, status string
	var acceptedAt sql.NullTime

	err := row.Scan(
		&inv.ID, &inv.ProfessionalID, &inv.RelationshipID, &inv.Email,
		&role, &inv.TokenHash, &status,
		&inv.CreatedAt, &inv.ExpiresAt, &acceptedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return invitations.Invitation{}, invitations.ErrTokenNotFound
	}
	if err != nil {
		return invitations.Invitation{}, err
	}

	inv.Role = catalog.RoleType(role)
	inv.Status = invitations.Status(status)
	inv.AcceptedAt = fromNullTime(acceptedAt)
	return inv, nil
}
