package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/tenancy/internal/tenancy/domain"
)

type invitationsRepo struct {
	db dbtx
}

const invitationColumns = `id, org_id, email, role, created_at, accepted_at`

func (r *invitationsRepo) CreateInvitation(ctx context.Context, inv domain.Invitation) error {
	var acceptedAt sql.NullTime
	if inv.AcceptedAt != nil {
		acceptedAt = sql.NullTime{Time: *inv.AcceptedAt, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO invitations (id, org_id, email, role, created_at, accepted_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.OrgID, inv.Email, string(inv.Role), inv.CreatedAt, acceptedAt,
	)
	return mapConstraint(err)
}

func (r *invitationsRepo) GetInvitationByID(
	ctx context.Context,
	id string,
) (domain.Invitation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE id = ?`, id)

	inv, err := scanInvitation(row)
	if err != nil {
		return domain.Invitation{}, mapNotFound(err)
	}
	return inv, nil
}

func (r *invitationsRepo) GetInvitationsByEmail(
	ctx context.Context,
	email string,
) ([]domain.Invitation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE email = ? ORDER BY created_at, id`,
		email,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invs []domain.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invs = append(invs, inv)
	}
	return invs, rows.Err()
}

// MarkInvitationAccepted sets accepted_at once; a second call finds the
// marker already set and changes nothing.
func (r *invitationsRepo) MarkInvitationAccepted(
	ctx context.Context,
	id string,
	at time.Time,
) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE invitations SET accepted_at = ? WHERE id = ? AND accepted_at IS NULL`,
		at, id,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	if _, err := r.GetInvitationByID(ctx, id); err != nil {
		return err
	}
	return nil // already accepted; no-op
}

func scanInvitation(row scanner) (domain.Invitation, error) {
	var (
		inv        domain.Invitation
		role       string
		acceptedAt sql.NullTime
	)

	err := row.Scan(&inv.ID, &inv.OrgID, &inv.Email, &role, &inv.CreatedAt, &acceptedAt)
	if err != nil {
		return domain.Invitation{}, err
	}

	inv.Role = domain.Role(role)
	inv.AcceptedAt = mapNullTimePtr(acceptedAt)
	return inv, nil
}
