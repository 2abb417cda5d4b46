package sqlite

import (
	"context"

	"github.com/aussiebroadwan/tenancy/internal/tenancy/domain"
	"github.com/aussiebroadwan/tenancy/internal/tenancy/store"
)

type membershipsRepo struct {
	db dbtx
}

func (r *membershipsRepo) GetUserOrgMembership(
	ctx context.Context,
	userID, orgID string,
) (domain.Membership, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, org_id, role, email, joined_at
		FROM memberships
		WHERE user_id = ? AND org_id = ?`,
		userID, orgID,
	)

	m, err := scanMembership(row)
	if err != nil {
		return domain.Membership{}, mapNotFound(err)
	}
	return m, nil
}

func (r *membershipsRepo) CreateMembership(ctx context.Context, m domain.Membership) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO memberships (user_id, org_id, role, email, joined_at)
		VALUES (?, ?, ?, ?, ?)`,
		m.UserID, m.OrgID, string(m.Role), m.Email, m.JoinedAt,
	)
	return mapConstraint(err)
}

func (r *membershipsRepo) GetOrganizationMembers(
	ctx context.Context,
	orgID string,
) ([]domain.Membership, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, org_id, role, email, joined_at
		FROM memberships
		WHERE org_id = ?
		ORDER BY joined_at, user_id`,
		orgID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *membershipsRepo) UpdateUserRole(
	ctx context.Context,
	userID, orgID string,
	role domain.Role,
) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE memberships SET role = ? WHERE user_id = ? AND org_id = ?`,
		string(role), userID, orgID,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *membershipsRepo) RemoveUserFromOrganization(
	ctx context.Context,
	userID, orgID string,
) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM memberships WHERE user_id = ? AND org_id = ?`,
		userID, orgID,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanMembership(row scanner) (domain.Membership, error) {
	var (
		m    domain.Membership
		role string
	)

	if err := row.Scan(&m.UserID, &m.OrgID, &role, &m.Email, &m.JoinedAt); err != nil {
		return domain.Membership{}, err
	}

	m.Role = domain.Role(role)
	return m, nil
}
