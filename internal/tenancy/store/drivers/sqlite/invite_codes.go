package sqlite

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/tenancy/internal/tenancy/domain"
	"github.com/aussiebroadwan/tenancy/internal/tenancy/store"
)

type inviteCodesRepo struct {
	db dbtx
}

const inviteCodeColumns = `code, org_id, role, max_uses, uses, status, expires_at, created_at, updated_at`

func (r *inviteCodesRepo) CreateInviteCode(ctx context.Context, c domain.InviteCode) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO invite_codes (code, org_id, role, max_uses, uses, status,
		                          expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Code, c.OrgID, string(c.Role), c.MaxUses, c.Uses, string(c.Status),
		c.ExpiresAt, c.CreatedAt, c.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *inviteCodesRepo) GetInviteCodeByCode(
	ctx context.Context,
	code string,
) (domain.InviteCode, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+inviteCodeColumns+` FROM invite_codes WHERE code = ?`, code)

	c, err := scanInviteCode(row)
	if err != nil {
		return domain.InviteCode{}, mapNotFound(err)
	}
	return c, nil
}

func (r *inviteCodesRepo) GetInviteCodesByOrg(
	ctx context.Context,
	orgID string,
) ([]domain.InviteCode, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+inviteCodeColumns+` FROM invite_codes WHERE org_id = ? ORDER BY created_at DESC, code`,
		orgID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []domain.InviteCode
	for rows.Next() {
		c, err := scanInviteCode(rows)
		if err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

func (r *inviteCodesRepo) RevokeInviteCode(ctx context.Context, code string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE invite_codes
		SET status = ?, updated_at = ?
		WHERE code = ? AND status != ?`,
		string(domain.InviteCodeRevoked), time.Now().UTC(),
		code, string(domain.InviteCodeRevoked),
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

	// Nothing changed: either the code is unknown or already revoked.
	// Re-revoking is a no-op, not an error.
	if _, err := r.GetInviteCodeByCode(ctx, code); err != nil {
		return err
	}
	return nil
}

// ConsumeInviteCodeUse performs the authoritative bounded-counter increment
// as a single conditional write. The row only moves when the code is active,
// unexpired, and has a slot left, so uses can never exceed max_uses no matter
// how many redemptions race.
func (r *inviteCodesRepo) ConsumeInviteCodeUse(
	ctx context.Context,
	code string,
	now time.Time,
) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE invite_codes
		SET uses = uses + 1,
		    status = CASE WHEN uses + 1 >= max_uses THEN ? ELSE status END,
		    updated_at = ?
		WHERE code = ? AND status = ? AND uses < max_uses AND expires_at > ?`,
		string(domain.InviteCodeExhausted), now,
		code, string(domain.InviteCodeActive), now,
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

	// The conditional write matched nothing; classify why.
	c, err := r.GetInviteCodeByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}

	switch {
	case c.Status == domain.InviteCodeRevoked:
		return store.ErrCodeRevoked
	case c.Expired(now):
		return store.ErrCodeExpired
	default:
		return store.ErrCodeExhausted
	}
}

func scanInviteCode(row scanner) (domain.InviteCode, error) {
	var (
		c      domain.InviteCode
		role   string
		status string
	)

	err := row.Scan(&c.Code, &c.OrgID, &role, &c.MaxUses, &c.Uses, &status,
		&c.ExpiresAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return domain.InviteCode{}, err
	}

	c.Role = domain.Role(role)
	c.Status = domain.InviteCodeStatus(status)
	return c, nil
}
