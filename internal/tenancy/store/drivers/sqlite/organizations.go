package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/tenancy/internal/tenancy/domain"
	"github.com/aussiebroadwan/tenancy/internal/tenancy/store"
)

type organizationsRepo struct {
	db dbtx
}

const organizationColumns = `id, name, plan, status, trial_started_at, default_role, settings, created_at, updated_at`

func (r *organizationsRepo) GetUserOrganizations(
	ctx context.Context,
	userID string,
) ([]domain.Organization, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, o.name, o.plan, o.status, o.trial_started_at,
		       o.default_role, o.settings, o.created_at, o.updated_at
		FROM organizations o
		JOIN memberships m ON m.org_id = o.id
		WHERE m.user_id = ?
		ORDER BY o.created_at, o.id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orgs []domain.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

func (r *organizationsRepo) GetOrganizationByID(
	ctx context.Context,
	orgID string,
) (domain.Organization, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+organizationColumns+` FROM organizations WHERE id = ?`, orgID)

	org, err := scanOrganization(row)
	if err != nil {
		return domain.Organization{}, mapNotFound(err)
	}
	return org, nil
}

func (r *organizationsRepo) CreateOrganization(ctx context.Context, org domain.Organization) error {
	settings, err := encodeSettings(org.Settings)
	if err != nil {
		return err
	}

	var trialStartedAt sql.NullTime
	if !org.TrialStartedAt.IsZero() {
		trialStartedAt = sql.NullTime{Time: org.TrialStartedAt, Valid: true}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO organizations (id, name, plan, status, trial_started_at,
		                           default_role, settings, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		org.ID, org.Name, string(org.Plan), org.Status, trialStartedAt,
		string(org.DefaultRole), settings, org.CreatedAt, org.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *organizationsRepo) UpdateOrganization(
	ctx context.Context,
	orgID string,
	patch domain.OrganizationPatch,
) error {
	query := `UPDATE organizations SET updated_at = ?`
	args := []any{time.Now().UTC()}

	if patch.Name != nil {
		query += `, name = ?`
		args = append(args, *patch.Name)
	}
	if patch.Plan != nil {
		query += `, plan = ?`
		args = append(args, string(*patch.Plan))
	}
	if patch.Status != nil {
		query += `, status = ?`
		args = append(args, *patch.Status)
	}
	if patch.Settings != nil {
		settings, err := encodeSettings(patch.Settings)
		if err != nil {
			return err
		}
		query += `, settings = ?`
		args = append(args, settings)
	}

	query += ` WHERE id = ?`
	args = append(args, orgID)

	res, err := r.db.ExecContext(ctx, query, args...)
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

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanOrganization(row scanner) (domain.Organization, error) {
	var (
		org            domain.Organization
		plan           string
		defaultRole    string
		trialStartedAt sql.NullTime
		settings       string
	)

	err := row.Scan(&org.ID, &org.Name, &plan, &org.Status, &trialStartedAt,
		&defaultRole, &settings, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return domain.Organization{}, err
	}

	org.Plan = domain.Plan(plan)
	org.DefaultRole = domain.Role(defaultRole)
	org.TrialStartedAt = mapNullTime(trialStartedAt)
	org.Settings = decodeSettings(settings)
	return org, nil
}
