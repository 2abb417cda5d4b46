package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/tenancy/internal/tenancy/domain"
	"github.com/aussiebroadwan/tenancy/internal/tenancy/store"
	"github.com/aussiebroadwan/tenancy/pkg/idx"
	"github.com/aussiebroadwan/tenancy/pkg/slogx"
)

var (
	ErrOrgNotFound       = errors.New("organization not found")
	ErrMemberNotFound    = errors.New("member not found")
	ErrNotMember         = errors.New("not a member of organization")
	ErrInvalidOrgRequest = errors.New("invalid organization request")
)

// OrgService owns the organization admin surface: creation, settings updates,
// member management, and targeted invitations. Authorization (which caller
// may do what) is enforced at the HTTP layer against the caller's resolved
// role; this service assumes the caller is allowed.
type OrgService struct {
	Store store.Store

	// Now is injected for deterministic tests; defaults to time.Now UTC.
	Now func() time.Time
}

func (s *OrgService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// CreateOrganization creates a new trial organization with the creator as its
// first admin. Organization and membership land in one transaction so a half
// created tenant can never exist.
func (s *OrgService) CreateOrganization(
	ctx context.Context,
	userID string,
	email string,
	name string,
) (domain.Organization, error) {
	log := slogx.FromContext(ctx)

	name = strings.TrimSpace(name)
	if userID == "" || name == "" {
		log.Warn("organization creation with missing fields")
		return domain.Organization{}, ErrInvalidOrgRequest
	}

	now := s.now()
	org := domain.Organization{
		ID:             idx.New().String(),
		Name:           name,
		Plan:           domain.PlanTrial,
		Status:         "active",
		TrialStartedAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	creator := domain.Membership{
		UserID:   userID,
		OrgID:    org.ID,
		Role:     domain.RoleAdmin,
		Email:    normalizeEmail(email),
		JoinedAt: now,
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Organizations().CreateOrganization(ctx, org); err != nil {
			return err
		}
		return tx.Memberships().CreateMembership(ctx, creator)
	})
	if err != nil {
		log.Error("failed to create organization", slog.Any("error", err))
		return domain.Organization{}, err
	}

	logActivity(ctx, s.Store, domain.ActivityEvent{
		Type:    domain.ActivityOrgCreated,
		ActorID: userID,
		OrgID:   org.ID,
		Payload: map[string]string{"name": name},
		At:      now,
	})

	log.Info("organization created",
		slog.String("org_id", org.ID),
		slog.String("created_by", userID),
	)
	return org, nil
}

// GetOrganization fetches a single organization record.
func (s *OrgService) GetOrganization(ctx context.Context, orgID string) (domain.Organization, error) {
	org, err := s.Store.Organizations().GetOrganizationByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Organization{}, ErrOrgNotFound
		}
		return domain.Organization{}, err
	}
	return org, nil
}

// UpdateOrganization applies a partial update. Plan changes are validated;
// the billing status field is stored verbatim since it is reconciled by an
// external system.
func (s *OrgService) UpdateOrganization(
	ctx context.Context,
	orgID string,
	patch domain.OrganizationPatch,
	updatedBy string,
) error {
	log := slogx.FromContext(ctx)

	if patch.Plan != nil && !patch.Plan.Valid() {
		log.Warn("organization update with invalid plan",
			slog.String("org_id", orgID),
			slog.String("plan", string(*patch.Plan)),
		)
		return ErrInvalidOrgRequest
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return ErrInvalidOrgRequest
	}

	if err := s.Store.Organizations().UpdateOrganization(ctx, orgID, patch); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrOrgNotFound
		}
		log.Error("failed to update organization", slog.Any("error", err))
		return err
	}

	logActivity(ctx, s.Store, domain.ActivityEvent{
		Type:    domain.ActivityOrgUpdated,
		ActorID: updatedBy,
		OrgID:   orgID,
		At:      s.now(),
	})

	log.Info("organization updated", slog.String("org_id", orgID))
	return nil
}

// ListMembers returns an organization's memberships with the emails captured
// at admission.
func (s *OrgService) ListMembers(ctx context.Context, orgID string) ([]domain.Membership, error) {
	if _, err := s.GetOrganization(ctx, orgID); err != nil {
		return nil, err
	}
	return s.Store.Memberships().GetOrganizationMembers(ctx, orgID)
}

// UpdateMemberRole changes an existing member's role.
func (s *OrgService) UpdateMemberRole(
	ctx context.Context,
	orgID string,
	userID string,
	role domain.Role,
	updatedBy string,
) error {
	log := slogx.FromContext(ctx)

	if !role.Valid() {
		log.Warn("member role update with invalid role",
			slog.String("role", string(role)),
		)
		return ErrInvalidRole
	}

	if err := s.Store.Memberships().UpdateUserRole(ctx, userID, orgID, role); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrMemberNotFound
		}
		log.Error("failed to update member role", slog.Any("error", err))
		return err
	}

	logActivity(ctx, s.Store, domain.ActivityEvent{
		Type:    domain.ActivityMemberRoleChanged,
		ActorID: updatedBy,
		OrgID:   orgID,
		Payload: map[string]string{"user_id": userID, "role": string(role)},
		At:      s.now(),
	})

	log.Info("member role updated",
		slog.String("org_id", orgID),
		slog.String("user_id", userID),
		slog.String("role", string(role)),
	)
	return nil
}

// RemoveMember deletes a membership.
func (s *OrgService) RemoveMember(
	ctx context.Context,
	orgID string,
	userID string,
	removedBy string,
) error {
	log := slogx.FromContext(ctx)

	if err := s.Store.Memberships().RemoveUserFromOrganization(ctx, userID, orgID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrMemberNotFound
		}
		log.Error("failed to remove member", slog.Any("error", err))
		return err
	}

	logActivity(ctx, s.Store, domain.ActivityEvent{
		Type:    domain.ActivityMemberRemoved,
		ActorID: removedBy,
		OrgID:   orgID,
		Payload: map[string]string{"user_id": userID},
		At:      s.now(),
	})

	log.Info("member removed",
		slog.String("org_id", orgID),
		slog.String("user_id", userID),
	)
	return nil
}

// InviteUser records a targeted email invitation to orgID at the given role.
// Delivery of the invitation email is out of scope; the pending record is
// swept up automatically the next time the invitee logs in.
func (s *OrgService) InviteUser(
	ctx context.Context,
	orgID string,
	email string,
	role domain.Role,
	invitedBy string,
) (domain.Invitation, error) {
	log := slogx.FromContext(ctx)

	email = normalizeEmail(email)
	if email == "" {
		return domain.Invitation{}, ErrInvalidOrgRequest
	}
	if !role.Valid() {
		log.Warn("invitation with invalid role", slog.String("role", string(role)))
		return domain.Invitation{}, ErrInvalidRole
	}
	if _, err := s.GetOrganization(ctx, orgID); err != nil {
		return domain.Invitation{}, err
	}

	now := s.now()
	inv := domain.Invitation{
		ID:        idx.New().String(),
		OrgID:     orgID,
		Email:     email,
		Role:      role,
		CreatedAt: now,
	}
	if err := s.Store.Invitations().CreateInvitation(ctx, inv); err != nil {
		log.Error("failed to create invitation", slog.Any("error", err))
		return domain.Invitation{}, err
	}

	logActivity(ctx, s.Store, domain.ActivityEvent{
		Type:    domain.ActivityInvitationSent,
		ActorID: invitedBy,
		OrgID:   orgID,
		Payload: map[string]string{"role": string(role)},
		At:      now,
	})

	log.Info("invitation sent",
		slog.String("org_id", orgID),
		slog.String("invitation_id", inv.ID),
		slog.String("role", string(role)),
	)
	return inv, nil
}

// ResolveMemberRole returns the caller's effective role in orgID, for
// authorization decisions at the HTTP layer. Non-members get ErrNotMember.
func (s *OrgService) ResolveMemberRole(ctx context.Context, userID, orgID string) (domain.Role, error) {
	m, err := s.Store.Memberships().GetUserOrgMembership(ctx, userID, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNotMember
		}
		return "", err
	}

	org, err := s.Store.Organizations().GetOrganizationByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrOrgNotFound
		}
		return "", err
	}

	return ResolveRole(&m, org), nil
}
