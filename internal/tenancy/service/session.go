package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/tenancy/internal/tenancy/domain"
	"github.com/aussiebroadwan/tenancy/internal/tenancy/store"
	"github.com/aussiebroadwan/tenancy/pkg/prefcache"
	"github.com/aussiebroadwan/tenancy/pkg/slogx"
)

// SessionService resolves which organization a signed-in user is operating
// in, at what role, and with what entitlement. The resolved Session is handed
// back to the caller and threaded explicitly; there is no process-wide
// current organization.
type SessionService struct {
	Store   store.Store
	Prefs   prefcache.Cache
	Invites *InviteService

	Subscriptions SubscriptionPolicy

	// Now is injected for deterministic tests; defaults to time.Now UTC.
	Now func() time.Time
}

func (s *SessionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// ResolveSession builds the login session for a verified (userID, email)
// pair:
//
//  1. Fetch the user's organizations. Failure here is fatal; nothing
//     downstream can be trusted without the membership set.
//  2. Sweep pending invitations for the email, accepting each one. Per-item
//     failures are collected into the session, never fatal: one broken
//     invitation must not block access to organizations the user already
//     belongs to.
//  3. Re-fetch the organizations if the sweep admitted any.
//  4. Auto-select: a sole organization is selected outright; with several,
//     the cached preference applies only if it still matches a real
//     membership; otherwise selection is left to the caller.
//  5. Resolve the user's role in the selected organization.
//  6. Evaluate its subscription entitlement.
//  7. Remember the selection for next login.
func (s *SessionService) ResolveSession(
	ctx context.Context,
	userID string,
	email string,
) (domain.Session, error) {
	log := slogx.FromContext(ctx)

	// 1. Fetch the membership set. Fatal on failure.
	orgs, err := s.Store.Organizations().GetUserOrganizations(ctx, userID)
	if err != nil {
		log.Error("failed to fetch user organizations", slog.Any("error", err))
		return domain.Session{}, err
	}

	session := domain.Session{Organizations: orgs}

	// 2. Accept pending invitations, best effort.
	session.Invitations = s.sweepInvitations(ctx, userID, email)

	// 3. Refresh the membership set if anything was accepted.
	if len(session.AcceptedInvitations()) > 0 {
		orgs, err = s.Store.Organizations().GetUserOrganizations(ctx, userID)
		if err != nil {
			log.Error("failed to re-fetch user organizations", slog.Any("error", err))
			return domain.Session{}, err
		}
		session.Organizations = orgs
	}

	// 4. Auto-select the active organization.
	selected, ok := s.autoSelect(ctx, userID, session.Organizations)
	if !ok {
		return session, nil
	}

	// 5-6. Role and entitlement for the selection.
	octx := s.buildOrgContext(ctx, userID, selected)
	session.Active = &octx

	// 7. Remember the selection.
	if err := s.Prefs.Put(userID, selected.ID); err != nil {
		log.Warn("failed to cache organization selection", slog.Any("error", err))
	}

	log.Info("session resolved",
		slog.String("user_id", userID),
		slog.Int("organizations", len(session.Organizations)),
		slog.String("active_org_id", selected.ID),
		slog.String("role", string(octx.Role)),
	)
	return session, nil
}

// SwitchOrganization changes the user's active organization. The target is
// validated against the real membership set; the cached preference is a hint,
// never an access grant.
func (s *SessionService) SwitchOrganization(
	ctx context.Context,
	userID string,
	orgID string,
) (domain.OrgContext, error) {
	log := slogx.FromContext(ctx)

	if _, err := s.Store.Memberships().GetUserOrgMembership(ctx, userID, orgID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("switch to organization without membership",
				slog.String("user_id", userID),
				slog.String("org_id", orgID),
			)
			return domain.OrgContext{}, ErrNotMember
		}
		log.Error("failed to check membership", slog.Any("error", err))
		return domain.OrgContext{}, err
	}

	octx, err := s.RefreshOrganization(ctx, userID, orgID)
	if err != nil {
		return domain.OrgContext{}, err
	}

	if err := s.Prefs.Put(userID, orgID); err != nil {
		log.Warn("failed to cache organization selection", slog.Any("error", err))
	}

	log.Info("switched organization",
		slog.String("user_id", userID),
		slog.String("org_id", orgID),
		slog.String("role", string(octx.Role)),
	)
	return octx, nil
}

// RefreshOrganization rebuilds the org context from fresh store reads,
// picking up role changes and subscription transitions without a full
// session resolve. It does not touch the cached preference.
func (s *SessionService) RefreshOrganization(
	ctx context.Context,
	userID string,
	orgID string,
) (domain.OrgContext, error) {
	org, err := s.Store.Organizations().GetOrganizationByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.OrgContext{}, ErrOrgNotFound
		}
		return domain.OrgContext{}, err
	}
	return s.buildOrgContext(ctx, userID, org), nil
}

// Logout forgets the user's cached organization selection.
func (s *SessionService) Logout(ctx context.Context, userID string) error {
	if err := s.Prefs.Clear(userID); err != nil {
		slogx.FromContext(ctx).Warn("failed to clear organization selection",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return err
	}
	return nil
}

// sweepInvitations accepts every pending invitation addressed to email and
// returns one result per attempt. Nothing here is fatal: a listing failure
// yields an empty sweep, and each acceptance failure is recorded against its
// invitation and skipped past.
func (s *SessionService) sweepInvitations(
	ctx context.Context,
	userID string,
	email string,
) []domain.InvitationResult {
	log := slogx.FromContext(ctx)

	invs, err := s.Store.Invitations().GetInvitationsByEmail(ctx, normalizeEmail(email))
	if err != nil {
		log.Warn("failed to list pending invitations", slog.Any("error", err))
		return nil
	}

	var results []domain.InvitationResult
	for _, inv := range invs {
		if !inv.Pending() {
			continue
		}

		res := domain.InvitationResult{InvitationID: inv.ID, OrgID: inv.OrgID}
		if _, err := s.Invites.AcceptInvitation(ctx, userID, email, inv.ID); err != nil {
			log.Warn("failed to accept pending invitation",
				slog.String("invitation_id", inv.ID),
				slog.String("org_id", inv.OrgID),
				slog.Any("error", err),
			)
			res.Err = err
		}
		results = append(results, res)
	}
	return results
}

// autoSelect picks the active organization when the choice is unambiguous: a
// sole membership, or a cached preference still backed by one. A cached id
// that no longer matches a membership is dropped.
func (s *SessionService) autoSelect(
	ctx context.Context,
	userID string,
	orgs []domain.Organization,
) (domain.Organization, bool) {
	switch len(orgs) {
	case 0:
		return domain.Organization{}, false
	case 1:
		return orgs[0], true
	}

	cached, ok := s.Prefs.Get(userID)
	if !ok {
		return domain.Organization{}, false
	}
	for _, org := range orgs {
		if org.ID == cached {
			return org, true
		}
	}

	// Stale preference; membership was removed since it was cached.
	if err := s.Prefs.Clear(userID); err != nil {
		slogx.FromContext(ctx).Warn("failed to drop stale organization selection",
			slog.Any("error", err),
		)
	}
	return domain.Organization{}, false
}

// buildOrgContext assembles the resolved view of one organization for one
// user. A failed membership read degrades to role resolution without the
// record rather than failing the session.
func (s *SessionService) buildOrgContext(
	ctx context.Context,
	userID string,
	org domain.Organization,
) domain.OrgContext {
	var membership *domain.Membership
	m, err := s.Store.Memberships().GetUserOrgMembership(ctx, userID, org.ID)
	if err == nil {
		membership = &m
	} else if !errors.Is(err, store.ErrNotFound) {
		slogx.FromContext(ctx).Warn("failed to fetch membership for role resolution",
			slog.String("org_id", org.ID),
			slog.Any("error", err),
		)
	}

	return domain.OrgContext{
		Organization: org,
		Role:         ResolveRole(membership, org),
		Subscription: s.Subscriptions.Evaluate(org, s.now()),
	}
}
