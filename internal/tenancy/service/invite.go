package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/tenancy/internal/tenancy/domain"
	"github.com/aussiebroadwan/tenancy/internal/tenancy/store"
	"github.com/aussiebroadwan/tenancy/pkg/codex"
	"github.com/aussiebroadwan/tenancy/pkg/slogx"
)

var (
	ErrInvalidInviteRequest = errors.New("invalid invite request")
	ErrInvalidRole          = errors.New("invalid role")

	ErrCodeNotFound  = errors.New("invite code not found")
	ErrCodeRevoked   = errors.New("invite code revoked")
	ErrCodeExpired   = errors.New("invite code expired")
	ErrCodeExhausted = errors.New("invite code exhausted")

	ErrInvitationNotFound      = errors.New("invitation not found")
	ErrInvitationEmailMismatch = errors.New("invitation was issued to a different email")
	ErrInvitationConsumed      = errors.New("invitation already consumed")
)

// DefaultCodeValidity is how long a freshly minted invite code stays
// redeemable.
const DefaultCodeValidity = 7 * 24 * time.Hour

// codeCreateAttempts bounds collision retries when persisting a new code.
const codeCreateAttempts = 5

// InviteService mints, revokes, and redeems shared invite codes, and accepts
// targeted email invitations. Redemption is the only concurrent hot path: the
// advisory pre-checks here are best effort, and the store's conditional
// counter increment inside WithTx is the authoritative gate.
type InviteService struct {
	Store store.Store

	// CodeValidity overrides DefaultCodeValidity when positive.
	CodeValidity time.Duration

	// Now is injected for deterministic tests; defaults to time.Now UTC.
	Now func() time.Time
}

func (s *InviteService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *InviteService) codeValidity() time.Duration {
	if s.CodeValidity > 0 {
		return s.CodeValidity
	}
	return DefaultCodeValidity
}

// CreateInviteCode mints a new shared code admitting members to orgID at the
// given role, with maxUses redemption slots and the configured validity
// window.
func (s *InviteService) CreateInviteCode(
	ctx context.Context,
	orgID string,
	role domain.Role,
	maxUses int,
	createdBy string,
) (domain.InviteCode, error) {
	log := slogx.FromContext(ctx)

	// 1. Validate the request.
	if orgID == "" || maxUses < 1 {
		log.Warn("invite code creation with invalid parameters",
			slog.String("org_id", orgID),
			slog.Int("max_uses", maxUses),
		)
		return domain.InviteCode{}, ErrInvalidInviteRequest
	}
	if !role.Valid() {
		log.Warn("invite code creation with invalid role",
			slog.String("role", string(role)),
		)
		return domain.InviteCode{}, ErrInvalidRole
	}

	// 2. Validate the organization exists.
	if _, err := s.Store.Organizations().GetOrganizationByID(ctx, orgID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.InviteCode{}, ErrOrgNotFound
		}
		log.Error("failed to fetch organization", slog.Any("error", err))
		return domain.InviteCode{}, err
	}

	// 3. Generate and persist, regenerating on the (unlikely) collision.
	now := s.now()
	c := domain.InviteCode{
		OrgID:     orgID,
		Role:      role,
		MaxUses:   maxUses,
		Status:    domain.InviteCodeActive,
		ExpiresAt: now.Add(s.codeValidity()),
		CreatedAt: now,
		UpdatedAt: now,
	}

	var created bool
	for attempt := 0; attempt < codeCreateAttempts && !created; attempt++ {
		code, err := codex.NewCode()
		if err != nil {
			log.Error("failed to generate invite code", slog.Any("error", err))
			return domain.InviteCode{}, err
		}

		c.Code = code
		switch err := s.Store.InviteCodes().CreateInviteCode(ctx, c); {
		case err == nil:
			created = true
		case errors.Is(err, store.ErrAlreadyExists):
			continue
		default:
			log.Error("failed to persist invite code", slog.Any("error", err))
			return domain.InviteCode{}, err
		}
	}
	if !created {
		return domain.InviteCode{}, codex.ErrGenerate
	}

	logActivity(ctx, s.Store, domain.ActivityEvent{
		Type:    domain.ActivityInviteCodeCreated,
		ActorID: createdBy,
		OrgID:   orgID,
		Payload: map[string]string{"role": string(role)},
		At:      now,
	})

	log.Info("invite code created",
		slog.String("org_id", orgID),
		slog.String("role", string(role)),
		slog.Int("max_uses", maxUses),
		slog.Time("expires_at", c.ExpiresAt),
	)
	return c, nil
}

// ListInviteCodes returns an organization's codes in every lifecycle state,
// newest first.
func (s *InviteService) ListInviteCodes(ctx context.Context, orgID string) ([]domain.InviteCode, error) {
	if _, err := s.Store.Organizations().GetOrganizationByID(ctx, orgID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOrgNotFound
		}
		return nil, err
	}
	return s.Store.InviteCodes().GetInviteCodesByOrg(ctx, orgID)
}

// RevokeInviteCode marks a code revoked. Revocation is unconditional,
// idempotent, and terminal: it wins over exhaustion and is never undone.
func (s *InviteService) RevokeInviteCode(ctx context.Context, rawCode, revokedBy string) error {
	log := slogx.FromContext(ctx)
	code := codex.Normalize(rawCode)

	c, err := s.Store.InviteCodes().GetInviteCodeByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrCodeNotFound
		}
		log.Error("failed to fetch invite code", slog.Any("error", err))
		return err
	}

	if err := s.Store.InviteCodes().RevokeInviteCode(ctx, code); err != nil {
		log.Error("failed to revoke invite code", slog.Any("error", err))
		return err
	}

	logActivity(ctx, s.Store, domain.ActivityEvent{
		Type:    domain.ActivityInviteCodeRevoked,
		ActorID: revokedBy,
		OrgID:   c.OrgID,
		At:      s.now(),
	})

	log.Info("invite code revoked", slog.String("org_id", c.OrgID))
	return nil
}

// RedeemInviteCode consumes one slot of a shared code and admits the user to
// the code's organization at the code's role. An existing member redeems as a
// no-op success without consuming a slot. The pre-checks below give friendly
// errors; under concurrency the conditional increment inside the transaction
// is what actually bounds admissions, and a failed membership insert rolls
// the consumed slot back.
func (s *InviteService) RedeemInviteCode(
	ctx context.Context,
	userID string,
	email string,
	rawCode string,
) (domain.Membership, error) {
	log := slogx.FromContext(ctx)

	// 1. Validate input.
	if userID == "" || rawCode == "" {
		log.Warn("invite code redemption missing required fields")
		return domain.Membership{}, ErrInvalidInviteRequest
	}
	code := codex.Normalize(rawCode)
	if !codex.Valid(code) {
		log.Warn("invite code redemption with malformed code")
		return domain.Membership{}, ErrCodeNotFound
	}

	// 2. Advisory lookup for friendly error classification.
	now := s.now()
	c, err := s.Store.InviteCodes().GetInviteCodeByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("invite code redemption with unknown code")
			return domain.Membership{}, ErrCodeNotFound
		}
		log.Error("failed to fetch invite code", slog.Any("error", err))
		return domain.Membership{}, err
	}
	if err := classifyCode(c, now); err != nil {
		log.Warn("invite code redemption refused",
			slog.String("org_id", c.OrgID),
			slog.Any("reason", err),
		)
		return domain.Membership{}, err
	}

	// 3. Existing members redeem as a no-op; no slot is consumed.
	existing, err := s.Store.Memberships().GetUserOrgMembership(ctx, userID, c.OrgID)
	if err == nil {
		log.Debug("invite code redemption by existing member",
			slog.String("user_id", userID),
			slog.String("org_id", c.OrgID),
		)
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		log.Error("failed to check existing membership", slog.Any("error", err))
		return domain.Membership{}, err
	}

	// 4. Consume a slot and insert the membership atomically.
	m := domain.Membership{
		UserID:   userID,
		OrgID:    c.OrgID,
		Role:     c.Role,
		Email:    normalizeEmail(email),
		JoinedAt: now,
	}
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.InviteCodes().ConsumeInviteCodeUse(ctx, code, now); err != nil {
			return err
		}
		return tx.Memberships().CreateMembership(ctx, m)
	})
	if err != nil {
		// Lost a race against our own concurrent redemption: the rollback
		// released the slot and the membership already exists.
		if errors.Is(err, store.ErrAlreadyExists) {
			return s.Store.Memberships().GetUserOrgMembership(ctx, userID, c.OrgID)
		}
		if mapped := mapCodeErr(err); mapped != err {
			log.Warn("invite code redemption lost the slot race",
				slog.String("org_id", c.OrgID),
				slog.Any("reason", mapped),
			)
			return domain.Membership{}, mapped
		}
		log.Error("invite code redemption failed", slog.Any("error", err))
		return domain.Membership{}, err
	}

	logActivity(ctx, s.Store, domain.ActivityEvent{
		Type:    domain.ActivityInviteCodeUsed,
		ActorID: userID,
		OrgID:   c.OrgID,
		Payload: map[string]string{"role": string(c.Role)},
		At:      now,
	})

	log.Info("member joined via invite code",
		slog.String("user_id", userID),
		slog.String("org_id", c.OrgID),
		slog.String("role", string(c.Role)),
	)
	return m, nil
}

// AcceptInvitation consumes a targeted email invitation for userID. A
// consumed invitation is terminal: the original acceptor gets their existing
// membership back, so the retry-on-every-login sweep can safely reprocess,
// while any other principal is refused even when the address was recycled.
func (s *InviteService) AcceptInvitation(
	ctx context.Context,
	userID string,
	email string,
	invitationID string,
) (domain.Membership, error) {
	log := slogx.FromContext(ctx)

	inv, err := s.Store.Invitations().GetInvitationByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Membership{}, ErrInvitationNotFound
		}
		log.Error("failed to fetch invitation", slog.Any("error", err))
		return domain.Membership{}, err
	}

	if !strings.EqualFold(inv.Email, email) {
		log.Warn("invitation acceptance attempted with mismatched email",
			slog.String("invitation_id", inv.ID),
		)
		return domain.Membership{}, ErrInvitationEmailMismatch
	}

	if !inv.Pending() {
		m, err := s.Store.Memberships().GetUserOrgMembership(ctx, userID, inv.OrgID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.Membership{}, ErrInvitationConsumed
			}
			log.Error("failed to fetch membership", slog.Any("error", err))
			return domain.Membership{}, err
		}
		return m, nil
	}

	role := inv.Role
	if !role.Valid() {
		role = domain.RoleStaff
	}

	now := s.now()
	m := domain.Membership{
		UserID:   userID,
		OrgID:    inv.OrgID,
		Role:     role,
		Email:    normalizeEmail(email),
		JoinedAt: now,
	}
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Memberships().CreateMembership(ctx, m); err != nil &&
			!errors.Is(err, store.ErrAlreadyExists) {
			return err
		}
		return tx.Invitations().MarkInvitationAccepted(ctx, inv.ID, now)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// The target organization vanished between invitation and
			// acceptance; the membership insert hit the missing parent row.
			return domain.Membership{}, ErrOrgNotFound
		}
		log.Error("failed to accept invitation",
			slog.String("invitation_id", inv.ID),
			slog.Any("error", err),
		)
		return domain.Membership{}, err
	}

	logActivity(ctx, s.Store, domain.ActivityEvent{
		Type:    domain.ActivityMemberJoined,
		ActorID: userID,
		OrgID:   inv.OrgID,
		Payload: map[string]string{"via": "invitation", "invitation_id": inv.ID},
		At:      now,
	})

	log.Info("member joined via invitation",
		slog.String("user_id", userID),
		slog.String("org_id", inv.OrgID),
		slog.String("invitation_id", inv.ID),
	)
	return m, nil
}

// classifyCode maps an invite code's state at now to the redemption error
// taxonomy. Revocation wins over every other state, then expiry, then
// exhaustion.
func classifyCode(c domain.InviteCode, now time.Time) error {
	switch {
	case c.Status == domain.InviteCodeRevoked:
		return ErrCodeRevoked
	case c.Expired(now):
		return ErrCodeExpired
	case c.Status == domain.InviteCodeExhausted || c.SlotsRemaining() == 0:
		return ErrCodeExhausted
	}
	return nil
}

// mapCodeErr translates store redemption sentinels to service errors; other
// errors pass through unchanged.
func mapCodeErr(err error) error {
	switch {
	case errors.Is(err, store.ErrCodeRevoked):
		return ErrCodeRevoked
	case errors.Is(err, store.ErrCodeExpired):
		return ErrCodeExpired
	case errors.Is(err, store.ErrCodeExhausted):
		return ErrCodeExhausted
	case errors.Is(err, store.ErrNotFound):
		return ErrCodeNotFound
	}
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
