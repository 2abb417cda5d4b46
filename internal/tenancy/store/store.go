package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/tenancy/internal/tenancy/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrCodeExhausted reports a bounded-counter increment that found no
	// remaining slots. Under concurrent redemption this is the authoritative
	// answer; the advisory pre-checks in the service layer are best effort.
	ErrCodeExhausted = errors.New("store: invite code exhausted")
	// ErrCodeRevoked reports a conditional increment against a revoked code.
	ErrCodeRevoked = errors.New("store: invite code revoked")
	// ErrCodeExpired reports a conditional increment past the code's expiry.
	ErrCodeExpired = errors.New("store: invite code expired")
)

// Store is the root data access interface consumed by the tenancy services.
// Concrete drivers (sqlite, memory) implement it. Sub-repositories keep the
// surface tidy; multi-record operations that must be atomic go through
// WithTx.
type Store interface {
	Organizations() Organizations
	Memberships() Memberships
	InviteCodes() InviteCodes
	Invitations() Invitations
	Activity() Activity

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store. The
	// caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction: rolled back when fn errors,
	// committed otherwise. This is the recommended entry point; invite-code
	// redemption relies on it so that a failed membership insert releases the
	// consumed counter slot.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error
}

// Tx is a transaction-scoped Store with commit/rollback control.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Organizations interface {
	// GetUserOrganizations returns every organization the user holds a
	// membership in, ordered by creation.
	GetUserOrganizations(ctx context.Context, userID string) ([]domain.Organization, error)

	// GetOrganizationByID fetches a single organization record.
	GetOrganizationByID(ctx context.Context, orgID string) (domain.Organization, error)

	// CreateOrganization inserts a new organization (id provided via ULID).
	CreateOrganization(ctx context.Context, org domain.Organization) error

	// UpdateOrganization applies a partial update and bumps updated_at.
	UpdateOrganization(ctx context.Context, orgID string, patch domain.OrganizationPatch) error
}

type Memberships interface {
	// GetUserOrgMembership returns the membership for (userID, orgID), or
	// ErrNotFound.
	GetUserOrgMembership(ctx context.Context, userID, orgID string) (domain.Membership, error)

	// CreateMembership inserts a membership. Returns ErrAlreadyExists when
	// the (userID, orgID) pair is already present; callers treating creation
	// as idempotent tolerate that error.
	CreateMembership(ctx context.Context, m domain.Membership) error

	// GetOrganizationMembers lists an organization's memberships with the
	// emails captured at admission.
	GetOrganizationMembers(ctx context.Context, orgID string) ([]domain.Membership, error)

	// UpdateUserRole changes the role on an existing membership.
	UpdateUserRole(ctx context.Context, userID, orgID string, role domain.Role) error

	// RemoveUserFromOrganization deletes the membership.
	RemoveUserFromOrganization(ctx context.Context, userID, orgID string) error
}

type InviteCodes interface {
	// CreateInviteCode inserts a new code. Returns ErrAlreadyExists on a code
	// collision so the caller can regenerate.
	CreateInviteCode(ctx context.Context, c domain.InviteCode) error

	// GetInviteCodeByCode fetches a code in any lifecycle state.
	GetInviteCodeByCode(ctx context.Context, code string) (domain.InviteCode, error)

	// GetInviteCodesByOrg lists an organization's codes, newest first.
	GetInviteCodesByOrg(ctx context.Context, orgID string) ([]domain.InviteCode, error)

	// RevokeInviteCode marks the code revoked. Idempotent: revoking a revoked
	// or exhausted code succeeds without changing anything further.
	RevokeInviteCode(ctx context.Context, code string) error

	// ConsumeInviteCodeUse is the authoritative bounded-counter increment: it
	// accepts one redemption slot only while the code is active, unexpired at
	// now, and uses < max_uses, flipping status to exhausted when the last
	// slot goes. Failures are classified as ErrCodeRevoked, ErrCodeExpired,
	// ErrCodeExhausted, or ErrNotFound. Call inside WithTx together with the
	// membership insert so the slot is released if the insert fails.
	ConsumeInviteCodeUse(ctx context.Context, code string, now time.Time) error
}

type Invitations interface {
	// CreateInvitation inserts a new email invitation (id provided via ULID).
	CreateInvitation(ctx context.Context, inv domain.Invitation) error

	// GetInvitationByID fetches an invitation.
	GetInvitationByID(ctx context.Context, id string) (domain.Invitation, error)

	// GetInvitationsByEmail returns all invitations targeting the address,
	// pending or not.
	GetInvitationsByEmail(ctx context.Context, email string) ([]domain.Invitation, error)

	// MarkInvitationAccepted sets accepted_at if it is not already set.
	MarkInvitationAccepted(ctx context.Context, id string, at time.Time) error
}

type Activity interface {
	// LogActivity appends an audit event. Best effort: callers ignore errors
	// beyond logging them.
	LogActivity(ctx context.Context, ev domain.ActivityEvent) error
}
