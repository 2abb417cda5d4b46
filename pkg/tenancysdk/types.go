package tenancysdk

import "time"

// ErrorResponse is the error envelope returned by every endpoint.
type ErrorResponse struct {
	// Error is a stable machine-readable code (e.g. "code_exhausted").
	Error string `json:"error"`

	// ErrorDescription is a human-readable description of the error.
	ErrorDescription string `json:"error_description"`
}

// Organization is the wire form of a tenant organization.
type Organization struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Plan           string            `json:"plan"`
	Status         string            `json:"status"`
	TrialStartedAt time.Time         `json:"trial_started_at,omitempty"`
	Settings       map[string]string `json:"settings,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Membership is the wire form of one member of an organization.
type Membership struct {
	UserID   string    `json:"user_id"`
	OrgID    string    `json:"org_id"`
	Role     string    `json:"role"`
	Email    string    `json:"email,omitempty"`
	JoinedAt time.Time `json:"joined_at"`
}

// SubscriptionStatus is the derived entitlement for an organization.
type SubscriptionStatus struct {
	Active             bool   `json:"active"`
	Plan               string `json:"plan"`
	TrialDaysRemaining int    `json:"trial_days_remaining,omitempty"`
	Status             string `json:"status,omitempty"`
}

// OrgContext is the resolved view of one organization for the caller.
type OrgContext struct {
	Organization Organization       `json:"organization"`
	Role         string             `json:"role"`
	Subscription SubscriptionStatus `json:"subscription"`
}

// InvitationResult reports the outcome of one pending-invitation acceptance
// attempt during session resolution.
type InvitationResult struct {
	InvitationID string `json:"invitation_id"`
	OrgID        string `json:"org_id"`
	Error        string `json:"error,omitempty"`
}

// SessionResponse is returned by POST /v1/session/resolve. Active is null
// when the caller belongs to several organizations and no cached selection
// applied.
type SessionResponse struct {
	Organizations []Organization     `json:"organizations"`
	Invitations   []InvitationResult `json:"invitations,omitempty"`
	Active        *OrgContext        `json:"active,omitempty"`
}

// SwitchRequest selects the active organization for the caller.
type SwitchRequest struct {
	OrgID string `json:"org_id"`
}

// RefreshRequest re-evaluates role and subscription for an organization.
type RefreshRequest struct {
	OrgID string `json:"org_id"`
}

// CreateOrgRequest creates a new trial organization owned by the caller.
type CreateOrgRequest struct {
	Name string `json:"name"`
}

// UpdateOrgRequest is a partial organization update; nil fields are left
// unchanged.
type UpdateOrgRequest struct {
	Name     *string           `json:"name,omitempty"`
	Plan     *string           `json:"plan,omitempty"`
	Status   *string           `json:"status,omitempty"`
	Settings map[string]string `json:"settings,omitempty"`
}

// MemberRoleRequest changes a member's role.
type MemberRoleRequest struct {
	Role string `json:"role"`
}

// InviteUserRequest records a targeted email invitation.
type InviteUserRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Invitation is the wire form of a targeted email invitation.
type Invitation struct {
	ID         string     `json:"id"`
	OrgID      string     `json:"org_id"`
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	CreatedAt  time.Time  `json:"created_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
}

// CreateInviteCodeRequest mints a shared invite code for an organization.
type CreateInviteCodeRequest struct {
	Role    string `json:"role"`
	MaxUses int    `json:"max_uses"`
}

// InviteCode is the wire form of a shared invite code.
type InviteCode struct {
	Code      string    `json:"code"`
	OrgID     string    `json:"org_id"`
	Role      string    `json:"role"`
	MaxUses   int       `json:"max_uses"`
	Uses      int       `json:"uses"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// RevokeInviteCodeRequest revokes a shared invite code.
type RevokeInviteCodeRequest struct {
	Code string `json:"code"`
}

// RedeemInviteCodeRequest consumes one slot of a shared invite code.
type RedeemInviteCodeRequest struct {
	Code string `json:"code"`
}

// RedeemInviteCodeResponse reports the membership granted by a redemption.
type RedeemInviteCodeResponse struct {
	Membership Membership `json:"membership"`
}

// HealthChecks reports the state of the service's critical dependencies.
type HealthChecks struct {
	Database string `json:"database"`
}

// HealthResponse is returned by the liveness and readiness endpoints.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}
