package domain

import "time"

// Plan is an organization's subscription tier.
type Plan string

const (
	PlanTrial    Plan = "trial"
	PlanStarter  Plan = "starter"
	PlanBusiness Plan = "business"
	PlanPro      Plan = "pro"

	// PlanOwner marks the distinguished operator-owned organization, which is
	// exempt from all subscription gating.
	PlanOwner Plan = "owner"
)

// Valid reports whether p is a known plan.
func (p Plan) Valid() bool {
	switch p {
	case PlanTrial, PlanStarter, PlanBusiness, PlanPro, PlanOwner:
		return true
	}
	return false
}

// Organization is the tenant boundary. It owns memberships, invite codes,
// invitations, and a subscription plan.
type Organization struct {
	ID   string
	Name string
	Plan Plan

	// Status is the externally reconciled billing state ("active",
	// "past_due", "canceled"). It is consumed, never computed, here.
	Status string

	// TrialStartedAt is set when the organization is created on the trial
	// plan and never cleared.
	TrialStartedAt time.Time

	// DefaultRole, when set, is the role granted to members whose membership
	// record carries no role of its own (legacy role placement on the
	// organization record). Empty for organizations created by this service.
	DefaultRole Role

	Settings  map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsOwner reports whether org is the operator-owned organization.
func (o Organization) IsOwner() bool { return o.Plan == PlanOwner }

// OrganizationPatch is a partial update to an organization record. Nil fields
// are left unchanged.
type OrganizationPatch struct {
	Name     *string
	Plan     *Plan
	Status   *string
	Settings map[string]string
}
