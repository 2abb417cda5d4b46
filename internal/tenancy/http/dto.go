package http

import (
	"github.com/aussiebroadwan/tenancy/internal/tenancy/domain"
	"github.com/aussiebroadwan/tenancy/pkg/tenancysdk"
)

func toSDKOrganization(org domain.Organization) tenancysdk.Organization {
	return tenancysdk.Organization{
		ID:             org.ID,
		Name:           org.Name,
		Plan:           string(org.Plan),
		Status:         org.Status,
		TrialStartedAt: org.TrialStartedAt,
		Settings:       org.Settings,
		CreatedAt:      org.CreatedAt,
		UpdatedAt:      org.UpdatedAt,
	}
}

func toSDKMembership(m domain.Membership) tenancysdk.Membership {
	return tenancysdk.Membership{
		UserID:   m.UserID,
		OrgID:    m.OrgID,
		Role:     string(m.Role),
		Email:    m.Email,
		JoinedAt: m.JoinedAt,
	}
}

func toSDKOrgContext(octx domain.OrgContext) tenancysdk.OrgContext {
	return tenancysdk.OrgContext{
		Organization: toSDKOrganization(octx.Organization),
		Role:         string(octx.Role),
		Subscription: tenancysdk.SubscriptionStatus{
			Active:             octx.Subscription.Active,
			Plan:               string(octx.Subscription.Plan),
			TrialDaysRemaining: octx.Subscription.TrialDaysRemaining,
			Status:             octx.Subscription.Status,
		},
	}
}

func toSDKSession(s domain.Session) tenancysdk.SessionResponse {
	resp := tenancysdk.SessionResponse{
		Organizations: make([]tenancysdk.Organization, 0, len(s.Organizations)),
	}
	for _, org := range s.Organizations {
		resp.Organizations = append(resp.Organizations, toSDKOrganization(org))
	}
	for _, r := range s.Invitations {
		res := tenancysdk.InvitationResult{
			InvitationID: r.InvitationID,
			OrgID:        r.OrgID,
		}
		if r.Err != nil {
			res.Error = r.Err.Error()
		}
		resp.Invitations = append(resp.Invitations, res)
	}
	if s.Active != nil {
		octx := toSDKOrgContext(*s.Active)
		resp.Active = &octx
	}
	return resp
}

func toSDKInvitation(inv domain.Invitation) tenancysdk.Invitation {
	return tenancysdk.Invitation{
		ID:         inv.ID,
		OrgID:      inv.OrgID,
		Email:      inv.Email,
		Role:       string(inv.Role),
		CreatedAt:  inv.CreatedAt,
		AcceptedAt: inv.AcceptedAt,
	}
}

func toSDKInviteCode(c domain.InviteCode) tenancysdk.InviteCode {
	return tenancysdk.InviteCode{
		Code:      c.Code,
		OrgID:     c.OrgID,
		Role:      string(c.Role),
		MaxUses:   c.MaxUses,
		Uses:      c.Uses,
		Status:    string(c.Status),
		ExpiresAt: c.ExpiresAt,
		CreatedAt: c.CreatedAt,
	}
}
