package domain

// OrgContext is the resolved view of one organization for one user: the
// record itself, the user's effective role in it, and its current
// subscription entitlement.
type OrgContext struct {
	Organization Organization
	Role         Role
	Subscription SubscriptionStatus
}

// InvitationResult records the outcome of one pending-invitation acceptance
// attempt during login. Failures are collected, never fatal.
type InvitationResult struct {
	InvitationID string
	OrgID        string
	Err          error
}

// Session is the result of resolving a login: the user's organizations, the
// outcomes of the invitation sweep, and (when auto-selection succeeded) the
// active organization context. Callers thread this object explicitly; there
// is no process-wide "current organization".
type Session struct {
	Organizations []Organization
	Invitations   []InvitationResult

	// Active is nil when the user belongs to several organizations and no
	// cached selection applied; the caller must then choose explicitly.
	Active *OrgContext
}

// AcceptedInvitations returns the ids of invitations accepted this login.
func (s Session) AcceptedInvitations() []string {
	var ids []string
	for _, r := range s.Invitations {
		if r.Err == nil {
			ids = append(ids, r.InvitationID)
		}
	}
	return ids
}
