package domain

import "time"

// Membership is the (user, organization, role) access grant. At most one
// exists per (UserID, OrgID) pair; creation is idempotent across the
// admission paths (organization creation, invitation acceptance, invite-code
// redemption).
type Membership struct {
	UserID string
	OrgID  string
	Role   Role

	// Email is the member's address captured at admission, so member listings
	// don't need a user directory lookup.
	Email string

	JoinedAt time.Time
}
