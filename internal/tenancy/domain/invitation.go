package domain

import "time"

// Invitation is a single-use, email-targeted admission offer. It is consumed
// exactly once: once AcceptedAt is set, reprocessing is a no-op, which makes
// the retry-on-every-login acceptance loop safe.
type Invitation struct {
	ID         string
	OrgID      string
	Email      string
	Role       Role
	CreatedAt  time.Time
	AcceptedAt *time.Time
}

// Pending reports whether the invitation has not yet been accepted.
func (i Invitation) Pending() bool { return i.AcceptedAt == nil }
