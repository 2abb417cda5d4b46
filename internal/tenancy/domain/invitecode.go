package domain

import "time"

// InviteCodeStatus is the lifecycle state of a shared invite code.
type InviteCodeStatus string

const (
	InviteCodeActive    InviteCodeStatus = "active"
	InviteCodeExhausted InviteCodeStatus = "exhausted"

	// InviteCodeRevoked is terminal and overrides exhaustion.
	InviteCodeRevoked InviteCodeStatus = "revoked"
)

// InviteCode is a shared, bounded-use, expiring token admitting members at a
// fixed role. Invariants: 0 <= Uses <= MaxUses, and Status is exhausted
// exactly when Uses == MaxUses (unless revoked). Expiry is evaluated lazily
// against ExpiresAt; it is never stored as a status transition.
type InviteCode struct {
	Code      string
	OrgID     string
	Role      Role
	MaxUses   int
	Uses      int
	Status    InviteCodeStatus
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the code is past its expiry at the given instant.
func (c InviteCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// SlotsRemaining returns how many redemptions are left.
func (c InviteCode) SlotsRemaining() int {
	if c.Uses >= c.MaxUses {
		return 0
	}
	return c.MaxUses - c.Uses
}
